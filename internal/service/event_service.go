package service

import (
    "context"
    "time"

    "github.com/shopspring/decimal"

    "github.com/stagepass/event-ticketing/internal/clock"
    "github.com/stagepass/event-ticketing/internal/model"
    "github.com/stagepass/event-ticketing/internal/repository"
)

// EventService covers the organizer surface (event creation and
// publishing) and the public browse surface (listing, detail and the
// live seat map).
type EventService struct {
    runner   TxRunner
    events   EventStore
    holds    HoldStore
    bookings BookingStore
    clk      clock.Clock
}

// NewEventService constructs an EventService.
func NewEventService(runner TxRunner, events EventStore, holds HoldStore, bookings BookingStore, clk clock.Clock) *EventService {
    return &EventService{runner: runner, events: events, holds: holds, bookings: bookings, clk: clk}
}

// ZoneInput describes one seating zone of a new event.
type ZoneInput struct {
    Name string `json:"name"`
    Rows uint32 `json:"rows"`
    Cols uint32 `json:"cols"`
}

// TierInput describes one ticket tier of a new event.  ZoneName binds
// the tier to a zone declared in the same request; empty means general
// admission.
type TierInput struct {
    Name     string          `json:"name"`
    Price    decimal.Decimal `json:"price"`
    Capacity int             `json:"capacity"`
    ZoneName string          `json:"zone_name"`
}

// CreateEventInput carries everything needed to create a draft event.
type CreateEventInput struct {
    Name     string      `json:"name"`
    Venue    string      `json:"venue"`
    StartsAt time.Time   `json:"starts_at"`
    Currency string      `json:"currency"`
    Zones    []ZoneInput `json:"zones"`
    Tiers    []TierInput `json:"tiers"`
}

// CreateEvent creates a draft event with its zones and tiers in one
// transaction.  Tier and zone names must be unique within the event; a
// seated tier's capacity may not exceed its zone's seat count.
func (s *EventService) CreateEvent(ctx context.Context, organizerID uint64, in CreateEventInput) (*model.Event, error) {
    if in.Name == "" || in.Venue == "" || in.Currency == "" || in.StartsAt.IsZero() || len(in.Tiers) == 0 {
        return nil, repository.ErrMissingField
    }
    zoneNames := make(map[string]bool, len(in.Zones))
    for _, z := range in.Zones {
        if z.Name == "" || z.Rows == 0 || z.Cols == 0 {
            return nil, repository.ErrMissingField
        }
        if zoneNames[z.Name] {
            return nil, repository.ErrConflict
        }
        zoneNames[z.Name] = true
    }
    tierNames := make(map[string]bool, len(in.Tiers))
    for _, t := range in.Tiers {
        if t.Name == "" || t.Capacity <= 0 || t.Price.IsNegative() {
            return nil, repository.ErrMissingField
        }
        if tierNames[t.Name] {
            return nil, repository.ErrConflict
        }
        tierNames[t.Name] = true
        if t.ZoneName != "" && !zoneNames[t.ZoneName] {
            return nil, repository.ErrMissingField
        }
    }

    ev := &model.Event{
        OrganizerID: organizerID,
        Name:        in.Name,
        Venue:       in.Venue,
        StartsAt:    in.StartsAt.UTC(),
        Currency:    in.Currency,
        Status:      model.EventDraft,
    }
    err := s.runner.WithTx(ctx, func(ctx context.Context) error {
        if err := s.events.CreateTx(ctx, ev); err != nil {
            return err
        }
        zoneIDs := make(map[string]uint64, len(in.Zones))
        for _, zin := range in.Zones {
            z := model.Zone{EventID: ev.ID, Name: zin.Name, RowCount: zin.Rows, ColCount: zin.Cols}
            if err := s.events.CreateZoneTx(ctx, &z); err != nil {
                return err
            }
            zoneIDs[z.Name] = z.ID
            ev.Zones = append(ev.Zones, z)
        }
        for _, tin := range in.Tiers {
            t := model.TicketTier{
                EventID:   ev.ID,
                Name:      tin.Name,
                UnitPrice: tin.Price,
                Capacity:  tin.Capacity,
            }
            if tin.ZoneName != "" {
                zid := zoneIDs[tin.ZoneName]
                t.ZoneID = &zid
                zone := ev.ZoneByID(zid)
                if tin.Capacity > int(zone.RowCount)*int(zone.ColCount) {
                    return repository.ErrInvalidSeat
                }
            }
            if err := s.events.CreateTierTx(ctx, &t); err != nil {
                return err
            }
            ev.Tiers = append(ev.Tiers, t)
        }
        return nil
    })
    if err != nil {
        return nil, err
    }
    return ev, nil
}

// Publish moves a draft event to published, making it bookable.  Only
// the owning organizer or an admin may publish.
func (s *EventService) Publish(ctx context.Context, eventID uint64, actor Actor) (*model.Event, error) {
    var ev *model.Event
    err := s.runner.WithTx(ctx, func(ctx context.Context) error {
        e, err := s.events.GetForUpdateTx(ctx, eventID)
        if err != nil {
            return err
        }
        if e.OrganizerID != actor.ID && !actor.Admin() {
            return repository.ErrForbidden
        }
        if e.Status != model.EventDraft {
            return repository.ErrNotBookable
        }
        if err := s.events.UpdateStatusTx(ctx, eventID, model.EventPublished); err != nil {
            return err
        }
        e.Status = model.EventPublished
        ev = e
        return nil
    })
    if err != nil {
        return nil, err
    }
    return ev, nil
}

// CancelEvent moves an event to cancelled, closing it for purchases.
// Existing bookings stay untouched; refunds go through the dispute
// flow.  Only the owning organizer or an admin may cancel.
func (s *EventService) CancelEvent(ctx context.Context, eventID uint64, actor Actor) (*model.Event, error) {
    var ev *model.Event
    err := s.runner.WithTx(ctx, func(ctx context.Context) error {
        e, err := s.events.GetForUpdateTx(ctx, eventID)
        if err != nil {
            return err
        }
        if e.OrganizerID != actor.ID && !actor.Admin() {
            return repository.ErrForbidden
        }
        if e.Status == model.EventCancelled {
            return repository.ErrAlreadyFinal
        }
        if err := s.events.UpdateStatusTx(ctx, eventID, model.EventCancelled); err != nil {
            return err
        }
        e.Status = model.EventCancelled
        ev = e
        return nil
    })
    if err != nil {
        return nil, err
    }
    return ev, nil
}

// ListMine returns the organizer's own events in every status.
func (s *EventService) ListMine(ctx context.Context, organizerID uint64) ([]model.Event, error) {
    return s.events.ListByOrganizer(ctx, organizerID)
}

// ListPublic returns events open for browsing (published plus
// sold_out, which stay visible but unbookable).
func (s *EventService) ListPublic(ctx context.Context) ([]model.Event, error) {
    published, err := s.events.ListByStatus(ctx, model.EventPublished)
    if err != nil {
        return nil, err
    }
    soldOut, err := s.events.ListByStatus(ctx, model.EventSoldOut)
    if err != nil {
        return nil, err
    }
    return append(published, soldOut...), nil
}

// GetPublic returns a publicly visible event.  Drafts and cancelled
// events report ErrEventNotFound to anonymous callers.
func (s *EventService) GetPublic(ctx context.Context, eventID uint64) (*model.Event, error) {
    ev, err := s.events.GetByID(ctx, eventID)
    if err != nil {
        return nil, err
    }
    if ev.Status != model.EventPublished && ev.Status != model.EventSoldOut {
        return nil, repository.ErrEventNotFound
    }
    return ev, nil
}

// SeatStatus is the occupancy state of one seat in the seat map.
type SeatStatus struct {
    Seat   model.SeatRef `json:"seat"`
    Status string        `json:"status"` // free, held or sold
}

// SeatMap returns the current occupancy of every seat of the event.
// It is a read-only snapshot: expired holds are filtered in memory
// rather than reclaimed, and no lock is taken, so the view may be
// momentarily stale.  Buyers learn the truth at hold time.
func (s *EventService) SeatMap(ctx context.Context, eventID uint64) ([]SeatStatus, error) {
    ev, err := s.GetPublic(ctx, eventID)
    if err != nil {
        return nil, err
    }
    now := s.clk.Now()
    sold, err := s.bookings.SoldSeatsTx(ctx, eventID)
    if err != nil {
        return nil, err
    }
    soldSet := make(map[string]bool, len(sold))
    for _, seat := range sold {
        soldSet[seat.Key()] = true
    }
    holds, err := s.holds.ActiveForEventTx(ctx, eventID)
    if err != nil {
        return nil, err
    }
    heldSet := make(map[string]bool, len(holds))
    for i := range holds {
        if holds[i].Active(now) {
            heldSet[holds[i].Seat.Key()] = true
        }
    }
    var out []SeatStatus
    for _, zone := range ev.Zones {
        for row := uint32(1); row <= zone.RowCount; row++ {
            for col := uint32(1); col <= zone.ColCount; col++ {
                seat := model.SeatRef{ZoneID: zone.ID, Row: row, Col: col}
                status := "free"
                switch {
                case soldSet[seat.Key()]:
                    status = "sold"
                case heldSet[seat.Key()]:
                    status = "held"
                }
                out = append(out, SeatStatus{Seat: seat, Status: status})
            }
        }
    }
    return out, nil
}

// EventBookings returns all bookings of the event for its organizer's
// sales view.  Only the owning organizer or an admin may list them.
func (s *EventService) EventBookings(ctx context.Context, eventID uint64, actor Actor) ([]model.Booking, error) {
    ev, err := s.events.GetByID(ctx, eventID)
    if err != nil {
        return nil, err
    }
    if ev.OrganizerID != actor.ID && !actor.Admin() {
        return nil, repository.ErrForbidden
    }
    return s.bookings.ListByEvent(ctx, eventID)
}
