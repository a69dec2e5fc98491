package service

import (
    "context"
    "log"

    "github.com/shopspring/decimal"

    "github.com/stagepass/event-ticketing/internal/clock"
    "github.com/stagepass/event-ticketing/internal/model"
    "github.com/stagepass/event-ticketing/internal/monitoring"
    "github.com/stagepass/event-ticketing/internal/repository"
    "github.com/stagepass/event-ticketing/internal/utils"
)

// BookingService implements the purchase transaction and booking
// cancellation.  Both run as single atomic units under the event row
// lock: inventory increments, ticket issuance and hold consumption
// commit together or not at all, so capacity can never oversell and a
// failed purchase leaves no trace.
type BookingService struct {
    runner   TxRunner
    events   EventStore
    holds    HoldStore
    bookings BookingStore
    clk      clock.Clock
    seatmap  SeatMapInvalidator
    rt       Broadcaster
}

// NewBookingService constructs a BookingService.  seatmap and rt may
// be nil when caching or realtime updates are disabled.
func NewBookingService(runner TxRunner, events EventStore, holds HoldStore, bookings BookingStore, clk clock.Clock, seatmap SeatMapInvalidator, rt Broadcaster) *BookingService {
    return &BookingService{runner: runner, events: events, holds: holds, bookings: bookings, clk: clk, seatmap: seatmap, rt: rt}
}

// TicketRequest is one requested ticket line in a purchase.  Tiers are
// addressed by display name, matching what the buyer saw on the event
// page.  Seat is required for tiers bound to a zone and must be absent
// for general admission tiers.
type TicketRequest struct {
    TierName string         `json:"tier_name"`
    Seat     *model.SeatRef `json:"seat"`
}

// PurchaseInput carries everything needed to create a booking.
type PurchaseInput struct {
    EventID      uint64
    BuyerID      uint64
    Tickets      []TicketRequest
    ContactName  string
    ContactEmail string
}

// Purchase creates a pending booking with its tickets, consumes the
// buyer's seat holds and increments tier inventory, all in one atomic
// unit.  Validation failures and lost races abort the whole unit with
// a sentinel error and change nothing.
func (s *BookingService) Purchase(ctx context.Context, in PurchaseInput) (*model.Booking, error) {
    if in.EventID == 0 || in.BuyerID == 0 || len(in.Tickets) == 0 ||
        in.ContactName == "" || in.ContactEmail == "" {
        return nil, repository.ErrMissingField
    }
    seen := make(map[string]bool)
    for _, t := range in.Tickets {
        if t.Seat == nil {
            continue
        }
        if seen[t.Seat.Key()] {
            return nil, repository.ErrConflict
        }
        seen[t.Seat.Key()] = true
    }

    now := s.clk.Now()
    timer := monitoring.PurchaseDuration
    start := now
    var booking *model.Booking
    var seatsSold []model.SeatRef
    err := s.runner.WithTx(ctx, func(ctx context.Context) error {
        ev, err := s.events.GetForUpdateTx(ctx, in.EventID)
        if err != nil {
            return err
        }
        if !ev.Bookable() {
            return repository.ErrNotBookable
        }
        if err := s.holds.ExpireTx(ctx, in.EventID, now); err != nil {
            return err
        }

        // Resolve every requested line against the locked snapshot
        // before touching anything.
        perTier := make(map[uint64]int)
        for _, req := range in.Tickets {
            tier := ev.TierByName(req.TierName)
            if tier == nil {
                return repository.ErrTierNotFound
            }
            if tier.ZoneID != nil {
                zone := ev.ZoneByID(*tier.ZoneID)
                if req.Seat == nil || zone == nil || !zone.Contains(*req.Seat) {
                    return repository.ErrInvalidSeat
                }
            } else if req.Seat != nil {
                return repository.ErrInvalidSeat
            }
            perTier[tier.ID]++
        }
        for tierID, count := range perTier {
            if ev.TierByID(tierID).Remaining() < count {
                return repository.ErrSoldOut
            }
        }

        sold, err := s.bookings.SoldSeatsTx(ctx, in.EventID)
        if err != nil {
            return err
        }
        occupied := make(map[string]bool, len(sold))
        for _, seat := range sold {
            occupied[seat.Key()] = true
        }
        active, err := s.holds.ActiveForEventTx(ctx, in.EventID)
        if err != nil {
            return err
        }
        heldBy := make(map[string]uint64, len(active))
        for _, h := range active {
            heldBy[h.Seat.Key()] = h.HolderID
        }
        for _, req := range in.Tickets {
            if req.Seat == nil {
                continue
            }
            if occupied[req.Seat.Key()] {
                return repository.ErrConflict
            }
            if heldBy[req.Seat.Key()] != in.BuyerID {
                return repository.ErrSeatNotReserved
            }
        }

        // Snapshot validated; now issue tickets and apply inventory.
        total := decimal.Zero
        tickets := make([]model.Ticket, 0, len(in.Tickets))
        seatsSold = seatsSold[:0]
        for _, req := range in.Tickets {
            tier := ev.TierByName(req.TierName)
            number, err := utils.NewTicketNumber()
            if err != nil {
                return err
            }
            tickets = append(tickets, model.Ticket{
                TierID:       tier.ID,
                TierName:     tier.Name,
                Seat:         req.Seat,
                Price:        tier.UnitPrice,
                TicketNumber: number,
            })
            total = total.Add(tier.UnitPrice)
            if req.Seat != nil {
                seatsSold = append(seatsSold, *req.Seat)
            }
        }
        booking = &model.Booking{
            EventID:      in.EventID,
            BuyerID:      in.BuyerID,
            Status:       model.BookingPending,
            TotalAmount:  total,
            Currency:     ev.Currency,
            ContactName:  in.ContactName,
            ContactEmail: in.ContactEmail,
            Tickets:      tickets,
        }
        if err := s.bookings.CreateTx(ctx, booking); err != nil {
            return err
        }
        for tierID, count := range perTier {
            if err := s.events.AddTierSoldTx(ctx, tierID, count); err != nil {
                return err
            }
            ev.TierByID(tierID).SoldCount += count
        }
        if err := s.holds.DeleteForHolderTx(ctx, in.EventID, in.BuyerID, seatsSold); err != nil {
            return err
        }
        if ev.AllSoldOut() {
            return s.events.UpdateStatusTx(ctx, in.EventID, model.EventSoldOut)
        }
        return nil
    })
    if err != nil {
        monitoring.PurchasesRejected.WithLabelValues(rejectReason(err)).Inc()
        return nil, err
    }
    timer.Observe(s.clk.Now().Sub(start).Seconds())
    monitoring.PurchasesCompleted.Inc()
    s.invalidateSeatMap(ctx, in.EventID)
    s.broadcast(in.EventID, seatsSold, "sold")
    return booking, nil
}

// Cancel moves a booking to cancelled, returns its inventory and frees
// its seats.  Only the booking's buyer or an admin may cancel, only
// before the event starts, and never from a terminal state.
func (s *BookingService) Cancel(ctx context.Context, bookingID uint64, actor Actor, reason string) (*model.Booking, error) {
    var booking *model.Booking
    var freed []model.SeatRef
    var eventID uint64
    now := s.clk.Now()
    err := s.runner.WithTx(ctx, func(ctx context.Context) error {
        b, err := s.bookings.GetForUpdateTx(ctx, bookingID)
        if err != nil {
            return err
        }
        if b.BuyerID != actor.ID && !actor.Admin() {
            return repository.ErrForbidden
        }
        if !b.CanTransition(model.BookingCancelled) {
            return repository.ErrAlreadyFinal
        }
        ev, err := s.events.GetForUpdateTx(ctx, b.EventID)
        if err != nil {
            return err
        }
        if ev.Started(now) {
            return repository.ErrEventStarted
        }
        if err := s.bookings.SetCancelledTx(ctx, b.ID, reason); err != nil {
            return err
        }
        for tierID, count := range b.TicketsPerTier() {
            if err := s.events.AddTierSoldTx(ctx, tierID, -count); err != nil {
                return err
            }
        }
        if ev.Status == model.EventSoldOut {
            if err := s.events.UpdateStatusTx(ctx, ev.ID, model.EventPublished); err != nil {
                return err
            }
        }
        b.Status = model.BookingCancelled
        b.CancelReason = reason
        booking = b
        freed = b.SeatedTickets()
        eventID = b.EventID
        return nil
    })
    if err != nil {
        return nil, err
    }
    monitoring.BookingsCancelled.Inc()
    s.invalidateSeatMap(ctx, eventID)
    s.broadcast(eventID, freed, "free")
    return booking, nil
}

// MyBookings returns the actor's bookings, newest first.
func (s *BookingService) MyBookings(ctx context.Context, buyerID uint64) ([]model.Booking, error) {
    return s.bookings.ListByBuyer(ctx, buyerID)
}

// GetBooking returns a booking visible to the actor: its buyer, an
// admin, or the organizer of its event.
func (s *BookingService) GetBooking(ctx context.Context, bookingID uint64, actor Actor) (*model.Booking, error) {
    b, err := s.bookings.GetByID(ctx, bookingID)
    if err != nil {
        return nil, err
    }
    if b.BuyerID == actor.ID || actor.Admin() {
        return b, nil
    }
    ev, err := s.events.GetByID(ctx, b.EventID)
    if err != nil {
        return nil, err
    }
    if ev.OrganizerID != actor.ID {
        return nil, repository.ErrBookingNotFound
    }
    return b, nil
}

func (s *BookingService) invalidateSeatMap(ctx context.Context, eventID uint64) {
    if s.seatmap == nil {
        return
    }
    if err := s.seatmap.Invalidate(ctx, eventID); err != nil {
        log.Printf("seat map invalidation failed for event %d: %v", eventID, err)
    }
}

func (s *BookingService) broadcast(eventID uint64, seats []model.SeatRef, status string) {
    if s.rt == nil || len(seats) == 0 {
        return
    }
    s.rt.SeatStatusChanged(eventID, seats, status)
}

// rejectReason maps a purchase error to its metric label.
func rejectReason(err error) string {
    switch err {
    case repository.ErrSoldOut:
        return "sold_out"
    case repository.ErrSeatNotReserved:
        return "seat_not_reserved"
    case repository.ErrConflict:
        return "conflict"
    case repository.ErrNotBookable:
        return "not_bookable"
    case repository.ErrTierNotFound, repository.ErrInvalidSeat, repository.ErrMissingField:
        return "validation"
    default:
        return "internal"
    }
}
