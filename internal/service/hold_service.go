package service

import (
    "context"
    "log"
    "time"

    "github.com/stagepass/event-ticketing/internal/clock"
    "github.com/stagepass/event-ticketing/internal/model"
    "github.com/stagepass/event-ticketing/internal/monitoring"
    "github.com/stagepass/event-ticketing/internal/repository"
)

// HoldService places and releases temporary seat holds.  All hold
// mutations for one event serialize on the event row lock, so the
// conflict checks below always run against a consistent snapshot of
// active holds and sold seats.
type HoldService struct {
    runner   TxRunner
    events   EventStore
    holds    HoldStore
    bookings BookingStore
    clk      clock.Clock
    ttl      time.Duration
    rt       Broadcaster
}

// NewHoldService constructs a HoldService.  ttl is the lifetime of a
// newly placed hold; rt may be nil when realtime updates are disabled.
func NewHoldService(runner TxRunner, events EventStore, holds HoldStore, bookings BookingStore, clk clock.Clock, ttl time.Duration, rt Broadcaster) *HoldService {
    return &HoldService{runner: runner, events: events, holds: holds, bookings: bookings, clk: clk, ttl: ttl, rt: rt}
}

// PlaceHold claims the requested seats for the holder until the
// returned expiry.  The whole request succeeds or fails as one unit:
// if any seat is invalid, sold, or actively held by someone else, no
// hold is placed.  Seats already held by the same holder are refreshed
// to the new expiry rather than rejected.
func (s *HoldService) PlaceHold(ctx context.Context, eventID, holderID uint64, seats []model.SeatRef) (time.Time, error) {
    if len(seats) == 0 {
        return time.Time{}, repository.ErrMissingField
    }
    seen := make(map[string]bool, len(seats))
    for _, seat := range seats {
        if seen[seat.Key()] {
            return time.Time{}, repository.ErrConflict
        }
        seen[seat.Key()] = true
    }

    now := s.clk.Now()
    expiresAt := now.Add(s.ttl)
    err := s.runner.WithTx(ctx, func(ctx context.Context) error {
        ev, err := s.events.GetForUpdateTx(ctx, eventID)
        if err != nil {
            return err
        }
        if !ev.Bookable() {
            return repository.ErrNotBookable
        }
        for _, seat := range seats {
            zone := ev.ZoneByID(seat.ZoneID)
            if zone == nil || !zone.Contains(seat) {
                return repository.ErrInvalidSeat
            }
        }
        if err := s.holds.ExpireTx(ctx, eventID, now); err != nil {
            return err
        }
        sold, err := s.bookings.SoldSeatsTx(ctx, eventID)
        if err != nil {
            return err
        }
        occupied := make(map[string]bool, len(sold))
        for _, seat := range sold {
            occupied[seat.Key()] = true
        }
        active, err := s.holds.ActiveForEventTx(ctx, eventID)
        if err != nil {
            return err
        }
        heldBy := make(map[string]uint64, len(active))
        for _, h := range active {
            heldBy[h.Seat.Key()] = h.HolderID
        }
        var refresh []model.SeatRef
        for _, seat := range seats {
            if occupied[seat.Key()] {
                return repository.ErrConflict
            }
            if owner, held := heldBy[seat.Key()]; held {
                if owner != holderID {
                    return repository.ErrConflict
                }
                refresh = append(refresh, seat)
            }
        }
        if err := s.holds.DeleteForHolderTx(ctx, eventID, holderID, refresh); err != nil {
            return err
        }
        return s.holds.CreateMultipleTx(ctx, eventID, holderID, seats, expiresAt)
    })
    if err != nil {
        return time.Time{}, err
    }
    monitoring.HoldsPlaced.Add(float64(len(seats)))
    s.broadcast(eventID, seats, "held")
    return expiresAt, nil
}

// ReleaseHold drops the holder's holds on the given seats.  Seats not
// held by the holder are ignored, so release after expiry is a no-op
// rather than an error.
func (s *HoldService) ReleaseHold(ctx context.Context, eventID, holderID uint64, seats []model.SeatRef) error {
    if len(seats) == 0 {
        return repository.ErrMissingField
    }
    err := s.runner.WithTx(ctx, func(ctx context.Context) error {
        if _, err := s.events.GetForUpdateTx(ctx, eventID); err != nil {
            return err
        }
        return s.holds.DeleteForHolderTx(ctx, eventID, holderID, seats)
    })
    if err != nil {
        return err
    }
    s.broadcast(eventID, seats, "free")
    return nil
}

func (s *HoldService) broadcast(eventID uint64, seats []model.SeatRef, status string) {
    if s.rt == nil {
        return
    }
    defer func() {
        if r := recover(); r != nil {
            log.Printf("realtime broadcast panic: %v", r)
        }
    }()
    s.rt.SeatStatusChanged(eventID, seats, status)
}
