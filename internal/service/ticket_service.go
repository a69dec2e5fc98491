package service

import (
    "context"
    "log"

    "github.com/stagepass/event-ticketing/internal/clock"
    "github.com/stagepass/event-ticketing/internal/model"
    "github.com/stagepass/event-ticketing/internal/monitoring"
    "github.com/stagepass/event-ticketing/internal/repository"
)

// TicketService covers the post-purchase lifecycle: payment
// confirmation, payment disputes and their resolution, and door
// scanning.  The external payment processor reports outcomes here; the
// core records them and never talks the gateway protocol itself.
type TicketService struct {
    runner   TxRunner
    events   EventStore
    bookings BookingStore
    clk      clock.Clock
    notifier Notifier
    seatmap  SeatMapInvalidator
    rt       Broadcaster
}

// NewTicketService constructs a TicketService.  notifier, seatmap and
// rt may be nil when the corresponding side channel is disabled.
func NewTicketService(runner TxRunner, events EventStore, bookings BookingStore, clk clock.Clock, notifier Notifier, seatmap SeatMapInvalidator, rt Broadcaster) *TicketService {
    return &TicketService{runner: runner, events: events, bookings: bookings, clk: clk, notifier: notifier, seatmap: seatmap, rt: rt}
}

// ConfirmPayment applies a successful payment outcome to a pending
// booking, moving it to confirmed and recording the payment
// sub-record.  Re-delivery of the same payment result is idempotent:
// a booking already confirmed with the same payment ID returns
// successfully without changing anything.  A notification is enqueued
// after the unit commits; queue failures are logged, never surfaced.
func (s *TicketService) ConfirmPayment(ctx context.Context, bookingID uint64, p model.PaymentInfo) (*model.Booking, error) {
    if p.PaymentID == "" {
        return nil, repository.ErrMissingField
    }
    var booking *model.Booking
    confirmed := false
    err := s.runner.WithTx(ctx, func(ctx context.Context) error {
        b, err := s.bookings.GetForUpdateTx(ctx, bookingID)
        if err != nil {
            return err
        }
        if b.Status == model.BookingConfirmed && b.Payment.PaymentID == p.PaymentID {
            booking = b
            return nil
        }
        if !b.CanTransition(model.BookingConfirmed) {
            return repository.ErrAlreadyFinal
        }
        if err := s.bookings.SetPaymentTx(ctx, b.ID, p); err != nil {
            return err
        }
        b.Status = model.BookingConfirmed
        b.Payment = p
        booking = b
        confirmed = true
        return nil
    })
    if err != nil {
        return nil, err
    }
    if confirmed {
        monitoring.PaymentsConfirmed.Inc()
        s.notifyConfirmed(ctx, booking)
    }
    return booking, nil
}

func (s *TicketService) notifyConfirmed(ctx context.Context, b *model.Booking) {
    if s.notifier == nil {
        return
    }
    eventName := ""
    if ev, err := s.events.GetByID(ctx, b.EventID); err == nil {
        eventName = ev.Name
    }
    n := BookingNotification{
        BookingID:    b.ID,
        EventID:      b.EventID,
        EventName:    eventName,
        ContactName:  b.ContactName,
        ContactEmail: b.ContactEmail,
        TicketCount:  len(b.Tickets),
        TotalAmount:  b.TotalAmount.StringFixed(2),
        Currency:     b.Currency,
    }
    if err := s.notifier.BookingConfirmed(ctx, n); err != nil {
        log.Printf("confirmation notification for booking %d not enqueued: %v", b.ID, err)
    }
}

// OpenDispute records a buyer's dispute reason on a confirmed booking
// so an admin can review it.
func (s *TicketService) OpenDispute(ctx context.Context, bookingID uint64, actor Actor, reason string) error {
    if reason == "" {
        return repository.ErrMissingField
    }
    return s.runner.WithTx(ctx, func(ctx context.Context) error {
        b, err := s.bookings.GetForUpdateTx(ctx, bookingID)
        if err != nil {
            return err
        }
        if b.BuyerID != actor.ID {
            return repository.ErrForbidden
        }
        if b.Status != model.BookingConfirmed && b.Status != model.BookingPartialRefund {
            return repository.ErrAlreadyFinal
        }
        return s.bookings.SetDisputeTx(ctx, b.ID, reason)
    })
}

// ResolveDispute applies an admin's resolution to a disputed booking.
// A full refund reverses the booking's inventory and frees its seats,
// a partial refund keeps the tickets issued and changes no inventory,
// and a denial records the note while the booking stays confirmed.
// Exactly one resolution is applied per call; a booking already in a
// terminal state reports ErrAlreadyFinal.
func (s *TicketService) ResolveDispute(ctx context.Context, bookingID uint64, admin Actor, action model.DisputeAction) (*model.Booking, error) {
    if !admin.Admin() {
        return nil, repository.ErrForbidden
    }
    now := s.clk.Now()
    var booking *model.Booking
    var freed []model.SeatRef
    var eventID uint64
    var actionLabel string
    err := s.runner.WithTx(ctx, func(ctx context.Context) error {
        b, err := s.bookings.GetForUpdateTx(ctx, bookingID)
        if err != nil {
            return err
        }
        eventID = b.EventID

        switch a := action.(type) {
        case model.RefundAction:
            actionLabel = "refund"
            if !b.CanTransition(model.BookingRefunded) {
                return repository.ErrAlreadyFinal
            }
            ev, err := s.events.GetForUpdateTx(ctx, b.EventID)
            if err != nil {
                return err
            }
            ref := model.RefundInfo{Amount: a.Amount, Reason: a.Reason, RefundedAt: &now}
            if err := s.bookings.SetRefundTx(ctx, b.ID, model.BookingRefunded, ref); err != nil {
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
            b.Status = model.BookingRefunded
            b.Refund = ref
            freed = b.SeatedTickets()
            if err := s.bookings.SetResolutionTx(ctx, b.ID, admin.ID, now, a.Reason); err != nil {
                return err
            }

        case model.PartialRefundAction:
            actionLabel = "partial_refund"
            if !b.CanTransition(model.BookingPartialRefund) {
                return repository.ErrAlreadyFinal
            }
            ref := model.RefundInfo{Amount: a.Amount, Reason: a.Reason, RefundedAt: &now}
            if err := s.bookings.SetRefundTx(ctx, b.ID, model.BookingPartialRefund, ref); err != nil {
                return err
            }
            b.Status = model.BookingPartialRefund
            b.Refund = ref
            if err := s.bookings.SetResolutionTx(ctx, b.ID, admin.ID, now, a.Reason); err != nil {
                return err
            }

        case model.DenyAction:
            actionLabel = "deny"
            if b.Terminal() {
                return repository.ErrAlreadyFinal
            }
            if err := s.bookings.SetResolutionTx(ctx, b.ID, admin.ID, now, a.Note); err != nil {
                return err
            }
            b.AdminFeedback = a.Note

        default:
            return repository.ErrMissingField
        }
        b.ResolvedBy = &admin.ID
        b.ResolvedAt = &now
        booking = b
        return nil
    })
    if err != nil {
        return nil, err
    }
    monitoring.DisputesResolved.WithLabelValues(actionLabel).Inc()
    if len(freed) > 0 {
        if s.seatmap != nil {
            if err := s.seatmap.Invalidate(ctx, eventID); err != nil {
                log.Printf("seat map invalidation failed for event %d: %v", eventID, err)
            }
        }
        if s.rt != nil {
            s.rt.SeatStatusChanged(eventID, freed, "free")
        }
    }
    return booking, nil
}

// ScanResult is the outcome of a door scan.  AlreadyScanned
// distinguishes a duplicate presentation of a genuine ticket from an
// invalid one; the staff decides what to do with a duplicate, so it is
// reported as data rather than as an error.
type ScanResult struct {
    Ticket         *model.Ticket
    AttendeeName   string
    AttendeeEmail  string
    AlreadyScanned bool
}

// ScanTicket validates a ticket number at the door of an event and
// marks it used.  Only the event's organizer or an admin may scan.
// The first scan records the scanner and timestamp; every later scan
// of the same ticket returns AlreadyScanned with the original scan
// details unchanged.
func (s *TicketService) ScanTicket(ctx context.Context, eventID uint64, scanner Actor, ticketNumber string) (*ScanResult, error) {
    if ticketNumber == "" {
        return nil, repository.ErrMissingField
    }
    ev, err := s.events.GetByID(ctx, eventID)
    if err != nil {
        return nil, err
    }
    if ev.OrganizerID != scanner.ID && !scanner.Admin() {
        return nil, repository.ErrForbidden
    }
    now := s.clk.Now()
    var result *ScanResult
    err = s.runner.WithTx(ctx, func(ctx context.Context) error {
        t, b, err := s.bookings.FindTicketForScanTx(ctx, eventID, ticketNumber)
        if err != nil {
            return err
        }
        result = &ScanResult{
            Ticket:        t,
            AttendeeName:  b.ContactName,
            AttendeeEmail: b.ContactEmail,
        }
        if t.IsScanned {
            result.AlreadyScanned = true
            return nil
        }
        if err := s.bookings.MarkScannedTx(ctx, t.ID, scanner.ID, now); err != nil {
            return err
        }
        t.IsScanned = true
        t.ScannedAt = &now
        scannerID := scanner.ID
        t.ScannedBy = &scannerID
        return nil
    })
    if err != nil {
        monitoring.TicketsScanned.WithLabelValues("rejected").Inc()
        return nil, err
    }
    if result.AlreadyScanned {
        monitoring.TicketsScanned.WithLabelValues("duplicate").Inc()
    } else {
        monitoring.TicketsScanned.WithLabelValues("admitted").Inc()
    }
    return result, nil
}
