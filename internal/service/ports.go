// Package service implements the business rules of the ticketing core:
// seat holds, the purchase transaction, the booking state machine,
// payment confirmation, dispute resolution and door scanning.  Every
// mutation runs as one atomic unit via TxRunner; the stores joined to
// that transaction through the context guarantee all-or-nothing
// effects.  Side channels (realtime broadcast, notification queue,
// cache invalidation) are fired only after the unit commits.
package service

import (
    "context"
    "time"

    "github.com/stagepass/event-ticketing/internal/model"
)

// TxRunner executes a function inside a database transaction.  Nested
// calls join the surrounding transaction.
type TxRunner interface {
    WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventStore is the persistence port for the event inventory
// aggregate.  The *Tx methods expect a transaction in the context.
type EventStore interface {
    CreateTx(ctx context.Context, ev *model.Event) error
    CreateZoneTx(ctx context.Context, z *model.Zone) error
    CreateTierTx(ctx context.Context, t *model.TicketTier) error
    GetByID(ctx context.Context, id uint64) (*model.Event, error)
    GetForUpdateTx(ctx context.Context, id uint64) (*model.Event, error)
    ListByStatus(ctx context.Context, status model.EventStatus) ([]model.Event, error)
    ListByOrganizer(ctx context.Context, organizerID uint64) ([]model.Event, error)
    UpdateStatusTx(ctx context.Context, id uint64, status model.EventStatus) error
    AddTierSoldTx(ctx context.Context, tierID uint64, delta int) error
}

// HoldStore is the persistence port for seat holds.
type HoldStore interface {
    ExpireTx(ctx context.Context, eventID uint64, now time.Time) error
    ActiveForEventTx(ctx context.Context, eventID uint64) ([]model.SeatHold, error)
    CreateMultipleTx(ctx context.Context, eventID, holderID uint64, seats []model.SeatRef, expiresAt time.Time) error
    DeleteForHolderTx(ctx context.Context, eventID, holderID uint64, seats []model.SeatRef) error
}

// BookingStore is the persistence port for bookings and tickets.
type BookingStore interface {
    CreateTx(ctx context.Context, b *model.Booking) error
    GetByID(ctx context.Context, id uint64) (*model.Booking, error)
    GetForUpdateTx(ctx context.Context, id uint64) (*model.Booking, error)
    UpdateStatusTx(ctx context.Context, id uint64, status model.BookingStatus) error
    SetPaymentTx(ctx context.Context, id uint64, p model.PaymentInfo) error
    SetRefundTx(ctx context.Context, id uint64, status model.BookingStatus, ref model.RefundInfo) error
    SetResolutionTx(ctx context.Context, id, adminID uint64, at time.Time, feedback string) error
    SetDisputeTx(ctx context.Context, id uint64, reason string) error
    SetCancelledTx(ctx context.Context, id uint64, reason string) error
    SoldSeatsTx(ctx context.Context, eventID uint64) ([]model.SeatRef, error)
    FindTicketForScanTx(ctx context.Context, eventID uint64, ticketNumber string) (*model.Ticket, *model.Booking, error)
    MarkScannedTx(ctx context.Context, ticketID, scannerID uint64, at time.Time) error
    ListByBuyer(ctx context.Context, buyerID uint64) ([]model.Booking, error)
    ListByEvent(ctx context.Context, eventID uint64) ([]model.Booking, error)
}

// Broadcaster pushes seat status changes to live seat-map viewers.
// Implementations must tolerate being called after commit and failures
// must not affect the caller; delivery is best effort.
type Broadcaster interface {
    SeatStatusChanged(eventID uint64, seats []model.SeatRef, status string)
}

// Notifier enqueues a confirmation notification for asynchronous
// delivery after a booking is confirmed.
type Notifier interface {
    BookingConfirmed(ctx context.Context, n BookingNotification) error
}

// BookingNotification is the payload handed to the Notifier when a
// booking reaches confirmed.
type BookingNotification struct {
    BookingID    uint64 `json:"booking_id"`
    EventID      uint64 `json:"event_id"`
    EventName    string `json:"event_name"`
    ContactName  string `json:"contact_name"`
    ContactEmail string `json:"contact_email"`
    TicketCount  int    `json:"ticket_count"`
    TotalAmount  string `json:"total_amount"`
    Currency     string `json:"currency"`
}

// SeatMapInvalidator drops the cached seat map of an event after its
// occupancy changed.  Failures are logged and swallowed; the cache
// entry expires on its own TTL anyway.
type SeatMapInvalidator interface {
    Invalidate(ctx context.Context, eventID uint64) error
}

// Actor identifies the authenticated caller of a service operation.
type Actor struct {
    ID   uint64
    Role string
}

// Admin reports whether the actor carries the admin role.
func (a Actor) Admin() bool { return a.Role == model.RoleAdmin }
