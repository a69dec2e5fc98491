package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// BookingStatus enumerates the states of the booking state machine.
// The machine is monotonic: cancelled and refunded are terminal and no
// transition is defined out of them.
type BookingStatus string

const (
    BookingPending       BookingStatus = "pending"
    BookingConfirmed     BookingStatus = "confirmed"
    BookingCancelled     BookingStatus = "cancelled"
    BookingRefunded      BookingStatus = "refunded"
    BookingPartialRefund BookingStatus = "partial_refund"
)

// transitions encodes the allowed edges of the booking state machine.
// pending bookings may be confirmed (payment) or cancelled; confirmed
// bookings may be cancelled, fully refunded, or partially refunded.
// A partial refund keeps the tickets issued, so the booking may still
// be cancelled later while the event has not started.
var transitions = map[BookingStatus]map[BookingStatus]bool{
    BookingPending: {
        BookingConfirmed: true,
        BookingCancelled: true,
    },
    BookingConfirmed: {
        BookingCancelled:     true,
        BookingRefunded:      true,
        BookingPartialRefund: true,
    },
    BookingPartialRefund: {
        BookingCancelled: true,
    },
}

// CanTransition reports whether the booking may move to the given
// status from its current one.
func (b *Booking) CanTransition(to BookingStatus) bool {
    return transitions[b.Status][to]
}

// Terminal reports whether the booking has reached a final state from
// which no further status change is permitted.
func (b *Booking) Terminal() bool {
    return b.Status == BookingCancelled || b.Status == BookingRefunded
}

// PaymentInfo is the payment sub-record of a booking.  It is populated
// when the external payment processor reports a terminal outcome; the
// core never talks the gateway protocol itself.
type PaymentInfo struct {
    PaymentID  string          // bookings.payment_id
    Method     string          // bookings.payment_method
    Status     string          // bookings.payment_status
    Amount     decimal.Decimal // bookings.payment_amount
    Currency   string          // bookings.payment_currency
    ReceiptURL string          // bookings.receipt_url
}

// RefundInfo is populated only on refunded or partial_refund bookings.
type RefundInfo struct {
    Amount     decimal.Decimal // bookings.refund_amount
    Reason     string          // bookings.refund_reason
    RefundedAt *time.Time      // bookings.refunded_at
}

// Booking is the durable record of a purchase attempt and its
// resulting tickets.  It references its event and buyer by ID and
// exclusively owns its ticket line items.  Bookings are never
// deleted; cancellations and refunds only change status, keeping the
// record as an audit trail.
type Booking struct {
    ID            uint64          // bookings.id
    EventID       uint64          // bookings.event_id
    BuyerID       uint64          // bookings.buyer_id
    Status        BookingStatus   // bookings.status
    TotalAmount   decimal.Decimal // bookings.total_amount
    Currency      string          // bookings.currency
    ContactName   string          // bookings.contact_name
    ContactEmail  string          // bookings.contact_email
    Tickets       []Ticket        // tickets rows owned by this booking
    Payment       PaymentInfo     // payment sub-record
    Refund        RefundInfo      // refund sub-record
    CancelReason  string          // bookings.cancel_reason
    DisputeReason string          // bookings.dispute_reason
    ResolvedBy    *uint64         // bookings.resolved_by (admin who resolved a dispute)
    ResolvedAt    *time.Time      // bookings.resolved_at
    AdminFeedback string          // bookings.admin_feedback
    CreatedAt     time.Time       // bookings.created_at
    UpdatedAt     time.Time       // bookings.updated_at
}

// TicketsPerTier returns the number of tickets in the booking grouped
// by tier ID.  Cancellation and refund use this to reverse the exact
// inventory increments that purchase applied; matching on the
// immutable tier ID keeps the accounting correct across tier renames.
func (b *Booking) TicketsPerTier() map[uint64]int {
    counts := make(map[uint64]int, len(b.Tickets))
    for i := range b.Tickets {
        counts[b.Tickets[i].TierID]++
    }
    return counts
}

// SeatedTickets returns the seat references of all seat-assigned
// tickets in the booking.
func (b *Booking) SeatedTickets() []SeatRef {
    var seats []SeatRef
    for i := range b.Tickets {
        if b.Tickets[i].Seat != nil {
            seats = append(seats, *b.Tickets[i].Seat)
        }
    }
    return seats
}

// Ticket is one line item within a booking, individually scannable and
// optionally seat-addressable.  TicketNumber is globally unique and is
// the payload encoded into the QR code by the rendering collaborator.
type Ticket struct {
    ID           uint64          // tickets.id
    BookingID    uint64          // tickets.booking_id
    TierID       uint64          // tickets.tier_id
    TierName     string          // tickets.tier_name (denormalized display name at purchase time)
    Seat         *SeatRef        // tickets.zone_id / seat_row / seat_col (nil for general admission)
    Price        decimal.Decimal // tickets.price
    TicketNumber string          // tickets.ticket_number (globally unique)
    IsScanned    bool            // tickets.is_scanned
    ScannedAt    *time.Time      // tickets.scanned_at
    ScannedBy    *uint64         // tickets.scanned_by
}

// DisputeAction is the tagged variant describing how an admin resolves
// a payment dispute on a confirmed booking.  Exactly one of the three
// variants is dispatched per resolution.
type DisputeAction interface {
    disputeAction()
}

// RefundAction fully refunds the booking and returns its inventory.
type RefundAction struct {
    Amount decimal.Decimal
    Reason string
}

// PartialRefundAction refunds part of the amount; tickets stay issued
// and inventory is not reversed.
type PartialRefundAction struct {
    Amount decimal.Decimal
    Reason string
}

// DenyAction rejects the dispute; the booking stays confirmed and only
// a resolution note is recorded.
type DenyAction struct {
    Note string
}

func (RefundAction) disputeAction()        {}
func (PartialRefundAction) disputeAction() {}
func (DenyAction) disputeAction()          {}
