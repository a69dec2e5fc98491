package handler

import (
    "time"

    "github.com/stagepass/event-ticketing/internal/model"
)

// Response shapes returned by the API.  The model structs stay free of
// json tags; these views decide what each surface exposes.

type tierView struct {
    ID        uint64  `json:"id"`
    Name      string  `json:"name"`
    Price     string  `json:"price"`
    Capacity  int     `json:"capacity"`
    Remaining int     `json:"remaining"`
    ZoneID    *uint64 `json:"zone_id,omitempty"`
}

type zoneView struct {
    ID   uint64 `json:"id"`
    Name string `json:"name"`
    Rows uint32 `json:"rows"`
    Cols uint32 `json:"cols"`
}

type eventView struct {
    ID       uint64     `json:"id"`
    Name     string     `json:"name"`
    Venue    string     `json:"venue"`
    StartsAt time.Time  `json:"starts_at"`
    Currency string     `json:"currency"`
    Status   string     `json:"status"`
    Tiers    []tierView `json:"tiers"`
    Zones    []zoneView `json:"zones,omitempty"`
}

func newEventView(ev *model.Event) eventView {
    v := eventView{
        ID:       ev.ID,
        Name:     ev.Name,
        Venue:    ev.Venue,
        StartsAt: ev.StartsAt,
        Currency: ev.Currency,
        Status:   string(ev.Status),
        Tiers:    make([]tierView, 0, len(ev.Tiers)),
    }
    for i := range ev.Tiers {
        t := &ev.Tiers[i]
        v.Tiers = append(v.Tiers, tierView{
            ID:        t.ID,
            Name:      t.Name,
            Price:     t.UnitPrice.StringFixed(2),
            Capacity:  t.Capacity,
            Remaining: t.Remaining(),
            ZoneID:    t.ZoneID,
        })
    }
    for i := range ev.Zones {
        z := &ev.Zones[i]
        v.Zones = append(v.Zones, zoneView{ID: z.ID, Name: z.Name, Rows: z.RowCount, Cols: z.ColCount})
    }
    return v
}

func newEventViews(events []model.Event) []eventView {
    out := make([]eventView, 0, len(events))
    for i := range events {
        out = append(out, newEventView(&events[i]))
    }
    return out
}

type ticketView struct {
    ID           uint64         `json:"id"`
    TierName     string         `json:"tier_name"`
    Seat         *model.SeatRef `json:"seat,omitempty"`
    Price        string         `json:"price"`
    TicketNumber string         `json:"ticket_number"`
    IsScanned    bool           `json:"is_scanned"`
    ScannedAt    *time.Time     `json:"scanned_at,omitempty"`
}

type paymentView struct {
    PaymentID  string `json:"payment_id"`
    Method     string `json:"method"`
    Status     string `json:"status"`
    Amount     string `json:"amount"`
    Currency   string `json:"currency"`
    ReceiptURL string `json:"receipt_url,omitempty"`
}

type refundView struct {
    Amount     string     `json:"amount"`
    Reason     string     `json:"reason"`
    RefundedAt *time.Time `json:"refunded_at,omitempty"`
}

type bookingView struct {
    ID            uint64       `json:"id"`
    EventID       uint64       `json:"event_id"`
    Status        string       `json:"status"`
    TotalAmount   string       `json:"total_amount"`
    Currency      string       `json:"currency"`
    ContactName   string       `json:"contact_name"`
    ContactEmail  string       `json:"contact_email"`
    Tickets       []ticketView `json:"tickets"`
    Payment       *paymentView `json:"payment,omitempty"`
    Refund        *refundView  `json:"refund,omitempty"`
    CancelReason  string       `json:"cancel_reason,omitempty"`
    DisputeReason string       `json:"dispute_reason,omitempty"`
    AdminFeedback string       `json:"admin_feedback,omitempty"`
    CreatedAt     time.Time    `json:"created_at"`
}

func newBookingView(b *model.Booking) bookingView {
    v := bookingView{
        ID:            b.ID,
        EventID:       b.EventID,
        Status:        string(b.Status),
        TotalAmount:   b.TotalAmount.StringFixed(2),
        Currency:      b.Currency,
        ContactName:   b.ContactName,
        ContactEmail:  b.ContactEmail,
        Tickets:       make([]ticketView, 0, len(b.Tickets)),
        CancelReason:  b.CancelReason,
        DisputeReason: b.DisputeReason,
        AdminFeedback: b.AdminFeedback,
        CreatedAt:     b.CreatedAt,
    }
    for i := range b.Tickets {
        t := &b.Tickets[i]
        v.Tickets = append(v.Tickets, ticketView{
            ID:           t.ID,
            TierName:     t.TierName,
            Seat:         t.Seat,
            Price:        t.Price.StringFixed(2),
            TicketNumber: t.TicketNumber,
            IsScanned:    t.IsScanned,
            ScannedAt:    t.ScannedAt,
        })
    }
    if b.Payment.PaymentID != "" {
        v.Payment = &paymentView{
            PaymentID:  b.Payment.PaymentID,
            Method:     b.Payment.Method,
            Status:     b.Payment.Status,
            Amount:     b.Payment.Amount.StringFixed(2),
            Currency:   b.Payment.Currency,
            ReceiptURL: b.Payment.ReceiptURL,
        }
    }
    if b.Refund.RefundedAt != nil {
        v.Refund = &refundView{
            Amount:     b.Refund.Amount.StringFixed(2),
            Reason:     b.Refund.Reason,
            RefundedAt: b.Refund.RefundedAt,
        }
    }
    return v
}

func newBookingViews(bookings []model.Booking) []bookingView {
    out := make([]bookingView, 0, len(bookings))
    for i := range bookings {
        out = append(out, newBookingView(&bookings[i]))
    }
    return out
}
