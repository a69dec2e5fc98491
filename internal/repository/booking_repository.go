package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"
    "time"

    "github.com/shopspring/decimal"

    "github.com/stagepass/event-ticketing/internal/model"
)

// BookingRepo provides data access to the bookings and tickets tables.
// A booking row exclusively owns its ticket rows; both are written in
// the same transaction as the inventory increments they correspond to.
// Bookings are never deleted, only status-changed, so the tables double
// as the audit trail.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the provided database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// CreateTx inserts the booking row and all of its ticket rows, and
// populates the generated IDs on the provided model.  A duplicate
// ticket number reports ErrConflict.
func (r *BookingRepo) CreateTx(ctx context.Context, b *model.Booking) error {
    const q = `INSERT INTO bookings (event_id, buyer_id, status, total_amount, currency, contact_name, contact_email)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
    res, err := exec(ctx, r.db).ExecContext(ctx, q,
        b.EventID, b.BuyerID, string(b.Status), b.TotalAmount, b.Currency, b.ContactName, b.ContactEmail)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    b.ID = uint64(id)
    if len(b.Tickets) == 0 {
        return nil
    }

    var sb strings.Builder
    sb.WriteString(`INSERT INTO tickets (booking_id, tier_id, tier_name, zone_id, seat_row, seat_col, price, ticket_number) VALUES `)
    args := make([]any, 0, len(b.Tickets)*8)
    for i := range b.Tickets {
        t := &b.Tickets[i]
        t.BookingID = b.ID
        if i > 0 {
            sb.WriteString(", ")
        }
        sb.WriteString("(?, ?, ?, ?, ?, ?, ?, ?)")
        var zoneID, row, col any
        if t.Seat != nil {
            zoneID, row, col = t.Seat.ZoneID, t.Seat.Row, t.Seat.Col
        }
        args = append(args, t.BookingID, t.TierID, t.TierName, zoneID, row, col, t.Price, t.TicketNumber)
    }
    if _, err := exec(ctx, r.db).ExecContext(ctx, sb.String(), args...); err != nil {
        if strings.Contains(err.Error(), "1062") {
            return ErrConflict
        }
        return err
    }
    return nil
}

const bookingColumns = `id, event_id, buyer_id, status, total_amount, currency, contact_name, contact_email,
    payment_id, payment_method, payment_status, payment_amount, payment_currency, receipt_url,
    refund_amount, refund_reason, refunded_at,
    cancel_reason, dispute_reason, resolved_by, resolved_at, admin_feedback,
    created_at, updated_at`

type rowScanner interface {
    Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*model.Booking, error) {
    var b model.Booking
    var status string
    var payID, payMethod, payStatus, payCurrency, receiptURL sql.NullString
    var payAmount, refAmount sql.NullString
    var refReason, cancelReason, disputeReason, adminFeedback sql.NullString
    var refundedAt, resolvedAt sql.NullTime
    var resolvedBy sql.NullInt64
    err := row.Scan(&b.ID, &b.EventID, &b.BuyerID, &status, &b.TotalAmount, &b.Currency,
        &b.ContactName, &b.ContactEmail,
        &payID, &payMethod, &payStatus, &payAmount, &payCurrency, &receiptURL,
        &refAmount, &refReason, &refundedAt,
        &cancelReason, &disputeReason, &resolvedBy, &resolvedAt, &adminFeedback,
        &b.CreatedAt, &b.UpdatedAt)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrBookingNotFound
        }
        return nil, err
    }
    b.Status = model.BookingStatus(status)
    b.Payment.PaymentID = payID.String
    b.Payment.Method = payMethod.String
    b.Payment.Status = payStatus.String
    b.Payment.Currency = payCurrency.String
    b.Payment.ReceiptURL = receiptURL.String
    if payAmount.Valid {
        if b.Payment.Amount, err = decimal.NewFromString(payAmount.String); err != nil {
            return nil, err
        }
    }
    if refAmount.Valid {
        if b.Refund.Amount, err = decimal.NewFromString(refAmount.String); err != nil {
            return nil, err
        }
    }
    b.Refund.Reason = refReason.String
    if refundedAt.Valid {
        t := refundedAt.Time
        b.Refund.RefundedAt = &t
    }
    b.CancelReason = cancelReason.String
    b.DisputeReason = disputeReason.String
    if resolvedBy.Valid {
        id := uint64(resolvedBy.Int64)
        b.ResolvedBy = &id
    }
    if resolvedAt.Valid {
        t := resolvedAt.Time
        b.ResolvedAt = &t
    }
    b.AdminFeedback = adminFeedback.String
    return &b, nil
}

// GetByID loads a booking with its tickets.  Returns ErrBookingNotFound
// when no row matches.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
    const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
    b, err := scanBooking(exec(ctx, r.db).QueryRowContext(ctx, q, id))
    if err != nil {
        return nil, err
    }
    if err := r.loadTickets(ctx, b); err != nil {
        return nil, err
    }
    return b, nil
}

// GetForUpdateTx loads a booking with its tickets while holding a row
// lock on the booking.  Must be called inside a transaction; the lock
// serializes status changes on the booking.
func (r *BookingRepo) GetForUpdateTx(ctx context.Context, id uint64) (*model.Booking, error) {
    const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ? FOR UPDATE`
    b, err := scanBooking(exec(ctx, r.db).QueryRowContext(ctx, q, id))
    if err != nil {
        return nil, err
    }
    if err := r.loadTickets(ctx, b); err != nil {
        return nil, err
    }
    return b, nil
}

const ticketColumns = `id, booking_id, tier_id, tier_name, zone_id, seat_row, seat_col, price, ticket_number, is_scanned, scanned_at, scanned_by`

func scanTicket(row rowScanner) (*model.Ticket, error) {
    var t model.Ticket
    var zoneID sql.NullInt64
    var seatRow, seatCol sql.NullInt32
    var scannedAt sql.NullTime
    var scannedBy sql.NullInt64
    err := row.Scan(&t.ID, &t.BookingID, &t.TierID, &t.TierName,
        &zoneID, &seatRow, &seatCol, &t.Price, &t.TicketNumber,
        &t.IsScanned, &scannedAt, &scannedBy)
    if err != nil {
        return nil, err
    }
    if zoneID.Valid {
        t.Seat = &model.SeatRef{
            ZoneID: uint64(zoneID.Int64),
            Row:    uint32(seatRow.Int32),
            Col:    uint32(seatCol.Int32),
        }
    }
    if scannedAt.Valid {
        at := scannedAt.Time
        t.ScannedAt = &at
    }
    if scannedBy.Valid {
        by := uint64(scannedBy.Int64)
        t.ScannedBy = &by
    }
    return &t, nil
}

func (r *BookingRepo) loadTickets(ctx context.Context, b *model.Booking) error {
    const q = `SELECT ` + ticketColumns + ` FROM tickets WHERE booking_id = ? ORDER BY id`
    rows, err := exec(ctx, r.db).QueryContext(ctx, q, b.ID)
    if err != nil {
        return err
    }
    defer rows.Close()
    b.Tickets = b.Tickets[:0]
    for rows.Next() {
        t, err := scanTicket(rows)
        if err != nil {
            return err
        }
        b.Tickets = append(b.Tickets, *t)
    }
    return rows.Err()
}

// UpdateStatusTx sets the booking status.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, id uint64, status model.BookingStatus) error {
    const q = `UPDATE bookings SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
    _, err := exec(ctx, r.db).ExecContext(ctx, q, string(status), id)
    return err
}

// SetPaymentTx records the payment sub-record alongside the transition
// to confirmed.
func (r *BookingRepo) SetPaymentTx(ctx context.Context, id uint64, p model.PaymentInfo) error {
    const q = `UPDATE bookings
               SET status = ?, payment_id = ?, payment_method = ?, payment_status = ?,
                   payment_amount = ?, payment_currency = ?, receipt_url = ?,
                   updated_at = UTC_TIMESTAMP()
               WHERE id = ?`
    _, err := exec(ctx, r.db).ExecContext(ctx, q, string(model.BookingConfirmed),
        p.PaymentID, p.Method, p.Status, p.Amount, p.Currency, p.ReceiptURL, id)
    return err
}

// SetRefundTx records the refund sub-record alongside the transition to
// the given refund status (refunded or partial_refund).
func (r *BookingRepo) SetRefundTx(ctx context.Context, id uint64, status model.BookingStatus, ref model.RefundInfo) error {
    const q = `UPDATE bookings
               SET status = ?, refund_amount = ?, refund_reason = ?, refunded_at = ?,
                   updated_at = UTC_TIMESTAMP()
               WHERE id = ?`
    _, err := exec(ctx, r.db).ExecContext(ctx, q, string(status),
        ref.Amount, ref.Reason, ref.RefundedAt, id)
    return err
}

// SetResolutionTx records who resolved a dispute, when, and the
// feedback note.  The status itself is written by SetRefundTx or left
// unchanged on a denial.
func (r *BookingRepo) SetResolutionTx(ctx context.Context, id, adminID uint64, at time.Time, feedback string) error {
    const q = `UPDATE bookings
               SET resolved_by = ?, resolved_at = ?, admin_feedback = ?, updated_at = UTC_TIMESTAMP()
               WHERE id = ?`
    _, err := exec(ctx, r.db).ExecContext(ctx, q, adminID, at.UTC(), feedback, id)
    return err
}

// SetDisputeTx records a buyer's dispute reason on a confirmed booking.
func (r *BookingRepo) SetDisputeTx(ctx context.Context, id uint64, reason string) error {
    const q = `UPDATE bookings SET dispute_reason = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
    _, err := exec(ctx, r.db).ExecContext(ctx, q, reason, id)
    return err
}

// SetCancelledTx transitions the booking to cancelled and records the
// caller's reason.
func (r *BookingRepo) SetCancelledTx(ctx context.Context, id uint64, reason string) error {
    const q = `UPDATE bookings
               SET status = ?, cancel_reason = ?, updated_at = UTC_TIMESTAMP()
               WHERE id = ?`
    _, err := exec(ctx, r.db).ExecContext(ctx, q, string(model.BookingCancelled), reason, id)
    return err
}

// SoldSeatsTx returns the seat references of all seat-assigned tickets
// belonging to live (non-cancelled, non-refunded) bookings of the
// event.  Hold placement and purchase check candidate seats against
// this set under the event lock.
func (r *BookingRepo) SoldSeatsTx(ctx context.Context, eventID uint64) ([]model.SeatRef, error) {
    const q = `SELECT t.zone_id, t.seat_row, t.seat_col
               FROM tickets t
               JOIN bookings b ON b.id = t.booking_id
               WHERE b.event_id = ? AND b.status NOT IN (?, ?) AND t.zone_id IS NOT NULL`
    rows, err := exec(ctx, r.db).QueryContext(ctx, q, eventID,
        string(model.BookingCancelled), string(model.BookingRefunded))
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    seats := make([]model.SeatRef, 0)
    for rows.Next() {
        var s model.SeatRef
        if err := rows.Scan(&s.ZoneID, &s.Row, &s.Col); err != nil {
            return nil, err
        }
        seats = append(seats, s)
    }
    return seats, rows.Err()
}

// FindTicketForScanTx looks up a ticket by number within the event,
// restricted to bookings whose tickets are valid for entry (confirmed
// or partial_refund), and locks the ticket row.  Tickets of pending,
// cancelled and refunded bookings report ErrTicketNotFound, as does an
// unknown number.  The booking is returned alongside so the scan
// response can show attendee details.
func (r *BookingRepo) FindTicketForScanTx(ctx context.Context, eventID uint64, ticketNumber string) (*model.Ticket, *model.Booking, error) {
    const q = `SELECT t.id FROM tickets t
               JOIN bookings b ON b.id = t.booking_id
               WHERE b.event_id = ? AND t.ticket_number = ? AND b.status IN (?, ?)
               FOR UPDATE`
    var ticketID uint64
    err := exec(ctx, r.db).QueryRowContext(ctx, q, eventID, ticketNumber,
        string(model.BookingConfirmed), string(model.BookingPartialRefund)).Scan(&ticketID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, nil, ErrTicketNotFound
        }
        return nil, nil, err
    }
    const tq = `SELECT ` + ticketColumns + ` FROM tickets WHERE id = ?`
    t, err := scanTicket(exec(ctx, r.db).QueryRowContext(ctx, tq, ticketID))
    if err != nil {
        return nil, nil, err
    }
    b, err := r.GetByID(ctx, t.BookingID)
    if err != nil {
        return nil, nil, err
    }
    return t, b, nil
}

// MarkScannedTx records the first successful scan of a ticket.
func (r *BookingRepo) MarkScannedTx(ctx context.Context, ticketID, scannerID uint64, at time.Time) error {
    const q = `UPDATE tickets SET is_scanned = 1, scanned_at = ?, scanned_by = ? WHERE id = ?`
    _, err := exec(ctx, r.db).ExecContext(ctx, q, at.UTC(), scannerID, ticketID)
    return err
}

// ListByBuyer returns the buyer's bookings, newest first, with tickets
// loaded.
func (r *BookingRepo) ListByBuyer(ctx context.Context, buyerID uint64) ([]model.Booking, error) {
    const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE buyer_id = ? ORDER BY created_at DESC`
    return r.list(ctx, q, buyerID)
}

// ListByEvent returns all bookings of an event, newest first, with
// tickets loaded.  Used by the organizer's sales view.
func (r *BookingRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Booking, error) {
    const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE event_id = ? ORDER BY created_at DESC`
    return r.list(ctx, q, eventID)
}

func (r *BookingRepo) list(ctx context.Context, q string, arg any) ([]model.Booking, error) {
    rows, err := exec(ctx, r.db).QueryContext(ctx, q, arg)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    bookings := make([]model.Booking, 0)
    for rows.Next() {
        b, err := scanBooking(rows)
        if err != nil {
            return nil, err
        }
        bookings = append(bookings, *b)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    for i := range bookings {
        if err := r.loadTickets(ctx, &bookings[i]); err != nil {
            return nil, err
        }
    }
    return bookings, nil
}
