package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/stagepass/event-ticketing/internal/model"
)

// SeatHoldRepo provides data access to the seat_holds table.  Holds
// are short-lived claims on seats; expiry is lazy.  Every transaction
// that reads holds calls ExpireTx first, so expired rows are purged
// before any decision is made on them and no background sweeper is
// needed.
type SeatHoldRepo struct {
    db *sql.DB
}

// NewSeatHoldRepo returns a new SeatHoldRepo bound to the provided database.
func NewSeatHoldRepo(db *sql.DB) *SeatHoldRepo { return &SeatHoldRepo{db: db} }

// ExpireTx deletes all holds on the event whose expiry is at or before
// now.  Must run inside the event's locked transaction before holds
// are read.
func (r *SeatHoldRepo) ExpireTx(ctx context.Context, eventID uint64, now time.Time) error {
    const q = `DELETE FROM seat_holds WHERE event_id = ? AND expires_at <= ?`
    _, err := exec(ctx, r.db).ExecContext(ctx, q, eventID, now.UTC())
    return err
}

// ActiveForEventTx returns all holds currently recorded for the event.
// Callers run ExpireTx first, so every row returned is active.
func (r *SeatHoldRepo) ActiveForEventTx(ctx context.Context, eventID uint64) ([]model.SeatHold, error) {
    const q = `SELECT id, event_id, zone_id, seat_row, seat_col, holder_id, expires_at, created_at
               FROM seat_holds WHERE event_id = ?`
    rows, err := exec(ctx, r.db).QueryContext(ctx, q, eventID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    holds := make([]model.SeatHold, 0)
    for rows.Next() {
        var h model.SeatHold
        if err := rows.Scan(&h.ID, &h.EventID, &h.Seat.ZoneID, &h.Seat.Row, &h.Seat.Col,
            &h.HolderID, &h.ExpiresAt, &h.CreatedAt); err != nil {
            return nil, err
        }
        holds = append(holds, h)
    }
    return holds, rows.Err()
}

// CreateMultipleTx inserts one hold row per seat with a shared expiry
// in a single statement.
func (r *SeatHoldRepo) CreateMultipleTx(ctx context.Context, eventID, holderID uint64, seats []model.SeatRef, expiresAt time.Time) error {
    if len(seats) == 0 {
        return nil
    }
    var sb strings.Builder
    sb.WriteString(`INSERT INTO seat_holds (event_id, zone_id, seat_row, seat_col, holder_id, expires_at) VALUES `)
    args := make([]any, 0, len(seats)*6)
    for i, s := range seats {
        if i > 0 {
            sb.WriteString(", ")
        }
        sb.WriteString("(?, ?, ?, ?, ?, ?)")
        args = append(args, eventID, s.ZoneID, s.Row, s.Col, holderID, expiresAt.UTC())
    }
    _, err := exec(ctx, r.db).ExecContext(ctx, sb.String(), args...)
    return err
}

// DeleteForHolderTx removes the holder's holds on the given seats.
// Seats not held by the holder are skipped silently; release is
// idempotent.
func (r *SeatHoldRepo) DeleteForHolderTx(ctx context.Context, eventID, holderID uint64, seats []model.SeatRef) error {
    if len(seats) == 0 {
        return nil
    }
    var sb strings.Builder
    sb.WriteString(`DELETE FROM seat_holds WHERE event_id = ? AND holder_id = ? AND (`)
    args := []any{eventID, holderID}
    for i, s := range seats {
        if i > 0 {
            sb.WriteString(" OR ")
        }
        sb.WriteString("(zone_id = ? AND seat_row = ? AND seat_col = ?)")
        args = append(args, s.ZoneID, s.Row, s.Col)
    }
    sb.WriteString(")")
    _, err := exec(ctx, r.db).ExecContext(ctx, sb.String(), args...)
    return err
}
