package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"

    "github.com/stagepass/event-ticketing/internal/model"
)

// EventRepo provides data access to the events, ticket_tiers and zones
// tables.  An event row together with its tier and zone rows forms the
// inventory aggregate; GetForUpdateTx locks the event row so that all
// inventory read-modify-write cycles for one event are serialized.
type EventRepo struct {
    db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the provided database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// CreateTx inserts a new event row and populates the generated ID on
// the provided model.  Tiers and zones are inserted separately via
// CreateZoneTx and CreateTierTx inside the same transaction.
func (r *EventRepo) CreateTx(ctx context.Context, ev *model.Event) error {
    const q = `INSERT INTO events (organizer_id, name, venue, starts_at, currency, status)
               VALUES (?, ?, ?, ?, ?, ?)`
    res, err := exec(ctx, r.db).ExecContext(ctx, q,
        ev.OrganizerID, ev.Name, ev.Venue, ev.StartsAt.UTC(), ev.Currency, string(ev.Status))
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    ev.ID = uint64(id)
    return nil
}

// CreateZoneTx inserts a zone row for an event and populates the
// generated ID on the provided model.
func (r *EventRepo) CreateZoneTx(ctx context.Context, z *model.Zone) error {
    const q = `INSERT INTO zones (event_id, name, row_count, col_count) VALUES (?, ?, ?, ?)`
    res, err := exec(ctx, r.db).ExecContext(ctx, q, z.EventID, z.Name, z.RowCount, z.ColCount)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    z.ID = uint64(id)
    return nil
}

// CreateTierTx inserts a ticket tier row for an event and populates the
// generated ID on the provided model.  Tier names are unique per event;
// a duplicate name reports ErrConflict.
func (r *EventRepo) CreateTierTx(ctx context.Context, t *model.TicketTier) error {
    const q = `INSERT INTO ticket_tiers (event_id, name, unit_price, capacity, sold_count, zone_id)
               VALUES (?, ?, ?, ?, ?, ?)`
    res, err := exec(ctx, r.db).ExecContext(ctx, q,
        t.EventID, t.Name, t.UnitPrice, t.Capacity, t.SoldCount, t.ZoneID)
    if err != nil {
        if strings.Contains(strings.ToLower(err.Error()), "1062") {
            return ErrConflict
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    t.ID = uint64(id)
    return nil
}

const eventColumns = `id, organizer_id, name, venue, starts_at, currency, status, created_at, updated_at`

func scanEvent(row *sql.Row) (*model.Event, error) {
    var ev model.Event
    var status string
    err := row.Scan(&ev.ID, &ev.OrganizerID, &ev.Name, &ev.Venue, &ev.StartsAt,
        &ev.Currency, &status, &ev.CreatedAt, &ev.UpdatedAt)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrEventNotFound
        }
        return nil, err
    }
    ev.Status = model.EventStatus(status)
    return &ev, nil
}

// GetByID loads an event with its tiers and zones.  Returns
// ErrEventNotFound when no row matches.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
    const q = `SELECT ` + eventColumns + ` FROM events WHERE id = ?`
    ev, err := scanEvent(exec(ctx, r.db).QueryRowContext(ctx, q, id))
    if err != nil {
        return nil, err
    }
    if err := r.loadTiers(ctx, ev, false); err != nil {
        return nil, err
    }
    if err := r.loadZones(ctx, ev); err != nil {
        return nil, err
    }
    return ev, nil
}

// GetForUpdateTx loads an event with its tiers and zones while holding
// row locks on the event and tier rows.  It must be called inside a
// transaction; the lock serializes all inventory mutations for the
// event until the transaction ends.
func (r *EventRepo) GetForUpdateTx(ctx context.Context, id uint64) (*model.Event, error) {
    const q = `SELECT ` + eventColumns + ` FROM events WHERE id = ? FOR UPDATE`
    ev, err := scanEvent(exec(ctx, r.db).QueryRowContext(ctx, q, id))
    if err != nil {
        return nil, err
    }
    if err := r.loadTiers(ctx, ev, true); err != nil {
        return nil, err
    }
    if err := r.loadZones(ctx, ev); err != nil {
        return nil, err
    }
    return ev, nil
}

func (r *EventRepo) loadTiers(ctx context.Context, ev *model.Event, forUpdate bool) error {
    q := `SELECT id, event_id, name, unit_price, capacity, sold_count, zone_id
          FROM ticket_tiers WHERE event_id = ? ORDER BY id`
    if forUpdate {
        q += ` FOR UPDATE`
    }
    rows, err := exec(ctx, r.db).QueryContext(ctx, q, ev.ID)
    if err != nil {
        return err
    }
    defer rows.Close()
    ev.Tiers = ev.Tiers[:0]
    for rows.Next() {
        var t model.TicketTier
        var zoneID sql.NullInt64
        if err := rows.Scan(&t.ID, &t.EventID, &t.Name, &t.UnitPrice, &t.Capacity, &t.SoldCount, &zoneID); err != nil {
            return err
        }
        if zoneID.Valid {
            zid := uint64(zoneID.Int64)
            t.ZoneID = &zid
        }
        ev.Tiers = append(ev.Tiers, t)
    }
    return rows.Err()
}

func (r *EventRepo) loadZones(ctx context.Context, ev *model.Event) error {
    const q = `SELECT id, event_id, name, row_count, col_count FROM zones WHERE event_id = ? ORDER BY id`
    rows, err := exec(ctx, r.db).QueryContext(ctx, q, ev.ID)
    if err != nil {
        return err
    }
    defer rows.Close()
    ev.Zones = ev.Zones[:0]
    for rows.Next() {
        var z model.Zone
        if err := rows.Scan(&z.ID, &z.EventID, &z.Name, &z.RowCount, &z.ColCount); err != nil {
            return err
        }
        ev.Zones = append(ev.Zones, z)
    }
    return rows.Err()
}

// ListByStatus returns events in the given status, newest first, with
// tiers loaded so callers can derive per-tier availability.  Zones are
// not loaded; seat maps are served by the detail endpoint.
func (r *EventRepo) ListByStatus(ctx context.Context, status model.EventStatus) ([]model.Event, error) {
    const q = `SELECT ` + eventColumns + ` FROM events WHERE status = ? ORDER BY starts_at`
    return r.list(ctx, q, string(status))
}

// ListByOrganizer returns all events owned by the given organizer,
// newest first, with tiers loaded.
func (r *EventRepo) ListByOrganizer(ctx context.Context, organizerID uint64) ([]model.Event, error) {
    const q = `SELECT ` + eventColumns + ` FROM events WHERE organizer_id = ? ORDER BY created_at DESC`
    return r.list(ctx, q, organizerID)
}

func (r *EventRepo) list(ctx context.Context, q string, arg any) ([]model.Event, error) {
    rows, err := exec(ctx, r.db).QueryContext(ctx, q, arg)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    events := make([]model.Event, 0)
    for rows.Next() {
        var ev model.Event
        var status string
        if err := rows.Scan(&ev.ID, &ev.OrganizerID, &ev.Name, &ev.Venue, &ev.StartsAt,
            &ev.Currency, &status, &ev.CreatedAt, &ev.UpdatedAt); err != nil {
            return nil, err
        }
        ev.Status = model.EventStatus(status)
        events = append(events, ev)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    for i := range events {
        if err := r.loadTiers(ctx, &events[i], false); err != nil {
            return nil, err
        }
    }
    return events, nil
}

// UpdateStatusTx sets the event status.  Used for publishing, the
// automatic sold_out transition and its revert, and cancellation.
func (r *EventRepo) UpdateStatusTx(ctx context.Context, id uint64, status model.EventStatus) error {
    const q = `UPDATE events SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
    _, err := exec(ctx, r.db).ExecContext(ctx, q, string(status), id)
    return err
}

// AddTierSoldTx adjusts a tier's sold_count by delta (positive on
// purchase, negative on cancellation or full refund).  Callers must
// hold the event lock and have validated 0 <= sold_count+delta <=
// capacity against the locked snapshot.
func (r *EventRepo) AddTierSoldTx(ctx context.Context, tierID uint64, delta int) error {
    const q = `UPDATE ticket_tiers SET sold_count = sold_count + ? WHERE id = ?`
    _, err := exec(ctx, r.db).ExecContext(ctx, q, delta, tierID)
    return err
}
