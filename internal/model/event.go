package model

import (
    "fmt"
    "time"

    "github.com/shopspring/decimal"
)

// EventStatus enumerates the lifecycle states of an event.  Events are
// created as drafts by their organizer, become bookable once published,
// are automatically marked sold_out when every tier is exhausted, and
// may be cancelled by the organizer.  Only published events accept
// purchases; sold_out reverts to published when inventory is returned
// by a cancellation or refund.
type EventStatus string

const (
    EventDraft     EventStatus = "draft"
    EventPublished EventStatus = "published"
    EventSoldOut   EventStatus = "sold_out"
    EventCancelled EventStatus = "cancelled"
)

// Event is the inventory aggregate.  It owns its ticket tiers, its
// seating zones and (via the hold repository) the set of active seat
// holds.  All inventory mutations for one event are serialized by
// locking the event row, so the invariants on tiers and seats can be
// checked against a consistent snapshot.
//
// Fields:
//  ID          - primary key identifier.
//  OrganizerID - user who created and administers the event.
//  Name        - display name of the event.
//  Venue       - free-form venue description.
//  StartsAt    - when the event begins; bookings cannot be cancelled
//                after this instant.
//  Currency    - ISO currency code used for all tiers of this event.
//  Status      - lifecycle state, see EventStatus.
//  Tiers       - ordered ticket tiers; names are unique per event.
//  Zones       - seating zones for seated events; empty for
//                general-admission events.
type Event struct {
    ID          uint64       // events.id
    OrganizerID uint64       // events.organizer_id
    Name        string       // events.name
    Venue       string       // events.venue
    StartsAt    time.Time    // events.starts_at
    Currency    string       // events.currency
    Status      EventStatus  // events.status
    Tiers       []TicketTier // ticket_tiers rows for this event
    Zones       []Zone       // zones rows for this event
    CreatedAt   time.Time    // events.created_at
    UpdatedAt   time.Time    // events.updated_at
}

// TicketTier is a named category of tickets with its own price and
// capacity.  SoldCount tracks the number of currently outstanding
// (non-cancelled, non-refunded) tickets sold against the tier and must
// always satisfy 0 <= SoldCount <= Capacity.  Tier identity is the
// immutable ID; the name is display data and may be renamed by the
// organizer without breaking inventory accounting.
type TicketTier struct {
    ID        uint64          // ticket_tiers.id
    EventID   uint64          // ticket_tiers.event_id
    Name      string          // ticket_tiers.name (unique per event)
    UnitPrice decimal.Decimal // ticket_tiers.unit_price
    Capacity  int             // ticket_tiers.capacity
    SoldCount int             // ticket_tiers.sold_count
    ZoneID    *uint64         // ticket_tiers.zone_id (nil for general admission)
}

// Remaining returns the number of tickets still sellable in the tier.
func (t *TicketTier) Remaining() int {
    if t.SoldCount >= t.Capacity {
        return 0
    }
    return t.Capacity - t.SoldCount
}

// Zone is a rectangular block of enumerable seats.  A seat {row, col}
// exists in the zone iff 1 <= row <= RowCount and 1 <= col <= ColCount.
// A seat belongs to exactly one zone.
type Zone struct {
    ID       uint64 // zones.id
    EventID  uint64 // zones.event_id
    Name     string // zones.name
    RowCount uint32 // zones.row_count
    ColCount uint32 // zones.col_count
}

// SeatRef addresses a single seat within an event's seating layout.
// It is a pure value type used in hold and purchase requests and on
// ticket line items.
type SeatRef struct {
    ZoneID uint64 `json:"zone_id"`
    Row    uint32 `json:"row"`
    Col    uint32 `json:"col"`
}

// Key returns a stable string form of the seat reference, suitable for
// map keys when building occupancy sets.
func (s SeatRef) Key() string {
    return fmt.Sprintf("%d:%d:%d", s.ZoneID, s.Row, s.Col)
}

// Contains reports whether the given seat reference addresses an
// existing seat of this zone.
func (z *Zone) Contains(s SeatRef) bool {
    return s.ZoneID == z.ID &&
        s.Row >= 1 && s.Row <= z.RowCount &&
        s.Col >= 1 && s.Col <= z.ColCount
}

// Bookable reports whether the event currently accepts purchases.
func (e *Event) Bookable() bool {
    return e.Status == EventPublished
}

// Started reports whether the event has begun relative to now.
func (e *Event) Started(now time.Time) bool {
    return !e.StartsAt.After(now)
}

// TierByName resolves a tier by its (per-event unique) name.  Returns
// nil when no tier matches.
func (e *Event) TierByName(name string) *TicketTier {
    for i := range e.Tiers {
        if e.Tiers[i].Name == name {
            return &e.Tiers[i]
        }
    }
    return nil
}

// TierByID resolves a tier by its immutable identifier.  Returns nil
// when no tier matches.
func (e *Event) TierByID(id uint64) *TicketTier {
    for i := range e.Tiers {
        if e.Tiers[i].ID == id {
            return &e.Tiers[i]
        }
    }
    return nil
}

// ZoneByID resolves a zone by identifier.  Returns nil when no zone
// matches.
func (e *Event) ZoneByID(id uint64) *Zone {
    for i := range e.Zones {
        if e.Zones[i].ID == id {
            return &e.Zones[i]
        }
    }
    return nil
}

// AllSoldOut reports whether every tier of the event is exhausted.  An
// event without tiers is never considered sold out.
func (e *Event) AllSoldOut() bool {
    if len(e.Tiers) == 0 {
        return false
    }
    for i := range e.Tiers {
        if e.Tiers[i].SoldCount < e.Tiers[i].Capacity {
            return false
        }
    }
    return true
}
