package model

import "time"

// SeatHold represents a temporary hold on a seat during the checkout
// process.  Holds prevent concurrent buyers from grabbing the same
// seat while a buyer is completing a purchase.  A hold is advisory
// with respect to other buyers only; it does not consume tier
// capacity.  Holds expire automatically at their expires_at timestamp
// and expired rows are reclaimed lazily by the next hold-reading
// operation, so storage must tolerate stale entries.
//
// Fields:
//  ID        - primary key identifier.
//  EventID   - event to which the held seat belongs.
//  Seat      - the held seat (zone, row, column).
//  HolderID  - buyer who placed the hold.
//  ExpiresAt - when the hold expires.
//  CreatedAt - when the hold was created.
type SeatHold struct {
    ID        uint64    // seat_holds.id
    EventID   uint64    // seat_holds.event_id
    Seat      SeatRef   // seat_holds.zone_id / seat_row / seat_col
    HolderID  uint64    // seat_holds.holder_id
    ExpiresAt time.Time // seat_holds.expires_at
    CreatedAt time.Time // seat_holds.created_at
}

// Active reports whether the hold is still live at the given instant.
// A hold whose ExpiresAt has passed is dead for every reader, whether
// or not its row has been reclaimed yet.
func (h *SeatHold) Active(now time.Time) bool {
    return h.ExpiresAt.After(now)
}
