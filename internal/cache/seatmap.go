// Package cache holds the Redis-backed seat map cache.  Seat maps are
// the hottest read of the service and tolerate short staleness, so
// they are cached briefly and invalidated whenever occupancy changes.
package cache

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/redis/go-redis/v9"
)

// SeatMap caches rendered seat map payloads per event under
// seatmap:{eventID}.
type SeatMap struct {
    rdb redis.Cmdable
    ttl time.Duration
}

// NewSeatMap returns a SeatMap cache with the given entry TTL.
func NewSeatMap(rdb redis.Cmdable, ttl time.Duration) *SeatMap {
    return &SeatMap{rdb: rdb, ttl: ttl}
}

func key(eventID uint64) string {
    return fmt.Sprintf("seatmap:%d", eventID)
}

// Get returns the cached payload for the event and whether it was
// present.
func (c *SeatMap) Get(ctx context.Context, eventID uint64) ([]byte, bool, error) {
    b, err := c.rdb.Get(ctx, key(eventID)).Bytes()
    if err != nil {
        if errors.Is(err, redis.Nil) {
            return nil, false, nil
        }
        return nil, false, err
    }
    return b, true, nil
}

// Set stores the payload for the event under the cache TTL.
func (c *SeatMap) Set(ctx context.Context, eventID uint64, payload []byte) error {
    return c.rdb.Set(ctx, key(eventID), payload, c.ttl).Err()
}

// Invalidate drops the cached entry for the event.  Called after any
// commit that changes seat occupancy.
func (c *SeatMap) Invalidate(ctx context.Context, eventID uint64) error {
    return c.rdb.Del(ctx, key(eventID)).Err()
}
