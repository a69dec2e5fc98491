// Package realtime pushes seat status changes to live seat-map viewers
// over PubNub.  Delivery is best effort: the core never waits on or
// fails because of the realtime channel.
package realtime

import (
    "fmt"
    "log"

    pubnub "github.com/pubnub/go"

    "github.com/stagepass/event-ticketing/internal/model"
)

// Broadcaster publishes seat status changes on a per-event channel so
// seat-map clients can update without polling.
type Broadcaster struct {
    pn *pubnub.PubNub
}

// New builds a Broadcaster from PubNub keys.  Returns nil when the
// publish key is empty, which disables realtime updates; callers treat
// a nil Broadcaster as a no-op.
func New(publishKey, subscribeKey, secretKey string) *Broadcaster {
    if publishKey == "" {
        return nil
    }
    cfg := pubnub.NewConfig()
    cfg.PublishKey = publishKey
    cfg.SubscribeKey = subscribeKey
    cfg.SecretKey = secretKey
    return &Broadcaster{pn: pubnub.NewPubNub(cfg)}
}

// SeatStatusChanged publishes the new status of the given seats on the
// event's channel.  Errors are logged and dropped.
func (b *Broadcaster) SeatStatusChanged(eventID uint64, seats []model.SeatRef, status string) {
    if b == nil || len(seats) == 0 {
        return
    }
    channel := fmt.Sprintf("event-%d-seats", eventID)
    _, _, err := b.pn.Publish().
        Channel(channel).
        Message(map[string]any{
            "type":   "seat_status",
            "status": status,
            "seats":  seats,
        }).
        Execute()
    if err != nil {
        log.Printf("realtime: publish to %s failed: %v", channel, err)
    }
}
