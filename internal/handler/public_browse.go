package handler

import (
    "encoding/json"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/stagepass/event-ticketing/internal/cache"
    "github.com/stagepass/event-ticketing/internal/service"
)

// PublicHandler serves anonymous browsing: event listing, event detail
// and the live seat map.  The seat map is the hottest endpoint and is
// cached in Redis for a short TTL; occupancy changes invalidate the
// entry.
type PublicHandler struct {
    Events  *service.EventService
    SeatMap *cache.SeatMap // nil disables caching
}

func NewPublicHandler(events *service.EventService, seatMap *cache.SeatMap) *PublicHandler {
    if events == nil {
        panic("nil service passed to NewPublicHandler")
    }
    return &PublicHandler{Events: events, SeatMap: seatMap}
}

// ListEvents handles GET /v1/events.
func (h *PublicHandler) ListEvents(c echo.Context) error {
    events, err := h.Events.ListPublic(c.Request().Context())
    if err != nil {
        return httpError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"events": newEventViews(events)})
}

// GetEvent handles GET /v1/events/:id.
func (h *PublicHandler) GetEvent(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    ev, err := h.Events.GetPublic(c.Request().Context(), id)
    if err != nil {
        return httpError(c, err)
    }
    return c.JSON(http.StatusOK, newEventView(ev))
}

// GetSeatMap handles GET /v1/events/:id/seats.  Serves from the Redis
// cache when possible; a miss renders the map from the database and
// repopulates the cache.
func (h *PublicHandler) GetSeatMap(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    ctx := c.Request().Context()

    if h.SeatMap != nil {
        if payload, hit, err := h.SeatMap.Get(ctx, id); err == nil && hit {
            return c.JSONBlob(http.StatusOK, payload)
        }
    }

    seats, err := h.Events.SeatMap(ctx, id)
    if err != nil {
        return httpError(c, err)
    }
    body, err := json.Marshal(echo.Map{"event_id": id, "seats": seats})
    if err != nil {
        return httpError(c, err)
    }
    if h.SeatMap != nil {
        if err := h.SeatMap.Set(ctx, id, body); err != nil {
            c.Logger().Warnf("seat map cache set failed for event %d: %v", id, err)
        }
    }
    return c.JSONBlob(http.StatusOK, body)
}
