package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/stagepass/event-ticketing/internal/service"
)

// OrganizerHandler serves the organizer surface: creating and
// publishing events and inspecting their sales.  Routes are guarded by
// the ORGANIZER/ADMIN role middleware; per-event ownership is enforced
// in the service layer.
type OrganizerHandler struct {
    Events *service.EventService
}

func NewOrganizerHandler(events *service.EventService) *OrganizerHandler {
    if events == nil {
        panic("nil service passed to NewOrganizerHandler")
    }
    return &OrganizerHandler{Events: events}
}

// CreateEvent handles POST /v1/organizer/events.  The body carries the
// event with its zones and tiers; the event is created as a draft.
func (h *OrganizerHandler) CreateEvent(c echo.Context) error {
    actor, err := getActor(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var in service.CreateEventInput
    if err := c.Bind(&in); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    ev, err := h.Events.CreateEvent(c.Request().Context(), actor.ID, in)
    if err != nil {
        return httpError(c, err)
    }
    return c.JSON(http.StatusCreated, newEventView(ev))
}

// PublishEvent handles POST /v1/organizer/events/:id/publish.
func (h *OrganizerHandler) PublishEvent(c echo.Context) error {
    actor, err := getActor(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    ev, err := h.Events.Publish(c.Request().Context(), id, actor)
    if err != nil {
        return httpError(c, err)
    }
    return c.JSON(http.StatusOK, newEventView(ev))
}

// CancelEvent handles POST /v1/organizer/events/:id/cancel.
func (h *OrganizerHandler) CancelEvent(c echo.Context) error {
    actor, err := getActor(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    ev, err := h.Events.CancelEvent(c.Request().Context(), id, actor)
    if err != nil {
        return httpError(c, err)
    }
    return c.JSON(http.StatusOK, newEventView(ev))
}

// ListMyEvents handles GET /v1/organizer/events.
func (h *OrganizerHandler) ListMyEvents(c echo.Context) error {
    actor, err := getActor(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    events, err := h.Events.ListMine(c.Request().Context(), actor.ID)
    if err != nil {
        return httpError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"events": newEventViews(events)})
}

// EventBookings handles GET /v1/organizer/events/:id/bookings, the
// organizer's sales view.
func (h *OrganizerHandler) EventBookings(c echo.Context) error {
    actor, err := getActor(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    bookings, err := h.Events.EventBookings(c.Request().Context(), id, actor)
    if err != nil {
        return httpError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"bookings": newBookingViews(bookings)})
}
