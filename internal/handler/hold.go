package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/stagepass/event-ticketing/internal/model"
    "github.com/stagepass/event-ticketing/internal/service"
)

// HoldHandler serves seat hold placement and release for buyers.
type HoldHandler struct {
    Holds *service.HoldService
}

func NewHoldHandler(holds *service.HoldService) *HoldHandler {
    if holds == nil {
        panic("nil service passed to NewHoldHandler")
    }
    return &HoldHandler{Holds: holds}
}

type holdReq struct {
    Seats []model.SeatRef `json:"seats"`
}

// PlaceHold handles POST /v1/events/:id/holds.  All requested seats
// are held together or the request fails without effect.
func (h *HoldHandler) PlaceHold(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    var req holdReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    expiresAt, err := h.Holds.PlaceHold(c.Request().Context(), eventID, uid, req.Seats)
    if err != nil {
        return httpError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "seats":      req.Seats,
        "expires_at": expiresAt,
    })
}

// ReleaseHold handles DELETE /v1/events/:id/holds.  Releasing seats
// the caller does not hold is a no-op.
func (h *HoldHandler) ReleaseHold(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    var req holdReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := h.Holds.ReleaseHold(c.Request().Context(), eventID, uid, req.Seats); err != nil {
        return httpError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"released": req.Seats})
}
