package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/stagepass/event-ticketing/internal/service"
)

// BookingHandler serves the buyer's booking surface: purchase,
// cancellation and booking lookups.
type BookingHandler struct {
    Bookings *service.BookingService
    Payments service.PaymentProcessor
}

func NewBookingHandler(bookings *service.BookingService, payments service.PaymentProcessor) *BookingHandler {
    if bookings == nil || payments == nil {
        panic("nil dependency passed to NewBookingHandler")
    }
    return &BookingHandler{Bookings: bookings, Payments: payments}
}

type purchaseReq struct {
    EventID      uint64                  `json:"event_id"`
    Tickets      []service.TicketRequest `json:"tickets"`
    ContactName  string                  `json:"contact_name"`
    ContactEmail string                  `json:"contact_email"`
}

// Purchase handles POST /v1/bookings.  On success the booking is
// pending and the response carries a payment intent for completing the
// purchase with the processor.
func (h *BookingHandler) Purchase(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req purchaseReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    booking, err := h.Bookings.Purchase(c.Request().Context(), service.PurchaseInput{
        EventID:      req.EventID,
        BuyerID:      uid,
        Tickets:      req.Tickets,
        ContactName:  req.ContactName,
        ContactEmail: req.ContactEmail,
    })
    if err != nil {
        return httpError(c, err)
    }
    intent, err := h.Payments.CreateIntent(c.Request().Context(), booking.ID, booking.TotalAmount, booking.Currency)
    if err != nil {
        // The booking exists; the client can retry intent creation.
        c.Logger().Errorf("payment intent for booking %d failed: %v", booking.ID, err)
        return c.JSON(http.StatusCreated, echo.Map{"booking": newBookingView(booking)})
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "booking":        newBookingView(booking),
        "payment_intent": intent,
    })
}

type cancelReq struct {
    Reason string `json:"reason"`
}

// Cancel handles POST /v1/bookings/:id/cancel.
func (h *BookingHandler) Cancel(c echo.Context) error {
    actor, err := getActor(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    var req cancelReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    booking, err := h.Bookings.Cancel(c.Request().Context(), id, actor, req.Reason)
    if err != nil {
        return httpError(c, err)
    }
    return c.JSON(http.StatusOK, newBookingView(booking))
}

// MyBookings handles GET /v1/bookings.
func (h *BookingHandler) MyBookings(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    bookings, err := h.Bookings.MyBookings(c.Request().Context(), uid)
    if err != nil {
        return httpError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"bookings": newBookingViews(bookings)})
}

// GetBooking handles GET /v1/bookings/:id.
func (h *BookingHandler) GetBooking(c echo.Context) error {
    actor, err := getActor(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    booking, err := h.Bookings.GetBooking(c.Request().Context(), id, actor)
    if err != nil {
        return httpError(c, err)
    }
    return c.JSON(http.StatusOK, newBookingView(booking))
}
