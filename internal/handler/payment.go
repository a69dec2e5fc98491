package handler

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/shopspring/decimal"

    "github.com/stagepass/event-ticketing/internal/model"
    "github.com/stagepass/event-ticketing/internal/service"
)

// PaymentHandler receives payment processor outcomes and the dispute
// flow.  Payment results arrive from the client after completing the
// intent (or from a processor webhook in production); disputes are
// opened by buyers and resolved by admins.
type PaymentHandler struct {
    Tickets *service.TicketService
}

func NewPaymentHandler(tickets *service.TicketService) *PaymentHandler {
    if tickets == nil {
        panic("nil service passed to NewPaymentHandler")
    }
    return &PaymentHandler{Tickets: tickets}
}

type confirmReq struct {
    PaymentID  string `json:"payment_id"`
    Method     string `json:"method"`
    Amount     string `json:"amount"`
    Currency   string `json:"currency"`
    ReceiptURL string `json:"receipt_url"`
}

// ConfirmPayment handles POST /v1/bookings/:id/payment.  Re-posting
// the same payment ID is idempotent.
func (h *PaymentHandler) ConfirmPayment(c echo.Context) error {
    if _, err := getUserID(c); err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    var req confirmReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid amount"})
    }
    booking, err := h.Tickets.ConfirmPayment(c.Request().Context(), id, model.PaymentInfo{
        PaymentID:  req.PaymentID,
        Method:     req.Method,
        Status:     "succeeded",
        Amount:     amount,
        Currency:   req.Currency,
        ReceiptURL: req.ReceiptURL,
    })
    if err != nil {
        return httpError(c, err)
    }
    return c.JSON(http.StatusOK, newBookingView(booking))
}

type disputeReq struct {
    Reason string `json:"reason"`
}

// OpenDispute handles POST /v1/bookings/:id/dispute.
func (h *PaymentHandler) OpenDispute(c echo.Context) error {
    actor, err := getActor(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    var req disputeReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := h.Tickets.OpenDispute(c.Request().Context(), id, actor, strings.TrimSpace(req.Reason)); err != nil {
        return httpError(c, err)
    }
    return c.JSON(http.StatusAccepted, echo.Map{"status": "dispute recorded"})
}

type resolveReq struct {
    Action string `json:"action"` // refund | partial_refund | deny
    Amount string `json:"amount"` // required for refund actions
    Reason string `json:"reason"`
}

// ResolveDispute handles POST /v1/admin/bookings/:id/resolve.  The
// route is guarded by the ADMIN role middleware.
func (h *PaymentHandler) ResolveDispute(c echo.Context) error {
    actor, err := getActor(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    var req resolveReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    var action model.DisputeAction
    switch strings.ToLower(strings.TrimSpace(req.Action)) {
    case "refund", "partial_refund":
        amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
        if err != nil || amount.IsNegative() {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid amount"})
        }
        if req.Action == "refund" {
            action = model.RefundAction{Amount: amount, Reason: req.Reason}
        } else {
            action = model.PartialRefundAction{Amount: amount, Reason: req.Reason}
        }
    case "deny":
        action = model.DenyAction{Note: req.Reason}
    default:
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown action"})
    }

    booking, err := h.Tickets.ResolveDispute(c.Request().Context(), id, actor, action)
    if err != nil {
        return httpError(c, err)
    }
    return c.JSON(http.StatusOK, newBookingView(booking))
}
