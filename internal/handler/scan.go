package handler

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/stagepass/event-ticketing/internal/service"
)

// ScanHandler serves door scanning for organizers.
type ScanHandler struct {
    Tickets *service.TicketService
}

func NewScanHandler(tickets *service.TicketService) *ScanHandler {
    if tickets == nil {
        panic("nil service passed to NewScanHandler")
    }
    return &ScanHandler{Tickets: tickets}
}

type scanReq struct {
    TicketNumber string `json:"ticket_number"`
}

type scanResp struct {
    TicketNumber   string `json:"ticket_number"`
    TierName       string `json:"tier_name"`
    AttendeeName   string `json:"attendee_name"`
    AttendeeEmail  string `json:"attendee_email"`
    AlreadyScanned bool   `json:"already_scanned"`
    ScannedAt      string `json:"scanned_at,omitempty"`
}

// Scan handles POST /v1/organizer/events/:id/scan.  A duplicate scan
// is a 200 with already_scanned=true and the original scan time, so
// door staff see it as a warning, not a failure.
func (h *ScanHandler) Scan(c echo.Context) error {
    actor, err := getActor(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    var req scanReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    result, err := h.Tickets.ScanTicket(c.Request().Context(), eventID, actor, strings.TrimSpace(req.TicketNumber))
    if err != nil {
        return httpError(c, err)
    }
    resp := scanResp{
        TicketNumber:   result.Ticket.TicketNumber,
        TierName:       result.Ticket.TierName,
        AttendeeName:   result.AttendeeName,
        AttendeeEmail:  result.AttendeeEmail,
        AlreadyScanned: result.AlreadyScanned,
    }
    if result.Ticket.ScannedAt != nil {
        resp.ScannedAt = result.Ticket.ScannedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
    }
    return c.JSON(http.StatusOK, resp)
}
