// Package router wires HTTP routes to their handlers and middleware.
package router

import (
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/prometheus/client_golang/prometheus/promhttp"

    "github.com/stagepass/event-ticketing/internal/handler"
    "github.com/stagepass/event-ticketing/internal/middleware"
    "github.com/stagepass/event-ticketing/internal/model"
)

// Handlers bundles every handler the router mounts.
type Handlers struct {
    Auth      *handler.AuthHandler
    Public    *handler.PublicHandler
    Organizer *handler.OrganizerHandler
    Holds     *handler.HoldHandler
    Bookings  *handler.BookingHandler
    Payments  *handler.PaymentHandler
    Scan      *handler.ScanHandler
}

// Register mounts all routes on the Echo instance.  rateLimit wraps
// the API groups; pass nil when rate limiting is disabled.
func Register(e *echo.Echo, h Handlers, jwtSecret string, rateLimit echo.MiddlewareFunc) {
    // Probes and metrics, outside the rate limiter.
    e.GET("/healthz", handler.Health)
    e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

    if rateLimit == nil {
        rateLimit = func(next echo.HandlerFunc) echo.HandlerFunc {
            return func(c echo.Context) error { return next(c) }
        }
    }

    // Unauthenticated: registration, login and public browsing.
    auth := e.Group("/v1/auth", rateLimit)
    auth.POST("/register", h.Auth.Register)
    auth.POST("/login", h.Auth.Login)

    pub := e.Group("/v1/events", rateLimit)
    pub.GET("", h.Public.ListEvents)
    pub.GET("/:id", h.Public.GetEvent)
    pub.GET("/:id/seats", h.Public.GetSeatMap)

    // Authenticated routes.  Holds, purchases and the booking surface
    // accept every role; a buyer account is the common case.
    v1 := e.Group("/v1", rateLimit, middleware.JWTAuth(jwtSecret))
    v1.GET("/me", h.Auth.Me)

    buyer := v1.Group("", middleware.RequireRole(model.RoleBuyer, model.RoleOrganizer, model.RoleAdmin))
    buyer.POST("/events/:id/holds", h.Holds.PlaceHold)
    buyer.DELETE("/events/:id/holds", h.Holds.ReleaseHold)
    buyer.POST("/bookings", h.Bookings.Purchase)
    buyer.GET("/bookings", h.Bookings.MyBookings)
    buyer.GET("/bookings/:id", h.Bookings.GetBooking)
    buyer.POST("/bookings/:id/cancel", h.Bookings.Cancel)
    buyer.POST("/bookings/:id/payment", h.Payments.ConfirmPayment)
    buyer.POST("/bookings/:id/dispute", h.Payments.OpenDispute)

    organizer := v1.Group("/organizer", middleware.RequireRole(model.RoleOrganizer, model.RoleAdmin))
    organizer.POST("/events", h.Organizer.CreateEvent)
    organizer.GET("/events", h.Organizer.ListMyEvents)
    organizer.POST("/events/:id/publish", h.Organizer.PublishEvent)
    organizer.POST("/events/:id/cancel", h.Organizer.CancelEvent)
    organizer.GET("/events/:id/bookings", h.Organizer.EventBookings)
    organizer.POST("/events/:id/scan", h.Scan.Scan)

    admin := v1.Group("/admin", middleware.RequireRole(model.RoleAdmin))
    admin.POST("/bookings/:id/resolve", h.Payments.ResolveDispute)

    // Echo's default 404 body leaks route details; keep it terse.
    e.HTTPErrorHandler = func(err error, c echo.Context) {
        if c.Response().Committed {
            return
        }
        code := http.StatusInternalServerError
        if he, ok := err.(*echo.HTTPError); ok {
            code = he.Code
        }
        _ = c.JSON(code, echo.Map{"error": http.StatusText(code)})
    }
}
