package main // Entry point package

import (
    "log"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"

    "github.com/stagepass/event-ticketing/internal/cache"
    "github.com/stagepass/event-ticketing/internal/clock"
    "github.com/stagepass/event-ticketing/internal/config"
    "github.com/stagepass/event-ticketing/internal/database"
    "github.com/stagepass/event-ticketing/internal/handler"
    "github.com/stagepass/event-ticketing/internal/middleware"
    "github.com/stagepass/event-ticketing/internal/queue"
    "github.com/stagepass/event-ticketing/internal/realtime"
    "github.com/stagepass/event-ticketing/internal/repository"
    "github.com/stagepass/event-ticketing/internal/router"
    "github.com/stagepass/event-ticketing/internal/service"
)

func main() {
    // .env is a development convenience; real deployments set the
    // environment directly.
    if err := godotenv.Load(); err != nil {
        log.Printf("no .env file loaded: %v", err)
    }
    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database connection failed: %v", err)
    }
    defer db.Close()

    // Repositories and the transaction runner.
    runner := repository.NewRunner(db)
    eventRepo := repository.NewEventRepo(db)
    holdRepo := repository.NewSeatHoldRepo(db)
    bookingRepo := repository.NewBookingRepo(db)
    userRepo := repository.NewUserRepo(db)

    // Optional integrations degrade to disabled when unreachable.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Println("redis unavailable; seat map cache and rate limiting disabled")
    }
    var seatMapCache *cache.SeatMap
    var invalidator service.SeatMapInvalidator
    if rdb != nil {
        seatMapCache = cache.NewSeatMap(rdb, cfg.SeatMapTTL)
        invalidator = seatMapCache
    }
    broadcaster := realtime.New(cfg.PNPublishKey, cfg.PNSubKey, cfg.PNSecretKey)
    var rt service.Broadcaster
    if broadcaster != nil {
        rt = broadcaster
    }
    notifier := queue.NewPublisher(cfg.RabbitURL)
    go queue.StartConfirmationConsumer(cfg.RabbitURL)

    // Services.
    clk := clock.NewSystem()
    holdSvc := service.NewHoldService(runner, eventRepo, holdRepo, bookingRepo, clk, cfg.HoldTTL, rt)
    bookingSvc := service.NewBookingService(runner, eventRepo, holdRepo, bookingRepo, clk, invalidator, rt)
    ticketSvc := service.NewTicketService(runner, eventRepo, bookingRepo, clk, notifier, invalidator, rt)
    eventSvc := service.NewEventService(runner, eventRepo, holdRepo, bookingRepo, clk)
    payments := service.NewSandboxProcessor()

    e := echo.New()
    e.HideBanner = true
    e.Use(echomw.Recover())
    e.Use(echomw.Logger())

    rateLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
    router.Register(e, router.Handlers{
        Auth:      handler.NewAuthHandler(cfg, userRepo),
        Public:    handler.NewPublicHandler(eventSvc, seatMapCache),
        Organizer: handler.NewOrganizerHandler(eventSvc),
        Holds:     handler.NewHoldHandler(holdSvc),
        Bookings:  handler.NewBookingHandler(bookingSvc, payments),
        Payments:  handler.NewPaymentHandler(ticketSvc),
        Scan:      handler.NewScanHandler(ticketSvc),
    }, cfg.JWTSecret, rateLimit)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)
    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
