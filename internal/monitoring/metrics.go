// Package monitoring registers the Prometheus metrics exposed on
// /metrics.  Counters are incremented by the service layer after a
// unit of work commits, so the numbers only count durable outcomes.
package monitoring

import (
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

var (
    // HoldsPlaced counts seats successfully placed on hold.
    HoldsPlaced = promauto.NewCounter(prometheus.CounterOpts{
        Name: "ticketing_holds_placed_total",
        Help: "Number of seats successfully placed on hold.",
    })

    // PurchasesCompleted counts bookings created by successful purchases.
    PurchasesCompleted = promauto.NewCounter(prometheus.CounterOpts{
        Name: "ticketing_purchases_completed_total",
        Help: "Number of bookings created by successful purchases.",
    })

    // PurchasesRejected counts purchases rejected before any state
    // change, labelled by the reason class.
    PurchasesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
        Name: "ticketing_purchases_rejected_total",
        Help: "Number of purchase attempts rejected, by reason.",
    }, []string{"reason"})

    // BookingsCancelled counts bookings moved to cancelled.
    BookingsCancelled = promauto.NewCounter(prometheus.CounterOpts{
        Name: "ticketing_bookings_cancelled_total",
        Help: "Number of bookings cancelled.",
    })

    // PaymentsConfirmed counts bookings confirmed by payment results.
    PaymentsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
        Name: "ticketing_payments_confirmed_total",
        Help: "Number of bookings confirmed by a successful payment.",
    })

    // DisputesResolved counts dispute resolutions, by action taken.
    DisputesResolved = promauto.NewCounterVec(prometheus.CounterOpts{
        Name: "ticketing_disputes_resolved_total",
        Help: "Number of payment disputes resolved, by action.",
    }, []string{"action"})

    // TicketsScanned counts door scans, split by outcome.
    TicketsScanned = promauto.NewCounterVec(prometheus.CounterOpts{
        Name: "ticketing_tickets_scanned_total",
        Help: "Number of ticket scans, by outcome.",
    }, []string{"outcome"})

    // PurchaseDuration observes the wall time of the purchase unit of
    // work, including the wait on the event lock.
    PurchaseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
        Name:    "ticketing_purchase_duration_seconds",
        Help:    "Duration of the purchase transaction.",
        Buckets: prometheus.DefBuckets,
    })
)
