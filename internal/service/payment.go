package service

import (
    "context"
    "sync"

    "github.com/google/uuid"
    "github.com/shopspring/decimal"
)

// PaymentIntent is the reference handed to the client for completing a
// payment with the external processor.
type PaymentIntent struct {
    IntentID string          `json:"intent_id"`
    Amount   decimal.Decimal `json:"amount"`
    Currency string          `json:"currency"`
}

// PaymentProcessor creates payment intents with the external gateway.
// The core only ever holds intent references; card data and the
// gateway protocol live entirely outside.
type PaymentProcessor interface {
    CreateIntent(ctx context.Context, bookingID uint64, amount decimal.Decimal, currency string) (PaymentIntent, error)
}

// SandboxProcessor is an in-process PaymentProcessor for development
// and tests.  It mints opaque intent IDs and reuses them per booking,
// mirroring the idempotency-key behavior of real gateways.
type SandboxProcessor struct {
    mu      sync.Mutex
    intents map[uint64]PaymentIntent
}

// NewSandboxProcessor returns an empty SandboxProcessor.
func NewSandboxProcessor() *SandboxProcessor {
    return &SandboxProcessor{intents: make(map[uint64]PaymentIntent)}
}

// CreateIntent returns the booking's existing intent when one was
// already minted, otherwise a fresh one.
func (p *SandboxProcessor) CreateIntent(_ context.Context, bookingID uint64, amount decimal.Decimal, currency string) (PaymentIntent, error) {
    p.mu.Lock()
    defer p.mu.Unlock()
    if intent, ok := p.intents[bookingID]; ok {
        return intent, nil
    }
    intent := PaymentIntent{
        IntentID: "pi_" + uuid.NewString(),
        Amount:   amount,
        Currency: currency,
    }
    p.intents[bookingID] = intent
    return intent, nil
}
