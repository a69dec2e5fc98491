package service

import (
    "context"
    "sort"
    "sync"
    "time"

    "github.com/stagepass/event-ticketing/internal/model"
    "github.com/stagepass/event-ticketing/internal/repository"
)

// fakeStore is an in-memory implementation of TxRunner, EventStore,
// HoldStore and BookingStore.  WithTx serializes transactions with a
// mutex and snapshots all state up front, restoring it when the
// function fails, so the all-or-nothing behavior of the real
// transaction runner holds in tests too.  The coarse lock mirrors the
// event row lock: concurrent purchases observe fully committed states
// only.
type fakeStore struct {
    txMu sync.Mutex // serializes transactions
    mu   sync.Mutex // guards the maps for non-transactional reads

    events   map[uint64]*model.Event
    holds    map[uint64]*model.SeatHold
    bookings map[uint64]*model.Booking

    nextEvent, nextZone, nextTier uint64
    nextHold                      uint64
    nextBooking, nextTicket       uint64
}

func newFakeStore() *fakeStore {
    return &fakeStore{
        events:   make(map[uint64]*model.Event),
        holds:    make(map[uint64]*model.SeatHold),
        bookings: make(map[uint64]*model.Booking),
    }
}

func (s *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
    s.txMu.Lock()
    defer s.txMu.Unlock()

    s.mu.Lock()
    snapEvents := make(map[uint64]*model.Event, len(s.events))
    for id, ev := range s.events {
        snapEvents[id] = copyEvent(ev)
    }
    snapHolds := make(map[uint64]*model.SeatHold, len(s.holds))
    for id, h := range s.holds {
        c := *h
        snapHolds[id] = &c
    }
    snapBookings := make(map[uint64]*model.Booking, len(s.bookings))
    for id, b := range s.bookings {
        snapBookings[id] = copyBooking(b)
    }
    s.mu.Unlock()

    if err := fn(ctx); err != nil {
        s.mu.Lock()
        s.events = snapEvents
        s.holds = snapHolds
        s.bookings = snapBookings
        s.mu.Unlock()
        return err
    }
    return nil
}

func copyEvent(ev *model.Event) *model.Event {
    c := *ev
    c.Tiers = append([]model.TicketTier(nil), ev.Tiers...)
    c.Zones = append([]model.Zone(nil), ev.Zones...)
    return &c
}

func copyBooking(b *model.Booking) *model.Booking {
    c := *b
    c.Tickets = append([]model.Ticket(nil), b.Tickets...)
    return &c
}

// --- EventStore ---

func (s *fakeStore) CreateTx(_ context.Context, ev *model.Event) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.nextEvent++
    ev.ID = s.nextEvent
    s.events[ev.ID] = copyEvent(ev)
    return nil
}

func (s *fakeStore) CreateZoneTx(_ context.Context, z *model.Zone) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    ev, ok := s.events[z.EventID]
    if !ok {
        return repository.ErrEventNotFound
    }
    s.nextZone++
    z.ID = s.nextZone
    ev.Zones = append(ev.Zones, *z)
    return nil
}

func (s *fakeStore) CreateTierTx(_ context.Context, t *model.TicketTier) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    ev, ok := s.events[t.EventID]
    if !ok {
        return repository.ErrEventNotFound
    }
    for i := range ev.Tiers {
        if ev.Tiers[i].Name == t.Name {
            return repository.ErrConflict
        }
    }
    s.nextTier++
    t.ID = s.nextTier
    ev.Tiers = append(ev.Tiers, *t)
    return nil
}

func (s *fakeStore) GetByID(_ context.Context, id uint64) (*model.Event, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    ev, ok := s.events[id]
    if !ok {
        return nil, repository.ErrEventNotFound
    }
    return copyEvent(ev), nil
}

func (s *fakeStore) GetForUpdateTx(ctx context.Context, id uint64) (*model.Event, error) {
    return s.GetByID(ctx, id)
}

func (s *fakeStore) ListByStatus(_ context.Context, status model.EventStatus) ([]model.Event, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    var out []model.Event
    for _, ev := range s.events {
        if ev.Status == status {
            out = append(out, *copyEvent(ev))
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out, nil
}

func (s *fakeStore) ListByOrganizer(_ context.Context, organizerID uint64) ([]model.Event, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    var out []model.Event
    for _, ev := range s.events {
        if ev.OrganizerID == organizerID {
            out = append(out, *copyEvent(ev))
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out, nil
}

func (s *fakeStore) UpdateStatusTx(_ context.Context, id uint64, status model.EventStatus) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    ev, ok := s.events[id]
    if !ok {
        return repository.ErrEventNotFound
    }
    ev.Status = status
    return nil
}

func (s *fakeStore) AddTierSoldTx(_ context.Context, tierID uint64, delta int) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    for _, ev := range s.events {
        for i := range ev.Tiers {
            if ev.Tiers[i].ID == tierID {
                ev.Tiers[i].SoldCount += delta
                return nil
            }
        }
    }
    return repository.ErrTierNotFound
}

// --- HoldStore ---

func (s *fakeStore) ExpireTx(_ context.Context, eventID uint64, now time.Time) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    for id, h := range s.holds {
        if h.EventID == eventID && !h.ExpiresAt.After(now) {
            delete(s.holds, id)
        }
    }
    return nil
}

func (s *fakeStore) ActiveForEventTx(_ context.Context, eventID uint64) ([]model.SeatHold, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    var out []model.SeatHold
    for _, h := range s.holds {
        if h.EventID == eventID {
            out = append(out, *h)
        }
    }
    return out, nil
}

func (s *fakeStore) CreateMultipleTx(_ context.Context, eventID, holderID uint64, seats []model.SeatRef, expiresAt time.Time) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    for _, seat := range seats {
        s.nextHold++
        s.holds[s.nextHold] = &model.SeatHold{
            ID:        s.nextHold,
            EventID:   eventID,
            Seat:      seat,
            HolderID:  holderID,
            ExpiresAt: expiresAt,
        }
    }
    return nil
}

func (s *fakeStore) DeleteForHolderTx(_ context.Context, eventID, holderID uint64, seats []model.SeatRef) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    keys := make(map[string]bool, len(seats))
    for _, seat := range seats {
        keys[seat.Key()] = true
    }
    for id, h := range s.holds {
        if h.EventID == eventID && h.HolderID == holderID && keys[h.Seat.Key()] {
            delete(s.holds, id)
        }
    }
    return nil
}

// --- BookingStore ---

func (s *fakeStore) CreateBookingTx(_ context.Context, b *model.Booking) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.nextBooking++
    b.ID = s.nextBooking
    for i := range b.Tickets {
        s.nextTicket++
        b.Tickets[i].ID = s.nextTicket
        b.Tickets[i].BookingID = b.ID
    }
    s.bookings[b.ID] = copyBooking(b)
    return nil
}

func (s *fakeStore) getBooking(id uint64) (*model.Booking, error) {
    b, ok := s.bookings[id]
    if !ok {
        return nil, repository.ErrBookingNotFound
    }
    return copyBooking(b), nil
}

func (s *fakeStore) GetBookingByID(_ context.Context, id uint64) (*model.Booking, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.getBooking(id)
}

func (s *fakeStore) GetBookingForUpdateTx(ctx context.Context, id uint64) (*model.Booking, error) {
    return s.GetBookingByID(ctx, id)
}

func (s *fakeStore) UpdateBookingStatusTx(_ context.Context, id uint64, status model.BookingStatus) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    b, ok := s.bookings[id]
    if !ok {
        return repository.ErrBookingNotFound
    }
    b.Status = status
    return nil
}

func (s *fakeStore) SetPaymentTx(_ context.Context, id uint64, p model.PaymentInfo) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    b, ok := s.bookings[id]
    if !ok {
        return repository.ErrBookingNotFound
    }
    b.Status = model.BookingConfirmed
    b.Payment = p
    return nil
}

func (s *fakeStore) SetRefundTx(_ context.Context, id uint64, status model.BookingStatus, ref model.RefundInfo) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    b, ok := s.bookings[id]
    if !ok {
        return repository.ErrBookingNotFound
    }
    b.Status = status
    b.Refund = ref
    return nil
}

func (s *fakeStore) SetResolutionTx(_ context.Context, id, adminID uint64, at time.Time, feedback string) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    b, ok := s.bookings[id]
    if !ok {
        return repository.ErrBookingNotFound
    }
    b.ResolvedBy = &adminID
    b.ResolvedAt = &at
    b.AdminFeedback = feedback
    return nil
}

func (s *fakeStore) SetDisputeTx(_ context.Context, id uint64, reason string) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    b, ok := s.bookings[id]
    if !ok {
        return repository.ErrBookingNotFound
    }
    b.DisputeReason = reason
    return nil
}

func (s *fakeStore) SetCancelledTx(_ context.Context, id uint64, reason string) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    b, ok := s.bookings[id]
    if !ok {
        return repository.ErrBookingNotFound
    }
    b.Status = model.BookingCancelled
    b.CancelReason = reason
    return nil
}

func (s *fakeStore) SoldSeatsTx(_ context.Context, eventID uint64) ([]model.SeatRef, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    var out []model.SeatRef
    for _, b := range s.bookings {
        if b.EventID != eventID || b.Status == model.BookingCancelled || b.Status == model.BookingRefunded {
            continue
        }
        for i := range b.Tickets {
            if b.Tickets[i].Seat != nil {
                out = append(out, *b.Tickets[i].Seat)
            }
        }
    }
    return out, nil
}

func (s *fakeStore) FindTicketForScanTx(_ context.Context, eventID uint64, ticketNumber string) (*model.Ticket, *model.Booking, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    for _, b := range s.bookings {
        if b.EventID != eventID {
            continue
        }
        if b.Status != model.BookingConfirmed && b.Status != model.BookingPartialRefund {
            continue
        }
        for i := range b.Tickets {
            if b.Tickets[i].TicketNumber == ticketNumber {
                t := b.Tickets[i]
                return &t, copyBooking(b), nil
            }
        }
    }
    return nil, nil, repository.ErrTicketNotFound
}

func (s *fakeStore) MarkScannedTx(_ context.Context, ticketID, scannerID uint64, at time.Time) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    for _, b := range s.bookings {
        for i := range b.Tickets {
            if b.Tickets[i].ID == ticketID {
                b.Tickets[i].IsScanned = true
                b.Tickets[i].ScannedAt = &at
                b.Tickets[i].ScannedBy = &scannerID
                return nil
            }
        }
    }
    return repository.ErrTicketNotFound
}

func (s *fakeStore) ListByBuyer(_ context.Context, buyerID uint64) ([]model.Booking, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    var out []model.Booking
    for _, b := range s.bookings {
        if b.BuyerID == buyerID {
            out = append(out, *copyBooking(b))
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out, nil
}

func (s *fakeStore) ListByEvent(_ context.Context, eventID uint64) ([]model.Booking, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    var out []model.Booking
    for _, b := range s.bookings {
        if b.EventID == eventID {
            out = append(out, *copyBooking(b))
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out, nil
}

// seedEvent stores an event, assigning IDs to it and its zones and
// tiers.  Zone bindings declared by tier index in zoneOf are resolved
// after IDs exist.
func (s *fakeStore) seedEvent(ev model.Event, zoneOf map[int]int) *model.Event {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.nextEvent++
    ev.ID = s.nextEvent
    for i := range ev.Zones {
        s.nextZone++
        ev.Zones[i].ID = s.nextZone
        ev.Zones[i].EventID = ev.ID
    }
    for i := range ev.Tiers {
        s.nextTier++
        ev.Tiers[i].ID = s.nextTier
        ev.Tiers[i].EventID = ev.ID
        if zi, ok := zoneOf[i]; ok {
            zid := ev.Zones[zi].ID
            ev.Tiers[i].ZoneID = &zid
        }
    }
    s.events[ev.ID] = copyEvent(&ev)
    return copyEvent(&ev)
}

// bookingStore adapts fakeStore to the BookingStore interface; the
// method names CreateTx, GetByID, GetForUpdateTx and UpdateStatusTx
// would otherwise collide with the EventStore methods on fakeStore.
type bookingStore struct {
    s *fakeStore
}

func (a bookingStore) CreateTx(ctx context.Context, b *model.Booking) error {
    return a.s.CreateBookingTx(ctx, b)
}
func (a bookingStore) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
    return a.s.GetBookingByID(ctx, id)
}
func (a bookingStore) GetForUpdateTx(ctx context.Context, id uint64) (*model.Booking, error) {
    return a.s.GetBookingForUpdateTx(ctx, id)
}
func (a bookingStore) UpdateStatusTx(ctx context.Context, id uint64, status model.BookingStatus) error {
    return a.s.UpdateBookingStatusTx(ctx, id, status)
}
func (a bookingStore) SetPaymentTx(ctx context.Context, id uint64, p model.PaymentInfo) error {
    return a.s.SetPaymentTx(ctx, id, p)
}
func (a bookingStore) SetRefundTx(ctx context.Context, id uint64, status model.BookingStatus, ref model.RefundInfo) error {
    return a.s.SetRefundTx(ctx, id, status, ref)
}
func (a bookingStore) SetResolutionTx(ctx context.Context, id, adminID uint64, at time.Time, feedback string) error {
    return a.s.SetResolutionTx(ctx, id, adminID, at, feedback)
}
func (a bookingStore) SetDisputeTx(ctx context.Context, id uint64, reason string) error {
    return a.s.SetDisputeTx(ctx, id, reason)
}
func (a bookingStore) SetCancelledTx(ctx context.Context, id uint64, reason string) error {
    return a.s.SetCancelledTx(ctx, id, reason)
}
func (a bookingStore) SoldSeatsTx(ctx context.Context, eventID uint64) ([]model.SeatRef, error) {
    return a.s.SoldSeatsTx(ctx, eventID)
}
func (a bookingStore) FindTicketForScanTx(ctx context.Context, eventID uint64, ticketNumber string) (*model.Ticket, *model.Booking, error) {
    return a.s.FindTicketForScanTx(ctx, eventID, ticketNumber)
}
func (a bookingStore) MarkScannedTx(ctx context.Context, ticketID, scannerID uint64, at time.Time) error {
    return a.s.MarkScannedTx(ctx, ticketID, scannerID, at)
}
func (a bookingStore) ListByBuyer(ctx context.Context, buyerID uint64) ([]model.Booking, error) {
    return a.s.ListByBuyer(ctx, buyerID)
}
func (a bookingStore) ListByEvent(ctx context.Context, eventID uint64) ([]model.Booking, error) {
    return a.s.ListByEvent(ctx, eventID)
}

// --- side channel fakes ---

type fakeBroadcaster struct {
    mu    sync.Mutex
    calls []broadcastCall
}

type broadcastCall struct {
    EventID uint64
    Seats   []model.SeatRef
    Status  string
}

func (f *fakeBroadcaster) SeatStatusChanged(eventID uint64, seats []model.SeatRef, status string) {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.calls = append(f.calls, broadcastCall{EventID: eventID, Seats: seats, Status: status})
}

type fakeNotifier struct {
    mu   sync.Mutex
    sent []BookingNotification
    fail error
}

func (f *fakeNotifier) BookingConfirmed(_ context.Context, n BookingNotification) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.fail != nil {
        return f.fail
    }
    f.sent = append(f.sent, n)
    return nil
}

type fakeInvalidator struct {
    mu       sync.Mutex
    eventIDs []uint64
}

func (f *fakeInvalidator) Invalidate(_ context.Context, eventID uint64) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.eventIDs = append(f.eventIDs, eventID)
    return nil
}
