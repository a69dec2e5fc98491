package service

import (
    "context"
    "strings"
    "sync"
    "testing"
    "time"

    "github.com/shopspring/decimal"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/stagepass/event-ticketing/internal/clock"
    "github.com/stagepass/event-ticketing/internal/model"
    "github.com/stagepass/event-ticketing/internal/repository"
)

func newBookingService(s *fakeStore, inv SeatMapInvalidator, rt Broadcaster) *BookingService {
    return NewBookingService(s, s, s, bookingStore{s}, clock.NewFixed(testNow), inv, rt)
}

func holdSeats(t *testing.T, s *fakeStore, eventID, buyerID uint64, seats ...model.SeatRef) {
    t.Helper()
    require.NoError(t, s.CreateMultipleTx(context.Background(), eventID, buyerID, seats, testNow.Add(holdTTL)))
}

func purchase(eventID, buyerID uint64, tickets ...TicketRequest) PurchaseInput {
    return PurchaseInput{
        EventID:      eventID,
        BuyerID:      buyerID,
        Tickets:      tickets,
        ContactName:  "Ada Lovelace",
        ContactEmail: "ada@example.com",
    }
}

func TestPurchase(t *testing.T) {
    store := newFakeStore()
    ev := seatedEvent(store, 4, 10)
    inv := &fakeInvalidator{}
    rt := &fakeBroadcaster{}
    svc := newBookingService(store, inv, rt)
    ctx := context.Background()

    seat := seatAt(ev, 1, 1)
    holdSeats(t, store, ev.ID, 7, seat)

    booking, err := svc.Purchase(ctx, purchase(ev.ID, 7,
        TicketRequest{TierName: "VIP", Seat: &seat},
        TicketRequest{TierName: "GA"},
        TicketRequest{TierName: "GA"},
    ))
    require.NoError(t, err)

    assert.Equal(t, model.BookingPending, booking.Status)
    assert.Equal(t, "150", booking.TotalAmount.String())
    assert.Equal(t, "USD", booking.Currency)
    require.Len(t, booking.Tickets, 3)
    for _, tk := range booking.Tickets {
        assert.True(t, strings.HasPrefix(tk.TicketNumber, "TKT-"))
    }
    assert.Equal(t, &seat, booking.Tickets[0].Seat)
    assert.Nil(t, booking.Tickets[1].Seat)

    // Inventory moved and the hold was consumed.
    got, err := store.GetByID(ctx, ev.ID)
    require.NoError(t, err)
    assert.Equal(t, 1, got.TierByName("VIP").SoldCount)
    assert.Equal(t, 2, got.TierByName("GA").SoldCount)
    holds, err := store.ActiveForEventTx(ctx, ev.ID)
    require.NoError(t, err)
    assert.Empty(t, holds)

    assert.Equal(t, []uint64{ev.ID}, inv.eventIDs)
    require.Len(t, rt.calls, 1)
    assert.Equal(t, "sold", rt.calls[0].Status)
    assert.Equal(t, []model.SeatRef{seat}, rt.calls[0].Seats)
}

func TestPurchaseWithoutActiveHold(t *testing.T) {
    store := newFakeStore()
    ev := seatedEvent(store, 4, 10)
    svc := newBookingService(store, nil, nil)
    ctx := context.Background()

    // No hold at all.
    seat := seatAt(ev, 1, 1)
    _, err := svc.Purchase(ctx, purchase(ev.ID, 7, TicketRequest{TierName: "VIP", Seat: &seat}))
    assert.ErrorIs(t, err, repository.ErrSeatNotReserved)

    // A hold that expired a minute ago is as good as none, and the
    // failed purchase must leave no trace.
    require.NoError(t, store.CreateMultipleTx(ctx, ev.ID, 7, []model.SeatRef{seat}, testNow.Add(-time.Minute)))
    _, err = svc.Purchase(ctx, purchase(ev.ID, 7, TicketRequest{TierName: "VIP", Seat: &seat}))
    assert.ErrorIs(t, err, repository.ErrSeatNotReserved)

    got, err := store.GetByID(ctx, ev.ID)
    require.NoError(t, err)
    assert.Equal(t, 0, got.TierByName("VIP").SoldCount)
    bookings, err := store.ListByBuyer(ctx, 7)
    require.NoError(t, err)
    assert.Empty(t, bookings)
}

func TestPurchaseSomeoneElsesHold(t *testing.T) {
    store := newFakeStore()
    ev := seatedEvent(store, 4, 10)
    svc := newBookingService(store, nil, nil)

    seat := seatAt(ev, 2, 2)
    holdSeats(t, store, ev.ID, 8, seat)

    _, err := svc.Purchase(context.Background(), purchase(ev.ID, 7, TicketRequest{TierName: "VIP", Seat: &seat}))
    assert.ErrorIs(t, err, repository.ErrSeatNotReserved)
}

func TestPurchaseValidation(t *testing.T) {
    store := newFakeStore()
    ev := seatedEvent(store, 4, 10)
    svc := newBookingService(store, nil, nil)
    ctx := context.Background()

    _, err := svc.Purchase(ctx, purchase(ev.ID, 7, TicketRequest{TierName: "Platinum"}))
    assert.ErrorIs(t, err, repository.ErrTierNotFound)

    // Seated tier without a seat, and GA with one.
    _, err = svc.Purchase(ctx, purchase(ev.ID, 7, TicketRequest{TierName: "VIP"}))
    assert.ErrorIs(t, err, repository.ErrInvalidSeat)
    seat := seatAt(ev, 1, 1)
    _, err = svc.Purchase(ctx, purchase(ev.ID, 7, TicketRequest{TierName: "GA", Seat: &seat}))
    assert.ErrorIs(t, err, repository.ErrInvalidSeat)

    in := purchase(ev.ID, 7, TicketRequest{TierName: "GA"})
    in.ContactEmail = ""
    _, err = svc.Purchase(ctx, in)
    assert.ErrorIs(t, err, repository.ErrMissingField)

    _, err = svc.Purchase(ctx, purchase(ev.ID, 7))
    assert.ErrorIs(t, err, repository.ErrMissingField)
}

func TestPurchaseSoldOutTier(t *testing.T) {
    store := newFakeStore()
    ev := seatedEvent(store, 4, 2)
    svc := newBookingService(store, nil, nil)

    _, err := svc.Purchase(context.Background(), purchase(ev.ID, 7,
        TicketRequest{TierName: "GA"},
        TicketRequest{TierName: "GA"},
        TicketRequest{TierName: "GA"},
    ))
    assert.ErrorIs(t, err, repository.ErrSoldOut)
}

func TestPurchaseMarksEventSoldOut(t *testing.T) {
    store := newFakeStore()
    ev := seatedEvent(store, 1, 1)
    svc := newBookingService(store, nil, nil)
    ctx := context.Background()

    seat := seatAt(ev, 1, 1)
    holdSeats(t, store, ev.ID, 7, seat)
    _, err := svc.Purchase(ctx, purchase(ev.ID, 7,
        TicketRequest{TierName: "VIP", Seat: &seat},
        TicketRequest{TierName: "GA"},
    ))
    require.NoError(t, err)

    got, err := store.GetByID(ctx, ev.ID)
    require.NoError(t, err)
    assert.Equal(t, model.EventSoldOut, got.Status)
}

func TestPurchaseRaceForLastTicket(t *testing.T) {
    store := newFakeStore()
    ev := seatedEvent(store, 4, 1)
    svc := newBookingService(store, nil, nil)

    // Two buyers race for the single remaining GA ticket; exactly one
    // may win and capacity must not oversell.
    results := make([]error, 2)
    var wg sync.WaitGroup
    for i := 0; i < 2; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            _, err := svc.Purchase(context.Background(), purchase(ev.ID, uint64(10+i), TicketRequest{TierName: "GA"}))
            results[i] = err
        }(i)
    }
    wg.Wait()

    winners := 0
    for _, err := range results {
        if err == nil {
            winners++
        } else {
            assert.ErrorIs(t, err, repository.ErrSoldOut)
        }
    }
    assert.Equal(t, 1, winners)

    got, err := store.GetByID(context.Background(), ev.ID)
    require.NoError(t, err)
    assert.Equal(t, 1, got.TierByName("GA").SoldCount)
}

func TestCancelReturnsInventory(t *testing.T) {
    store := newFakeStore()
    ev := seatedEvent(store, 4, 10)
    inv := &fakeInvalidator{}
    rt := &fakeBroadcaster{}
    svc := newBookingService(store, inv, rt)
    ctx := context.Background()

    seat := seatAt(ev, 1, 1)
    holdSeats(t, store, ev.ID, 7, seat)
    booking, err := svc.Purchase(ctx, purchase(ev.ID, 7,
        TicketRequest{TierName: "VIP", Seat: &seat},
        TicketRequest{TierName: "GA"},
        TicketRequest{TierName: "GA"},
        TicketRequest{TierName: "GA"},
    ))
    require.NoError(t, err)

    cancelled, err := svc.Cancel(ctx, booking.ID, Actor{ID: 7, Role: model.RoleBuyer}, "plans changed")
    require.NoError(t, err)
    assert.Equal(t, model.BookingCancelled, cancelled.Status)
    assert.Equal(t, "plans changed", cancelled.CancelReason)

    got, err := store.GetByID(ctx, ev.ID)
    require.NoError(t, err)
    assert.Equal(t, 0, got.TierByName("VIP").SoldCount)
    assert.Equal(t, 0, got.TierByName("GA").SoldCount)

    // The freed seat is announced and the cached map dropped.
    last := rt.calls[len(rt.calls)-1]
    assert.Equal(t, "free", last.Status)
    assert.Equal(t, []model.SeatRef{seat}, last.Seats)
    assert.Contains(t, inv.eventIDs, ev.ID)
}

func TestCancelRevertsSoldOut(t *testing.T) {
    store := newFakeStore()
    ev := seatedEvent(store, 1, 1)
    svc := newBookingService(store, nil, nil)
    ctx := context.Background()

    seat := seatAt(ev, 1, 1)
    holdSeats(t, store, ev.ID, 7, seat)
    booking, err := svc.Purchase(ctx, purchase(ev.ID, 7,
        TicketRequest{TierName: "VIP", Seat: &seat},
        TicketRequest{TierName: "GA"},
    ))
    require.NoError(t, err)

    _, err = svc.Cancel(ctx, booking.ID, Actor{ID: 7, Role: model.RoleBuyer}, "")
    require.NoError(t, err)

    got, err := store.GetByID(ctx, ev.ID)
    require.NoError(t, err)
    assert.Equal(t, model.EventPublished, got.Status)
}

func TestCancelGuards(t *testing.T) {
    store := newFakeStore()
    ev := seatedEvent(store, 4, 10)
    svc := newBookingService(store, nil, nil)
    ctx := context.Background()

    booking, err := svc.Purchase(ctx, purchase(ev.ID, 7, TicketRequest{TierName: "GA"}))
    require.NoError(t, err)

    // Neither the buyer nor an admin: forbidden.
    _, err = svc.Cancel(ctx, booking.ID, Actor{ID: 8, Role: model.RoleBuyer}, "")
    assert.ErrorIs(t, err, repository.ErrForbidden)

    // Admins may cancel on the buyer's behalf; a second cancel hits
    // the terminal state.
    _, err = svc.Cancel(ctx, booking.ID, Actor{ID: 1, Role: model.RoleAdmin}, "support request")
    require.NoError(t, err)
    _, err = svc.Cancel(ctx, booking.ID, Actor{ID: 7, Role: model.RoleBuyer}, "")
    assert.ErrorIs(t, err, repository.ErrAlreadyFinal)

    _, err = svc.Cancel(ctx, 404, Actor{ID: 7, Role: model.RoleBuyer}, "")
    assert.ErrorIs(t, err, repository.ErrBookingNotFound)
}

func TestCancelAfterEventStart(t *testing.T) {
    store := newFakeStore()
    ev := store.seedEvent(model.Event{
        OrganizerID: 99,
        Name:        "Last Night",
        Venue:       "Grand Hall",
        StartsAt:    testNow.Add(-time.Hour),
        Currency:    "USD",
        Status:      model.EventPublished,
        Tiers:       []model.TicketTier{{Name: "GA", UnitPrice: decimal.NewFromInt(25), Capacity: 10}},
    }, nil)
    svc := newBookingService(store, nil, nil)
    ctx := context.Background()

    booking, err := svc.Purchase(ctx, purchase(ev.ID, 7, TicketRequest{TierName: "GA"}))
    require.NoError(t, err)

    _, err = svc.Cancel(ctx, booking.ID, Actor{ID: 7, Role: model.RoleBuyer}, "")
    assert.ErrorIs(t, err, repository.ErrEventStarted)
}

func TestGetBookingVisibility(t *testing.T) {
    store := newFakeStore()
    ev := seatedEvent(store, 4, 10)
    svc := newBookingService(store, nil, nil)
    ctx := context.Background()

    booking, err := svc.Purchase(ctx, purchase(ev.ID, 7, TicketRequest{TierName: "GA"}))
    require.NoError(t, err)

    for _, actor := range []Actor{
        {ID: 7, Role: model.RoleBuyer},
        {ID: 1, Role: model.RoleAdmin},
        {ID: 99, Role: model.RoleOrganizer}, // event owner
    } {
        got, err := svc.GetBooking(ctx, booking.ID, actor)
        require.NoError(t, err)
        assert.Equal(t, booking.ID, got.ID)
    }

    // Strangers get not-found, not forbidden, so existence stays hidden.
    _, err = svc.GetBooking(ctx, booking.ID, Actor{ID: 42, Role: model.RoleBuyer})
    assert.ErrorIs(t, err, repository.ErrBookingNotFound)
}
