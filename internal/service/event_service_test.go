package service

import (
    "context"
    "testing"
    "time"

    "github.com/shopspring/decimal"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/stagepass/event-ticketing/internal/clock"
    "github.com/stagepass/event-ticketing/internal/model"
    "github.com/stagepass/event-ticketing/internal/repository"
)

func newEventService(s *fakeStore) *EventService {
    return NewEventService(s, s, s, bookingStore{s}, clock.NewFixed(testNow))
}

func createInput() CreateEventInput {
    return CreateEventInput{
        Name:     "Autumn Recital",
        Venue:    "Chamber Hall",
        StartsAt: testNow.Add(60 * 24 * time.Hour),
        Currency: "USD",
        Zones: []ZoneInput{
            {Name: "Balcony", Rows: 3, Cols: 8},
        },
        Tiers: []TierInput{
            {Name: "Balcony Seat", Price: decimal.NewFromInt(40), Capacity: 24, ZoneName: "Balcony"},
            {Name: "Standing", Price: decimal.NewFromInt(15), Capacity: 100},
        },
    }
}

func TestCreateEvent(t *testing.T) {
    store := newFakeStore()
    svc := newEventService(store)

    ev, err := svc.CreateEvent(context.Background(), 99, createInput())
    require.NoError(t, err)

    assert.Equal(t, model.EventDraft, ev.Status)
    assert.Equal(t, uint64(99), ev.OrganizerID)
    require.Len(t, ev.Zones, 1)
    require.Len(t, ev.Tiers, 2)

    // The seated tier is bound to its zone by ID; the standing tier is
    // general admission.
    require.NotNil(t, ev.Tiers[0].ZoneID)
    assert.Equal(t, ev.Zones[0].ID, *ev.Tiers[0].ZoneID)
    assert.Nil(t, ev.Tiers[1].ZoneID)
}

func TestCreateEventValidation(t *testing.T) {
    store := newFakeStore()
    svc := newEventService(store)
    ctx := context.Background()

    in := createInput()
    in.Name = ""
    _, err := svc.CreateEvent(ctx, 99, in)
    assert.ErrorIs(t, err, repository.ErrMissingField)

    in = createInput()
    in.Tiers = nil
    _, err = svc.CreateEvent(ctx, 99, in)
    assert.ErrorIs(t, err, repository.ErrMissingField)

    in = createInput()
    in.Tiers[1].Name = in.Tiers[0].Name
    _, err = svc.CreateEvent(ctx, 99, in)
    assert.ErrorIs(t, err, repository.ErrConflict)

    in = createInput()
    in.Tiers[0].ZoneName = "Mezzanine"
    _, err = svc.CreateEvent(ctx, 99, in)
    assert.ErrorIs(t, err, repository.ErrMissingField)

    // A seated tier cannot promise more tickets than its zone has
    // seats, and the failed request leaves nothing behind.
    in = createInput()
    in.Tiers[0].Capacity = 25
    _, err = svc.CreateEvent(ctx, 99, in)
    assert.ErrorIs(t, err, repository.ErrInvalidSeat)
    events, err := svc.ListMine(ctx, 99)
    require.NoError(t, err)
    assert.Empty(t, events)
}

func TestPublish(t *testing.T) {
    store := newFakeStore()
    svc := newEventService(store)
    ctx := context.Background()

    ev, err := svc.CreateEvent(ctx, 99, createInput())
    require.NoError(t, err)

    _, err = svc.Publish(ctx, ev.ID, Actor{ID: 50, Role: model.RoleOrganizer})
    assert.ErrorIs(t, err, repository.ErrForbidden)

    published, err := svc.Publish(ctx, ev.ID, Actor{ID: 99, Role: model.RoleOrganizer})
    require.NoError(t, err)
    assert.Equal(t, model.EventPublished, published.Status)

    // Publishing is a one-way move out of draft.
    _, err = svc.Publish(ctx, ev.ID, Actor{ID: 99, Role: model.RoleOrganizer})
    assert.ErrorIs(t, err, repository.ErrNotBookable)
}

func TestCancelEvent(t *testing.T) {
    store := newFakeStore()
    svc := newEventService(store)
    ctx := context.Background()

    ev, err := svc.CreateEvent(ctx, 99, createInput())
    require.NoError(t, err)

    cancelled, err := svc.CancelEvent(ctx, ev.ID, Actor{ID: 1, Role: model.RoleAdmin})
    require.NoError(t, err)
    assert.Equal(t, model.EventCancelled, cancelled.Status)

    _, err = svc.CancelEvent(ctx, ev.ID, Actor{ID: 99, Role: model.RoleOrganizer})
    assert.ErrorIs(t, err, repository.ErrAlreadyFinal)
}

func TestPublicVisibility(t *testing.T) {
    store := newFakeStore()
    svc := newEventService(store)
    ctx := context.Background()

    draft, err := svc.CreateEvent(ctx, 99, createInput())
    require.NoError(t, err)
    published := seatedEvent(store, 4, 10)

    _, err = svc.GetPublic(ctx, draft.ID)
    assert.ErrorIs(t, err, repository.ErrEventNotFound)
    got, err := svc.GetPublic(ctx, published.ID)
    require.NoError(t, err)
    assert.Equal(t, published.ID, got.ID)

    list, err := svc.ListPublic(ctx)
    require.NoError(t, err)
    require.Len(t, list, 1)
    assert.Equal(t, published.ID, list[0].ID)
}

func TestSeatMap(t *testing.T) {
    store := newFakeStore()
    ev := seatedEvent(store, 4, 10)
    svc := newEventService(store)
    ctx := context.Background()

    sold := seatAt(ev, 1, 1)
    held := seatAt(ev, 1, 2)
    expired := seatAt(ev, 1, 3)
    holdSeats(t, store, ev.ID, 7, sold)
    _, err := newBookingService(store, nil, nil).Purchase(ctx,
        purchase(ev.ID, 7, TicketRequest{TierName: "VIP", Seat: &sold}))
    require.NoError(t, err)
    holdSeats(t, store, ev.ID, 8, held)
    require.NoError(t, store.CreateMultipleTx(ctx, ev.ID, 9, []model.SeatRef{expired}, testNow.Add(-time.Minute)))

    seats, err := svc.SeatMap(ctx, ev.ID)
    require.NoError(t, err)
    require.Len(t, seats, 100)

    byKey := make(map[string]string, len(seats))
    for _, s := range seats {
        byKey[s.Seat.Key()] = s.Status
    }
    assert.Equal(t, "sold", byKey[sold.Key()])
    assert.Equal(t, "held", byKey[held.Key()])
    // Expired holds read as free even before they are reclaimed.
    assert.Equal(t, "free", byKey[expired.Key()])
    assert.Equal(t, "free", byKey[seatAt(ev, 10, 10).Key()])
}

func TestEventBookings(t *testing.T) {
    store := newFakeStore()
    ev := seatedEvent(store, 4, 10)
    svc := newEventService(store)
    ctx := context.Background()

    _, err := newBookingService(store, nil, nil).Purchase(ctx,
        purchase(ev.ID, 7, TicketRequest{TierName: "GA"}))
    require.NoError(t, err)

    bookings, err := svc.EventBookings(ctx, ev.ID, Actor{ID: 99, Role: model.RoleOrganizer})
    require.NoError(t, err)
    assert.Len(t, bookings, 1)

    _, err = svc.EventBookings(ctx, ev.ID, Actor{ID: 50, Role: model.RoleOrganizer})
    assert.ErrorIs(t, err, repository.ErrForbidden)
}
