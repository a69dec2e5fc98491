// Package repository defines the persistence layer and the sentinel
// error values shared across it.  These sentinels classify outcomes so
// that services and handlers can distinguish validation failures,
// legitimate lost races, state violations and authorization failures
// without string matching.  Handlers translate them into HTTP status
// codes; services return them unchanged from inside the atomic unit so
// that an aborted transaction still carries the specific reason.
package repository

import "errors"

// Validation errors: the request was malformed and never mutates
// state.  Safe to retry after correction.
var (
    // ErrTierNotFound is returned when a purchase names a ticket tier
    // that does not exist on the event.
    ErrTierNotFound = errors.New("ticket tier not found")

    // ErrInvalidSeat is returned when a seat reference does not address
    // an existing seat of the tier's zone.
    ErrInvalidSeat = errors.New("invalid seat")

    // ErrMissingField is returned when a required request field is
    // absent or empty.
    ErrMissingField = errors.New("missing required field")
)

// Conflict errors: a legitimate race was lost.  The caller should
// offer alternatives rather than blindly retry the same request.
var (
    // ErrSoldOut is returned when a tier has no remaining capacity.
    ErrSoldOut = errors.New("tier sold out")

    // ErrSeatNotReserved is returned when a purchase references a seat
    // that is not held by the buyer with a non-expired hold.
    ErrSeatNotReserved = errors.New("seat not reserved by buyer")

    // ErrConflict is returned when a hold cannot be placed because the
    // seat is already held by another holder or already sold.
    ErrConflict = errors.New("seat conflict")
)

// State errors: the entity is not in a state that permits the
// operation.  Not retryable; surfaced to the user verbatim.
var (
    // ErrNotBookable is returned when the event is not published.
    ErrNotBookable = errors.New("event not bookable")

    // ErrAlreadyFinal is returned when a booking in a terminal state
    // (cancelled or refunded) is asked to change status.
    ErrAlreadyFinal = errors.New("booking already in a final state")

    // ErrEventStarted is returned when a cancellation arrives after the
    // event's start time.
    ErrEventStarted = errors.New("event already started")
)

// Authorization and lookup errors.  Not-found is also used to avoid
// leaking the existence of records the caller may not see.
var (
    // ErrForbidden is returned when the caller is neither the booking's
    // buyer nor an admin (or does not own the event being managed).
    ErrForbidden = errors.New("forbidden")

    // ErrEventNotFound is returned when no event matches the requested ID.
    ErrEventNotFound = errors.New("event not found")

    // ErrBookingNotFound is returned when no booking matches the requested ID.
    ErrBookingNotFound = errors.New("booking not found")

    // ErrTicketNotFound is returned when no scannable ticket matches
    // the ticket number for the event.  Tickets of pending, cancelled
    // and refunded bookings are never scannable and report the same error.
    ErrTicketNotFound = errors.New("ticket not found")

    // ErrEmailExists is returned on registration with a taken email.
    ErrEmailExists = errors.New("email already exists")
)
