package handler // handler defines http handlers

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/stagepass/event-ticketing/internal/repository"
    "github.com/stagepass/event-ticketing/internal/service"
)

// getUserID extracts the user_id from echo.Context and converts it to
// uint64.  JWT claims decode numbers as float64, so that case carries
// the load; the rest cover tests and future middleware.
func getUserID(c echo.Context) (uint64, error) {
    v := c.Get("user_id")
    switch t := v.(type) {
    case uint64:
        return t, nil
    case int:
        return uint64(t), nil
    case int64:
        return uint64(t), nil
    case float64:
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}

// getActor builds the service actor from the authenticated context.
func getActor(c echo.Context) (service.Actor, error) {
    id, err := getUserID(c)
    if err != nil {
        return service.Actor{}, err
    }
    role, _ := c.Get("role").(string)
    return service.Actor{ID: id, Role: role}, nil
}

// paramID parses a numeric path parameter.
func paramID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    return id, err == nil && id != 0
}

// httpError translates service sentinel errors into HTTP responses.
// Validation errors map to 400, lost races to 409, state violations to
// 422, and lookups to 404; anything unclassified is a 500 with a
// generic body so internals never leak.
func httpError(c echo.Context, err error) error {
    switch {
    case errors.Is(err, repository.ErrMissingField),
        errors.Is(err, repository.ErrTierNotFound),
        errors.Is(err, repository.ErrInvalidSeat):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    case errors.Is(err, repository.ErrSoldOut),
        errors.Is(err, repository.ErrSeatNotReserved),
        errors.Is(err, repository.ErrConflict),
        errors.Is(err, repository.ErrEmailExists):
        return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
    case errors.Is(err, repository.ErrNotBookable),
        errors.Is(err, repository.ErrAlreadyFinal),
        errors.Is(err, repository.ErrEventStarted):
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
    case errors.Is(err, repository.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, repository.ErrEventNotFound),
        errors.Is(err, repository.ErrBookingNotFound),
        errors.Is(err, repository.ErrTicketNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
    default:
        c.Logger().Errorf("internal error: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
    }
}
