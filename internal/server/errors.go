package server

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/textjournal/backend/internal/services"
)

const internalErrorMessage = "Internal server error"

type errorResponse struct {
	Error string `json:"error" example:"Invalid email address"`
}

type rateLimitedResponse struct {
	Error        string    `json:"error"`
	BlockedUntil time.Time `json:"blocked_until"`
}

type lockedResponse struct {
	Error       string    `json:"error"`
	LockedUntil time.Time `json:"locked_until"`
}

// writeError maps service errors onto status families. Anything not
// recognised is logged and collapsed into a generic 500.
func (s *Server) writeError(c echo.Context, err error) error {
	var (
		validation *services.ValidationError
		limited    *services.RateLimitError
		locked     *services.LockoutError
		provider   *services.ProviderError
	)
	switch {
	case errors.As(err, &validation):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: validation.Message})
	case errors.As(err, &limited):
		if wait := limited.BlockedUntil.Sub(s.now()); wait > 0 {
			c.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		}
		return c.JSON(http.StatusTooManyRequests, rateLimitedResponse{Error: limited.Error(), BlockedUntil: limited.BlockedUntil})
	case errors.As(err, &locked):
		return c.JSON(http.StatusLocked, lockedResponse{Error: locked.Error(), LockedUntil: locked.LockedUntil})
	case errors.As(err, &provider):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: provider.Message})
	case errors.Is(err, services.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
	case errors.Is(err, services.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "Not found"})
	case errors.Is(err, services.ErrUnknownPhone):
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	}
	s.Log.Error(c.Request().Context(), "request failed", "path", c.Path(), "error", err)
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: internalErrorMessage})
}

func validationMessage(err error) (string, bool) {
	var validation *services.ValidationError
	if errors.As(err, &validation) {
		return validation.Message, true
	}
	return "", false
}
