package client

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotSignedIn  = errors.New("not signed in")
	ErrClosed       = errors.New("client closed")
)

// ValidationError is a 400 from the gateway. It is never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// RateLimitError carries the end of the blocking window.
type RateLimitError struct {
	Message      string
	BlockedUntil time.Time
}

func (e *RateLimitError) Error() string { return e.Message }

// RetryAfter is how long to wait from now before the next attempt.
func (e *RateLimitError) RetryAfter(now time.Time) time.Duration {
	if d := e.BlockedUntil.Sub(now); d > 0 {
		return d
	}
	return 0
}

// LockoutError is terminal until LockedUntil.
type LockoutError struct {
	Message     string
	LockedUntil time.Time
}

func (e *LockoutError) Error() string { return e.Message }

// ProviderError is the identity provider's rejection, passed on verbatim.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string { return e.Message }

// ServerError is any other non-success response.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}
