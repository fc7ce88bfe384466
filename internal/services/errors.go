package services

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrEmailTaken   = errors.New("User already registered")
	ErrInvalidLogin = errors.New("Invalid login credentials")
	ErrUnknownPhone = errors.New("no user registered for this phone number")

	// bcrypt only hashes the first 72 bytes
	ErrPasswordTooLong = errors.New("Password cannot be longer than 72 bytes")
)

// ValidationError is malformed or unacceptable input. Always 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// RateLimitError means the identifier exhausted its attempts for the window.
type RateLimitError struct {
	BlockedUntil time.Time
}

func (e *RateLimitError) Error() string {
	return "Too many attempts. Please try again later."
}

// LockoutError means the account is locked after repeated failed sign-ins.
type LockoutError struct {
	LockedUntil time.Time
}

func (e *LockoutError) Error() string {
	return "Account temporarily locked due to too many failed sign-in attempts."
}

// ProviderError carries the identity provider's message verbatim.
type ProviderError struct {
	Message string
	Err     error
}

func (e *ProviderError) Error() string { return e.Message }

func (e *ProviderError) Unwrap() error { return e.Err }

func providerError(err error) error {
	return &ProviderError{Message: err.Error(), Err: err}
}
