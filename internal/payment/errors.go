package payment

import (
	"errors"
	"fmt"
)

// ErrNotFound is the family of not-found errors. Both ErrSessionNotFound
// and ErrTokenNotFound match it with errors.Is.
var ErrNotFound = errors.New("not found")

var (
	// ErrSessionNotFound is returned for unknown or purged session ids.
	ErrSessionNotFound error = &notFoundError{what: "payment session"}

	// ErrTokenNotFound is returned for unknown, expired or orphaned
	// download tokens. An expired token is indistinguishable from one that
	// never existed.
	ErrTokenNotFound error = &notFoundError{what: "download token"}
)

var (
	// ErrInvalidEmail is returned when the buyer email cannot be parsed.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrInvalidURL is returned when the scan target is not an absolute
	// http or https URL.
	ErrInvalidURL = errors.New("invalid URL: must be an absolute http or https URL")
)

type notFoundError struct {
	what string
}

func (e *notFoundError) Error() string {
	return e.what + " not found"
}

func (e *notFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ConfigurationError reports a missing or invalid gateway setting.
// It contains no user data and is safe to show as-is.
type ConfigurationError struct {
	Field string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("payment gateway is not configured: %s is missing", e.Field)
}

// GatewayError reports a transient failure talking to the payment gateway.
// Error returns a generic message; the remote diagnostic is only available
// through Unwrap.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return "payment gateway unavailable, please try again"
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
