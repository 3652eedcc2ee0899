package browser

import "errors"

var (
	// ErrBlocked is returned when the target refuses automated access,
	// e.g. with HTTP 401, 403, 429 or 451.
	ErrBlocked = errors.New("access to the page was blocked")

	// ErrNavigation is returned when the page cannot be loaded: DNS
	// failures, refused connections, invalid URLs or non-2xx responses.
	ErrNavigation = errors.New("navigation failed")

	// ErrTimeout is returned when loading the page exceeds its deadline.
	ErrTimeout = errors.New("page load timed out")

	// ErrNotHTML is returned when the response is not an HTML document.
	ErrNotHTML = errors.New("response is not an HTML document")

	// ErrNoDocument is returned when a session is queried before a
	// successful navigation.
	ErrNoDocument = errors.New("no document loaded")

	// ErrSessionClosed is returned when a closed session is used.
	ErrSessionClosed = errors.New("session is closed")
)
