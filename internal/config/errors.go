package config

import "errors"

// Configuration validation errors, returned by the Validate methods.
var (
	// ErrNoTarget is returned when scan is given no URL.
	ErrNoTarget = errors.New("no target specified: provide a URL or use --list")

	// ErrInvalidStandard is returned for an unsupported standard.
	ErrInvalidStandard = errors.New("invalid standard: must be IL_5568 or WCAG_2_2_AA")

	// ErrInvalidLocale is returned for an unsupported locale.
	ErrInvalidLocale = errors.New("invalid locale: must be he or en")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are given.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidListenAddress is returned when serve has no address.
	ErrInvalidListenAddress = errors.New("invalid listen address: must not be empty")

	// ErrInvalidBaseURL is returned when the frontend or backend URL is
	// not an absolute http(s) URL.
	ErrInvalidBaseURL = errors.New("invalid frontend or backend URL: must be an absolute http(s) URL")

	// ErrInvalidAmount is returned when the report price is not positive.
	ErrInvalidAmount = errors.New("invalid payment amount: must be positive")

	// ErrInvalidRetention is returned when the session retention or token
	// window is not positive.
	ErrInvalidRetention = errors.New("invalid retention: session retention and token window must be positive")

	// ErrInvalidSMTPPort is returned for a port outside 1-65535.
	ErrInvalidSMTPPort = errors.New("invalid SMTP port")

	// ErrInvalidEnv is returned when an environment variable cannot be parsed.
	ErrInvalidEnv = errors.New("invalid environment variable")
)
