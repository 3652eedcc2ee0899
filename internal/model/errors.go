package model

import "errors"

var (
	// ErrInvalidStandard is returned when a standard name is not one of
	// WCAG_2_2_AA or IL_5568.
	ErrInvalidStandard = errors.New("invalid standard: must be WCAG_2_2_AA or IL_5568")

	// ErrInvalidLocale is returned when a locale is not one of he or en.
	ErrInvalidLocale = errors.New("invalid locale: must be he or en")
)
