package pipeline

import (
	"context"
	"errors"

	"github.com/nao1215/a11yscan/internal/browser"
	"github.com/nao1215/a11yscan/internal/model"
)

// FailureReason is the category of a failed scan.
type FailureReason string

const (
	// ReasonTimeout means the page did not load or analyze within the
	// deadline, or the caller canceled the scan.
	ReasonTimeout FailureReason = "TIMEOUT"

	// ReasonBlocked means the site refused automated access.
	ReasonBlocked FailureReason = "BLOCKED"

	// ReasonNavigation means the page could not be loaded.
	ReasonNavigation FailureReason = "NAVIGATION_ERROR"

	// ReasonPartial means the page loaded but could not be analyzed.
	ReasonPartial FailureReason = "PARTIAL"
)

// ScanFailure is returned by Assemble when a scan cannot produce a report.
// Error returns only the category; the diagnostic is available through
// Unwrap for logging and must not be shown to end users.
type ScanFailure struct {
	Reason FailureReason
	Err    error
}

func (f *ScanFailure) Error() string {
	return string(f.Reason)
}

func (f *ScanFailure) Unwrap() error {
	return f.Err
}

var failureMessages = map[FailureReason]map[model.Locale]string{
	ReasonTimeout: {
		model.LocaleHE: "טעינת האתר ארכה זמן רב מדי. נסו שוב מאוחר יותר.",
		model.LocaleEN: "The site took too long to load. Please try again later.",
	},
	ReasonBlocked: {
		model.LocaleHE: "האתר חסם את הסריקה האוטומטית.",
		model.LocaleEN: "The site blocked the automated scan.",
	},
	ReasonNavigation: {
		model.LocaleHE: "לא ניתן היה לטעון את האתר. בדקו את הכתובת ונסו שוב.",
		model.LocaleEN: "The site could not be loaded. Check the address and try again.",
	},
	ReasonPartial: {
		model.LocaleHE: "הסריקה לא הושלמה. נסו שוב.",
		model.LocaleEN: "The scan could not be completed. Please try again.",
	},
}

// UserMessage returns a message that is safe to show to end users.
// Unknown locales get Hebrew.
func (f *ScanFailure) UserMessage(locale model.Locale) string {
	msgs, ok := failureMessages[f.Reason]
	if !ok {
		msgs = failureMessages[ReasonPartial]
	}
	if msg, ok := msgs[locale]; ok {
		return msg
	}
	return msgs[model.LocaleHE]
}

// navigationFailure classifies an error from opening a session or loading
// the page.
func navigationFailure(err error) *ScanFailure {
	switch {
	case isTimeout(err):
		return &ScanFailure{Reason: ReasonTimeout, Err: err}
	case errors.Is(err, browser.ErrBlocked):
		return &ScanFailure{Reason: ReasonBlocked, Err: err}
	default:
		return &ScanFailure{Reason: ReasonNavigation, Err: err}
	}
}

// analysisFailure classifies an error that happened after navigation.
func analysisFailure(err error) *ScanFailure {
	if isTimeout(err) {
		return &ScanFailure{Reason: ReasonTimeout, Err: err}
	}
	return &ScanFailure{Reason: ReasonPartial, Err: err}
}

func isTimeout(err error) bool {
	return errors.Is(err, browser.ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
