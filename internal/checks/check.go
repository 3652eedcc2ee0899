package checks

import (
	"context"
	"errors"

	"github.com/nao1215/a11yscan/internal/browser"
	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/normalize"
)

// Check keys.
const (
	KeyKeyboardAccess         = "KEYBOARD_ACCESS"
	KeyFocusVisible           = "FOCUS_VISIBLE"
	KeySkipLink               = "SKIP_LINK"
	KeyFormErrors             = "FORM_ERRORS"
	KeyAccessibilityStatement = normalize.StatementCheckKey
)

// ErrNoDocument is returned when a check is run without a document.
var ErrNoDocument = errors.New("no document to check")

// Check is an interactive accessibility check run against a loaded page.
// Checks are independent read-only observations of the same document, so
// they may run concurrently.
type Check interface {
	// Key returns the check identifier, e.g. KEYBOARD_ACCESS.
	Key() string

	// Run evaluates the page. A nil result means the page passes.
	Run(ctx context.Context, doc *browser.Document) (*normalize.CheckResult, error)
}

// Defaults returns the five mandatory checks with remediation text in the
// given locale.
func Defaults(locale model.Locale) []Check {
	return []Check{
		NewKeyboardCheck(locale),
		NewFocusVisibleCheck(locale),
		NewSkipLinkCheck(locale),
		NewFormErrorsCheck(locale),
		NewStatementCheck(locale),
	}
}

// precheck validates the common preconditions of every check.
func precheck(ctx context.Context, doc *browser.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc == nil {
		return ErrNoDocument
	}
	return nil
}

// localized selects he or en text; any other locale gets Hebrew.
func localized(locale model.Locale, he, en string) string {
	if locale == model.LocaleEN {
		return en
	}
	return he
}

// result builds a CheckResult with the product title for key.
func result(key, severity, wcag string, count int, locale model.Locale, rem *model.Remediation) *normalize.CheckResult {
	return &normalize.CheckResult{
		Key:         key,
		Severity:    severity,
		WCAG:        wcag,
		Count:       count,
		Title:       model.GetRuleInfo(key).Title(locale),
		Remediation: rem,
	}
}
