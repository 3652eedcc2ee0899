package checks

import (
	"context"
	"strings"

	"github.com/nao1215/a11yscan/internal/browser"
	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/normalize"
)

// keyboardThreshold is the share of interactive elements that must be
// focusable for the page to pass.
const keyboardThreshold = 0.9

// interactiveTags are elements users are expected to operate.
var interactiveTags = map[string]bool{
	"button":   true,
	"a":        true,
	"input":    true,
	"select":   true,
	"textarea": true,
}

// KeyboardCheck estimates keyboard reachability by comparing the number of
// focusable elements with the number of interactive elements.
// It is a ratio heuristic, not a per-element tab walk.
type KeyboardCheck struct {
	locale model.Locale
}

// NewKeyboardCheck creates a new KeyboardCheck.
func NewKeyboardCheck(locale model.Locale) *KeyboardCheck {
	return &KeyboardCheck{locale: locale}
}

// Key returns KEYBOARD_ACCESS.
func (c *KeyboardCheck) Key() string {
	return KeyKeyboardAccess
}

// Run counts interactive and focusable elements.
func (c *KeyboardCheck) Run(ctx context.Context, doc *browser.Document) (*normalize.CheckResult, error) {
	if err := precheck(ctx, doc); err != nil {
		return nil, err
	}

	interactive := doc.Filter(isInteractive)
	focusable := 0
	for _, el := range interactive {
		if isFocusable(el) {
			focusable++
		}
	}

	total := len(interactive)
	if total == 0 || float64(focusable) >= keyboardThreshold*float64(total) {
		return nil, nil
	}

	return result(KeyKeyboardAccess, "critical", "2.1.1", total-focusable, c.locale, &model.Remediation{
		Summary: localized(c.locale,
			"ודאו שכל רכיב אינטראקטיבי ניתן להפעלה ולהגעה באמצעות המקלדת.",
			"Make sure every interactive element can be reached and operated with the keyboard."),
		CodeSample: `<button type="button">Open menu</button>  <!-- not <div onclick> -->`,
		Impact: localized(c.locale,
			"משתמשים שאינם משתמשים בעכבר אינם יכולים להפעיל חלקים מהאתר.",
			"Users who cannot use a mouse are unable to operate parts of the site."),
	}), nil
}

func isInteractive(el *browser.Element) bool {
	return interactiveTags[el.Tag()] || el.HasAttr("tabindex")
}

// isFocusable reports whether el can receive keyboard focus.
func isFocusable(el *browser.Element) bool {
	if el.HasAttr("disabled") || el.HasAttr("hidden") {
		return false
	}
	// input[type=hidden] computes to display:none.
	if el.Tag() == "input" && strings.EqualFold(el.Attr("type"), "hidden") {
		return false
	}
	if strings.TrimSpace(el.Attr("tabindex")) == "-1" {
		return false
	}
	if el.Tag() == "a" && !el.HasAttr("href") && !el.HasAttr("tabindex") {
		return false
	}
	style := strings.ReplaceAll(strings.ToLower(el.Attr("style")), " ", "")
	if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
		return false
	}
	return true
}
