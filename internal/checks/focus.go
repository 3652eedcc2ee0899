package checks

import (
	"context"
	"regexp"
	"strings"

	"github.com/nao1215/a11yscan/internal/browser"
	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/normalize"
)

// focusRulePattern matches CSS rules whose selector uses :focus,
// :focus-visible or :focus-within, capturing the declaration block.
var focusRulePattern = regexp.MustCompile(`(?is):focus(?:-visible|-within)?\b[^{}]*\{([^}]*)\}`)

// outlineRemovedPattern matches declarations that hide the focus outline.
var outlineRemovedPattern = regexp.MustCompile(`(?i)^\s*outline\s*:\s*(?:none|0(?:px)?)\s*(?:!important)?\s*$`)

// FocusVisibleCheck looks for a visible focus indicator in the page's
// style sheets or inline styles.
type FocusVisibleCheck struct {
	locale model.Locale
}

// NewFocusVisibleCheck creates a new FocusVisibleCheck.
func NewFocusVisibleCheck(locale model.Locale) *FocusVisibleCheck {
	return &FocusVisibleCheck{locale: locale}
}

// Key returns FOCUS_VISIBLE.
func (c *FocusVisibleCheck) Key() string {
	return KeyFocusVisible
}

// Run fires when no style defines a focus indicator.
func (c *FocusVisibleCheck) Run(ctx context.Context, doc *browser.Document) (*normalize.CheckResult, error) {
	if err := precheck(ctx, doc); err != nil {
		return nil, err
	}

	for _, css := range doc.StyleSheets() {
		if definesFocusStyle(css) {
			return nil, nil
		}
	}

	for _, el := range doc.Filter(isInteractive) {
		style := strings.ToLower(el.Attr("style"))
		if strings.Contains(style, "outline") && !strings.Contains(style, "outline:none") &&
			!strings.Contains(style, "outline: none") && !strings.Contains(style, "outline:0") {
			return nil, nil
		}
	}

	return result(KeyFocusVisible, "serious", "2.4.7", 1, c.locale, &model.Remediation{
		Summary: localized(c.locale,
			"הוסיפו סגנון :focus-visible ברור לכל הרכיבים האינטראקטיביים ואל תסירו את קו המתאר.",
			"Add a clear :focus-visible style to every interactive element and never remove the outline."),
		CodeSample: `:focus-visible { outline: 3px solid #1a73e8; outline-offset: 2px; }`,
		Impact: localized(c.locale,
			"משתמשי מקלדת אינם יודעים היכן הם נמצאים בעמוד.",
			"Keyboard users cannot tell where they are on the page."),
	}), nil
}

// definesFocusStyle reports whether css has a focus rule that does more
// than remove the outline.
func definesFocusStyle(css string) bool {
	for _, m := range focusRulePattern.FindAllStringSubmatch(css, -1) {
		for _, decl := range strings.Split(m[1], ";") {
			if strings.TrimSpace(decl) == "" || outlineRemovedPattern.MatchString(decl) {
				continue
			}
			return true
		}
	}
	return false
}
