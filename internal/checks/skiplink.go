package checks

import (
	"context"
	"strings"

	"github.com/nao1215/a11yscan/internal/browser"
	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/normalize"
)

// skipLinkWords identify a skip-to-content link in Hebrew or English.
var skipLinkWords = []string{"skip", "דלג", "main", "תוכן"}

// SkipLinkCheck looks for an in-page link that skips to the main content.
type SkipLinkCheck struct {
	locale model.Locale
}

// NewSkipLinkCheck creates a new SkipLinkCheck.
func NewSkipLinkCheck(locale model.Locale) *SkipLinkCheck {
	return &SkipLinkCheck{locale: locale}
}

// Key returns SKIP_LINK.
func (c *SkipLinkCheck) Key() string {
	return KeySkipLink
}

// Run fires when no fragment link mentions skipping to the content.
func (c *SkipLinkCheck) Run(ctx context.Context, doc *browser.Document) (*normalize.CheckResult, error) {
	if err := precheck(ctx, doc); err != nil {
		return nil, err
	}

	for _, a := range doc.Elements("a") {
		if !strings.HasPrefix(strings.TrimSpace(a.Attr("href")), "#") {
			continue
		}
		text := strings.ToLower(a.Text() + " " + a.Attr("aria-label"))
		for _, w := range skipLinkWords {
			if strings.Contains(text, w) {
				return nil, nil
			}
		}
	}

	return result(KeySkipLink, "moderate", "2.4.1", 1, c.locale, &model.Remediation{
		Summary: localized(c.locale,
			"הוסיפו קישור \"דלג לתוכן\" כרכיב הראשון בעמוד.",
			"Add a \"skip to content\" link as the first focusable element on the page."),
		CodeSample: `<a href="#main" class="skip-link">דלג לתוכן הראשי</a>`,
		Impact: localized(c.locale,
			"משתמשי מקלדת וקוראי מסך נאלצים לעבור על כל התפריט בכל עמוד.",
			"Keyboard and screen reader users must tab through the whole menu on every page."),
	}), nil
}
