package checks

import (
	"context"
	"net/url"
	"strings"

	"github.com/nao1215/a11yscan/internal/browser"
	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/normalize"
)

// statementWords identify a link to an accessibility statement.
var statementWords = []string{"נגישות", "accessibility", "negishut", "accessibility-statement"}

// StatementCheck looks for a link to an accessibility statement, which
// IS 5568 requires on every site. It runs for every standard.
type StatementCheck struct {
	locale model.Locale
}

// NewStatementCheck creates a new StatementCheck.
func NewStatementCheck(locale model.Locale) *StatementCheck {
	return &StatementCheck{locale: locale}
}

// Key returns ACCESSIBILITY_STATEMENT.
func (c *StatementCheck) Key() string {
	return KeyAccessibilityStatement
}

// Run fires when no link text or href mentions accessibility.
func (c *StatementCheck) Run(ctx context.Context, doc *browser.Document) (*normalize.CheckResult, error) {
	if err := precheck(ctx, doc); err != nil {
		return nil, err
	}

	for _, a := range doc.Elements("a") {
		href := a.Attr("href")
		if decoded, err := url.PathUnescape(href); err == nil {
			href = decoded
		}
		haystack := strings.ToLower(a.Text() + " " + href)
		for _, w := range statementWords {
			if strings.Contains(haystack, w) {
				return nil, nil
			}
		}
	}

	return result(KeyAccessibilityStatement, "serious", "N/A", 1, c.locale, &model.Remediation{
		Summary: localized(c.locale,
			"פרסמו הצהרת נגישות וקשרו אליה מכל עמוד באתר, לרוב בכותרת התחתונה.",
			"Publish an accessibility statement and link to it from every page, usually in the footer."),
		CodeSample: `<footer><a href="/accessibility-statement">הצהרת נגישות</a></footer>`,
		Impact: localized(c.locale,
			"הצהרת נגישות היא דרישה מפורשת של תקנות הנגישות בישראל.",
			"An accessibility statement is an explicit requirement of the Israeli accessibility regulations."),
	}), nil
}
