package checks

import (
	"context"
	"slices"
	"strings"

	"github.com/nao1215/a11yscan/internal/browser"
	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/normalize"
)

// FormErrorsCheck looks for any error reporting mechanism inside the
// page's forms.
type FormErrorsCheck struct {
	locale model.Locale
}

// NewFormErrorsCheck creates a new FormErrorsCheck.
func NewFormErrorsCheck(locale model.Locale) *FormErrorsCheck {
	return &FormErrorsCheck{locale: locale}
}

// Key returns FORM_ERRORS.
func (c *FormErrorsCheck) Key() string {
	return KeyFormErrors
}

// Run fires when the page has forms and none of them contains an
// element with role="alert", aria-describedby, aria-invalid or the class
// "error". The count is the number of forms. Pages without forms pass.
func (c *FormErrorsCheck) Run(ctx context.Context, doc *browser.Document) (*normalize.CheckResult, error) {
	if err := precheck(ctx, doc); err != nil {
		return nil, err
	}

	forms := doc.Elements("form")
	if len(forms) == 0 {
		return nil, nil
	}
	for _, form := range forms {
		for _, el := range form.Descendants() {
			if reportsErrors(el) {
				return nil, nil
			}
		}
	}

	return result(KeyFormErrors, "serious", "3.3.1", len(forms), c.locale, &model.Remediation{
		Summary: localized(c.locale,
			"הוסיפו role=\"alert\" או aria-describedby לשדות עם שגיאות.",
			"Add role=\"alert\" or aria-describedby to fields with errors."),
		CodeSample: `<input type="email" aria-describedby="email-error" aria-invalid="true">
<span id="email-error" role="alert">Invalid email address</span>`,
		Impact: localized(c.locale,
			"משתמשי קוראי מסך אינם שומעים מדוע שליחת הטופס נכשלה.",
			"Screen reader users are not told why a form submission failed."),
	}), nil
}

func reportsErrors(el *browser.Element) bool {
	if el.Attr("role") == "alert" || el.HasAttr("aria-describedby") || el.HasAttr("aria-invalid") {
		return true
	}
	return slices.Contains(strings.Fields(el.Attr("class")), "error")
}
