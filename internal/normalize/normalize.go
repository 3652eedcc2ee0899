package normalize

import (
	"strings"

	"github.com/nao1215/a11yscan/internal/model"
)

// Node is one DOM instance matched by a rule violation.
type Node struct {
	// Target is a CSS-like selector identifying the element.
	Target string `json:"target"`

	// HTML is the outer markup of the element, truncated.
	HTML string `json:"html,omitempty"`
}

// RuleViolation is a single failed rule as reported by a rule engine.
// The shape follows axe-core's violation objects.
type RuleViolation struct {
	ID          string   `json:"id"`
	Impact      string   `json:"impact"`
	Help        string   `json:"help"`
	Description string   `json:"description"`
	HelpURL     string   `json:"helpUrl"` //nolint:tagliatelle // axe field name
	Tags        []string `json:"tags"`
	Nodes       []Node   `json:"nodes"`
}

// CheckResult is the outcome of an interactive check that found a defect.
type CheckResult struct {
	// Key is the check identifier, e.g. KEYBOARD_ACCESS.
	Key string

	// Severity is the reported severity name.
	Severity string

	// WCAG is the success criterion number ("2.1.1"), or "N/A".
	WCAG string

	// Count is the number of affected elements.
	Count int

	Title       string
	Remediation *model.Remediation
}

// StatementCheckKey is the key of the accessibility statement check, which
// maps to IS 5568 rather than to a WCAG criterion.
const StatementCheckKey = "ACCESSIBILITY_STATEMENT"

// Normalize converts rule violations and check results into findings.
// Rule-engine findings come first, then check findings, each in input order.
func Normalize(violations []RuleViolation, checks []CheckResult) []model.Finding {
	findings := make([]model.Finding, 0, len(violations)+len(checks))
	for _, v := range violations {
		findings = append(findings, fromViolation(v))
	}
	for _, c := range checks {
		findings = append(findings, fromCheck(c))
	}
	return findings
}

func fromViolation(v RuleViolation) model.Finding {
	refs := make([]string, 0, len(v.Tags))
	for _, tag := range v.Tags {
		refs = append(refs, TagToRef(tag))
	}

	f := model.Finding{
		Source:        model.SourceRuleEngine,
		RuleID:        v.ID,
		Severity:      model.ParseSeverity(v.Impact),
		InstanceCount: max(len(v.Nodes), 1),
		StandardRefs:  model.NewStandardRefs(refs...),
		Title:         v.Help,
	}
	if v.Description != "" || v.HelpURL != "" {
		f.Remediation = &model.Remediation{
			Summary: v.Description,
			HelpURL: v.HelpURL,
		}
	}
	return f
}

func fromCheck(c CheckResult) model.Finding {
	var refs []string
	wcag := strings.TrimSpace(c.WCAG)
	if wcag != "" && !strings.EqualFold(wcag, "N/A") {
		refs = append(refs, "WCAG "+wcag)
	}
	if c.Key == StatementCheckKey {
		refs = append(refs, "IS 5568")
	}

	f := model.Finding{
		Source:        model.SourceInteractiveCheck,
		RuleID:        c.Key,
		Severity:      model.ParseSeverity(c.Severity),
		InstanceCount: max(c.Count, 1),
		StandardRefs:  model.NewStandardRefs(refs...),
		Title:         c.Title,
	}
	if c.Remediation != nil {
		r := *c.Remediation
		f.Remediation = &r
	}
	return f
}

// TagToRef converts a rule-engine tag into a standard reference.
// Criterion tags such as "wcag111" become "WCAG 1.1.1" and level tags such as
// "wcag2aa" become "WCAG 2 AA". Other tags map to the empty string.
func TagToRef(tag string) string {
	t := strings.ToLower(strings.TrimSpace(tag))
	rest, ok := strings.CutPrefix(t, "wcag")
	if !ok || rest == "" {
		return ""
	}

	digits := rest
	level := ""
	for i, r := range rest {
		if r < '0' || r > '9' {
			digits, level = rest[:i], rest[i:]
			break
		}
	}
	if digits == "" {
		return ""
	}

	switch level {
	case "":
		// wcag111 -> 1.1.1, wcag1410 -> 1.4.10
		if len(digits) < 3 {
			return ""
		}
		return "WCAG " + digits[:1] + "." + digits[1:2] + "." + digits[2:]
	case "a", "aa", "aaa":
		return "WCAG " + strings.Join(strings.Split(digits, ""), ".") + " " + strings.ToUpper(level)
	default:
		return ""
	}
}

// Localize returns a copy of findings whose titles are replaced by the
// product title for the locale, when the rule is known.
func Localize(findings []model.Finding, locale model.Locale) []model.Finding {
	out := make([]model.Finding, len(findings))
	copy(out, findings)
	for i := range out {
		info := model.GetRuleInfo(out[i].RuleID)
		if title := info.Title(locale); title != "" && title != out[i].RuleID {
			out[i].Title = title
		}
	}
	return out
}
