package model

import (
	"encoding/json"
	"strings"
)

// Severity represents the impact tier of an accessibility finding.
// The iota order is the severity rank, so findings can be compared and
// sorted directly.
type Severity int

const (
	// SeverityMinor indicates a defect that is a nuisance but rarely blocks
	// a user (e.g. duplicate element ids).
	SeverityMinor Severity = iota

	// SeverityModerate indicates a defect that makes content harder to use.
	// It is also the fallback for unknown or missing severities.
	SeverityModerate

	// SeveritySerious indicates a defect that seriously impairs assistive
	// technology users (e.g. links without an accessible name).
	SeveritySerious

	// SeverityCritical indicates a defect that blocks access to content
	// entirely (e.g. images without text alternatives, unlabeled controls).
	SeverityCritical
)

// Severities lists every severity from the most to the least severe.
var Severities = []Severity{
	SeverityCritical,
	SeveritySerious,
	SeverityModerate,
	SeverityMinor,
}

// String returns the upper-case name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityMinor:
		return "MINOR"
	case SeverityModerate:
		return "MODERATE"
	case SeveritySerious:
		return "SERIOUS"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "MODERATE"
	}
}

// ParseSeverity converts a severity name reported by a checker into a
// Severity. Matching is case-insensitive. Unknown or empty names map to
// SeverityModerate; this is a defined fallback, not an error.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return SeverityCritical
	case "serious":
		return SeveritySerious
	case "moderate":
		return SeverityModerate
	case "minor":
		return SeverityMinor
	default:
		return SeverityModerate
	}
}

// Normalize returns s if it is one of the four tiers, otherwise
// SeverityModerate.
func (s Severity) Normalize() Severity {
	if s < SeverityMinor || s > SeverityCritical {
		return SeverityModerate
	}
	return s
}

// MarshalJSON encodes the severity as its lower-case name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(strings.ToLower(s.String()))
}

// UnmarshalJSON decodes a severity name through ParseSeverity.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	*s = ParseSeverity(name)
	return nil
}

// RuleInfo contains product metadata for a rule or check identifier.
type RuleInfo struct {
	// CoverageKey is the product-level key reported in Coverage.CheckedRuleKeys.
	CoverageKey string

	// TitleHE and TitleEN are short localized titles for reports.
	TitleHE string
	TitleEN string
}

// ruleInfoMapping maps rule-engine rule ids and interactive check keys to
// their product metadata.
var ruleInfoMapping = map[string]RuleInfo{
	// Rule engine
	"image-alt": {
		CoverageKey: "ALT_MISSING",
		TitleHE:     "תמונות ללא תיאור חלופי",
		TitleEN:     "Images without alternative text",
	},
	"input-image-alt": {
		CoverageKey: "ALT_MISSING",
		TitleHE:     "כפתורי תמונה ללא תיאור חלופי",
		TitleEN:     "Image buttons without alternative text",
	},
	"color-contrast": {
		CoverageKey: "COLOR_CONTRAST",
		TitleHE:     "ניגודיות צבעים לא מספקת",
		TitleEN:     "Insufficient color contrast",
	},
	"aria-hidden-body": {
		CoverageKey: "ARIA",
		TitleHE:     "aria-hidden על גוף המסמך",
		TitleEN:     "aria-hidden set on the document body",
	},
	"frame-title": {
		CoverageKey: "ARIA",
		TitleHE:     "מסגרות ללא כותרת",
		TitleEN:     "Frames without a title",
	},
	"button-name": {
		CoverageKey: "ARIA",
		TitleHE:     "כפתורים ללא שם נגיש",
		TitleEN:     "Buttons without an accessible name",
	},
	"label": {
		CoverageKey: "FORM_LABELS",
		TitleHE:     "שדות טופס ללא תווית",
		TitleEN:     "Form fields without labels",
	},
	"html-has-lang": {
		CoverageKey: "LANGUAGE",
		TitleHE:     "חסרה הגדרת שפת העמוד",
		TitleEN:     "Page language is not declared",
	},
	"html-lang-valid": {
		CoverageKey: "LANGUAGE",
		TitleHE:     "הגדרת שפה לא תקינה",
		TitleEN:     "Page language is not a valid tag",
	},
	"document-title": {
		CoverageKey: "PAGE_TITLE",
		TitleHE:     "לעמוד אין כותרת",
		TitleEN:     "Page has no title",
	},
	"link-name": {
		CoverageKey: "LINK_NAMES",
		TitleHE:     "קישורים ללא טקסט נגיש",
		TitleEN:     "Links without discernible text",
	},
	"meta-viewport": {
		CoverageKey: "ZOOM",
		TitleHE:     "הגדלת התצוגה חסומה",
		TitleEN:     "Zooming and scaling are disabled",
	},
	"duplicate-id": {
		CoverageKey: "ARIA",
		TitleHE:     "מזהים כפולים בעמוד",
		TitleEN:     "Duplicate element ids",
	},

	// Interactive checks
	"KEYBOARD_ACCESS": {
		CoverageKey: "KEYBOARD_ACCESS",
		TitleHE:     "אלמנטים לא נגישים במקלדת",
		TitleEN:     "Elements not reachable by keyboard",
	},
	"FOCUS_VISIBLE": {
		CoverageKey: "FOCUS_VISIBLE",
		TitleHE:     "אינדיקטור פוקוס לא נראה",
		TitleEN:     "Focus indicator is not visible",
	},
	"SKIP_LINK": {
		CoverageKey: "SKIP_LINK",
		TitleHE:     "חסר קישור דילוג לתוכן",
		TitleEN:     "Missing skip-to-content link",
	},
	"FORM_ERRORS": {
		CoverageKey: "FORM_ERRORS",
		TitleHE:     "טפסים ללא טיפול בשגיאות",
		TitleEN:     "Form errors are not exposed",
	},
	"ACCESSIBILITY_STATEMENT": {
		CoverageKey: "ACCESSIBILITY_STATEMENT",
		TitleHE:     "חסרה הצהרת נגישות",
		TitleEN:     "Missing accessibility statement",
	},
}

// GetRuleInfo returns product metadata for a rule id or check key.
// Unknown ids get a coverage key derived from the id itself.
func GetRuleInfo(ruleID string) RuleInfo {
	if info, ok := ruleInfoMapping[ruleID]; ok {
		return info
	}
	key := strings.ToUpper(strings.ReplaceAll(ruleID, "-", "_"))
	return RuleInfo{
		CoverageKey: key,
		TitleHE:     ruleID,
		TitleEN:     ruleID,
	}
}

// Title returns the localized title for the rule.
func (i RuleInfo) Title(locale Locale) string {
	if locale == LocaleEN {
		return i.TitleEN
	}
	return i.TitleHE
}
