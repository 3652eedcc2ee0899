package model

import (
	"slices"
	"strings"
	"time"
)

// Standard is the accessibility standard a scan is evaluated against.
type Standard string

const (
	// StandardWCAG22AA is WCAG 2.2 level AA.
	StandardWCAG22AA Standard = "WCAG_2_2_AA"

	// StandardIL5568 is the Israeli standard IS 5568, which incorporates
	// WCAG AA and adds the accessibility statement requirement.
	StandardIL5568 Standard = "IL_5568"
)

// Valid reports whether s is a supported standard.
func (s Standard) Valid() bool {
	return s == StandardWCAG22AA || s == StandardIL5568
}

// ParseStandard converts a user supplied name into a Standard.
func ParseStandard(s string) (Standard, error) {
	std := Standard(strings.ToUpper(strings.TrimSpace(s)))
	if !std.Valid() {
		return "", ErrInvalidStandard
	}
	return std, nil
}

// Locale is the language of user-facing report text.
type Locale string

const (
	// LocaleHE is Hebrew, the product default.
	LocaleHE Locale = "he"

	// LocaleEN is English.
	LocaleEN Locale = "en"
)

// Valid reports whether l is a supported locale.
func (l Locale) Valid() bool {
	return l == LocaleHE || l == LocaleEN
}

// ParseLocale converts a user supplied locale name into a Locale.
func ParseLocale(s string) (Locale, error) {
	l := Locale(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", ErrInvalidLocale
	}
	return l, nil
}

// RiskLevel is the legal-exposure tier derived from a score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Risk is the classifier output attached to a report.
type Risk struct {
	Level              RiskLevel `json:"level"`
	EstimatedFineRange string    `json:"estimated_fine_range"`
	Rationale          string    `json:"rationale"`
}

// Coverage states how much of the standard the automated scan covers.
type Coverage struct {
	// AutomatedFraction is the estimated share of requirements that can be
	// verified automatically, in [0,1].
	AutomatedFraction float64 `json:"automated_fraction"`

	// CheckedRuleKeys are the product-level rule keys that were evaluated.
	CheckedRuleKeys []string `json:"checked_rule_keys"`
}

// ScanReport is the result of scanning a single page.
// A report is immutable once assembled; use Clone before handing it to code
// that may modify it.
type ScanReport struct {
	// ScanID uniquely identifies the scan ("scan_" + 12 hex chars).
	ScanID string `json:"scan_id"`

	// URL is the scanned page.
	URL string `json:"url"`

	// Timestamp is when the scan finished, in UTC.
	Timestamp time.Time `json:"timestamp"`

	Standard Standard `json:"standard"`
	Locale   Locale   `json:"locale"`

	// Findings are ordered by severity rank descending; ties keep their
	// discovery order.
	Findings []Finding `json:"findings"`

	// Score is the accessibility score in [0,100].
	Score int `json:"score"`

	Risk     Risk            `json:"risk"`
	Coverage Coverage        `json:"coverage"`
	Summary  SeveritySummary `json:"summary"`
}

// Clone returns a deep copy of the report.
func (r *ScanReport) Clone() *ScanReport {
	if r == nil {
		return nil
	}
	c := *r
	c.Findings = make([]Finding, len(r.Findings))
	for i, f := range r.Findings {
		c.Findings[i] = f.clone()
	}
	c.Coverage.CheckedRuleKeys = slices.Clone(r.Coverage.CheckedRuleKeys)
	return &c
}

// FindingsBySeverity returns the findings with the given severity, in
// report order.
func (r *ScanReport) FindingsBySeverity(severity Severity) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity.Normalize() == severity {
			out = append(out, f.clone())
		}
	}
	return out
}

// RuleIDs returns the sorted, unique rule ids present in the report.
func (r *ScanReport) RuleIDs() []string {
	ids := make([]string, 0, len(r.Findings))
	for _, f := range r.Findings {
		ids = append(ids, f.RuleID)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}
