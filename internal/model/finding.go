package model

import (
	"encoding/json"
	"slices"
	"sort"
)

// Source identifies which checker produced a finding.
type Source int

const (
	// SourceRuleEngine marks findings from the declarative rule engine.
	SourceRuleEngine Source = iota

	// SourceInteractiveCheck marks findings from page-interaction checks
	// (keyboard, focus, forms, statements).
	SourceInteractiveCheck
)

// String returns the upper-case name of the source.
func (s Source) String() string {
	switch s {
	case SourceRuleEngine:
		return "RULE_ENGINE"
	case SourceInteractiveCheck:
		return "INTERACTIVE_CHECK"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON encodes the source as its name.
func (s Source) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a source name.
func (s *Source) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	if name == SourceInteractiveCheck.String() {
		*s = SourceInteractiveCheck
		return nil
	}
	*s = SourceRuleEngine
	return nil
}

// Remediation is structured guidance for fixing a finding.
type Remediation struct {
	// Summary is a one-line description of the fix.
	Summary string `json:"summary"`

	// CodeSample is a short markup or CSS example of the fix.
	CodeSample string `json:"code_sample,omitempty"`

	// Impact describes who is affected and how.
	Impact string `json:"impact,omitempty"`

	// HelpURL links to reference documentation for the rule.
	HelpURL string `json:"help_url,omitempty"`
}

// Finding is one normalized accessibility defect.
// InstanceCount is always at least 1 and Severity is always one of the
// four tiers.
type Finding struct {
	// Source is the checker that produced the finding.
	Source Source `json:"source"`

	// RuleID is the violated rule (rule engine) or check key (interactive).
	RuleID string `json:"rule_id"`

	// Severity is the normalized impact tier.
	Severity Severity `json:"severity"`

	// InstanceCount is the number of DOM instances the finding covers.
	InstanceCount int `json:"instance_count"`

	// StandardRefs are the clauses of the standards the finding violates,
	// e.g. "WCAG 1.1.1" or "IS 5568". Sorted and unique.
	StandardRefs []string `json:"standard_refs,omitempty"`

	// Title is a short localized title.
	Title string `json:"title,omitempty"`

	// Remediation is optional guidance for fixing the finding.
	Remediation *Remediation `json:"remediation,omitempty"`
}

// NewStandardRefs returns refs as a sorted set with empty strings removed.
func NewStandardRefs(refs ...string) []string {
	set := make([]string, 0, len(refs))
	for _, r := range refs {
		if r == "" {
			continue
		}
		set = append(set, r)
	}
	sort.Strings(set)
	return slices.Compact(set)
}

// clone returns a deep copy of the finding.
func (f Finding) clone() Finding {
	c := f
	c.StandardRefs = slices.Clone(f.StandardRefs)
	if f.Remediation != nil {
		r := *f.Remediation
		c.Remediation = &r
	}
	return c
}

// SortBySeverity orders findings from the most to the least severe.
// The sort is stable, so ties keep their discovery order.
func SortBySeverity(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Severity.Normalize() > findings[j].Severity.Normalize()
	})
}

// SeveritySummary counts finding instances per severity tier.
type SeveritySummary struct {
	Critical int `json:"critical"`
	Serious  int `json:"serious"`
	Moderate int `json:"moderate"`
	Minor    int `json:"minor"`
	Total    int `json:"total"`
}

// Summarize counts instances per severity across findings.
func Summarize(findings []Finding) SeveritySummary {
	var s SeveritySummary
	for _, f := range findings {
		n := f.InstanceCount
		if n < 1 {
			n = 1
		}
		switch f.Severity.Normalize() {
		case SeverityCritical:
			s.Critical += n
		case SeveritySerious:
			s.Serious += n
		case SeverityModerate:
			s.Moderate += n
		case SeverityMinor:
			s.Minor += n
		}
		s.Total += n
	}
	return s
}

// Count returns the instance count for a single severity tier.
func (s SeveritySummary) Count(severity Severity) int {
	switch severity {
	case SeverityCritical:
		return s.Critical
	case SeveritySerious:
		return s.Serious
	case SeverityModerate:
		return s.Moderate
	case SeverityMinor:
		return s.Minor
	default:
		return 0
	}
}
