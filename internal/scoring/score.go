package scoring

import "github.com/nao1215/a11yscan/internal/model"

const (
	// MaxScore is the score of a page without findings.
	MaxScore = 100

	// MinScore is the lower clamp of the score.
	MinScore = 0

	// instanceCap limits how many instances of one rule-engine finding
	// contribute to the deduction.
	instanceCap = 5
)

// ruleEngineWeights are deducted per instance, up to instanceCap instances.
var ruleEngineWeights = map[model.Severity]int{
	model.SeverityCritical: 10,
	model.SeveritySerious:  5,
	model.SeverityModerate: 2,
	model.SeverityMinor:    1,
}

// checkWeights are deducted once per interactive-check finding.
var checkWeights = map[model.Severity]int{
	model.SeverityCritical: 15,
	model.SeveritySerious:  10,
	model.SeverityModerate: 5,
	model.SeverityMinor:    2,
}

// Deduction returns the number of points a single finding costs.
func Deduction(f model.Finding) int {
	severity := f.Severity.Normalize()
	if f.Source == model.SourceInteractiveCheck {
		return checkWeights[severity]
	}
	return ruleEngineWeights[severity] * min(max(f.InstanceCount, 1), instanceCap)
}

// Score computes the accessibility score for a set of findings.
// The result is in [0,100] and does not depend on the order of findings.
func Score(findings []model.Finding) int {
	score := MaxScore
	for _, f := range findings {
		score -= Deduction(f)
		if score <= MinScore {
			return MinScore
		}
	}
	return score
}
