package scoring

import "github.com/nao1215/a11yscan/internal/model"

// riskCopy is the static per-level, per-locale text attached to a risk.
type riskCopy struct {
	fineRange string
	rationale map[model.Locale]string
}

var riskTable = map[model.RiskLevel]riskCopy{
	model.RiskLow: {
		fineRange: "₪0 - ₪25,000",
		rationale: map[model.Locale]string{
			model.LocaleHE: "מצב הנגישות טוב יחסית. מומלץ לבצע תחזוקה שוטפת.",
			model.LocaleEN: "Accessibility is in relatively good shape. Routine maintenance is recommended.",
		},
	},
	model.RiskMedium: {
		fineRange: "₪25,000 - ₪75,000",
		rationale: map[model.Locale]string{
			model.LocaleHE: "קיימים ליקויי נגישות הדורשים טיפול כדי להפחית חשיפה.",
			model.LocaleEN: "Accessibility defects exist that should be fixed to reduce exposure.",
		},
	},
	model.RiskHigh: {
		fineRange: "₪50,000 - ₪150,000",
		rationale: map[model.Locale]string{
			model.LocaleHE: "נמצאו ליקויי נגישות חמורים העלולים לחשוף אותך לתביעה או קנס.",
			model.LocaleEN: "Severe accessibility defects were found that may expose you to a lawsuit or fine.",
		},
	},
	model.RiskCritical: {
		fineRange: "₪150,000 - ₪300,000",
		rationale: map[model.Locale]string{
			model.LocaleHE: "רמת סיכון גבוהה מאוד. האתר חשוף באופן משמעותי להליכים משפטיים.",
			model.LocaleEN: "Very high risk. The site is significantly exposed to legal proceedings.",
		},
	},
}

// CriticalCount sums the instance counts of all critical findings.
func CriticalCount(findings []model.Finding) int {
	n := 0
	for _, f := range findings {
		if f.Severity.Normalize() == model.SeverityCritical {
			n += max(f.InstanceCount, 1)
		}
	}
	return n
}

// Level maps a score and a critical instance count to a risk level.
// The first matching row wins.
func Level(score, critical int) model.RiskLevel {
	switch {
	case critical >= 5:
		return model.RiskCritical
	case critical >= 3 || score < 40:
		return model.RiskHigh
	case score < 70:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}

// Classify derives the risk tier, fine range and rationale for a report.
// Unknown locales fall back to Hebrew.
func Classify(score int, findings []model.Finding, locale model.Locale) model.Risk {
	level := Level(score, CriticalCount(findings))
	entry := riskTable[level]

	rationale, ok := entry.rationale[locale]
	if !ok {
		rationale = entry.rationale[model.LocaleHE]
	}

	return model.Risk{
		Level:              level,
		EstimatedFineRange: entry.fineRange,
		Rationale:          rationale,
	}
}
