package scoring

import (
	"math/rand/v2"
	"testing"

	"github.com/nao1215/a11yscan/internal/model"
)

func rule(severity model.Severity, instances int) model.Finding {
	return model.Finding{Source: model.SourceRuleEngine, Severity: severity, InstanceCount: instances}
}

func check(severity model.Severity) model.Finding {
	return model.Finding{Source: model.SourceInteractiveCheck, Severity: severity, InstanceCount: 1}
}

func TestDeduction(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		finding model.Finding
		want    int
	}{
		{"rule critical single", rule(model.SeverityCritical, 1), 10},
		{"rule critical capped", rule(model.SeverityCritical, 12), 50},
		{"rule serious three", rule(model.SeveritySerious, 3), 15},
		{"rule moderate five", rule(model.SeverityModerate, 5), 10},
		{"rule minor zero instances", rule(model.SeverityMinor, 0), 1},
		{"check critical", check(model.SeverityCritical), 15},
		{"check serious", check(model.SeveritySerious), 10},
		{"check moderate", check(model.SeverityModerate), 5},
		{"check minor", check(model.SeverityMinor), 2},
		{"check ignores instances", model.Finding{Source: model.SourceInteractiveCheck, Severity: model.SeverityCritical, InstanceCount: 40}, 15},
		{"unknown severity is moderate", rule(model.Severity(77), 1), 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Deduction(tc.finding); got != tc.want {
				t.Errorf("got %d, expected %d", got, tc.want)
			}
		})
	}
}

func TestScoreBounds(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewPCG(1, 2))
	for i := range 200 {
		n := r.IntN(40)
		findings := make([]model.Finding, n)
		for j := range findings {
			findings[j] = model.Finding{
				Source:        model.Source(r.IntN(2)),
				Severity:      model.Severity(r.IntN(6) - 1),
				InstanceCount: r.IntN(20),
			}
		}
		score := Score(findings)
		if score < 0 || score > 100 {
			t.Fatalf("iteration %d: score %d out of range", i, score)
		}
	}

	if got := Score(nil); got != 100 {
		t.Errorf("empty findings: got %d, expected 100", got)
	}

	var many []model.Finding
	for range 30 {
		many = append(many, check(model.SeverityCritical))
	}
	if got := Score(many); got != 0 {
		t.Errorf("got %d, expected clamp to 0", got)
	}
}

func TestScoreOrderIndependent(t *testing.T) {
	t.Parallel()

	findings := []model.Finding{
		rule(model.SeverityCritical, 2),
		check(model.SeveritySerious),
		rule(model.SeverityMinor, 7),
		check(model.SeverityModerate),
		rule(model.SeveritySerious, 1),
		rule(model.SeverityCritical, 9),
		check(model.SeverityCritical),
	}
	want := Score(findings)

	r := rand.New(rand.NewPCG(3, 4))
	for range 50 {
		shuffled := make([]model.Finding, len(findings))
		copy(shuffled, findings)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		if got := Score(shuffled); got != want {
			t.Fatalf("got %d after shuffle, expected %d", got, want)
		}
	}
}

func TestUnknownSeverityTreatedAsModerate(t *testing.T) {
	t.Parallel()

	unknown := []model.Finding{rule(model.Severity(99), 1), check(model.Severity(-3))}
	moderate := []model.Finding{rule(model.SeverityModerate, 1), check(model.SeverityModerate)}

	if Score(unknown) != Score(moderate) {
		t.Errorf("score: unknown %d != moderate %d", Score(unknown), Score(moderate))
	}
	if CriticalCount(unknown) != 0 {
		t.Errorf("unknown severity counted as critical")
	}
	if Classify(Score(unknown), unknown, model.LocaleEN).Level != Classify(Score(moderate), moderate, model.LocaleEN).Level {
		t.Error("classification differs between unknown and moderate")
	}
}

func TestLevel(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		score    int
		critical int
		want     model.RiskLevel
	}{
		{"five criticals beat a good score", 85, 5, model.RiskCritical},
		{"many criticals", 0, 12, model.RiskCritical},
		{"three criticals", 90, 3, model.RiskHigh},
		{"low score", 39, 0, model.RiskHigh},
		{"score at 40", 40, 0, model.RiskMedium},
		{"score 69", 69, 2, model.RiskMedium},
		{"score at 70", 70, 0, model.RiskLow},
		{"perfect", 100, 0, model.RiskLow},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Level(tc.score, tc.critical); got != tc.want {
				t.Errorf("Level(%d, %d) = %s, expected %s", tc.score, tc.critical, got, tc.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	t.Run("critical count overrides score", func(t *testing.T) {
		t.Parallel()
		findings := []model.Finding{rule(model.SeverityCritical, 5)}
		risk := Classify(85, findings, model.LocaleEN)
		if risk.Level != model.RiskCritical {
			t.Errorf("got %s, expected CRITICAL", risk.Level)
		}
		if risk.EstimatedFineRange != "₪150,000 - ₪300,000" {
			t.Errorf("got %q", risk.EstimatedFineRange)
		}
	})

	t.Run("hebrew rationale", func(t *testing.T) {
		t.Parallel()
		risk := Classify(100, nil, model.LocaleHE)
		if risk.Rationale != "מצב הנגישות טוב יחסית. מומלץ לבצע תחזוקה שוטפת." {
			t.Errorf("got %q", risk.Rationale)
		}
		if risk.EstimatedFineRange != "₪0 - ₪25,000" {
			t.Errorf("got %q", risk.EstimatedFineRange)
		}
	})

	t.Run("unknown locale falls back to hebrew", func(t *testing.T) {
		t.Parallel()
		got := Classify(50, nil, model.Locale("fr"))
		want := Classify(50, nil, model.LocaleHE)
		if got != want {
			t.Errorf("got %+v, expected %+v", got, want)
		}
	})

	t.Run("every level has copy for every locale", func(t *testing.T) {
		t.Parallel()
		for level, entry := range riskTable {
			if entry.fineRange == "" {
				t.Errorf("%s: missing fine range", level)
			}
			for _, l := range []model.Locale{model.LocaleHE, model.LocaleEN} {
				if entry.rationale[l] == "" {
					t.Errorf("%s/%s: missing rationale", level, l)
				}
			}
		}
	})
}

func TestScenarios(t *testing.T) {
	t.Parallel()

	t.Run("critical rule plus serious check", func(t *testing.T) {
		t.Parallel()
		findings := []model.Finding{rule(model.SeverityCritical, 6), check(model.SeveritySerious)}
		score := Score(findings)
		if score != 40 {
			t.Errorf("got score %d, expected 40", score)
		}
		if CriticalCount(findings) != 6 {
			t.Errorf("got critical count %d, expected 6", CriticalCount(findings))
		}
		if risk := Classify(score, findings, model.LocaleHE); risk.Level != model.RiskCritical {
			t.Errorf("got %s, expected CRITICAL", risk.Level)
		}
	})

	t.Run("no findings", func(t *testing.T) {
		t.Parallel()
		score := Score(nil)
		if score != 100 {
			t.Errorf("got score %d, expected 100", score)
		}
		if risk := Classify(score, nil, model.LocaleHE); risk.Level != model.RiskLow {
			t.Errorf("got %s, expected LOW", risk.Level)
		}
	})
}
