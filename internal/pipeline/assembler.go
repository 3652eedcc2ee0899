package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/a11yscan/internal/browser"
	"github.com/nao1215/a11yscan/internal/checks"
	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/normalize"
	"github.com/nao1215/a11yscan/internal/rules"
	"github.com/nao1215/a11yscan/internal/scoring"
)

const (
	// DefaultTimeout bounds a single scan, including page load.
	DefaultTimeout = 45 * time.Second

	// AutomatedCoverage is the estimated share of the standard that
	// automated checks can verify.
	AutomatedCoverage = 0.75
)

// ErrInvalidURL is returned when the scan target is not an absolute
// http or https URL.
var ErrInvalidURL = errors.New("invalid URL: must be an absolute http or https URL")

// Scanner produces a report for one page.
type Scanner interface {
	Assemble(ctx context.Context, rawURL string, standard model.Standard, locale model.Locale) (*model.ScanReport, error)
}

// Assembler runs one scan: load the page, run the rule engine and the
// interactive checks, then normalize, score and classify the findings.
// An Assembler holds no per-scan state and is safe for concurrent use.
type Assembler struct {
	renderer browser.Renderer
	engine   rules.Engine
	checks   func(model.Locale) []checks.Check
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) {
		a.logger = logger
	}
}

// WithTimeout sets the per-scan timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(a *Assembler) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithChecks replaces the interactive check set.
func WithChecks(factory func(model.Locale) []checks.Check) Option {
	return func(a *Assembler) {
		a.checks = factory
	}
}

// WithClock sets the clock used for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) {
		a.now = now
	}
}

// WithIDGenerator sets the scan id generator.
func WithIDGenerator(newID func() string) Option {
	return func(a *Assembler) {
		a.newID = newID
	}
}

// NewAssembler creates an Assembler for the given collaborators.
func NewAssembler(renderer browser.Renderer, engine rules.Engine, opts ...Option) *Assembler {
	a := &Assembler{
		renderer: renderer,
		engine:   engine,
		checks:   checks.Defaults,
		timeout:  DefaultTimeout,
		logger:   slog.Default(),
		now:      time.Now,
		newID:    NewScanID,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewScanID returns "scan_" followed by 12 hex characters of a random UUID.
func NewScanID() string {
	return "scan_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// ValidateURL checks that rawURL is an absolute http or https URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || !u.IsAbs() || u.Host == "" {
		return ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrInvalidURL
	}
	return nil
}

// Assemble scans rawURL and returns an immutable report.
// Input errors are returned as ErrInvalidURL, model.ErrInvalidStandard or
// model.ErrInvalidLocale. Load and analysis errors are returned as
// *ScanFailure. A failing interactive check is omitted from the report.
func (a *Assembler) Assemble(ctx context.Context, rawURL string, standard model.Standard, locale model.Locale) (*model.ScanReport, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, err
	}
	if !standard.Valid() {
		return nil, model.ErrInvalidStandard
	}
	if !locale.Valid() {
		return nil, model.ErrInvalidLocale
	}

	scanID := a.newID()
	logger := a.logger.With("scan_id", scanID)
	logger.Info("scan started", "url", rawURL, "standard", standard, "locale", locale)

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	session, err := a.renderer.Open(ctx)
	if err != nil {
		return nil, a.fail(logger, navigationFailure(fmt.Errorf("open session: %w", err)))
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logger.Debug("failed to close session", "error", cerr)
		}
	}()

	if err := session.Navigate(ctx, rawURL); err != nil {
		return nil, a.fail(logger, navigationFailure(err))
	}

	doc, err := session.Document()
	if err != nil {
		return nil, a.fail(logger, analysisFailure(fmt.Errorf("document: %w", err)))
	}

	violations, err := a.engine.Run(ctx, doc)
	if err != nil {
		return nil, a.fail(logger, analysisFailure(fmt.Errorf("rule engine: %w", err)))
	}

	results, ran := a.runChecks(ctx, logger, doc, locale)
	if err := ctx.Err(); err != nil {
		return nil, a.fail(logger, analysisFailure(err))
	}

	findings := normalize.Localize(normalize.Normalize(violations, results), locale)
	model.SortBySeverity(findings)

	score := scoring.Score(findings)
	report := &model.ScanReport{
		ScanID:    scanID,
		URL:       rawURL,
		Timestamp: a.now().UTC(),
		Standard:  standard,
		Locale:    locale,
		Findings:  findings,
		Score:     score,
		Risk:      scoring.Classify(score, findings, locale),
		Coverage: model.Coverage{
			AutomatedFraction: AutomatedCoverage,
			CheckedRuleKeys:   coverageKeys(a.engine.RuleIDs(), ran),
		},
		Summary: model.Summarize(findings),
	}

	logger.Info("scan completed",
		"score", report.Score,
		"risk", report.Risk.Level,
		"findings", len(report.Findings),
	)

	return report, nil
}

// runChecks runs every interactive check concurrently. A failed check is
// logged and omitted; it never cancels the others. It returns the results
// in check order and the keys of the checks that completed.
func (a *Assembler) runChecks(ctx context.Context, logger *slog.Logger, doc *browser.Document, locale model.Locale) ([]normalize.CheckResult, []string) {
	set := a.checks(locale)
	results := make([]*normalize.CheckResult, len(set))
	completed := make([]bool, len(set))

	var g errgroup.Group
	for i, check := range set {
		g.Go(func() error {
			res, err := check.Run(ctx, doc)
			if err != nil {
				logger.Debug("interactive check failed", "check", check.Key(), "error", err)
				return nil
			}
			results[i] = res
			completed[i] = true
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // checks never return errors to the group

	var out []normalize.CheckResult
	var ran []string
	for i, check := range set {
		if !completed[i] {
			continue
		}
		ran = append(ran, check.Key())
		if results[i] != nil {
			out = append(out, *results[i])
		}
	}
	return out, ran
}

func (a *Assembler) fail(logger *slog.Logger, f *ScanFailure) error {
	logger.Warn("scan failed", "reason", f.Reason, "error", f.Err)
	return f
}

// coverageKeys maps rule ids and check keys to sorted, unique product keys.
func coverageKeys(ruleIDs, checkKeys []string) []string {
	keys := make([]string, 0, len(ruleIDs)+len(checkKeys))
	for _, id := range ruleIDs {
		keys = append(keys, model.GetRuleInfo(id).CoverageKey)
	}
	for _, k := range checkKeys {
		keys = append(keys, model.GetRuleInfo(k).CoverageKey)
	}
	slices.Sort(keys)
	return slices.Compact(keys)
}
