package rules

import (
	"context"
	"log/slog"

	"github.com/nao1215/a11yscan/internal/browser"
	"github.com/nao1215/a11yscan/internal/normalize"
)

// helpURLBase is where rule documentation lives.
const helpURLBase = "https://dequeuniversity.com/rules/axe/4.8/"

// Engine evaluates declarative accessibility rules against a document.
type Engine interface {
	// Run evaluates all rules and returns one violation per failed rule.
	Run(ctx context.Context, doc *browser.Document) ([]normalize.RuleViolation, error)

	// RuleIDs lists the rules the engine evaluates.
	RuleIDs() []string
}

// Rule is a single declarative check.
type Rule interface {
	// ID returns the rule identifier, e.g. "image-alt".
	ID() string

	// Impact returns the severity name of a violation.
	Impact() string

	// Tags returns standard tags such as "wcag2a" and "wcag111".
	Tags() []string

	// Help returns a one-line description of the requirement.
	Help() string

	// Description explains what the rule checks.
	Description() string

	// Evaluate returns the elements that violate the rule.
	Evaluate(doc *browser.Document) []*browser.Element
}

// StaticEngine runs a fixed set of DOM rules in registration order.
type StaticEngine struct {
	rules  []Rule
	logger *slog.Logger
}

// Option configures a StaticEngine.
type Option func(*StaticEngine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *StaticEngine) {
		e.logger = logger
	}
}

// WithRules replaces the default rule set.
func WithRules(rules ...Rule) Option {
	return func(e *StaticEngine) {
		e.rules = rules
	}
}

// NewStaticEngine creates an engine with all built-in rules registered.
func NewStaticEngine(opts ...Option) *StaticEngine {
	e := &StaticEngine{
		logger: slog.Default(),
		rules: []Rule{
			// Text alternatives
			newImageAlt(),
			newInputImageAlt(),

			// Names and labels
			newLabel(),
			newButtonName(),
			newLinkName(),
			newFrameTitle(),

			// Document structure
			newHTMLHasLang(),
			newHTMLLangValid(),
			newDocumentTitle(),
			newMetaViewport(),
			newDuplicateID(),
			newARIAHiddenBody(),

			// Visual
			newColorContrast(),
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register adds a rule to the engine.
func (e *StaticEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// RuleIDs returns the ids of all registered rules.
func (e *StaticEngine) RuleIDs() []string {
	ids := make([]string, 0, len(e.rules))
	for _, r := range e.rules {
		ids = append(ids, r.ID())
	}
	return ids
}

// Run evaluates every rule. It stops early only when ctx is done.
func (e *StaticEngine) Run(ctx context.Context, doc *browser.Document) ([]normalize.RuleViolation, error) {
	var violations []normalize.RuleViolation

	for _, rule := range e.rules {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		elements := rule.Evaluate(doc)
		if len(elements) == 0 {
			continue
		}

		nodes := make([]normalize.Node, 0, len(elements))
		for _, el := range elements {
			nodes = append(nodes, normalize.Node{Target: el.Selector(), HTML: el.OuterHTML()})
		}

		e.logger.Debug("rule violated", "rule", rule.ID(), "nodes", len(nodes))

		violations = append(violations, normalize.RuleViolation{
			ID:          rule.ID(),
			Impact:      rule.Impact(),
			Help:        rule.Help(),
			Description: rule.Description(),
			HelpURL:     helpURLBase + rule.ID(),
			Tags:        rule.Tags(),
			Nodes:       nodes,
		})
	}

	return violations, nil
}

// domRule is a Rule backed by a function.
type domRule struct {
	id          string
	impact      string
	tags        []string
	help        string
	description string
	evaluate    func(doc *browser.Document) []*browser.Element
}

func (r *domRule) ID() string          { return r.id }
func (r *domRule) Impact() string      { return r.impact }
func (r *domRule) Tags() []string      { return append([]string(nil), r.tags...) }
func (r *domRule) Help() string        { return r.help }
func (r *domRule) Description() string { return r.description }

func (r *domRule) Evaluate(doc *browser.Document) []*browser.Element {
	if doc == nil {
		return nil
	}
	return r.evaluate(doc)
}
