package domain

import "context"

// Severity grades an advisory.
type Severity string

const (
	// SeverityInfo carries guidance or a summary.
	SeverityInfo Severity = "info"
	// SeverityWarn flags a likely problem with the current throws.
	SeverityWarn Severity = "warn"
)

// Advisory is one message produced by a rule for the current cycle.
type Advisory struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	// Heading is the suggested yaw for direction advisories.
	Heading *float64 `json:"heading,omitempty"`
	// Offset is the suggested walking distance in blocks for direction advisories.
	Offset *float64 `json:"offset,omitempty"`
	// ThrowIndex points at the throw an advisory is about, -1 when none.
	ThrowIndex int `json:"throw_index"`
}

// Result aggregates the advisories of one evaluation cycle.
type Result struct {
	Advisories []Advisory
}

// Merge appends other's advisories.
func (r *Result) Merge(other Result) {
	if len(other.Advisories) == 0 {
		return
	}
	r.Advisories = append(r.Advisories, other.Advisories...)
}

// HasWarnings reports whether any advisory is a warning.
func (r Result) HasWarnings() bool {
	for _, a := range r.Advisories {
		if a.Severity == SeverityWarn {
			return true
		}
	}
	return false
}

// ByRule returns the advisory emitted by the named rule.
func (r Result) ByRule(name string) (Advisory, bool) {
	for _, a := range r.Advisories {
		if a.Rule == name {
			return a, true
		}
	}
	return Advisory{}, false
}

// RuleView provides read-only access to the cycle inputs for rule evaluation.
type RuleView interface {
	Throws() []Throw
	Estimate() Estimate
	Parameters() Parameters
}

// Rule observes a cycle and emits at most one advisory.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView) (Result, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Rules returns the registered rules in evaluation order.
func (e *RulesEngine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Evaluate executes all registered rules and aggregates their results.
// Only the first advisory of each rule is kept.
func (e *RulesEngine) Evaluate(ctx context.Context, view RuleView) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, view)
		if err != nil {
			return Result{}, err
		}
		if len(res.Advisories) > 1 {
			res.Advisories = res.Advisories[:1]
		}
		combined.Merge(res)
	}
	return combined, nil
}
