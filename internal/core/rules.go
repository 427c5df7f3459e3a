package core

import "strongholdcore/pkg/domain"

// RulesEngine evaluates the advisory rules of a cycle.
type RulesEngine = domain.RulesEngine

// NewRulesEngine constructs an empty engine.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in advisory set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewMismeasureRule())
	engine.Register(NewPortalLinkingRule())
	engine.Register(NewCertaintyRule())
	engine.Register(NewNextThrowRule())
	return engine
}

// cycleView is the read-only input of one evaluation cycle.
type cycleView struct {
	throws   []Throw
	estimate Estimate
	params   Parameters
}

func newCycleView(throws []Throw, est Estimate, params Parameters) cycleView {
	return cycleView{throws: throws, estimate: est, params: params}
}

func (v cycleView) Throws() []Throw        { return domain.CloneThrows(v.throws) }
func (v cycleView) Estimate() Estimate     { return v.estimate.Clone() }
func (v cycleView) Parameters() Parameters { return v.params }

var _ domain.RuleView = cycleView{}
