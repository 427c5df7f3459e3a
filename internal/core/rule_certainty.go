package core

import (
	"context"
	"fmt"
	"math"

	"strongholdcore/pkg/domain"
)

// NewCertaintyRule summarizes the estimate and warns when it is weak.
func NewCertaintyRule() domain.Rule {
	return &certaintyRule{}
}

// certaintyRule remembers the throw count of the previous cycle so the first
// measurable estimate is announced once. Evaluation is serialized by the
// state handler.
type certaintyRule struct {
	lastCount int
}

func (r *certaintyRule) Name() string { return "certainty" }

func (r *certaintyRule) Evaluate(_ context.Context, view domain.RuleView) (domain.Result, error) {
	throws := view.Throws()
	est := view.Estimate()
	params := view.Parameters()
	prev := r.lastCount
	r.lastCount = len(throws)

	switch {
	case len(throws) == 0:
		return domain.Result{}, nil
	case len(throws) == 1:
		return r.emit(domain.SeverityWarn, "one throw recorded; throw again from another position"), nil
	case !est.HasPoint():
		return r.emit(domain.SeverityWarn, "estimate withheld: the throws are too close to parallel"), nil
	}

	top, ok := est.Top()
	if !ok {
		return r.emit(domain.SeverityWarn, "estimate withheld: no candidate cell fits the placement constraint"), nil
	}
	summary := describeCell(top, est.Certainty, throws[len(throws)-1].Position)
	if est.PlacementRelaxed {
		return r.emit(domain.SeverityWarn, "no cell near the estimate fits the placement constraint, ranked without it, "+summary), nil
	}
	if est.Certainty < params.CertaintyFloor {
		return r.emit(domain.SeverityWarn, "low certainty, "+summary), nil
	}
	if prev < 2 {
		return r.emit(domain.SeverityInfo, "estimate available, "+summary), nil
	}
	return r.emit(domain.SeverityInfo, summary), nil
}

func (r *certaintyRule) emit(sev domain.Severity, msg string) domain.Result {
	return domain.Result{Advisories: []domain.Advisory{{
		Rule:       r.Name(),
		Severity:   sev,
		Message:    msg,
		ThrowIndex: -1,
	}}}
}

func describeCell(c domain.Cell, certainty float64, observer domain.Vec2) string {
	center := c.Center()
	distance := center.Sub(observer).Len()
	return fmt.Sprintf("%.1f%% in cell (%d, %d) at block (%d, %d), %d blocks away, nether (%d, %d)",
		certainty*100, c.I, c.K,
		int(math.Floor(center.X)), int(math.Floor(center.Z)),
		int(math.Round(distance)),
		int(math.Floor(center.X/8)), int(math.Floor(center.Z/8)))
}
