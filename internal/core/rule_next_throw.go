package core

import (
	"context"
	"fmt"

	"strongholdcore/internal/estimator"
	"strongholdcore/pkg/domain"
)

// NewNextThrowRule suggests where to walk before throwing again.
func NewNextThrowRule() domain.Rule {
	return nextThrowRule{}
}

type nextThrowRule struct{}

func (nextThrowRule) Name() string { return "next_throw" }

func (nextThrowRule) Evaluate(_ context.Context, view domain.RuleView) (domain.Result, error) {
	throws := view.Throws()
	if len(throws) == 0 {
		return domain.Result{}, nil
	}
	params := view.Parameters()
	est := view.Estimate()
	e, err := estimator.New(params)
	if err != nil {
		return domain.Result{}, err
	}

	last := throws[len(throws)-1]
	var (
		point    domain.Vec2
		headings [2]float64
	)
	if len(throws) == 1 {
		yaw := last.EffectiveAngle(params.AngleStep)
		point = last.Position.Add(domain.YawDirection(yaw).Scale(params.AssumedDistance))
		headings = [2]float64{domain.NormalizeAngle(yaw + 90), domain.NormalizeAngle(yaw - 90)}
	} else {
		if !est.HasPoint() || est.Ellipse == nil || len(est.Candidates) == 0 || est.Certainty >= params.TargetCertainty {
			return domain.Result{}, nil
		}
		point = *est.Point
		minor := est.Ellipse.MajorYaw + 90
		headings = [2]float64{domain.NormalizeAngle(minor), domain.NormalizeAngle(minor + 180)}
	}

	heading, offset, reached := searchOffset(e, throws, point, last.Position, headings, params)
	msg := fmt.Sprintf("walk %.0f blocks toward yaw %.1f and throw again", offset, heading)
	if !reached {
		msg = fmt.Sprintf("walk at least %.0f blocks toward yaw %.1f and throw again", offset, heading)
	}
	return domain.Result{Advisories: []domain.Advisory{{
		Rule:       "next_throw",
		Severity:   domain.SeverityInfo,
		Message:    msg,
		Heading:    &heading,
		Offset:     &offset,
		ThrowIndex: -1,
	}}}, nil
}

// searchOffset returns the smallest sideways offset whose hypothetical throw
// reaches the target certainty, trying both headings at each step. When no
// offset up to the maximum suffices it returns the maximum.
func searchOffset(e *estimator.Estimator, throws []domain.Throw, point, from domain.Vec2, headings [2]float64, params domain.Parameters) (float64, float64, bool) {
	for s := params.OffsetStep; s <= params.MaxOffset; s += params.OffsetStep {
		for _, h := range headings {
			q := from.Add(domain.YawDirection(h).Scale(s))
			if e.PredictCertainty(throws, point, q) >= params.TargetCertainty {
				return h, s, true
			}
		}
	}
	return headings[0], params.MaxOffset, false
}
