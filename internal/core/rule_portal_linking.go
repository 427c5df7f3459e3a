package core

import (
	"context"
	"fmt"
	"math"

	"strongholdcore/pkg/domain"
)

// NewPortalLinkingRule flags throws repeated from the same spot with the same
// angle, which happens when a nether portal links back to the same location.
func NewPortalLinkingRule() domain.Rule {
	return portalLinkingRule{}
}

type portalLinkingRule struct{}

func (portalLinkingRule) Name() string { return "portal_linking" }

func (portalLinkingRule) Evaluate(_ context.Context, view domain.RuleView) (domain.Result, error) {
	throws := view.Throws()
	params := view.Parameters()
	for j := 1; j < len(throws); j++ {
		for i := 0; i < j; i++ {
			a, b := throws[i], throws[j]
			if a.Position.Sub(b.Position).Len() > params.DuplicateDistance {
				continue
			}
			diff := domain.NormalizeAngle(a.EffectiveAngle(params.AngleStep) - b.EffectiveAngle(params.AngleStep))
			if math.Abs(diff) > params.DuplicateAngle {
				continue
			}
			return domain.Result{Advisories: []domain.Advisory{{
				Rule:       "portal_linking",
				Severity:   domain.SeverityWarn,
				Message:    fmt.Sprintf("throws %d and %d were taken from the same spot at the same angle; undo the duplicate or move before throwing again", i+1, j+1),
				ThrowIndex: j,
			}}}, nil
		}
	}
	return domain.Result{}, nil
}
