package core

import (
	"context"
	"fmt"

	"strongholdcore/pkg/domain"
)

// NewMismeasureRule flags a throw that disagrees with the others.
func NewMismeasureRule() domain.Rule {
	return mismeasureRule{}
}

type mismeasureRule struct{}

func (mismeasureRule) Name() string { return "mismeasure" }

func (mismeasureRule) Evaluate(_ context.Context, view domain.RuleView) (domain.Result, error) {
	est := view.Estimate()
	if est.Throws < 3 || !est.HasPoint() {
		return domain.Result{}, nil
	}
	threshold := view.Parameters().MismeasureThreshold

	worst, worstScore := -1, 0.0
	for _, r := range est.Residuals {
		if r.Behind {
			return warnAbout(r.Index, fmt.Sprintf("throw %d points away from the estimate; it was probably mismeasured", r.Index+1)), nil
		}
		if score := r.Standardized(); score > threshold && score > worstScore {
			worst, worstScore = r.Index, score
		}
	}
	if worst < 0 {
		return domain.Result{}, nil
	}
	return warnAbout(worst, fmt.Sprintf("throw %d is %.1f standard deviations off the estimate; it was probably mismeasured", worst+1, worstScore)), nil
}

func warnAbout(index int, msg string) domain.Result {
	return domain.Result{Advisories: []domain.Advisory{{
		Rule:       "mismeasure",
		Severity:   domain.SeverityWarn,
		Message:    msg,
		ThrowIndex: index,
	}}}
}
