// Package estimator triangulates a stronghold position from a throw log.
//
// Every throw is a ray with Gaussian angular error. Rays become linear
// perpendicular-distance constraints whose weighted least-squares solution is
// the point estimate; the inverse normal matrix is its covariance. The
// resulting bivariate normal is then integrated over square cells to rank
// candidate chunks.
package estimator

import (
	"fmt"
	"math"

	"strongholdcore/pkg/domain"
)

// Estimator is a pure function of its parameters and the throws it is given.
// It is safe for concurrent use.
type Estimator struct {
	params    domain.Parameters
	placement Constraint
}

// New validates params and builds an estimator.
func New(params domain.Parameters) (*Estimator, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("estimator parameters: %w", err)
	}
	return &Estimator{params: params, placement: ConstraintFor(params.Placement)}, nil
}

// Parameters returns the parameters the estimator was built with.
func (e *Estimator) Parameters() domain.Parameters { return e.params }

// Estimate projects throws onto a stronghold estimate. It never panics and
// never returns non-finite values: numerical trouble yields a degenerate
// estimate with Err set.
func (e *Estimator) Estimate(throws []domain.Throw) domain.Estimate {
	est := domain.Estimate{Throws: len(throws)}
	switch len(throws) {
	case 0:
		return est
	case 1:
		t := throws[0]
		if !t.Position.IsFinite() || math.IsNaN(t.Angle) {
			est.Degenerate = true
			est.Err = domain.ErrDegenerateGeometry
			return est
		}
		yaw := t.EffectiveAngle(e.params.AngleStep)
		est.Ray = &domain.Ray{
			Origin:    t.Position,
			Direction: domain.YawDirection(yaw),
			Yaw:       yaw,
			Sigma:     e.params.Sigma(t),
		}
		return est
	}

	sol, err := solve(e.params, throws)
	if err != nil {
		est.Degenerate = true
		est.Err = err
		return est
	}
	point := sol.point
	cov := sol.cov
	ellipse := cov.Ellipse()
	est.Point = &point
	est.Covariance = &cov
	est.Ellipse = &ellipse
	est.Residuals = sol.residuals

	cells, relaxed := rankCells(e.params, e.placement, point, cov)
	est.PlacementRelaxed = relaxed
	if len(cells) > e.params.MaxCandidates {
		cells = cells[:e.params.MaxCandidates]
	}
	est.Candidates = cells
	if len(cells) > 0 {
		est.Certainty = cells[0].Mass
	}
	return est
}

// Estimate is a convenience wrapper for one-off projections.
func Estimate(params domain.Parameters, throws []domain.Throw) (domain.Estimate, error) {
	e, err := New(params)
	if err != nil {
		return domain.Estimate{}, err
	}
	return e.Estimate(throws), nil
}
