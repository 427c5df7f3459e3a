package estimator

import (
	"fmt"
	"math"

	"strongholdcore/pkg/domain"
)

type ray struct {
	origin domain.Vec2
	dir    domain.Vec2
	normal domain.Vec2
	sigma  float64 // radians
}

type solution struct {
	point     domain.Vec2
	cov       domain.Cov2
	residuals []domain.Residual
}

func raysFor(params domain.Parameters, throws []domain.Throw) ([]ray, error) {
	rays := make([]ray, 0, len(throws))
	for i, t := range throws {
		yaw := t.EffectiveAngle(params.AngleStep)
		if !t.Position.IsFinite() || math.IsNaN(yaw) || math.IsInf(yaw, 0) {
			return nil, fmt.Errorf("throw %d has non-finite input: %w", i, domain.ErrDegenerateGeometry)
		}
		r := yaw * math.Pi / 180
		rays = append(rays, ray{
			origin: t.Position,
			dir:    domain.YawDirection(yaw),
			normal: domain.Vec2{X: math.Cos(r), Z: math.Sin(r)},
			sigma:  params.Sigma(t),
		})
	}
	return rays, nil
}

// normal accumulates the weighted normal equations A p = b.
type normal struct {
	xx, xz, zz float64
	bx, bz     float64
}

func (n *normal) add(r ray, w float64) {
	c := r.normal.Dot(r.origin)
	n.xx += w * r.normal.X * r.normal.X
	n.xz += w * r.normal.X * r.normal.Z
	n.zz += w * r.normal.Z * r.normal.Z
	n.bx += w * r.normal.X * c
	n.bz += w * r.normal.Z * c
}

// conditioned rejects near-singular systems using a scale free ratio:
// det / (trace/2)^2 is 1 for perpendicular equal-weight rays and
// approaches 0 as the rays become parallel.
func (n normal) conditioned(tol float64) bool {
	det := n.xx*n.zz - n.xz*n.xz
	half := (n.xx + n.zz) / 2
	if !(half > 0) || math.IsInf(half, 0) || math.IsNaN(det) {
		return false
	}
	return det/(half*half) >= tol
}

func (n normal) solve() (domain.Vec2, domain.Cov2) {
	det := n.xx*n.zz - n.xz*n.xz
	p := domain.Vec2{
		X: (n.zz*n.bx - n.xz*n.bz) / det,
		Z: (n.xx*n.bz - n.xz*n.bx) / det,
	}
	cov := domain.Cov2{XX: n.zz / det, XZ: -n.xz / det, ZZ: n.xx / det}
	return p, cov
}

// solve runs iteratively reweighted least squares. The perpendicular error of
// a ray grows linearly with distance from its observer, so each pass weights
// rays by 1/(d*sigma)^2 with d taken from the previous solution.
func solve(params domain.Parameters, throws []domain.Throw) (solution, error) {
	rays, err := raysFor(params, throws)
	if err != nil {
		return solution{}, err
	}
	dist := make([]float64, len(rays))
	for i := range dist {
		dist[i] = 1
	}

	var (
		p   domain.Vec2
		cov domain.Cov2
	)
	for it := 0; it < params.Iterations; it++ {
		var n normal
		for i, r := range rays {
			s := dist[i] * r.sigma
			n.add(r, 1/(s*s))
		}
		if !n.conditioned(params.ConditionTol) {
			return solution{}, fmt.Errorf("normal equations ill-conditioned: %w", domain.ErrDegenerateGeometry)
		}
		p, cov = n.solve()
		if !p.IsFinite() || !finiteCov(cov) || cov.XX <= 0 || cov.ZZ <= 0 {
			return solution{}, fmt.Errorf("non-finite solution: %w", domain.ErrDegenerateGeometry)
		}
		for i, r := range rays {
			dist[i] = math.Max(p.Sub(r.origin).Len(), params.MinRayDistance)
		}
	}

	residuals := make([]domain.Residual, len(rays))
	for i, r := range rays {
		rel := p.Sub(r.origin)
		residuals[i] = domain.Residual{
			Index:    i,
			Distance: r.normal.Dot(rel),
			Sigma:    dist[i] * r.sigma,
			Behind:   r.dir.Dot(rel) < 0,
		}
	}
	return solution{point: p, cov: cov, residuals: residuals}, nil
}

func finiteCov(c domain.Cov2) bool {
	for _, v := range []float64{c.XX, c.XZ, c.ZZ} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
