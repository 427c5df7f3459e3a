package estimator

import (
	"math"

	"strongholdcore/pkg/domain"
)

// PredictCertainty scores a hypothetical standard throw from `from` aimed at
// point, taken in addition to throws. The score is the probability mass of a
// cell centred on point under the predicted covariance, so it measures
// precision alone: placement and the point's offset inside its cell are
// ignored. Degenerate geometry scores 0.
func (e *Estimator) PredictCertainty(throws []domain.Throw, point, from domain.Vec2) float64 {
	if !point.IsFinite() || !from.IsFinite() {
		return 0
	}
	rays, err := raysFor(e.params, throws)
	if err != nil {
		return 0
	}
	toPoint := point.Sub(from)
	if toPoint.Len() == 0 {
		return 0
	}
	dir := toPoint.Scale(1 / toPoint.Len())
	rays = append(rays, ray{
		origin: from,
		dir:    dir,
		normal: domain.Vec2{X: dir.Z, Z: -dir.X},
		sigma:  e.params.SigmaStandard * math.Pi / 180,
	})

	var n normal
	for _, r := range rays {
		s := math.Max(point.Sub(r.origin).Len(), e.params.MinRayDistance) * r.sigma
		n.add(r, 1/(s*s))
	}
	if !n.conditioned(e.params.ConditionTol) {
		return 0
	}
	_, cov := n.solve()
	if !finiteCov(cov) || cov.XX <= 0 || cov.ZZ <= 0 {
		return 0
	}
	half := e.params.CellSize / 2
	m := newGaussian(point, cov).mass(point.X-half, point.X+half, point.Z-half, point.Z+half)
	if math.IsNaN(m) {
		return 0
	}
	return math.Min(m, 1)
}
