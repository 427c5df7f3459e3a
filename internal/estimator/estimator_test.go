package estimator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strongholdcore/pkg/domain"
)

func throwToward(from, target domain.Vec2) domain.Throw {
	return domain.NewThrow(from.X, from.Z, domain.DirectionYaw(target.Sub(from)))
}

func unconstrained() domain.Parameters {
	p := domain.DefaultParameters()
	p.Placement = domain.PlacementNone
	return p
}

func newEstimator(t *testing.T, p domain.Parameters) *Estimator {
	t.Helper()
	e, err := New(p)
	require.NoError(t, err)
	return e
}

func TestEstimateEmptyAndSingle(t *testing.T) {
	e := newEstimator(t, domain.DefaultParameters())

	empty := e.Estimate(nil)
	assert.Zero(t, empty.Certainty)
	assert.Nil(t, empty.Point)
	assert.Nil(t, empty.Covariance)
	assert.Empty(t, empty.Candidates)
	assert.Nil(t, empty.Ray)

	single := e.Estimate([]domain.Throw{domain.NewThrow(10, 20, 90)})
	assert.Zero(t, single.Certainty)
	assert.Nil(t, single.Point)
	assert.Nil(t, single.Covariance)
	assert.Empty(t, single.Candidates)
	require.NotNil(t, single.Ray)
	assert.InDelta(t, -1, single.Ray.Direction.X, 1e-12)
	assert.InDelta(t, 0, single.Ray.Direction.Z, 1e-12)
	assert.Equal(t, domain.Vec2{X: 10, Z: 20}, single.Ray.Origin)
}

func TestEstimateConcurrentRaysRecoverPoint(t *testing.T) {
	target := domain.Vec2{X: 1512, Z: 1208}
	throws := []domain.Throw{
		throwToward(domain.Vec2{X: 0, Z: 0}, target),
		throwToward(domain.Vec2{X: 300, Z: -100}, target),
		throwToward(domain.Vec2{X: -200, Z: 400}, target),
	}
	e := newEstimator(t, domain.DefaultParameters())
	est := e.Estimate(throws)

	require.True(t, est.HasPoint(), "err: %v", est.Err)
	assert.InDelta(t, target.X, est.Point.X, 1e-6)
	assert.InDelta(t, target.Z, est.Point.Z, 1e-6)
	top, ok := est.Top()
	require.True(t, ok)
	assert.True(t, top.Contains(target), "top cell %+v does not contain target", top)
	assert.Greater(t, est.Certainty, 0.0)
	for _, c := range est.Candidates[1:] {
		assert.LessOrEqual(t, c.Mass, top.Mass)
	}
	for _, r := range est.Residuals {
		assert.InDelta(t, 0, r.Distance, 1e-6)
		assert.False(t, r.Behind)
	}
}

func TestEstimateRightAngleScenario(t *testing.T) {
	// A looks diagonally toward +X/+Z, B looks straight down +Z; they cross at (100, 100).
	throws := []domain.Throw{
		domain.NewThrow(0, 0, -45),
		domain.NewThrow(100, 0, 0),
	}
	e := newEstimator(t, unconstrained())
	est := e.Estimate(throws)

	require.True(t, est.HasPoint(), "err: %v", est.Err)
	assert.InDelta(t, 100, est.Point.X, 1e-6)
	assert.InDelta(t, 100, est.Point.Z, 1e-6)
	top, ok := est.Top()
	require.True(t, ok)
	assert.Equal(t, 6, top.I)
	assert.Equal(t, 6, top.K)
	assert.Greater(t, est.Certainty, 0.9)
	assert.LessOrEqual(t, est.Certainty, 1.0)
	require.NotNil(t, est.Covariance)
	assert.Greater(t, est.Covariance.Det(), 0.0)
}

func TestEstimateNearParallelIsDegenerate(t *testing.T) {
	e := newEstimator(t, unconstrained())
	cases := map[string][]domain.Throw{
		"parallel":        {domain.NewThrow(0, 0, 10), domain.NewThrow(50, 0, 10)},
		"nearly parallel": {domain.NewThrow(0, 0, 10), domain.NewThrow(50, 0, 10.00001)},
		"same ray":        {domain.NewThrow(0, 0, 30), domain.NewThrow(0, 0, 30)},
	}
	for name, throws := range cases {
		t.Run(name, func(t *testing.T) {
			est := e.Estimate(throws)
			assert.True(t, est.Degenerate)
			assert.ErrorIs(t, est.Err, domain.ErrDegenerateGeometry)
			assert.Nil(t, est.Point)
			assert.Zero(t, est.Certainty)
			assert.False(t, math.IsNaN(est.Certainty))
			assert.Empty(t, est.Candidates)
		})
	}
}

func TestEstimateNonFiniteInputDegrades(t *testing.T) {
	e := newEstimator(t, unconstrained())
	est := e.Estimate([]domain.Throw{
		domain.NewThrow(math.NaN(), 0, 10),
		domain.NewThrow(100, 0, 40),
	})
	assert.True(t, est.Degenerate)
	assert.ErrorIs(t, est.Err, domain.ErrDegenerateGeometry)

	single := e.Estimate([]domain.Throw{domain.NewThrow(math.Inf(1), 0, 10)})
	assert.True(t, single.Degenerate)
	assert.Nil(t, single.Ray)
}

func TestEstimateRingConstraintFiltersCandidates(t *testing.T) {
	target := domain.Vec2{X: 1288, Z: 8}
	throws := []domain.Throw{
		throwToward(domain.Vec2{X: 0, Z: 0}, target),
		throwToward(domain.Vec2{X: 0, Z: 600}, target),
	}
	p := domain.DefaultParameters()
	p.MaxCandidates = 1000
	est := newEstimator(t, p).Estimate(throws)
	require.True(t, est.HasPoint())
	rings := RingConstraint{Rings: StrongholdRings}
	var total float64
	for _, c := range est.Candidates {
		assert.True(t, rings.Allows(c.Center()), "cell %+v outside rings", c)
		total += c.Mass
	}
	assert.InDelta(t, 1, total, 1e-9)
}

func TestEstimateAlternateAndBoatWidenCovariance(t *testing.T) {
	// centred in its cell so a wider covariance can only lose mass
	target := domain.Vec2{X: 1512, Z: 1512}
	base := []domain.Throw{
		throwToward(domain.Vec2{X: 0, Z: 0}, target),
		throwToward(domain.Vec2{X: 400, Z: 0}, target),
	}
	e := newEstimator(t, unconstrained())
	std := e.Estimate(base)

	alt := domain.CloneThrows(base)
	alt[1].Kind = domain.KindAlternate
	altEst := e.Estimate(alt)

	boat := domain.CloneThrows(alt)
	boat[1].Boat = true
	boatEst := e.Estimate(boat)

	require.True(t, std.HasPoint())
	require.True(t, altEst.HasPoint())
	require.True(t, boatEst.HasPoint())
	assert.Greater(t, altEst.Covariance.Det(), std.Covariance.Det())
	assert.Greater(t, boatEst.Covariance.Det(), altEst.Covariance.Det())
	assert.GreaterOrEqual(t, std.Certainty, boatEst.Certainty)
}

func TestGaussianMassIntegratesToOne(t *testing.T) {
	g := newGaussian(domain.Vec2{X: 3, Z: -2}, domain.Cov2{XX: 25, XZ: 12, ZZ: 16})
	assert.InDelta(t, 1, g.mass(-200, 200, -200, 200), 1e-4)
	// half plane split along the mean in X
	assert.InDelta(t, 0.5, g.mass(-200, 3, -200, 200), 1e-4)
	assert.Zero(t, g.mass(500, 600, -10, 10))
}

func TestNewRejectsInvalidParameters(t *testing.T) {
	p := domain.DefaultParameters()
	p.CellSize = 0
	_, err := New(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cell_size")
}

func TestEstimateRelaxesPlacementInsideInnerRing(t *testing.T) {
	// the right-angle scenario lies well inside the innermost ring
	throws := []domain.Throw{
		domain.NewThrow(0, 0, -45),
		domain.NewThrow(100, 0, 0),
	}
	ringed := newEstimator(t, domain.DefaultParameters()).Estimate(throws)
	free := newEstimator(t, unconstrained()).Estimate(throws)

	require.True(t, ringed.HasPoint())
	assert.True(t, ringed.PlacementRelaxed)
	assert.False(t, free.PlacementRelaxed)
	top, ok := ringed.Top()
	require.True(t, ok)
	assert.True(t, top.Contains(domain.Vec2{X: 100, Z: 100}))
	assert.Greater(t, ringed.Certainty, 0.0)
	assert.InDelta(t, free.Certainty, ringed.Certainty, 1e-12)
	assert.Equal(t, free.Candidates, ringed.Candidates)
}

func TestEstimateCappedWindowKeepsOutsideMass(t *testing.T) {
	target := domain.Vec2{X: 2000, Z: 8}
	throws := []domain.Throw{
		throwToward(domain.Vec2{X: 0, Z: 0}, target),
		throwToward(domain.Vec2{X: 0, Z: 30}, target),
	}
	for i := range throws {
		throws[i].Kind = domain.KindAlternate
	}
	p := unconstrained()
	p.MaxCandidates = p.MaxCellWindow * p.MaxCellWindow
	est := newEstimator(t, p).Estimate(throws)
	require.True(t, est.HasPoint())

	g := newGaussian(*est.Point, *est.Covariance)
	_, _, capped := axisRange(est.Point.X, g.sx, p.CellSize, p.MaxCellWindow)
	require.True(t, capped, "window should be capped for this geometry")

	top, ok := est.Top()
	require.True(t, ok)
	x0, z0 := float64(top.I)*top.Size, float64(top.K)*top.Size
	assert.InDelta(t, g.mass(x0, x0+top.Size, z0, z0+top.Size), est.Certainty, 1e-9)

	var total float64
	for _, c := range est.Candidates {
		total += c.Mass
	}
	assert.Less(t, total, 0.999)
}
