package estimator

import (
	"math"
	"sort"

	"strongholdcore/pkg/domain"
)

const (
	// windowSigmas bounds the candidate window around the estimate per axis.
	windowSigmas = 4.0
	// tailSigmas clips the outer integral; mass beyond it is below 1e-8.
	tailSigmas = 6.0
	// outerPanels is the number of composite Gauss-Legendre panels along X.
	outerPanels = 8
)

// 4-point Gauss-Legendre rule on [-1, 1].
var (
	glNodes   = [4]float64{-0.8611363115940526, -0.3399810435848563, 0.3399810435848563, 0.8611363115940526}
	glWeights = [4]float64{0.3478548451374538, 0.6521451548625461, 0.6521451548625461, 0.3478548451374538}
)

// gaussian is a bivariate normal factored as p(x) * p(z | x).
type gaussian struct {
	mu    domain.Vec2
	sx    float64
	sz    float64
	slope float64 // E[z|x] = mu.Z + slope*(x - mu.X)
	scond float64 // sd of z given x
}

func newGaussian(mu domain.Vec2, cov domain.Cov2) gaussian {
	condVar := cov.ZZ - cov.XZ*cov.XZ/cov.XX
	return gaussian{
		mu:    mu,
		sx:    math.Sqrt(cov.XX),
		sz:    math.Sqrt(cov.ZZ),
		slope: cov.XZ / cov.XX,
		scond: math.Sqrt(math.Max(condVar, 1e-12)),
	}
}

func stdNormalCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

func stdNormalPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}

// mass integrates the density over [x0,x1) x [z0,z1). The inner integral over
// z is exact; the outer one uses composite Gauss-Legendre quadrature over the
// part of the X range that carries mass.
func (g gaussian) mass(x0, x1, z0, z1 float64) float64 {
	lo := math.Max(x0, g.mu.X-tailSigmas*g.sx)
	hi := math.Min(x1, g.mu.X+tailSigmas*g.sx)
	if hi <= lo {
		return 0
	}
	h := (hi - lo) / outerPanels
	var sum float64
	for k := 0; k < outerPanels; k++ {
		a := lo + float64(k)*h
		for j, node := range glNodes {
			x := a + h/2*(node+1)
			px := stdNormalPDF((x-g.mu.X)/g.sx) / g.sx
			m := g.mu.Z + g.slope*(x-g.mu.X)
			pz := stdNormalCDF((z1-m)/g.scond) - stdNormalCDF((z0-m)/g.scond)
			sum += glWeights[j] * h / 2 * px * pz
		}
	}
	return sum
}

// axisRange returns the inclusive cell index range covering mu +/- windowSigmas*sd,
// capped to limit cells centred on the cell holding mu. capped reports whether
// the limit applied.
func axisRange(mu, sd, size float64, limit int) (first, last int, capped bool) {
	half := windowSigmas*sd + size
	first = int(math.Floor((mu - half) / size))
	last = int(math.Floor((mu + half) / size))
	if last-first+1 > limit {
		center := int(math.Floor(mu / size))
		first = center - limit/2
		last = first + limit - 1
		capped = true
	}
	return first, last, capped
}

// rankCells integrates the estimate over the candidate window and normalizes
// the cells the placement constraint keeps. When it keeps none, every window
// cell is ranked instead and relaxed is set. A capped window adds the mass
// outside it to the normalizer. Cells come back sorted by descending mass.
func rankCells(params domain.Parameters, placement Constraint, mu domain.Vec2, cov domain.Cov2) (cells []domain.Cell, relaxed bool) {
	g := newGaussian(mu, cov)
	size := params.CellSize
	i0, i1, cappedX := axisRange(mu.X, g.sx, size, params.MaxCellWindow)
	k0, k1, cappedZ := axisRange(mu.Z, g.sz, size, params.MaxCellWindow)

	var (
		all          []domain.Cell
		allowed      []bool
		windowMass   float64
		allowedMass  float64
		allowedCount int
	)
	for i := i0; i <= i1; i++ {
		x0 := float64(i) * size
		for k := k0; k <= k1; k++ {
			cell := domain.Cell{I: i, K: k, Size: size}
			z0 := float64(k) * size
			m := g.mass(x0, x0+size, z0, z0+size)
			if !(m > 0) || math.IsInf(m, 0) {
				continue
			}
			cell.Mass = m
			ok := placement.Allows(cell.Center())
			all = append(all, cell)
			allowed = append(allowed, ok)
			windowMass += m
			if ok {
				allowedMass += m
				allowedCount++
			}
		}
	}

	total := allowedMass
	if allowedCount == 0 {
		relaxed = len(all) > 0
		total = windowMass
		cells = all
	} else {
		cells = make([]domain.Cell, 0, allowedCount)
		for i, c := range all {
			if allowed[i] {
				cells = append(cells, c)
			}
		}
	}
	if cappedX || cappedZ {
		total += math.Max(0, 1-windowMass)
	}
	if !(total > 0) || math.IsInf(total, 0) {
		return nil, false
	}
	for i := range cells {
		cells[i].Mass /= total
	}
	sort.Slice(cells, func(a, b int) bool {
		if cells[a].Mass != cells[b].Mass {
			return cells[a].Mass > cells[b].Mass
		}
		if cells[a].I != cells[b].I {
			return cells[a].I < cells[b].I
		}
		return cells[a].K < cells[b].K
	})
	return cells, relaxed
}
