package domain

import "math"

// Cov2 is a symmetric 2x2 covariance matrix over (X, Z).
type Cov2 struct {
	XX float64 `json:"xx"`
	XZ float64 `json:"xz"`
	ZZ float64 `json:"zz"`
}

// Det returns the determinant.
func (c Cov2) Det() float64 { return c.XX*c.ZZ - c.XZ*c.XZ }

// Ellipse describes the one-sigma uncertainty ellipse of a covariance.
type Ellipse struct {
	Major float64 `json:"major"`
	Minor float64 `json:"minor"`
	// MajorYaw is the yaw of the major axis in degrees, in (-90, 90].
	MajorYaw float64 `json:"major_yaw"`
}

// Ellipse computes the principal axes of c.
func (c Cov2) Ellipse() Ellipse {
	mean := (c.XX + c.ZZ) / 2
	diff := (c.XX - c.ZZ) / 2
	r := math.Hypot(diff, c.XZ)
	l1 := mean + r
	l2 := math.Max(mean-r, 0)
	// eigenvector of l1 in (X, Z)
	theta := 0.5 * math.Atan2(2*c.XZ, c.XX-c.ZZ)
	dir := Vec2{X: math.Cos(theta), Z: math.Sin(theta)}
	yaw := DirectionYaw(dir)
	if yaw > 90 {
		yaw -= 180
	} else if yaw <= -90 {
		yaw += 180
	}
	return Ellipse{Major: math.Sqrt(l1), Minor: math.Sqrt(l2), MajorYaw: yaw}
}

// Cell is one square candidate region of the search grid.
type Cell struct {
	// I and K index the cell along X and Z; the cell spans
	// [I*size, (I+1)*size) x [K*size, (K+1)*size).
	I    int     `json:"i"`
	K    int     `json:"k"`
	Size float64 `json:"size"`
	Mass float64 `json:"mass"`
}

// Center returns the cell centre in block coordinates.
func (c Cell) Center() Vec2 {
	return Vec2{X: (float64(c.I) + 0.5) * c.Size, Z: (float64(c.K) + 0.5) * c.Size}
}

// Contains reports whether p lies inside the cell.
func (c Cell) Contains(p Vec2) bool {
	return int(math.Floor(p.X/c.Size)) == c.I && int(math.Floor(p.Z/c.Size)) == c.K
}

// Residual describes how far the point estimate lies from one ray.
type Residual struct {
	Index int `json:"index"`
	// Distance is the signed perpendicular distance from the estimate to the ray.
	Distance float64 `json:"distance"`
	// Sigma is the assumed perpendicular standard deviation at the estimate.
	Sigma float64 `json:"sigma"`
	// Behind is set when the estimate lies behind the observer.
	Behind bool `json:"behind"`
}

// Standardized returns |Distance| / Sigma.
func (r Residual) Standardized() float64 {
	if r.Sigma <= 0 {
		return 0
	}
	return math.Abs(r.Distance) / r.Sigma
}

// Estimate is the projection of a throw log onto a stronghold location.
// It carries no identity; every recomputation builds a new one.
type Estimate struct {
	Throws int `json:"throws"`
	// Point is nil when no position could be triangulated.
	Point      *Vec2    `json:"point,omitempty"`
	Covariance *Cov2    `json:"covariance,omitempty"`
	Ellipse    *Ellipse `json:"ellipse,omitempty"`
	// Ray is set when exactly one throw exists.
	Ray        *Ray   `json:"ray,omitempty"`
	Candidates []Cell `json:"candidates,omitempty"`
	// PlacementRelaxed is set when the placement constraint rejected every
	// cell near the point and candidates were ranked without it.
	PlacementRelaxed bool `json:"placement_relaxed,omitempty"`
	// Certainty is the mass of the top candidate. When the cell window is
	// capped, mass outside it still counts against the total.
	Certainty  float64    `json:"certainty"`
	Residuals  []Residual `json:"residuals,omitempty"`
	Degenerate bool       `json:"degenerate"`
	// Err records why the estimate was withheld; never surfaced as a failure.
	Err error `json:"-"`
}

// Ray is the single-throw projection: an origin and a unit direction.
type Ray struct {
	Origin    Vec2    `json:"origin"`
	Direction Vec2    `json:"direction"`
	Yaw       float64 `json:"yaw"`
	Sigma     float64 `json:"sigma"`
}

// Top returns the highest ranked cell.
func (e Estimate) Top() (Cell, bool) {
	if len(e.Candidates) == 0 {
		return Cell{}, false
	}
	return e.Candidates[0], true
}

// HasPoint reports whether a usable point estimate exists.
func (e Estimate) HasPoint() bool { return e.Point != nil && !e.Degenerate }

// Clone returns a deep copy.
func (e Estimate) Clone() Estimate {
	cp := e
	if e.Point != nil {
		p := *e.Point
		cp.Point = &p
	}
	if e.Covariance != nil {
		c := *e.Covariance
		cp.Covariance = &c
	}
	if e.Ellipse != nil {
		el := *e.Ellipse
		cp.Ellipse = &el
	}
	if e.Ray != nil {
		r := *e.Ray
		cp.Ray = &r
	}
	cp.Candidates = append([]Cell(nil), e.Candidates...)
	cp.Residuals = append([]Residual(nil), e.Residuals...)
	return cp
}
