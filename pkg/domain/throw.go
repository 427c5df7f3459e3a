package domain

import (
	"fmt"
	"math"
	"time"
)

// ThrowKind selects the assumed measurement-error distribution of a throw.
type ThrowKind string

const (
	// KindStandard is a regular eye throw measured by the crosshair.
	KindStandard ThrowKind = "standard"
	// KindAlternate uses the alternate (wider) standard deviation.
	KindAlternate ThrowKind = "alternate"
)

// Valid reports whether k is a known kind.
func (k ThrowKind) Valid() bool {
	return k == KindStandard || k == KindAlternate
}

// Toggled returns the other kind.
func (k ThrowKind) Toggled() ThrowKind {
	if k == KindAlternate {
		return KindStandard
	}
	return KindAlternate
}

// Vec2 is a point or direction in the horizontal world plane (X, Z).
type Vec2 struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: v.X - o.X, Z: v.Z - o.Z} }

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Z: v.Z + o.Z} }

// Scale returns v * f.
func (v Vec2) Scale(f float64) Vec2 { return Vec2{X: v.X * f, Z: v.Z * f} }

// Dot returns the scalar product.
func (v Vec2) Dot(o Vec2) float64 { return v.X*o.X + v.Z*o.Z }

// Len returns the euclidean length.
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Z) }

// IsFinite reports whether both components are finite.
func (v Vec2) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) && !math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}

// NormalizeAngle maps any angle in degrees into (-180, 180].
func NormalizeAngle(deg float64) float64 {
	a := math.Mod(deg, 360)
	if a <= -180 {
		a += 360
	} else if a > 180 {
		a -= 360
	}
	return a
}

// YawDirection returns the unit vector a player looks along for a Minecraft
// yaw in degrees: 0 faces +Z and 90 faces -X.
func YawDirection(yaw float64) Vec2 {
	r := yaw * math.Pi / 180
	return Vec2{X: -math.Sin(r), Z: math.Cos(r)}
}

// DirectionYaw is the inverse of YawDirection.
func DirectionYaw(d Vec2) float64 {
	return NormalizeAngle(math.Atan2(-d.X, d.Z) * 180 / math.Pi)
}

// Throw is one observation: where the eye was thrown from and where it flew.
// Records are values; the log replaces them wholesale when amending the tail.
type Throw struct {
	ID       string    `json:"id"`
	Position Vec2      `json:"position"`
	Angle    float64   `json:"angle"`
	Vertical *float64  `json:"vertical,omitempty"`
	Kind     ThrowKind `json:"kind"`
	Boat     bool      `json:"boat"`
	// Correction counts manual angle adjustment steps applied on top of Angle.
	Correction int       `json:"correction,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewThrow builds a standard throw with a normalized angle.
func NewThrow(x, z, angle float64) Throw {
	return Throw{
		Position: Vec2{X: x, Z: z},
		Angle:    NormalizeAngle(angle),
		Kind:     KindStandard,
	}
}

// EffectiveAngle returns the measured angle with corrections applied.
func (t Throw) EffectiveAngle(step float64) float64 {
	if t.Correction == 0 {
		return t.Angle
	}
	return NormalizeAngle(t.Angle + float64(t.Correction)*step)
}

// Direction returns the unit ray direction for the corrected angle.
func (t Throw) Direction(step float64) Vec2 {
	return YawDirection(t.EffectiveAngle(step))
}

// Clone returns a deep copy.
func (t Throw) Clone() Throw {
	cp := t
	if t.Vertical != nil {
		v := *t.Vertical
		cp.Vertical = &v
	}
	return cp
}

// CloneThrows deep copies a slice of throws; nil stays nil.
func CloneThrows(in []Throw) []Throw {
	if in == nil {
		return nil
	}
	out := make([]Throw, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}

// worldLimit bounds coordinates to the world border.
const worldLimit = 30_000_000

// Validate performs the boundary checks applied before a throw is accepted.
func (t Throw) Validate() error {
	switch {
	case !t.Position.IsFinite():
		return fmt.Errorf("position %v is not finite", t.Position)
	case math.Abs(t.Position.X) > worldLimit || math.Abs(t.Position.Z) > worldLimit:
		return fmt.Errorf("position %v outside world border", t.Position)
	case math.IsNaN(t.Angle) || math.IsInf(t.Angle, 0):
		return fmt.Errorf("angle %v is not finite", t.Angle)
	case t.Vertical != nil && (math.IsNaN(*t.Vertical) || *t.Vertical < -90 || *t.Vertical > 90):
		return fmt.Errorf("vertical angle %v outside [-90, 90]", *t.Vertical)
	case t.Kind != "" && !t.Kind.Valid():
		return fmt.Errorf("unknown throw kind %q", t.Kind)
	}
	return nil
}
