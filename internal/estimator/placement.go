package estimator

import "strongholdcore/pkg/domain"

// Constraint decides whether a stronghold may generate at a block position.
type Constraint interface {
	Allows(p domain.Vec2) bool
}

// Ring is an annulus around the world origin, in blocks.
type Ring struct {
	Inner float64
	Outer float64
}

// StrongholdRings are the generation rings of Java Edition 1.9 and later.
var StrongholdRings = []Ring{
	{Inner: 1280, Outer: 2816},
	{Inner: 4352, Outer: 5888},
	{Inner: 7424, Outer: 8960},
	{Inner: 10496, Outer: 12032},
	{Inner: 13568, Outer: 15104},
	{Inner: 16640, Outer: 18176},
	{Inner: 19712, Outer: 21248},
	{Inner: 22784, Outer: 24320},
}

// RingConstraint admits positions inside any of its rings.
type RingConstraint struct {
	Rings []Ring
}

// Allows implements Constraint.
func (c RingConstraint) Allows(p domain.Vec2) bool {
	r := p.Len()
	for _, ring := range c.Rings {
		if r >= ring.Inner && r <= ring.Outer {
			return true
		}
	}
	return false
}

// Unconstrained admits every position.
type Unconstrained struct{}

// Allows implements Constraint.
func (Unconstrained) Allows(domain.Vec2) bool { return true }

// ConstraintFor maps a configured placement onto a constraint.
func ConstraintFor(p domain.Placement) Constraint {
	if p == domain.PlacementRings {
		return RingConstraint{Rings: StrongholdRings}
	}
	return Unconstrained{}
}
