package domain

import (
	"errors"
	"fmt"
	"math"
)

// Placement names a structural placement constraint for candidate cells.
type Placement string

const (
	// PlacementRings restricts candidates to the concentric stronghold rings.
	PlacementRings Placement = "rings"
	// PlacementNone considers every cell.
	PlacementNone Placement = "none"
)

// Parameters are the numeric knobs shared by the estimator and advisory rules.
// Angles are in degrees, distances in blocks.
type Parameters struct {
	SigmaStandard   float64   `yaml:"sigma_standard" json:"sigma_standard"`
	SigmaAlternate  float64   `yaml:"sigma_alternate" json:"sigma_alternate"`
	BoatSigmaFactor float64   `yaml:"boat_sigma_factor" json:"boat_sigma_factor"`
	AngleStep       float64   `yaml:"angle_step" json:"angle_step"`
	CellSize        float64   `yaml:"cell_size" json:"cell_size"`
	MaxCellWindow   int       `yaml:"max_cell_window" json:"max_cell_window"`
	MaxCandidates   int       `yaml:"max_candidates" json:"max_candidates"`
	Placement       Placement `yaml:"placement" json:"placement"`
	MinRayDistance  float64   `yaml:"min_ray_distance" json:"min_ray_distance"`
	Iterations      int       `yaml:"reweight_iterations" json:"reweight_iterations"`
	ConditionTol    float64   `yaml:"condition_tolerance" json:"condition_tolerance"`

	MismeasureThreshold float64 `yaml:"mismeasure_threshold" json:"mismeasure_threshold"`
	DuplicateDistance   float64 `yaml:"duplicate_distance" json:"duplicate_distance"`
	DuplicateAngle      float64 `yaml:"duplicate_angle" json:"duplicate_angle"`
	CertaintyFloor      float64 `yaml:"certainty_floor" json:"certainty_floor"`
	TargetCertainty     float64 `yaml:"target_certainty" json:"target_certainty"`
	MaxOffset           float64 `yaml:"max_offset" json:"max_offset"`
	OffsetStep          float64 `yaml:"offset_step" json:"offset_step"`
	AssumedDistance     float64 `yaml:"assumed_distance" json:"assumed_distance"`
}

// DefaultParameters returns calibrated defaults.
func DefaultParameters() Parameters {
	return Parameters{
		SigmaStandard:       0.1,
		SigmaAlternate:      0.3,
		BoatSigmaFactor:     2,
		AngleStep:           0.01,
		CellSize:            16,
		MaxCellWindow:       81,
		MaxCandidates:       5,
		Placement:           PlacementRings,
		MinRayDistance:      1,
		Iterations:          4,
		ConditionTol:        1e-6,
		MismeasureThreshold: 3.5,
		DuplicateDistance:   1,
		DuplicateAngle:      0.01,
		CertaintyFloor:      0.8,
		TargetCertainty:     0.95,
		MaxOffset:           500,
		OffsetStep:          5,
		AssumedDistance:     1500,
	}
}

// Sigma returns the angular standard deviation of t in radians.
func (p Parameters) Sigma(t Throw) float64 {
	s := p.SigmaStandard
	if t.Kind == KindAlternate {
		s = p.SigmaAlternate
	}
	if t.Boat {
		s *= p.BoatSigmaFactor
	}
	return s * math.Pi / 180
}

type namedValue struct {
	name  string
	value float64
}

// Validate checks parameter ranges. Errors are reported in field order.
func (p Parameters) Validate() error {
	var errs []error
	positive := []namedValue{
		{"sigma_standard", p.SigmaStandard},
		{"sigma_alternate", p.SigmaAlternate},
		{"boat_sigma_factor", p.BoatSigmaFactor},
		{"angle_step", p.AngleStep},
		{"cell_size", p.CellSize},
		{"min_ray_distance", p.MinRayDistance},
		{"condition_tolerance", p.ConditionTol},
		{"offset_step", p.OffsetStep},
	}
	for _, f := range positive {
		if !(f.value > 0) || math.IsInf(f.value, 0) {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", f.name, f.value))
		}
	}
	if p.MaxCellWindow < 1 {
		errs = append(errs, fmt.Errorf("max_cell_window must be at least 1, got %d", p.MaxCellWindow))
	}
	if p.MaxCandidates < 1 {
		errs = append(errs, fmt.Errorf("max_candidates must be at least 1, got %d", p.MaxCandidates))
	}
	if p.Iterations < 1 {
		errs = append(errs, fmt.Errorf("reweight_iterations must be at least 1, got %d", p.Iterations))
	}
	if p.Placement != PlacementRings && p.Placement != PlacementNone {
		errs = append(errs, fmt.Errorf("unknown placement %q", p.Placement))
	}
	for _, f := range []namedValue{{"certainty_floor", p.CertaintyFloor}, {"target_certainty", p.TargetCertainty}} {
		if f.value < 0 || f.value > 1 {
			errs = append(errs, fmt.Errorf("%s must be within [0,1], got %v", f.name, f.value))
		}
	}
	return errors.Join(errs...)
}
