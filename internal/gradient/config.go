package gradient

import (
	"errors"
	"fmt"
	"math"

	"github.com/jmylchreest/swatchpath/internal/util"
)

// Config holds the tuning constants of graph construction and row
// extraction. The defaults are empirical.
type Config struct {
	// MaxDiff is the half-width of the neighbour box for the average variant.
	MaxDiff float64

	// DominantBoxScale widens the neighbour box for the dominant variant.
	DominantBoxScale float64

	// MinStep is the shortest hop that produces an edge.
	MinStep float64

	// CosineEpsilon is the smallest cosine between a hop and the travel
	// direction that still produces an edge.
	CosineEpsilon float64

	// DistanceScale and DistanceRate shape the hop-length penalty
	// DistanceScale * (exp(DistanceRate * d) - 1).
	DistanceScale float64
	DistanceRate  float64

	// AngleScale and AngleRate shape the direction penalty
	// AngleScale * (exp(AngleRate * (1 - cos)) - 1).
	AngleScale float64
	AngleRate  float64

	// EndpointInflation multiplies the first and last edge of a used path.
	EndpointInflation float64

	// InflationBase and InflationSpan control how edges between path nodes
	// d hops apart (1 <= d <= InflationSpan) are multiplied by 1 + InflationBase/d.
	InflationBase float64
	InflationSpan int

	// DriftDecay is the weight of the previous drift target when a new row
	// midpoint is folded in.
	DriftDecay float64

	// DriftStrength scales the penalty for edges far from the drift target.
	// Zero disables drift weighting.
	DriftStrength float64

	// MaxEdgeWeight caps every edge weight.
	MaxEdgeWeight float64
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		MaxDiff:           0.15,
		DominantBoxScale:  1.2,
		MinStep:           0.04,
		CosineEpsilon:     0.0001,
		DistanceScale:     0.1,
		DistanceRate:      30,
		AngleScale:        0.2,
		AngleRate:         15,
		EndpointInflation: 2,
		InflationBase:     50,
		InflationSpan:     3,
		DriftDecay:        0.95,
		DriftStrength:     0.5,
		MaxEdgeWeight:     1e12,
	}
}

// ConfigFromEnv returns DefaultConfig overridden by SWATCHPATH_MAX_DIFF,
// SWATCHPATH_MIN_STEP, SWATCHPATH_DRIFT_STRENGTH and SWATCHPATH_INFLATION_BASE.
func ConfigFromEnv() (Config, error) {
	c := DefaultConfig()
	if err := c.ApplyEnv(); err != nil {
		return c, err
	}
	return c, c.Validate()
}

// ApplyEnv overrides fields of c from the environment.
func (c *Config) ApplyEnv() error {
	for _, v := range []struct {
		name string
		dst  *float64
	}{
		{"SWATCHPATH_MAX_DIFF", &c.MaxDiff},
		{"SWATCHPATH_MIN_STEP", &c.MinStep},
		{"SWATCHPATH_DRIFT_STRENGTH", &c.DriftStrength},
		{"SWATCHPATH_INFLATION_BASE", &c.InflationBase},
	} {
		if err := util.EnvFloat(v.name, v.dst); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks that the configuration keeps weights finite and non-negative.
func (c Config) Validate() error {
	var errs []error
	positive := func(name string, v float64) {
		if !(v > 0) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("%s must be positive and finite, got %v", name, v))
		}
	}
	nonNegative := func(name string, v float64) {
		if !(v >= 0) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("%s must be non-negative and finite, got %v", name, v))
		}
	}

	positive("max diff", c.MaxDiff)
	positive("dominant box scale", c.DominantBoxScale)
	nonNegative("min step", c.MinStep)
	nonNegative("cosine epsilon", c.CosineEpsilon)
	nonNegative("distance scale", c.DistanceScale)
	nonNegative("distance rate", c.DistanceRate)
	nonNegative("angle scale", c.AngleScale)
	nonNegative("angle rate", c.AngleRate)
	nonNegative("inflation base", c.InflationBase)
	nonNegative("drift strength", c.DriftStrength)
	positive("max edge weight", c.MaxEdgeWeight)

	if c.EndpointInflation < 1 {
		errs = append(errs, fmt.Errorf("endpoint inflation must be at least 1, got %v", c.EndpointInflation))
	}
	if c.InflationSpan < 1 {
		errs = append(errs, fmt.Errorf("inflation span must be at least 1, got %d", c.InflationSpan))
	}
	if c.DriftDecay < 0 || c.DriftDecay > 1 {
		errs = append(errs, fmt.Errorf("drift decay must be within [0,1], got %v", c.DriftDecay))
	}
	return errors.Join(errs...)
}

// HalfWidth returns the neighbour box half-width for variant v.
func (c Config) HalfWidth(v Variant) float64 {
	if v == VariantDominant {
		return c.MaxDiff * c.DominantBoxScale
	}
	return c.MaxDiff
}

// EdgeWeight returns the cost of a hop of length dist whose cosine with the
// travel direction is cos.
func (c Config) EdgeWeight(dist, cos float64) float64 {
	w := math.Max(0, c.DistanceScale*(math.Exp(c.DistanceRate*dist)-1))
	w += math.Max(0, c.AngleScale*(math.Exp(c.AngleRate*(1-cos))-1))
	return c.clamp(w)
}

func (c Config) clamp(w float64) float64 {
	if math.IsNaN(w) || w < 0 {
		return 0
	}
	return math.Min(w, c.MaxEdgeWeight)
}
