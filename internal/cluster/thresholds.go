package cluster

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/jmylchreest/swatchpath/internal/colour"
	"github.com/jmylchreest/swatchpath/internal/util"
)

// Thresholds bound the distances at which two samples are considered the same
// colour. All distances are Euclidean in normalised RGB.
type Thresholds struct {
	// AverageDistance is the largest allowed distance between mean colours.
	AverageDistance float64

	// MedianDistance is the largest allowed distance between median colours.
	MedianDistance float64

	// SpreadDistance is the largest allowed distance between spread vectors.
	SpreadDistance float64
}

// DefaultThresholds returns the empirically tuned defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AverageDistance: 0.015,
		MedianDistance:  0.03,
		SpreadDistance:  0.04,
	}
}

// ThresholdsFromEnv returns DefaultThresholds overridden by
// SWATCHPATH_AVERAGE_DISTANCE, SWATCHPATH_MEDIAN_DISTANCE and
// SWATCHPATH_SPREAD_DISTANCE.
func ThresholdsFromEnv() (Thresholds, error) {
	t := DefaultThresholds()
	if err := t.ApplyEnv(); err != nil {
		return t, err
	}
	return t, t.Validate()
}

// ApplyEnv overrides fields of t from the environment.
func (t *Thresholds) ApplyEnv() error {
	for name, dst := range map[string]*float64{
		"SWATCHPATH_AVERAGE_DISTANCE": &t.AverageDistance,
		"SWATCHPATH_MEDIAN_DISTANCE":  &t.MedianDistance,
		"SWATCHPATH_SPREAD_DISTANCE":  &t.SpreadDistance,
	} {
		if err := util.EnvFloat(name, dst); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks that every threshold is usable.
func (t Thresholds) Validate() error {
	var errs []error
	if t.AverageDistance < 0 {
		errs = append(errs, fmt.Errorf("average distance must be non-negative, got %v", t.AverageDistance))
	}
	if t.MedianDistance < 0 {
		errs = append(errs, fmt.Errorf("median distance must be non-negative, got %v", t.MedianDistance))
	}
	if t.SpreadDistance < 0 {
		errs = append(errs, fmt.Errorf("spread distance must be non-negative, got %v", t.SpreadDistance))
	}
	return errors.Join(errs...)
}

// Similar reports whether a and b describe the same colour under t.
// The predicate is symmetric.
func Similar(a, b colour.Stats, t Thresholds) bool {
	return r3.Norm(r3.Sub(a.Average, b.Average)) < t.AverageDistance &&
		r3.Norm(r3.Sub(a.Median, b.Median)) < t.MedianDistance &&
		r3.Norm(r3.Sub(a.Spread, b.Spread)) < t.SpreadDistance
}
