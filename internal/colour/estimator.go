package colour

import (
	"fmt"
	"math"

	"github.com/cenkalti/dominantcolor"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
	"gonum.org/v1/gonum/spatial/r3"
)

// Estimator selects how the robust central colour of a sample is found.
type Estimator string

const (
	// EstimatorMedian uses the per-channel histogram median.
	EstimatorMedian Estimator = "median"

	// EstimatorKMeans uses the centroid of the most populated k-means cluster.
	EstimatorKMeans Estimator = "kmeans"

	// EstimatorDominantColor uses github.com/cenkalti/dominantcolor.
	EstimatorDominantColor Estimator = "dominantcolor"
)

const (
	kmeansClusters   = 3
	kmeansMaxSamples = 4096
)

// ValidEstimators returns a list of valid estimator names.
func ValidEstimators() []Estimator {
	return []Estimator{
		EstimatorMedian,
		EstimatorKMeans,
		EstimatorDominantColor,
	}
}

// IsValidEstimator checks if the given estimator name is valid.
func IsValidEstimator(e Estimator) bool {
	for _, valid := range ValidEstimators() {
		if e == valid {
			return true
		}
	}
	return false
}

// ParseEstimator converts a flag value to an Estimator.
func ParseEstimator(s string) (Estimator, error) {
	e := Estimator(s)
	if !IsValidEstimator(e) {
		return "", fmt.Errorf("unknown estimator: %s (valid estimators: %v)", s, ValidEstimators())
	}
	return e, nil
}

// kmeansCentre partitions a subsample of the buffer and returns the centroid
// of the largest cluster.
func kmeansCentre(buf *PixelBuffer) (r3.Vec, bool) {
	n := buf.Len()
	step := 1
	if n > kmeansMaxSamples {
		step = int(math.Ceil(float64(n) / kmeansMaxSamples))
	}

	dataset := make(clusters.Observations, 0, n/step+1)
	for i := 0; i < n; i += step {
		p := buf.Pix[i*3 : i*3+3]
		dataset = append(dataset, clusters.Coordinates{
			float64(p[0]) / 255,
			float64(p[1]) / 255,
			float64(p[2]) / 255,
		})
	}

	k := min(kmeansClusters, len(dataset))
	if k == 0 {
		return r3.Vec{}, false
	}

	cc, err := kmeans.New().Partition(dataset, k)
	if err != nil || len(cc) == 0 {
		return r3.Vec{}, false
	}

	best := -1
	for i, c := range cc {
		if len(c.Center) < 3 {
			continue
		}
		if best < 0 || len(c.Observations) > len(cc[best].Observations) {
			best = i
		}
	}
	if best < 0 {
		return r3.Vec{}, false
	}
	centre := cc[best].Center
	return r3.Vec{X: centre[0], Y: centre[1], Z: centre[2]}, true
}

// dominantCentre returns the dominant colour reported by dominantcolor.Find.
func dominantCentre(buf *PixelBuffer) r3.Vec {
	return ToRGB(dominantcolor.Find(buf.Image())).Vec()
}
