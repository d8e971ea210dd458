package colour

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrEmptyBuffer is returned when statistics are requested for a zero-area buffer.
var ErrEmptyBuffer = errors.New("pixel buffer has zero area")

const (
	// maxTrustworthySpread is the largest spread norm for which the robust
	// centre is considered representative of the whole sample.
	maxTrustworthySpread = 0.25

	// minCentreAgreement is the minimum cosine between the robust centre and
	// the average for the centre to be trusted.
	minCentreAgreement = 0.99
)

// Stats holds the colour descriptors of a single sample.
// All vectors are normalised to [0,1] per channel.
type Stats struct {
	Average     r3.Vec `json:"average"`
	Median      r3.Vec `json:"median"`
	Spread      r3.Vec `json:"spread"`
	Dominant    r3.Vec `json:"dominant"`
	Trustworthy bool   `json:"trustworthy"`
}

// StatsOption configures ComputeStats.
type StatsOption func(*statsOptions)

type statsOptions struct {
	estimator Estimator
}

// WithEstimator selects the robust-centre estimator. Unknown estimators fall
// back to EstimatorMedian.
func WithEstimator(e Estimator) StatsOption {
	return func(o *statsOptions) {
		if IsValidEstimator(e) {
			o.estimator = e
		}
	}
}

// ComputeStats derives the colour statistics of buf.
//
// Sums and per-channel 256-bucket histograms are accumulated in one pass; the
// median is read from the cumulative histogram and a second pass accumulates
// the squared deviation around that median.
func ComputeStats(buf *PixelBuffer, opts ...StatsOption) (Stats, error) {
	if buf.Empty() {
		return Stats{}, ErrEmptyBuffer
	}
	o := statsOptions{estimator: EstimatorMedian}
	for _, opt := range opts {
		opt(&o)
	}

	n := buf.Len()
	var sums [3]uint64
	var hist [3][256]int
	for i := 0; i < n; i++ {
		p := buf.Pix[i*3 : i*3+3]
		for c := range 3 {
			sums[c] += uint64(p[c])
			hist[c][p[c]]++
		}
	}

	var median [3]int
	half := n / 2
	for c := range 3 {
		median[c] = 127
		total := 0
		for v := range 256 {
			total += hist[c][v]
			if total > half {
				median[c] = v
				break
			}
		}
	}

	var sq [3]uint64
	for i := 0; i < n; i++ {
		p := buf.Pix[i*3 : i*3+3]
		for c := range 3 {
			d := int64(p[c]) - int64(median[c])
			sq[c] += uint64(d * d)
		}
	}

	count := float64(n)
	s := Stats{
		Average: r3.Vec{
			X: float64(sums[0]) / (count * 255),
			Y: float64(sums[1]) / (count * 255),
			Z: float64(sums[2]) / (count * 255),
		},
		Median: r3.Vec{
			X: float64(median[0]) / 255,
			Y: float64(median[1]) / 255,
			Z: float64(median[2]) / 255,
		},
		Spread: r3.Vec{
			X: math.Sqrt(float64(sq[0])/count) / 255,
			Y: math.Sqrt(float64(sq[1])/count) / 255,
			Z: math.Sqrt(float64(sq[2])/count) / 255,
		},
	}

	centre := s.Median
	switch o.estimator {
	case EstimatorKMeans:
		if c, ok := kmeansCentre(buf); ok {
			centre = c
		}
	case EstimatorDominantColor:
		centre = dominantCentre(buf)
	}

	s.Dominant = r3.Scale(0.5, r3.Add(s.Average, centre))
	s.Trustworthy = trustworthy(s.Average, centre, s.Spread)
	return s, nil
}

// trustworthy reports whether the robust centre describes the sample well
// enough to be used on its own. Pure black samples are always trusted.
func trustworthy(average, centre, spread r3.Vec) bool {
	if r3.Norm(centre) == 0 || r3.Norm(average) == 0 {
		return true
	}
	return r3.Norm(spread) < maxTrustworthySpread && r3.Cos(centre, average) > minCentreAgreement
}
