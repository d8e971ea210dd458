package cluster

import (
	"cmp"
	"slices"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/swatchpath/internal/colour"
)

// StatsCache stores computed statistics keyed by sample content.
type StatsCache interface {
	Lookup(key string) (colour.Stats, bool)
	Store(key string, stats colour.Stats) error
}

// Option configures a Builder.
type Option func(*Builder)

// WithThresholds sets the similarity thresholds.
func WithThresholds(t Thresholds) Option {
	return func(b *Builder) { b.thresholds = t }
}

// WithEstimator sets the robust-centre estimator used for sample statistics.
func WithEstimator(e colour.Estimator) Option {
	return func(b *Builder) { b.estimator = e }
}

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithStatsCache reuses statistics across runs.
func WithStatsCache(c StatsCache) Option {
	return func(b *Builder) { b.cache = c }
}

// Builder turns samples into a finalised Palette.
type Builder struct {
	thresholds Thresholds
	estimator  colour.Estimator
	logger     hclog.Logger
	cache      StatsCache
}

// NewBuilder creates a Builder with default thresholds and the median estimator.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		thresholds: DefaultThresholds(),
		estimator:  colour.EstimatorMedian,
		logger:     hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build computes statistics for every sample, clusters them and assigns ids.
// Samples with empty pixel buffers are skipped. Build never fails; an empty
// input yields an empty palette.
func (b *Builder) Build(samples []Sample) *Palette {
	entries := make([]*Entry, 0, len(samples))
	skipped := 0
	for _, s := range samples {
		stats, err := b.stats(s)
		if err != nil {
			b.logger.Debug("skipping sample", "item", s.Item, "source", s.Source, "error", err)
			skipped++
			continue
		}
		entries = append(entries, newEntry(s, stats))
	}

	merged := b.Merge(entries)
	p := newPalette(merged)
	b.logger.Debug("clustered palette",
		"samples", len(samples), "skipped", skipped, "entries", p.Len(), "estimator", b.estimator)
	return p
}

func (b *Builder) stats(s Sample) (colour.Stats, error) {
	if s.Pixels.Empty() {
		return colour.Stats{}, colour.ErrEmptyBuffer
	}
	if b.cache == nil {
		return colour.ComputeStats(s.Pixels, colour.WithEstimator(b.estimator))
	}

	key := s.Pixels.Hash() + ":" + string(b.estimator)
	if stats, ok := b.cache.Lookup(key); ok {
		return stats, nil
	}
	stats, err := colour.ComputeStats(s.Pixels, colour.WithEstimator(b.estimator))
	if err != nil {
		return stats, err
	}
	if err := b.cache.Store(key, stats); err != nil {
		b.logger.Warn("failed to cache stats", "item", s.Item, "error", err)
	}
	return stats, nil
}

// Merge runs the three-axis sweep over entries and assigns dense ids in the
// final sweep order. Entries are sorted by mean red, green and blue in turn,
// and each entry is folded into the preceding kept entry when the two are
// Similar. Only neighbours after each sort are compared, so some similar pairs
// may survive as separate entries.
func (b *Builder) Merge(entries []*Entry) []*Entry {
	kept := slices.Clone(entries)
	for axis := range 3 {
		slices.SortStableFunc(kept, func(x, y *Entry) int {
			return cmp.Compare(component(x.Stats.Average, axis), component(y.Stats.Average, axis))
		})

		sweep := kept[:0:0]
		for _, e := range kept {
			if n := len(sweep); n > 0 && Similar(sweep[n-1].Stats, e.Stats, b.thresholds) {
				sweep[n-1].absorb(e)
				continue
			}
			sweep = append(sweep, e)
		}
		kept = sweep
	}

	for i, e := range kept {
		e.ID = i
	}
	return kept
}
