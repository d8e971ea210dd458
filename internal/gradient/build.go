package gradient

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/jmylchreest/swatchpath/internal/cluster"
)

var (
	// ErrUnknownItem is returned when an item is not part of the palette.
	ErrUnknownItem = errors.New("gradient: item not in palette")

	// ErrPaletteChanged is returned when the session reloaded its palette
	// while an engine was being built.
	ErrPaletteChanged = errors.New("gradient: palette changed during build")
)

// Build creates an engine for the gradient from source to dest over entries.
// The neighbour index is built from entries; use BuildFromSession to reuse
// cached indexes. Degenerate requests yield an exhausted engine.
func Build(entries []*cluster.Entry, source, dest *cluster.Entry, variant Variant, opts ...Option) *Engine {
	o := newOptions(opts)
	o.variant = variant
	idx := cluster.NewNeighborIndex(entries, variant)
	return build(entries, source, dest, idx.Neighbors(o.config.HalfWidth(variant)), o)
}

// BuildFromSession resolves both items in the session's palette and builds an
// engine using the session's cached neighbour map.
func BuildFromSession(ctx context.Context, s *cluster.Session, source, dest cluster.Item, variant Variant, opts ...Option) (*Engine, error) {
	p, err := s.Palette(ctx)
	if err != nil {
		return nil, err
	}
	src, ok := p.EntryFor(source)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownItem, source)
	}
	dst, ok := p.EntryFor(dest)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownItem, dest)
	}
	return BuildFromSessionEntries(ctx, s, src, dst, variant, opts...)
}

// BuildFromSessionEntries builds an engine between two entries of the
// session's current palette using its cached neighbour map.
func BuildFromSessionEntries(ctx context.Context, s *cluster.Session, source, dest *cluster.Entry, variant Variant, opts ...Option) (*Engine, error) {
	o := newOptions(opts)
	o.variant = variant

	p, err := s.Palette(ctx)
	if err != nil {
		return nil, err
	}
	if !owns(p, source) || !owns(p, dest) {
		return nil, ErrPaletteChanged
	}
	neighbors, err := s.Neighbors(ctx, variant, o.config.HalfWidth(variant))
	if err != nil {
		return nil, err
	}
	if current, err := s.Palette(ctx); err != nil || current != p {
		return nil, ErrPaletteChanged
	}
	return build(p.Entries(), source, dest, neighbors, o), nil
}

// owns reports whether e is the entry p holds under e's id. Entries from an
// earlier palette generation fail this even when their id is reused.
func owns(p *cluster.Palette, e *cluster.Entry) bool {
	if e == nil {
		return true
	}
	got, ok := p.Entry(e.ID)
	return ok && got == e
}

func build(entries []*cluster.Entry, source, dest *cluster.Entry, neighbors map[int][]*cluster.Entry, o options) *Engine {
	if source == nil || dest == nil || source.ID == dest.ID {
		o.logger.Debug("degenerate request", "source", source, "dest", dest)
		return newEngine(nil, 0, 0, o)
	}

	v, cfg := o.variant, o.config
	g := NewGraph()
	for _, e := range entries {
		g.AddNode(e.ID, e)
	}

	direction := r3.Sub(dest.Feature(v), source.Feature(v))
	dirNorm := r3.Norm(direction)
	if dirNorm == 0 {
		o.logger.Debug("source and destination share a colour", "source", source, "dest", dest)
		return newEngine(nil, 0, 0, o)
	}

	for _, e := range entries {
		if !e.Eligible(v) {
			continue
		}
		from := e.Feature(v)
		for _, n := range neighbors[e.ID] {
			if n.ID == e.ID {
				continue
			}
			step := r3.Sub(n.Feature(v), from)
			dist := r3.Norm(step)
			if dist <= cfg.MinStep {
				continue
			}
			cos := r3.Dot(direction, step) / (dirNorm * dist)
			if !(cos > cfg.CosineEpsilon) {
				continue
			}
			if err := g.AddEdge(e.ID, n.ID, cfg.EdgeWeight(dist, cos)); err != nil {
				o.logger.Debug("skipping edge", "from", e.ID, "to", n.ID, "error", err)
			}
		}
	}

	o.logger.Debug("graph built", "variant", v, "nodes", g.Len(), "edges", g.EdgeCount())
	return newEngine(g, source.ID, dest.ID, o)
}
