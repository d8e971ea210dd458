package cluster

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// Loader produces the samples of a palette.
type Loader func(ctx context.Context) ([]Sample, error)

// Session owns one palette and the per-variant indexes derived from it.
// Everything is built lazily and dropped by Invalidate.
type Session struct {
	load    Loader
	builder *Builder
	logger  hclog.Logger

	mu         sync.Mutex
	palette    *Palette
	generation uint64
	indexes    map[Variant]*NeighborIndex
	neighbors  map[neighborKey]map[int][]*Entry
}

type neighborKey struct {
	variant   Variant
	halfWidth float64
}

// NewSession creates a session that loads samples with load and clusters
// them with a Builder configured by opts.
func NewSession(load Loader, opts ...Option) *Session {
	b := NewBuilder(opts...)
	return &Session{
		load:    load,
		builder: b,
		logger:  b.logger,
	}
}

// NewStaticSession wraps an already built palette. Invalidate keeps the
// palette but drops the indexes.
func NewStaticSession(p *Palette, opts ...Option) *Session {
	s := NewSession(nil, opts...)
	s.palette = p
	return s
}

// Palette returns the current palette, loading it if needed.
func (s *Session) Palette(ctx context.Context) (*Palette, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paletteLocked(ctx)
}

func (s *Session) paletteLocked(ctx context.Context) (*Palette, error) {
	if s.palette != nil {
		return s.palette, nil
	}
	if s.load == nil {
		return nil, fmt.Errorf("session has no palette loader")
	}
	samples, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load palette: %w", err)
	}
	s.palette = s.builder.Build(samples)
	s.generation++
	s.logger.Info("palette loaded", "entries", s.palette.Len(), "generation", s.generation)
	return s.palette, nil
}

// Generation counts palette loads. It changes after Invalidate and reload.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Entries returns the palette entries, or nil if the palette cannot be loaded.
func (s *Session) Entries() []*Entry {
	p, err := s.Palette(context.Background())
	if err != nil {
		s.logger.Error("palette unavailable", "error", err)
		return nil
	}
	return p.Entries()
}

// Entry returns the entry with the given id.
func (s *Session) Entry(id int) (*Entry, bool) {
	p, err := s.Palette(context.Background())
	if err != nil {
		return nil, false
	}
	return p.Entry(id)
}

// EntryFor returns the entry an item belongs to.
func (s *Session) EntryFor(item Item) (*Entry, bool) {
	p, err := s.Palette(context.Background())
	if err != nil {
		return nil, false
	}
	return p.EntryFor(item)
}

// Index returns the cached neighbour index for v.
func (s *Session) Index(ctx context.Context, v Variant) (*NeighborIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexLocked(ctx, v)
}

func (s *Session) indexLocked(ctx context.Context, v Variant) (*NeighborIndex, error) {
	if idx, ok := s.indexes[v]; ok {
		return idx, nil
	}
	p, err := s.paletteLocked(ctx)
	if err != nil {
		return nil, err
	}
	if s.indexes == nil {
		s.indexes = make(map[Variant]*NeighborIndex)
	}
	idx := NewNeighborIndex(p.entries, v)
	s.indexes[v] = idx
	s.logger.Debug("built neighbour index", "variant", v, "entries", idx.Len())
	return idx, nil
}

// Neighbors returns the cached neighbour map for v at the given box
// half-width. The map must not be modified.
func (s *Session) Neighbors(ctx context.Context, v Variant, halfWidth float64) (map[int][]*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := neighborKey{v, halfWidth}
	if m, ok := s.neighbors[key]; ok {
		return m, nil
	}
	idx, err := s.indexLocked(ctx, v)
	if err != nil {
		return nil, err
	}
	if s.neighbors == nil {
		s.neighbors = make(map[neighborKey]map[int][]*Entry)
	}
	m := idx.Neighbors(halfWidth)
	s.neighbors[key] = m
	return m, nil
}

// Invalidate drops the palette and every derived cache. The next call
// reloads from the Loader.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.load != nil {
		s.palette = nil
	}
	s.indexes = nil
	s.neighbors = nil
	s.logger.Debug("session invalidated")
}
