package gradient

import (
	"github.com/hashicorp/go-hclog"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/jmylchreest/swatchpath/internal/cluster"
)

// State is the extraction state of an Engine.
type State int

const (
	// StateActive means more rows may be produced.
	StateActive State = iota
	// StateExhausted is terminal: no further rows will be produced.
	StateExhausted
)

func (s State) String() string {
	if s == StateExhausted {
		return "exhausted"
	}
	return "active"
}

// Cell is one grid position of a row.
type Cell struct {
	Entry *cluster.Entry
	X, Y  int
}

// Row is a source cell, the intermediate cells and a destination cell.
type Row []Cell

// Option configures Build and NewEngine.
type Option func(*options)

type options struct {
	config  Config
	logger  hclog.Logger
	variant Variant
}

func newOptions(opts []Option) options {
	o := options{
		config:  DefaultConfig(),
		logger:  hclog.NewNullLogger(),
		variant: VariantAverage,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithConfig replaces the default configuration.
func WithConfig(c Config) Option {
	return func(o *options) { o.config = c }
}

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithVariant sets the feature space used for drift on hand-built graphs.
// Build sets it from its variant argument.
func WithVariant(v Variant) Option {
	return func(o *options) { o.variant = v }
}

// Engine extracts gradient rows from one graph. Every row mutates edge
// weights, so an Engine must be used by one goroutine at a time.
type Engine struct {
	cfg     Config
	logger  hclog.Logger
	variant Variant

	graph        *Graph
	order        []*Node
	source, dest *Node

	state    State
	rows     [][]*Node
	drift    r3.Vec
	hasDrift bool
}

// NewEngine wraps a graph. The source -> dest edge is removed. If either
// endpoint is missing, they are the same node, or the graph has a cycle, the
// engine starts exhausted.
func NewEngine(g *Graph, source, dest int, opts ...Option) *Engine {
	return newEngine(g, source, dest, newOptions(opts))
}

func newEngine(g *Graph, source, dest int, o options) *Engine {
	e := &Engine{
		cfg:     o.config,
		logger:  o.logger,
		variant: o.variant,
		graph:   g,
		state:   StateExhausted,
	}
	if g == nil {
		return e
	}
	src, okSrc := g.Node(source)
	dst, okDst := g.Node(dest)
	if !okSrc || !okDst || src == dst {
		e.logger.Debug("degenerate request", "source", source, "dest", dest)
		return e
	}
	src.RemoveEdge(dest)

	if cycle := g.FindCycle(); cycle != nil {
		e.logger.Warn("graph has a cycle, no gradient available", "cycle", cycle)
		return e
	}
	order, err := g.TopoSort()
	if err != nil {
		e.logger.Warn("failed to sort graph", "error", err)
		return e
	}

	e.order = order
	e.source, e.dest = src, dst
	e.state = StateActive
	e.logger.Debug("engine ready", "nodes", g.Len(), "edges", g.EdgeCount(), "variant", e.variant)
	return e
}

// State returns the extraction state.
func (e *Engine) State() State { return e.state }

// Len returns the number of rows produced so far.
func (e *Engine) Len() int { return len(e.rows) }

// Drift returns the current drift target and whether one has been set.
func (e *Engine) Drift() (r3.Vec, bool) { return e.drift, e.hasDrift }

// Graph returns the graph being traversed.
func (e *Engine) Graph() *Graph { return e.graph }

// Row returns row y, producing earlier rows as needed. It returns nil for
// negative y and for rows beyond exhaustion.
func (e *Engine) Row(y int) Row {
	if y < 0 {
		return nil
	}
	for e.state == StateActive && y >= len(e.rows) {
		e.generate()
	}
	if y >= len(e.rows) {
		return nil
	}

	path := e.rows[y]
	row := make(Row, 0, len(path)+2)
	row = append(row, Cell{Entry: e.source.Entry, X: 0, Y: y})
	for i, n := range path {
		row = append(row, Cell{Entry: n.Entry, X: i + 1, Y: y})
	}
	row = append(row, Cell{Entry: e.dest.Entry, X: len(path) + 1, Y: y})
	return row
}

// Rows returns up to n rows starting at row 0.
func (e *Engine) Rows(n int) []Row {
	var out []Row
	for y := range n {
		row := e.Row(y)
		if row == nil {
			break
		}
		out = append(out, row)
	}
	return out
}

func (e *Engine) generate() {
	if e.state == StateExhausted {
		return
	}
	path, ok := ShortestPath(e.order, e.source, e.dest, e.weightFunc())
	if !ok || len(path) == 0 {
		e.state = StateExhausted
		e.logger.Debug("gradient exhausted", "rows", len(e.rows))
		return
	}

	e.updateDrift(path)
	removed := -1
	if edge := e.diversify(path); edge != nil {
		removed = edge.To.ID
	}
	e.rows = append(e.rows, path)
	e.logger.Trace("row generated", "row", len(e.rows)-1, "length", len(path), "removed_to", removed)
}

func (e *Engine) feature(n *Node) r3.Vec {
	if n.Entry == nil {
		return r3.Vec{}
	}
	return n.Entry.Feature(e.variant)
}

// weightFunc scales each edge by its distance from the drift target.
func (e *Engine) weightFunc() WeightFunc {
	if !e.hasDrift || e.cfg.DriftStrength == 0 {
		return nil
	}
	drift, strength := e.drift, e.cfg.DriftStrength
	return func(from, to *Node, w float64) float64 {
		mid := r3.Scale(0.5, r3.Add(e.feature(from), e.feature(to)))
		return e.cfg.clamp(w * (1 + strength*r3.Norm(r3.Sub(mid, drift))))
	}
}

func (e *Engine) updateDrift(path []*Node) {
	mid := e.feature(path[len(path)/2])
	if !e.hasDrift {
		e.drift, e.hasDrift = mid, true
		return
	}
	d := e.cfg.DriftDecay
	e.drift = r3.Add(r3.Scale(d, e.drift), r3.Scale(1-d, mid))
}

// diversify inflates the edges around a used path and removes its cheapest
// edge so the same row cannot be produced twice. It returns the removed edge.
func (e *Engine) diversify(path []*Node) *Edge {
	type candidate struct {
		from *Node
		edge *Edge
	}
	var best candidate

	if first := e.source.EdgeTo(path[0].ID); first != nil {
		first.Weight = e.cfg.clamp(first.Weight * e.cfg.EndpointInflation)
		best = candidate{e.source, first}
	}

	for d := 1; d <= e.cfg.InflationSpan; d++ {
		factor := 1 + e.cfg.InflationBase/float64(d)
		for i := 0; i+d < len(path); i++ {
			edge := path[i].EdgeTo(path[i+d].ID)
			if edge == nil {
				continue
			}
			if d == 1 && (best.edge == nil || edge.Weight < best.edge.Weight) {
				best = candidate{path[i], edge}
			}
			edge.Weight = e.cfg.clamp(edge.Weight * factor)
		}
	}

	last := path[len(path)-1]
	if edge := last.EdgeTo(e.dest.ID); edge != nil {
		edge.Weight = e.cfg.clamp(edge.Weight * e.cfg.EndpointInflation)
		if best.edge == nil || edge.Weight < best.edge.Weight {
			best = candidate{last, edge}
		}
	}

	if best.edge == nil {
		return nil
	}
	best.from.RemoveEdge(best.edge.To.ID)
	return best.edge
}
