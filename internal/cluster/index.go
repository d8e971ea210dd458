package cluster

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/jmylchreest/swatchpath/internal/colour"
	"github.com/jmylchreest/swatchpath/internal/kdtree"
)

// NeighborIndex is a k-d tree over the entries eligible for one variant.
// It is read-only after construction and safe for concurrent use.
type NeighborIndex struct {
	variant  Variant
	tree     *kdtree.Tree[*Entry]
	eligible []*Entry
}

// NewNeighborIndex indexes the entries of variant v by their feature colour.
func NewNeighborIndex(entries []*Entry, v Variant) *NeighborIndex {
	eligible := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		if e.Eligible(v) {
			eligible = append(eligible, e)
		}
	}
	return &NeighborIndex{
		variant:  v,
		tree:     kdtree.New(eligible, 3, featureAccessor(v)),
		eligible: eligible,
	}
}

func featureAccessor(v Variant) kdtree.Accessor[*Entry] {
	return func(e *Entry, dim int) float64 {
		return component(e.Feature(v), dim)
	}
}

// Variant returns the variant the index was built for.
func (n *NeighborIndex) Variant() Variant { return n.variant }

// Eligible returns the indexed entries in id order.
func (n *NeighborIndex) Eligible() []*Entry { return n.eligible }

// Len returns the number of indexed entries.
func (n *NeighborIndex) Len() int { return len(n.eligible) }

// Within returns every indexed entry inside the axis-aligned box of the given
// half-width centred on e's feature. e itself is included when indexed.
func (n *NeighborIndex) Within(e *Entry, halfWidth float64) []*Entry {
	return n.Box(e.Feature(n.variant), halfWidth)
}

// Box returns every indexed entry inside the box of the given half-width
// centred on c.
func (n *NeighborIndex) Box(c r3.Vec, halfWidth float64) []*Entry {
	return n.tree.RangeSearch(
		[]float64{c.X - halfWidth, c.Y - halfWidth, c.Z - halfWidth},
		[]float64{c.X + halfWidth, c.Y + halfWidth, c.Z + halfWidth},
	)
}

// Nearest returns the k indexed entries closest to c, nearest first.
func (n *NeighborIndex) Nearest(c r3.Vec, k int) []*Entry {
	query := &Entry{ID: -1, Stats: colour.Stats{Average: c, Dominant: c}}
	v := n.variant
	return n.tree.KNearest(query, k, func(a, b *Entry) float64 {
		return r3.Norm2(r3.Sub(a.Feature(v), b.Feature(v)))
	}, nil)
}

// Neighbors returns, for every indexed entry, the other indexed entries
// within the box of the given half-width. The map is keyed by entry id.
func (n *NeighborIndex) Neighbors(halfWidth float64) map[int][]*Entry {
	out := make(map[int][]*Entry, len(n.eligible))
	for _, e := range n.eligible {
		found := n.Within(e, halfWidth)
		others := found[:0]
		for _, f := range found {
			if f.ID != e.ID {
				others = append(others, f)
			}
		}
		out[e.ID] = others
	}
	return out
}
