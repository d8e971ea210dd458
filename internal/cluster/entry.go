// Package cluster groups palette samples with near-identical colour
// signatures into entries and indexes them for neighbour queries.
package cluster

import (
	"fmt"
	"slices"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/jmylchreest/swatchpath/internal/colour"
)

// Item identifies a palette member. Its meaning belongs to the caller.
type Item string

// Facing is a display-only face label for one sample of an item.
type Facing string

// FacingSet holds the faces of an item that belong to an entry.
// A nil set means every face.
type FacingSet map[Facing]struct{}

// Sorted returns the faces in lexical order.
func (f FacingSet) Sorted() []Facing {
	out := make([]Facing, 0, len(f))
	for k := range f {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func (f FacingSet) String() string {
	if f == nil {
		return "*"
	}
	parts := make([]string, 0, len(f))
	for _, face := range f.Sorted() {
		parts = append(parts, string(face))
	}
	return strings.Join(parts, ",")
}

// union merges b into a. A nil operand absorbs everything.
func union(a, b FacingSet) FacingSet {
	if a == nil || b == nil {
		return nil
	}
	for k := range b {
		a[k] = struct{}{}
	}
	return a
}

// Sample is one decoded texture of an item. Facing is empty when the sample
// represents every face.
type Sample struct {
	Item   Item
	Facing Facing
	Source string
	Pixels *colour.PixelBuffer
}

// Entry is a cluster of items sharing a colour signature. ID is -1 until the
// palette is finalised, then a dense index starting at 0.
type Entry struct {
	ID    int
	Stats colour.Stats

	items   []Item
	members map[Item]FacingSet
	sources []string
}

func newEntry(s Sample, stats colour.Stats) *Entry {
	var faces FacingSet
	if s.Facing != "" {
		faces = FacingSet{s.Facing: {}}
	}
	e := &Entry{
		ID:      -1,
		Stats:   stats,
		items:   []Item{s.Item},
		members: map[Item]FacingSet{s.Item: faces},
	}
	if s.Source != "" {
		e.sources = []string{s.Source}
	}
	return e
}

// absorb moves the members of o into e. e keeps its own statistics.
func (e *Entry) absorb(o *Entry) {
	for _, item := range o.items {
		faces := o.members[item]
		if existing, ok := e.members[item]; ok {
			e.members[item] = union(existing, faces)
			continue
		}
		e.items = append(e.items, item)
		e.members[item] = faces
	}
	e.sources = append(e.sources, o.sources...)
}

// Average returns the mean colour of the entry's first sample.
func (e *Entry) Average() r3.Vec { return e.Stats.Average }

// Dominant returns the robust colour of the entry's first sample.
func (e *Entry) Dominant() r3.Vec { return e.Stats.Dominant }

// HasDominant reports whether Dominant can be trusted.
func (e *Entry) HasDominant() bool { return e.Stats.Trustworthy }

// Feature returns the colour used by variant v.
func (e *Entry) Feature(v Variant) r3.Vec {
	if v == VariantDominant {
		return e.Stats.Dominant
	}
	return e.Stats.Average
}

// Eligible reports whether the entry takes part in graphs of variant v.
func (e *Entry) Eligible(v Variant) bool {
	return v != VariantDominant || e.Stats.Trustworthy
}

// Items returns member items in the order they joined the entry.
func (e *Entry) Items() []Item { return slices.Clone(e.items) }

// Contains reports whether item is a member.
func (e *Entry) Contains(item Item) bool {
	_, ok := e.members[item]
	return ok
}

// Facings returns the faces of item held by this entry.
func (e *Entry) Facings(item Item) (FacingSet, bool) {
	f, ok := e.members[item]
	return f, ok
}

// Sources returns the sample sources in merge order.
func (e *Entry) Sources() []string { return slices.Clone(e.sources) }

// Size returns the number of member items.
func (e *Entry) Size() int { return len(e.items) }

// Label returns the first member item, used as a display name.
func (e *Entry) Label() string {
	if len(e.items) == 0 {
		return ""
	}
	return string(e.items[0])
}

func (e *Entry) String() string {
	return fmt.Sprintf("#%d %s (%d items, %s)", e.ID, e.Label(), len(e.items), colour.VecHex(e.Stats.Average))
}
