package cluster

import (
	"slices"

	"gonum.org/v1/gonum/spatial/r3"
)

// Palette is a finalised, read-only list of entries with reverse lookup.
type Palette struct {
	entries []*Entry
	byItem  map[Item]*Entry
}

func newPalette(entries []*Entry) *Palette {
	p := &Palette{
		entries: entries,
		byItem:  make(map[Item]*Entry, len(entries)),
	}
	for _, e := range entries {
		for _, item := range e.items {
			// An item split across entries by facing resolves to its first entry.
			if _, ok := p.byItem[item]; !ok {
				p.byItem[item] = e
			}
		}
	}
	return p
}

// Entries returns the entries ordered by ID.
func (p *Palette) Entries() []*Entry {
	if p == nil {
		return nil
	}
	return slices.Clone(p.entries)
}

// Entry returns the entry with the given id.
func (p *Palette) Entry(id int) (*Entry, bool) {
	if p == nil || id < 0 || id >= len(p.entries) {
		return nil, false
	}
	return p.entries[id], true
}

// EntryFor returns the entry an item belongs to.
func (p *Palette) EntryFor(item Item) (*Entry, bool) {
	if p == nil {
		return nil, false
	}
	e, ok := p.byItem[item]
	return e, ok
}

// Len returns the number of entries.
func (p *Palette) Len() int {
	if p == nil {
		return 0
	}
	return len(p.entries)
}

// Items returns every member item in entry order.
func (p *Palette) Items() []Item {
	if p == nil {
		return nil
	}
	out := make([]Item, 0, len(p.byItem))
	for _, e := range p.entries {
		for _, item := range e.items {
			if p.byItem[item] == e {
				out = append(out, item)
			}
		}
	}
	return out
}

func component(v r3.Vec, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}
