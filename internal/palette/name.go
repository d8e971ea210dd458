package palette

import (
	"path"
	"regexp"
	"strings"

	"github.com/jmylchreest/swatchpath/internal/cluster"
)

// facings are the recognised face suffixes, matched after the last '_'.
var facings = map[string]struct{}{
	"top": {}, "bottom": {}, "side": {},
	"front": {}, "back": {},
	"north": {}, "south": {}, "east": {}, "west": {},
	"up": {}, "down": {},
}

// ParseName derives the item and facing from a texture path relative to the
// palette root. The extension is dropped and separators become '/'.
//
//	blocks/oak_log_top.png -> blocks/oak_log, top
//	blocks/stone.png       -> blocks/stone, ""
func ParseName(rel string) (cluster.Item, cluster.Facing) {
	rel = strings.ReplaceAll(rel, "\\", "/")
	rel = strings.TrimPrefix(path.Clean("/"+rel), "/")
	rel = strings.TrimSuffix(rel, path.Ext(rel))

	dir, base := path.Split(rel)
	if i := strings.LastIndexByte(base, '_'); i > 0 {
		suffix := strings.ToLower(base[i+1:])
		if _, ok := facings[suffix]; ok {
			return cluster.Item(dir + base[:i]), cluster.Facing(suffix)
		}
	}
	return cluster.Item(rel), ""
}

// Matcher reports whether an item is excluded. Patterns use '*' as a wildcard
// for any run of characters, including '/'. A pattern must match the whole id.
type Matcher struct {
	patterns []*regexp.Regexp
}

// NewMatcher compiles exclude patterns. Empty patterns are ignored.
func NewMatcher(patterns ...string) *Matcher {
	m := &Matcher{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		parts := strings.Split(p, "*")
		for i := range parts {
			parts[i] = regexp.QuoteMeta(parts[i])
		}
		m.patterns = append(m.patterns, regexp.MustCompile("^"+strings.Join(parts, ".*")+"$"))
	}
	return m
}

// Match reports whether item matches any pattern.
func (m *Matcher) Match(item cluster.Item) bool {
	if m == nil {
		return false
	}
	for _, re := range m.patterns {
		if re.MatchString(string(item)) {
			return true
		}
	}
	return false
}

// Len returns the number of patterns.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.patterns)
}
