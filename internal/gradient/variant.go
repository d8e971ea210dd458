package gradient

import "github.com/jmylchreest/swatchpath/internal/cluster"

// Variant selects the colour signature used to build a graph.
type Variant = cluster.Variant

const (
	VariantAverage  = cluster.VariantAverage
	VariantDominant = cluster.VariantDominant
)

// ParseVariant converts a flag value to a Variant.
func ParseVariant(s string) (Variant, error) {
	return cluster.ParseVariant(s)
}
