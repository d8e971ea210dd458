package cluster

import "fmt"

// Variant selects which colour signature of an entry is used for graph and
// neighbour operations.
type Variant int

const (
	// VariantAverage uses the mean colour of every entry.
	VariantAverage Variant = iota
	// VariantDominant uses the robust colour and ignores untrustworthy entries.
	VariantDominant
)

func (v Variant) String() string {
	switch v {
	case VariantAverage:
		return "average"
	case VariantDominant:
		return "dominant"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// ParseVariant converts a flag value to a Variant.
func ParseVariant(s string) (Variant, error) {
	switch s {
	case "average", "avg":
		return VariantAverage, nil
	case "dominant", "dom":
		return VariantDominant, nil
	default:
		return 0, fmt.Errorf("unknown variant: %s (valid variants: average, dominant)", s)
	}
}

// Variants returns every variant.
func Variants() []Variant {
	return []Variant{VariantAverage, VariantDominant}
}
