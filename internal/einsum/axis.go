package einsum

import "fmt"

// AxisKind tells whether an index survives into the output.
type AxisKind int

// Axis kinds.
const (
	// Free indices appear in the output.
	Free AxisKind = iota
	// Summation indices are reduced over.
	Summation
)

// Axis identifies one logical index of the contraction.
// Identity is the (Kind, Ordinal) pair.
type Axis struct {
	Kind    AxisKind
	Ordinal int
}

// FreeAxis returns the i-th free index.
func FreeAxis(i int) Axis { return Axis{Kind: Free, Ordinal: i} }

// SummationAxis returns the i-th summation index.
func SummationAxis(i int) Axis { return Axis{Kind: Summation, Ordinal: i} }

// IsFree reports whether the axis appears in the output.
func (a Axis) IsFree() bool { return a.Kind == Free }

// Less orders free axes before summation axes, then by ordinal.
func (a Axis) Less(b Axis) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return a.Ordinal < b.Ordinal
}

func (a Axis) String() string {
	if a.Kind == Free {
		return fmt.Sprintf("FreeAxis(%d)", a.Ordinal)
	}
	return fmt.Sprintf("SummationAxis(%d)", a.Ordinal)
}
