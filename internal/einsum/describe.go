package einsum

import (
	"strings"
)

// IndexLengthsString lists the literal index lengths, e.g. "[a: 3, c: 35]".
// Symbolic lengths are left out.
func (e *FusedEinsum) IndexLengthsString() string {
	return e.indexLengths(false)
}

// AllIndexLengthsString lists every index length, symbolic ones by name.
func (e *FusedEinsum) AllIndexLengthsString() string {
	return e.indexLengths(true)
}

func (e *FusedEinsum) indexLengths(withParams bool) string {
	parts := make([]string, 0, len(e.lengths))
	for _, axis := range e.Axes() {
		dim := e.lengths[axis]
		if dim.IsParam() && !withParams {
			continue
		}
		parts = append(parts, e.indexNames[axis]+": "+dim.String())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// UseMatrixString renders the use matrix one row per line,
// e.g. "[[[arg_0], [arg_1]]]" for a single row.
func (e *FusedEinsum) UseMatrixString() string {
	rows := make([]string, len(e.useMatrix))
	for r, row := range e.useMatrix {
		cells := make([]string, len(row))
		for c, cell := range row {
			cells[c] = "[" + strings.Join(cell, ", ") + "]"
		}
		rows[r] = "[" + strings.Join(cells, ", ") + "]"
	}
	return "[" + strings.Join(rows, ",\n") + "]"
}

// ValueDTypesString renders the dtypes sorted by value name,
// e.g. "[arg_0: float64, arg_1: float64]".
func (e *FusedEinsum) ValueDTypesString() string {
	values := e.Values()
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = v + ": " + e.valueToDType[v].String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
