package einsum

import "fmt"

// DataType is the element type of an einsum operand.
type DataType int

// Supported element types.
const (
	Float16 DataType = iota + 1
	Float32
	Float64
	Int32
	Int64
	Complex64
	Complex128
)

// Valid reports whether dt is one of the supported element types.
func (dt DataType) Valid() bool {
	return dt >= Float16 && dt <= Complex128
}

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float16:
		return 2
	case Float32, Int32:
		return 4
	case Float64, Int64, Complex64:
		return 8
	case Complex128:
		return 16
	default:
		panic("unknown data type")
	}
}

// String returns the numpy-style name of the data type.
func (dt DataType) String() string {
	switch dt {
	case Float16:
		return "float16"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Complex64:
		return "complex64"
	case Complex128:
		return "complex128"
	default:
		return "unknown"
	}
}

// IsFloat reports whether dt is a real floating point type.
func (dt DataType) IsFloat() bool {
	return dt == Float16 || dt == Float32 || dt == Float64
}

// IsComplex reports whether dt is a complex type.
func (dt DataType) IsComplex() bool {
	return dt == Complex64 || dt == Complex128
}

// ParseDataType converts a name produced by String back into a DataType.
func ParseDataType(s string) (DataType, error) {
	for dt := Float16; dt <= Complex128; dt++ {
		if dt.String() == s {
			return dt, nil
		}
	}
	return 0, fmt.Errorf("unknown data type %q", s)
}

// rank orders types by promotion category: integers < reals < complex.
func (dt DataType) rank() int {
	switch {
	case dt.IsComplex():
		return 2
	case dt.IsFloat():
		return 1
	default:
		return 0
	}
}

// Promote returns the result type of combining a and b arithmetically.
// The higher category wins; within a category the wider type wins.
// Integers combined with reals promote to a real at least as wide as the
// integer.
func Promote(a, b DataType) DataType {
	if a.rank() != b.rank() {
		hi, lo := a, b
		if b.rank() > a.rank() {
			hi, lo = b, a
		}
		for hi.Size() < lo.Size() || (hi.IsComplex() && !lo.IsComplex() && hi.Size() < 2*lo.Size()) {
			hi = widen(hi)
		}
		return hi
	}
	if b.Size() > a.Size() {
		return b
	}
	return a
}

func widen(dt DataType) DataType {
	switch dt {
	case Float16:
		return Float32
	case Float32:
		return Float64
	case Int32:
		return Int64
	case Complex64:
		return Complex128
	default:
		return dt
	}
}
