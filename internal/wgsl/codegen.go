package wgsl

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/born-ml/feinsum/internal/einsum"
	"github.com/born-ml/feinsum/internal/kernel"
)

// totalField is the Params member holding the invocation count.
const totalField = "total"

func scalarType(dt einsum.DataType) (typ, zero string, err error) {
	switch dt {
	case einsum.Float32:
		return "f32", "0.0", nil
	case einsum.Int32:
		return "i32", "0", nil
	default:
		return "", "", fmt.Errorf("wgsl: %s has no WGSL storage type", dt)
	}
}

func lengthExpr(d einsum.Dim) string {
	if p, ok := d.SizeParam(); ok {
		return "params." + p.Name
	}
	return fmt.Sprintf("%du", d.Int())
}

func indexVar(e *einsum.FusedEinsum, a einsum.Axis) string {
	return "i_" + e.IndexName(a)
}

// flatIndex renders the row-major offset of an operand element.
func flatIndex(e *einsum.FusedEinsum, access []einsum.Axis, shape einsum.Shape) string {
	if len(access) == 0 {
		return "0u"
	}
	expr := indexVar(e, access[0])
	for j := 1; j < len(access); j++ {
		expr = fmt.Sprintf("(%s) * %s + %s", expr, lengthExpr(shape[j]), indexVar(e, access[j]))
	}
	return expr
}

func (s *state) checkLocalWidth() error {
	product := 1
	for _, n := range slices.Sorted(maps.Keys(s.inames)) {
		in := s.inames[n]
		if strings.HasPrefix(in.tag, "l.") && in.width > 0 {
			product *= in.width
		}
	}
	if product > MaxLocalInvocations {
		return fmt.Errorf("local axes span %d work items, limit is %d", product, MaxLocalInvocations)
	}
	return nil
}

// Generate implements kernel.Engine.
func (e *Engine) Generate(s kernel.State) (kernel.Program, error) {
	st, err := asState(s)
	if err != nil {
		return kernel.Program{}, err
	}
	if err := st.checkLocalWidth(); err != nil {
		return kernel.Program{}, err
	}

	fe := st.einsum
	params := fe.SizeParams()
	paramNames := make([]string, len(params))
	for i, p := range params {
		if p.Name == totalField {
			return kernel.Program{}, fmt.Errorf("wgsl: size parameter may not be named %q", totalField)
		}
		paramNames[i] = p.Name
	}

	shapes := fe.ArgShapes()
	access := fe.AccessDescriptors()
	useMatrix := fe.UseMatrix()

	extent := make(einsum.Shape, fe.NDim())
	for i := range extent {
		extent[i], _ = fe.DimLength(einsum.FreeAxis(i))
	}

	// inputs in value order, each with the shape of its first slot
	var args []kernel.Arg
	slotOf := make(map[string]int)
	for _, row := range useMatrix {
		for c, cell := range row {
			if _, seen := slotOf[cell[0]]; !seen {
				slotOf[cell[0]] = c
			}
		}
	}
	for _, v := range fe.Values() {
		c, used := slotOf[v]
		if !used {
			continue
		}
		dt, _ := fe.DType(v)
		if _, _, err := scalarType(dt); err != nil {
			return kernel.Program{}, err
		}
		args = append(args, kernel.Arg{Name: v, DType: dt, Shape: shapes[c]})
	}

	rowTypes := make([]einsum.DataType, len(useMatrix))
	for r, row := range useMatrix {
		dt, _ := fe.DType(row[0][0])
		for _, cell := range row[1:] {
			other, _ := fe.DType(cell[0])
			if other != dt {
				return kernel.Program{}, fmt.Errorf("wgsl: row %d mixes %s and %s", r, dt, other)
			}
		}
		rowTypes[r] = dt
		args = append(args, kernel.Arg{Name: OutputName(r), DType: dt, Shape: extent, Output: true})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "// %s: %s\n", st.name, fe.Subscripts())
	for _, n := range st.notes {
		fmt.Fprintf(&b, "// %s\n", n)
	}
	for _, t := range slices.Sorted(maps.Keys(st.temps)) {
		fmt.Fprintf(&b, "// temporary %s in %s memory\n", t, st.temps[t])
	}

	b.WriteString("\nstruct Params {\n")
	fmt.Fprintf(&b, "    %s: u32,\n", totalField)
	for _, p := range paramNames {
		fmt.Fprintf(&b, "    %s: u32,\n", p)
	}
	b.WriteString("}\n\n")

	for i, a := range args {
		typ, _, _ := scalarType(a.DType)
		mode := "read"
		if a.Output {
			mode = "read_write"
		}
		fmt.Fprintf(&b, "@group(0) @binding(%d) var<storage, %s> %s: array<%s>;\n", i, mode, a.Name, typ)
	}
	fmt.Fprintf(&b, "@group(0) @binding(%d) var<uniform> params: Params;\n\n", len(args))

	fmt.Fprintf(&b, "@compute @workgroup_size(%d)\n", WorkgroupSize)
	b.WriteString("fn main(@builtin(global_invocation_id) global_id: vec3<u32>, @builtin(num_workgroups) num_groups: vec3<u32>) {\n")
	// Large launches fold into rows of the y dimension.
	fmt.Fprintf(&b, "    let idx = global_id.x + global_id.y * num_groups.x * %du;\n", WorkgroupSize)
	fmt.Fprintf(&b, "    if (idx >= params.%s) {\n        return;\n    }\n", totalField)

	if nfree := fe.NDim(); nfree > 0 {
		b.WriteString("    var rem = idx;\n")
		for i := nfree - 1; i > 0; i-- {
			a := einsum.FreeAxis(i)
			fmt.Fprintf(&b, "    let %s = rem %% %s;\n", indexVar(fe, a), lengthExpr(extent[i]))
			fmt.Fprintf(&b, "    rem = rem / %s;\n", lengthExpr(extent[i]))
		}
		fmt.Fprintf(&b, "    let %s = rem;\n", indexVar(fe, einsum.FreeAxis(0)))
	}

	for r, row := range useMatrix {
		typ, zero, _ := scalarType(rowTypes[r])
		acc := fmt.Sprintf("acc%d", r)
		fmt.Fprintf(&b, "    var %s: %s = %s;\n", acc, typ, zero)

		indent := "    "
		for i := 0; i < fe.NSummation(); i++ {
			a := einsum.SummationAxis(i)
			v := indexVar(fe, a)
			l, _ := fe.DimLength(a)
			fmt.Fprintf(&b, "%sfor (var %s: u32 = 0u; %s < %s; %s = %s + 1u) {\n", indent, v, v, lengthExpr(l), v, v)
			indent += "    "
		}

		terms := make([]string, len(row))
		for c, cell := range row {
			terms[c] = fmt.Sprintf("%s[%s]", cell[0], flatIndex(fe, access[c], shapes[c]))
		}
		fmt.Fprintf(&b, "%s%s = %s + %s;\n", indent, acc, acc, strings.Join(terms, " * "))

		for i := fe.NSummation(); i > 0; i-- {
			indent = indent[4:]
			fmt.Fprintf(&b, "%s}\n", indent)
		}
		fmt.Fprintf(&b, "    %s[idx] = %s;\n", OutputName(r), acc)
	}
	b.WriteString("}\n")

	return kernel.Program{
		Name:          st.name,
		Source:        b.String(),
		EntryPoint:    "main",
		WorkgroupSize: [3]uint32{WorkgroupSize, 1, 1},
		Args:          args,
		SizeParams:    paramNames,
		Extent:        extent,
	}, nil
}
