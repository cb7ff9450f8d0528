package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/born-ml/feinsum/internal/measure"
	"github.com/born-ml/feinsum/internal/normalize"
)

// runNormalize prints the canonical form of an einsum and its op counts.
func runNormalize(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("normalize", flag.ContinueOnError)
	fs.SetOutput(out)

	var ef einsumFlags
	fs.StringVar(&ef.subscripts, "subscripts", "", "Einsum subscripts, e.g. ij,jk->ik (required)")
	fs.StringVar(&ef.shapes, "shapes", "", "Operand shapes separated by ';', e.g. 'N,8;8,4' (required)")
	fs.StringVar(&ef.names, "names", "", "Operand value names, comma-separated")
	fs.StringVar(&ef.dtype, "dtype", "float32", "Element type, or one per operand")
	longDim := fs.Int("long-dim", 50000, "Value bound to size parameters for op counts")

	if err := fs.Parse(args); err != nil {
		return err
	}

	e, err := ef.build()
	if err != nil {
		return err
	}
	n, err := normalize.Einsum(e)
	if err != nil {
		return err
	}
	info, err := measure.OpInfo(n, *longDim)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "subscripts:      %s\n", n.Subscripts())
	fmt.Fprintf(out, "index lengths:   %s\n", n.AllIndexLengthsString())
	fmt.Fprintf(out, "use matrix:      %s\n", n.UseMatrixString())
	fmt.Fprintf(out, "value dtypes:    %s\n", n.ValueDTypesString())
	fmt.Fprintf(out, "digest:          %s\n", n.DigestHex())
	fmt.Fprintf(out, "GOps (N=%d):\n%s\n", *longDim, info)
	return nil
}
