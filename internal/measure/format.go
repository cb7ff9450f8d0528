package measure

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// FormatComparison renders the achieved versus attainable table.
func FormatComparison(perf []Performance) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Dtype\tMeasured GOps/s\tRoofline GOps/s\t")
	for _, p := range perf {
		fmt.Fprintf(w, "%s\t%.1f\t%.1f\t\n", p.DType, p.Measured, p.Roofline)
	}
	w.Flush()
	return b.String()
}
