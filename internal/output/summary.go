package output

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/inodb/vibe-pgx/internal/annotate"
)

// WriteSummary writes an aligned per-category table of annotation counts,
// followed by a total line and any skipped categories.
func WriteSummary(w io.Writer, res *annotate.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "Category\tMarkers\tMatched\tNo match\tUncalled\tQuery failures")
	row := func(name string, s annotate.Stats) {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n",
			name, s.Markers, s.Matched, s.NoMatch, s.Uncalled, s.QueryFailures)
	}
	for _, t := range res.Tables {
		row(t.Name, res.Stats[t.Name])
	}
	if len(res.Tables) > 1 {
		row("Total", res.Total())
	}
	for _, name := range res.Failed {
		fmt.Fprintf(tw, "%s\tskipped\t\t\t\t\n", name)
	}

	return tw.Flush()
}
