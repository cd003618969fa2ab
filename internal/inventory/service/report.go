package service

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// WriteReport renders a reconcile report as an aligned table followed by
// the issues found, if any.
func WriteReport(w io.Writer, report *ReconcileReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "ID\tINGREDIENT\tUNIT\tCURRENT\tREPLAYED\tENTRIES\tSTATUS")
	for _, ing := range report.Ingredients {
		status := "ok"
		if !ing.OK() {
			status = "MISMATCH"
		}
		if ing.LowStock {
			status += " (low)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\n",
			ing.IngredientID, ing.Name, ing.Unit,
			ing.CurrentStock.String(), ing.ReplayedStock.String(),
			ing.Entries, status,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	mismatches := report.Mismatches()
	if mismatches == 0 {
		_, err := fmt.Fprintf(w, "\n%d ingredients reconciled, no mismatches\n", len(report.Ingredients))
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n%d of %d ingredients do not reconcile:\n", mismatches, len(report.Ingredients))
	for _, ing := range report.Ingredients {
		for _, issue := range ing.Issues {
			fmt.Fprintf(&b, "  %s: %s\n", ing.Name, issue)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
