package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"

	"github.com/savvy-gtm/leadscore-cli/internal/model"
)

// ExportReport writes the run report as JSON under dir and returns the
// file path.
func ExportReport(dir, runID string, report *model.RunReport) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "export: mkdir %s", dir)
	}
	path := filepath.Join(dir, fmt.Sprintf("run_report_%s.json", runID))

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "export: marshal report")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "export: write %s", path)
	}
	return path, nil
}

// RenderReport writes the operator summary as text.
func RenderReport(w io.Writer, r *model.RunReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Run:\t%s\n", r.RunID)
	fmt.Fprintf(tw, "Config:\t%s\n", r.ConfigHash)
	fmt.Fprintf(tw, "Cohort:\t%d\n", r.CohortSize)

	if len(r.ExcludedByReason) > 0 {
		fmt.Fprintln(tw, "\nExclusions:")
		reasons := make([]string, 0, len(r.ExcludedByReason))
		for reason := range r.ExcludedByReason {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			fmt.Fprintf(tw, "  %s\t%d\n", reason, r.ExcludedByReason[reason])
		}
	}

	fmt.Fprintln(tw, "\nMerge:")
	fmt.Fprintf(tw, "  deprioritized\t%d\n", r.Deprioritized)
	fmt.Fprintf(tw, "  disagreement filtered\t%d\n", r.DisagreementFiltered)
	fmt.Fprintf(tw, "  backfilled\t%d\n", r.Backfilled)
	fmt.Fprintf(tw, "  duplicates\t%d\n", r.Duplicates)

	fmt.Fprintln(tw, "\nSelection:")
	fmt.Fprintf(tw, "  selected\t%d\n", r.Selected)
	fmt.Fprintf(tw, "  not selected\t%d\n", r.NotSelected)
	if r.Shortfall > 0 {
		fmt.Fprintf(tw, "  shortfall\t%d\n", r.Shortfall)
	}
	if r.GroupingOverrides > 0 {
		fmt.Fprintf(tw, "  grouping overrides\t%d\n", r.GroupingOverrides)
	}

	if len(r.TierDistribution) > 0 {
		fmt.Fprintln(tw, "\nTier\tCount\tRate\tExpected")
		for _, ts := range r.TierDistribution {
			fmt.Fprintf(tw, "%s\t%d\t%.4f\t%.1f\n", ts.Tier, ts.Count, ts.HistoricalRate, ts.ExpectedConversions)
		}
	}

	fmt.Fprintf(tw, "\nExpected conversions:\t%.1f\n", r.ExpectedConversions)
	if r.Lift > 0 {
		fmt.Fprintf(tw, "Lift over baseline:\t%.1fx\n", r.Lift)
	}
	fmt.Fprintf(tw, "Scores:\tmin %.4f  median %.4f  p90 %.4f  max %.4f\n",
		r.Scores.Min, r.Scores.Median, r.Scores.P90, r.Scores.Max)

	fmt.Fprintf(tw, "Explainer:\t%s", r.ExplainerStrategy)
	if r.ExplainerDegraded {
		fmt.Fprint(tw, " (degraded)")
	}
	fmt.Fprintln(tw)

	return eris.Wrap(tw.Flush(), "export: render report")
}
