package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/savvy-gtm/leadscore-cli/internal/tier"
)

var tiersCmd = &cobra.Command{
	Use:   "tiers",
	Short: "Show the tier table or the cohort tier distribution",
	Long: `Inspect the rule classifier without scoring anything.

With --table, prints the tier priority table and historical conversion
rates. Otherwise fetches the cohort, classifies every advisor, and prints
the tier and exclusion distribution.

Examples:
  # Print the tier table
  tiers --table

  # Classify the cohort and show the distribution
  tiers`,
	RunE: runTiers,
}

func init() {
	tiersCmd.Flags().Bool("table", false, "print the tier priority table and exit")
	rootCmd.AddCommand(tiersCmd)
}

func runTiers(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tableOnly, _ := cmd.Flags().GetBool("table")
	if tableOnly {
		table := tier.DefaultTable()
		if key := cfg.Artifacts.TierTableKey; key != "" {
			arts, err := loadArtifacts()
			if err != nil {
				return err
			}
			table = arts.table
		}
		return printTierTable(table)
	}

	if err := cfg.Validate("warehouse"); err != nil {
		return err
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	table := tier.DefaultTable()
	cls := tier.NewClassifier(cfg.Classifier, table)
	if cfg.Artifacts.TierTableKey != "" {
		arts, err := loadArtifacts()
		if err != nil {
			return err
		}
		table = arts.table
		cls = arts.classifier
	}

	c, err := classifyCohort(ctx, store, cls)
	if err != nil {
		return err
	}

	counts := make(map[string]int)
	for _, a := range c.Assignments {
		counts[a.Tier]++
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Cohort:\t%d\n", c.Size)
	fmt.Fprintln(w, "\nTier\tRank\tCount")
	for _, row := range table.Rows() {
		if counts[row.Name] == 0 {
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%d\n", row.Name, row.Rank, counts[row.Name])
	}
	if len(c.Excluded) > 0 {
		fmt.Fprintln(w, "\nExclusion\tCount")
		for _, reason := range sortedKeys(c.Excluded) {
			fmt.Fprintf(w, "%s\t%d\n", reason, c.Excluded[reason])
		}
	}
	return w.Flush()
}

func printTierTable(table *tier.Table) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Tier\tRank\tHistorical Rate")
	for _, row := range table.Rows() {
		fmt.Fprintf(w, "%s\t%d\t%.2f%%\n", row.Name, row.Rank, row.HistoricalRate*100)
	}
	return w.Flush()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
