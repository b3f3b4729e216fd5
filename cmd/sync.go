package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/savvy-gtm/leadscore-cli/internal/crm"
	"github.com/savvy-gtm/leadscore-cli/pkg/salesforce"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push a persisted lead list to Salesforce",
	Long: `Upsert a run's lead list to the Salesforce Lead object, matched on
advisor CRD. Defaults to the latest complete run.

Examples:
  # Sync the latest complete run
  sync

  # Sync a specific run
  sync --run 8f14e45f-ceea-4e17-9b34-40f0a754bd7a`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().String("run", "", "run id to sync (default: latest complete run)")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("warehouse"); err != nil {
		return err
	}
	if err := cfg.Validate("sync"); err != nil {
		return err
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	runID, _ := cmd.Flags().GetString("run")
	if runID == "" {
		runID, err = store.LatestCompleteRun(ctx)
		if err != nil {
			return err
		}
	}

	entries, err := store.ListEntries(ctx, runID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return eris.Errorf("sync: run %s has no list entries", runID)
	}

	sf := cfg.Salesforce
	client, err := salesforce.ConnectJWT(sf.LoginURL, sf.Username, sf.ClientID, sf.KeyPath,
		salesforce.WithRateLimit(sf.RateLimit))
	if err != nil {
		return err
	}

	res, err := crm.NewSyncer(client, sf.BatchSize).SyncList(ctx, runID, entries)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s: %d upserted, %d failed\n", runID, res.Succeeded, res.Failed)
	for _, msg := range res.Errors {
		fmt.Printf("  %s\n", msg)
	}
	if res.Failed > 0 {
		return eris.Errorf("sync: %d records failed", res.Failed)
	}
	return nil
}
