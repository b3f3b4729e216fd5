package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/savvy-gtm/leadscore-cli/internal/config"
	"github.com/savvy-gtm/leadscore-cli/internal/explain"
	"github.com/savvy-gtm/leadscore-cli/internal/export"
	"github.com/savvy-gtm/leadscore-cli/internal/model"
	"github.com/savvy-gtm/leadscore-cli/internal/ranker"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Generate, allocate, and export the monthly lead list",
	Long: `Run the full list-generation pipeline.

Scores the cohort, merges model percentiles with rule tiers (deprioritize,
disagreement filter, STANDARD backfill), sorts and dedupes, allocates
entries across SGAs with firm grouping, then persists the run and writes
the CSV and run report to the export directory.

Examples:
  # Full run
  list

  # Preview without touching the database
  list --dry-run

  # Cap the list at 1000 before allocation
  list --cap 1000

  # Override the per-SGA quota
  list --quota 150`,
	RunE: runList,
}

func init() {
	f := listCmd.Flags()
	f.Bool("dry-run", false, "build and export the list but skip persistence")
	f.Int("cap", 0, "global list cap before allocation (overrides config)")
	f.Int("quota", 0, "per-owner quota (overrides config)")
	f.String("out", "", "export directory (overrides config)")

	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("score"); err != nil {
		return err
	}
	if err := cfg.Validate("list"); err != nil {
		return err
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	rankingCfg := applyRankingOverrides(cmd, cfg.Ranking)
	allocCfg := applyAllocationOverrides(cmd, cfg.Allocation)
	exportDir := cfg.Export.Dir
	if v, _ := cmd.Flags().GetString("out"); v != "" {
		exportDir = v
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	if err := store.Migrate(ctx); err != nil {
		return err
	}

	arts, err := loadArtifacts()
	if err != nil {
		return err
	}

	c, err := classifyCohort(ctx, store, arts.classifier)
	if err != nil {
		return err
	}

	scores, err := arts.provider.ScoreCohort(c.Eligible, cfg.Scoring.FailureTolerancePct)
	if err != nil {
		return err
	}
	scoreByCRD := make(map[int64]model.ModelScore, len(scores))
	for _, s := range scores {
		scoreByCRD[s.AdvisorCRD] = s
	}

	explainer := explain.New(arts.provider.Model(), arts.provider.Manifest(), cfg.Scoring.ExplainBatchSize)
	explained, err := explainer.ExplainCohort(ctx, c.Eligible, scoreByCRD, rankingCfg.BackfillPercentile)
	if err != nil {
		return err
	}

	inputs := make([]ranker.Input, 0, len(c.Eligible))
	for _, r := range c.Eligible {
		s, ok := scoreByCRD[r.AdvisorCRD]
		if !ok {
			// Dropped during scoring (non-finite output); not listable.
			continue
		}
		inputs = append(inputs, ranker.Input{
			Advisor:    r,
			Assignment: c.Assignments[r.AdvisorCRD],
			Score:      s,
		})
	}

	rk := ranker.New(rankingCfg, arts.table)
	entries, stats := rk.BuildList(inputs)
	for i := range entries {
		entries[i].Explanation = explained.Explanations[entries[i].Advisor.AdvisorCRD]
	}

	alloc := ranker.NewAllocator(allocCfg).Allocate(entries)

	runID := uuid.NewString()
	report := ranker.BuildReport(ranker.ReportInput{
		RunID:             runID,
		ConfigHash:        cfg.Hash(),
		CohortSize:        c.Size,
		ExcludedByReason:  c.Excluded,
		Stats:             stats,
		Allocation:        alloc,
		Table:             arts.table,
		Target:            len(allocCfg.Owners) * allocCfg.QuotaPerOwner,
		ExplainerStrategy: explained.Strategy,
		ExplainerDegraded: explained.Degraded,
	})

	if !dryRun {
		if err := store.CreateRun(ctx, leadRunMeta(runID, arts.provider.Model().Version)); err != nil {
			return err
		}
		if err := persistRun(ctx, store, runID, scores, alloc.Assigned, report); err != nil {
			if failErr := store.FailRun(ctx, runID, err.Error()); failErr != nil {
				zap.L().Error("mark run failed", zap.Error(failErr))
			}
			return err
		}
	}

	csvPath, err := export.ExportList(exportDir, runID, alloc.Assigned)
	if err != nil {
		return err
	}
	reportPath, err := export.ExportReport(exportDir, runID, report)
	if err != nil {
		return err
	}

	if err := export.RenderReport(os.Stdout, report); err != nil {
		return err
	}
	fmt.Printf("\nList:   %s\nReport: %s\n", csvPath, reportPath)
	if dryRun {
		fmt.Println("Dry run: nothing persisted.")
	}
	return nil
}

// runPersister is the slice of the lead store the pipeline writes through.
type runPersister interface {
	SaveScores(ctx context.Context, runID string, scores []model.ModelScore) (int64, error)
	SaveList(ctx context.Context, runID string, entries []model.ListEntry) (int64, error)
	CompleteRun(ctx context.Context, runID string, report *model.RunReport) error
}

func persistRun(ctx context.Context, store runPersister, runID string, scores []model.ModelScore, assigned []model.ListEntry, report *model.RunReport) error {
	if _, err := store.SaveScores(ctx, runID, scores); err != nil {
		return eris.Wrap(err, "list: save scores")
	}
	if _, err := store.SaveList(ctx, runID, assigned); err != nil {
		return eris.Wrap(err, "list: save list")
	}
	if err := store.CompleteRun(ctx, runID, report); err != nil {
		return eris.Wrap(err, "list: complete run")
	}
	return nil
}

// applyRankingOverrides returns a copy of the base config with CLI flag
// overrides applied.
func applyRankingOverrides(cmd *cobra.Command, base config.RankingConfig) config.RankingConfig {
	c := base
	if v, _ := cmd.Flags().GetInt("cap"); v > 0 {
		c.GlobalCap = v
	}
	return c
}

func applyAllocationOverrides(cmd *cobra.Command, base config.AllocationConfig) config.AllocationConfig {
	c := base
	if v, _ := cmd.Flags().GetInt("quota"); v > 0 {
		c.QuotaPerOwner = v
	}
	return c
}
