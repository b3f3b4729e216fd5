package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/savvy-gtm/leadscore-cli/internal/model"
	"github.com/savvy-gtm/leadscore-cli/internal/ranker"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score the monthly advisor cohort and persist results",
	Long: `Score the advisor cohort against the v4 model artifacts.

Fetches the feature snapshot, applies global exclusions, runs the GBT
model with isotonic calibration, assigns cohort percentiles, and persists
one row per advisor to advisor_scores under a new run id.

Examples:
  # Score and persist
  score

  # Score without writing anything
  score --dry-run`,
	RunE: runScoreCmd,
}

func init() {
	scoreCmd.Flags().Bool("dry-run", false, "score the cohort but skip persistence")
	rootCmd.AddCommand(scoreCmd)
}

func runScoreCmd(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("score"); err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")

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

	calibrated := make([]float64, len(scores))
	for i, s := range scores {
		calibrated[i] = s.Calibrated
	}
	summary := ranker.SummarizeScores(calibrated)

	if dryRun {
		printScoreSummary(c, len(scores), summary)
		return nil
	}

	runID := uuid.NewString()
	meta := leadRunMeta(runID, arts.provider.Model().Version)
	if err := store.CreateRun(ctx, meta); err != nil {
		return err
	}

	saved, err := store.SaveScores(ctx, runID, scores)
	if err != nil {
		if failErr := store.FailRun(ctx, runID, err.Error()); failErr != nil {
			zap.L().Error("mark run failed", zap.Error(failErr))
		}
		return eris.Wrap(err, "score: save")
	}

	report := &model.RunReport{
		RunID:            runID,
		ConfigHash:       meta.ConfigHash,
		CohortSize:       c.Size,
		ExcludedByReason: c.Excluded,
		Scores:           summary,
	}
	if err := store.CompleteRun(ctx, runID, report); err != nil {
		return err
	}

	fmt.Printf("Run %s: saved %d scores\n", runID, saved)
	printScoreSummary(c, len(scores), summary)
	return nil
}

func printScoreSummary(c *cohort, scored int, s model.ScoreSummary) {
	fmt.Printf("Cohort:   %d advisors (%d excluded)\n", c.Size, c.Size-len(c.Eligible))
	fmt.Printf("Scored:   %d\n", scored)
	fmt.Printf("Range:    %.4f - %.4f (mean %.4f, p90 %.4f)\n", s.Min, s.Max, s.Mean, s.P90)
}
