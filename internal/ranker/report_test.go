package ranker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savvy-gtm/leadscore-cli/internal/model"
	"github.com/savvy-gtm/leadscore-cli/internal/tier"
)

func TestBuildReport(t *testing.T) {
	t.Parallel()

	assigned := []model.ListEntry{
		{Advisor: &model.FeatureRecord{AdvisorCRD: 1}, Tier: model.TierPrimeMoverCFP, Score: model.ModelScore{Calibrated: 0.20}},
		{Advisor: &model.FeatureRecord{AdvisorCRD: 2}, Tier: model.TierPrimeMoverCFP, Score: model.ModelScore{Calibrated: 0.16}},
		{Advisor: &model.FeatureRecord{AdvisorCRD: 3}, Tier: model.TierStandardHighV4, Score: model.ModelScore{Calibrated: 0.05}},
	}

	report := BuildReport(ReportInput{
		RunID:      "run-123",
		ConfigHash: "abc",
		CohortSize: 20,
		ExcludedByReason: map[string]int{
			"age_over_70":         2,
			"disclosure_criminal": 1,
		},
		Stats: Stats{
			Deprioritized:        5,
			DisagreementFiltered: 3,
			Backfilled:           1,
			Duplicates:           1,
		},
		Allocation:        AllocationResult{Assigned: assigned, Overrides: 1},
		Table:             tier.DefaultTable(),
		Target:            10,
		ExplainerStrategy: model.StrategyAttribution,
	})

	assert.Equal(t, "run-123", report.RunID)
	assert.Equal(t, 3, report.Selected)
	// 20 cohort - 3 excluded - 3 selected.
	assert.Equal(t, 14, report.NotSelected)
	assert.Equal(t, 7, report.Shortfall)
	assert.Equal(t, 1, report.GroupingOverrides)

	// Expected conversions: 2 * 0.1644 + 1 * 0.0367.
	assert.InDelta(t, 0.3655, report.ExpectedConversions, 1e-9)
	// Lift over the 0.0274 baseline.
	assert.InDelta(t, (0.3655/3)/0.0274, report.Lift, 1e-9)

	require.Len(t, report.TierDistribution, 2)
	assert.Equal(t, model.TierPrimeMoverCFP, report.TierDistribution[0].Tier)
	assert.Equal(t, 2, report.TierDistribution[0].Count)

	assert.InDelta(t, 0.05, report.Scores.Min, 1e-12)
	assert.InDelta(t, 0.20, report.Scores.Max, 1e-12)
}

func TestBuildReport_EmptySelection(t *testing.T) {
	t.Parallel()

	report := BuildReport(ReportInput{
		RunID:             "run-empty",
		CohortSize:        5,
		ExcludedByReason:  map[string]int{"age_over_70": 5},
		Table:             tier.DefaultTable(),
		Target:            10,
		ExplainerStrategy: model.StrategyNone,
	})

	assert.Equal(t, 5, report.ExcludedByReason["age_over_70"])
	assert.Zero(t, report.Selected)
	assert.Zero(t, report.NotSelected)
	assert.Equal(t, 10, report.Shortfall)
	assert.Zero(t, report.Lift)
	assert.Empty(t, report.TierDistribution)
	assert.Equal(t, model.ScoreSummary{}, report.Scores)
}
