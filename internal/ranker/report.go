package ranker

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/savvy-gtm/leadscore-cli/internal/model"
	"github.com/savvy-gtm/leadscore-cli/internal/tier"
)

// ReportInput collects everything a run report summarizes.
type ReportInput struct {
	RunID      string
	ConfigHash string

	CohortSize       int
	ExcludedByReason map[string]int

	Stats      Stats
	Allocation AllocationResult
	Table      *tier.Table
	Target     int

	ExplainerStrategy string
	ExplainerDegraded bool
}

// BuildReport computes the operator-facing run summary. Every advisor in
// the cohort lands in exactly one bucket: excluded, cut by a merge stage,
// left over, or selected.
func BuildReport(in ReportInput) *model.RunReport {
	r := &model.RunReport{
		RunID:                in.RunID,
		ConfigHash:           in.ConfigHash,
		CohortSize:           in.CohortSize,
		ExcludedByReason:     in.ExcludedByReason,
		Deprioritized:        in.Stats.Deprioritized,
		DisagreementFiltered: in.Stats.DisagreementFiltered,
		Backfilled:           in.Stats.Backfilled,
		Duplicates:           in.Stats.Duplicates,
		Selected:             len(in.Allocation.Assigned),
		GroupingOverrides:    in.Allocation.Overrides,
		ExplainerStrategy:    in.ExplainerStrategy,
		ExplainerDegraded:    in.ExplainerDegraded,
	}

	var excluded int
	for _, n := range in.ExcludedByReason {
		excluded += n
	}
	r.NotSelected = in.CohortSize - excluded - r.Selected

	if in.Target > r.Selected {
		r.Shortfall = in.Target - r.Selected
	}

	counts := make(map[string]int)
	scores := make([]float64, 0, len(in.Allocation.Assigned))
	for _, e := range in.Allocation.Assigned {
		counts[e.Tier]++
		scores = append(scores, e.Score.Calibrated)
	}

	var expected float64
	for _, row := range in.Table.Rows() {
		n := counts[row.Name]
		if n == 0 {
			continue
		}
		tierExpected := float64(n) * row.HistoricalRate
		expected += tierExpected
		r.TierDistribution = append(r.TierDistribution, model.TierStat{
			Tier:                row.Name,
			Count:               n,
			HistoricalRate:      row.HistoricalRate,
			ExpectedConversions: tierExpected,
		})
	}
	r.ExpectedConversions = expected

	if baseline := in.Table.BaselineRate(); baseline > 0 && r.Selected > 0 {
		r.Lift = (expected / float64(r.Selected)) / baseline
	}

	r.Scores = SummarizeScores(scores)
	return r
}

// SummarizeScores computes the distribution summary over calibrated scores.
func SummarizeScores(scores []float64) model.ScoreSummary {
	if len(scores) == 0 {
		return model.ScoreSummary{}
	}
	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)

	return model.ScoreSummary{
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   stat.Mean(sorted, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P90:    stat.Quantile(0.9, stat.Empirical, sorted, nil),
	}
}
