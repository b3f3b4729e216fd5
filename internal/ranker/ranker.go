// Package ranker merges rule tiers with model scores into the final
// ranked list, allocates entries across owners, and summarizes each run.
package ranker

import (
	"sort"

	"go.uber.org/zap"

	"github.com/savvy-gtm/leadscore-cli/internal/config"
	"github.com/savvy-gtm/leadscore-cli/internal/model"
	"github.com/savvy-gtm/leadscore-cli/internal/tier"
)

// Input pairs one classified advisor with their model score. Excluded
// advisors never reach the ranker.
type Input struct {
	Advisor    *model.FeatureRecord
	Assignment model.TierAssignment
	Score      model.ModelScore
}

// Stats counts what each merge stage removed or rewrote.
type Stats struct {
	Deprioritized        int
	DisagreementFiltered int
	Backfilled           int
	StandardDropped      int
	Duplicates           int
	Capped               int
}

// Ranker applies the hybrid merge. Stages run in a fixed order; moving the
// deprioritization cut after backfill would change which STANDARD advisors
// are eligible, so the order is part of the contract.
type Ranker struct {
	cfg          config.RankingConfig
	table        *tier.Table
	highPriority map[string]bool
}

// New builds a Ranker from ranking thresholds and the tier table.
func New(cfg config.RankingConfig, table *tier.Table) *Ranker {
	hp := make(map[string]bool, len(cfg.HighPriorityTiers))
	for _, t := range cfg.HighPriorityTiers {
		hp[t] = true
	}
	return &Ranker{cfg: cfg, table: table, highPriority: hp}
}

// BuildList produces the globally ranked list:
//
//  1. cut everything below the deprioritization percentile
//  2. cut high-priority tiers below the disagreement percentile
//  3. promote STANDARD at or above the backfill percentile; drop the rest
//  4. sort by tier rank, then percentile, then CRD
//  5. drop duplicate CRDs, keeping the best-ranked occurrence
//  6. apply the global cap and assign 1-based ranks
func (r *Ranker) BuildList(inputs []Input) ([]model.ListEntry, Stats) {
	var stats Stats
	entries := make([]model.ListEntry, 0, len(inputs))

	for _, in := range inputs {
		if in.Score.Percentile < r.cfg.DeprioritizePercentile {
			stats.Deprioritized++
			continue
		}
		if r.highPriority[in.Assignment.Tier] && in.Score.Percentile < r.cfg.DisagreementPercentile {
			stats.DisagreementFiltered++
			continue
		}

		e := model.ListEntry{
			Advisor:  in.Advisor,
			Tier:     in.Assignment.Tier,
			TierRank: in.Assignment.TierRank,
			Score:    in.Score,
		}
		if in.Assignment.Tier == model.TierStandard {
			if in.Score.Percentile < r.cfg.BackfillPercentile {
				stats.StandardDropped++
				continue
			}
			e.Tier = model.TierStandardHighV4
			e.TierRank = model.StandardHighV4Rank
			e.Backfilled = true
			stats.Backfilled++
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(a, b int) bool {
		ea, eb := entries[a], entries[b]
		if ea.TierRank != eb.TierRank {
			return ea.TierRank < eb.TierRank
		}
		if ea.Score.Percentile != eb.Score.Percentile {
			return ea.Score.Percentile > eb.Score.Percentile
		}
		return ea.Advisor.AdvisorCRD < eb.Advisor.AdvisorCRD
	})

	seen := make(map[int64]bool, len(entries))
	deduped := entries[:0]
	for _, e := range entries {
		if seen[e.Advisor.AdvisorCRD] {
			stats.Duplicates++
			continue
		}
		seen[e.Advisor.AdvisorCRD] = true
		deduped = append(deduped, e)
	}
	entries = deduped

	if r.cfg.GlobalCap > 0 && len(entries) > r.cfg.GlobalCap {
		stats.Capped = len(entries) - r.cfg.GlobalCap
		entries = entries[:r.cfg.GlobalCap]
	}

	for i := range entries {
		entries[i].GlobalRank = i + 1
	}

	zap.L().Info("list built",
		zap.Int("in", len(inputs)),
		zap.Int("out", len(entries)),
		zap.Int("deprioritized", stats.Deprioritized),
		zap.Int("disagreement_filtered", stats.DisagreementFiltered),
		zap.Int("backfilled", stats.Backfilled),
		zap.Int("standard_dropped", stats.StandardDropped),
		zap.Int("duplicates", stats.Duplicates))
	return entries, stats
}
