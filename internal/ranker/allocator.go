package ranker

import (
	"sort"

	"go.uber.org/zap"

	"github.com/savvy-gtm/leadscore-cli/internal/config"
	"github.com/savvy-gtm/leadscore-cli/internal/model"
)

// Allocator distributes a ranked list across owners. Walking in global
// rank order with least-loaded placement keeps owner books balanced while
// preserving each owner's relative ordering.
type Allocator struct {
	cfg      config.AllocationConfig
	grouping bool
}

// NewAllocator builds an Allocator from allocation settings.
func NewAllocator(cfg config.AllocationConfig) *Allocator {
	return &Allocator{cfg: cfg, grouping: cfg.GroupingKeyField == "firm_crd"}
}

// AllocationResult is the outcome of one allocation pass.
type AllocationResult struct {
	// Assigned entries carry OwnerID and OwnerRank; order follows global
	// rank.
	Assigned []model.ListEntry

	// Leftover entries ranked past total capacity, in global rank order.
	Leftover []model.ListEntry

	// Overrides counts entries placed past an owner's quota to keep a
	// firm's leads together.
	Overrides int
}

// Allocate walks entries in global rank order. When firm grouping is on,
// a lead whose firm already has an owner goes to that owner even past
// quota; two reps calling into the same firm is worse than an uneven
// book. Everyone else goes to the least-loaded owner with capacity, ties
// broken by owner id so runs are reproducible.
func (a *Allocator) Allocate(entries []model.ListEntry) AllocationResult {
	owners := make([]string, len(a.cfg.Owners))
	copy(owners, a.cfg.Owners)
	sort.Strings(owners)

	load := make(map[string]int, len(owners))
	nextRank := make(map[string]int, len(owners))
	firmOwner := make(map[int64]string)

	var res AllocationResult
	for _, e := range entries {
		ownerID := ""
		override := false

		if a.grouping {
			if prev, ok := firmOwner[e.Advisor.FirmCRD]; ok {
				ownerID = prev
				override = load[prev] >= a.cfg.QuotaPerOwner
			}
		}
		if ownerID == "" {
			ownerID = a.leastLoaded(owners, load)
		}
		if ownerID == "" {
			res.Leftover = append(res.Leftover, e)
			continue
		}

		load[ownerID]++
		nextRank[ownerID]++
		e.OwnerID = ownerID
		e.OwnerRank = nextRank[ownerID]
		e.GroupingOverride = override
		if override {
			res.Overrides++
		}
		if a.grouping {
			firmOwner[e.Advisor.FirmCRD] = ownerID
		}
		res.Assigned = append(res.Assigned, e)
	}

	if res.Overrides > 0 {
		zap.L().Warn("quota exceeded to keep firms grouped",
			zap.Int("overrides", res.Overrides))
	}
	zap.L().Info("list allocated",
		zap.Int("assigned", len(res.Assigned)),
		zap.Int("leftover", len(res.Leftover)),
		zap.Int("owners", len(owners)))
	return res
}

// leastLoaded returns the owner with the fewest assignments that still has
// capacity, or "" when every owner is full. owners must be sorted.
func (a *Allocator) leastLoaded(owners []string, load map[string]int) string {
	best := ""
	for _, o := range owners {
		if load[o] >= a.cfg.QuotaPerOwner {
			continue
		}
		if best == "" || load[o] < load[best] {
			best = o
		}
	}
	return best
}
