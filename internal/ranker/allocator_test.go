package ranker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savvy-gtm/leadscore-cli/internal/config"
	"github.com/savvy-gtm/leadscore-cli/internal/model"
)

func entry(rank int, crd, firmCRD int64) model.ListEntry {
	return model.ListEntry{
		Advisor:    &model.FeatureRecord{AdvisorCRD: crd, FirmCRD: firmCRD},
		GlobalRank: rank,
	}
}

func TestAllocate_BalancesOwners(t *testing.T) {
	t.Parallel()
	a := NewAllocator(config.AllocationConfig{
		Owners:        []string{"sga-02", "sga-01"},
		QuotaPerOwner: 2,
	})

	entries := []model.ListEntry{
		entry(1, 1, 100),
		entry(2, 2, 200),
		entry(3, 3, 300),
		entry(4, 4, 400),
	}
	res := a.Allocate(entries)

	require.Len(t, res.Assigned, 4)
	assert.Empty(t, res.Leftover)

	// Ties go to the lexicographically first owner regardless of the
	// order owners were configured.
	assert.Equal(t, "sga-01", res.Assigned[0].OwnerID)
	assert.Equal(t, "sga-02", res.Assigned[1].OwnerID)
	assert.Equal(t, "sga-01", res.Assigned[2].OwnerID)
	assert.Equal(t, "sga-02", res.Assigned[3].OwnerID)
}

func TestAllocate_OwnerRankPreservesGlobalOrder(t *testing.T) {
	t.Parallel()
	a := NewAllocator(config.AllocationConfig{
		Owners:        []string{"sga-01", "sga-02"},
		QuotaPerOwner: 10,
	})

	var entries []model.ListEntry
	for i := 1; i <= 6; i++ {
		entries = append(entries, entry(i, int64(i), int64(i*100)))
	}
	res := a.Allocate(entries)

	lastRank := make(map[string]int)
	lastGlobal := make(map[string]int)
	for _, e := range res.Assigned {
		assert.Equal(t, lastRank[e.OwnerID]+1, e.OwnerRank)
		assert.Greater(t, e.GlobalRank, lastGlobal[e.OwnerID])
		lastRank[e.OwnerID] = e.OwnerRank
		lastGlobal[e.OwnerID] = e.GlobalRank
	}
}

func TestAllocate_QuotaAndLeftover(t *testing.T) {
	t.Parallel()
	a := NewAllocator(config.AllocationConfig{
		Owners:        []string{"sga-01"},
		QuotaPerOwner: 2,
	})

	entries := []model.ListEntry{
		entry(1, 1, 100),
		entry(2, 2, 200),
		entry(3, 3, 300),
	}
	res := a.Allocate(entries)

	assert.Len(t, res.Assigned, 2)
	require.Len(t, res.Leftover, 1)
	assert.Equal(t, int64(3), res.Leftover[0].Advisor.AdvisorCRD)
	assert.Zero(t, res.Overrides)
}

func TestAllocate_FirmGrouping(t *testing.T) {
	t.Parallel()
	a := NewAllocator(config.AllocationConfig{
		Owners:           []string{"sga-01", "sga-02"},
		QuotaPerOwner:    10,
		GroupingKeyField: "firm_crd",
	})

	entries := []model.ListEntry{
		entry(1, 1, 500),
		entry(2, 2, 600),
		entry(3, 3, 500), // same firm as rank 1
		entry(4, 4, 500), // same firm as rank 1
	}
	res := a.Allocate(entries)

	require.Len(t, res.Assigned, 4)
	byCRD := make(map[int64]model.ListEntry)
	for _, e := range res.Assigned {
		byCRD[e.Advisor.AdvisorCRD] = e
	}
	assert.Equal(t, byCRD[1].OwnerID, byCRD[3].OwnerID)
	assert.Equal(t, byCRD[1].OwnerID, byCRD[4].OwnerID)
	assert.NotEqual(t, byCRD[1].OwnerID, byCRD[2].OwnerID)
	assert.Zero(t, res.Overrides)
}

func TestAllocate_GroupingOverridesQuota(t *testing.T) {
	t.Parallel()
	a := NewAllocator(config.AllocationConfig{
		Owners:           []string{"sga-01"},
		QuotaPerOwner:    1,
		GroupingKeyField: "firm_crd",
	})

	entries := []model.ListEntry{
		entry(1, 1, 500),
		entry(2, 2, 500), // same firm, owner already at quota
		entry(3, 3, 600), // different firm, no capacity left
	}
	res := a.Allocate(entries)

	require.Len(t, res.Assigned, 2)
	assert.Equal(t, "sga-01", res.Assigned[1].OwnerID)
	assert.True(t, res.Assigned[1].GroupingOverride)
	assert.Equal(t, 1, res.Overrides)

	require.Len(t, res.Leftover, 1)
	assert.Equal(t, int64(3), res.Leftover[0].Advisor.AdvisorCRD)
}

func TestAllocate_GroupingDisabled(t *testing.T) {
	t.Parallel()
	a := NewAllocator(config.AllocationConfig{
		Owners:        []string{"sga-01", "sga-02"},
		QuotaPerOwner: 10,
	})

	entries := []model.ListEntry{
		entry(1, 1, 500),
		entry(2, 2, 500),
	}
	res := a.Allocate(entries)

	require.Len(t, res.Assigned, 2)
	// Without grouping, same-firm leads spread across owners.
	assert.NotEqual(t, res.Assigned[0].OwnerID, res.Assigned[1].OwnerID)
}
