package model

// ListEntry is one row of the final ranked, allocated lead list. Entries
// are created once per run by the ranker and are immutable afterwards; the
// allocator is the only component that sets OwnerID and OwnerRank.
type ListEntry struct {
	Advisor *FeatureRecord

	// Tier is the final tier label, possibly promoted to STANDARD_HIGH_V4.
	Tier     string
	TierRank int

	// Backfilled marks STANDARD advisors promoted on model score alone.
	Backfilled bool

	Score       ModelScore
	Explanation Explanation

	// GlobalRank is the 1-based position in the full sorted list, assigned
	// before allocation. No component reorders entries after the sort.
	GlobalRank int

	// OwnerID and OwnerRank are set by the allocator. OwnerRank is the
	// 1-based position within the owner's sub-list, preserving global order.
	OwnerID   string
	OwnerRank int

	// GroupingOverride marks entries assigned past an owner's quota
	// because an earlier lead from the same firm went to that owner.
	GroupingOverride bool
}
