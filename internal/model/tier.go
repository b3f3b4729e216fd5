package model

// Tier names assigned by the rule classifier, in priority order.
const (
	TierPrimeMoverCFP      = "TIER_1A_PRIME_MOVER_CFP"
	TierPrimeMoverSeries65 = "TIER_1B_PRIME_MOVER_SERIES65"
	TierPrimeMover         = "TIER_1_PRIME_MOVER"
	TierHVWealthBleeder    = "TIER_1F_HV_WEALTH_BLEEDER"
	TierProvenMover        = "TIER_2_PROVEN_MOVER"
	TierModerateBleeder    = "TIER_3_MODERATE_BLEEDER"
	TierExperiencedMover   = "TIER_4_EXPERIENCED_MOVER"
	TierHeavyBleeder       = "TIER_5_HEAVY_BLEEDER"

	// TierStandard is the fall-through tier for advisors no rule matched.
	// It is a valid terminal state, not a classification failure.
	TierStandard = "STANDARD"

	// TierStandardHighV4 is the synthetic backfill tier for STANDARD
	// advisors the model scores at or above the backfill percentile.
	TierStandardHighV4 = "STANDARD_HIGH_V4"
)

// Ranks for the two tiers the ranker itself assigns. Rule-tier ranks come
// from the priority table; these sit strictly below every rule tier.
const (
	StandardRank       = 100
	StandardHighV4Rank = 50
)

// TierAssignment is the result of classifying one advisor. Either Tier is
// set (with its priority rank), or ExclusionReason is set and the advisor
// never enters the list.
type TierAssignment struct {
	Tier            string
	TierRank        int
	ExclusionReason string
}

// Excluded reports whether the advisor was disqualified rather than tiered.
func (a TierAssignment) Excluded() bool {
	return a.ExclusionReason != ""
}
