package tier

import (
	"strconv"
	"strings"

	"github.com/savvy-gtm/leadscore-cli/internal/config"
	"github.com/savvy-gtm/leadscore-cli/internal/model"
)

// Exclusion reason keys, reported per-reason in the run summary.
const (
	ReasonAgeOver70             = "age_over_70"
	ReasonDisclosureCriminal    = "disclosure_criminal"
	ReasonDisclosureRegulatory  = "disclosure_regulatory"
	ReasonDisclosureTermination = "disclosure_termination"
	ReasonDisclosureInvest      = "disclosure_investigation"
	ReasonDisclosureDispute     = "disclosure_customer_dispute"
	ReasonDisclosureCivil       = "disclosure_civil"
	ReasonDisclosureBond        = "disclosure_bond"
	ReasonTitleExcluded         = "title_excluded"
	ReasonFirmExcluded          = "firm_excluded"
	ReasonHighTurnover          = "high_turnover"
	ReasonLowDiscretionary      = "low_discretionary_ratio"
	ReasonRecentPromotee        = "recent_promotee"
)

// Classifier applies global exclusions and assigns rule tiers. It is
// stateless per record and safe for concurrent use.
type Classifier struct {
	cfg              config.ClassifierConfig
	table            *Table
	excludedFirmCRDs map[int64]bool
}

// NewClassifier builds a classifier from settings and a priority table.
func NewClassifier(cfg config.ClassifierConfig, table *Table) *Classifier {
	crds := make(map[int64]bool, len(cfg.ExcludedFirmCRDs))
	for _, crd := range cfg.ExcludedFirmCRDs {
		crds[crd] = true
	}
	return &Classifier{cfg: cfg, table: table, excludedFirmCRDs: crds}
}

// Classify returns the tier assignment for one advisor. Exclusions are
// checked first, in a fixed order so the reported reason is stable when an
// advisor trips more than one; reaching STANDARD means no rule matched,
// which is a valid terminal state.
func (c *Classifier) Classify(r *model.FeatureRecord) model.TierAssignment {
	if reason := c.exclusionReason(r); reason != "" {
		return model.TierAssignment{ExclusionReason: reason}
	}

	name := c.tierFor(r)
	if name == model.TierStandard {
		return model.TierAssignment{Tier: name, TierRank: model.StandardRank}
	}
	rank, ok := c.table.Rank(name)
	if !ok {
		// A predicate named a tier the table does not carry. Treat as
		// STANDARD rather than dropping the advisor.
		return model.TierAssignment{Tier: model.TierStandard, TierRank: model.StandardRank}
	}
	return model.TierAssignment{Tier: name, TierRank: rank}
}

func (c *Classifier) exclusionReason(r *model.FeatureRecord) string {
	if ageAtLeast70(r.AgeRange) {
		return ReasonAgeOver70
	}

	switch {
	case r.DisclosureCriminal:
		return ReasonDisclosureCriminal
	case r.DisclosureRegulatory:
		return ReasonDisclosureRegulatory
	case r.DisclosureTermination:
		return ReasonDisclosureTermination
	case r.DisclosureInvestigation:
		return ReasonDisclosureInvest
	case r.DisclosureCustomerDispute:
		return ReasonDisclosureDispute
	case r.DisclosureCivil:
		return ReasonDisclosureCivil
	case r.DisclosureBond:
		return ReasonDisclosureBond
	}

	title := strings.ToUpper(r.JobTitle)
	for _, p := range c.cfg.ExcludedTitlePatterns {
		if p != "" && strings.Contains(title, p) {
			return ReasonTitleExcluded
		}
	}

	if c.excludedFirmCRDs[r.FirmCRD] {
		return ReasonFirmExcluded
	}
	firm := strings.ToUpper(r.FirmName)
	for _, p := range c.cfg.ExcludedFirmPatterns {
		if p != "" && strings.Contains(firm, p) {
			return ReasonFirmExcluded
		}
	}

	if c.cfg.MaxTurnoverPct > 0 && r.TurnoverPct >= c.cfg.MaxTurnoverPct {
		return ReasonHighTurnover
	}

	// Discretionary ratio is unknown for most broker-dealer reps; only an
	// observed low ratio excludes.
	if r.DiscretionaryRatio != nil && *r.DiscretionaryRatio < c.cfg.MinDiscretionaryRatio {
		return ReasonLowDiscretionary
	}

	// Short tenure with a mid/senior title means promoted in place, not
	// hired away. These convert at a fraction of the baseline rate.
	if r.LikelyRecentPromotee {
		return ReasonRecentPromotee
	}

	return ""
}

// tierFor evaluates tier predicates in priority order and returns the
// first match. Predicate order is the contract: an advisor matching both
// TIER_1A and TIER_5 is a TIER_1A.
func (c *Classifier) tierFor(r *model.FeatureRecord) string {
	primeMover := r.TenureMonths >= 12 && r.TenureMonths <= 48 && r.Moves3Yr >= 2

	switch {
	case primeMover && r.HasCFP:
		return model.TierPrimeMoverCFP
	case primeMover && r.HasSeries65Only:
		return model.TierPrimeMoverSeries65
	case primeMover:
		return model.TierPrimeMover
	case r.ExperienceYears >= 10 && r.FirmNetChange12Mo <= -15:
		return model.TierHVWealthBleeder
	case r.NumPriorFirms >= 3 && r.TenureMonths <= 72:
		return model.TierProvenMover
	case r.FirmNetChange12Mo >= -20 && r.FirmNetChange12Mo <= -8:
		return model.TierModerateBleeder
	case r.ExperienceYears >= 15 && r.Moves3Yr >= 1:
		return model.TierExperiencedMover
	case r.FirmNetChange12Mo < -20:
		return model.TierHeavyBleeder
	default:
		return model.TierStandard
	}
}

// ageAtLeast70 parses the lower bound of an age-range bucket ("70-74",
// "95-99"). Unparseable or empty buckets pass; age exclusion only applies
// when age is known.
func ageAtLeast70(bucket string) bool {
	low, _, ok := strings.Cut(bucket, "-")
	if !ok {
		return false
	}
	n, err := strconv.Atoi(strings.TrimSpace(low))
	if err != nil {
		return false
	}
	return n >= 70
}
