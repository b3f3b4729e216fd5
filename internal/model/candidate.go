// Package model defines the core domain types for the lead-scoring pipeline:
// feature records, tier assignments, model scores, explanations, and the
// final list entries.
package model

// FeatureRecord is the point-in-time feature snapshot for one advisor.
// Exactly one record exists per advisor per scoring run. All fields are
// as-of the contact date; nothing here may be derived from later data.
type FeatureRecord struct {
	// Identity. Both are required; rows missing either never enter the run.
	AdvisorCRD int64
	FirmCRD    int64

	// Contact and display fields, passed through to the export.
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	LinkedInURL string
	JobTitle    string
	AgeRange    string
	FirmName    string

	// Career history.
	TenureMonths      int
	ExperienceYears   float64
	ExperienceMissing bool
	Moves3Yr          int
	NumPriorFirms     int
	DaysSinceLastMove int

	// LikelyRecentPromotee marks short tenure paired with a mid/senior
	// title: the advisor was likely promoted in place, not hired away.
	// Computed upstream in the warehouse.
	LikelyRecentPromotee bool

	// Firm context.
	FirmRepCount       int
	FirmNetChange12Mo  int
	FirmDepartures     int
	BleedingVelocity   int // -1 decelerating, 0 stable, 1 accelerating
	TurnoverPct        float64
	DiscretionaryRatio *float64

	// Bucketed categoricals consumed by the model via manifest mappings.
	TenureBucket      string
	ExperienceBucket  string
	MobilityTier      string
	FirmStabilityTier string

	// Registration and channel flags.
	IsWirehouse      bool
	IsBrokerProtocol bool
	IsIndependentRIA bool
	IsIARepType      bool
	IsDualRegistered bool
	HasCFP           bool
	HasSeries65Only  bool
	HasEmail         bool
	HasLinkedIn      bool
	HasFirmData      bool

	// Disclosure flags. Any of these excludes the advisor before tiering.
	DisclosureCriminal        bool
	DisclosureRegulatory      bool
	DisclosureTermination     bool
	DisclosureInvestigation   bool
	DisclosureCustomerDispute bool
	DisclosureCivil           bool
	DisclosureBond            bool
}

// IsRecentMover reports whether the advisor joined their current firm
// within the last 12 months.
func (r *FeatureRecord) IsRecentMover() bool {
	return r.DaysSinceLastMove >= 0 && r.DaysSinceLastMove <= 365
}

// NumericFeature returns the encoded numeric value for a model feature
// name. The second return is false for names this record does not carry,
// including categorical features (those go through CategoricalFeature and
// the manifest's mapping table).
func (r *FeatureRecord) NumericFeature(name string) (float64, bool) {
	switch name {
	case "tenure_months":
		return float64(r.TenureMonths), true
	case "experience_years":
		return r.ExperienceYears, true
	case "moves_3yr":
		return float64(r.Moves3Yr), true
	case "num_prior_firms":
		return float64(r.NumPriorFirms), true
	case "days_since_last_move":
		return float64(r.DaysSinceLastMove), true
	case "firm_rep_count_at_contact":
		return float64(r.FirmRepCount), true
	case "firm_net_change_12mo":
		return float64(r.FirmNetChange12Mo), true
	case "firm_departures_corrected":
		return float64(r.FirmDepartures), true
	case "bleeding_velocity_encoded":
		return float64(r.BleedingVelocity), true
	case "is_wirehouse":
		return boolFeature(r.IsWirehouse), true
	case "is_broker_protocol":
		return boolFeature(r.IsBrokerProtocol), true
	case "is_independent_ria":
		return boolFeature(r.IsIndependentRIA), true
	case "is_ia_rep_type":
		return boolFeature(r.IsIARepType), true
	case "is_dual_registered":
		return boolFeature(r.IsDualRegistered), true
	case "is_recent_mover":
		return boolFeature(r.IsRecentMover()), true
	case "has_email":
		return boolFeature(r.HasEmail), true
	case "has_linkedin":
		return boolFeature(r.HasLinkedIn), true
	case "has_firm_data":
		return boolFeature(r.HasFirmData), true
	case "is_experience_missing":
		return boolFeature(r.ExperienceMissing), true
	case "is_likely_recent_promotee":
		return boolFeature(r.LikelyRecentPromotee), true
	case "mobility_x_heavy_bleeding":
		return boolFeature(r.MobilityTier == MobilityHigh && r.FirmStabilityTier == StabilityHeavyBleeding), true
	case "short_tenure_x_high_mobility":
		return boolFeature(r.TenureMonths < 48 && r.Moves3Yr >= 2), true
	default:
		return 0, false
	}
}

// CategoricalFeature returns the raw categorical value for a feature name.
func (r *FeatureRecord) CategoricalFeature(name string) (string, bool) {
	switch name {
	case "tenure_bucket":
		return r.TenureBucket, true
	case "experience_bucket":
		return r.ExperienceBucket, true
	case "mobility_tier":
		return r.MobilityTier, true
	case "firm_stability_tier":
		return r.FirmStabilityTier, true
	default:
		return "", false
	}
}

// HasFeature reports whether name resolves on this record, either as a
// numeric or a categorical feature. Used at artifact-load time to verify
// the model manifest against the input schema.
func (r *FeatureRecord) HasFeature(name string) bool {
	if _, ok := r.NumericFeature(name); ok {
		return true
	}
	_, ok := r.CategoricalFeature(name)
	return ok
}

// Canonical values for the bucketed categoricals.
const (
	MobilityHigh           = "HIGH"
	MobilityModerate       = "MODERATE"
	MobilityLow            = "LOW"
	StabilityHeavyBleeding = "HEAVY_BLEEDING"
	StabilityModerate      = "MODERATE_BLEEDING"
	StabilityStable        = "STABLE"
	StabilityGrowing       = "GROWING"
)

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
