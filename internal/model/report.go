package model

// ScoreSummary describes the cohort score distribution for the run report.
type ScoreSummary struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P90    float64 `json:"p90"`
}

// TierStat is one row of the per-tier report table.
type TierStat struct {
	Tier                string  `json:"tier"`
	Count               int     `json:"count"`
	HistoricalRate      float64 `json:"historical_rate"`
	ExpectedConversions float64 `json:"expected_conversions"`
}

// RunReport is the operator-facing summary of one list-generation run.
// It explains why the list is the size it is: every advisor that did not
// make the list is accounted for by reason.
type RunReport struct {
	RunID      string `json:"run_id"`
	ConfigHash string `json:"config_hash"`

	CohortSize int `json:"cohort_size"`

	// ExcludedByReason counts classifier exclusions (disclosures, age,
	// titles, firms) keyed by reason.
	ExcludedByReason map[string]int `json:"excluded_by_reason"`

	Deprioritized        int `json:"deprioritized"`
	DisagreementFiltered int `json:"disagreement_filtered"`
	Backfilled           int `json:"backfilled"`
	Duplicates           int `json:"duplicates"`

	Selected    int `json:"selected"`
	NotSelected int `json:"not_selected"`

	// GroupingOverrides counts entries placed past quota to keep same-firm
	// leads with one owner. Non-fatal, surfaced for operator review.
	GroupingOverrides int `json:"grouping_overrides"`

	// Shortfall is target minus selected when the eligible population was
	// too small; zero when the target was met.
	Shortfall int `json:"shortfall"`

	TierDistribution []TierStat   `json:"tier_distribution"`
	Scores           ScoreSummary `json:"scores"`

	// ExplainerDegraded is set when narratives came from a fallback
	// strategy rather than per-advisor attribution.
	ExplainerDegraded bool   `json:"explainer_degraded,omitempty"`
	ExplainerStrategy string `json:"explainer_strategy"`

	// ExpectedConversions is the blended expectation over selected leads
	// using per-tier historical rates; Lift compares it to the baseline.
	ExpectedConversions float64 `json:"expected_conversions"`
	Lift                float64 `json:"lift"`
}
