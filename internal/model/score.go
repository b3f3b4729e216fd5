package model

// ModelScore is the result of scoring one advisor within a cohort.
type ModelScore struct {
	AdvisorCRD int64 `json:"advisor_crd"`

	// Probability is the raw model output in [0, 1].
	Probability float64 `json:"probability"`

	// Calibrated is the probability after the optional isotonic map.
	// Equal to Probability when no calibrator is loaded.
	Calibrated float64 `json:"calibrated"`

	// Percentile is the rank of Calibrated within the full cohort scored
	// in this run, 1-100. It is cohort-relative: it cannot be recomputed
	// for a single advisor in isolation.
	Percentile int `json:"percentile"`
}
