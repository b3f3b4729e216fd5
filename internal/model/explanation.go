package model

// Explanation strategies, in order of preference.
const (
	StrategyAttribution = "attribution"
	StrategyGlobal      = "global_importance"
	StrategyNone        = "none"
)

// Contribution is one (feature, contribution value) pair for one advisor.
type Contribution struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"value"`
}

// Direction reports whether the contribution pushed the score up or down.
func (c Contribution) Direction() string {
	if c.Value < 0 {
		return "negative"
	}
	return "positive"
}

// Explanation holds the top contributing features for one advisor's score,
// plus an optional generated narrative.
type Explanation struct {
	// Top holds up to 3 contributions ranked by magnitude.
	Top []Contribution `json:"top"`

	// Narrative is the human-readable summary shown to sales reps. Empty
	// for advisors below the backfill percentile and in degraded modes
	// where no trustworthy per-advisor story exists.
	Narrative string `json:"narrative,omitempty"`

	// Strategy records how this explanation was produced.
	Strategy string `json:"strategy"`

	// Degraded is set when the preferred per-advisor attribution was
	// unavailable and a fallback produced this explanation.
	Degraded bool `json:"degraded,omitempty"`
}

// Top1 returns the highest-magnitude feature name, or "" when absent.
func (e Explanation) Top1() string {
	if len(e.Top) == 0 {
		return ""
	}
	return e.Top[0].Feature
}
