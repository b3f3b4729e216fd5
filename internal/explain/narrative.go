package explain

import (
	"fmt"
	"strings"

	"github.com/savvy-gtm/leadscore-cli/internal/model"
)

// clause holds the narrative fragments for one feature, chosen by the
// direction its contribution pushed the score.
type clause struct {
	up   string
	down string
}

// clauses maps model feature names to narrative fragments. Features
// without an entry fall back to a generic fragment; the two interaction
// features get full special-case sentences in narrativeFor.
var clauses = map[string]clause{
	"tenure_months": {
		up:   "tenure at current firm is in the window where advisors move",
		down: "long settled tenure at current firm",
	},
	"experience_years": {
		up:   "experience level typical of advisors who switch firms",
		down: "experience level typical of advisors who stay put",
	},
	"moves_3yr": {
		up:   "multiple firm changes in the last three years",
		down: "no recent firm changes",
	},
	"num_prior_firms": {
		up:   "track record across several prior firms",
		down: "little history of changing firms",
	},
	"days_since_last_move": {
		up:   "recent firm change",
		down: "long stretch since the last firm change",
	},
	"firm_rep_count_at_contact": {
		up:   "firm size profile associated with departures",
		down: "firm size profile associated with retention",
	},
	"firm_net_change_12mo": {
		up:   "current firm shrank over the last 12 months",
		down: "current firm held steady or grew",
	},
	"firm_departures_corrected": {
		up:   "elevated advisor departures at current firm",
		down: "few departures at current firm",
	},
	"bleeding_velocity_encoded": {
		up:   "departures at current firm are accelerating",
		down: "departures at current firm are slowing",
	},
	"is_wirehouse": {
		up:   "wirehouse channel with high historical breakaway rates",
		down: "outside the wirehouse channel",
	},
	"is_broker_protocol": {
		up:   "broker protocol membership eases a transition",
		down: "firm is not a broker protocol member",
	},
	"is_independent_ria": {
		up:   "independent RIA channel",
		down: "not in the independent RIA channel",
	},
	"is_ia_rep_type": {
		up:   "investment adviser registration",
		down: "no investment adviser registration",
	},
	"is_dual_registered": {
		up:   "dual BD and IA registration",
		down: "single registration type",
	},
	"is_recent_mover": {
		up:   "joined current firm within the last year",
		down: "at current firm for more than a year",
	},
	"has_email": {
		up:   "direct email on file",
		down: "no direct email on file",
	},
	"has_linkedin": {
		up:   "active LinkedIn presence",
		down: "no LinkedIn presence",
	},
	"has_firm_data": {
		up:   "full firm-level data available",
		down: "limited firm-level data",
	},
	"is_experience_missing": {
		up:   "experience history incomplete",
		down: "complete experience history",
	},
	"is_likely_recent_promotee": {
		up:   "short tenure with a senior title suggests an in-place promotion",
		down: "established tenure for title level",
	},
	"tenure_bucket": {
		up:   "tenure bracket associated with movers",
		down: "tenure bracket associated with stayers",
	},
	"experience_bucket": {
		up:   "experience bracket associated with movers",
		down: "experience bracket associated with stayers",
	},
	"mobility_tier": {
		up:   "high historical mobility",
		down: "low historical mobility",
	},
	"firm_stability_tier": {
		up:   "current firm classified as unstable",
		down: "current firm classified as stable",
	},
}

// Interaction features carry a whole story on their own; when one is the
// top driver the narrative leads with it instead of a fragment list.
var interactionNarratives = map[string]string{
	"short_tenure_x_high_mobility": "Recently joined yet historically mobile, the classic profile of an advisor already weighing the next move.",
	"mobility_x_heavy_bleeding":    "Mobile advisor at a firm losing reps fast, the combination with the highest observed conversion rates.",
}

// narrativeFor renders an explanation's top contributions into one or two
// sentences for the export.
func narrativeFor(e model.Explanation) string {
	if len(e.Top) == 0 {
		return ""
	}

	var lead string
	fragments := make([]string, 0, len(e.Top))
	for _, c := range e.Top {
		if special, ok := interactionNarratives[c.Feature]; ok && c.Value > 0 {
			if lead == "" {
				lead = special
			}
			continue
		}
		fragments = append(fragments, fragmentFor(c))
	}

	var b strings.Builder
	if lead != "" {
		b.WriteString(lead)
	}
	if len(fragments) > 0 {
		if lead != "" {
			b.WriteString(" Also: ")
		} else {
			b.WriteString("Key signals: ")
		}
		b.WriteString(strings.Join(fragments, "; "))
		b.WriteString(".")
	}
	return b.String()
}

func fragmentFor(c model.Contribution) string {
	cl, ok := clauses[c.Feature]
	if !ok {
		return fmt.Sprintf("%s (%s signal)", strings.ReplaceAll(c.Feature, "_", " "), c.Direction())
	}
	if c.Value < 0 {
		return cl.down
	}
	return cl.up
}
