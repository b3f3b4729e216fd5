package explain

import (
	"github.com/rotisserie/eris"
)

// minTopFeatureDiversity is the smallest number of distinct top features a
// trustworthy attribution run shows over a non-trivial cohort. A healthy
// model spreads its top driver across many features; a single dominant
// top-1 across thousands of advisors has only ever meant broken
// attribution, not a real pattern.
const (
	minTopFeatureDiversity = 3
	diversityCohortFloor   = 10
)

// validateAttribution rejects attribution output exhibiting the known
// failure modes: every contribution zero, or the same top feature for
// effectively the whole cohort.
func validateAttribution(top1 []string, cohortSize int) error {
	var nonEmpty int
	distinct := make(map[string]bool)
	for _, f := range top1 {
		if f == "" {
			continue
		}
		nonEmpty++
		distinct[f] = true
	}

	if nonEmpty == 0 {
		return eris.New("explain: attribution produced no non-zero contributions")
	}
	if cohortSize > diversityCohortFloor && len(distinct) < minTopFeatureDiversity {
		return eris.Errorf("explain: only %d distinct top features across %d advisors (need %d)",
			len(distinct), cohortSize, minTopFeatureDiversity)
	}
	return nil
}
