package scoring

import "sort"

// Percentiles ranks each score within its cohort on a 1-100 scale. Ties
// share the percentile of their lowest member, so equal scores always get
// equal percentiles and the mapping is monotone in the score. Percentiles
// are meaningless across cohorts; they are recomputed every run.
func Percentiles(scores []float64) []int {
	n := len(scores)
	if n == 0 {
		return nil
	}
	sorted := make([]float64, n)
	copy(sorted, scores)
	sort.Float64s(sorted)

	out := make([]int, n)
	for i, s := range scores {
		countLess := sort.SearchFloat64s(sorted, s)
		pct := (countLess + 1) * 100 / n
		if pct < 1 {
			// Integer truncation floors the bottom of cohorts larger
			// than 100 rows to zero; the scale is 1-100.
			pct = 1
		}
		out[i] = pct
	}
	return out
}
