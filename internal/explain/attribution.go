// Package explain produces per-advisor score explanations: path
// attribution over the tree ensemble, a global-importance fallback when
// attribution output fails validation, and short narratives for the
// entries sales reps actually see.
package explain

import (
	"github.com/savvy-gtm/leadscore-cli/internal/scoring"
)

// treeExpectations returns the cover-weighted expected margin at every
// node of a tree. The expectation at a leaf is its value; at a split it is
// the child expectations weighted by training cover.
func treeExpectations(t scoring.Tree) []float64 {
	exp := make([]float64, len(t.Nodes))
	// Children always follow parents, so one reverse pass resolves every
	// node after its subtree.
	for i := len(t.Nodes) - 1; i >= 0; i-- {
		n := t.Nodes[i]
		if n.IsLeaf() {
			exp[i] = n.Leaf
			continue
		}
		lc, rc := t.Nodes[n.Left].Cover, t.Nodes[n.Right].Cover
		exp[i] = (lc*exp[n.Left] + rc*exp[n.Right]) / (lc + rc)
	}
	return exp
}

// attributor computes per-feature margin contributions by walking each
// advisor's decision paths. Expectations are precomputed once per model.
type attributor struct {
	model        *scoring.Model
	expectations [][]float64
}

func newAttributor(m *scoring.Model) *attributor {
	exp := make([][]float64, len(m.Trees))
	for i, tree := range m.Trees {
		exp[i] = treeExpectations(tree)
	}
	return &attributor{model: m, expectations: exp}
}

// contributions returns one value per feature index: how much each split
// on that feature moved this advisor's margin away from the expectation.
// Values sum (with the base margin and root expectations) to the advisor's
// margin, so magnitudes are comparable across features.
func (a *attributor) contributions(vec []float64, missing []bool) []float64 {
	contrib := make([]float64, a.model.NumFeatures)
	for ti, tree := range a.model.Trees {
		exp := a.expectations[ti]
		idx := 0
		for {
			n := tree.Nodes[idx]
			if n.IsLeaf() {
				break
			}
			var next int
			if missing[n.Feature] {
				if n.DefaultLeft {
					next = n.Left
				} else {
					next = n.Right
				}
			} else if vec[n.Feature] < n.Threshold {
				next = n.Left
			} else {
				next = n.Right
			}
			contrib[n.Feature] += exp[next] - exp[idx]
			idx = next
		}
	}
	return contrib
}
