// Package scoring loads the trained gradient-boosted tree artifacts and
// scores advisor cohorts: raw probability, isotonic calibration, and
// cohort-relative percentiles.
package scoring

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Node is one node of a boosted tree. Feature is an index into the
// manifest's feature order; -1 marks a leaf.
type Node struct {
	Feature     int     `json:"feature"`
	Threshold   float64 `json:"threshold"`
	Left        int     `json:"left"`
	Right       int     `json:"right"`
	Leaf        float64 `json:"leaf"`
	DefaultLeft bool    `json:"default_left"`
	Cover       float64 `json:"cover"`
	Gain        float64 `json:"gain"`
}

// IsLeaf reports whether the node is a terminal leaf.
func (n Node) IsLeaf() bool {
	return n.Feature < 0
}

// Tree is one additive member of the ensemble, nodes indexed from the root
// at 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Model is the loaded ensemble. Prediction sums leaf values in margin
// space on top of the base score, then applies the logistic link.
type Model struct {
	Version     string `json:"version"`
	Objective   string `json:"objective"`
	Trees       []Tree `json:"trees"`
	NumFeatures int    `json:"num_features"`

	baseMargin float64
}

// rawModel matches the artifact on disk. base_score is a string because
// some exports wrap the value in brackets ("[5E-1]"); normalization
// happens once here and nowhere downstream.
type rawModel struct {
	Version     string `json:"version"`
	Objective   string `json:"objective"`
	BaseScore   string `json:"base_score"`
	NumFeatures int    `json:"num_features"`
	Trees       []Tree `json:"trees"`
}

// LoadModel parses and validates a model artifact.
func LoadModel(data []byte) (*Model, error) {
	var raw rawModel
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "scoring: parse model artifact")
	}

	base, err := parseBaseScore(raw.BaseScore)
	if err != nil {
		return nil, err
	}
	if raw.Objective != "" && raw.Objective != "binary:logistic" {
		return nil, eris.Errorf("scoring: unsupported objective %q", raw.Objective)
	}
	if len(raw.Trees) == 0 {
		return nil, eris.New("scoring: model has no trees")
	}
	if raw.NumFeatures <= 0 {
		return nil, eris.New("scoring: model missing num_features")
	}

	m := &Model{
		Version:     raw.Version,
		Objective:   raw.Objective,
		Trees:       raw.Trees,
		NumFeatures: raw.NumFeatures,
		baseMargin:  math.Log(base / (1 - base)),
	}
	for ti, tree := range m.Trees {
		if err := validateTree(tree, raw.NumFeatures); err != nil {
			return nil, eris.Wrapf(err, "scoring: tree %d", ti)
		}
	}
	return m, nil
}

// parseBaseScore handles both plain values and the bracket-wrapped form
// emitted by some training exports.
func parseBaseScore(s string) (float64, error) {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimPrefix(trimmed, "[")
	trimmed = strings.TrimSuffix(trimmed, "]")
	if trimmed == "" {
		return 0, eris.New("scoring: model missing base_score")
	}
	base, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "scoring: parse base_score %q", s)
	}
	if base <= 0 || base >= 1 {
		return 0, eris.Errorf("scoring: base_score %v out of (0,1)", base)
	}
	return base, nil
}

func validateTree(t Tree, numFeatures int) error {
	if len(t.Nodes) == 0 {
		return eris.New("empty tree")
	}
	for i, n := range t.Nodes {
		if n.IsLeaf() {
			continue
		}
		if n.Feature >= numFeatures {
			return eris.Errorf("node %d: feature index %d out of range", i, n.Feature)
		}
		if n.Left < 0 || n.Left >= len(t.Nodes) || n.Right < 0 || n.Right >= len(t.Nodes) {
			return eris.Errorf("node %d: child index out of range", i)
		}
		if n.Left <= i || n.Right <= i {
			return eris.Errorf("node %d: child does not follow parent", i)
		}
		if n.Cover <= 0 {
			return eris.Errorf("node %d: non-positive cover", i)
		}
	}
	return nil
}

// Margin returns the untransformed ensemble output for one feature vector.
// missing[i] routes feature i down each split's default branch.
func (m *Model) Margin(vec []float64, missing []bool) float64 {
	margin := m.baseMargin
	for ti := range m.Trees {
		leaf := m.Trees[ti].traverse(vec, missing)
		margin += leaf.Leaf
	}
	return margin
}

// Predict returns the probability for one feature vector.
func (m *Model) Predict(vec []float64, missing []bool) float64 {
	return sigmoid(m.Margin(vec, missing))
}

// BaseMargin returns the ensemble's intercept in margin space.
func (m *Model) BaseMargin() float64 {
	return m.baseMargin
}

func (t Tree) traverse(vec []float64, missing []bool) Node {
	n := t.Nodes[0]
	for !n.IsLeaf() {
		if missing[n.Feature] {
			if n.DefaultLeft {
				n = t.Nodes[n.Left]
			} else {
				n = t.Nodes[n.Right]
			}
			continue
		}
		if vec[n.Feature] < n.Threshold {
			n = t.Nodes[n.Left]
		} else {
			n = t.Nodes[n.Right]
		}
	}
	return n
}

// GainImportance returns total split gain per feature index, normalized to
// sum to 1. Used by the fallback explainer when per-advisor attribution is
// rejected.
func (m *Model) GainImportance() []float64 {
	imp := make([]float64, m.NumFeatures)
	var total float64
	for _, tree := range m.Trees {
		for _, n := range tree.Nodes {
			if n.IsLeaf() {
				continue
			}
			imp[n.Feature] += n.Gain
			total += n.Gain
		}
	}
	if total > 0 {
		for i := range imp {
			imp[i] /= total
		}
	}
	return imp
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
