package explain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savvy-gtm/leadscore-cli/internal/scoring"
)

// explainTestModelJSON splits once per tree on three different features so
// attribution is easy to verify by hand.
const explainTestModelJSON = `{
	"version": "explain-test",
	"base_score": "0.5",
	"num_features": 3,
	"trees": [
		{"nodes": [
			{"feature": 0, "threshold": 48, "left": 1, "right": 2, "default_left": true, "cover": 100, "gain": 10},
			{"feature": -1, "leaf": 0.3, "cover": 50},
			{"feature": -1, "leaf": -0.3, "cover": 50}
		]},
		{"nodes": [
			{"feature": 1, "threshold": 1.5, "left": 1, "right": 2, "default_left": true, "cover": 100, "gain": 6},
			{"feature": -1, "leaf": -0.4, "cover": 70},
			{"feature": -1, "leaf": 0.4, "cover": 30}
		]},
		{"nodes": [
			{"feature": 2, "threshold": -10, "left": 1, "right": 2, "default_left": false, "cover": 100, "gain": 4},
			{"feature": -1, "leaf": 0.5, "cover": 40},
			{"feature": -1, "leaf": -0.2, "cover": 60}
		]}
	]
}`

const explainTestManifestJSON = `{
	"final_features": ["tenure_months", "moves_3yr", "firm_net_change_12mo"]
}`

func loadExplainModel(t *testing.T) (*scoring.Model, *scoring.Manifest) {
	t.Helper()
	m, err := scoring.LoadModel([]byte(explainTestModelJSON))
	require.NoError(t, err)
	manifest, err := scoring.LoadManifest([]byte(explainTestManifestJSON))
	require.NoError(t, err)
	return m, manifest
}

func TestTreeExpectations(t *testing.T) {
	t.Parallel()
	m, _ := loadExplainModel(t)

	exp := treeExpectations(m.Trees[0])
	require.Len(t, exp, 3)
	assert.InDelta(t, 0, exp[0], 1e-12)
	assert.InDelta(t, 0.3, exp[1], 1e-12)
	assert.InDelta(t, -0.3, exp[2], 1e-12)

	// Tree 1: (70*-0.4 + 30*0.4) / 100
	exp = treeExpectations(m.Trees[1])
	assert.InDelta(t, -0.16, exp[0], 1e-12)

	// Tree 2: (40*0.5 + 60*-0.2) / 100
	exp = treeExpectations(m.Trees[2])
	assert.InDelta(t, 0.08, exp[0], 1e-12)
}

func TestContributions(t *testing.T) {
	t.Parallel()
	m, _ := loadExplainModel(t)
	att := newAttributor(m)

	t.Run("short tenure advisor", func(t *testing.T) {
		t.Parallel()
		contrib := att.contributions([]float64{24, 0, 0}, []bool{false, false, false})
		require.Len(t, contrib, 3)
		assert.InDelta(t, 0.3, contrib[0], 1e-12)
		assert.InDelta(t, -0.24, contrib[1], 1e-12)
		assert.InDelta(t, -0.28, contrib[2], 1e-12)
	})

	t.Run("contributions plus expectations equal margin", func(t *testing.T) {
		t.Parallel()
		vec := []float64{60, 3, -30}
		missing := []bool{false, false, false}
		contrib := att.contributions(vec, missing)

		var rootExp float64
		for _, tree := range m.Trees {
			rootExp += treeExpectations(tree)[0]
		}
		var total float64
		for _, c := range contrib {
			total += c
		}
		assert.InDelta(t, m.Margin(vec, missing), m.BaseMargin()+rootExp+total, 1e-12)
	})

	t.Run("missing feature follows default branch", func(t *testing.T) {
		t.Parallel()
		contrib := att.contributions([]float64{0, 0, 0}, []bool{true, false, false})
		// default_left on tree 0 lands in the 0.3 leaf.
		assert.InDelta(t, 0.3, contrib[0], 1e-12)
	})
}
