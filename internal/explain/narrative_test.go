package explain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/savvy-gtm/leadscore-cli/internal/model"
)

func TestNarrativeFor(t *testing.T) {
	t.Parallel()

	t.Run("direction picks the fragment", func(t *testing.T) {
		t.Parallel()
		got := narrativeFor(model.Explanation{Top: []model.Contribution{
			{Feature: "moves_3yr", Value: 0.5},
			{Feature: "firm_net_change_12mo", Value: -0.2},
		}})
		assert.Contains(t, got, "multiple firm changes in the last three years")
		assert.Contains(t, got, "current firm held steady or grew")
		assert.Contains(t, got, "Key signals: ")
	})

	t.Run("interaction feature leads the narrative", func(t *testing.T) {
		t.Parallel()
		got := narrativeFor(model.Explanation{Top: []model.Contribution{
			{Feature: "short_tenure_x_high_mobility", Value: 0.8},
			{Feature: "moves_3yr", Value: 0.3},
		}})
		assert.Contains(t, got, "Recently joined yet historically mobile")
		assert.Contains(t, got, "Also: ")
	})

	t.Run("negative interaction is not a story", func(t *testing.T) {
		t.Parallel()
		got := narrativeFor(model.Explanation{Top: []model.Contribution{
			{Feature: "mobility_x_heavy_bleeding", Value: -0.1},
		}})
		assert.NotContains(t, got, "losing reps fast")
	})

	t.Run("unknown feature gets generic fragment", func(t *testing.T) {
		t.Parallel()
		got := narrativeFor(model.Explanation{Top: []model.Contribution{
			{Feature: "mystery_feature", Value: 0.4},
		}})
		assert.Contains(t, got, "mystery feature")
		assert.Contains(t, got, "positive signal")
	})

	t.Run("empty explanation renders empty", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, narrativeFor(model.Explanation{}))
	})
}

func TestClauses_CoverManifestFeatures(t *testing.T) {
	t.Parallel()

	// Every feature the input schema can produce has a tailored fragment
	// or a special-case narrative.
	probe := &model.FeatureRecord{}
	for name := range clauses {
		assert.True(t, probe.HasFeature(name), "clause for unknown feature %s", name)
	}
	for name := range interactionNarratives {
		assert.True(t, probe.HasFeature(name), "narrative for unknown feature %s", name)
	}
}
