package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savvy-gtm/leadscore-cli/internal/model"
)

const testManifestJSON = `{
	"version": "v4.1-test",
	"final_features": ["tenure_months", "mobility_tier"],
	"categorical_mappings": {
		"mobility_tier": {"LOW": 0, "MODERATE": 1, "HIGH": 2}
	}
}`

func TestLoadManifest(t *testing.T) {
	t.Parallel()

	m, err := LoadManifest([]byte(testManifestJSON))
	require.NoError(t, err)
	assert.Equal(t, []string{"tenure_months", "mobility_tier"}, m.Features)
	assert.Equal(t, "tenure_months", m.FeatureName(0))
	assert.Equal(t, "", m.FeatureName(5))
}

func TestLoadManifest_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		json string
	}{
		{"no features", `{"final_features": []}`},
		{"duplicate feature", `{"final_features": ["tenure_months", "tenure_months"]}`},
		{"unknown numeric feature", `{"final_features": ["aum_growth_rate"]}`},
		{
			"unknown categorical feature",
			`{"final_features": ["zip_bucket"], "categorical_mappings": {"zip_bucket": {"A": 0}}}`,
		},
		{
			"mapping for non-feature",
			`{"final_features": ["tenure_months"], "categorical_mappings": {"mobility_tier": {"LOW": 0}}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadManifest([]byte(tt.json))
			assert.Error(t, err)
		})
	}
}

func TestManifestVector(t *testing.T) {
	t.Parallel()

	m, err := LoadManifest([]byte(testManifestJSON))
	require.NoError(t, err)

	t.Run("mapped categorical", func(t *testing.T) {
		t.Parallel()
		r := &model.FeatureRecord{TenureMonths: 36, MobilityTier: model.MobilityHigh}
		vec, missing := m.Vector(r)
		assert.Equal(t, []float64{36, 2}, vec)
		assert.Equal(t, []bool{false, false}, missing)
	})

	t.Run("unmapped categorical level is missing not zero", func(t *testing.T) {
		t.Parallel()
		r := &model.FeatureRecord{TenureMonths: 36, MobilityTier: "EXTREME"}
		vec, missing := m.Vector(r)
		assert.Equal(t, []float64{36, 0}, vec)
		assert.Equal(t, []bool{false, true}, missing)
	})

	t.Run("empty categorical is missing", func(t *testing.T) {
		t.Parallel()
		r := &model.FeatureRecord{TenureMonths: 36}
		_, missing := m.Vector(r)
		assert.True(t, missing[1])
	})
}
