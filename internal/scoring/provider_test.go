package scoring

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savvy-gtm/leadscore-cli/internal/artifact"
	"github.com/savvy-gtm/leadscore-cli/internal/config"
	"github.com/savvy-gtm/leadscore-cli/internal/model"
)

const testCalibratorJSON = `{"X_thresholds": [0.2, 0.8], "y_thresholds": [0.02, 0.2]}`

func writeArtifacts(t *testing.T, files map[string]string) artifact.Repo {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	repo, err := artifact.NewDir(dir)
	require.NoError(t, err)
	return repo
}

func artifactsConfig() config.ArtifactsConfig {
	return config.ArtifactsConfig{
		ModelKey:      "model.json",
		ManifestKey:   "final_features.json",
		CalibratorKey: "isotonic_calibrator.json",
	}
}

func TestNewProvider(t *testing.T) {
	t.Parallel()

	t.Run("full artifact set", func(t *testing.T) {
		t.Parallel()
		repo := writeArtifacts(t, map[string]string{
			"model.json":               testModelJSON,
			"final_features.json":      testManifestJSON,
			"isotonic_calibrator.json": testCalibratorJSON,
		})
		p, err := NewProvider(repo, artifactsConfig())
		require.NoError(t, err)
		assert.True(t, p.Calibrated())
		assert.Equal(t, 2, p.Model().NumFeatures)
	})

	t.Run("calibrator optional", func(t *testing.T) {
		t.Parallel()
		repo := writeArtifacts(t, map[string]string{
			"model.json":          testModelJSON,
			"final_features.json": testManifestJSON,
		})
		p, err := NewProvider(repo, artifactsConfig())
		require.NoError(t, err)
		assert.False(t, p.Calibrated())
	})

	t.Run("missing model fails", func(t *testing.T) {
		t.Parallel()
		repo := writeArtifacts(t, map[string]string{
			"final_features.json": testManifestJSON,
		})
		_, err := NewProvider(repo, artifactsConfig())
		assert.Error(t, err)
	})

	t.Run("manifest shorter than model expects", func(t *testing.T) {
		t.Parallel()
		repo := writeArtifacts(t, map[string]string{
			"model.json":          testModelJSON,
			"final_features.json": `{"final_features": ["tenure_months"]}`,
		})
		_, err := NewProvider(repo, artifactsConfig())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model expects")
	})

	t.Run("corrupt calibrator fails", func(t *testing.T) {
		t.Parallel()
		repo := writeArtifacts(t, map[string]string{
			"model.json":               testModelJSON,
			"final_features.json":      testManifestJSON,
			"isotonic_calibrator.json": `{"X_thresholds": [0.5, 0.2], "y_thresholds": [0.1, 0.2]}`,
		})
		_, err := NewProvider(repo, artifactsConfig())
		assert.Error(t, err)
	})
}

func TestScoreCohort(t *testing.T) {
	t.Parallel()

	repo := writeArtifacts(t, map[string]string{
		"model.json":               testModelJSON,
		"final_features.json":      testManifestJSON,
		"isotonic_calibrator.json": testCalibratorJSON,
	})
	p, err := NewProvider(repo, artifactsConfig())
	require.NoError(t, err)

	records := []*model.FeatureRecord{
		{AdvisorCRD: 1, TenureMonths: 24, MobilityTier: model.MobilityHigh},
		{AdvisorCRD: 2, TenureMonths: 24, MobilityTier: model.MobilityLow},
		{AdvisorCRD: 3, TenureMonths: 60, MobilityTier: model.MobilityLow},
	}

	scores, err := p.ScoreCohort(records, 5)
	require.NoError(t, err)
	require.Len(t, scores, 3)

	byCRD := make(map[int64]model.ModelScore, len(scores))
	for _, s := range scores {
		byCRD[s.AdvisorCRD] = s
	}

	// Short tenure plus high mobility outscores short tenure alone, which
	// outscores long tenure.
	assert.Greater(t, byCRD[1].Probability, byCRD[2].Probability)
	assert.Greater(t, byCRD[2].Probability, byCRD[3].Probability)

	// Calibration preserves ordering, so percentiles follow probability.
	assert.Equal(t, 100, byCRD[1].Percentile)
	assert.Greater(t, byCRD[2].Percentile, byCRD[3].Percentile)

	for _, s := range scores {
		assert.GreaterOrEqual(t, s.Calibrated, 0.0)
		assert.LessOrEqual(t, s.Calibrated, 1.0)
	}
}

func TestScoreCohort_EmptyCohort(t *testing.T) {
	t.Parallel()

	repo := writeArtifacts(t, map[string]string{
		"model.json":          testModelJSON,
		"final_features.json": testManifestJSON,
	})
	p, err := NewProvider(repo, artifactsConfig())
	require.NoError(t, err)

	scores, err := p.ScoreCohort(nil, 5)
	require.NoError(t, err)
	assert.Empty(t, scores)
}
