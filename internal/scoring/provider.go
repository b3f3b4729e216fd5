package scoring

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/savvy-gtm/leadscore-cli/internal/artifact"
	"github.com/savvy-gtm/leadscore-cli/internal/config"
	"github.com/savvy-gtm/leadscore-cli/internal/model"
)

// Provider wires the model, manifest, and optional calibrator into a
// cohort scorer. All artifact validation happens in NewProvider; a
// constructed Provider scores without further I/O.
type Provider struct {
	model      *Model
	manifest   *Manifest
	calibrator *Calibrator
}

// NewProvider loads and cross-validates the scoring artifacts. The
// calibrator is optional; when absent, calibrated values equal raw
// probabilities.
func NewProvider(repo artifact.Repo, cfg config.ArtifactsConfig) (*Provider, error) {
	modelData, err := repo.Get(cfg.ModelKey)
	if err != nil {
		return nil, err
	}
	m, err := LoadModel(modelData)
	if err != nil {
		return nil, err
	}

	manifestData, err := repo.Get(cfg.ManifestKey)
	if err != nil {
		return nil, err
	}
	manifest, err := LoadManifest(manifestData)
	if err != nil {
		return nil, err
	}
	if len(manifest.Features) != m.NumFeatures {
		return nil, eris.Errorf("scoring: manifest has %d features, model expects %d",
			len(manifest.Features), m.NumFeatures)
	}

	p := &Provider{model: m, manifest: manifest}
	if cfg.CalibratorKey != "" && repo.Exists(cfg.CalibratorKey) {
		calData, err := repo.Get(cfg.CalibratorKey)
		if err != nil {
			return nil, err
		}
		p.calibrator, err = LoadCalibrator(calData)
		if err != nil {
			return nil, err
		}
	} else {
		zap.L().Warn("no calibrator artifact, using raw probabilities",
			zap.String("key", cfg.CalibratorKey))
	}

	zap.L().Info("scoring artifacts loaded",
		zap.String("model_version", m.Version),
		zap.Int("trees", len(m.Trees)),
		zap.Int("features", m.NumFeatures),
		zap.Bool("calibrated", p.calibrator != nil))
	return p, nil
}

// Model returns the loaded ensemble for explainers.
func (p *Provider) Model() *Model {
	return p.model
}

// Manifest returns the loaded feature contract.
func (p *Provider) Manifest() *Manifest {
	return p.manifest
}

// Calibrated reports whether an isotonic calibrator is loaded.
func (p *Provider) Calibrated() bool {
	return p.calibrator != nil
}

// ScoreCohort scores every record and assigns cohort-relative percentiles.
// An empty cohort yields no scores and no error, so a run where every
// advisor was excluded still completes with an empty list.
// Records producing a non-finite probability are dropped and logged; the
// run aborts when the dropped share exceeds tolerancePct, since that
// points at a systemic feature or artifact problem rather than bad rows.
func (p *Provider) ScoreCohort(records []*model.FeatureRecord, tolerancePct float64) ([]model.ModelScore, error) {
	if len(records) == 0 {
		return nil, nil
	}

	scores := make([]model.ModelScore, 0, len(records))
	var failed int
	for _, r := range records {
		vec, missing := p.manifest.Vector(r)
		prob := p.model.Predict(vec, missing)
		if math.IsNaN(prob) || math.IsInf(prob, 0) || prob < 0 || prob > 1 {
			failed++
			zap.L().Warn("dropping unscorable advisor",
				zap.Int64("advisor_crd", r.AdvisorCRD),
				zap.Float64("probability", prob))
			continue
		}
		calibrated := prob
		if p.calibrator != nil {
			calibrated = p.calibrator.Apply(prob)
		}
		scores = append(scores, model.ModelScore{
			AdvisorCRD:  r.AdvisorCRD,
			Probability: prob,
			Calibrated:  calibrated,
		})
	}

	failedPct := float64(failed) * 100 / float64(len(records))
	if failedPct > tolerancePct {
		return nil, eris.Errorf("scoring: %d of %d advisors failed (%.1f%% > %.1f%% tolerance)",
			failed, len(records), failedPct, tolerancePct)
	}
	if failed > 0 {
		zap.L().Warn("cohort scored with drops",
			zap.Int("failed", failed),
			zap.Int("scored", len(scores)))
	}

	calibrated := make([]float64, len(scores))
	for i := range scores {
		calibrated[i] = scores[i].Calibrated
	}
	for i, pct := range Percentiles(calibrated) {
		scores[i].Percentile = pct
	}
	return scores, nil
}
