package explain

import (
	"context"
	"math"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/savvy-gtm/leadscore-cli/internal/model"
	"github.com/savvy-gtm/leadscore-cli/internal/scoring"
)

// topN is how many contributions an explanation carries.
const topN = 3

// Explainer produces explanations for a scored cohort.
type Explainer struct {
	model     *scoring.Model
	manifest  *scoring.Manifest
	att       *attributor
	batchSize int
}

// New builds an Explainer over loaded scoring artifacts.
func New(m *scoring.Model, manifest *scoring.Manifest, batchSize int) *Explainer {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &Explainer{
		model:     m,
		manifest:  manifest,
		att:       newAttributor(m),
		batchSize: batchSize,
	}
}

// Result is the cohort-level outcome: per-advisor explanations plus which
// strategy produced them.
type Result struct {
	Explanations map[int64]model.Explanation
	Strategy     string
	Degraded     bool
}

// ExplainCohort attributes every advisor's score to its features. When the
// attribution output fails validation the whole cohort falls back to the
// deterministic global-importance strategy; mixing strategies within one
// list would make explanations incomparable across rows. Narratives are
// rendered only for advisors at or above narrativeMinPercentile, and only
// from trusted attribution.
func (e *Explainer) ExplainCohort(
	ctx context.Context,
	records []*model.FeatureRecord,
	scores map[int64]model.ModelScore,
	narrativeMinPercentile int,
) (*Result, error) {
	if len(records) == 0 {
		return &Result{Explanations: map[int64]model.Explanation{}, Strategy: model.StrategyNone}, nil
	}

	vecs := make([][]float64, len(records))
	missing := make([][]bool, len(records))
	for i, r := range records {
		vecs[i], missing[i] = e.manifest.Vector(r)
	}

	contribs, err := e.attributeAll(ctx, vecs, missing)
	if err != nil {
		return nil, err
	}

	tops := make([][]model.Contribution, len(records))
	top1 := make([]string, len(records))
	for i := range records {
		tops[i] = e.topContributions(contribs[i])
		if len(tops[i]) > 0 {
			top1[i] = tops[i][0].Feature
		}
	}

	if err := validateAttribution(top1, len(records)); err != nil {
		zap.L().Warn("attribution rejected, using global importance fallback",
			zap.Error(err),
			zap.Int("cohort", len(records)))
		return e.globalFallback(records, vecs), nil
	}

	out := make(map[int64]model.Explanation, len(records))
	for i, r := range records {
		expl := model.Explanation{Top: tops[i], Strategy: model.StrategyAttribution}
		if scores[r.AdvisorCRD].Percentile >= narrativeMinPercentile {
			expl.Narrative = narrativeFor(expl)
		}
		out[r.AdvisorCRD] = expl
	}
	return &Result{Explanations: out, Strategy: model.StrategyAttribution}, nil
}

func (e *Explainer) attributeAll(ctx context.Context, vecs [][]float64, missing [][]bool) ([][]float64, error) {
	contribs := make([][]float64, len(vecs))
	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < len(vecs); start += e.batchSize {
		end := min(start+e.batchSize, len(vecs))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				contribs[i] = e.att.contributions(vecs[i], missing[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return contribs, nil
}

// topContributions picks the topN contributions by magnitude. Ties break
// on feature index so output is stable across runs.
func (e *Explainer) topContributions(contrib []float64) []model.Contribution {
	idx := make([]int, 0, len(contrib))
	for i, v := range contrib {
		if v != 0 {
			idx = append(idx, i)
		}
	}
	sort.Slice(idx, func(a, b int) bool {
		va, vb := math.Abs(contrib[idx[a]]), math.Abs(contrib[idx[b]])
		if va != vb {
			return va > vb
		}
		return idx[a] < idx[b]
	})
	if len(idx) > topN {
		idx = idx[:topN]
	}
	top := make([]model.Contribution, len(idx))
	for i, fi := range idx {
		top[i] = model.Contribution{Feature: e.manifest.FeatureName(fi), Value: contrib[fi]}
	}
	return top
}

// globalFallback ranks features by global split gain scaled by each
// advisor's standardized feature value. It is fully deterministic and
// never produces narratives; the run report flags the degradation.
func (e *Explainer) globalFallback(records []*model.FeatureRecord, vecs [][]float64) *Result {
	imp := e.model.GainImportance()

	means := make([]float64, e.model.NumFeatures)
	stds := make([]float64, e.model.NumFeatures)
	col := make([]float64, len(vecs))
	for f := 0; f < e.model.NumFeatures; f++ {
		for i := range vecs {
			col[i] = vecs[i][f]
		}
		means[f], stds[f] = stat.MeanStdDev(col, nil)
	}

	anySignal := false
	out := make(map[int64]model.Explanation, len(records))
	for i, r := range records {
		contrib := make([]float64, e.model.NumFeatures)
		for f := range contrib {
			if imp[f] == 0 || stds[f] == 0 {
				continue
			}
			contrib[f] = imp[f] * (vecs[i][f] - means[f]) / stds[f]
		}
		top := e.topContributions(contrib)
		if len(top) > 0 {
			anySignal = true
		}
		out[r.AdvisorCRD] = model.Explanation{
			Top:      top,
			Strategy: model.StrategyGlobal,
			Degraded: true,
		}
	}

	if !anySignal {
		zap.L().Warn("global importance fallback produced no signal, explanations disabled")
		for crd := range out {
			out[crd] = model.Explanation{Strategy: model.StrategyNone, Degraded: true}
		}
		return &Result{Explanations: out, Strategy: model.StrategyNone, Degraded: true}
	}
	return &Result{Explanations: out, Strategy: model.StrategyGlobal, Degraded: true}
}

