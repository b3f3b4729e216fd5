package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/savvy-gtm/leadscore-cli/internal/artifact"
	"github.com/savvy-gtm/leadscore-cli/internal/featurestore"
	"github.com/savvy-gtm/leadscore-cli/internal/leadstore"
	"github.com/savvy-gtm/leadscore-cli/internal/model"
	"github.com/savvy-gtm/leadscore-cli/internal/resilience"
	"github.com/savvy-gtm/leadscore-cli/internal/scoring"
	"github.com/savvy-gtm/leadscore-cli/internal/tier"
)

// openStore connects to the warehouse. Caller closes.
func openStore(ctx context.Context) (*leadstore.Store, error) {
	store, err := leadstore.NewPostgres(ctx, cfg.Warehouse.DatabaseURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "connect warehouse")
	}
	return store, nil
}

// leadRunMeta stamps a new run with the thresholds that produced it.
func leadRunMeta(runID, modelVersion string) leadstore.RunMeta {
	return leadstore.RunMeta{
		ID:           runID,
		ConfigHash:   cfg.Hash(),
		ModelVersion: modelVersion,
	}
}

// artifacts bundles everything loaded from the model artifact directory.
type artifacts struct {
	provider   *scoring.Provider
	table      *tier.Table
	classifier *tier.Classifier
}

// loadArtifacts opens the artifact directory and loads the model, feature
// manifest, optional calibrator, and tier table.
func loadArtifacts() (*artifacts, error) {
	repo, err := artifact.NewDir(cfg.Artifacts.Dir)
	if err != nil {
		return nil, err
	}

	provider, err := scoring.NewProvider(repo, cfg.Artifacts)
	if err != nil {
		return nil, err
	}

	table := tier.DefaultTable()
	if key := cfg.Artifacts.TierTableKey; key != "" {
		data, err := repo.Get(key)
		if err != nil {
			return nil, err
		}
		table, err = tier.LoadTable(data)
		if err != nil {
			return nil, err
		}
	}

	return &artifacts{
		provider:   provider,
		table:      table,
		classifier: tier.NewClassifier(cfg.Classifier, table),
	}, nil
}

// cohort is the classified monthly snapshot.
type cohort struct {
	// Size counts every valid row fetched, before exclusions.
	Size int

	Excluded map[string]int

	// Eligible advisors carry a tier assignment and proceed to scoring.
	Eligible    []*model.FeatureRecord
	Assignments map[int64]model.TierAssignment
}

// fetchResult pairs a snapshot with its skipped-row count for retry.
type fetchResult struct {
	records []*model.FeatureRecord
	skipped int
}

// classifyCohort fetches the feature snapshot and runs every advisor
// through the rule classifier. The fetch retries on transient database
// errors.
func classifyCohort(ctx context.Context, store *leadstore.Store, cls *tier.Classifier) (*cohort, error) {
	fs := featurestore.New(store.Pool(), cfg.Warehouse)

	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("warehouse", "fetch_cohort")
	fetched, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (fetchResult, error) {
		records, skipped, err := fs.FetchCohort(ctx)
		return fetchResult{records: records, skipped: skipped}, err
	})
	if err != nil {
		return nil, err
	}
	records, skipped := fetched.records, fetched.skipped
	if skipped > 0 {
		zap.L().Warn("rows skipped for missing identity", zap.Int("skipped", skipped))
	}

	c := &cohort{
		Size:        len(records),
		Excluded:    make(map[string]int),
		Assignments: make(map[int64]model.TierAssignment, len(records)),
	}
	for _, r := range records {
		a := cls.Classify(r)
		if a.Excluded() {
			c.Excluded[a.ExclusionReason]++
			continue
		}
		c.Eligible = append(c.Eligible, r)
		c.Assignments[r.AdvisorCRD] = a
	}

	zap.L().Info("cohort classified",
		zap.Int("cohort", c.Size),
		zap.Int("eligible", len(c.Eligible)),
		zap.Int("excluded", c.Size-len(c.Eligible)))
	return c, nil
}
