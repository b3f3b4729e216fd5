package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Warehouse: WarehouseConfig{
			DatabaseURL:   "postgres://localhost:5432/leads",
			FeaturesTable: "ml_features.v4_prospect_features",
			QueryTimeout:  120,
		},
		Artifacts: ArtifactsConfig{
			Dir:         "artifacts",
			ModelKey:    "model.json",
			ManifestKey: "final_features.json",
		},
		Scoring: ScoringConfig{
			FailureTolerancePct: 5,
			ExplainBatchSize:    1000,
		},
		Ranking: RankingConfig{
			DeprioritizePercentile: 20,
			DisagreementPercentile: 70,
			BackfillPercentile:     80,
			HighPriorityTiers:      []string{"TIER_1_PRIME_MOVER"},
		},
		Allocation: AllocationConfig{
			Owners:           []string{"sga-01", "sga-02"},
			QuotaPerOwner:    200,
			GroupingKeyField: "firm_crd",
		},
		Salesforce: SalesforceConfig{
			ClientID: "client",
			Username: "user@example.com",
			KeyPath:  "/etc/sf/server.key",
		},
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	t.Run("valid config passes all modes", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		for _, mode := range []string{"warehouse", "score", "list", "sync"} {
			assert.NoError(t, cfg.Validate(mode), "mode %s", mode)
		}
	})

	t.Run("unknown mode", func(t *testing.T) {
		t.Parallel()
		err := validConfig().Validate("bogus")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown validation mode")
	})

	t.Run("missing database url", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Warehouse.DatabaseURL = ""
		err := cfg.Validate("score")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "warehouse.database_url")
	})

	t.Run("missing artifacts only fails score mode", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Artifacts.Dir = ""
		assert.Error(t, cfg.Validate("score"))
		assert.NoError(t, cfg.Validate("list"))
	})

	t.Run("failure tolerance out of range", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Scoring.FailureTolerancePct = 150
		err := cfg.Validate("score")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failure_tolerance_pct")
	})

	t.Run("sync mode requires salesforce credentials", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Salesforce.ClientID = ""
		cfg.Salesforce.KeyPath = ""
		err := cfg.Validate("sync")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "salesforce.client_id")
		assert.Contains(t, err.Error(), "salesforce.key_path")
	})
}

func TestValidateRanking(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*RankingConfig)
		wantErr string
	}{
		{
			name:   "defaults valid",
			mutate: func(r *RankingConfig) {},
		},
		{
			name:    "percentile above 100",
			mutate:  func(r *RankingConfig) { r.BackfillPercentile = 101 },
			wantErr: "backfill_percentile",
		},
		{
			name:    "negative percentile",
			mutate:  func(r *RankingConfig) { r.DeprioritizePercentile = -1 },
			wantErr: "deprioritize_percentile",
		},
		{
			name: "disagreement below deprioritize",
			mutate: func(r *RankingConfig) {
				r.DeprioritizePercentile = 50
				r.DisagreementPercentile = 30
			},
			wantErr: "disagreement_percentile must be >=",
		},
		{
			name:    "negative cap",
			mutate:  func(r *RankingConfig) { r.GlobalCap = -5 },
			wantErr: "global_cap",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(&cfg.Ranking)
			err := cfg.Validate("list")
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateAllocation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*AllocationConfig)
		wantErr string
	}{
		{
			name:    "no owners",
			mutate:  func(a *AllocationConfig) { a.Owners = nil },
			wantErr: "owners must not be empty",
		},
		{
			name:    "duplicate owner",
			mutate:  func(a *AllocationConfig) { a.Owners = []string{"sga-01", "sga-01"} },
			wantErr: "duplicate id",
		},
		{
			name:    "empty owner id",
			mutate:  func(a *AllocationConfig) { a.Owners = []string{"sga-01", ""} },
			wantErr: "empty ids",
		},
		{
			name:    "zero quota",
			mutate:  func(a *AllocationConfig) { a.QuotaPerOwner = 0 },
			wantErr: "quota_per_owner",
		},
		{
			name:    "unknown grouping field",
			mutate:  func(a *AllocationConfig) { a.GroupingKeyField = "zip_code" },
			wantErr: "grouping_key_field",
		},
		{
			name:   "empty grouping field disables grouping",
			mutate: func(a *AllocationConfig) { a.GroupingKeyField = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(&cfg.Allocation)
			err := cfg.Validate("list")
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHash(t *testing.T) {
	t.Parallel()

	a := validConfig()
	b := validConfig()
	assert.Equal(t, a.Hash(), b.Hash())
	assert.Len(t, a.Hash(), 32)

	// Ranking thresholds feed the hash.
	b.Ranking.BackfillPercentile = 85
	assert.NotEqual(t, a.Hash(), b.Hash())

	// Connection settings do not.
	c := validConfig()
	c.Warehouse.DatabaseURL = "postgres://other:5432/leads"
	assert.Equal(t, a.Hash(), c.Hash())
}

func TestDefaultExclusionPatterns(t *testing.T) {
	t.Parallel()

	for _, p := range DefaultExcludedTitlePatterns() {
		assert.Equal(t, strings.ToUpper(p), p, "title patterns are matched upper case")
	}
	for _, p := range DefaultExcludedFirmPatterns() {
		assert.Equal(t, strings.ToUpper(p), p, "firm patterns are matched upper case")
	}
	assert.Contains(t, DefaultExcludedTitlePatterns(), "COMPLIANCE")
	assert.Contains(t, DefaultExcludedFirmPatterns(), "EDWARD JONES")
}
