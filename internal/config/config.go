// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Warehouse  WarehouseConfig  `yaml:"warehouse" mapstructure:"warehouse"`
	Artifacts  ArtifactsConfig  `yaml:"artifacts" mapstructure:"artifacts"`
	Scoring    ScoringConfig    `yaml:"scoring" mapstructure:"scoring"`
	Ranking    RankingConfig    `yaml:"ranking" mapstructure:"ranking"`
	Allocation AllocationConfig `yaml:"allocation" mapstructure:"allocation"`
	Classifier ClassifierConfig `yaml:"classifier" mapstructure:"classifier"`
	Export     ExportConfig     `yaml:"export" mapstructure:"export"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// WarehouseConfig configures the feature-store and lead-store database.
type WarehouseConfig struct {
	DatabaseURL   string `yaml:"database_url" mapstructure:"database_url"`
	FeaturesTable string `yaml:"features_table" mapstructure:"features_table"`
	QueryTimeout  int    `yaml:"query_timeout_secs" mapstructure:"query_timeout_secs"`
}

// ArtifactsConfig locates the model artifacts consumed by the score provider.
type ArtifactsConfig struct {
	Dir           string `yaml:"dir" mapstructure:"dir"`
	ModelKey      string `yaml:"model_key" mapstructure:"model_key"`
	ManifestKey   string `yaml:"manifest_key" mapstructure:"manifest_key"`
	CalibratorKey string `yaml:"calibrator_key" mapstructure:"calibrator_key"`
	TierTableKey  string `yaml:"tier_table_key" mapstructure:"tier_table_key"`
}

// ScoringConfig configures cohort scoring behavior.
type ScoringConfig struct {
	// FailureTolerancePct aborts the run when more than this share of the
	// cohort fails row-level scoring (signals a systemic upstream problem).
	FailureTolerancePct float64 `yaml:"failure_tolerance_pct" mapstructure:"failure_tolerance_pct"`

	// ExplainBatchSize bounds the per-goroutine batch during attribution.
	ExplainBatchSize int `yaml:"explain_batch_size" mapstructure:"explain_batch_size"`
}

// RankingConfig is the immutable threshold set for the hybrid ranker. It is
// passed explicitly into the ranker; nothing reads these from ambient state.
type RankingConfig struct {
	// DeprioritizePercentile cuts every advisor below this model
	// percentile regardless of rule tier.
	DeprioritizePercentile int `yaml:"deprioritize_percentile" mapstructure:"deprioritize_percentile"`

	// DisagreementPercentile cuts high-priority-tier advisors below this
	// percentile: the rule tier is not trusted when the model strongly
	// disagrees.
	DisagreementPercentile int `yaml:"disagreement_percentile" mapstructure:"disagreement_percentile"`

	// BackfillPercentile promotes STANDARD advisors at or above this
	// percentile into the synthetic STANDARD_HIGH_V4 tier.
	BackfillPercentile int `yaml:"backfill_percentile" mapstructure:"backfill_percentile"`

	// HighPriorityTiers is the tier set subject to the disagreement filter.
	HighPriorityTiers []string `yaml:"high_priority_tiers" mapstructure:"high_priority_tiers"`

	// GlobalCap truncates the sorted list before allocation. 0 disables.
	GlobalCap int `yaml:"global_cap" mapstructure:"global_cap"`
}

// AllocationConfig configures SGA assignment.
type AllocationConfig struct {
	// Owners are SGA identifiers. Tie-breaks follow sorted id order, so
	// the outcome does not depend on the order owners are listed here.
	Owners        []string `yaml:"owners" mapstructure:"owners"`
	QuotaPerOwner int      `yaml:"quota_per_owner" mapstructure:"quota_per_owner"`

	// GroupingKeyField selects the attribute that forces same-owner
	// assignment. Only "firm_crd" is recognized today.
	GroupingKeyField string `yaml:"grouping_key_field" mapstructure:"grouping_key_field"`
}

// ClassifierConfig configures the global exclusion predicates.
type ClassifierConfig struct {
	ExcludedTitlePatterns []string `yaml:"excluded_title_patterns" mapstructure:"excluded_title_patterns"`
	ExcludedFirmPatterns  []string `yaml:"excluded_firm_patterns" mapstructure:"excluded_firm_patterns"`
	ExcludedFirmCRDs      []int64  `yaml:"excluded_firm_crds" mapstructure:"excluded_firm_crds"`
	MaxTurnoverPct        float64  `yaml:"max_turnover_pct" mapstructure:"max_turnover_pct"`
	MinDiscretionaryRatio float64  `yaml:"min_discretionary_ratio" mapstructure:"min_discretionary_ratio"`
}

// ExportConfig configures list output.
type ExportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID  string  `yaml:"client_id" mapstructure:"client_id"`
	Username  string  `yaml:"username" mapstructure:"username"`
	KeyPath   string  `yaml:"key_path" mapstructure:"key_path"`
	LoginURL  string  `yaml:"login_url" mapstructure:"login_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	BatchSize int     `yaml:"batch_size" mapstructure:"batch_size"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADSCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("warehouse.features_table", "ml_features.v4_prospect_features")
	v.SetDefault("warehouse.query_timeout_secs", 120)
	v.SetDefault("artifacts.dir", "artifacts")
	v.SetDefault("artifacts.model_key", "model.json")
	v.SetDefault("artifacts.manifest_key", "final_features.json")
	v.SetDefault("artifacts.calibrator_key", "isotonic_calibrator.json")
	v.SetDefault("artifacts.tier_table_key", "")
	v.SetDefault("scoring.failure_tolerance_pct", 5.0)
	v.SetDefault("scoring.explain_batch_size", 1000)
	v.SetDefault("ranking.deprioritize_percentile", 20)
	v.SetDefault("ranking.disagreement_percentile", 70)
	v.SetDefault("ranking.backfill_percentile", 80)
	v.SetDefault("ranking.high_priority_tiers", []string{
		"TIER_1A_PRIME_MOVER_CFP",
		"TIER_1B_PRIME_MOVER_SERIES65",
		"TIER_1_PRIME_MOVER",
		"TIER_1F_HV_WEALTH_BLEEDER",
	})
	v.SetDefault("ranking.global_cap", 0)
	v.SetDefault("allocation.quota_per_owner", 200)
	v.SetDefault("allocation.grouping_key_field", "firm_crd")
	v.SetDefault("classifier.max_turnover_pct", 100)
	v.SetDefault("classifier.min_discretionary_ratio", 0.5)
	v.SetDefault("classifier.excluded_title_patterns", DefaultExcludedTitlePatterns())
	v.SetDefault("classifier.excluded_firm_patterns", DefaultExcludedFirmPatterns())
	v.SetDefault("export.dir", "exports")
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.rate_limit", 10)
	v.SetDefault("salesforce.batch_size", 200)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings a command depends on are present and
// internally consistent. Recognized modes: warehouse, score, list, sync.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "warehouse":
		errs = append(errs, validateWarehouse(c.Warehouse)...)
	case "score":
		errs = append(errs, validateWarehouse(c.Warehouse)...)
		if c.Artifacts.Dir == "" {
			errs = append(errs, "artifacts.dir is required")
		}
		if c.Artifacts.ModelKey == "" || c.Artifacts.ManifestKey == "" {
			errs = append(errs, "artifacts.model_key and artifacts.manifest_key are required")
		}
		if c.Scoring.FailureTolerancePct < 0 || c.Scoring.FailureTolerancePct > 100 {
			errs = append(errs, "scoring.failure_tolerance_pct must be between 0 and 100")
		}
	case "list":
		errs = append(errs, validateWarehouse(c.Warehouse)...)
		errs = append(errs, validateRanking(c.Ranking)...)
		errs = append(errs, validateAllocation(c.Allocation)...)
	case "sync":
		if c.Salesforce.ClientID == "" {
			errs = append(errs, "salesforce.client_id is required (LEADSCORE_SALESFORCE_CLIENT_ID)")
		}
		if c.Salesforce.Username == "" {
			errs = append(errs, "salesforce.username is required")
		}
		if c.Salesforce.KeyPath == "" {
			errs = append(errs, "salesforce.key_path is required")
		}
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateWarehouse(w WarehouseConfig) []string {
	var errs []string
	if w.DatabaseURL == "" {
		errs = append(errs, "warehouse.database_url is required (LEADSCORE_WAREHOUSE_DATABASE_URL)")
	}
	if w.FeaturesTable == "" {
		errs = append(errs, "warehouse.features_table is required")
	}
	return errs
}

func validateRanking(r RankingConfig) []string {
	var errs []string
	for _, p := range []struct {
		name  string
		value int
	}{
		{"ranking.deprioritize_percentile", r.DeprioritizePercentile},
		{"ranking.disagreement_percentile", r.DisagreementPercentile},
		{"ranking.backfill_percentile", r.BackfillPercentile},
	} {
		if p.value < 0 || p.value > 100 {
			errs = append(errs, fmt.Sprintf("%s must be between 0 and 100", p.name))
		}
	}
	if r.DisagreementPercentile < r.DeprioritizePercentile {
		errs = append(errs, "ranking.disagreement_percentile must be >= deprioritize_percentile")
	}
	if r.GlobalCap < 0 {
		errs = append(errs, "ranking.global_cap must be >= 0")
	}
	return errs
}

func validateAllocation(a AllocationConfig) []string {
	var errs []string
	if len(a.Owners) == 0 {
		errs = append(errs, "allocation.owners must not be empty")
	}
	seen := make(map[string]bool, len(a.Owners))
	for _, o := range a.Owners {
		if o == "" {
			errs = append(errs, "allocation.owners must not contain empty ids")
			continue
		}
		if seen[o] {
			errs = append(errs, fmt.Sprintf("allocation.owners contains duplicate id %q", o))
		}
		seen[o] = true
	}
	if a.QuotaPerOwner <= 0 {
		errs = append(errs, "allocation.quota_per_owner must be > 0")
	}
	if a.GroupingKeyField != "" && a.GroupingKeyField != "firm_crd" {
		errs = append(errs, fmt.Sprintf("allocation.grouping_key_field %q is not recognized", a.GroupingKeyField))
	}
	return errs
}

// Hash returns a short SHA-256 of the ranking-relevant configuration,
// stamped on persisted runs so a list can be tied to the exact thresholds
// that produced it.
func (c *Config) Hash() string {
	data, err := json.Marshal(struct {
		Ranking    RankingConfig
		Allocation AllocationConfig
		Classifier ClassifierConfig
	}{c.Ranking, c.Allocation, c.Classifier})
	if err != nil {
		return ""
	}
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:16])
}

// DefaultExcludedTitlePatterns returns the job-title substrings (matched
// upper case) that disqualify an advisor: support staff, operations,
// insurance, and C-suite roles without a portable book.
func DefaultExcludedTitlePatterns() []string {
	return []string{
		"FINANCIAL SOLUTIONS ADVISOR",
		"PARAPLANNER",
		"ASSOCIATE ADVISOR",
		"OPERATIONS",
		"WHOLESALER",
		"COMPLIANCE",
		"ASSISTANT",
		"INSURANCE",
		"CHIEF FINANCIAL OFFICER",
		"CFO",
		"CHIEF INVESTMENT OFFICER",
		"CIO",
		"VICE PRESIDENT",
		"VP ",
	}
}

// DefaultExcludedFirmPatterns returns firm-name substrings (matched upper
// case) for wirehouses, broker-dealers, and insurance shops that are never
// recruiting targets.
func DefaultExcludedFirmPatterns() []string {
	return []string{
		"MERRILL LYNCH",
		"MORGAN STANLEY",
		"WELLS FARGO",
		"UBS ",
		"EDWARD JONES",
		"NORTHWESTERN MUTUAL",
		"NEW YORK LIFE",
		"MASSMUTUAL",
		"PRUDENTIAL",
		"AMERIPRISE",
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
