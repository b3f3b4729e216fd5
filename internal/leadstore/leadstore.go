// Package leadstore persists scoring runs, advisor scores, and generated
// lead lists to Postgres. Bulk writes go through the COPY protocol; a run
// row tracks status so interrupted runs are visible.
package leadstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/savvy-gtm/leadscore-cli/internal/model"
)

// Pool is the pgxpool surface the store uses; pgxmock satisfies it in
// tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Store implements run and list persistence over pgxpool.
type Store struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"insert_run":   `INSERT INTO scoring_runs (id, config_hash, model_version, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"complete_run": `UPDATE scoring_runs SET status = $1, report = $2, updated_at = $3 WHERE id = $4`,
	"fail_run":     `UPDATE scoring_runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
}

// NewPostgres creates a Store with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*Store, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "leadstore: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "leadstore: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "leadstore: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "leadstore: ping")
	}
	return &Store{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying pool for components that share the
// connection, like the feature store.
func (s *Store) Pool() Pool {
	return s.pool
}

const migration = `
CREATE TABLE IF NOT EXISTS scoring_runs (
	id            TEXT PRIMARY KEY,
	config_hash   TEXT NOT NULL,
	model_version TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'running',
	report        JSONB,
	error         TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS advisor_scores (
	run_id      TEXT NOT NULL REFERENCES scoring_runs(id),
	advisor_crd BIGINT NOT NULL,
	probability DOUBLE PRECISION NOT NULL,
	calibrated  DOUBLE PRECISION NOT NULL,
	percentile  INTEGER NOT NULL,
	PRIMARY KEY (run_id, advisor_crd)
);

CREATE TABLE IF NOT EXISTS lead_list_entries (
	run_id            TEXT NOT NULL REFERENCES scoring_runs(id),
	advisor_crd       BIGINT NOT NULL,
	firm_crd          BIGINT NOT NULL,
	first_name        TEXT NOT NULL DEFAULT '',
	last_name         TEXT NOT NULL DEFAULT '',
	email             TEXT NOT NULL DEFAULT '',
	phone             TEXT NOT NULL DEFAULT '',
	linkedin_url      TEXT NOT NULL DEFAULT '',
	job_title         TEXT NOT NULL DEFAULT '',
	firm_name         TEXT NOT NULL DEFAULT '',
	tier              TEXT NOT NULL,
	tier_rank         INTEGER NOT NULL,
	backfilled        BOOLEAN NOT NULL DEFAULT false,
	global_rank       INTEGER NOT NULL,
	owner_id          TEXT NOT NULL,
	owner_rank        INTEGER NOT NULL,
	grouping_override BOOLEAN NOT NULL DEFAULT false,
	percentile        INTEGER NOT NULL,
	calibrated        DOUBLE PRECISION NOT NULL,
	top_features      JSONB,
	narrative         TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, advisor_crd)
);

CREATE INDEX IF NOT EXISTS idx_scoring_runs_status ON scoring_runs(status);
CREATE INDEX IF NOT EXISTS idx_advisor_scores_run ON advisor_scores(run_id);
CREATE INDEX IF NOT EXISTS idx_lead_list_entries_run ON lead_list_entries(run_id);
CREATE INDEX IF NOT EXISTS idx_lead_list_entries_owner ON lead_list_entries(run_id, owner_id, owner_rank);
`

func (s *Store) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "leadstore: ping")
}

func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, migration)
	return eris.Wrap(err, "leadstore: migrate")
}

func (s *Store) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// RunMeta identifies one scoring run.
type RunMeta struct {
	ID           string
	ConfigHash   string
	ModelVersion string
}

// CreateRun records the start of a run.
func (s *Store) CreateRun(ctx context.Context, meta RunMeta) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO scoring_runs (id, config_hash, model_version, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		meta.ID, meta.ConfigHash, meta.ModelVersion, "running", now, now)
	return eris.Wrapf(err, "leadstore: create run %s", meta.ID)
}

// CompleteRun marks a run complete and stores its report.
func (s *Store) CompleteRun(ctx context.Context, runID string, report *model.RunReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "leadstore: marshal report")
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE scoring_runs SET status = $1, report = $2, updated_at = $3 WHERE id = $4`,
		"complete", data, time.Now().UTC(), runID)
	return eris.Wrapf(err, "leadstore: complete run %s", runID)
}

// FailRun marks a run failed with its error message.
func (s *Store) FailRun(ctx context.Context, runID string, cause string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE scoring_runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		"failed", cause, time.Now().UTC(), runID)
	return eris.Wrapf(err, "leadstore: fail run %s", runID)
}

var scoreColumns = []string{"run_id", "advisor_crd", "probability", "calibrated", "percentile"}

// SaveScores bulk-inserts cohort scores for a run via COPY.
func (s *Store) SaveScores(ctx context.Context, runID string, scores []model.ModelScore) (int64, error) {
	if len(scores) == 0 {
		return 0, nil
	}
	rows := make([][]any, len(scores))
	for i, sc := range scores {
		rows[i] = []any{runID, sc.AdvisorCRD, sc.Probability, sc.Calibrated, sc.Percentile}
	}
	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{"advisor_scores"}, scoreColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "leadstore: COPY INTO advisor_scores")
	}
	return n, nil
}

var entryColumns = []string{
	"run_id", "advisor_crd", "firm_crd",
	"first_name", "last_name", "email", "phone", "linkedin_url", "job_title", "firm_name",
	"tier", "tier_rank", "backfilled",
	"global_rank", "owner_id", "owner_rank", "grouping_override",
	"percentile", "calibrated", "top_features", "narrative",
}

// SaveList bulk-inserts the allocated list for a run via COPY. Contact
// fields are denormalized so sync and export can run from this table
// alone.
func (s *Store) SaveList(ctx context.Context, runID string, entries []model.ListEntry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	rows := make([][]any, len(entries))
	for i, e := range entries {
		top, err := json.Marshal(e.Explanation.Top)
		if err != nil {
			return 0, eris.Wrapf(err, "leadstore: marshal top features for %d", e.Advisor.AdvisorCRD)
		}
		rows[i] = []any{
			runID, e.Advisor.AdvisorCRD, e.Advisor.FirmCRD,
			e.Advisor.FirstName, e.Advisor.LastName, e.Advisor.Email, e.Advisor.Phone,
			e.Advisor.LinkedInURL, e.Advisor.JobTitle, e.Advisor.FirmName,
			e.Tier, e.TierRank, e.Backfilled,
			e.GlobalRank, e.OwnerID, e.OwnerRank, e.GroupingOverride,
			e.Score.Percentile, e.Score.Calibrated, top, e.Explanation.Narrative,
		}
	}
	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{"lead_list_entries"}, entryColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "leadstore: COPY INTO lead_list_entries")
	}
	return n, nil
}

// ListEntries reads back a run's allocated list in global rank order.
func (s *Store) ListEntries(ctx context.Context, runID string) ([]model.ListEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT advisor_crd, firm_crd, first_name, last_name, email, phone, linkedin_url, job_title, firm_name,
			tier, tier_rank, backfilled, global_rank, owner_id, owner_rank, grouping_override,
			percentile, calibrated, top_features, narrative
		FROM lead_list_entries WHERE run_id = $1 ORDER BY global_rank`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "leadstore: list entries for %s", runID)
	}
	defer rows.Close()

	var entries []model.ListEntry
	for rows.Next() {
		var (
			adv model.FeatureRecord
			e   model.ListEntry
			top []byte
		)
		err := rows.Scan(
			&adv.AdvisorCRD, &adv.FirmCRD, &adv.FirstName, &adv.LastName, &adv.Email, &adv.Phone,
			&adv.LinkedInURL, &adv.JobTitle, &adv.FirmName,
			&e.Tier, &e.TierRank, &e.Backfilled, &e.GlobalRank, &e.OwnerID, &e.OwnerRank, &e.GroupingOverride,
			&e.Score.Percentile, &e.Score.Calibrated, &top, &e.Explanation.Narrative,
		)
		if err != nil {
			return nil, eris.Wrap(err, "leadstore: scan list entry")
		}
		if len(top) > 0 {
			if err := json.Unmarshal(top, &e.Explanation.Top); err != nil {
				return nil, eris.Wrap(err, "leadstore: parse top features")
			}
		}
		e.Advisor = &adv
		e.Score.AdvisorCRD = adv.AdvisorCRD
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "leadstore: rows")
	}
	return entries, nil
}

// LatestCompleteRun returns the most recent run with status complete.
func (s *Store) LatestCompleteRun(ctx context.Context) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM scoring_runs WHERE status = 'complete' ORDER BY created_at DESC LIMIT 1`).Scan(&id)
	if err != nil {
		return "", eris.Wrap(err, "leadstore: latest complete run")
	}
	return id, nil
}
