// Package tier implements the rule-based classification stage: global
// exclusions followed by first-match tier assignment against a priority
// table with per-tier historical conversion rates.
package tier

import (
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/savvy-gtm/leadscore-cli/internal/model"
)

// Row is one tier in the priority table. Lower Rank outranks higher.
type Row struct {
	Name           string  `yaml:"tier"`
	Rank           int     `yaml:"rank"`
	HistoricalRate float64 `yaml:"historical_rate"`
}

// Table maps tier names to priority ranks and historical conversion rates.
type Table struct {
	rows   []Row
	byName map[string]Row
}

// DefaultTable returns the built-in priority table. Historical rates come
// from backtests over closed-won cohorts and are refreshed with each model
// release via the tier table artifact.
func DefaultTable() *Table {
	t, err := newTable([]Row{
		{model.TierPrimeMoverCFP, 1, 0.1644},
		{model.TierPrimeMoverSeries65, 2, 0.1648},
		{model.TierPrimeMover, 3, 0.1321},
		{model.TierHVWealthBleeder, 4, 0.1278},
		{model.TierProvenMover, 5, 0.0859},
		{model.TierModerateBleeder, 6, 0.0952},
		{model.TierExperiencedMover, 7, 0.1154},
		{model.TierHeavyBleeder, 8, 0.0727},
		{model.TierStandardHighV4, model.StandardHighV4Rank, 0.0367},
		{model.TierStandard, model.StandardRank, 0.0274},
	})
	if err != nil {
		panic(err)
	}
	return t
}

// LoadTable parses a tier table artifact. The artifact fully replaces the
// built-in table; a partial table is a load error, not a partial override.
func LoadTable(data []byte) (*Table, error) {
	var doc struct {
		Tiers []Row `yaml:"tiers"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "tier: parse table artifact")
	}
	t, err := newTable(doc.Tiers)
	if err != nil {
		return nil, err
	}
	if _, ok := t.byName[model.TierStandard]; !ok {
		return nil, eris.New("tier: table artifact missing STANDARD")
	}
	if _, ok := t.byName[model.TierStandardHighV4]; !ok {
		return nil, eris.New("tier: table artifact missing STANDARD_HIGH_V4")
	}
	return t, nil
}

func newTable(rows []Row) (*Table, error) {
	if len(rows) == 0 {
		return nil, eris.New("tier: empty table")
	}
	byName := make(map[string]Row, len(rows))
	byRank := make(map[int]string, len(rows))
	for _, r := range rows {
		if r.Name == "" {
			return nil, eris.New("tier: row with empty tier name")
		}
		if r.HistoricalRate < 0 || r.HistoricalRate > 1 {
			return nil, eris.Errorf("tier: %s historical rate %v out of [0,1]", r.Name, r.HistoricalRate)
		}
		if _, dup := byName[r.Name]; dup {
			return nil, eris.Errorf("tier: duplicate tier %s", r.Name)
		}
		if prev, dup := byRank[r.Rank]; dup {
			return nil, eris.Errorf("tier: rank %d shared by %s and %s", r.Rank, prev, r.Name)
		}
		// Rule tiers must outrank the backfill tier, or rule-validated
		// leads sort below backfill entries.
		if r.Name != model.TierStandard && r.Name != model.TierStandardHighV4 && r.Rank >= model.StandardHighV4Rank {
			return nil, eris.Errorf("tier: %s rank %d must be below backfill rank %d",
				r.Name, r.Rank, model.StandardHighV4Rank)
		}
		byName[r.Name] = r
		byRank[r.Rank] = r.Name
	}
	return &Table{rows: rows, byName: byName}, nil
}

// Rank returns the priority rank for a tier name.
func (t *Table) Rank(name string) (int, bool) {
	r, ok := t.byName[name]
	return r.Rank, ok
}

// HistoricalRate returns the historical conversion rate for a tier name,
// falling back to the STANDARD baseline for unknown tiers.
func (t *Table) HistoricalRate(name string) float64 {
	if r, ok := t.byName[name]; ok {
		return r.HistoricalRate
	}
	return t.BaselineRate()
}

// BaselineRate returns the STANDARD conversion rate, the denominator for
// lift computations.
func (t *Table) BaselineRate() float64 {
	return t.byName[model.TierStandard].HistoricalRate
}

// Rows returns the table rows in their declared order.
func (t *Table) Rows() []Row {
	return t.rows
}
