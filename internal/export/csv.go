// Package export renders a run's outputs: the lead list CSV handed to
// sales ops and the run report in JSON and human-readable form.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/savvy-gtm/leadscore-cli/internal/model"
)

// csvHeader is the export column order. Sales ops filters on owner and
// tier first, so those lead.
var csvHeader = []string{
	"owner_id", "owner_rank", "global_rank",
	"tier", "backfilled",
	"advisor_crd", "first_name", "last_name",
	"email", "phone", "linkedin_url",
	"job_title", "firm_name", "firm_crd",
	"model_percentile", "calibrated_score",
	"grouping_override", "narrative",
}

// WriteListCSV writes entries as CSV in the order given.
func WriteListCSV(w io.Writer, entries []model.ListEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	for _, e := range entries {
		row := []string{
			e.OwnerID,
			strconv.Itoa(e.OwnerRank),
			strconv.Itoa(e.GlobalRank),
			e.Tier,
			strconv.FormatBool(e.Backfilled),
			strconv.FormatInt(e.Advisor.AdvisorCRD, 10),
			e.Advisor.FirstName,
			e.Advisor.LastName,
			e.Advisor.Email,
			e.Advisor.Phone,
			e.Advisor.LinkedInURL,
			e.Advisor.JobTitle,
			e.Advisor.FirmName,
			strconv.FormatInt(e.Advisor.FirmCRD, 10),
			strconv.Itoa(e.Score.Percentile),
			strconv.FormatFloat(e.Score.Calibrated, 'f', 4, 64),
			strconv.FormatBool(e.GroupingOverride),
			e.Explanation.Narrative,
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrapf(err, "export: write row for %d", e.Advisor.AdvisorCRD)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush")
}

// ExportList writes the list CSV under dir and returns the file path.
func ExportList(dir, runID string, entries []model.ListEntry) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "export: mkdir %s", dir)
	}
	path := filepath.Join(dir, fmt.Sprintf("lead_list_%s.csv", runID))
	f, err := os.Create(path)
	if err != nil {
		return "", eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	if err := WriteListCSV(f, entries); err != nil {
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", eris.Wrapf(err, "export: close %s", path)
	}

	zap.L().Info("lead list exported",
		zap.String("path", path),
		zap.Int("rows", len(entries)))
	return path, nil
}
