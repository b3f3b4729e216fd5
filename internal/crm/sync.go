// Package crm delivers generated lead lists to Salesforce. Leads are
// upserted on advisor CRD so re-running a sync updates rather than
// duplicates.
package crm

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/savvy-gtm/leadscore-cli/internal/model"
	"github.com/savvy-gtm/leadscore-cli/internal/resilience"
	"github.com/savvy-gtm/leadscore-cli/pkg/salesforce"
)

// crdExternalIDField is the external id the upsert matches on.
const crdExternalIDField = "CRD__c"

// Syncer pushes list entries to Salesforce in batches.
type Syncer struct {
	client    salesforce.Client
	batchSize int
	retry     resilience.RetryConfig
}

// NewSyncer builds a Syncer. batchSize is clamped to the Collections API
// limit of 200.
func NewSyncer(client salesforce.Client, batchSize int) *Syncer {
	if batchSize <= 0 || batchSize > 200 {
		batchSize = 200
	}
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("salesforce", "upsert_leads")
	return &Syncer{client: client, batchSize: batchSize, retry: retry}
}

// Result summarizes one sync.
type Result struct {
	Succeeded int
	Failed    int

	// Errors holds one message per failed record, capped by the caller's
	// patience rather than here.
	Errors []string
}

// SyncList upserts every entry as a Lead. A partial batch failure does
// not abort the sync; failures are collected and reported so sales ops
// can fix the records in Salesforce directly.
func (s *Syncer) SyncList(ctx context.Context, runID string, entries []model.ListEntry) (*Result, error) {
	if len(entries) == 0 {
		return &Result{}, nil
	}

	res := &Result{}
	for start := 0; start < len(entries); start += s.batchSize {
		end := min(start+s.batchSize, len(entries))
		batch := entries[start:end]

		records := make([]map[string]any, len(batch))
		for i, e := range batch {
			records[i] = leadRecord(runID, e)
		}

		results, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) ([]salesforce.CollectionResult, error) {
			return s.client.UpsertCollection(ctx, "Lead", crdExternalIDField, records)
		})
		if err != nil {
			return res, eris.Wrapf(err, "crm: sync batch %d-%d", start, end)
		}
		for i, r := range results {
			if r.Success {
				res.Succeeded++
				continue
			}
			res.Failed++
			for _, msg := range r.Errors {
				res.Errors = append(res.Errors, msg)
			}
			zap.L().Warn("lead upsert failed",
				zap.Int64("advisor_crd", batch[i].Advisor.AdvisorCRD),
				zap.Strings("errors", r.Errors))
		}
	}

	zap.L().Info("lead list synced",
		zap.String("run_id", runID),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed))
	return res, nil
}

// leadRecord maps one list entry onto Lead fields. OwnerId carries the
// allocated SGA; the remaining custom fields let reps sort their queue
// without leaving Salesforce.
func leadRecord(runID string, e model.ListEntry) map[string]any {
	return map[string]any{
		crdExternalIDField:       e.Advisor.AdvisorCRD,
		"FirstName":              e.Advisor.FirstName,
		"LastName":               e.Advisor.LastName,
		"Email":                  e.Advisor.Email,
		"Phone":                  e.Advisor.Phone,
		"Title":                  e.Advisor.JobTitle,
		"Company":                e.Advisor.FirmName,
		"OwnerId":                e.OwnerID,
		"Firm_CRD__c":            e.Advisor.FirmCRD,
		"LinkedIn_URL__c":        e.Advisor.LinkedInURL,
		"Lead_Tier__c":           e.Tier,
		"Lead_Rank__c":           e.OwnerRank,
		"Model_Percentile__c":    e.Score.Percentile,
		"Score_Narrative__c":     e.Explanation.Narrative,
		"Lead_List_Run__c":       runID,
		"Tier_Backfilled__c":     e.Backfilled,
		"Assignment_Override__c": e.GroupingOverride,
	}
}
