// Package featurestore reads the advisor feature snapshot from the
// warehouse. It is the only component that touches the features table;
// everything downstream works on FeatureRecord values.
package featurestore

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/savvy-gtm/leadscore-cli/internal/config"
	"github.com/savvy-gtm/leadscore-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the feature store needs. pgxmock
// satisfies it in tests.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store reads feature snapshots.
type Store struct {
	pool    Pool
	table   string
	timeout time.Duration
}

// New builds a Store over an existing pool.
func New(pool Pool, cfg config.WarehouseConfig) *Store {
	timeout := time.Duration(cfg.QueryTimeout) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Store{pool: pool, table: cfg.FeaturesTable, timeout: timeout}
}

// featureColumns is the full snapshot projection, in scan order.
var featureColumns = []string{
	"advisor_crd", "firm_crd",
	"first_name", "last_name", "email", "phone", "linkedin_url",
	"job_title", "age_range", "firm_name",
	"tenure_months", "experience_years", "moves_3yr", "num_prior_firms", "days_since_last_move",
	"firm_rep_count_at_contact", "firm_net_change_12mo", "firm_departures_corrected",
	"bleeding_velocity", "turnover_pct", "discretionary_ratio",
	"tenure_bucket", "experience_bucket", "mobility_tier", "firm_stability_tier",
	"is_wirehouse", "is_broker_protocol", "is_independent_ria", "is_ia_rep_type",
	"is_dual_registered", "has_cfp", "has_series65_only",
	"has_email", "has_linkedin", "has_firm_data", "is_likely_recent_promotee",
	"has_criminal_disclosure", "has_regulatory_disclosure", "has_termination_disclosure",
	"has_investigation_disclosure", "has_customer_dispute_disclosure",
	"has_civil_disclosure", "has_bond_disclosure",
}

// FetchCohort loads the current snapshot. Rows missing either CRD are
// unusable for dedupe and allocation, so they are skipped and counted
// rather than defaulted. All other nullable columns get neutral defaults.
func (s *Store) FetchCohort(ctx context.Context) ([]*model.FeatureRecord, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := "SELECT " + strings.Join(featureColumns, ", ") + " FROM " + s.table
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "featurestore: query %s", s.table)
	}
	defer rows.Close()

	var records []*model.FeatureRecord
	var skipped int
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, 0, eris.Wrap(err, "featurestore: scan")
		}
		if r.AdvisorCRD <= 0 || r.FirmCRD <= 0 {
			skipped++
			continue
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, eris.Wrap(err, "featurestore: rows")
	}

	if skipped > 0 {
		zap.L().Warn("skipped rows with missing identity",
			zap.Int("skipped", skipped),
			zap.String("table", s.table))
	}
	zap.L().Info("cohort loaded",
		zap.Int("advisors", len(records)),
		zap.String("table", s.table))
	return records, skipped, nil
}

func scanRecord(rows pgx.Rows) (*model.FeatureRecord, error) {
	var (
		advisorCRD, firmCRD *int64

		firstName, lastName, email, phone, linkedinURL *string
		jobTitle, ageRange, firmName                   *string

		tenureMonths, moves3Yr, numPriorFirms, daysSinceLastMove *int
		experienceYears                                          *float64

		firmRepCount, firmNetChange, firmDepartures, bleedingVelocity *int
		turnoverPct, discretionaryRatio                               *float64

		tenureBucket, experienceBucket, mobilityTier, firmStabilityTier *string

		isWirehouse, isBrokerProtocol, isIndependentRIA, isIARepType *bool
		isDualRegistered, hasCFP, hasSeries65Only                    *bool
		hasEmail, hasLinkedIn, hasFirmData, likelyRecentPromotee     *bool

		dCriminal, dRegulatory, dTermination, dInvestigation *bool
		dDispute, dCivil, dBond                              *bool
	)

	err := rows.Scan(
		&advisorCRD, &firmCRD,
		&firstName, &lastName, &email, &phone, &linkedinURL,
		&jobTitle, &ageRange, &firmName,
		&tenureMonths, &experienceYears, &moves3Yr, &numPriorFirms, &daysSinceLastMove,
		&firmRepCount, &firmNetChange, &firmDepartures,
		&bleedingVelocity, &turnoverPct, &discretionaryRatio,
		&tenureBucket, &experienceBucket, &mobilityTier, &firmStabilityTier,
		&isWirehouse, &isBrokerProtocol, &isIndependentRIA, &isIARepType,
		&isDualRegistered, &hasCFP, &hasSeries65Only,
		&hasEmail, &hasLinkedIn, &hasFirmData, &likelyRecentPromotee,
		&dCriminal, &dRegulatory, &dTermination, &dInvestigation,
		&dDispute, &dCivil, &dBond,
	)
	if err != nil {
		return nil, err
	}

	r := &model.FeatureRecord{
		AdvisorCRD:  deref(advisorCRD),
		FirmCRD:     deref(firmCRD),
		FirstName:   deref(firstName),
		LastName:    deref(lastName),
		Email:       deref(email),
		Phone:       deref(phone),
		LinkedInURL: deref(linkedinURL),
		JobTitle:    deref(jobTitle),
		AgeRange:    deref(ageRange),
		FirmName:    deref(firmName),

		TenureMonths:      deref(tenureMonths),
		Moves3Yr:          deref(moves3Yr),
		NumPriorFirms:     deref(numPriorFirms),
		DaysSinceLastMove: deref(daysSinceLastMove),

		FirmRepCount:       deref(firmRepCount),
		FirmNetChange12Mo:  deref(firmNetChange),
		FirmDepartures:     deref(firmDepartures),
		BleedingVelocity:   deref(bleedingVelocity),
		TurnoverPct:        deref(turnoverPct),
		DiscretionaryRatio: discretionaryRatio,

		TenureBucket:      deref(tenureBucket),
		ExperienceBucket:  deref(experienceBucket),
		MobilityTier:      deref(mobilityTier),
		FirmStabilityTier: deref(firmStabilityTier),

		IsWirehouse:          deref(isWirehouse),
		IsBrokerProtocol:     deref(isBrokerProtocol),
		IsIndependentRIA:     deref(isIndependentRIA),
		IsIARepType:          deref(isIARepType),
		IsDualRegistered:     deref(isDualRegistered),
		HasCFP:               deref(hasCFP),
		HasSeries65Only:      deref(hasSeries65Only),
		HasEmail:             deref(hasEmail),
		HasLinkedIn:          deref(hasLinkedIn),
		HasFirmData:          deref(hasFirmData),
		LikelyRecentPromotee: deref(likelyRecentPromotee),

		DisclosureCriminal:        deref(dCriminal),
		DisclosureRegulatory:      deref(dRegulatory),
		DisclosureTermination:     deref(dTermination),
		DisclosureInvestigation:   deref(dInvestigation),
		DisclosureCustomerDispute: deref(dDispute),
		DisclosureCivil:           deref(dCivil),
		DisclosureBond:            deref(dBond),
	}

	// Experience carries an explicit missing flag so the model can split
	// on absence instead of seeing a fake zero.
	if experienceYears == nil {
		r.ExperienceMissing = true
	} else {
		r.ExperienceYears = *experienceYears
	}
	return r, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

