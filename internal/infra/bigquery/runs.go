package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/monomind/internal/domain"
	"github.com/shopspring/decimal"
)

const maxFailureLen = 2000

// RunRow is one row of the pipeline_runs table.
type RunRow struct {
	RunID     string              `bigquery:"run_id"`   // REQUIRED
	RunDate   civil.Date          `bigquery:"run_date"` // REQUIRED, partition column
	UserID    int64               `bigquery:"user_id"`  // REQUIRED
	SessionID bigquery.NullString `bigquery:"session_id"`
	Intent    bigquery.NullString `bigquery:"intent"`
	Stages    []string            `bigquery:"stages"` // REPEATED STRING
	Status    string              `bigquery:"status"` // REQUIRED
	Failure   bigquery.NullString `bigquery:"failure"`
	Degraded  []string            `bigquery:"degraded"` // REPEATED STRING
	Reason    bigquery.NullString `bigquery:"reason"`
	IsRisky   bigquery.NullBool   `bigquery:"is_risky"`

	// Money columns travel as decimal strings and are cast server-side.
	Balance       bigquery.NullString `bigquery:"balance"`
	BurnRate      bigquery.NullString `bigquery:"burn_rate"`
	MonthlyIncome bigquery.NullString `bigquery:"monthly_income"`
	RunwayMonths  bigquery.NullString `bigquery:"runway_months"`

	StartedTS  bigquery.NullTimestamp `bigquery:"started_ts"`
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"`
}

// NewRunRow maps an audit record onto the table layout.
func NewRunRow(rec domain.RunRecord) RunRow {
	failure := rec.Failure
	if len(failure) > maxFailureLen {
		failure = failure[:maxFailureLen]
	}

	row := RunRow{
		RunID:         rec.RunID,
		RunDate:       civil.DateOf(rec.StartedAt.UTC()),
		UserID:        rec.UserID,
		SessionID:     nullString(rec.SessionID),
		Intent:        nullString(string(rec.Intent)),
		Stages:        nonNil(rec.Stages),
		Status:        string(rec.Status),
		Failure:       nullString(failure),
		Degraded:      nonNil(rec.Degraded),
		Reason:        nullString(string(rec.Reason)),
		Balance:       nullDecimal(rec.Balance, 4),
		BurnRate:      nullDecimal(rec.BurnRate, 4),
		MonthlyIncome: nullDecimal(rec.MonthlyIncome, 4),
		RunwayMonths:  nullDecimal(rec.RunwayMonths, 9),
		StartedTS:     bigquery.NullTimestamp{Timestamp: rec.StartedAt, Valid: !rec.StartedAt.IsZero()},
		FinishedTS:    bigquery.NullTimestamp{Timestamp: rec.FinishedAt, Valid: !rec.FinishedAt.IsZero()},
	}
	if rec.Reason != "" {
		row.IsRisky = bigquery.NullBool{Bool: rec.IsRisky, Valid: true}
	}
	return row
}

// InsertRun writes one audit row. Uses DML INSERT to avoid streaming buffer
// issues.
func (r *Repository) InsertRun(ctx context.Context, rec domain.RunRecord) error {
	row := NewRunRow(rec)

	q := r.client.Query(fmt.Sprintf(`
		INSERT INTO %s (
			run_id, run_date, user_id, session_id, intent, stages,
			status, failure, degraded, reason, is_risky,
			balance, burn_rate, monthly_income, runway_months,
			started_ts, finished_ts
		)
		VALUES (
			@run_id, @run_date, @user_id, @session_id, @intent, @stages,
			@status, @failure, @degraded, @reason, @is_risky,
			SAFE_CAST(@balance AS NUMERIC), SAFE_CAST(@burn_rate AS NUMERIC),
			SAFE_CAST(@monthly_income AS NUMERIC), SAFE_CAST(@runway_months AS BIGNUMERIC),
			@started_ts, @finished_ts
		)
	`, r.table(runsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: row.RunID},
		{Name: "run_date", Value: row.RunDate},
		{Name: "user_id", Value: row.UserID},
		{Name: "session_id", Value: row.SessionID},
		{Name: "intent", Value: row.Intent},
		{Name: "stages", Value: row.Stages},
		{Name: "status", Value: row.Status},
		{Name: "failure", Value: row.Failure},
		{Name: "degraded", Value: row.Degraded},
		{Name: "reason", Value: row.Reason},
		{Name: "is_risky", Value: row.IsRisky},
		{Name: "balance", Value: row.Balance},
		{Name: "burn_rate", Value: row.BurnRate},
		{Name: "monthly_income", Value: row.MonthlyIncome},
		{Name: "runway_months", Value: row.RunwayMonths},
		{Name: "started_ts", Value: row.StartedTS},
		{Name: "finished_ts", Value: row.FinishedTS},
	}

	if err := r.runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertRun: %s: %w", rec.RunID, err)
	}
	return nil
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

func nullDecimal(d *decimal.Decimal, places int32) bigquery.NullString {
	if d == nil {
		return bigquery.NullString{}
	}
	return bigquery.NullString{StringVal: d.Round(places).String(), Valid: true}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
