package bigquery

import (
	"math/big"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/monomind/internal/domain"
	"github.com/shopspring/decimal"
)

func TestLedgerRowToTransaction(t *testing.T) {
	ts := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	row := LedgerRow{
		TransactionID: "t1",
		UserID:        7,
		Amount:        big.NewRat(12345, 100),
		Currency:      "eur",
		TxType:        "SUBSCRIPTION",
		Description:   bigquery.NullString{StringVal: "Netflix", Valid: true},
		TS:            ts,
	}

	tx, err := row.toTransaction()
	if err != nil {
		t.Fatalf("toTransaction: %v", err)
	}
	if !tx.Amount.Equal(decimal.RequireFromString("123.45")) {
		t.Errorf("amount = %s, want 123.45", tx.Amount)
	}
	if tx.Currency != "EUR" || tx.Type != domain.TransactionSubscription || tx.Description != "Netflix" {
		t.Errorf("unexpected transaction %+v", tx)
	}

	row.Amount = nil
	if _, err := row.toTransaction(); err == nil {
		t.Error("expected error for NULL amount")
	}

	row.Amount = big.NewRat(-1, 1)
	if _, err := row.toTransaction(); err == nil {
		t.Error("expected error for negative amount")
	}
}

func TestRatToDecimalExact(t *testing.T) {
	r, _ := new(big.Rat).SetString("0.123456789")
	if got := ratToDecimal(r).String(); got != "0.123456789" {
		t.Errorf("ratToDecimal = %s", got)
	}
}

func TestNewRunRow(t *testing.T) {
	started := time.Date(2025, 3, 31, 23, 30, 0, 0, time.UTC)
	runway := decimal.RequireFromString("1.857142857142857142857")
	balance := decimal.RequireFromString("650")

	rec := domain.RunRecord{
		RunID:        "01J0000000000000000000000",
		UserID:       1,
		SessionID:    "user-1",
		Intent:       domain.IntentAnalyzeRunway,
		Stages:       []string{"CLASSIFY_INTENT", "FETCH_LEDGER"},
		Status:       domain.RunFailed,
		Failure:      strings.Repeat("x", 3000),
		Balance:      &balance,
		RunwayMonths: &runway,
		StartedAt:    started,
		FinishedAt:   started.Add(time.Second),
	}

	row := NewRunRow(rec)
	if row.RunDate != (civil.Date{Year: 2025, Month: time.March, Day: 31}) {
		t.Errorf("run date = %v", row.RunDate)
	}
	if len(row.Failure.StringVal) != maxFailureLen {
		t.Errorf("failure not truncated: %d", len(row.Failure.StringVal))
	}
	if row.Balance.StringVal != "650" || !row.Balance.Valid {
		t.Errorf("balance = %+v", row.Balance)
	}
	if row.RunwayMonths.StringVal != "1.857142857" {
		t.Errorf("runway = %q", row.RunwayMonths.StringVal)
	}
	if row.BurnRate.Valid {
		t.Error("burn rate should be NULL")
	}
	if row.IsRisky.Valid {
		t.Error("is_risky should be NULL without a verdict")
	}
	if row.Degraded == nil {
		t.Error("degraded should be an empty array, not nil")
	}
	if row.Reason.Valid {
		t.Error("reason should be NULL")
	}
}

func TestQualifiedTable(t *testing.T) {
	if got := qualifiedTable("p", "d", runsTable); got != "`p.d.pipeline_runs`" {
		t.Errorf("qualifiedTable = %s", got)
	}
}
