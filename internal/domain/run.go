package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RunStatus is the terminal state of a pipeline run.
type RunStatus string

const (
	RunSucceeded RunStatus = "SUCCEEDED"
	RunFailed    RunStatus = "FAILED"
)

// RunRecord is the audit trail of one pipeline run.
type RunRecord struct {
	RunID     string    `json:"run_id"`
	UserID    int64     `json:"user_id"`
	SessionID string    `json:"session_id"`
	Intent    Intent    `json:"intent"`
	Stages    []string  `json:"stages"`
	Status    RunStatus `json:"status"`
	Failure   string    `json:"failure,omitempty"`
	Degraded  []string  `json:"degraded,omitempty"`

	Reason  RiskReason `json:"reason,omitempty"`
	IsRisky bool       `json:"is_risky"`

	Balance       *decimal.Decimal `json:"balance,omitempty"`
	BurnRate      *decimal.Decimal `json:"burn_rate,omitempty"`
	MonthlyIncome *decimal.Decimal `json:"monthly_income,omitempty"`
	RunwayMonths  *decimal.Decimal `json:"runway_months,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
