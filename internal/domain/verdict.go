package domain

import "github.com/shopspring/decimal"

// RiskReason names the rule that produced a verdict.
type RiskReason string

const (
	ReasonSafe             RiskReason = "safe"
	ReasonCriticalFunds    RiskReason = "critical_funds"
	ReasonCashflowWarning  RiskReason = "cashflow_warning"
	ReasonManageableCredit RiskReason = "manageable_credit"
	ReasonNegativeCashflow RiskReason = "negative_cashflow"
	ReasonDTICritical      RiskReason = "dti_critical"
)

// RiskVerdict is the deterministic affordability result.
type RiskVerdict struct {
	IsRisky bool       `json:"is_risky"`
	Reason  RiskReason `json:"reason"`
	Details string     `json:"details"`

	FreeCashFlow   decimal.Decimal  `json:"free_cash_flow"`
	MonthlyPayment *decimal.Decimal `json:"monthly_payment,omitempty"`
	DTI            *decimal.Decimal `json:"dti,omitempty"`
}
