package domain

import "github.com/shopspring/decimal"

// FinancialMetrics is derived from a LedgerSnapshot and never stored.
type FinancialMetrics struct {
	Balance       decimal.Decimal `json:"balance"`
	BurnRate      decimal.Decimal `json:"burn_rate"`
	MonthlyIncome decimal.Decimal `json:"monthly_income"`
	RunwayMonths  decimal.Decimal `json:"runway_months"`
}

// MonthlyExpenses is the burn rate under its risk-assessment name.
func (m FinancialMetrics) MonthlyExpenses() decimal.Decimal {
	return m.BurnRate
}

// FreeCashFlow is monthly income minus monthly expenses.
func (m FinancialMetrics) FreeCashFlow() decimal.Decimal {
	return m.MonthlyIncome.Sub(m.BurnRate)
}
