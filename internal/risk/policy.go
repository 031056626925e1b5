package risk

import (
	"errors"
	"fmt"

	"github.com/dvloznov/monomind/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultDTICritical is the debt-to-income ratio above which credit is critical.
var DefaultDTICritical = decimal.RequireFromString("0.8")

// ErrInvalidPolicy is returned by Policy.Validate.
var ErrInvalidPolicy = errors.New("invalid risk policy")

// Policy holds the operator-tunable thresholds.
type Policy struct {
	DTICritical decimal.Decimal // 0.8
}

// DefaultPolicy returns the standard thresholds.
func DefaultPolicy() Policy {
	return Policy{DTICritical: DefaultDTICritical}
}

// Validate checks that thresholds are usable.
func (p Policy) Validate() error {
	if !p.DTICritical.IsPositive() {
		return fmt.Errorf("%w: dti critical %s must be positive", ErrInvalidPolicy, p.DTICritical)
	}
	return nil
}

// Position is the financial situation a purchase is measured against.
type Position struct {
	Balance         decimal.Decimal
	MonthlyIncome   decimal.Decimal
	MonthlyExpenses decimal.Decimal
}

// PositionFromMetrics uses the ledger-derived figures as the position.
func PositionFromMetrics(m domain.FinancialMetrics) Position {
	return Position{
		Balance:         m.Balance,
		MonthlyIncome:   m.MonthlyIncome,
		MonthlyExpenses: m.MonthlyExpenses(),
	}
}

// FreeCashFlow is income minus expenses.
func (p Position) FreeCashFlow() decimal.Decimal {
	return p.MonthlyIncome.Sub(p.MonthlyExpenses)
}
