// Package metrics derives financial figures from a ledger snapshot.
package metrics

import (
	"github.com/dvloznov/monomind/internal/domain"
	"github.com/shopspring/decimal"
)

// Compute folds a snapshot into FinancialMetrics. Deposits add to balance and
// income; withdrawals and subscriptions subtract from balance and add to the
// burn rate. Runway is balance over burn rate rounded to six places, or zero
// when nothing is spent or the balance is not positive.
func Compute(snapshot domain.LedgerSnapshot) domain.FinancialMetrics {
	balance := decimal.Zero
	burn := decimal.Zero
	income := decimal.Zero

	for _, tx := range snapshot.Transactions() {
		if tx.Type.IsInflow() {
			balance = balance.Add(tx.Amount)
			income = income.Add(tx.Amount)
			continue
		}
		balance = balance.Sub(tx.Amount)
		burn = burn.Add(tx.Amount)
	}

	return domain.FinancialMetrics{
		Balance:       balance,
		BurnRate:      burn,
		MonthlyIncome: income,
		RunwayMonths:  runway(balance, burn),
	}
}

const runwayPlaces = 6

func runway(balance, burn decimal.Decimal) decimal.Decimal {
	if !burn.IsPositive() || !balance.IsPositive() {
		return decimal.Zero
	}
	return balance.Div(burn).Round(runwayPlaces)
}
