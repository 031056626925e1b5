// Package risk evaluates purchase affordability with fixed rules.
package risk

import (
	"fmt"

	"github.com/dvloznov/monomind/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	moneyPlaces   = 2
	percentPlaces = 1
)

var hundred = decimal.NewFromInt(100)

// Assessor applies a Policy to purchase requests.
type Assessor struct {
	policy Policy
}

// NewAssessor returns an Assessor. An invalid policy is rejected.
func NewAssessor(p Policy) (*Assessor, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Assessor{policy: p}, nil
}

// Policy returns the thresholds in use.
func (a *Assessor) Policy() Policy {
	return a.policy
}

// Assess returns the verdict for req against pos. The same inputs always
// produce the same verdict and details.
func (a *Assessor) Assess(req domain.PurchaseRequest, pos Position) (domain.RiskVerdict, error) {
	if err := req.Validate(); err != nil {
		return domain.RiskVerdict{}, err
	}
	if req.IsCredit {
		return a.credit(req, pos), nil
	}
	return outright(req, pos), nil
}

func outright(req domain.PurchaseRequest, pos Position) domain.RiskVerdict {
	price := req.ItemPrice
	fcf := pos.FreeCashFlow()
	v := domain.RiskVerdict{FreeCashFlow: fcf}

	switch {
	case price.GreaterThan(pos.Balance):
		v.IsRisky = true
		v.Reason = domain.ReasonCriticalFunds
		v.Details = fmt.Sprintf("Insufficient funds. Balance: %s, Price: %s.",
			money(pos.Balance), money(price))
	case price.GreaterThan(fcf):
		v.IsRisky = true
		v.Reason = domain.ReasonCashflowWarning
		v.Details = fmt.Sprintf("Purchase will consume all free cash flow this month. Remaining: %s.",
			money(fcf.Sub(price)))
	default:
		v.Reason = domain.ReasonSafe
		v.Details = fmt.Sprintf("The purchase is safe for your budget. Free cash flow after purchase: %s.",
			money(fcf.Sub(price)))
	}
	return v
}

func (a *Assessor) credit(req domain.PurchaseRequest, pos Position) domain.RiskVerdict {
	payment := req.ItemPrice.Div(decimal.NewFromInt(int64(req.CreditMonths)))
	fcf := pos.FreeCashFlow()
	v := domain.RiskVerdict{FreeCashFlow: fcf, MonthlyPayment: &payment}

	// No income leaves the ratio undefined; any credit is critical.
	if !pos.MonthlyIncome.IsPositive() {
		v.IsRisky = true
		v.Reason = domain.ReasonDTICritical
		v.Details = fmt.Sprintf("Critical risk! There is no recorded income to cover a monthly payment of %s.",
			money(payment))
		return v
	}

	dti := pos.MonthlyExpenses.Add(payment).Div(pos.MonthlyIncome)
	v.DTI = &dti

	switch {
	case dti.GreaterThan(a.policy.DTICritical):
		v.IsRisky = true
		v.Reason = domain.ReasonDTICritical
		v.Details = fmt.Sprintf("Critical risk! With this credit, your expenses will be %s%% of your income.",
			dti.Mul(hundred).StringFixed(percentPlaces))
	case fcf.LessThan(payment):
		v.IsRisky = true
		v.Reason = domain.ReasonNegativeCashflow
		v.Details = fmt.Sprintf("You cannot afford the monthly payment. Free cash flow is %s, but payment is %s.",
			money(fcf), money(payment))
	default:
		v.Reason = domain.ReasonManageableCredit
		v.Details = fmt.Sprintf("Credit is manageable. Your monthly payment will be %s.", money(payment))
	}
	return v
}

func money(d decimal.Decimal) string {
	return d.StringFixed(moneyPlaces)
}
