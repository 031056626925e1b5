package pipeline

import (
	"fmt"
	"strings"

	"github.com/dvloznov/monomind/internal/domain"
)

// FactSheet renders the deterministic facts gathered so far as plain text
// lines. Response composers quote these figures instead of computing them.
func (s State) FactSheet() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Intent: %s\n", s.Intent)

	if s.Metrics != nil {
		m := s.Metrics
		fmt.Fprintf(&b, "Balance: $%s\n", m.Balance.StringFixed(2))
		fmt.Fprintf(&b, "Monthly income: $%s\n", m.MonthlyIncome.StringFixed(2))
		fmt.Fprintf(&b, "Monthly burn rate: $%s\n", m.BurnRate.StringFixed(2))
		if m.RunwayMonths.IsZero() {
			b.WriteString("Runway: not applicable (no spending recorded or no positive balance)\n")
		} else {
			fmt.Fprintf(&b, "Runway: %s months\n", m.RunwayMonths.StringFixed(1))
		}
	}

	if s.Snapshot != nil {
		txs := s.Snapshot.Transactions()
		if len(txs) == 0 {
			b.WriteString("Transactions: No transactions found.\n")
		} else {
			b.WriteString("Transactions:\n")
			for _, tx := range txs {
				desc := tx.Description
				if desc == "" {
					desc = "-"
				}
				fmt.Fprintf(&b, "- %s | $%s | %s\n", tx.Type, tx.Amount.StringFixed(2), desc)
			}
		}
	}

	if s.Purchase != nil {
		p := s.Purchase
		fmt.Fprintf(&b, "Purchase item: %s\n", p.ItemName)
		fmt.Fprintf(&b, "Purchase price: $%s\n", p.ItemPrice.StringFixed(2))
		if p.IsCredit {
			fmt.Fprintf(&b, "Payment: credit over %d months\n", p.CreditMonths)
		} else {
			b.WriteString("Payment: outright\n")
		}
	}

	if s.MarketContext != nil {
		fmt.Fprintf(&b, "Market context: %s\n", *s.MarketContext)
	}

	if s.Verdict != nil {
		v := s.Verdict
		fmt.Fprintf(&b, "Risk verdict: %s (risky: %t)\n", v.Reason, v.IsRisky)
		fmt.Fprintf(&b, "Risk details: %s\n", v.Details)
	}

	return b.String()
}

// VerdictSummary is a one-line summary for logs and audit.
func VerdictSummary(v *domain.RiskVerdict) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%s risky=%t", v.Reason, v.IsRisky)
}
