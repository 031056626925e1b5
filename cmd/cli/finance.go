package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/dvloznov/monomind/internal/app"
	"github.com/dvloznov/monomind/internal/domain"
	"github.com/dvloznov/monomind/internal/metrics"
	"github.com/dvloznov/monomind/internal/risk"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newMetricsCmd(rc *rootConfig) *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show balance, burn rate, income and runway for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return errors.New("missing --user")
			}
			m, err := ledgerMetrics(cmd, rc, userID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if rc.JSON {
				return printJSON(out, m)
			}
			printMetrics(out, m)
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "Ledger user id")
	return cmd
}

func newAssessCmd(rc *rootConfig) *cobra.Command {
	var (
		userID   int64
		name     string
		price    string
		credit   bool
		months   int
		balance  string
		income   string
		expenses string
	)

	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Check whether a purchase is affordable",
		Long: "Runs the deterministic risk rules for a purchase. The position comes from the ledger " +
			"when --user is given, otherwise from --balance, --income and --expenses.",
		RunE: func(cmd *cobra.Command, args []string) error {
			itemPrice, err := parseMoney("price", price)
			if err != nil {
				return err
			}
			req := domain.PurchaseRequest{
				ItemName:     name,
				ItemPrice:    itemPrice,
				IsCredit:     credit,
				CreditMonths: months,
			}
			if req.ItemName == "" {
				req.ItemName = domain.UnknownItemName
			}

			cfg, err := rc.readConfig()
			if err != nil {
				return err
			}
			policy, err := cfg.RiskPolicy()
			if err != nil {
				return err
			}
			assessor, err := risk.NewAssessor(policy)
			if err != nil {
				return err
			}

			var pos risk.Position
			if userID > 0 {
				m, err := ledgerMetrics(cmd, rc, userID)
				if err != nil {
					return err
				}
				pos = risk.PositionFromMetrics(m)
			} else {
				if pos, err = positionFromFlags(balance, income, expenses); err != nil {
					return err
				}
			}

			verdict, err := assessor.Assess(req, pos)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if rc.JSON {
				return printJSON(out, verdict)
			}
			printVerdict(out, verdict)
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "Derive the position from this user's ledger")
	cmd.Flags().StringVar(&name, "name", "", "Item name")
	cmd.Flags().StringVar(&price, "price", "", "Item price")
	cmd.Flags().BoolVar(&credit, "credit", false, "Buy on credit")
	cmd.Flags().IntVar(&months, "months", 1, "Credit term in months")
	cmd.Flags().StringVar(&balance, "balance", "", "Current balance (without --user)")
	cmd.Flags().StringVar(&income, "income", "0", "Monthly income (without --user)")
	cmd.Flags().StringVar(&expenses, "expenses", "0", "Monthly expenses (without --user)")

	return cmd
}

// ledgerMetrics reads a user's ledger and computes their metrics.
func ledgerMetrics(cmd *cobra.Command, rc *rootConfig, userID int64) (domain.FinancialMetrics, error) {
	cfg, err := rc.readConfig()
	if err != nil {
		return domain.FinancialMetrics{}, err
	}
	ctx, _ := rc.setup(cmd)

	ledger, err := app.OpenLedger(ctx, cfg)
	if err != nil {
		return domain.FinancialMetrics{}, err
	}
	defer ledger.Close()

	snapshot, err := ledger.FetchSnapshot(ctx, userID)
	if err != nil {
		return domain.FinancialMetrics{}, fmt.Errorf("fetch ledger: %w", err)
	}
	return metrics.Compute(snapshot), nil
}

func positionFromFlags(balance, income, expenses string) (risk.Position, error) {
	if balance == "" {
		return risk.Position{}, errors.New("missing --balance (or use --user)")
	}
	var (
		pos risk.Position
		err error
	)
	if pos.Balance, err = decimal.NewFromString(balance); err != nil {
		return risk.Position{}, fmt.Errorf("bad --balance: %w", err)
	}
	if pos.MonthlyIncome, err = parseMoney("income", income); err != nil {
		return risk.Position{}, err
	}
	if pos.MonthlyExpenses, err = parseMoney("expenses", expenses); err != nil {
		return risk.Position{}, err
	}
	return pos, nil
}

// parseMoney parses a non-negative amount flag.
func parseMoney(flag, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, fmt.Errorf("missing --%s", flag)
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("bad --%s: %w", flag, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("bad --%s: %s is negative", flag, value)
	}
	return d, nil
}

func printMetrics(w io.Writer, m domain.FinancialMetrics) {
	fmt.Fprintf(w, "Balance:        %s\n", m.Balance.StringFixed(2))
	fmt.Fprintf(w, "Monthly income: %s\n", m.MonthlyIncome.StringFixed(2))
	fmt.Fprintf(w, "Burn rate:      %s\n", m.BurnRate.StringFixed(2))
	fmt.Fprintf(w, "Free cash flow: %s\n", m.FreeCashFlow().StringFixed(2))
	fmt.Fprintf(w, "Runway:         %s months\n", m.RunwayMonths.StringFixed(1))
}

func printVerdict(w io.Writer, v domain.RiskVerdict) {
	status := "OK"
	if v.IsRisky {
		status = "RISKY"
	}
	fmt.Fprintf(w, "Verdict: %s (%s)\n", status, v.Reason)
	fmt.Fprintln(w, v.Details)
	fmt.Fprintf(w, "Free cash flow: %s\n", v.FreeCashFlow.StringFixed(2))
	if v.MonthlyPayment != nil {
		fmt.Fprintf(w, "Monthly payment: %s\n", v.MonthlyPayment.StringFixed(2))
	}
	if v.DTI != nil {
		fmt.Fprintf(w, "Debt-to-income: %s%%\n", v.DTI.Mul(decimal.NewFromInt(100)).StringFixed(1))
	}
}
