package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/monomind/internal/domain"
	"github.com/dvloznov/monomind/internal/pipeline"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
)

// LedgerRow is one row of the ledger_transactions table.
type LedgerRow struct {
	TransactionID string              `bigquery:"transaction_id"` // REQUIRED
	UserID        int64               `bigquery:"user_id"`        // REQUIRED
	Amount        *big.Rat            `bigquery:"amount"`         // REQUIRED NUMERIC
	Currency      string              `bigquery:"currency"`       // REQUIRED
	TxType        string              `bigquery:"tx_type"`        // REQUIRED
	Description   bigquery.NullString `bigquery:"description"`    // NULLABLE
	TS            time.Time           `bigquery:"ts"`             // REQUIRED
}

// FetchSnapshot implements pipeline.LedgerStore.
func (r *Repository) FetchSnapshot(ctx context.Context, userID int64) (domain.LedgerSnapshot, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT transaction_id, user_id, amount, currency, tx_type, description, ts
		FROM %s
		WHERE user_id = @user_id
		ORDER BY ts, transaction_id
	`, r.table(ledgerTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return domain.LedgerSnapshot{}, fmt.Errorf("FetchSnapshot: query read: %w", err)
	}

	var txs []domain.Transaction
	for {
		var row LedgerRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return domain.LedgerSnapshot{}, fmt.Errorf("FetchSnapshot: iter next: %w", err)
		}

		tx, err := row.toTransaction()
		if err != nil {
			return domain.LedgerSnapshot{}, fmt.Errorf("FetchSnapshot: row %s: %w", row.TransactionID, err)
		}
		txs = append(txs, tx)
	}

	return domain.NewLedgerSnapshot(userID, txs, r.now().UTC()), nil
}

func (row LedgerRow) toTransaction() (domain.Transaction, error) {
	if row.Amount == nil {
		return domain.Transaction{}, fmt.Errorf("%w: amount is NULL", domain.ErrInvalidTransaction)
	}
	txType, err := domain.ParseTransactionType(row.TxType)
	if err != nil {
		return domain.Transaction{}, err
	}
	return domain.NewTransaction(ratToDecimal(row.Amount), row.Currency, txType, row.Description.StringVal, row.TS.UTC())
}

// ratToDecimal converts a BigQuery NUMERIC value. NUMERIC carries at most
// nine fractional digits, so the conversion is exact.
func ratToDecimal(r *big.Rat) decimal.Decimal {
	return decimal.NewFromBigRat(r, 9)
}

var _ pipeline.LedgerStore = (*Repository)(nil)
