package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/monomind/internal/domain"
	"github.com/dvloznov/monomind/internal/pipeline"
	"github.com/shopspring/decimal"
)

// LedgerRepository reads and writes the users and transactions tables.
type LedgerRepository struct {
	db  querier
	now func() time.Time
}

// NewLedgerRepository creates a LedgerRepository over pool.
func NewLedgerRepository(pool querier) *LedgerRepository {
	return &LedgerRepository{db: pool, now: time.Now}
}

const fetchTransactionsSQL = `
	SELECT amount::text, currency, tx_type::text, COALESCE(description, ''), timestamp
	FROM transactions
	WHERE user_id = $1
	ORDER BY timestamp, id
`

// FetchSnapshot implements pipeline.LedgerStore. A user with no rows gets an
// empty snapshot. Any malformed row fails the whole fetch.
func (r *LedgerRepository) FetchSnapshot(ctx context.Context, userID int64) (domain.LedgerSnapshot, error) {
	rows, err := r.db.Query(ctx, fetchTransactionsSQL, userID)
	if err != nil {
		return domain.LedgerSnapshot{}, fmt.Errorf("FetchSnapshot: query: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var (
			amount, cur, txType, desc string
			ts                        time.Time
		)
		if err := rows.Scan(&amount, &cur, &txType, &desc, &ts); err != nil {
			return domain.LedgerSnapshot{}, fmt.Errorf("FetchSnapshot: scan: %w", err)
		}
		tx, err := rowToTransaction(amount, cur, txType, desc, ts)
		if err != nil {
			return domain.LedgerSnapshot{}, fmt.Errorf("FetchSnapshot: user %d: %w", userID, err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return domain.LedgerSnapshot{}, fmt.Errorf("FetchSnapshot: rows: %w", err)
	}

	return domain.NewLedgerSnapshot(userID, txs, r.now().UTC()), nil
}

// rowToTransaction converts raw column values into a validated Transaction.
func rowToTransaction(amount, cur, txType, desc string, ts time.Time) (domain.Transaction, error) {
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("%w: amount %q: %v", domain.ErrInvalidTransaction, amount, err)
	}
	t, err := domain.ParseTransactionType(txType)
	if err != nil {
		return domain.Transaction{}, err
	}
	return domain.NewTransaction(amt, cur, t, desc, ts.UTC())
}

var _ pipeline.LedgerStore = (*LedgerRepository)(nil)
