package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/monomind/internal/domain"
	"github.com/shopspring/decimal"
)

// TransactionInput is a new ledger entry for an existing user.
type TransactionInput struct {
	UserID      int64
	Amount      decimal.Decimal
	Currency    string
	Type        domain.TransactionType
	Description string
	// Timestamp defaults to now when zero.
	Timestamp time.Time
}

// StoredTransaction is a persisted transaction with its keys.
type StoredTransaction struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"user_id"`
	domain.Transaction
}

// CreateTransaction validates and inserts a transaction.
func (r *LedgerRepository) CreateTransaction(ctx context.Context, in TransactionInput) (StoredTransaction, error) {
	ts := in.Timestamp
	if ts.IsZero() {
		ts = r.now()
	}
	tx, err := domain.NewTransaction(in.Amount, in.Currency, in.Type, in.Description, ts.UTC())
	if err != nil {
		return StoredTransaction{}, fmt.Errorf("CreateTransaction: %w", err)
	}

	query := `
		INSERT INTO transactions (user_id, amount, currency, tx_type, description, timestamp)
		VALUES ($1, $2::numeric, $3, $4::transaction_type, NULLIF($5, ''), $6)
		RETURNING id
	`
	var id int64
	err = r.db.QueryRow(ctx, query,
		in.UserID,
		tx.Amount.String(),
		tx.Currency,
		string(tx.Type),
		tx.Description,
		tx.Timestamp,
	).Scan(&id)
	if err != nil {
		if pgErrorCode(err) == codeForeignKeyViolation {
			return StoredTransaction{}, fmt.Errorf("CreateTransaction: user %d: %w", in.UserID, ErrUserNotFound)
		}
		return StoredTransaction{}, fmt.Errorf("CreateTransaction: insert: %w", err)
	}

	return StoredTransaction{ID: id, UserID: in.UserID, Transaction: tx}, nil
}
