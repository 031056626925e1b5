package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// TransactionType is the direction class of a ledger movement.
type TransactionType string

const (
	TransactionDeposit      TransactionType = "DEPOSIT"
	TransactionWithdrawal   TransactionType = "WITHDRAWAL"
	TransactionSubscription TransactionType = "SUBSCRIPTION"
)

const (
	// AmountScale is the number of decimal places a ledger amount may carry.
	AmountScale = 4
	// AmountPrecision is the total number of digits a ledger amount may carry.
	AmountPrecision = 14
	// DefaultCurrency is used when a transaction is created without one.
	DefaultCurrency = "USD"
	// MaxDescriptionLength matches the ledger column width.
	MaxDescriptionLength = 255
)

var (
	// ErrInvalidTransaction is returned when a transaction fails validation.
	ErrInvalidTransaction = errors.New("invalid transaction")

	maxAmount = decimal.New(1, AmountPrecision-AmountScale)
)

// ParseTransactionType parses a ledger type label, case-insensitively.
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(strings.ToUpper(strings.TrimSpace(s))); t {
	case TransactionDeposit, TransactionWithdrawal, TransactionSubscription:
		return t, nil
	default:
		return "", fmt.Errorf("%w: unknown type %q", ErrInvalidTransaction, s)
	}
}

// IsInflow reports whether the type adds to the balance.
func (t TransactionType) IsInflow() bool {
	return t == TransactionDeposit
}

// Transaction is one immutable ledger movement. Amounts are always
// non-negative; the direction comes from Type.
type Transaction struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Type        TransactionType `json:"tx_type"`
	Description string          `json:"description,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

// NewTransaction validates its inputs and returns a Transaction.
// An empty currency defaults to USD.
func NewTransaction(amount decimal.Decimal, cur string, txType TransactionType, description string, ts time.Time) (Transaction, error) {
	if amount.IsNegative() {
		return Transaction{}, fmt.Errorf("%w: amount %s is negative", ErrInvalidTransaction, amount)
	}
	if !amount.Equal(amount.Truncate(AmountScale)) {
		return Transaction{}, fmt.Errorf("%w: amount %s has more than %d decimal places", ErrInvalidTransaction, amount, AmountScale)
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return Transaction{}, fmt.Errorf("%w: amount %s exceeds %d digits", ErrInvalidTransaction, amount, AmountPrecision)
	}

	code, err := NormalizeCurrency(cur)
	if err != nil {
		return Transaction{}, err
	}

	if _, err := ParseTransactionType(string(txType)); err != nil {
		return Transaction{}, err
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return Transaction{}, fmt.Errorf("%w: description longer than %d characters", ErrInvalidTransaction, MaxDescriptionLength)
	}

	return Transaction{
		Amount:      amount,
		Currency:    code,
		Type:        txType,
		Description: description,
		Timestamp:   ts,
	}, nil
}

// NormalizeCurrency upper-cases and validates an ISO-4217 code.
func NormalizeCurrency(cur string) (string, error) {
	cur = strings.ToUpper(strings.TrimSpace(cur))
	if cur == "" {
		return DefaultCurrency, nil
	}
	if len(cur) != 3 {
		return "", fmt.Errorf("%w: currency %q is not a 3-letter code", ErrInvalidTransaction, cur)
	}
	unit, err := currency.ParseISO(cur)
	if err != nil {
		return "", fmt.Errorf("%w: currency %q: %v", ErrInvalidTransaction, cur, err)
	}
	return unit.String(), nil
}

// LedgerSnapshot is the read-only view of one user's transactions fetched
// for a single pipeline run.
type LedgerSnapshot struct {
	UserID    int64
	FetchedAt time.Time
	txs       []Transaction
}

// NewLedgerSnapshot copies txs into a new snapshot, preserving order.
func NewLedgerSnapshot(userID int64, txs []Transaction, fetchedAt time.Time) LedgerSnapshot {
	cp := make([]Transaction, len(txs))
	copy(cp, txs)
	return LedgerSnapshot{UserID: userID, FetchedAt: fetchedAt, txs: cp}
}

// Transactions returns a copy of the snapshot's transactions.
func (s LedgerSnapshot) Transactions() []Transaction {
	cp := make([]Transaction, len(s.txs))
	copy(cp, s.txs)
	return cp
}

// Len returns the number of transactions in the snapshot.
func (s LedgerSnapshot) Len() int {
	return len(s.txs)
}

// User owns zero or more ledger transactions.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
