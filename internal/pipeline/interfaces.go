package pipeline

import (
	"context"

	"github.com/dvloznov/monomind/internal/domain"
)

// IntentClassifier labels a user message with one intent of the closed set.
type IntentClassifier interface {
	Classify(ctx context.Context, text string) (domain.Intent, error)
}

// LedgerStore reads a user's transactions.
type LedgerStore interface {
	FetchSnapshot(ctx context.Context, userID int64) (domain.LedgerSnapshot, error)
}

// PurchaseExtractor turns a purchase question into a structured request.
type PurchaseExtractor interface {
	Extract(ctx context.Context, text string) (domain.PurchaseRequest, error)
}

// MarketContextProvider returns a short description of current market
// prices for an item.
type MarketContextProvider interface {
	Lookup(ctx context.Context, itemName string) (string, error)
}

// ResponseComposer writes the final answer from the populated state.
// Implementations must not alter the numeric facts they are given.
type ResponseComposer interface {
	Compose(ctx context.Context, state State) (string, error)
}
