package pipeline

import (
	"context"
	"sync/atomic"

	"github.com/dvloznov/monomind/internal/domain"
)

// MockClassifier is a mock implementation of IntentClassifier.
type MockClassifier struct {
	ClassifyFunc func(ctx context.Context, text string) (domain.Intent, error)
	calls        atomic.Int32
}

func (m *MockClassifier) Classify(ctx context.Context, text string) (domain.Intent, error) {
	m.calls.Add(1)
	return m.ClassifyFunc(ctx, text)
}

// MockLedger is a mock implementation of LedgerStore.
type MockLedger struct {
	FetchSnapshotFunc func(ctx context.Context, userID int64) (domain.LedgerSnapshot, error)
	calls             atomic.Int32
}

func (m *MockLedger) FetchSnapshot(ctx context.Context, userID int64) (domain.LedgerSnapshot, error) {
	m.calls.Add(1)
	return m.FetchSnapshotFunc(ctx, userID)
}

// MockExtractor is a mock implementation of PurchaseExtractor.
type MockExtractor struct {
	ExtractFunc func(ctx context.Context, text string) (domain.PurchaseRequest, error)
	calls       atomic.Int32
}

func (m *MockExtractor) Extract(ctx context.Context, text string) (domain.PurchaseRequest, error) {
	m.calls.Add(1)
	return m.ExtractFunc(ctx, text)
}

// MockMarket is a mock implementation of MarketContextProvider.
type MockMarket struct {
	LookupFunc func(ctx context.Context, itemName string) (string, error)
	calls      atomic.Int32
}

func (m *MockMarket) Lookup(ctx context.Context, itemName string) (string, error) {
	m.calls.Add(1)
	return m.LookupFunc(ctx, itemName)
}

// MockComposer is a mock implementation of ResponseComposer.
type MockComposer struct {
	ComposeFunc func(ctx context.Context, state State) (string, error)
	calls       atomic.Int32
}

func (m *MockComposer) Compose(ctx context.Context, state State) (string, error) {
	m.calls.Add(1)
	return m.ComposeFunc(ctx, state)
}
