package pipeline

import "time"

// Defaults for orchestrator options.
const (
	// DefaultCollaboratorTimeout bounds one call to an external collaborator.
	DefaultCollaboratorTimeout = 30 * time.Second

	// DefaultLedgerAttempts is the number of ledger fetch attempts.
	DefaultLedgerAttempts = 3

	// DefaultMarketAttempts is the number of market lookup attempts.
	DefaultMarketAttempts = 2

	// DefaultRetryBackoff is the wait before the first retry.
	DefaultRetryBackoff = 200 * time.Millisecond

	// NoMarketContext replaces the market lookup when it fails or is skipped.
	NoMarketContext = "No market data available."
)
