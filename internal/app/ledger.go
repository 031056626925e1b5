package app

import (
	"context"
	"fmt"

	"github.com/dvloznov/monomind/internal/config"
	"github.com/dvloznov/monomind/internal/domain"
	infrabq "github.com/dvloznov/monomind/internal/infra/bigquery"
	"github.com/dvloznov/monomind/internal/infra/postgres"
	"github.com/dvloznov/monomind/internal/pipeline"
)

// Ledger is the configured ledger backend. Exactly one of the repositories
// is set.
type Ledger struct {
	pg    *postgres.LedgerRepository
	bq    *infrabq.Repository
	close func() error
}

// OpenLedger connects to the backend selected by cfg.Ledger.Backend.
func OpenLedger(ctx context.Context, cfg *config.Config) (*Ledger, error) {
	if err := cfg.ValidateLedger(); err != nil {
		return nil, err
	}

	switch cfg.Ledger.Backend {
	case config.LedgerBigQuery:
		repo, err := infrabq.NewRepository(ctx, cfg.BigQuery.ProjectID, cfg.BigQuery.Dataset)
		if err != nil {
			return nil, fmt.Errorf("bigquery ledger: %w", err)
		}
		return &Ledger{bq: repo, close: repo.Close}, nil
	default:
		pool, err := postgres.Connect(ctx, cfg.Ledger.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres ledger: %w", err)
		}
		return &Ledger{
			pg:    postgres.NewLedgerRepository(pool),
			close: func() error { pool.Close(); return nil },
		}, nil
	}
}

// FetchSnapshot implements pipeline.LedgerStore.
func (l *Ledger) FetchSnapshot(ctx context.Context, userID int64) (domain.LedgerSnapshot, error) {
	if l.bq != nil {
		return l.bq.FetchSnapshot(ctx, userID)
	}
	return l.pg.FetchSnapshot(ctx, userID)
}

// Postgres returns the Postgres repository, or nil for other backends.
func (l *Ledger) Postgres() *postgres.LedgerRepository {
	return l.pg
}

// BigQuery returns the BigQuery repository, or nil for other backends.
func (l *Ledger) BigQuery() *infrabq.Repository {
	return l.bq
}

// Close releases the backend connection.
func (l *Ledger) Close() error {
	if l.close == nil {
		return nil
	}
	return l.close()
}

var _ pipeline.LedgerStore = (*Ledger)(nil)
