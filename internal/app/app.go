// Package app builds the running assistant from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dvloznov/monomind/internal/api"
	"github.com/dvloznov/monomind/internal/chat"
	"github.com/dvloznov/monomind/internal/config"
	infrabq "github.com/dvloznov/monomind/internal/infra/bigquery"
	"github.com/dvloznov/monomind/internal/jobs"
	"github.com/dvloznov/monomind/internal/jobs/inmemory"
	"github.com/dvloznov/monomind/internal/llm"
	"github.com/dvloznov/monomind/internal/logger"
	"github.com/dvloznov/monomind/internal/market"
	"github.com/dvloznov/monomind/internal/memory"
	"github.com/dvloznov/monomind/internal/pipeline"
	"github.com/dvloznov/monomind/internal/risk"
	"github.com/rs/zerolog"
)

// App holds every long-lived component. Close releases them.
type App struct {
	Config       *config.Config
	Log          zerolog.Logger
	Ledger       *Ledger
	Assessor     *risk.Assessor
	Orchestrator *pipeline.Orchestrator
	Chat         *chat.Service
	Jobs         jobs.JobStore

	queue   *inmemory.Queue
	sink    jobs.RunSink
	closers []func() error
}

// New connects to every backend named by cfg. On error everything opened
// so far is closed again.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (_ *App, err error) {
	a := &App{Config: cfg, Log: log}
	defer func() {
		if err != nil {
			_ = a.closeAll()
		}
	}()

	policy, err := cfg.RiskPolicy()
	if err != nil {
		return nil, fmt.Errorf("risk policy: %w", err)
	}
	if a.Assessor, err = risk.NewAssessor(policy); err != nil {
		return nil, err
	}

	if a.Ledger, err = OpenLedger(ctx, cfg); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.Ledger.Close)

	model, err := llm.NewModel(ctx, llm.Config{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("language model: %w", err)
	}

	marketCache, err := market.NewCachedProvider(llm.NewMarketResearcher(model), market.Options{
		TTL:        cfg.Market.CacheTTL,
		MaxEntries: cfg.Market.CacheEntries,
	})
	if err != nil {
		return nil, fmt.Errorf("market cache: %w", err)
	}
	a.closers = append(a.closers, func() error { marketCache.Close(); return nil })

	a.Orchestrator, err = pipeline.NewOrchestrator(pipeline.Dependencies{
		Classifier: llm.NewClassifier(model),
		Ledger:     a.Ledger,
		Extractor:  llm.NewExtractor(model),
		Market:     marketCache,
		Composer:   llm.NewComposer(model, cfg.LLM.Temperature),
	}, pipeline.Options{
		Policy:              policy,
		CollaboratorTimeout: cfg.Pipeline.CollaboratorTimeout,
		LedgerRetry:         pipeline.RetryPolicy{Attempts: cfg.Pipeline.LedgerAttempts, Backoff: cfg.Pipeline.RetryBackoff},
		MarketRetry:         pipeline.RetryPolicy{Attempts: cfg.Pipeline.MarketAttempts, Backoff: cfg.Pipeline.RetryBackoff},
	})
	if err != nil {
		return nil, err
	}

	store, err := a.openMemory(ctx)
	if err != nil {
		return nil, err
	}

	if err := a.openAudit(ctx); err != nil {
		return nil, err
	}
	jobStore := inmemory.NewStore()
	a.Jobs = jobStore
	a.queue = inmemory.NewQueue(inmemory.Options{
		BufferSize:   cfg.Jobs.BufferSize,
		Workers:      cfg.Jobs.Workers,
		RetryBackoff: cfg.Jobs.RetryBackoff,
	}, jobStore)

	a.Chat, err = chat.NewService(a.Orchestrator, store, jobs.NewRunRecorder(a.queue, cfg.Jobs.MaxRetries), chat.Options{
		RunTimeout: cfg.Pipeline.RunTimeout,
		MaxHistory: cfg.Memory.MaxMessages,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("ledger", cfg.Ledger.Backend).
		Str("memory", cfg.Memory.Backend).
		Str("llm_provider", cfg.LLM.Provider).
		Str("llm_model", cfg.LLM.Model).
		Bool("bigquery_audit", a.sink != nil).
		Msg("Application initialised")
	return a, nil
}

// openMemory returns the conversation store, or nil for stateless chat.
func (a *App) openMemory(ctx context.Context) (memory.Store, error) {
	cfg := a.Config.Memory
	switch cfg.Backend {
	case config.MemoryNone:
		return nil, nil
	case config.MemoryInMemory:
		return memory.NewInMemoryStore(), nil
	case config.MemorySQLite:
		s, err := memory.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite memory: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	case config.MemoryGCS:
		s, err := memory.NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSPrefix)
		if err != nil {
			return nil, fmt.Errorf("gcs memory: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	default:
		return nil, fmt.Errorf("%w: memory backend %q", config.ErrInvalidConfig, cfg.Backend)
	}
}

// openAudit selects where run records are persisted. The BigQuery ledger
// repository is reused when it is already open.
func (a *App) openAudit(ctx context.Context) error {
	if !a.Config.BigQuery.Audit {
		return nil
	}
	if repo := a.Ledger.BigQuery(); repo != nil {
		a.sink = repo
		return nil
	}
	repo, err := infrabq.NewRepository(ctx, a.Config.BigQuery.ProjectID, a.Config.BigQuery.Dataset)
	if err != nil {
		return fmt.Errorf("bigquery audit: %w", err)
	}
	a.closers = append(a.closers, repo.Close)
	a.sink = repo
	return nil
}

// Start launches the background job workers.
func (a *App) Start(ctx context.Context) error {
	ctx = logger.WithContext(ctx, a.Log.With().Str("component", "jobs").Logger())
	return a.queue.Start(ctx, jobs.NewRecordRunHandler(a.sink))
}

// Router returns the HTTP handler for the API.
func (a *App) Router() http.Handler {
	deps := api.Dependencies{
		Chat:     a.Chat,
		Ledger:   a.Ledger,
		Assessor: a.Assessor,
		Jobs:     a.Jobs,
	}
	if repo := a.Ledger.Postgres(); repo != nil {
		deps.Users = repo
	}
	return api.NewRouter(a.Log, deps, api.Options{CORSOrigin: a.Config.Server.CORSOrigin})
}

// Close drains the job queue, then closes every backend in reverse order.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.queue != nil {
		if err := a.queue.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop job queue: %w", err))
		}
	}
	if err := a.closeAll(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) closeAll() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
