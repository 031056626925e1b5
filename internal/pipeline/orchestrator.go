package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/monomind/internal/logger"
	"github.com/dvloznov/monomind/internal/risk"
)

// StageFunc executes one stage and returns the facts it produced.
type StageFunc func(ctx context.Context, state *State) (Update, error)

// Dependencies are the external collaborators of a run.
type Dependencies struct {
	Classifier IntentClassifier
	Ledger     LedgerStore
	Extractor  PurchaseExtractor
	Market     MarketContextProvider
	Composer   ResponseComposer
}

// Options tune the orchestrator. Zero values fall back to defaults.
type Options struct {
	Policy              risk.Policy
	CollaboratorTimeout time.Duration
	LedgerRetry         RetryPolicy
	MarketRetry         RetryPolicy
	Graph               *Graph
	Now                 func() time.Time
}

// DefaultOptions returns the standard options.
func DefaultOptions() Options {
	return Options{
		Policy:              risk.DefaultPolicy(),
		CollaboratorTimeout: DefaultCollaboratorTimeout,
		LedgerRetry:         RetryPolicy{Attempts: DefaultLedgerAttempts, Backoff: DefaultRetryBackoff},
		MarketRetry:         RetryPolicy{Attempts: DefaultMarketAttempts, Backoff: DefaultRetryBackoff},
		Graph:               DefaultGraph(),
		Now:                 time.Now,
	}
}

// Orchestrator drives a State through the graph, one stage at a time.
// It holds no per-run data and is safe for concurrent use.
type Orchestrator struct {
	deps     Dependencies
	opts     Options
	assessor *risk.Assessor
	stages   map[Stage]StageFunc
}

// NewOrchestrator wires the collaborators into the default stage set.
func NewOrchestrator(deps Dependencies, opts Options) (*Orchestrator, error) {
	switch {
	case deps.Classifier == nil:
		return nil, errors.New("NewOrchestrator: intent classifier is required")
	case deps.Ledger == nil:
		return nil, errors.New("NewOrchestrator: ledger store is required")
	case deps.Extractor == nil:
		return nil, errors.New("NewOrchestrator: purchase extractor is required")
	case deps.Market == nil:
		return nil, errors.New("NewOrchestrator: market context provider is required")
	case deps.Composer == nil:
		return nil, errors.New("NewOrchestrator: response composer is required")
	}

	if opts.Policy.DTICritical.IsZero() {
		opts.Policy = risk.DefaultPolicy()
	}
	if opts.Graph == nil {
		opts.Graph = DefaultGraph()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	assessor, err := risk.NewAssessor(opts.Policy)
	if err != nil {
		return nil, fmt.Errorf("NewOrchestrator: %w", err)
	}

	o := &Orchestrator{deps: deps, opts: opts, assessor: assessor}
	o.stages = map[Stage]StageFunc{
		StageClassifyIntent:     o.classifyIntent,
		StageFetchLedger:        o.fetchLedger,
		StageComputeMetrics:     o.computeMetrics,
		StageExtractPurchase:    o.extractPurchase,
		StageFetchMarketContext: o.fetchMarketContext,
		StageAssessRisk:         o.assessRisk,
		StageComposeResponse:    o.composeResponse,
	}

	for _, s := range opts.Graph.Stages() {
		if s == StageEnd {
			continue
		}
		if _, ok := o.stages[s]; !ok {
			return nil, fmt.Errorf("NewOrchestrator: no stage function for %s", s)
		}
	}
	return o, nil
}

// Run executes the graph from its entry stage until END or the first fatal
// failure. The context is checked before every stage; once it is done no
// further collaborator is invoked.
func (o *Orchestrator) Run(ctx context.Context, state *State) error {
	log := logger.FromContext(ctx).With().
		Str("run_id", state.RunID).
		Int64("user_id", state.UserID).
		Logger()
	ctx = logger.WithContext(ctx, log)

	g := o.opts.Graph
	for cur := g.Entry(); cur != StageEnd; {
		if err := contextErr(ctx); err != nil {
			log.Warn().Err(err).Str("stage", string(cur)).Msg("Run stopped before stage")
			return &RunError{Stage: cur, Err: err}
		}

		start := time.Now()
		update, err := o.stages[cur](ctx, state)
		if err != nil {
			if cerr := contextErr(ctx); cerr != nil {
				err = fmt.Errorf("%w: %w", cerr, err)
			}
			log.Error().Err(err).Str("stage", string(cur)).Msg("Stage failed")
			return &RunError{Stage: cur, Err: err}
		}

		state.apply(update)
		state.Trace = append(state.Trace, cur)
		log.Debug().
			Str("stage", string(cur)).
			Dur("duration", time.Since(start)).
			Msg("Stage completed")

		next, err := g.Next(cur, state.Intent)
		if err != nil {
			return &RunError{Stage: cur, Err: err}
		}
		cur = next
	}

	log.Info().
		Str("intent", string(state.Intent)).
		Str("verdict", VerdictSummary(state.Verdict)).
		Strs("degraded", state.Degraded).
		Msg("Run completed")
	return nil
}

// call runs fn under the per-collaborator timeout.
func (o *Orchestrator) call(ctx context.Context, fn func(context.Context) error) error {
	if o.opts.CollaboratorTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.CollaboratorTimeout)
		defer cancel()
	}
	return fn(ctx)
}
