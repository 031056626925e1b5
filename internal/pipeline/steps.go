package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/monomind/internal/domain"
	"github.com/dvloznov/monomind/internal/logger"
	"github.com/dvloznov/monomind/internal/metrics"
	"github.com/dvloznov/monomind/internal/risk"
)

// Recovered collaborator failures, as recorded in State.Degraded.
const (
	DegradedClassification = "classification"
	DegradedExtraction     = "extraction"
	DegradedMarketLookup   = "market_lookup"
)

// Step 1: classifyIntent labels the newest user message. Any failure falls
// back to general chat.
func (o *Orchestrator) classifyIntent(ctx context.Context, state *State) (Update, error) {
	text := state.LastUserMessage()
	if text == "" {
		return Update{Intent: ptr(domain.IntentGeneralChat)}, nil
	}

	var intent domain.Intent
	err := o.call(ctx, func(ctx context.Context) error {
		var err error
		intent, err = o.deps.Classifier.Classify(ctx, text)
		return err
	})
	if err == nil && !intent.Valid() {
		err = fmt.Errorf("classifier returned unknown intent %q", intent)
	}
	if err != nil {
		if ctx.Err() != nil {
			return Update{}, err
		}
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Intent classification failed, using general chat")
		return Update{Intent: ptr(domain.IntentGeneralChat), Degraded: DegradedClassification}, nil
	}

	return Update{Intent: ptr(intent)}, nil
}

// Step 2: fetchLedger reads the user's transactions, retrying transient
// failures. Exhausted retries end the run.
func (o *Orchestrator) fetchLedger(ctx context.Context, state *State) (Update, error) {
	var snapshot domain.LedgerSnapshot
	err := retry(ctx, o.opts.LedgerRetry, func(ctx context.Context) error {
		return o.call(ctx, func(ctx context.Context) error {
			var err error
			snapshot, err = o.deps.Ledger.FetchSnapshot(ctx, state.UserID)
			return err
		})
	})
	if err != nil {
		return Update{}, fmt.Errorf("%w: %w", ErrLedgerFetch, err)
	}
	return Update{Snapshot: &snapshot}, nil
}

// Step 3: computeMetrics derives balance, burn rate, income and runway.
func (o *Orchestrator) computeMetrics(ctx context.Context, state *State) (Update, error) {
	if state.Snapshot == nil {
		return Update{}, fmt.Errorf("%w: metrics need a ledger snapshot", ErrInvalidState)
	}
	m := metrics.Compute(*state.Snapshot)
	return Update{Metrics: &m}, nil
}

// Step 4: extractPurchase turns the question into a purchase request. A
// failed or unusable extraction becomes the zero-priced placeholder.
func (o *Orchestrator) extractPurchase(ctx context.Context, state *State) (Update, error) {
	var req domain.PurchaseRequest
	err := o.call(ctx, func(ctx context.Context) error {
		var err error
		req, err = o.deps.Extractor.Extract(ctx, state.LastUserMessage())
		return err
	})
	if err == nil {
		req = req.Normalized()
		err = req.Validate()
	}
	if err != nil {
		if ctx.Err() != nil {
			return Update{}, err
		}
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Purchase extraction failed, using placeholder")
		return Update{Purchase: ptr(domain.PlaceholderPurchase()), Degraded: DegradedExtraction}, nil
	}
	return Update{Purchase: &req}, nil
}

// Step 5: fetchMarketContext looks up current prices for the item. Lookup
// failures leave a placeholder; placeholder items are not looked up.
func (o *Orchestrator) fetchMarketContext(ctx context.Context, state *State) (Update, error) {
	if state.Purchase == nil {
		return Update{}, fmt.Errorf("%w: market lookup needs a purchase request", ErrInvalidState)
	}
	if state.Purchase.IsPlaceholder() {
		return Update{MarketContext: ptr(NoMarketContext)}, nil
	}

	var text string
	err := retry(ctx, o.opts.MarketRetry, func(ctx context.Context) error {
		return o.call(ctx, func(ctx context.Context) error {
			var err error
			text, err = o.deps.Market.Lookup(ctx, state.Purchase.ItemName)
			return err
		})
	})
	if err != nil {
		if ctx.Err() != nil {
			return Update{}, err
		}
		log := logger.FromContext(ctx)
		log.Warn().Err(err).
			Str("item", state.Purchase.ItemName).
			Msg("Market lookup failed, using placeholder")
		return Update{MarketContext: ptr(NoMarketContext), Degraded: DegradedMarketLookup}, nil
	}

	text = strings.TrimSpace(text)
	if text == "" {
		text = NoMarketContext
	}
	return Update{MarketContext: &text}, nil
}

// Step 6: assessRisk applies the affordability rules.
func (o *Orchestrator) assessRisk(ctx context.Context, state *State) (Update, error) {
	if state.Metrics == nil || state.Purchase == nil {
		return Update{}, fmt.Errorf("%w: risk assessment needs metrics and a purchase request", ErrInvalidState)
	}
	verdict, err := o.assessor.Assess(*state.Purchase, risk.PositionFromMetrics(*state.Metrics))
	if err != nil {
		return Update{}, fmt.Errorf("assess purchase: %w", err)
	}
	return Update{Verdict: &verdict}, nil
}

// Step 7: composeResponse asks the composer for the final answer and records
// it in the conversation.
func (o *Orchestrator) composeResponse(ctx context.Context, state *State) (Update, error) {
	view := state.snapshot()

	var text string
	err := o.call(ctx, func(ctx context.Context) error {
		var err error
		text, err = o.deps.Composer.Compose(ctx, view)
		return err
	})
	if err != nil {
		return Update{}, fmt.Errorf("%w: %w", ErrCompose, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Update{}, fmt.Errorf("%w: empty response", ErrCompose)
	}

	return Update{
		Response: &text,
		Messages: []domain.Message{{Role: domain.RoleAssistant, Content: text, CreatedAt: o.opts.Now()}},
	}, nil
}
