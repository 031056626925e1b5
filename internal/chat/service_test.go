package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/monomind/internal/domain"
	"github.com/dvloznov/monomind/internal/memory"
	"github.com/dvloznov/monomind/internal/pipeline"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type runnerFunc func(ctx context.Context, state *pipeline.State) error

func (f runnerFunc) Run(ctx context.Context, state *pipeline.State) error {
	return f(ctx, state)
}

// echoRunner answers with the number of messages it saw.
func echoRunner() runnerFunc {
	return func(ctx context.Context, state *pipeline.State) error {
		state.Intent = domain.IntentGeneralChat
		state.Trace = append(state.Trace, pipeline.StageClassifyIntent, pipeline.StageComposeResponse)
		state.Response = fmt.Sprintf("seen %d messages", len(state.Messages))
		return nil
	}
}

type recorderStub struct {
	mu      sync.Mutex
	records []domain.RunRecord
}

func (r *recorderStub) Record(_ context.Context, rec domain.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Load(ctx context.Context, sessionID string) ([]domain.Message, error) {
	args := m.Called(ctx, sessionID)
	msgs, _ := args.Get(0).([]domain.Message)
	return msgs, args.Error(1)
}

func (m *mockStore) Save(ctx context.Context, sessionID string, history []domain.Message) error {
	args := m.Called(ctx, sessionID, history)
	return args.Error(0)
}

func newService(t *testing.T, runner Runner, store memory.Store, rec Recorder, opts Options) *Service {
	t.Helper()
	n := 0
	if opts.NewID == nil {
		opts.NewID = func() string {
			n++
			return fmt.Sprintf("run-%d", n)
		}
	}
	svc, err := NewService(runner, store, rec, opts)
	require.NoError(t, err)
	return svc
}

func TestAskValidation(t *testing.T) {
	svc := newService(t, echoRunner(), nil, nil, Options{MaxMessageLength: 10})
	ctx := context.Background()

	for name, req := range map[string]Request{
		"zero user":     {UserID: 0, Message: "hi"},
		"empty":         {UserID: 1, Message: "   "},
		"too long":      {UserID: 1, Message: "0123456789a"},
		"negative user": {UserID: -4, Message: "hi"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Ask(ctx, req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestAskKeepsHistoryPerSession(t *testing.T) {
	store := memory.NewInMemoryStore()
	svc := newService(t, echoRunner(), store, nil, Options{})
	ctx := context.Background()

	first, err := svc.Ask(ctx, Request{UserID: 7, Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "user-7", first.SessionID)
	assert.Equal(t, "seen 1 messages", first.Response)

	second, err := svc.Ask(ctx, Request{UserID: 7, Message: "and now?"})
	require.NoError(t, err)
	assert.Equal(t, "seen 3 messages", second.Response)

	other, err := svc.Ask(ctx, Request{UserID: 7, SessionID: "work", Message: "fresh"})
	require.NoError(t, err)
	assert.Equal(t, "seen 1 messages", other.Response)

	history, err := store.Load(ctx, "user-7")
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, domain.RoleAssistant, history[3].Role)
	assert.Equal(t, "seen 3 messages", history[3].Content)
}

func TestAskTrimsHistory(t *testing.T) {
	store := memory.NewInMemoryStore()
	svc := newService(t, echoRunner(), store, nil, Options{MaxHistory: 2})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Ask(ctx, Request{UserID: 1, Message: "msg"})
		require.NoError(t, err)
	}
	history, err := store.Load(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestAskStatelessWithoutMemory(t *testing.T) {
	svc := newService(t, echoRunner(), nil, nil, Options{})
	for i := 0; i < 2; i++ {
		resp, err := svc.Ask(context.Background(), Request{UserID: 1, Message: "hi"})
		require.NoError(t, err)
		assert.Equal(t, "seen 1 messages", resp.Response)
	}
}

func TestAskLoadFailureRunsStatelessAndSkipsSave(t *testing.T) {
	store := &mockStore{}
	store.On("Load", mock.Anything, "user-1").Return(nil, errors.New("gcs down"))

	svc := newService(t, echoRunner(), store, nil, Options{})
	resp, err := svc.Ask(context.Background(), Request{UserID: 1, Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "seen 1 messages", resp.Response)

	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestAskSaveFailureStillAnswers(t *testing.T) {
	store := &mockStore{}
	store.On("Load", mock.Anything, "user-1").Return([]domain.Message{}, nil)
	store.On("Save", mock.Anything, "user-1", mock.Anything).Return(errors.New("disk full"))

	svc := newService(t, echoRunner(), store, nil, Options{})
	resp, err := svc.Ask(context.Background(), Request{UserID: 1, Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "seen 1 messages", resp.Response)
	store.AssertExpectations(t)
}

func TestAskFatalFailure(t *testing.T) {
	store := memory.NewInMemoryStore()
	rec := &recorderStub{}
	runner := runnerFunc(func(ctx context.Context, state *pipeline.State) error {
		state.Intent = domain.IntentGetBalance
		state.Trace = append(state.Trace, pipeline.StageClassifyIntent)
		return &pipeline.RunError{Stage: pipeline.StageFetchLedger, Err: pipeline.ErrLedgerFetch}
	})
	svc := newService(t, runner, store, rec, Options{})

	resp, err := svc.Ask(context.Background(), Request{UserID: 3, Message: "balance?"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, pipeline.ErrLedgerFetch)
	assert.Empty(t, resp.Response)
	assert.Equal(t, "run-1", resp.RunID)

	history, err := store.Load(context.Background(), "user-3")
	require.NoError(t, err)
	assert.Empty(t, history, "failed runs are not remembered")

	require.Len(t, rec.records, 1)
	r := rec.records[0]
	assert.Equal(t, domain.RunFailed, r.Status)
	assert.Equal(t, "ledger_fetch", r.Failure)
	assert.Equal(t, []string{"CLASSIFY_INTENT"}, r.Stages)
}

func TestAskRecordsMetricsAndVerdict(t *testing.T) {
	rec := &recorderStub{}
	runner := runnerFunc(func(ctx context.Context, state *pipeline.State) error {
		state.Intent = domain.IntentEvaluatePurchase
		state.Metrics = &domain.FinancialMetrics{
			Balance:       decimal.NewFromInt(650),
			BurnRate:      decimal.NewFromInt(350),
			MonthlyIncome: decimal.NewFromInt(1000),
			RunwayMonths:  decimal.NewFromInt(650).Div(decimal.NewFromInt(350)),
		}
		state.Verdict = &domain.RiskVerdict{IsRisky: true, Reason: domain.ReasonCriticalFunds}
		state.Degraded = append(state.Degraded, "market_lookup")
		state.Response = "no"
		return nil
	})
	svc := newService(t, runner, nil, rec, Options{})

	resp, err := svc.Ask(context.Background(), Request{UserID: 1, Message: "buy tv for 900"})
	require.NoError(t, err)
	assert.Equal(t, domain.IntentEvaluatePurchase, resp.Intent)
	assert.Equal(t, []string{"market_lookup"}, resp.Degraded)

	require.Len(t, rec.records, 1)
	r := rec.records[0]
	assert.Equal(t, domain.RunSucceeded, r.Status)
	assert.Equal(t, domain.ReasonCriticalFunds, r.Reason)
	assert.True(t, r.IsRisky)
	require.NotNil(t, r.Balance)
	assert.True(t, r.Balance.Equal(decimal.NewFromInt(650)))
	assert.Equal(t, "1.857", r.RunwayMonths.StringFixed(3))
}

func TestAskRunTimeout(t *testing.T) {
	runner := runnerFunc(func(ctx context.Context, state *pipeline.State) error {
		<-ctx.Done()
		return &pipeline.RunError{Stage: pipeline.StageClassifyIntent, Err: fmt.Errorf("%w: %v", pipeline.ErrTimeout, ctx.Err())}
	})
	svc := newService(t, runner, nil, nil, Options{RunTimeout: 20 * time.Millisecond})

	_, err := svc.Ask(context.Background(), Request{UserID: 1, Message: "hi"})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, pipeline.ErrTimeout)
}

func TestAskSerialisesSameSession(t *testing.T) {
	var active, maxActive atomic.Int32
	runner := runnerFunc(func(ctx context.Context, state *pipeline.State) error {
		n := active.Add(1)
		defer active.Add(-1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		state.Response = "ok"
		return nil
	})

	var mu sync.Mutex
	ids := 0
	svc := newService(t, runner, memory.NewInMemoryStore(), nil, Options{NewID: func() string {
		mu.Lock()
		defer mu.Unlock()
		ids++
		return fmt.Sprintf("run-%d", ids)
	}})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Ask(context.Background(), Request{UserID: 9, Message: "hi"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, maxActive.Load())
}

func TestNewServiceRequiresRunner(t *testing.T) {
	_, err := NewService(nil, nil, nil, Options{})
	assert.Error(t, err)
}

func TestAskDoesNotDuplicateComposedAnswer(t *testing.T) {
	store := memory.NewInMemoryStore()
	runner := runnerFunc(func(ctx context.Context, state *pipeline.State) error {
		state.Response = "hello there"
		state.Messages = append(state.Messages, domain.Message{Role: domain.RoleAssistant, Content: state.Response})
		return nil
	})
	svc := newService(t, runner, store, nil, Options{})

	_, err := svc.Ask(context.Background(), Request{UserID: 2, Message: "hi"})
	require.NoError(t, err)

	history, err := store.Load(context.Background(), "user-2")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.RoleUser, history[0].Role)
	assert.Equal(t, "hello there", history[1].Content)
}
