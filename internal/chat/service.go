// Package chat answers user messages by running the pipeline with
// per-session memory and an audit record for every run.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/monomind/internal/domain"
	"github.com/dvloznov/monomind/internal/id"
	"github.com/dvloznov/monomind/internal/logger"
	"github.com/dvloznov/monomind/internal/memory"
	"github.com/dvloznov/monomind/internal/pipeline"
)

const (
	DefaultRunTimeout       = 2 * time.Minute
	DefaultMaxMessageLength = 4000
)

var (
	// ErrInvalidRequest is returned for requests that fail validation.
	ErrInvalidRequest = errors.New("invalid chat request")
	// ErrUnavailable wraps every fatal run failure. Callers show one
	// generic message for it.
	ErrUnavailable = errors.New("assistant unavailable")
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, state *pipeline.State) error
}

// Recorder receives the audit record of every run.
type Recorder interface {
	Record(ctx context.Context, rec domain.RunRecord) error
}

// Request is one user message.
type Request struct {
	UserID    int64  `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// Response is the answer to a Request.
type Response struct {
	RunID     string        `json:"run_id"`
	SessionID string        `json:"session_id"`
	Intent    domain.Intent `json:"intent"`
	Response  string        `json:"response"`
	Degraded  []string      `json:"degraded,omitempty"`
}

// Options tune the Service. Zero values fall back to defaults.
type Options struct {
	RunTimeout       time.Duration
	MaxHistory       int
	MaxMessageLength int
	Now              func() time.Time
	NewID            func() string
}

// Service answers chat requests. A nil memory store makes every request
// stateless; a nil recorder drops audit records.
type Service struct {
	runner   Runner
	memory   memory.Store
	locks    *memory.SessionLocks
	recorder Recorder
	opts     Options
}

// NewService creates a Service around runner.
func NewService(runner Runner, store memory.Store, recorder Recorder, opts Options) (*Service, error) {
	if runner == nil {
		return nil, errors.New("NewService: runner is required")
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = DefaultRunTimeout
	}
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = memory.DefaultMaxMessages
	}
	if opts.MaxMessageLength <= 0 {
		opts.MaxMessageLength = DefaultMaxMessageLength
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = id.New
	}

	return &Service{
		runner:   runner,
		memory:   store,
		locks:    memory.NewSessionLocks(),
		recorder: recorder,
		opts:     opts,
	}, nil
}

// DefaultSessionID is the session used when a request names none.
func DefaultSessionID(userID int64) string {
	return fmt.Sprintf("user-%d", userID)
}

// Validate checks req and fills in defaults.
func (s *Service) Validate(req Request) (Request, error) {
	req.Message = strings.TrimSpace(req.Message)
	req.SessionID = strings.TrimSpace(req.SessionID)

	switch {
	case req.UserID <= 0:
		return req, fmt.Errorf("%w: user_id must be positive", ErrInvalidRequest)
	case req.Message == "":
		return req, fmt.Errorf("%w: message is empty", ErrInvalidRequest)
	case len(req.Message) > s.opts.MaxMessageLength:
		return req, fmt.Errorf("%w: message longer than %d characters", ErrInvalidRequest, s.opts.MaxMessageLength)
	}

	if req.SessionID == "" {
		req.SessionID = DefaultSessionID(req.UserID)
	}
	return req, nil
}

// Ask runs the pipeline for one message.
func (s *Service) Ask(ctx context.Context, req Request) (Response, error) {
	req, err := s.Validate(req)
	if err != nil {
		return Response{}, err
	}

	runID := s.opts.NewID()
	log := logger.FromContext(ctx).With().
		Str("run_id", runID).
		Int64("user_id", req.UserID).
		Str("session_id", req.SessionID).
		Logger()
	ctx = logger.WithContext(ctx, log)

	ctx, cancel := context.WithTimeout(ctx, s.opts.RunTimeout)
	defer cancel()

	var (
		history []domain.Message
		persist bool
	)
	if s.memory != nil {
		unlock, err := s.locks.Lock(ctx, req.SessionID)
		if err != nil {
			return Response{RunID: runID, SessionID: req.SessionID},
				fmt.Errorf("%w: waiting for session: %w", ErrUnavailable, err)
		}
		defer unlock()

		history, persist = s.loadHistory(ctx, req.SessionID)
	}

	started := s.opts.Now()
	state := pipeline.NewState(runID, req.UserID, req.SessionID, history, req.Message, started)
	runErr := s.runner.Run(ctx, state)
	finished := s.opts.Now()

	s.record(ctx, newRunRecord(state, runErr, started, finished))

	resp := Response{
		RunID:     runID,
		SessionID: req.SessionID,
		Intent:    state.Intent,
		Degraded:  append([]string(nil), state.Degraded...),
	}
	if runErr != nil {
		log.Error().Err(runErr).Str("failure", pipeline.FailureKind(runErr)).Msg("Chat run failed")
		return resp, fmt.Errorf("%w: %w", ErrUnavailable, runErr)
	}
	resp.Response = state.Response

	if persist {
		if err := s.memory.Save(ctx, req.SessionID, memory.Trim(withAnswer(state.Messages, state.Response, finished), s.opts.MaxHistory)); err != nil {
			log.Warn().Err(err).Msg("Failed to save conversation history")
		}
	}

	return resp, nil
}

// loadHistory returns the stored history and whether the session should be
// saved afterwards. A failed load runs statelessly and never overwrites
// what is stored.
func (s *Service) loadHistory(ctx context.Context, sessionID string) ([]domain.Message, bool) {
	history, err := s.memory.Load(ctx, sessionID)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Failed to load conversation history, continuing without it")
		return nil, false
	}
	return memory.Trim(history, s.opts.MaxHistory), true
}

func (s *Service) record(ctx context.Context, rec domain.RunRecord) {
	if s.recorder == nil {
		return
	}
	// The audit record is written even when the caller has gone away.
	if err := s.recorder.Record(context.WithoutCancel(ctx), rec); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Failed to record run")
	}
}

// withAnswer returns msgs ending with the assistant's answer, appending it
// unless the runner already did.
func withAnswer(msgs []domain.Message, answer string, at time.Time) []domain.Message {
	out := append([]domain.Message(nil), msgs...)
	if n := len(out); n > 0 && out[n-1].Role == domain.RoleAssistant && out[n-1].Content == answer {
		return out
	}
	return append(out, domain.Message{Role: domain.RoleAssistant, Content: answer, CreatedAt: at})
}
