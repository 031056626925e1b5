package pipeline

import (
	"strings"
	"time"

	"github.com/dvloznov/monomind/internal/domain"
)

// State accumulates facts during one run. It is owned by a single run and
// never shared between runs.
type State struct {
	RunID     string
	UserID    int64
	SessionID string

	// Messages is append-only: updates extend it, never replace it.
	Messages []domain.Message

	Intent        domain.Intent
	Snapshot      *domain.LedgerSnapshot
	Metrics       *domain.FinancialMetrics
	Purchase      *domain.PurchaseRequest
	MarketContext *string
	Verdict       *domain.RiskVerdict
	Response      string

	// Trace lists the stages executed so far, in order.
	Trace []Stage
	// Degraded lists collaborators whose failure was replaced by a safe default.
	Degraded []string
}

// NewState starts a run for userID with the prior history and the new user message.
func NewState(runID string, userID int64, sessionID string, history []domain.Message, query string, now time.Time) *State {
	msgs := make([]domain.Message, 0, len(history)+1)
	msgs = append(msgs, history...)
	msgs = append(msgs, domain.Message{Role: domain.RoleUser, Content: query, CreatedAt: now})

	return &State{
		RunID:     runID,
		UserID:    userID,
		SessionID: sessionID,
		Messages:  msgs,
		Intent:    domain.IntentGeneralChat,
	}
}

// LastUserMessage returns the content of the newest user message.
func (s *State) LastUserMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == domain.RoleUser {
			return strings.TrimSpace(s.Messages[i].Content)
		}
	}
	return ""
}

// History returns every message before the newest user message.
func (s *State) History() []domain.Message {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == domain.RoleUser {
			return append([]domain.Message(nil), s.Messages[:i]...)
		}
	}
	return append([]domain.Message(nil), s.Messages...)
}

// Update is the partial result of a stage. Nil fields leave the state
// untouched; Messages are appended.
type Update struct {
	Messages      []domain.Message
	Intent        *domain.Intent
	Snapshot      *domain.LedgerSnapshot
	Metrics       *domain.FinancialMetrics
	Purchase      *domain.PurchaseRequest
	MarketContext *string
	Verdict       *domain.RiskVerdict
	Response      *string
	Degraded      string
}

// apply merges u into s.
func (s *State) apply(u Update) {
	s.Messages = append(s.Messages, u.Messages...)
	if u.Intent != nil {
		s.Intent = *u.Intent
	}
	if u.Snapshot != nil {
		s.Snapshot = u.Snapshot
	}
	if u.Metrics != nil {
		s.Metrics = u.Metrics
	}
	if u.Purchase != nil {
		s.Purchase = u.Purchase
	}
	if u.MarketContext != nil {
		s.MarketContext = u.MarketContext
	}
	if u.Verdict != nil {
		s.Verdict = u.Verdict
	}
	if u.Response != nil {
		s.Response = *u.Response
	}
	if u.Degraded != "" {
		s.Degraded = append(s.Degraded, u.Degraded)
	}
}

// snapshot returns a copy safe to hand to a collaborator.
func (s *State) snapshot() State {
	cp := *s
	cp.Messages = append([]domain.Message(nil), s.Messages...)
	cp.Trace = append([]Stage(nil), s.Trace...)
	cp.Degraded = append([]string(nil), s.Degraded...)
	return cp
}

func ptr[T any](v T) *T {
	return &v
}
