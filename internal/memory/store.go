// Package memory keeps per-session conversation history between runs.
package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/monomind/internal/domain"
)

// DefaultMaxMessages is how many messages a session keeps.
const DefaultMaxMessages = 20

// ErrInvalidSession is returned for empty session ids.
var ErrInvalidSession = errors.New("invalid session id")

// Store loads and saves the history of a session. A session with no stored
// history loads as an empty slice and no error.
type Store interface {
	Load(ctx context.Context, sessionID string) ([]domain.Message, error)
	Save(ctx context.Context, sessionID string, history []domain.Message) error
}

// Trim returns the newest max messages of history. A non-positive max keeps
// everything.
func Trim(history []domain.Message, max int) []domain.Message {
	if max <= 0 || len(history) <= max {
		return append([]domain.Message(nil), history...)
	}
	return append([]domain.Message(nil), history[len(history)-max:]...)
}

func checkSession(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSession)
	}
	return nil
}
