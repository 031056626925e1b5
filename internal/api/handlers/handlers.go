// Package handlers implements the HTTP endpoints of the assistant.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dvloznov/monomind/internal/api/middleware"
	"github.com/dvloznov/monomind/internal/chat"
	"github.com/dvloznov/monomind/internal/domain"
	"github.com/dvloznov/monomind/internal/infra/postgres"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

// ChatService answers chat messages.
type ChatService interface {
	Ask(ctx context.Context, req chat.Request) (chat.Response, error)
}

// UserStore creates users and ledger entries. Only the Postgres ledger
// implements it.
type UserStore interface {
	CreateUser(ctx context.Context, email string) (domain.User, error)
	GetUser(ctx context.Context, id int64) (domain.User, error)
	CreateTransaction(ctx context.Context, in postgres.TransactionInput) (postgres.StoredTransaction, error)
}

// HealthHandler reports liveness.
type HealthHandler struct {
	service string
	now     func() time.Time
}

// NewHealthHandler creates a health handler for service.
func NewHealthHandler(service string) *HealthHandler {
	return &HealthHandler{service: service, now: time.Now}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": h.service,
		"time":    h.now().UTC().Format(time.RFC3339),
	})
}

var errUserIDParam = errors.New("user_id must be a positive integer")

// userIDParam reads the {user_id} path parameter.
func userIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "user_id")
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("%w: %q", errUserIDParam, raw)
	}
	return userID, nil
}

// decodeJSON reads a bounded JSON body into v. Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
