package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/dvloznov/monomind/internal/api/middleware"
	"github.com/dvloznov/monomind/internal/domain"
	"github.com/dvloznov/monomind/internal/infra/postgres"
	"github.com/dvloznov/monomind/internal/logger"
	"github.com/shopspring/decimal"
)

// LedgerHandler writes users and transactions.
type LedgerHandler struct {
	store UserStore
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(store UserStore) *LedgerHandler {
	return &LedgerHandler{store: store}
}

// CreateUserRequest is the body of POST /api/v1/users.
type CreateUserRequest struct {
	Email string `json:"email"`
}

// CreateTransactionRequest is the body of POST /api/v1/transactions.
type CreateTransactionRequest struct {
	UserID      int64           `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency,omitempty"`
	Type        string          `json:"tx_type"`
	Description string          `json:"description,omitempty"`
	Timestamp   *time.Time      `json:"timestamp,omitempty"`
}

// CreateUser handles POST /api/v1/users
func (h *LedgerHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.store.CreateUser(ctx, req.Email)
	switch {
	case err == nil:
		middleware.WriteJSON(w, http.StatusCreated, user)
	case errors.Is(err, postgres.ErrEmailTaken):
		middleware.WriteError(w, http.StatusBadRequest, "Email already registered")
	case errors.Is(err, postgres.ErrInvalidEmail):
		middleware.WriteError(w, http.StatusBadRequest, "Invalid email")
	default:
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to create user")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create user")
	}
}

// GetUser handles GET /api/v1/users/{user_id}
func (h *LedgerHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := userIDParam(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.store.GetUser(ctx, userID)
	switch {
	case err == nil:
		middleware.WriteJSON(w, http.StatusOK, user)
	case errors.Is(err, postgres.ErrUserNotFound):
		middleware.WriteError(w, http.StatusNotFound, "User not found")
	default:
		log := logger.FromContext(ctx)
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to get user")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get user")
	}
}

// CreateTransaction handles POST /api/v1/transactions
func (h *LedgerHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID <= 0 {
		middleware.WriteError(w, http.StatusBadRequest, errUserIDParam.Error())
		return
	}

	txType, err := domain.ParseTransactionType(req.Type)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	in := postgres.TransactionInput{
		UserID:      req.UserID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Type:        txType,
		Description: req.Description,
	}
	if req.Timestamp != nil {
		in.Timestamp = *req.Timestamp
	}

	stored, err := h.store.CreateTransaction(ctx, in)
	switch {
	case err == nil:
		middleware.WriteJSON(w, http.StatusCreated, stored)
	case errors.Is(err, postgres.ErrUserNotFound):
		middleware.WriteError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, domain.ErrInvalidTransaction):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		log := logger.FromContext(ctx)
		log.Error().Err(err).Int64("user_id", req.UserID).Msg("Failed to create transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create transaction")
	}
}
