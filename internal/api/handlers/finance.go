package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/dvloznov/monomind/internal/api/middleware"
	"github.com/dvloznov/monomind/internal/domain"
	"github.com/dvloznov/monomind/internal/logger"
	"github.com/dvloznov/monomind/internal/metrics"
	"github.com/dvloznov/monomind/internal/pipeline"
	"github.com/dvloznov/monomind/internal/risk"
	"github.com/shopspring/decimal"
)

// FinanceHandler serves the deterministic metrics and risk endpoints.
// Nothing here calls a language model.
type FinanceHandler struct {
	ledger   pipeline.LedgerStore
	assessor *risk.Assessor
}

// NewFinanceHandler creates a new finance handler.
func NewFinanceHandler(ledger pipeline.LedgerStore, assessor *risk.Assessor) *FinanceHandler {
	return &FinanceHandler{ledger: ledger, assessor: assessor}
}

// MetricsResponse is the body of GET /api/v1/users/{user_id}/metrics.
type MetricsResponse struct {
	UserID       int64                   `json:"user_id"`
	Transactions int                     `json:"transactions"`
	Metrics      domain.FinancialMetrics `json:"metrics"`
	FreeCashFlow decimal.Decimal         `json:"free_cash_flow"`
}

// AssessResponse is the body of POST /api/v1/users/{user_id}/assess.
type AssessResponse struct {
	UserID   int64                   `json:"user_id"`
	Purchase domain.PurchaseRequest  `json:"purchase"`
	Metrics  domain.FinancialMetrics `json:"metrics"`
	Verdict  domain.RiskVerdict      `json:"verdict"`
}

// Metrics handles GET /api/v1/users/{user_id}/metrics
func (h *FinanceHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	snapshot, m, ok := h.compute(r.Context(), w, userID)
	if !ok {
		return
	}

	middleware.WriteJSON(w, http.StatusOK, MetricsResponse{
		UserID:       userID,
		Transactions: snapshot.Len(),
		Metrics:      m,
		FreeCashFlow: m.FreeCashFlow(),
	})
}

// Assess handles POST /api/v1/users/{user_id}/assess
func (h *FinanceHandler) Assess(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req domain.PurchaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	req = normalizePurchase(req)
	if err := req.Validate(); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	_, m, ok := h.compute(r.Context(), w, userID)
	if !ok {
		return
	}

	verdict, err := h.assessor.Assess(req, risk.PositionFromMetrics(m))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPurchase) {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Int64("user_id", userID).Msg("Risk assessment failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to assess purchase")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, AssessResponse{
		UserID:   userID,
		Purchase: req,
		Metrics:  m,
		Verdict:  verdict,
	})
}

func (h *FinanceHandler) compute(ctx context.Context, w http.ResponseWriter, userID int64) (domain.LedgerSnapshot, domain.FinancialMetrics, bool) {
	snapshot, err := h.ledger.FetchSnapshot(ctx, userID)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to fetch ledger")
		middleware.WriteError(w, http.StatusServiceUnavailable, "Failed to fetch ledger")
		return domain.LedgerSnapshot{}, domain.FinancialMetrics{}, false
	}
	return snapshot, metrics.Compute(snapshot), true
}

// normalizePurchase fills the defaults a client may omit. An explicit
// credit term below one month stays invalid.
func normalizePurchase(req domain.PurchaseRequest) domain.PurchaseRequest {
	months := req.CreditMonths
	req = req.Normalized()
	if months < 0 {
		req.CreditMonths = months
	}
	return req
}
