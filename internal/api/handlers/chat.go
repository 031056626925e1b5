package handlers

import (
	"errors"
	"net/http"

	"github.com/dvloznov/monomind/internal/api/middleware"
	"github.com/dvloznov/monomind/internal/chat"
	"github.com/dvloznov/monomind/internal/logger"
)

// UnavailableMessage is the only text a client sees for a fatal run failure.
const UnavailableMessage = "The assistant is temporarily unavailable. Please try again later."

// ChatHandler handles conversational requests.
type ChatHandler struct {
	service ChatService
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(service ChatService) *ChatHandler {
	return &ChatHandler{service: service}
}

// Ask handles POST /api/v1/chat
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req chat.Request
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.Ask(ctx, req)
	switch {
	case err == nil:
		middleware.WriteJSON(w, http.StatusOK, resp)
	case errors.Is(err, chat.ErrInvalidRequest):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Int64("user_id", req.UserID).Msg("Chat request failed")
		middleware.WriteError(w, http.StatusServiceUnavailable, UnavailableMessage)
	}
}
