package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fixwise/fixwise/internal/api"
	"github.com/fixwise/fixwise/internal/domain"
	"github.com/fixwise/fixwise/internal/service"
)

type InteractionService interface {
	Log(ctx context.Context, input service.LogInteractionInput) (*domain.InteractionLog, error)
}

type InteractionHandler struct {
	svc InteractionService
}

func NewInteractionHandler(svc InteractionService) *InteractionHandler {
	return &InteractionHandler{svc: svc}
}

type LogInteractionRequest struct {
	Query      string  `json:"query"`
	Answer     string  `json:"answer"`
	Source     string  `json:"source"`
	Confidence float32 `json:"confidence"`
	// Accepted for wire compatibility; the log timestamp is always
	// assigned server-side.
	Timestamp string `json:"timestamp"`
}

type LogInteractionResponse struct {
	Status string `json:"status"`
	LogID  string `json:"log_id"`
}

// Log answers POST /log_interaction: append-only audit record of one
// answered query.
func (h *InteractionHandler) Log(w http.ResponseWriter, r *http.Request) {
	var req LogInteractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.svc.Log(r.Context(), service.LogInteractionInput{
		Query:      req.Query,
		Answer:     req.Answer,
		Source:     req.Source,
		Confidence: req.Confidence,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusCreated, LogInteractionResponse{
		Status: "logged",
		LogID:  entry.ID,
	})
}
