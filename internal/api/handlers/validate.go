package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fixwise/fixwise/internal/api"
	"github.com/fixwise/fixwise/internal/service"
)

type AnswerValidator interface {
	Validate(ctx context.Context, question, answer string, items []*service.FusedContextItem) *service.ValidationResult
}

type ValidateHandler struct {
	validator AnswerValidator
}

func NewValidateHandler(validator AnswerValidator) *ValidateHandler {
	return &ValidateHandler{validator: validator}
}

// sourceConfidenceBoost is the fixed per-source trust table applied to
// validated answers.
var sourceConfidenceBoost = map[string]float32{
	"manual_knowledge": 0.9,
	"ai_memory":        0.7,
	"fallback":         0.1,
}

const defaultConfidenceBoost float32 = 0.5

type ValidateAnswerRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Source   string `json:"source"`
}

type ValidateAnswerResponse struct {
	IsValid         bool     `json:"is_valid"`
	OverallScore    float32  `json:"overall_score"`
	Completeness    float32  `json:"completeness_score"`
	Accuracy        float32  `json:"accuracy_score"`
	Relevance       float32  `json:"relevance_score"`
	ConfidenceBoost float32  `json:"confidence_boost"`
	Suggestions     []string `json:"suggestions"`
}

// Validate answers POST /validate_answer: standalone quality assessment of a
// question/answer pair, without retrieval context.
func (h *ValidateHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Question == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}
	if req.Answer == "" {
		api.Error(w, http.StatusBadRequest, "answer is required")
		return
	}

	result := h.validator.Validate(r.Context(), req.Question, req.Answer, nil)

	boost, ok := sourceConfidenceBoost[req.Source]
	if !ok {
		boost = defaultConfidenceBoost
	}

	api.JSON(w, http.StatusOK, ValidateAnswerResponse{
		IsValid:         result.IsValid,
		OverallScore:    result.OverallScore,
		Completeness:    result.Criteria.Completeness,
		Accuracy:        result.Criteria.Accuracy,
		Relevance:       result.Criteria.Relevance,
		ConfidenceBoost: boost,
		Suggestions:     result.Suggestions,
	})
}
