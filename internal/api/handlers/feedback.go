package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fixwise/fixwise/internal/api"
	"github.com/fixwise/fixwise/internal/domain"
	"github.com/fixwise/fixwise/internal/service"
)

type FeedbackService interface {
	Submit(ctx context.Context, input service.SubmitInput) (*service.SubmitResult, error)
	SearchSimilar(ctx context.Context, question, brand, product string, limit int) ([]*service.SimilarIssue, error)
}

type FeedbackHandler struct {
	svc FeedbackService
}

func NewFeedbackHandler(svc FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{svc: svc}
}

type SourceRefRequest struct {
	Brand           string `json:"brand"`
	ProductCategory string `json:"product_category"`
	DocumentType    string `json:"document_type"`
	FileName        string `json:"file_name"`
}

type SubmitFeedbackRequest struct {
	UserQuestion         string             `json:"user_question"`
	OriginalAnswer       string             `json:"original_answer"`
	OriginalSources      []SourceRefRequest `json:"original_sources"`
	FeedbackType         string             `json:"feedback_type"`
	ManualSolution       string             `json:"manual_solution"`
	SupportAgent         string             `json:"support_agent"`
	Brand                string             `json:"brand"`
	ProductCategory      string             `json:"product_category"`
	IssueCategory        string             `json:"issue_category"`
	ResolutionMethod     string             `json:"resolution_method"`
	CustomerSatisfaction string             `json:"customer_satisfaction"`
	Tags                 []string           `json:"tags"`
	Notes                string             `json:"notes"`
}

type SubmitFeedbackResponse struct {
	Status     string `json:"status"`
	FeedbackID string `json:"feedback_id"`
	Promoted   bool   `json:"promoted"`
}

// Submit answers POST /feedback: one correction episode from a support agent.
// A failed ledger append is the only fatal outcome; promotion failure is
// reflected in promoted=false.
func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.UserQuestion == "" {
		api.Error(w, http.StatusBadRequest, "user_question is required")
		return
	}
	if req.FeedbackType == "" {
		api.Error(w, http.StatusBadRequest, "feedback_type is required")
		return
	}

	sources := make([]domain.SourceRef, len(req.OriginalSources))
	for i, src := range req.OriginalSources {
		sources[i] = domain.SourceRef{
			Brand:           src.Brand,
			ProductCategory: src.ProductCategory,
			DocumentType:    src.DocumentType,
			FileName:        src.FileName,
		}
	}

	input := service.SubmitInput{
		UserQuestion:    req.UserQuestion,
		OriginalAnswer:  req.OriginalAnswer,
		OriginalSources: sources,
		FeedbackType:    domain.FeedbackType(req.FeedbackType),
		ManualSolution:  req.ManualSolution,
		SupportAgent:    req.SupportAgent,
		Attributes: domain.EntryAttributes{
			Brand:            req.Brand,
			ProductCategory:  req.ProductCategory,
			IssueCategory:    req.IssueCategory,
			ResolutionMethod: req.ResolutionMethod,
		},
		CustomerSatisfaction: req.CustomerSatisfaction,
		Tags:                 req.Tags,
		Notes:                req.Notes,
	}

	result, err := h.svc.Submit(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, SubmitFeedbackResponse{
		Status:     "logged",
		FeedbackID: result.FeedbackID,
		Promoted:   result.Promoted,
	})
}

type SimilarIssueResponse struct {
	FeedbackID           string  `json:"feedback_id"`
	Question             string  `json:"question"`
	ManualSolution       string  `json:"manual_solution"`
	RelevanceScore       float32 `json:"relevance_score"`
	CreatedAt            string  `json:"created_at"`
	CustomerSatisfaction string  `json:"customer_satisfaction"`
}

type SimilarIssueListResponse struct {
	Items []*SimilarIssueResponse `json:"items"`
}

// SearchSimilar answers POST /feedback/similar: keyword-overlap search over
// the ledger for previously corrected issues resembling the given question.
func (h *FeedbackHandler) SearchSimilar(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question        string `json:"question"`
		Brand           string `json:"brand"`
		ProductCategory string `json:"product_category"`
		Limit           int    `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Question == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}

	limit := 5
	if req.Limit > 0 {
		limit = req.Limit
	}

	issues, err := h.svc.SearchSimilar(r.Context(), req.Question, req.Brand, req.ProductCategory, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*SimilarIssueResponse, len(issues))
	for i, issue := range issues {
		responses[i] = &SimilarIssueResponse{
			FeedbackID:           issue.FeedbackID,
			Question:             issue.Question,
			ManualSolution:       issue.ManualSolution,
			RelevanceScore:       issue.RelevanceScore,
			CreatedAt:            issue.CreatedAt.Format("2006-01-02T15:04:05Z"),
			CustomerSatisfaction: issue.CustomerSatisfaction,
		}
	}

	api.Success(w, http.StatusOK, SimilarIssueListResponse{Items: responses})
}
