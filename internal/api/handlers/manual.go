package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/fixwise/fixwise/internal/api"
	"github.com/fixwise/fixwise/internal/domain"
	"github.com/fixwise/fixwise/internal/service"
)

type ManualKnowledgeService interface {
	Lookup(ctx context.Context, question string) (*service.LookupOutcome, error)
	Add(ctx context.Context, input service.AddInput) (string, error)
	List(ctx context.Context, cursor string, limit int) (*service.ManualEntryPage, error)
}

type ManualHandler struct {
	svc ManualKnowledgeService
}

func NewManualHandler(svc ManualKnowledgeService) *ManualHandler {
	return &ManualHandler{svc: svc}
}

type ManualSearchRequest struct {
	Question string `json:"question"`
}

type ManualSearchResponse struct {
	Found      bool              `json:"found"`
	Status     string            `json:"status"`
	Answer     string            `json:"answer,omitempty"`
	Confidence float32           `json:"confidence"`
	SourceType string            `json:"source_type,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Search answers POST /manual_search: a single best-match lookup against the
// manual store. "No match" and "below the confidence gate" both come back as
// found=false with distinct status values, never as errors.
func (h *ManualHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req ManualSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Question == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}

	outcome, err := h.svc.Lookup(r.Context(), req.Question)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := ManualSearchResponse{
		Found:      outcome.Status == service.LookupFound,
		Status:     string(outcome.Status),
		Confidence: outcome.Confidence,
	}

	if entry := outcome.Entry; entry != nil {
		resp.Answer = entry.Solution
		resp.SourceType = string(entry.SourceType)
		resp.Metadata = map[string]string{
			"question":          entry.Question,
			"brand":             entry.Attributes.Brand,
			"product_category":  entry.Attributes.ProductCategory,
			"issue_category":    entry.Attributes.IssueCategory,
			"resolution_method": entry.Attributes.ResolutionMethod,
			"created_at":        entry.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	api.JSON(w, http.StatusOK, resp)
}

type AddManualKnowledgeRequest struct {
	Question         string   `json:"question"`
	Answer           string   `json:"answer"`
	ConfidenceScore  float32  `json:"confidence_score"`
	SourceType       string   `json:"source_type"`
	Brand            string   `json:"brand"`
	ProductCategory  string   `json:"product_category"`
	IssueCategory    string   `json:"issue_category"`
	ResolutionMethod string   `json:"resolution_method"`
	Tags             []string `json:"tags"`
}

type AddManualKnowledgeResponse struct {
	Status  string `json:"status"`
	EntryID string `json:"entry_id"`
}

// Add answers POST /add_manual_knowledge: direct operator insertion into the
// manual store, bypassing the feedback loop.
func (h *ManualHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddManualKnowledgeRequest
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

	input := service.AddInput{
		Question:        req.Question,
		Answer:          req.Answer,
		ConfidenceScore: req.ConfidenceScore,
		SourceType:      domain.SourceType(req.SourceType),
		Attributes: domain.EntryAttributes{
			Brand:            req.Brand,
			ProductCategory:  req.ProductCategory,
			IssueCategory:    req.IssueCategory,
			ResolutionMethod: req.ResolutionMethod,
		},
		Tags: req.Tags,
	}

	entryID, err := h.svc.Add(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusCreated, AddManualKnowledgeResponse{
		Status:  "added",
		EntryID: entryID,
	})
}

type ManualEntryResponse struct {
	ID               string   `json:"id"`
	Question         string   `json:"question"`
	Solution         string   `json:"solution"`
	Brand            string   `json:"brand"`
	ProductCategory  string   `json:"product_category"`
	IssueCategory    string   `json:"issue_category"`
	ResolutionMethod string   `json:"resolution_method"`
	Tags             []string `json:"tags"`
	ConfidenceScore  float32  `json:"confidence_score"`
	SourceType       string   `json:"source_type"`
	CreatedAt        string   `json:"created_at"`
}

func manualEntryToResponse(e *domain.ManualEntry) *ManualEntryResponse {
	return &ManualEntryResponse{
		ID:               e.ID,
		Question:         e.Question,
		Solution:         e.Solution,
		Brand:            e.Attributes.Brand,
		ProductCategory:  e.Attributes.ProductCategory,
		IssueCategory:    e.Attributes.IssueCategory,
		ResolutionMethod: e.Attributes.ResolutionMethod,
		Tags:             e.Tags,
		ConfidenceScore:  e.ConfidenceScore,
		SourceType:       string(e.SourceType),
		CreatedAt:        e.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

type ManualEntryListResponse struct {
	Items   []*ManualEntryResponse `json:"items"`
	Cursor  string                 `json:"cursor,omitempty"`
	HasMore bool                   `json:"has_more"`
}

// List answers GET /manual_knowledge with cursor pagination, newest first.
func (h *ManualHandler) List(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")
	limitStr := r.URL.Query().Get("limit")
	limit := 20
	if limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	page, err := h.svc.List(r.Context(), cursor, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*ManualEntryResponse, len(page.Items))
	for i, e := range page.Items {
		responses[i] = manualEntryToResponse(e)
	}

	api.Success(w, http.StatusOK, ManualEntryListResponse{
		Items:   responses,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	})
}
