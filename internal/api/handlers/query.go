package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fixwise/fixwise/internal/api"
	"github.com/fixwise/fixwise/internal/service"
)

type QueryService interface {
	Answer(ctx context.Context, input service.AnswerInput) (*service.AnswerOutput, error)
}

type QueryHandler struct {
	svc QueryService
}

func NewQueryHandler(svc QueryService) *QueryHandler {
	return &QueryHandler{svc: svc}
}

type QueryRequest struct {
	Question          string `json:"question"`
	Brand             string `json:"brand"`
	ProductCategory   string `json:"product_category"`
	IssueCategory     string `json:"issue_category"`
	ValidationEnabled bool   `json:"validation_enabled"`
}

type ManualSourceResponse struct {
	Question         string  `json:"question"`
	Brand            string  `json:"brand"`
	ProductCategory  string  `json:"product_category"`
	IssueCategory    string  `json:"issue_category"`
	ResolutionMethod string  `json:"resolution_method"`
	ConfidenceScore  float32 `json:"confidence_score"`
	CreatedAt        string  `json:"created_at"`
}

type OriginalSourceResponse struct {
	FileName        string  `json:"file_name"`
	Brand           string  `json:"brand"`
	ProductCategory string  `json:"product_category"`
	DocumentType    string  `json:"document_type"`
	RelevanceScore  float32 `json:"relevance_score"`
}

type ValidationResponse struct {
	OverallScore float32  `json:"overall_score"`
	Completeness float32  `json:"completeness_score"`
	Accuracy     float32  `json:"accuracy_score"`
	Relevance    float32  `json:"relevance_score"`
	Suggestions  []string `json:"suggestions"`
	IsValid      bool     `json:"is_valid"`
}

type ConfidenceResponse struct {
	HasManualSolutions       bool     `json:"has_manual_solutions"`
	ManualSolutionConfidence float32  `json:"manual_solution_confidence"`
	OriginalDocsCount        int      `json:"original_docs_count"`
	TotalSources             int      `json:"total_sources"`
	ValidationScore          *float32 `json:"validation_score,omitempty"`
	IsValidated              *bool    `json:"is_validated,omitempty"`
	OverallConfidence        float32  `json:"overall_confidence"`
}

type QueryResponse struct {
	Answer          string                    `json:"answer"`
	ResponseSource  string                    `json:"response_source"`
	ManualSources   []*ManualSourceResponse   `json:"manual_sources"`
	OriginalSources []*OriginalSourceResponse `json:"original_sources"`
	TotalSources    int                       `json:"total_sources"`
	Validation      *ValidationResponse       `json:"validation,omitempty"`
	Confidence      *ConfidenceResponse       `json:"confidence_indicators"`
}

func answerToResponse(out *service.AnswerOutput) *QueryResponse {
	resp := &QueryResponse{
		Answer:          out.Answer,
		ResponseSource:  out.ResponseSource,
		ManualSources:   make([]*ManualSourceResponse, len(out.ManualSources)),
		OriginalSources: make([]*OriginalSourceResponse, len(out.OriginalSources)),
		TotalSources:    out.TotalSources,
	}

	for i, src := range out.ManualSources {
		resp.ManualSources[i] = &ManualSourceResponse{
			Question:         src.Question,
			Brand:            src.Brand,
			ProductCategory:  src.ProductCategory,
			IssueCategory:    src.IssueCategory,
			ResolutionMethod: src.ResolutionMethod,
			ConfidenceScore:  src.ConfidenceScore,
			CreatedAt:        src.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	for i, src := range out.OriginalSources {
		resp.OriginalSources[i] = &OriginalSourceResponse{
			FileName:        src.FileName,
			Brand:           src.Brand,
			ProductCategory: src.ProductCategory,
			DocumentType:    src.DocumentType,
			RelevanceScore:  src.RelevanceScore,
		}
	}

	if out.Validation != nil {
		resp.Validation = validationToResponse(out.Validation)
	}

	if out.Confidence != nil {
		resp.Confidence = &ConfidenceResponse{
			HasManualSolutions:       out.Confidence.HasManualSolutions,
			ManualSolutionConfidence: out.Confidence.ManualSolutionConfidence,
			OriginalDocsCount:        out.Confidence.OriginalDocsCount,
			TotalSources:             out.Confidence.TotalSources,
			ValidationScore:          out.Confidence.ValidationScore,
			IsValidated:              out.Confidence.IsValidated,
			OverallConfidence:        out.Confidence.OverallConfidence,
		}
	}

	return resp
}

func validationToResponse(v *service.ValidationResult) *ValidationResponse {
	return &ValidationResponse{
		OverallScore: v.OverallScore,
		Completeness: v.Criteria.Completeness,
		Accuracy:     v.Criteria.Accuracy,
		Relevance:    v.Criteria.Relevance,
		Suggestions:  v.Suggestions,
		IsValid:      v.IsValid,
	}
}

func (h *QueryHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Question == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}

	input := service.AnswerInput{
		Question: req.Question,
		Filters: service.SearchFilters{
			Brand:           req.Brand,
			ProductCategory: req.ProductCategory,
			IssueCategory:   req.IssueCategory,
		},
		ValidationEnabled: req.ValidationEnabled,
	}

	output, err := h.svc.Answer(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, answerToResponse(output))
}
