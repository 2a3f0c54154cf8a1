package handlers

import (
	"context"
	"net/http"

	"github.com/fixwise/fixwise/internal/api"
	"github.com/fixwise/fixwise/internal/service"
)

type ManualStatsProvider interface {
	Stats(ctx context.Context) (*service.ManualKnowledgeStats, error)
}

type InteractionStatsProvider interface {
	Stats(ctx context.Context) (*service.InteractionStats, error)
}

type FeedbackStatsProvider interface {
	Statistics(ctx context.Context) (*service.FeedbackStats, error)
}

type SystemHandler struct {
	manual       ManualStatsProvider
	interactions InteractionStatsProvider
	feedback     FeedbackStatsProvider
}

func NewSystemHandler(manual ManualStatsProvider, interactions InteractionStatsProvider, feedback FeedbackStatsProvider) *SystemHandler {
	return &SystemHandler{manual: manual, interactions: interactions, feedback: feedback}
}

type HealthResponse struct {
	Status               string `json:"status"`
	ManualKnowledgeCount int    `json:"manual_knowledge_entries"`
	LoggedInteractions   int    `json:"logged_interactions"`
}

// Health answers GET /health. A failing store makes the service unhealthy,
// so stats errors surface as 500 here.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	manualStats, err := h.manual.Stats(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	interactionStats, err := h.interactions.Stats(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, HealthResponse{
		Status:               "ok",
		ManualKnowledgeCount: manualStats.TotalEntries,
		LoggedInteractions:   interactionStats.TotalInteractions,
	})
}

type ManualStatsResponse struct {
	TotalEntries          int            `json:"total_entries"`
	ByBrand               map[string]int `json:"by_brand"`
	ByProduct             map[string]int `json:"by_product"`
	ByIssue               map[string]int `json:"by_issue"`
	BySourceType          map[string]int `json:"by_source_type"`
	AvgConfidence         float32        `json:"avg_confidence"`
	HighConfidenceEntries int            `json:"high_confidence_entries"`
	RecentEntries         int            `json:"recent_entries"`
}

type InteractionStatsResponse struct {
	TotalInteractions int            `json:"total_interactions"`
	BySource          map[string]int `json:"by_source"`
	AvgConfidence     float32        `json:"avg_confidence"`
	RecentCount       int            `json:"recent_count"`
}

type FeedbackStatsResponse struct {
	TotalEntries      int            `json:"total_entries"`
	ByType            map[string]int `json:"by_type"`
	ByBrand           map[string]int `json:"by_brand"`
	ByProduct         map[string]int `json:"by_product"`
	TopIssues         map[string]int `json:"top_issues"`
	ResolutionMethods map[string]int `json:"resolution_methods"`
	RecentEntries     int            `json:"recent_entries"`
}

type StatsResponse struct {
	ManualKnowledge *ManualStatsResponse      `json:"manual_knowledge"`
	Interactions    *InteractionStatsResponse `json:"interactions"`
	Feedback        *FeedbackStatsResponse    `json:"feedback"`
}

// Stats answers GET /stats with aggregates from all three stores.
func (h *SystemHandler) Stats(w http.ResponseWriter, r *http.Request) {
	manualStats, err := h.manual.Stats(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	interactionStats, err := h.interactions.Stats(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	feedbackStats, err := h.feedback.Statistics(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, StatsResponse{
		ManualKnowledge: &ManualStatsResponse{
			TotalEntries:          manualStats.TotalEntries,
			ByBrand:               manualStats.EntriesByBrand,
			ByProduct:             manualStats.EntriesByProduct,
			ByIssue:               manualStats.EntriesByIssue,
			BySourceType:          manualStats.EntriesBySourceType,
			AvgConfidence:         manualStats.AvgConfidence,
			HighConfidenceEntries: manualStats.HighConfidenceEntries,
			RecentEntries:         manualStats.RecentEntries,
		},
		Interactions: &InteractionStatsResponse{
			TotalInteractions: interactionStats.TotalInteractions,
			BySource:          interactionStats.BySource,
			AvgConfidence:     interactionStats.AvgConfidence,
			RecentCount:       interactionStats.RecentCount,
		},
		Feedback: &FeedbackStatsResponse{
			TotalEntries:      feedbackStats.TotalEntries,
			ByType:            feedbackStats.ByType,
			ByBrand:           feedbackStats.ByBrand,
			ByProduct:         feedbackStats.ByProduct,
			TopIssues:         feedbackStats.TopIssues,
			ResolutionMethods: feedbackStats.ResolutionMethods,
			RecentEntries:     feedbackStats.RecentEntries,
		},
	})
}
