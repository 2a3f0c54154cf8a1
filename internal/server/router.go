package server

import (
	"net/http"

	"github.com/fixwise/fixwise/internal/api/handlers"
	"github.com/fixwise/fixwise/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	QueryHandler       *handlers.QueryHandler
	ManualHandler      *handlers.ManualHandler
	FeedbackHandler    *handlers.FeedbackHandler
	ValidateHandler    *handlers.ValidateHandler
	InteractionHandler *handlers.InteractionHandler
	SystemHandler      *handlers.SystemHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", cfg.SystemHandler.Health)
	r.Get("/stats", cfg.SystemHandler.Stats)

	r.Post("/query", cfg.QueryHandler.Answer)

	r.Post("/manual_search", cfg.ManualHandler.Search)
	r.Post("/add_manual_knowledge", cfg.ManualHandler.Add)
	r.Get("/manual_knowledge", cfg.ManualHandler.List)

	r.Post("/validate_answer", cfg.ValidateHandler.Validate)
	r.Post("/log_interaction", cfg.InteractionHandler.Log)

	r.Post("/feedback", cfg.FeedbackHandler.Submit)
	r.Post("/feedback/similar", cfg.FeedbackHandler.SearchSimilar)

	return r
}
