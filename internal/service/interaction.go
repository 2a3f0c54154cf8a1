package service

import (
	"context"
	"strings"
	"time"

	"github.com/fixwise/fixwise/internal/domain"
	"github.com/fixwise/fixwise/internal/telemetry"
)

// InteractionStats summarizes logged query/answer traffic
type InteractionStats struct {
	TotalInteractions int
	BySource          map[string]int
	AvgConfidence     float32
	RecentCount       int
}

// InteractionRepositoryInterface defines data access for interaction logs
type InteractionRepositoryInterface interface {
	Insert(ctx context.Context, logEntry *domain.InteractionLog) error
	Stats(ctx context.Context) (*InteractionStats, error)
}

// LogInteractionInput carries one query/answer pair for audit logging
type LogInteractionInput struct {
	Query      string
	Answer     string
	Source     string
	Confidence float32
}

// InteractionService records answered queries for later analysis
type InteractionService struct {
	repo    InteractionRepositoryInterface
	uuidGen UUIDGenerator
	now     func() time.Time
}

// NewInteractionService creates a new InteractionService instance
func NewInteractionService(repo InteractionRepositoryInterface) *InteractionService {
	return &InteractionService{
		repo:    repo,
		uuidGen: &DefaultUUIDGenerator{},
		now:     time.Now,
	}
}

// Log persists one interaction record
func (s *InteractionService) Log(ctx context.Context, input LogInteractionInput) (*domain.InteractionLog, error) {
	ctx, span := telemetry.StartSpan(ctx, "InteractionService.Log", telemetry.SpanAttributes{
		Operation: "log_interaction",
	})
	defer span.End()

	if strings.TrimSpace(input.Query) == "" {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "query is required", domain.ErrMissingRequiredField)
	}

	source := input.Source
	if source == "" {
		source = "unknown"
	}

	logEntry := &domain.InteractionLog{
		ID:         s.uuidGen.NewString(),
		Query:      input.Query,
		Answer:     input.Answer,
		Source:     source,
		Confidence: clampUnit(input.Confidence),
		CreatedAt:  s.now().UTC(),
	}

	if err := s.repo.Insert(ctx, logEntry); err != nil {
		span.SetError(err)
		return nil, err
	}
	return logEntry, nil
}

// Stats returns aggregate interaction metrics
func (s *InteractionService) Stats(ctx context.Context) (*InteractionStats, error) {
	ctx, span := telemetry.StartSpan(ctx, "InteractionService.Stats", telemetry.SpanAttributes{
		Operation: "interaction_stats",
	})
	defer span.End()

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return stats, nil
}
