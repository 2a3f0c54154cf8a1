package service

import (
	"context"
	"time"

	"github.com/fixwise/fixwise/internal/domain"
	"github.com/fixwise/fixwise/internal/pagination"
	"github.com/fixwise/fixwise/internal/telemetry"
	"github.com/google/uuid"
)

// minLookupConfidence is the retrieval gate for single-answer lookups: below
// this combined confidence a match is reported as low-confidence, not found.
const minLookupConfidence = 0.3

// defaultInsertConfidence is the stored confidence for entries added directly
// over the API without a feedback episode behind them.
const defaultInsertConfidence = 0.8

// SearchFilters narrows manual-store and corpus searches by attributes
type SearchFilters struct {
	Brand           string
	ProductCategory string
	IssueCategory   string
}

// ManualEntryPage is one page of manual entries ordered by creation time
type ManualEntryPage struct {
	Items      []*domain.ManualEntry
	NextCursor string
	HasMore    bool
}

// ManualKnowledgeStats aggregates the manual store for /stats
type ManualKnowledgeStats struct {
	TotalEntries          int
	EntriesByBrand        map[string]int
	EntriesByProduct      map[string]int
	EntriesByIssue        map[string]int
	EntriesBySourceType   map[string]int
	AvgConfidence         float32
	HighConfidenceEntries int // confidence > 0.8
	RecentEntries         int // created within the last 7 days
}

// ManualEntryRepositoryInterface defines the repository interface for manual
// entry persistence and similarity search
type ManualEntryRepositoryInterface interface {
	// Insert adds an entry; returns false without error when the id already
	// exists (store-level unique key, safe under concurrent promotion).
	Insert(ctx context.Context, e *domain.ManualEntry, embedding []float32) (bool, error)
	Exists(ctx context.Context, id string) (bool, error)
	Search(ctx context.Context, embedding []float32, filters SearchFilters, limit int) ([]*ManualHit, error)
	List(ctx context.Context, cursor *pagination.Cursor, limit int) (*ManualEntryPage, error)
	Stats(ctx context.Context) (*ManualKnowledgeStats, error)
	Clear(ctx context.Context) error
}

// EmbeddingClient generates query/content embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// LookupStatus tags the outcome of a single-answer manual lookup
type LookupStatus string

const (
	LookupFound         LookupStatus = "found"
	LookupNotFound      LookupStatus = "not_found"
	LookupLowConfidence LookupStatus = "low_confidence"
)

// LookupOutcome is the tagged result of Lookup. Exactly one of the three
// statuses applies; Entry is set only for LookupFound. "No match" and "match
// below the confidence gate" are distinct results, not errors.
type LookupOutcome struct {
	Status     LookupStatus
	Entry      *domain.ManualEntry
	Confidence float32
	Similarity float32
}

// ManualKnowledgeService handles business logic for the manual knowledge store
type ManualKnowledgeService struct {
	repo      ManualEntryRepositoryInterface
	embedding EmbeddingClient
	uuidGen   UUIDGenerator
}

// NewManualKnowledgeService creates a new ManualKnowledgeService instance
func NewManualKnowledgeService(repo ManualEntryRepositoryInterface, embedding EmbeddingClient) *ManualKnowledgeService {
	return &ManualKnowledgeService{
		repo:      repo,
		embedding: embedding,
		uuidGen:   &DefaultUUIDGenerator{},
	}
}

// NewManualKnowledgeServiceWithUUIDGen creates a service with a custom UUID
// generator (for testing)
func NewManualKnowledgeServiceWithUUIDGen(repo ManualEntryRepositoryInterface, embedding EmbeddingClient, uuidGen UUIDGenerator) *ManualKnowledgeService {
	return &ManualKnowledgeService{repo: repo, embedding: embedding, uuidGen: uuidGen}
}

// Search returns up to limit manual hits for the query. Results are ordered
// by stored confidence descending; similarity acts only as the retrieval
// gate, since trust outweighs textual similarity in this domain.
func (s *ManualKnowledgeService) Search(ctx context.Context, query string, filters SearchFilters, limit int) ([]*ManualHit, error) {
	ctx, span := telemetry.StartSpan(ctx, "ManualKnowledgeService.Search", telemetry.SpanAttributes{
		Operation: "search",
		Brand:     filters.Brand,
	})
	defer span.End()

	if query == "" {
		return []*ManualHit{}, nil
	}
	if limit <= 0 {
		limit = 5
	}

	embedding, err := s.embedding.GenerateEmbedding(ctx, query)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	hits, err := s.repo.Search(ctx, embedding, filters, limit)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return hits, nil
}

// Lookup finds the single best manual answer for a question. The returned
// confidence averages embedding similarity with the entry's stored
// confidence; matches below the gate are tagged low-confidence.
func (s *ManualKnowledgeService) Lookup(ctx context.Context, question string) (*LookupOutcome, error) {
	hits, err := s.Search(ctx, question, SearchFilters{}, 5)
	if err != nil {
		return nil, err
	}

	if len(hits) == 0 {
		return &LookupOutcome{Status: LookupNotFound}, nil
	}

	best := hits[0]
	similarity := 1.0 - clampUnit(best.Distance)
	confidence := (similarity + best.Entry.ConfidenceScore) / 2

	if confidence <= minLookupConfidence {
		return &LookupOutcome{
			Status:     LookupLowConfidence,
			Confidence: confidence,
			Similarity: similarity,
		}, nil
	}

	return &LookupOutcome{
		Status:     LookupFound,
		Entry:      best.Entry,
		Confidence: confidence,
		Similarity: similarity,
	}, nil
}

// AddInput represents the input for adding a manual entry directly
type AddInput struct {
	Question        string
	Answer          string
	ConfidenceScore float32 // 0 means default
	SourceType      domain.SourceType
	Attributes      domain.EntryAttributes
	Tags            []string
}

// Add inserts a manual entry supplied directly by an operator or workflow,
// bypassing the feedback loop. Returns the new entry's id.
func (s *ManualKnowledgeService) Add(ctx context.Context, input AddInput) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "ManualKnowledgeService.Add", telemetry.SpanAttributes{
		Operation: "add",
	})
	defer span.End()

	confidence := input.ConfidenceScore
	if confidence <= 0 {
		confidence = defaultInsertConfidence
	}
	sourceType := input.SourceType
	if sourceType == "" {
		sourceType = domain.SourceTypeRealTimeManual
	}

	entry := domain.NewManualEntry(
		s.uuidGen.NewString(),
		input.Question,
		input.Answer,
		input.Attributes,
		input.Tags,
		confidence,
		sourceType,
		time.Now().UTC(),
	)
	if err := domain.ValidateManualEntry(entry); err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid manual entry", err)
	}

	embedding, err := s.embedding.GenerateEmbedding(ctx, embeddingText(entry.Question, entry.Solution))
	if err != nil {
		span.SetError(err)
		return "", err
	}

	inserted, err := s.repo.Insert(ctx, entry, embedding)
	if err != nil {
		span.SetError(err)
		return "", err
	}
	if !inserted {
		return "", domain.ErrManualEntryAlreadyExists
	}
	return entry.ID, nil
}

// List returns a page of manual entries ordered by creation time descending
func (s *ManualKnowledgeService) List(ctx context.Context, cursor string, limit int) (*ManualEntryPage, error) {
	decoded, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}
	if limit <= 0 {
		limit = 20
	}
	return s.repo.List(ctx, decoded, limit)
}

// Stats returns aggregate counts for the manual store
func (s *ManualKnowledgeService) Stats(ctx context.Context) (*ManualKnowledgeStats, error) {
	return s.repo.Stats(ctx)
}

// Clear removes every entry from the manual store. Admin operation; not
// exposed over HTTP.
func (s *ManualKnowledgeService) Clear(ctx context.Context) error {
	return s.repo.Clear(ctx)
}

// embeddingText builds the combined text embedded for a manual entry
func embeddingText(question, solution string) string {
	return "Question: " + question + " Solution: " + solution
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}
