package service

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/fixwise/fixwise/internal/domain"
	"github.com/fixwise/fixwise/internal/telemetry"
)

// similarIssueMinRelevance gates keyword-overlap matches when searching the
// ledger for similar past issues.
const similarIssueMinRelevance = 0.2

// FeedbackStats aggregates the ledger for reporting
type FeedbackStats struct {
	TotalEntries      int
	ByType            map[string]int
	ByBrand           map[string]int
	ByProduct         map[string]int
	TopIssues         map[string]int
	ResolutionMethods map[string]int
	RecentEntries     int // created within the last 7 days
}

// FeedbackRepositoryInterface defines the repository interface for the
// append-only feedback ledger
type FeedbackRepositoryInterface interface {
	Append(ctx context.Context, r *domain.FeedbackRecord) error
	Statistics(ctx context.Context) (*FeedbackStats, error)
	// ListPromotable returns records with a non-empty manual solution and
	// positive customer satisfaction, oldest first.
	ListPromotable(ctx context.Context) ([]*domain.FeedbackRecord, error)
	ListByAttributes(ctx context.Context, brand, product string, limit int) ([]*domain.FeedbackRecord, error)
}

// SubmitInput represents one correction episode from a support agent
type SubmitInput struct {
	UserQuestion         string
	OriginalAnswer       string
	OriginalSources      []domain.SourceRef
	FeedbackType         domain.FeedbackType
	ManualSolution       string
	SupportAgent         string
	Attributes           domain.EntryAttributes
	CustomerSatisfaction string
	Tags                 []string
	Notes                string
}

// SubmitResult reports the ledger id and whether promotion happened.
// Promotion failure is non-fatal and leaves Promoted false.
type SubmitResult struct {
	FeedbackID string
	Promoted   bool
}

// SimilarIssue is one keyword-overlap match from the ledger
type SimilarIssue struct {
	FeedbackID           string
	Question             string
	ManualSolution       string
	RelevanceScore       float32
	CreatedAt            time.Time
	CustomerSatisfaction string
}

// FeedbackService runs the learning loop: every correction is appended to the
// ledger; satisfactory ones are promoted into the manual knowledge store.
type FeedbackService struct {
	ledger    FeedbackRepositoryInterface
	manual    ManualEntryRepositoryInterface
	embedding EmbeddingClient
	uuidGen   UUIDGenerator
	now       func() time.Time
}

// NewFeedbackService creates a new FeedbackService instance
func NewFeedbackService(ledger FeedbackRepositoryInterface, manual ManualEntryRepositoryInterface, embedding EmbeddingClient) *FeedbackService {
	return &FeedbackService{
		ledger:    ledger,
		manual:    manual,
		embedding: embedding,
		uuidGen:   &DefaultUUIDGenerator{},
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// NewFeedbackServiceWithClock creates a FeedbackService with a custom UUID
// generator and clock (for testing)
func NewFeedbackServiceWithClock(ledger FeedbackRepositoryInterface, manual ManualEntryRepositoryInterface, embedding EmbeddingClient, uuidGen UUIDGenerator, now func() time.Time) *FeedbackService {
	return &FeedbackService{ledger: ledger, manual: manual, embedding: embedding, uuidGen: uuidGen, now: now}
}

// Submit logs one correction episode and conditionally promotes it. The
// ledger append must succeed or the whole operation fails; promotion failure
// after a successful append is reported in logs but never invalidates the
// ledger entry. Returns the feedback id regardless of promotion outcome.
func (s *FeedbackService) Submit(ctx context.Context, input SubmitInput) (*SubmitResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "FeedbackService.Submit", telemetry.SpanAttributes{
		Operation: "submit",
	})
	defer span.End()

	attrs := input.Attributes
	if attrs.Brand == "" {
		attrs.Brand = primaryBrand(input.OriginalSources)
	}
	if attrs.ProductCategory == "" {
		attrs.ProductCategory = primaryProduct(input.OriginalSources)
	}

	feedbackType := input.FeedbackType
	if feedbackType == "" {
		feedbackType = domain.FeedbackTypeUnsatisfactory
	}

	record := &domain.FeedbackRecord{
		ID:                   s.uuidGen.NewString(),
		CreatedAt:            s.now(),
		UserQuestion:         input.UserQuestion,
		OriginalAnswer:       input.OriginalAnswer,
		OriginalSources:      input.OriginalSources,
		FeedbackType:         feedbackType,
		ManualSolution:       input.ManualSolution,
		SupportAgent:         input.SupportAgent,
		Attributes:           attrs,
		CustomerSatisfaction: input.CustomerSatisfaction,
		Tags:                 input.Tags,
		Notes:                input.Notes,
	}

	if err := domain.ValidateFeedbackRecord(record); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid feedback record", err)
	}

	if err := s.ledger.Append(ctx, record); err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodePersistence, "failed to append feedback record to ledger", err)
	}

	result := &SubmitResult{FeedbackID: record.ID}

	if record.Promotable() {
		inserted, err := s.promote(ctx, record, domain.SourceTypeRealTimeManual)
		if err != nil {
			log.Printf("feedback %s: promotion failed (ledger entry retained): %v", record.ID, err)
			telemetry.CaptureError(ctx, err)
		} else {
			result.Promoted = inserted
		}
	}

	return result, nil
}

// SyncLedger scans the ledger for promotable records not yet in the manual
// store and promotes them. Idempotent; returns the number of new entries.
func (s *FeedbackService) SyncLedger(ctx context.Context) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "FeedbackService.SyncLedger", telemetry.SpanAttributes{
		Operation: "sync",
	})
	defer span.End()

	records, err := s.ledger.ListPromotable(ctx)
	if err != nil {
		span.SetError(err)
		return 0, err
	}

	promoted := 0
	for _, record := range records {
		inserted, err := s.promote(ctx, record, domain.SourceTypeManualLearning)
		if err != nil {
			log.Printf("sync: skipping feedback %s: %v", record.ID, err)
			continue
		}
		if inserted {
			promoted++
		}
	}
	return promoted, nil
}

// promote builds a manual entry from a feedback record and inserts it. The
// feedback id becomes the entry id so re-promotion is a no-op: the existence
// check is advisory and the store's unique key makes the insert safe under
// concurrent promotion of the same id.
func (s *FeedbackService) promote(ctx context.Context, record *domain.FeedbackRecord, sourceType domain.SourceType) (bool, error) {
	exists, err := s.manual.Exists(ctx, record.ID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	confidence := ComputeConfidence(record.CreatedAt, record.Tags, record.Attributes.ResolutionMethod, s.now())

	entry := domain.NewManualEntry(
		record.ID,
		record.UserQuestion,
		record.ManualSolution,
		record.Attributes,
		record.Tags,
		confidence,
		sourceType,
		record.CreatedAt,
	)
	if err := domain.ValidateManualEntry(entry); err != nil {
		return false, err
	}

	embedding, err := s.embedding.GenerateEmbedding(ctx, embeddingText(entry.Question, entry.Solution))
	if err != nil {
		return false, err
	}

	return s.manual.Insert(ctx, entry, embedding)
}

// Statistics returns aggregate feedback counts for reporting
func (s *FeedbackService) Statistics(ctx context.Context) (*FeedbackStats, error) {
	return s.ledger.Statistics(ctx)
}

// SearchSimilar finds past correction episodes whose question vocabulary
// overlaps the given one, optionally narrowed by brand and product.
func (s *FeedbackService) SearchSimilar(ctx context.Context, question, brand, product string, limit int) ([]*SimilarIssue, error) {
	if limit <= 0 {
		limit = 5
	}

	records, err := s.ledger.ListByAttributes(ctx, brand, product, 500)
	if err != nil {
		return nil, err
	}

	questionWords := wordSet(question)
	if len(questionWords) == 0 {
		return []*SimilarIssue{}, nil
	}

	var issues []*SimilarIssue
	for _, record := range records {
		overlap := 0
		for w := range wordSet(record.UserQuestion) {
			if _, ok := questionWords[w]; ok {
				overlap++
			}
		}
		relevance := float32(overlap) / float32(len(questionWords))
		if relevance <= similarIssueMinRelevance {
			continue
		}
		issues = append(issues, &SimilarIssue{
			FeedbackID:           record.ID,
			Question:             record.UserQuestion,
			ManualSolution:       record.ManualSolution,
			RelevanceScore:       relevance,
			CreatedAt:            record.CreatedAt,
			CustomerSatisfaction: record.CustomerSatisfaction,
		})
	}

	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].RelevanceScore > issues[j].RelevanceScore
	})
	if len(issues) > limit {
		issues = issues[:limit]
	}
	return issues, nil
}

// Recommendations derives documentation follow-ups from feedback patterns.
// Only meaningful once the ledger has enough entries to show a trend.
func Recommendations(stats *FeedbackStats) []string {
	var recommendations []string
	if stats == nil || stats.TotalEntries <= 10 {
		return recommendations
	}

	total := float32(stats.TotalEntries)
	if float32(stats.ByType[string(domain.FeedbackTypeIncomplete)]) > total*0.3 {
		recommendations = append(recommendations, "Consider expanding documentation for incomplete answers")
	}
	if float32(stats.ByType[string(domain.FeedbackTypeIncorrect)]) > total*0.2 {
		recommendations = append(recommendations, "Review and update existing knowledge base for accuracy")
	}

	if topIssue := topKey(stats.TopIssues); topIssue != "" {
		recommendations = append(recommendations, "Focus on improving documentation for '"+topIssue+"' issues")
	}

	return recommendations
}

func topKey(counts map[string]int) string {
	top := ""
	max := 0
	for k, v := range counts {
		if v > max || (v == max && k < top) {
			top = k
			max = v
		}
	}
	return top
}

func primaryBrand(sources []domain.SourceRef) string {
	for _, s := range sources {
		if s.Brand != "" {
			return s.Brand
		}
	}
	return ""
}

func primaryProduct(sources []domain.SourceRef) string {
	for _, s := range sources {
		if s.ProductCategory != "" {
			return s.ProductCategory
		}
	}
	return ""
}
