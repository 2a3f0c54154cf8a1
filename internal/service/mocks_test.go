package service

import (
	"context"

	"github.com/fixwise/fixwise/internal/domain"
	"github.com/fixwise/fixwise/internal/pagination"
	"github.com/stretchr/testify/mock"
)

// MockManualEntryRepository is a mock implementation of ManualEntryRepositoryInterface
type MockManualEntryRepository struct {
	mock.Mock
}

func (m *MockManualEntryRepository) Insert(ctx context.Context, e *domain.ManualEntry, embedding []float32) (bool, error) {
	args := m.Called(ctx, e, embedding)
	return args.Bool(0), args.Error(1)
}

func (m *MockManualEntryRepository) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockManualEntryRepository) Search(ctx context.Context, embedding []float32, filters SearchFilters, limit int) ([]*ManualHit, error) {
	args := m.Called(ctx, embedding, filters, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ManualHit), args.Error(1)
}

func (m *MockManualEntryRepository) List(ctx context.Context, cursor *pagination.Cursor, limit int) (*ManualEntryPage, error) {
	args := m.Called(ctx, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ManualEntryPage), args.Error(1)
}

func (m *MockManualEntryRepository) Stats(ctx context.Context) (*ManualKnowledgeStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ManualKnowledgeStats), args.Error(1)
}

func (m *MockManualEntryRepository) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockFeedbackRepository is a mock implementation of FeedbackRepositoryInterface
type MockFeedbackRepository struct {
	mock.Mock
}

func (m *MockFeedbackRepository) Append(ctx context.Context, r *domain.FeedbackRecord) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockFeedbackRepository) Statistics(ctx context.Context) (*FeedbackStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*FeedbackStats), args.Error(1)
}

func (m *MockFeedbackRepository) ListPromotable(ctx context.Context) ([]*domain.FeedbackRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.FeedbackRecord), args.Error(1)
}

func (m *MockFeedbackRepository) ListByAttributes(ctx context.Context, brand, product string, limit int) ([]*domain.FeedbackRecord, error) {
	args := m.Called(ctx, brand, product, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.FeedbackRecord), args.Error(1)
}

// MockCorpusRepository is a mock implementation of CorpusRepositoryInterface
type MockCorpusRepository struct {
	mock.Mock
}

func (m *MockCorpusRepository) Search(ctx context.Context, embedding []float32, filters SearchFilters, limit int) ([]*CorpusHit, error) {
	args := m.Called(ctx, embedding, filters, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*CorpusHit), args.Error(1)
}

// MockInteractionRepository is a mock implementation of InteractionRepositoryInterface
type MockInteractionRepository struct {
	mock.Mock
}

func (m *MockInteractionRepository) Insert(ctx context.Context, logEntry *domain.InteractionLog) error {
	args := m.Called(ctx, logEntry)
	return args.Error(0)
}

func (m *MockInteractionRepository) Stats(ctx context.Context) (*InteractionStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*InteractionStats), args.Error(1)
}

// MockEmbeddingClient is a mock implementation of EmbeddingClient
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockGenerationClient is a mock implementation of GenerationClient
type MockGenerationClient struct {
	mock.Mock
}

func (m *MockGenerationClient) GenerateAnswer(ctx context.Context, systemPrompt, userQuery string) (string, error) {
	args := m.Called(ctx, systemPrompt, userQuery)
	return args.String(0), args.Error(1)
}

// MockGraphSource is a mock implementation of GraphSource
type MockGraphSource struct {
	mock.Mock
}

func (m *MockGraphSource) Query(ctx context.Context, question string) ([]*GraphItem, error) {
	args := m.Called(ctx, question)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*GraphItem), args.Error(1)
}

// MockValidationModel is a mock implementation of ValidationModel
type MockValidationModel struct {
	mock.Mock
}

func (m *MockValidationModel) ScoreAnswer(ctx context.Context, question, answer, contextSummary string) (*CriteriaScores, []string, error) {
	args := m.Called(ctx, question, answer, contextSummary)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*CriteriaScores), args.Get(1).([]string), args.Error(2)
}

// MockReportUploader is a mock implementation of ReportUploader
type MockReportUploader struct {
	mock.Mock
}

func (m *MockReportUploader) PutObject(ctx context.Context, key string, contentType string, body []byte) error {
	args := m.Called(ctx, key, contentType, body)
	return args.Error(0)
}

func (m *MockReportUploader) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

// MockUUIDGenerator returns a fixed sequence of ids
type MockUUIDGenerator struct {
	callCount int
	uuids     []string
}

func NewMockUUIDGenerator(uuids ...string) *MockUUIDGenerator {
	return &MockUUIDGenerator{uuids: uuids}
}

func (m *MockUUIDGenerator) NewString() string {
	if m.callCount < len(m.uuids) {
		id := m.uuids[m.callCount]
		m.callCount++
		return id
	}
	return "default-uuid"
}
