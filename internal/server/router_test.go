package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fixwise/fixwise/internal/api/handlers"
	"github.com/fixwise/fixwise/internal/domain"
	"github.com/fixwise/fixwise/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockQueryService struct {
	mock.Mock
}

func (m *MockQueryService) Answer(ctx context.Context, input service.AnswerInput) (*service.AnswerOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AnswerOutput), args.Error(1)
}

type MockManualService struct {
	mock.Mock
}

func (m *MockManualService) Lookup(ctx context.Context, question string) (*service.LookupOutcome, error) {
	args := m.Called(ctx, question)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LookupOutcome), args.Error(1)
}

func (m *MockManualService) Add(ctx context.Context, input service.AddInput) (string, error) {
	args := m.Called(ctx, input)
	return args.String(0), args.Error(1)
}

func (m *MockManualService) List(ctx context.Context, cursor string, limit int) (*service.ManualEntryPage, error) {
	args := m.Called(ctx, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ManualEntryPage), args.Error(1)
}

type MockFeedbackService struct {
	mock.Mock
}

func (m *MockFeedbackService) Submit(ctx context.Context, input service.SubmitInput) (*service.SubmitResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SubmitResult), args.Error(1)
}

func (m *MockFeedbackService) SearchSimilar(ctx context.Context, question, brand, product string, limit int) ([]*service.SimilarIssue, error) {
	args := m.Called(ctx, question, brand, product, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*service.SimilarIssue), args.Error(1)
}

type MockInteractionService struct {
	mock.Mock
}

func (m *MockInteractionService) Log(ctx context.Context, input service.LogInteractionInput) (*domain.InteractionLog, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InteractionLog), args.Error(1)
}

type MockStatsService struct {
	mock.Mock
}

func (m *MockStatsService) Stats(ctx context.Context) (*service.ManualKnowledgeStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ManualKnowledgeStats), args.Error(1)
}

type MockInteractionStats struct {
	mock.Mock
}

func (m *MockInteractionStats) Stats(ctx context.Context) (*service.InteractionStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.InteractionStats), args.Error(1)
}

type MockFeedbackStats struct {
	mock.Mock
}

func (m *MockFeedbackStats) Statistics(ctx context.Context) (*service.FeedbackStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.FeedbackStats), args.Error(1)
}

type routerMocks struct {
	query            *MockQueryService
	manual           *MockManualService
	feedback         *MockFeedbackService
	interactions     *MockInteractionService
	manualStats      *MockStatsService
	interactionStats *MockInteractionStats
	feedbackStats    *MockFeedbackStats
}

func setupRouter() (http.Handler, *routerMocks) {
	mocks := &routerMocks{
		query:            new(MockQueryService),
		manual:           new(MockManualService),
		feedback:         new(MockFeedbackService),
		interactions:     new(MockInteractionService),
		manualStats:      new(MockStatsService),
		interactionStats: new(MockInteractionStats),
		feedbackStats:    new(MockFeedbackStats),
	}

	cfg := RouterConfig{
		QueryHandler:       handlers.NewQueryHandler(mocks.query),
		ManualHandler:      handlers.NewManualHandler(mocks.manual),
		FeedbackHandler:    handlers.NewFeedbackHandler(mocks.feedback),
		ValidateHandler:    handlers.NewValidateHandler(service.NewAnswerValidator()),
		InteractionHandler: handlers.NewInteractionHandler(mocks.interactions),
		SystemHandler:      handlers.NewSystemHandler(mocks.manualStats, mocks.interactionStats, mocks.feedbackStats),
	}

	return NewRouter(cfg), mocks
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router, mocks := setupRouter()

	mocks.manualStats.On("Stats", mock.Anything).Return(&service.ManualKnowledgeStats{TotalEntries: 5}, nil)
	mocks.interactionStats.On("Stats", mock.Anything).Return(&service.InteractionStats{TotalInteractions: 9}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, float64(5), resp["manual_knowledge_entries"])
	assert.Equal(t, float64(9), resp["logged_interactions"])
}

func TestRouter_RequestIDHeader(t *testing.T) {
	router, mocks := setupRouter()

	mocks.manualStats.On("Stats", mock.Anything).Return(&service.ManualKnowledgeStats{}, nil)
	mocks.interactionStats.On("Stats", mock.Anything).Return(&service.InteractionStats{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_QueryRoute(t *testing.T) {
	router, mocks := setupRouter()

	mocks.query.On("Answer", mock.Anything, mock.Anything).Return(&service.AnswerOutput{
		Answer:         "templated answer",
		ResponseSource: "templated",
	}, nil)

	body := `{"question":"why is my fridge noisy"}`
	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mocks.query.AssertExpectations(t)
}

func TestRouter_ManualSearchRoute(t *testing.T) {
	router, mocks := setupRouter()

	mocks.manual.On("Lookup", mock.Anything, "fridge noisy").Return(&service.LookupOutcome{
		Status: service.LookupNotFound,
	}, nil)

	body := `{"question":"fridge noisy"}`
	req := httptest.NewRequest(http.MethodPost, "/manual_search", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["found"])
}

func TestRouter_BodyLimit(t *testing.T) {
	router, _ := setupRouter()

	oversized := make([]byte, 2*1024*1024)
	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader(oversized))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRouter_UnknownRoute(t *testing.T) {
	router, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
