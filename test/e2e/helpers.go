//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/fixwise/fixwise/internal/api/handlers"
	"github.com/fixwise/fixwise/internal/repository"
	"github.com/fixwise/fixwise/internal/server"
	"github.com/fixwise/fixwise/internal/service"
	"github.com/fixwise/fixwise/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	FeedbackSvc  *service.FeedbackService
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with a database container
// and an in-process server backed by a deterministic embedder.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser, feedbackSvc := startServer(t, pool, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		FeedbackSvc:  feedbackSvc,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// Reset truncates all tables between tests
func (e *E2ETestEnv) Reset() {
	if err := testutil.TruncateAll(e.Ctx, e.Pool); err != nil {
		e.T.Fatalf("failed to truncate tables: %v", err)
	}
}

// Post performs a POST request and returns the status code and raw body.
// Responses are left raw because the contract mixes flat payloads with
// data-enveloped ones.
func (e *E2ETestEnv) Post(path string, body interface{}) (int, []byte) {
	payload, err := json.Marshal(body)
	if err != nil {
		e.T.Fatalf("failed to marshal request body: %v", err)
	}

	resp, err := e.HTTPClient.Post(e.ServerURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		e.T.Fatalf("POST %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		e.T.Fatalf("failed to read response body: %v", err)
	}
	return resp.StatusCode, respBody
}

// Get performs a GET request and returns the status code and raw body
func (e *E2ETestEnv) Get(path string) (int, []byte) {
	resp, err := e.HTTPClient.Get(e.ServerURL + path)
	if err != nil {
		e.T.Fatalf("GET %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		e.T.Fatalf("failed to read response body: %v", err)
	}
	return resp.StatusCode, respBody
}

// tokenEmbedder is a deterministic stand-in for the OpenAI embedding API.
// Each token hashes to a fixed vector position, so texts sharing vocabulary
// get a low cosine distance and identical texts get distance zero.
type tokenEmbedder struct{}

func (tokenEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, 1536)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%1536] += 1
	}
	return vec, nil
}

// startServer starts an in-process HTTP server with the full handler stack
func startServer(t *testing.T, pool *pgxpool.Pool, port int) (string, func(), *service.FeedbackService) {
	manualRepo := repository.NewManualEntryRepository(pool)
	corpusRepo := repository.NewCorpusRepository(pool)
	feedbackRepo := repository.NewFeedbackRepository(pool)
	interactionRepo := repository.NewInteractionRepository(pool)

	embedder := tokenEmbedder{}
	validator := service.NewAnswerValidator()

	manualSvc := service.NewManualKnowledgeService(manualRepo, embedder)
	feedbackSvc := service.NewFeedbackService(feedbackRepo, manualRepo, embedder)
	interactionSvc := service.NewInteractionService(interactionRepo)
	querySvc := service.NewQueryService(manualRepo, corpusRepo, embedder, nil, validator, nil)

	router := server.NewRouter(server.RouterConfig{
		QueryHandler:       handlers.NewQueryHandler(querySvc),
		ManualHandler:      handlers.NewManualHandler(manualSvc),
		FeedbackHandler:    handlers.NewFeedbackHandler(feedbackSvc),
		ValidateHandler:    handlers.NewValidateHandler(validator),
		InteractionHandler: handlers.NewInteractionHandler(interactionSvc),
		SystemHandler:      handlers.NewSystemHandler(manualSvc, interactionSvc, feedbackSvc),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Errorf("server failed: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL+"/health")

	closer := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}

	return serverURL, closer, feedbackSvc
}

func waitForServer(t *testing.T, healthURL string) {
	client := &http.Client{Timeout: time.Second}
	for i := 0; i < 50; i++ {
		resp, err := client.Get(healthURL)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatal("server did not become ready")
}

func getFreePort() (int, error) {
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
