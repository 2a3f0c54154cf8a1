// Package cli implements the fixwised commands.
package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fixwise/fixwise/internal/api/handlers"
	"github.com/fixwise/fixwise/internal/config"
	"github.com/fixwise/fixwise/internal/database"
	"github.com/fixwise/fixwise/internal/graph"
	"github.com/fixwise/fixwise/internal/jobs"
	"github.com/fixwise/fixwise/internal/openai"
	"github.com/fixwise/fixwise/internal/repository"
	"github.com/fixwise/fixwise/internal/server"
	"github.com/fixwise/fixwise/internal/service"
	"github.com/fixwise/fixwise/internal/storage"
	"github.com/fixwise/fixwise/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the fixwise support knowledge API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Retrieval and promotion both embed text, so the server cannot run
	// without an embedding provider.
	if !cfg.HasOpenAI() {
		return fmt.Errorf("OPENAI_API_KEY is required to serve")
	}

	if cfg.HasSentry() {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	manualRepo := repository.NewManualEntryRepository(pool)
	corpusRepo := repository.NewCorpusRepository(pool)
	feedbackRepo := repository.NewFeedbackRepository(pool)
	interactionRepo := repository.NewInteractionRepository(pool)

	aiClient := openai.NewClient(cfg.OpenAIAPIKey)

	var graphSource service.GraphSource
	if cfg.HasGraph() {
		graphSource = graph.NewClient(cfg.GraphURL)
		log.Printf("knowledge graph engine at %s", cfg.GraphURL)
	}

	validator := service.NewAnswerValidatorWithModel(aiClient)

	manualSvc := service.NewManualKnowledgeService(manualRepo, aiClient)
	feedbackSvc := service.NewFeedbackService(feedbackRepo, manualRepo, aiClient)
	interactionSvc := service.NewInteractionService(interactionRepo)
	querySvc := service.NewQueryService(manualRepo, corpusRepo, aiClient, aiClient, validator, graphSource)

	promotionWorker := jobs.NewWorker(jobs.NewPromotionWorker(feedbackSvc), cfg.PromotionSyncInterval)
	go promotionWorker.Start(ctx)
	log.Printf("promotion worker started (interval %s)", cfg.PromotionSyncInterval)

	if cfg.HasS3() {
		s3Client, err := newS3Client(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
	}

	routerCfg := server.RouterConfig{
		QueryHandler:       handlers.NewQueryHandler(querySvc),
		ManualHandler:      handlers.NewManualHandler(manualSvc),
		FeedbackHandler:    handlers.NewFeedbackHandler(feedbackSvc),
		ValidateHandler:    handlers.NewValidateHandler(validator),
		InteractionHandler: handlers.NewInteractionHandler(interactionSvc),
		SystemHandler:      handlers.NewSystemHandler(manualSvc, interactionSvc, feedbackSvc),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	promotionWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func newS3Client(ctx context.Context, cfg *config.Config) (*storage.S3Client, error) {
	return storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
}

func runMigrations(databaseURL string) error {
	// golang-migrate wants a database/sql connection
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in a dirty migration state at version %d", version)
	}
	log.Printf("migrations up to date (version %d)", version)

	return nil
}
