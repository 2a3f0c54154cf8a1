package cli

import (
	"context"
	"fmt"

	"github.com/fixwise/fixwise/internal/config"
	"github.com/fixwise/fixwise/internal/database"
	"github.com/fixwise/fixwise/internal/openai"
	"github.com/fixwise/fixwise/internal/repository"
	"github.com/fixwise/fixwise/internal/service"
	"github.com/spf13/cobra"
)

// SyncCmd returns the sync command
func SyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Promote positive feedback into the manual knowledge store",
		Long:  "Run one pass over the feedback ledger, promoting resolved positive-feedback records that are not yet in the manual knowledge store",
		RunE:  runSync,
	}
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	// Promotion embeds the new manual entry
	if !cfg.HasOpenAI() {
		return fmt.Errorf("OPENAI_API_KEY is required to sync")
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	feedbackSvc := service.NewFeedbackService(
		repository.NewFeedbackRepository(pool),
		repository.NewManualEntryRepository(pool),
		openai.NewClient(cfg.OpenAIAPIKey),
	)

	promoted, err := feedbackSvc.SyncLedger(ctx)
	if err != nil {
		return fmt.Errorf("failed to sync feedback ledger: %w", err)
	}

	fmt.Printf("promoted %d feedback records\n", promoted)
	return nil
}
