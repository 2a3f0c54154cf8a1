package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fixwise/fixwise/internal/config"
	"github.com/fixwise/fixwise/internal/database"
	"github.com/fixwise/fixwise/internal/repository"
	"github.com/fixwise/fixwise/internal/service"
	"github.com/spf13/cobra"
)

// StatsCmd returns the stats command
func StatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print knowledge store statistics",
		Long:  "Print manual knowledge, interaction, and feedback statistics as JSON",
		RunE:  runStats,
	}
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	manualSvc := service.NewManualKnowledgeService(repository.NewManualEntryRepository(pool), nil)
	interactionSvc := service.NewInteractionService(repository.NewInteractionRepository(pool))
	feedbackSvc := service.NewFeedbackService(repository.NewFeedbackRepository(pool), repository.NewManualEntryRepository(pool), nil)

	manualStats, err := manualSvc.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to load manual knowledge stats: %w", err)
	}
	interactionStats, err := interactionSvc.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to load interaction stats: %w", err)
	}
	feedbackStats, err := feedbackSvc.Statistics(ctx)
	if err != nil {
		return fmt.Errorf("failed to load feedback stats: %w", err)
	}

	out := struct {
		Manual       *service.ManualKnowledgeStats `json:"manual_knowledge"`
		Interactions *service.InteractionStats     `json:"interactions"`
		Feedback     *service.FeedbackStats        `json:"feedback"`
	}{manualStats, interactionStats, feedbackStats}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
