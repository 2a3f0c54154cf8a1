package cli

import (
	"context"
	"fmt"

	"github.com/fixwise/fixwise/internal/config"
	"github.com/fixwise/fixwise/internal/database"
	"github.com/fixwise/fixwise/internal/repository"
	"github.com/fixwise/fixwise/internal/service"
	"github.com/spf13/cobra"
)

// ReportCmd returns the report command
func ReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export a feedback report to S3",
		Long:  "Build a feedback activity report and upload it as a JSON object to S3-compatible storage",
		RunE:  runReport,
	}

	cmd.Flags().String("prefix", "", "Object key prefix (defaults to FIXWISE_REPORT_PREFIX)")

	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasS3() {
		return fmt.Errorf("S3_ENDPOINT, S3_ACCESS_KEY_ID, and S3_SECRET_ACCESS_KEY are required to export reports")
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	s3Client, err := newS3Client(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create S3 client: %w", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("failed to ensure S3 bucket: %w", err)
	}

	manualRepo := repository.NewManualEntryRepository(pool)
	reportSvc := service.NewReportService(
		service.NewFeedbackService(repository.NewFeedbackRepository(pool), manualRepo, nil),
		service.NewManualKnowledgeService(manualRepo, nil),
		service.NewInteractionService(repository.NewInteractionRepository(pool)),
		s3Client,
	)

	prefix, _ := cmd.Flags().GetString("prefix")
	if prefix == "" {
		prefix = cfg.ReportPrefix
	}

	result, err := reportSvc.Export(ctx, prefix)
	if err != nil {
		return fmt.Errorf("failed to export report: %w", err)
	}

	fmt.Printf("report uploaded to %s\n", result.Key)
	fmt.Println(result.DownloadURL)
	return nil
}
