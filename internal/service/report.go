package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fixwise/fixwise/internal/telemetry"
)

// ReportUploader is the storage target for exported reports
type ReportUploader interface {
	PutObject(ctx context.Context, key string, contentType string, body []byte) error
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
}

// FeedbackReport is the exported snapshot of feedback activity
type FeedbackReport struct {
	GeneratedAt     time.Time             `json:"generated_at"`
	Statistics      *FeedbackStats        `json:"statistics"`
	Manual          *ManualKnowledgeStats `json:"manual_knowledge"`
	Interactions    *InteractionStats     `json:"interactions"`
	Recommendations []string              `json:"recommendations"`
}

// ExportResult describes the uploaded report object
type ExportResult struct {
	Key         string
	DownloadURL string
	GeneratedAt time.Time
}

// ReportService builds periodic feedback reports and exports them as JSON
// objects to S3-compatible storage.
type ReportService struct {
	feedback     *FeedbackService
	manual       *ManualKnowledgeService
	interactions *InteractionService
	uploader     ReportUploader
	now          func() time.Time
}

// NewReportService creates a new ReportService instance
func NewReportService(feedback *FeedbackService, manual *ManualKnowledgeService, interactions *InteractionService, uploader ReportUploader) *ReportService {
	return &ReportService{
		feedback:     feedback,
		manual:       manual,
		interactions: interactions,
		uploader:     uploader,
		now:          time.Now,
	}
}

// Build assembles the report from the current store contents
func (s *ReportService) Build(ctx context.Context) (*FeedbackReport, error) {
	ctx, span := telemetry.StartSpan(ctx, "ReportService.Build", telemetry.SpanAttributes{
		Operation: "build_report",
	})
	defer span.End()

	stats, err := s.feedback.Statistics(ctx)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("feedback statistics: %w", err)
	}

	manualStats, err := s.manual.Stats(ctx)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("manual knowledge statistics: %w", err)
	}

	interactionStats, err := s.interactions.Stats(ctx)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("interaction statistics: %w", err)
	}

	return &FeedbackReport{
		GeneratedAt:     s.now().UTC(),
		Statistics:      stats,
		Manual:          manualStats,
		Interactions:    interactionStats,
		Recommendations: Recommendations(stats),
	}, nil
}

// Export builds the report and uploads it as a timestamped JSON object,
// returning a presigned download URL.
func (s *ReportService) Export(ctx context.Context, prefix string) (*ExportResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "ReportService.Export", telemetry.SpanAttributes{
		Operation: "export_report",
	})
	defer span.End()

	report, err := s.Build(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("marshal report: %w", err)
	}

	if prefix == "" {
		prefix = "reports"
	}
	key := fmt.Sprintf("%s/feedback_report_%s.json", prefix, report.GeneratedAt.Format("20060102_150405"))

	if err := s.uploader.PutObject(ctx, key, "application/json", body); err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("upload report: %w", err)
	}

	url, err := s.uploader.GenerateDownloadURL(ctx, key)
	if err != nil {
		// The object is uploaded; a missing URL is not worth failing over.
		telemetry.CaptureError(ctx, err)
		url = ""
	}

	return &ExportResult{
		Key:         key,
		DownloadURL: url,
		GeneratedAt: report.GeneratedAt,
	}, nil
}
