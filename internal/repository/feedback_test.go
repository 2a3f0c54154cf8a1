//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/fixwise/fixwise/internal/domain"
	"github.com/fixwise/fixwise/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDBFeedbackRecord(satisfaction string) *domain.FeedbackRecord {
	return &domain.FeedbackRecord{
		ID:             uuid.NewString(),
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
		UserQuestion:   "Router keeps rebooting",
		OriginalAnswer: "Try restarting it.",
		OriginalSources: []domain.SourceRef{
			{Brand: "TP-Link", ProductCategory: "router", DocumentType: "manual", FileName: "tp.pdf"},
		},
		FeedbackType:   domain.FeedbackTypeIncorrect,
		ManualSolution: "Update the firmware to v2.1.",
		SupportAgent:   "agent-7",
		Attributes: domain.EntryAttributes{
			Brand:            "TP-Link",
			ProductCategory:  "router",
			IssueCategory:    "connectivity",
			ResolutionMethod: "firmware_update",
		},
		CustomerSatisfaction: satisfaction,
		Tags:                 []string{"escalated"},
		Notes:                "second occurrence this week",
	}
}

func TestFeedbackRepository_AppendAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewFeedbackRepository(pool)

	record := newDBFeedbackRecord("satisfied")
	require.NoError(t, repo.Append(ctx, record))

	retrieved, err := repo.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.UserQuestion, retrieved.UserQuestion)
	assert.Equal(t, record.OriginalSources, retrieved.OriginalSources)
	assert.Equal(t, record.FeedbackType, retrieved.FeedbackType)
	assert.Equal(t, record.ManualSolution, retrieved.ManualSolution)
	assert.Equal(t, record.Attributes, retrieved.Attributes)
	assert.Equal(t, record.Tags, retrieved.Tags)
	assert.Equal(t, record.Notes, retrieved.Notes)
}

func TestFeedbackRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewFeedbackRepository(pool)

	_, err := repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrFeedbackRecordNotFound)
}

func TestFeedbackRepository_ListPromotable(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewFeedbackRepository(pool)

	promotable := newDBFeedbackRecord("very_satisfied")
	numeric := newDBFeedbackRecord("5")
	neutral := newDBFeedbackRecord("neutral")
	noSolution := newDBFeedbackRecord("satisfied")
	noSolution.ManualSolution = ""

	for _, r := range []*domain.FeedbackRecord{promotable, numeric, neutral, noSolution} {
		require.NoError(t, repo.Append(ctx, r))
	}

	records, err := repo.ListPromotable(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	ids := []string{records[0].ID, records[1].ID}
	assert.Contains(t, ids, promotable.ID)
	assert.Contains(t, ids, numeric.ID)
}

func TestFeedbackRepository_ListByAttributes(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewFeedbackRepository(pool)

	tplink := newDBFeedbackRecord("satisfied")
	bosch := newDBFeedbackRecord("satisfied")
	bosch.Attributes.Brand = "Bosch"
	bosch.Attributes.ProductCategory = "dishwasher"

	require.NoError(t, repo.Append(ctx, tplink))
	require.NoError(t, repo.Append(ctx, bosch))

	records, err := repo.ListByAttributes(ctx, "Bosch", "", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, bosch.ID, records[0].ID)

	all, err := repo.ListByAttributes(ctx, "", "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestFeedbackRepository_Statistics(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewFeedbackRepository(pool)

	incorrect := newDBFeedbackRecord("satisfied")
	incomplete := newDBFeedbackRecord("neutral")
	incomplete.FeedbackType = domain.FeedbackTypeIncomplete
	old := newDBFeedbackRecord("satisfied")
	old.CreatedAt = time.Now().UTC().AddDate(0, 0, -30).Truncate(time.Microsecond)

	for _, r := range []*domain.FeedbackRecord{incorrect, incomplete, old} {
		require.NoError(t, repo.Append(ctx, r))
	}

	stats, err := repo.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalEntries)
	assert.Equal(t, 2, stats.ByType["incorrect"])
	assert.Equal(t, 1, stats.ByType["incomplete"])
	assert.Equal(t, 3, stats.ByBrand["TP-Link"])
	assert.Equal(t, 3, stats.TopIssues["connectivity"])
	assert.Equal(t, 2, stats.RecentEntries)
}
