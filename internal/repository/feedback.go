package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fixwise/fixwise/internal/domain"
	"github.com/fixwise/fixwise/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FeedbackRepository is the append-only feedback ledger. Records are never
// updated or deleted.
type FeedbackRepository struct {
	db dbtx
}

func NewFeedbackRepository(pool *pgxpool.Pool) *FeedbackRepository {
	return &FeedbackRepository{db: pool}
}

func NewFeedbackRepositoryWithTx(tx pgx.Tx) *FeedbackRepository {
	return &FeedbackRepository{db: tx}
}

func (r *FeedbackRepository) Append(ctx context.Context, record *domain.FeedbackRecord) error {
	sources, err := json.Marshal(record.OriginalSources)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO feedback_records
			(id, created_at, user_question, original_answer, original_sources, feedback_type, manual_solution, support_agent,
			 brand, product_category, issue_category, resolution_method, customer_satisfaction, tags, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		record.ID, record.CreatedAt, record.UserQuestion, record.OriginalAnswer, sources,
		string(record.FeedbackType), record.ManualSolution, nullableString(record.SupportAgent),
		nullableString(record.Attributes.Brand),
		nullableString(record.Attributes.ProductCategory),
		nullableString(record.Attributes.IssueCategory),
		nullableString(record.Attributes.ResolutionMethod),
		nullableString(record.CustomerSatisfaction),
		record.Tags, record.Notes,
	)
	return err
}

func (r *FeedbackRepository) GetByID(ctx context.Context, id string) (*domain.FeedbackRecord, error) {
	rows, err := r.db.Query(ctx,
		feedbackSelectColumns+` FROM feedback_records WHERE id = $1`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records, err := scanFeedbackRows(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, domain.ErrFeedbackRecordNotFound
	}
	return records[0], nil
}

// ListPromotable returns records carrying a manual solution and positive
// satisfaction, oldest first so promotion order matches submission order.
func (r *FeedbackRepository) ListPromotable(ctx context.Context) ([]*domain.FeedbackRecord, error) {
	rows, err := r.db.Query(ctx,
		feedbackSelectColumns+`
		 FROM feedback_records
		 WHERE manual_solution <> '' AND customer_satisfaction = ANY($1)
		 ORDER BY created_at ASC`,
		domain.PositiveSatisfactionValues(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanFeedbackRows(rows)
}

func (r *FeedbackRepository) ListByAttributes(ctx context.Context, brand, product string, limit int) ([]*domain.FeedbackRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query := feedbackSelectColumns + ` FROM feedback_records WHERE 1=1`
	var args []any

	if brand != "" {
		args = append(args, brand)
		query += ` AND brand = $` + argN(len(args))
	}
	if product != "" {
		args = append(args, product)
		query += ` AND product_category = $` + argN(len(args))
	}

	args = append(args, limit)
	query += ` ORDER BY created_at DESC LIMIT $` + argN(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanFeedbackRows(rows)
}

func (r *FeedbackRepository) Statistics(ctx context.Context) (*service.FeedbackStats, error) {
	stats := &service.FeedbackStats{
		ByType:            map[string]int{},
		ByBrand:           map[string]int{},
		ByProduct:         map[string]int{},
		TopIssues:         map[string]int{},
		ResolutionMethods: map[string]int{},
	}

	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE created_at > $1)
		 FROM feedback_records`,
		time.Now().UTC().AddDate(0, 0, -7),
	).Scan(&stats.TotalEntries, &stats.RecentEntries)
	if err != nil {
		return nil, err
	}

	groupCounts := []struct {
		column string
		dest   map[string]int
	}{
		{"feedback_type", stats.ByType},
		{"brand", stats.ByBrand},
		{"product_category", stats.ByProduct},
		{"issue_category", stats.TopIssues},
		{"resolution_method", stats.ResolutionMethods},
	}
	for _, g := range groupCounts {
		if err := r.countFeedbackByColumn(ctx, g.column, g.dest); err != nil {
			return nil, err
		}
	}

	return stats, nil
}

func (r *FeedbackRepository) countFeedbackByColumn(ctx context.Context, column string, dest map[string]int) error {
	// column comes from a fixed internal list, never from input
	rows, err := r.db.Query(ctx,
		`SELECT COALESCE(`+column+`, 'unknown'), COUNT(*) FROM feedback_records GROUP BY 1`,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		dest[key] = count
	}
	return rows.Err()
}

const feedbackSelectColumns = `
	SELECT id, created_at, user_question, original_answer, original_sources, feedback_type, manual_solution, support_agent,
	       brand, product_category, issue_category, resolution_method, customer_satisfaction, tags, notes`

func scanFeedbackRows(rows pgx.Rows) ([]*domain.FeedbackRecord, error) {
	var results []*domain.FeedbackRecord
	for rows.Next() {
		var record domain.FeedbackRecord
		var sources []byte
		var feedbackType string
		var agent, brand, product, issue, resolution, satisfaction *string
		if err := rows.Scan(
			&record.ID, &record.CreatedAt, &record.UserQuestion, &record.OriginalAnswer, &sources,
			&feedbackType, &record.ManualSolution, &agent,
			&brand, &product, &issue, &resolution, &satisfaction,
			&record.Tags, &record.Notes,
		); err != nil {
			return nil, err
		}

		record.FeedbackType = domain.FeedbackType(feedbackType)
		if len(sources) > 0 {
			if err := json.Unmarshal(sources, &record.OriginalSources); err != nil {
				return nil, err
			}
		}
		if agent != nil {
			record.SupportAgent = *agent
		}
		record.Attributes = attrsFromNullable(brand, product, issue, resolution)
		if satisfaction != nil {
			record.CustomerSatisfaction = *satisfaction
		}
		results = append(results, &record)
	}
	return results, rows.Err()
}
