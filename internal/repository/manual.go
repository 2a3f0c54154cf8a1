package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fixwise/fixwise/internal/domain"
	"github.com/fixwise/fixwise/internal/pagination"
	"github.com/fixwise/fixwise/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ManualEntryRepository persists the manual knowledge store with pgvector
// similarity search.
type ManualEntryRepository struct {
	db dbtx
}

func NewManualEntryRepository(pool *pgxpool.Pool) *ManualEntryRepository {
	return &ManualEntryRepository{db: pool}
}

func NewManualEntryRepositoryWithTx(tx pgx.Tx) *ManualEntryRepository {
	return &ManualEntryRepository{db: tx}
}

// Insert adds an entry. The id is the store's unique key: a conflicting
// insert is a no-op and reports false, which keeps promotion idempotent under
// concurrent writers.
func (r *ManualEntryRepository) Insert(ctx context.Context, e *domain.ManualEntry, embedding []float32) (bool, error) {
	cmdTag, err := r.db.Exec(ctx,
		`INSERT INTO manual_entries
			(id, question, solution, brand, product_category, issue_category, resolution_method, tags, confidence_score, source_type, embedding, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (id) DO NOTHING`,
		e.ID, e.Question, e.Solution,
		nullableString(e.Attributes.Brand),
		nullableString(e.Attributes.ProductCategory),
		nullableString(e.Attributes.IssueCategory),
		nullableString(e.Attributes.ResolutionMethod),
		e.Tags, e.ConfidenceScore, string(e.SourceType),
		pgvector.NewVector(embedding), e.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	return cmdTag.RowsAffected() > 0, nil
}

func (r *ManualEntryRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM manual_entries WHERE id = $1)`,
		id,
	).Scan(&exists)
	return exists, err
}

func (r *ManualEntryRepository) GetByID(ctx context.Context, id string) (*domain.ManualEntry, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, question, solution, brand, product_category, issue_category, resolution_method, tags, confidence_score, source_type, created_at
		 FROM manual_entries WHERE id = $1`,
		id,
	)
	entry, err := scanManualEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrManualEntryNotFound
		}
		return nil, err
	}
	return entry, nil
}

// Search returns the nearest entries by cosine distance, reordered by stored
// confidence so trust outranks textual similarity.
func (r *ManualEntryRepository) Search(ctx context.Context, embedding []float32, filters service.SearchFilters, limit int) ([]*service.ManualHit, error) {
	if limit <= 0 {
		limit = 5
	}

	query := `
		SELECT id, question, solution, brand, product_category, issue_category, resolution_method, tags, confidence_score, source_type, created_at, distance
		FROM (
			SELECT *, embedding <=> $1 AS distance
			FROM manual_entries
			WHERE embedding IS NOT NULL`
	args := []any{pgvector.NewVector(embedding)}

	if filters.Brand != "" {
		args = append(args, filters.Brand)
		query += ` AND brand = $` + argN(len(args))
	}
	if filters.ProductCategory != "" {
		args = append(args, filters.ProductCategory)
		query += ` AND product_category = $` + argN(len(args))
	}
	if filters.IssueCategory != "" {
		args = append(args, filters.IssueCategory)
		query += ` AND issue_category = $` + argN(len(args))
	}

	args = append(args, limit)
	query += `
			ORDER BY distance
			LIMIT $` + argN(len(args)) + `
		) nearest
		ORDER BY confidence_score DESC, distance`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []*service.ManualHit
	for rows.Next() {
		var e domain.ManualEntry
		var brand, product, issue, resolution *string
		var sourceType string
		var distance float64
		if err := rows.Scan(&e.ID, &e.Question, &e.Solution, &brand, &product, &issue, &resolution, &e.Tags, &e.ConfidenceScore, &sourceType, &e.CreatedAt, &distance); err != nil {
			return nil, err
		}
		e.Attributes = attrsFromNullable(brand, product, issue, resolution)
		e.SourceType = domain.SourceType(sourceType)
		hits = append(hits, &service.ManualHit{Entry: &e, Distance: float32(distance)})
	}
	return hits, rows.Err()
}

func (r *ManualEntryRepository) List(ctx context.Context, cursor *pagination.Cursor, limit int) (*service.ManualEntryPage, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, question, solution, brand, product_category, issue_category, resolution_method, tags, confidence_score, source_type, created_at
			 FROM manual_entries
			 WHERE (created_at, id) < ($1, $2)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, question, solution, brand, product_category, issue_category, resolution_method, tags, confidence_score, source_type, created_at
			 FROM manual_entries
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1`,
			limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanManualEntryRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		lastItem := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(lastItem.ID, lastItem.CreatedAt)
	}

	return &service.ManualEntryPage{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *ManualEntryRepository) Stats(ctx context.Context) (*service.ManualKnowledgeStats, error) {
	stats := &service.ManualKnowledgeStats{
		EntriesByBrand:      map[string]int{},
		EntriesByProduct:    map[string]int{},
		EntriesByIssue:      map[string]int{},
		EntriesBySourceType: map[string]int{},
	}

	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*),
		        COALESCE(AVG(confidence_score), 0),
		        COUNT(*) FILTER (WHERE confidence_score > 0.8),
		        COUNT(*) FILTER (WHERE created_at > $1)
		 FROM manual_entries`,
		time.Now().UTC().AddDate(0, 0, -7),
	).Scan(&stats.TotalEntries, &stats.AvgConfidence, &stats.HighConfidenceEntries, &stats.RecentEntries)
	if err != nil {
		return nil, err
	}

	groupCounts := []struct {
		column string
		dest   map[string]int
	}{
		{"brand", stats.EntriesByBrand},
		{"product_category", stats.EntriesByProduct},
		{"issue_category", stats.EntriesByIssue},
		{"source_type", stats.EntriesBySourceType},
	}
	for _, g := range groupCounts {
		if err := r.countByColumn(ctx, g.column, g.dest); err != nil {
			return nil, err
		}
	}

	return stats, nil
}

func (r *ManualEntryRepository) countByColumn(ctx context.Context, column string, dest map[string]int) error {
	// column comes from a fixed internal list, never from input
	rows, err := r.db.Query(ctx,
		`SELECT COALESCE(`+column+`, 'unknown'), COUNT(*) FROM manual_entries GROUP BY 1`,
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

func (r *ManualEntryRepository) Clear(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `DELETE FROM manual_entries`)
	return err
}

func scanManualEntry(row pgx.Row) (*domain.ManualEntry, error) {
	var e domain.ManualEntry
	var brand, product, issue, resolution *string
	var sourceType string
	if err := row.Scan(&e.ID, &e.Question, &e.Solution, &brand, &product, &issue, &resolution, &e.Tags, &e.ConfidenceScore, &sourceType, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Attributes = attrsFromNullable(brand, product, issue, resolution)
	e.SourceType = domain.SourceType(sourceType)
	return &e, nil
}

func scanManualEntryRows(rows pgx.Rows) ([]*domain.ManualEntry, error) {
	var results []*domain.ManualEntry
	for rows.Next() {
		entry, err := scanManualEntry(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entry)
	}
	return results, rows.Err()
}

func attrsFromNullable(brand, product, issue, resolution *string) domain.EntryAttributes {
	var attrs domain.EntryAttributes
	if brand != nil {
		attrs.Brand = *brand
	}
	if product != nil {
		attrs.ProductCategory = *product
	}
	if issue != nil {
		attrs.IssueCategory = *issue
	}
	if resolution != nil {
		attrs.ResolutionMethod = *resolution
	}
	return attrs
}
