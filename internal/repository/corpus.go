package repository

import (
	"context"

	"github.com/fixwise/fixwise/internal/domain"
	"github.com/fixwise/fixwise/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// CorpusRepository holds the bulk-ingested documentation chunks. The corpus
// is read-mostly: chunks arrive via ingestion and are never updated.
type CorpusRepository struct {
	db dbtx
}

func NewCorpusRepository(pool *pgxpool.Pool) *CorpusRepository {
	return &CorpusRepository{db: pool}
}

func (r *CorpusRepository) Insert(ctx context.Context, c *domain.CorpusChunk, embedding []float32) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO corpus_chunks (id, content, brand, product_category, document_type, file_name, embedding, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.Content,
		nullableString(c.Attributes.Brand),
		nullableString(c.Attributes.ProductCategory),
		nullableString(c.Attributes.DocumentType),
		nullableString(c.Attributes.FileName),
		pgvector.NewVector(embedding), c.CreatedAt,
	)
	return err
}

// Search returns the nearest chunks by cosine distance
func (r *CorpusRepository) Search(ctx context.Context, embedding []float32, filters service.SearchFilters, limit int) ([]*service.CorpusHit, error) {
	if limit <= 0 {
		limit = 5
	}

	query := `
		SELECT id, content, brand, product_category, document_type, file_name, created_at, embedding <=> $1 AS distance
		FROM corpus_chunks
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

	args = append(args, limit)
	query += `
		ORDER BY distance
		LIMIT $` + argN(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []*service.CorpusHit
	for rows.Next() {
		var c domain.CorpusChunk
		var brand, product, docType, fileName *string
		var distance float64
		if err := rows.Scan(&c.ID, &c.Content, &brand, &product, &docType, &fileName, &c.CreatedAt, &distance); err != nil {
			return nil, err
		}
		if brand != nil {
			c.Attributes.Brand = *brand
		}
		if product != nil {
			c.Attributes.ProductCategory = *product
		}
		if docType != nil {
			c.Attributes.DocumentType = *docType
		}
		if fileName != nil {
			c.Attributes.FileName = *fileName
		}
		hits = append(hits, &service.CorpusHit{Chunk: &c, Distance: float32(distance)})
	}
	return hits, rows.Err()
}

func (r *CorpusRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM corpus_chunks`).Scan(&count)
	return count, err
}
