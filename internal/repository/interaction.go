package repository

import (
	"context"
	"time"

	"github.com/fixwise/fixwise/internal/domain"
	"github.com/fixwise/fixwise/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InteractionRepository persists answered-query audit logs
type InteractionRepository struct {
	db dbtx
}

func NewInteractionRepository(pool *pgxpool.Pool) *InteractionRepository {
	return &InteractionRepository{db: pool}
}

func (r *InteractionRepository) Insert(ctx context.Context, logEntry *domain.InteractionLog) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO interaction_logs (id, query, answer, source, confidence, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		logEntry.ID, logEntry.Query, logEntry.Answer, logEntry.Source, logEntry.Confidence, logEntry.CreatedAt,
	)
	return err
}

func (r *InteractionRepository) Stats(ctx context.Context) (*service.InteractionStats, error) {
	stats := &service.InteractionStats{
		BySource: map[string]int{},
	}

	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*),
		        COALESCE(AVG(confidence), 0),
		        COUNT(*) FILTER (WHERE created_at > $1)
		 FROM interaction_logs`,
		time.Now().UTC().AddDate(0, 0, -7),
	).Scan(&stats.TotalInteractions, &stats.AvgConfidence, &stats.RecentCount)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT source, COUNT(*) FROM interaction_logs GROUP BY source`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, err
		}
		stats.BySource[source] = count
	}
	return stats, rows.Err()
}
