package domain

import "time"

// InteractionLog records one answered query for analytics. Logged by the
// presentation layer after each response; append-only.
type InteractionLog struct {
	ID         string
	Query      string
	Answer     string
	Source     string
	Confidence float32
	CreatedAt  time.Time
}
