package jobs

import (
	"context"
	"fmt"
	"log"
)

// LedgerSyncer replays promotable feedback into the manual knowledge store.
type LedgerSyncer interface {
	SyncLedger(ctx context.Context) (int, error)
}

// PromotionWorker periodically reconciles the feedback ledger with the
// manual knowledge store, picking up records whose promotion was missed
// at submission time (e.g. a transient embedding failure).
type PromotionWorker struct {
	syncer LedgerSyncer
}

// NewPromotionWorker creates a new PromotionWorker instance
func NewPromotionWorker(syncer LedgerSyncer) *PromotionWorker {
	return &PromotionWorker{syncer: syncer}
}

// ProcessJobs runs one ledger sync pass.
func (w *PromotionWorker) ProcessJobs(ctx context.Context) error {
	promoted, err := w.syncer.SyncLedger(ctx)
	if err != nil {
		return fmt.Errorf("failed to sync feedback ledger: %w", err)
	}

	if promoted > 0 {
		log.Printf("Promotion sync: promoted %d feedback records to manual knowledge", promoted)
	}

	return nil
}
