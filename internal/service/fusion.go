package service

import (
	"sort"

	"github.com/fixwise/fixwise/internal/domain"
)

const (
	// defaultFusedContextLimit caps the merged context list per query.
	defaultFusedContextLimit = 8

	// manualConfidenceBoost scales a manual entry's stored confidence into a
	// priority score. Chosen so a mid-confidence manual hit outranks a
	// near-perfect corpus match: manual data is human-verified.
	manualConfidenceBoost = 1.5
)

// KnowledgeSource identifies which store a fused context item came from
type KnowledgeSource string

const (
	KnowledgeSourceManual   KnowledgeSource = "manual"
	KnowledgeSourceOriginal KnowledgeSource = "original"
)

// ManualHit is one manual-store search result with its similarity distance
type ManualHit struct {
	Entry    *domain.ManualEntry
	Distance float32
}

// CorpusHit is one corpus search result with its similarity distance
type CorpusHit struct {
	Chunk    *domain.CorpusChunk
	Distance float32
}

// FusedContextItem is one prioritized entry in the merged context list.
// Transient, derived per query, never persisted.
type FusedContextItem struct {
	Content       string
	Source        KnowledgeSource
	PriorityScore float32
	Entry         *domain.ManualEntry // set when Source == manual
	Chunk         *domain.CorpusChunk // set when Source == original
}

// FuseContext merges manual-store hits and corpus hits into one ordered
// context list capped at limit. Manual hits are prioritized by boosted stored
// confidence; corpus hits by similarity (distance converted and clamped to
// [0,1]). Ties rank manual before original. Pure function; empty inputs on
// either side are valid and yield a possibly empty result.
func FuseContext(manual []*ManualHit, corpus []*CorpusHit, limit int) []*FusedContextItem {
	if limit <= 0 {
		limit = defaultFusedContextLimit
	}

	fused := make([]*FusedContextItem, 0, len(manual)+len(corpus))

	for _, hit := range manual {
		if hit == nil || hit.Entry == nil {
			continue
		}
		fused = append(fused, &FusedContextItem{
			Content:       "Question: " + hit.Entry.Question + "\nSolution: " + hit.Entry.Solution,
			Source:        KnowledgeSourceManual,
			PriorityScore: hit.Entry.ConfidenceScore * manualConfidenceBoost,
			Entry:         hit.Entry,
		})
	}

	for _, hit := range corpus {
		if hit == nil || hit.Chunk == nil {
			continue
		}
		fused = append(fused, &FusedContextItem{
			Content:       hit.Chunk.Content,
			Source:        KnowledgeSourceOriginal,
			PriorityScore: 1.0 - clampUnit(hit.Distance),
			Chunk:         hit.Chunk,
		})
	}

	// Manual items were appended first, so a stable sort keeps them ahead of
	// corpus items with equal priority.
	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].PriorityScore > fused[j].PriorityScore
	})

	if len(fused) > limit {
		fused = fused[:limit]
	}
	return fused
}

func clampUnit(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
