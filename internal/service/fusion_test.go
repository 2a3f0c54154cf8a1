package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/fixwise/fixwise/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func manualHit(id string, confidence, distance float32) *ManualHit {
	return &ManualHit{
		Entry: &domain.ManualEntry{
			ID:              id,
			Question:        "question " + id,
			Solution:        "solution " + id,
			ConfidenceScore: confidence,
			SourceType:      domain.SourceTypeRealTimeManual,
			CreatedAt:       time.Now().UTC(),
		},
		Distance: distance,
	}
}

func corpusHit(id string, distance float32) *CorpusHit {
	return &CorpusHit{
		Chunk: &domain.CorpusChunk{
			ID:      id,
			Content: "content " + id,
		},
		Distance: distance,
	}
}

func TestFuseContext(t *testing.T) {
	t.Run("manual hits use boosted stored confidence as priority", func(t *testing.T) {
		fused := FuseContext([]*ManualHit{manualHit("m1", 0.8, 0.4)}, nil, 8)

		require.Len(t, fused, 1)
		assert.Equal(t, KnowledgeSourceManual, fused[0].Source)
		assert.InDelta(t, 1.2, fused[0].PriorityScore, 1e-6)
		assert.Contains(t, fused[0].Content, "question m1")
		assert.Contains(t, fused[0].Content, "solution m1")
	})

	t.Run("corpus priority is one minus distance", func(t *testing.T) {
		fused := FuseContext(nil, []*CorpusHit{corpusHit("c1", 0.3)}, 8)

		require.Len(t, fused, 1)
		assert.Equal(t, KnowledgeSourceOriginal, fused[0].Source)
		assert.InDelta(t, 0.7, fused[0].PriorityScore, 1e-6)
	})

	t.Run("mid-confidence manual outranks near-perfect corpus match", func(t *testing.T) {
		fused := FuseContext(
			[]*ManualHit{manualHit("m1", 0.7, 0.5)},
			[]*CorpusHit{corpusHit("c1", 0.02)},
			8,
		)

		require.Len(t, fused, 2)
		assert.Equal(t, KnowledgeSourceManual, fused[0].Source)
		assert.Equal(t, KnowledgeSourceOriginal, fused[1].Source)
	})

	t.Run("equal priority ranks manual before original", func(t *testing.T) {
		// manual: 0.6 * 1.5 = 0.9; corpus: 1 - 0.1 = 0.9
		fused := FuseContext(
			[]*ManualHit{manualHit("m1", 0.6, 0.5)},
			[]*CorpusHit{corpusHit("c1", 0.1)},
			8,
		)

		require.Len(t, fused, 2)
		assert.Equal(t, KnowledgeSourceManual, fused[0].Source)
	})

	t.Run("result is capped at limit", func(t *testing.T) {
		var corpus []*CorpusHit
		for i := 0; i < 12; i++ {
			corpus = append(corpus, corpusHit(fmt.Sprintf("c%d", i), float32(i)*0.05))
		}

		fused := FuseContext(nil, corpus, 8)

		require.Len(t, fused, 8)
		for i := 1; i < len(fused); i++ {
			assert.GreaterOrEqual(t, fused[i-1].PriorityScore, fused[i].PriorityScore)
		}
	})

	t.Run("non-positive limit falls back to default cap", func(t *testing.T) {
		var corpus []*CorpusHit
		for i := 0; i < 12; i++ {
			corpus = append(corpus, corpusHit(fmt.Sprintf("c%d", i), 0.5))
		}

		assert.Len(t, FuseContext(nil, corpus, 0), 8)
		assert.Len(t, FuseContext(nil, corpus, -3), 8)
	})

	t.Run("out-of-range distances are clamped", func(t *testing.T) {
		fused := FuseContext(nil, []*CorpusHit{
			corpusHit("far", 1.7),
			corpusHit("negative", -0.2),
		}, 8)

		require.Len(t, fused, 2)
		assert.Equal(t, "negative", fused[0].Chunk.ID)
		assert.InDelta(t, 1.0, fused[0].PriorityScore, 1e-6)
		assert.Equal(t, "far", fused[1].Chunk.ID)
		assert.InDelta(t, 0.0, fused[1].PriorityScore, 1e-6)
	})

	t.Run("empty inputs yield empty result", func(t *testing.T) {
		assert.Empty(t, FuseContext(nil, nil, 8))
	})

	t.Run("nil hits are skipped", func(t *testing.T) {
		fused := FuseContext(
			[]*ManualHit{nil, {Entry: nil}},
			[]*CorpusHit{nil, corpusHit("c1", 0.5)},
			8,
		)

		require.Len(t, fused, 1)
		assert.Equal(t, "c1", fused[0].Chunk.ID)
	})
}
