package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fixwise/fixwise/internal/domain"
	"github.com/fixwise/fixwise/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

const (
	manualSearchLimit = 3
	corpusSearchLimit = 5

	defaultGenerationTimeout = 30 * time.Second

	noInformationMessage = "I couldn't find relevant information to answer your question."
)

// CorpusRepositoryInterface defines the read-only corpus similarity search
type CorpusRepositoryInterface interface {
	Search(ctx context.Context, embedding []float32, filters SearchFilters, limit int) ([]*CorpusHit, error)
}

// GenerationClient produces natural-language answers from a prompt
type GenerationClient interface {
	GenerateAnswer(ctx context.Context, systemPrompt, userQuery string) (string, error)
}

// GraphItem is one context tuple from the optional knowledge-graph engine
type GraphItem struct {
	Content   string
	Relevance float32
	Metadata  map[string]string
}

// GraphSource is the optional, best-effort knowledge-graph context source.
// Failures are logged and ignored; the graph never blocks an answer.
type GraphSource interface {
	Query(ctx context.Context, question string) ([]*GraphItem, error)
}

// AnswerInput represents one support query
type AnswerInput struct {
	Question          string
	Filters           SearchFilters
	ValidationEnabled bool
}

// ManualSourceRef describes one manual-store source backing an answer
type ManualSourceRef struct {
	Question         string
	Brand            string
	ProductCategory  string
	IssueCategory    string
	ResolutionMethod string
	ConfidenceScore  float32
	CreatedAt        time.Time
}

// OriginalSourceRef describes one corpus source backing an answer
type OriginalSourceRef struct {
	FileName        string
	Brand           string
	ProductCategory string
	DocumentType    string
	RelevanceScore  float32
}

// ConfidenceIndicators breaks down how trustworthy an answer is
type ConfidenceIndicators struct {
	HasManualSolutions       bool
	ManualSolutionConfidence float32
	OriginalDocsCount        int
	TotalSources             int
	ValidationScore          *float32
	IsValidated              *bool
	OverallConfidence        float32
}

// AnswerOutput is the structured response for one query
type AnswerOutput struct {
	Answer          string
	ResponseSource  string // "generated" or "templated"
	ManualSources   []*ManualSourceRef
	OriginalSources []*OriginalSourceRef
	TotalSources    int
	Validation      *ValidationResult
	Confidence      *ConfidenceIndicators
}

// QueryService is the top-level entry point: it fuses context from both
// knowledge stores, invokes generation, validates the result, and returns a
// confidence-scored structured response.
type QueryService struct {
	manual            ManualEntryRepositoryInterface
	corpus            CorpusRepositoryInterface
	embedding         EmbeddingClient
	generator         GenerationClient
	validator         *AnswerValidator
	graph             GraphSource
	generationTimeout time.Duration
}

// NewQueryService creates a new QueryService instance. generator and graph
// may be nil: without a generator every answer is templated from the fused
// context; without a graph that context source is skipped.
func NewQueryService(
	manual ManualEntryRepositoryInterface,
	corpus CorpusRepositoryInterface,
	embedding EmbeddingClient,
	generator GenerationClient,
	validator *AnswerValidator,
	graph GraphSource,
) *QueryService {
	return &QueryService{
		manual:            manual,
		corpus:            corpus,
		embedding:         embedding,
		generator:         generator,
		validator:         validator,
		graph:             graph,
		generationTimeout: defaultGenerationTimeout,
	}
}

// Answer processes one support question end to end. It always returns a
// response when the pipeline itself is healthy: generation failures degrade
// to a templated answer built from the fused context, and an empty context
// yields an explicit no-information message with zero confidence.
func (s *QueryService) Answer(ctx context.Context, input AnswerInput) (*AnswerOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "QueryService.Answer", telemetry.SpanAttributes{
		Operation: "answer",
		Brand:     input.Filters.Brand,
	})
	defer span.End()

	embedding, err := s.embedding.GenerateEmbedding(ctx, input.Question)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	// Both stores are read concurrently; fusion happens after the join point.
	var manualHits []*ManualHit
	var corpusHits []*CorpusHit

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := s.manual.Search(gctx, embedding, input.Filters, manualSearchLimit)
		if err != nil {
			return fmt.Errorf("manual search: %w", err)
		}
		manualHits = hits
		return nil
	})
	g.Go(func() error {
		hits, err := s.corpus.Search(gctx, embedding, input.Filters, corpusSearchLimit)
		if err != nil {
			return fmt.Errorf("corpus search: %w", err)
		}
		corpusHits = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		span.SetError(err)
		return nil, err
	}

	corpusHits = append(corpusHits, s.graphHits(ctx, input.Question)...)

	fused := FuseContext(manualHits, corpusHits, defaultFusedContextLimit)

	answer, responseSource := s.generate(ctx, input.Question, fused)

	var validation *ValidationResult
	if input.ValidationEnabled && s.validator != nil && answer != noInformationMessage {
		validation = s.validator.Validate(ctx, input.Question, answer, fused)
	}

	output := &AnswerOutput{
		Answer:          answer,
		ResponseSource:  responseSource,
		ManualSources:   manualSourceRefs(manualHits),
		OriginalSources: originalSourceRefs(corpusHits),
		TotalSources:    len(manualHits) + len(corpusHits),
		Validation:      validation,
		Confidence:      confidenceIndicators(manualHits, corpusHits, validation),
	}
	if len(fused) == 0 {
		output.Confidence.OverallConfidence = 0.0
	}
	return output, nil
}

// graphHits queries the optional knowledge-graph source and converts its
// relevance-scored tuples into corpus-shaped hits. Best effort only.
func (s *QueryService) graphHits(ctx context.Context, question string) []*CorpusHit {
	if s.graph == nil {
		return nil
	}

	items, err := s.graph.Query(ctx, question)
	if err != nil {
		log.Printf("graph context unavailable: %v", err)
		return nil
	}

	hits := make([]*CorpusHit, 0, len(items))
	for _, item := range items {
		if item == nil || item.Content == "" {
			continue
		}
		hits = append(hits, &CorpusHit{
			Chunk: &domain.CorpusChunk{
				ID:      item.Metadata["id"],
				Content: item.Content,
				Attributes: domain.ChunkAttributes{
					Brand:           item.Metadata["brand"],
					ProductCategory: item.Metadata["product_category"],
					DocumentType:    "knowledge_graph",
				},
			},
			Distance: 1.0 - clampUnit(item.Relevance),
		})
	}
	return hits
}

// generate produces the answer text. The generation call runs under its own
// timeout and any failure degrades to the templated response; a generation
// error is never surfaced to the caller.
func (s *QueryService) generate(ctx context.Context, question string, fused []*FusedContextItem) (string, string) {
	if len(fused) == 0 {
		return noInformationMessage, "templated"
	}

	if s.generator != nil {
		genCtx, cancel := context.WithTimeout(ctx, s.generationTimeout)
		defer cancel()

		answer, err := s.generator.GenerateAnswer(genCtx, buildSystemPrompt(fused), question)
		if err == nil && strings.TrimSpace(answer) != "" {
			return answer, "generated"
		}
		if err != nil {
			log.Printf("generation failed, falling back to templated response: %v", err)
			telemetry.CaptureError(ctx, err)
		}
	}

	return templatedResponse(fused), "templated"
}

// buildSystemPrompt assembles the generation prompt, textually marking
// manual-sourced items as higher trust and instructing the model to prefer
// them over the bulk documentation.
func buildSystemPrompt(fused []*FusedContextItem) string {
	var b strings.Builder
	b.WriteString(`You are an expert technical support assistant for consumer electronics.

You have access to TWO types of knowledge:
1. ORIGINAL DOCUMENTATION: standard manuals, SOPs, and FAQs
2. MANUAL SOLUTIONS: real solutions provided by human support agents for similar issues

PRIORITY GUIDELINES:
- Prefer MANUAL SOLUTIONS when available (marked as manual source)
- Use ORIGINAL DOCUMENTATION for standard procedures
- Combine both sources when helpful

Response guidelines:
1. Start with the most relevant solution (manual solutions take priority)
2. Provide step-by-step instructions when applicable
3. Include specific model numbers, error codes, or settings when mentioned
4. If using manual solutions, acknowledge they were previously validated by support agents
5. Be specific about brand and product details

Context from knowledge bases:
`)

	for i, item := range fused {
		b.WriteString("\n---\n")
		if item.Source == KnowledgeSourceManual && item.Entry != nil {
			fmt.Fprintf(&b, "[MANUAL SOLUTION %d - Previously validated by support agents]\n", i+1)
			fmt.Fprintf(&b, "Brand: %s | Product: %s\n", orUnknown(item.Entry.Attributes.Brand), orUnknown(item.Entry.Attributes.ProductCategory))
			fmt.Fprintf(&b, "Issue Category: %s\n", orUnknown(item.Entry.Attributes.IssueCategory))
			fmt.Fprintf(&b, "Resolution Method: %s\n", orUnknown(item.Entry.Attributes.ResolutionMethod))
			fmt.Fprintf(&b, "Confidence Score: %.2f\n", item.Entry.ConfidenceScore)
		} else if item.Chunk != nil {
			fmt.Fprintf(&b, "[ORIGINAL DOCUMENTATION %d]\n", i+1)
			fmt.Fprintf(&b, "Brand: %s | Product: %s\n", orUnknown(item.Chunk.Attributes.Brand), orUnknown(item.Chunk.Attributes.ProductCategory))
			fmt.Fprintf(&b, "Document Type: %s\n", orUnknown(item.Chunk.Attributes.DocumentType))
			fmt.Fprintf(&b, "File: %s\n", orUnknown(item.Chunk.Attributes.FileName))
		}
		b.WriteString(item.Content)
		b.WriteString("\n")
	}

	return b.String()
}

// templatedResponse builds an answer directly from the top fused items when
// generation is unavailable.
func templatedResponse(fused []*FusedContextItem) string {
	var b strings.Builder
	b.WriteString("Based on available information:\n\n")

	var bestManual *FusedContextItem
	var originals []*FusedContextItem
	for _, item := range fused {
		if item.Source == KnowledgeSourceManual && bestManual == nil {
			bestManual = item
		}
		if item.Source == KnowledgeSourceOriginal {
			originals = append(originals, item)
		}
	}

	if bestManual != nil && bestManual.Entry != nil {
		b.WriteString("**Verified solution (from support agent experience):**\n")
		b.WriteString(bestManual.Entry.Solution)
		b.WriteString("\n\n")
	}

	if len(originals) > 0 {
		b.WriteString("**From documentation:**\n")
		for i, item := range originals {
			if i >= 2 {
				break
			}
			label := strings.TrimSpace(fmt.Sprintf("%s %s %s",
				item.Chunk.Attributes.Brand,
				item.Chunk.Attributes.ProductCategory,
				item.Chunk.Attributes.DocumentType))
			fmt.Fprintf(&b, "%d. %s:\n%s\n\n", i+1, label, truncate(item.Content, 200))
		}
	}

	return strings.TrimSpace(b.String())
}

// confidenceIndicators computes the overall confidence breakdown: a base of
// 0.5, boosted by manual presence and corpus count, averaged with the
// validation score when present, clamped to [0,1].
func confidenceIndicators(manualHits []*ManualHit, corpusHits []*CorpusHit, validation *ValidationResult) *ConfidenceIndicators {
	indicators := &ConfidenceIndicators{
		HasManualSolutions: len(manualHits) > 0,
		OriginalDocsCount:  len(corpusHits),
		TotalSources:       len(manualHits) + len(corpusHits),
	}
	for _, hit := range manualHits {
		if hit.Entry.ConfidenceScore > indicators.ManualSolutionConfidence {
			indicators.ManualSolutionConfidence = hit.Entry.ConfidenceScore
		}
	}

	confidence := float32(0.5)
	if indicators.HasManualSolutions {
		confidence += 0.3
		confidence += indicators.ManualSolutionConfidence * 0.2
	}
	if indicators.OriginalDocsCount > 0 {
		corpusBoost := float32(indicators.OriginalDocsCount) * 0.1
		if corpusBoost > 0.3 {
			corpusBoost = 0.3
		}
		confidence += corpusBoost
	}

	if validation != nil {
		score := validation.OverallScore
		valid := validation.IsValid
		indicators.ValidationScore = &score
		indicators.IsValidated = &valid
		confidence = (confidence + score) / 2
	}

	indicators.OverallConfidence = clampUnit(confidence)
	return indicators
}

func manualSourceRefs(hits []*ManualHit) []*ManualSourceRef {
	refs := make([]*ManualSourceRef, 0, len(hits))
	for _, hit := range hits {
		refs = append(refs, &ManualSourceRef{
			Question:         hit.Entry.Question,
			Brand:            hit.Entry.Attributes.Brand,
			ProductCategory:  hit.Entry.Attributes.ProductCategory,
			IssueCategory:    hit.Entry.Attributes.IssueCategory,
			ResolutionMethod: hit.Entry.Attributes.ResolutionMethod,
			ConfidenceScore:  hit.Entry.ConfidenceScore,
			CreatedAt:        hit.Entry.CreatedAt,
		})
	}
	return refs
}

func originalSourceRefs(hits []*CorpusHit) []*OriginalSourceRef {
	refs := make([]*OriginalSourceRef, 0, len(hits))
	for _, hit := range hits {
		refs = append(refs, &OriginalSourceRef{
			FileName:        hit.Chunk.Attributes.FileName,
			Brand:           hit.Chunk.Attributes.Brand,
			ProductCategory: hit.Chunk.Attributes.ProductCategory,
			DocumentType:    hit.Chunk.Attributes.DocumentType,
			RelevanceScore:  1.0 - clampUnit(hit.Distance),
		})
	}
	return refs
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// truncate shortens s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
