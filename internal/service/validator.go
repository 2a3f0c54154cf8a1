package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/fixwise/fixwise/internal/telemetry"
)

// Validation criteria weights and acceptance threshold. Fixed contract
// values, not configuration.
const (
	completenessWeight  = 0.3
	accuracyWeight      = 0.4
	relevanceWeight     = 0.3
	validationThreshold = 0.7
)

const (
	suggestionIncomplete   = "Answer may be incomplete - consider addressing all parts of the question"
	suggestionNotSpecific  = "Answer may not be specific enough to the product/brand mentioned"
	suggestionNeedsDetails = "Answer could include more specific steps or technical details"
)

var (
	wordPattern       = regexp.MustCompile(`\w+`)
	stepMarkerPattern = regexp.MustCompile(`\d+\.|step \d+|first|second|then|next|finally`)
	domainTermPattern = regexp.MustCompile(`settings|menu|button|error|code|temperature|mode`)
)

// CriteriaScores holds the three per-criterion validation scores
type CriteriaScores struct {
	Completeness float32
	Accuracy     float32
	Relevance    float32
}

// ValidationResult is the transient quality assessment of one generated
// answer against one question and its supporting context.
type ValidationResult struct {
	OverallScore float32
	Criteria     CriteriaScores
	Suggestions  []string
	IsValid      bool
}

// ValidationModel is the optional model-assisted scoring backend. It returns
// the three criteria scores plus suggestions via a structured-output call.
type ValidationModel interface {
	ScoreAnswer(ctx context.Context, question, answer, contextSummary string) (*CriteriaScores, []string, error)
}

// AnswerValidator scores generated answers. With a nil model it always uses
// the heuristic path; with a model it delegates and falls back silently to
// the heuristics on any model or parse failure.
type AnswerValidator struct {
	model ValidationModel
}

// NewAnswerValidator creates a heuristic-only validator
func NewAnswerValidator() *AnswerValidator {
	return &AnswerValidator{}
}

// NewAnswerValidatorWithModel creates a validator backed by a generation model
func NewAnswerValidatorWithModel(model ValidationModel) *AnswerValidator {
	return &AnswerValidator{model: model}
}

// Validate scores an answer on completeness, accuracy, and relevance and
// returns the weighted result. The return shape is identical on both the
// heuristic and model-assisted paths.
func (v *AnswerValidator) Validate(ctx context.Context, question, answer string, items []*FusedContextItem) *ValidationResult {
	ctx, span := telemetry.StartSpan(ctx, "AnswerValidator.Validate", telemetry.SpanAttributes{
		Operation: "validate",
	})
	defer span.End()

	var criteria *CriteriaScores
	var suggestions []string

	if v.model != nil {
		modelCriteria, modelSuggestions, err := v.model.ScoreAnswer(ctx, question, answer, summarizeContext(items))
		if err == nil && modelCriteria != nil {
			criteria = modelCriteria
			suggestions = modelSuggestions
		}
		// Model failures are invisible to the caller; the heuristics below
		// produce the same return shape.
	}

	if criteria == nil {
		criteria, suggestions = heuristicScores(question, answer, items)
	}

	overall := criteria.Completeness*completenessWeight +
		criteria.Accuracy*accuracyWeight +
		criteria.Relevance*relevanceWeight

	return &ValidationResult{
		OverallScore: overall,
		Criteria:     *criteria,
		Suggestions:  suggestions,
		IsValid:      overall >= validationThreshold,
	}
}

func heuristicScores(question, answer string, items []*FusedContextItem) (*CriteriaScores, []string) {
	criteria := &CriteriaScores{
		Completeness: completenessScore(question, answer),
		Accuracy:     accuracyScore(answer),
		Relevance:    relevanceScore(answer, items),
	}

	var suggestions []string
	if criteria.Completeness < validationThreshold {
		suggestions = append(suggestions, suggestionIncomplete)
	}
	if criteria.Relevance < validationThreshold {
		suggestions = append(suggestions, suggestionNotSpecific)
	}
	if criteria.Accuracy < validationThreshold {
		suggestions = append(suggestions, suggestionNeedsDetails)
	}

	return criteria, suggestions
}

// completenessScore measures word overlap between question and answer,
// scaled so covering half the question's vocabulary already scores 1.0.
func completenessScore(question, answer string) float32 {
	questionWords := wordSet(question)
	if len(questionWords) == 0 {
		return 0
	}
	answerWords := wordSet(answer)

	overlap := 0
	for w := range questionWords {
		if _, ok := answerWords[w]; ok {
			overlap++
		}
	}

	score := 2 * float32(overlap) / float32(len(questionWords))
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// relevanceScore checks whether the answer names the brand and product the
// context is about. No context at all scores lowest.
func relevanceScore(answer string, items []*FusedContextItem) float32 {
	if len(items) == 0 {
		return 0.3
	}

	lowered := strings.ToLower(answer)
	brandMentioned := false
	productMentioned := false

	for _, item := range items {
		brand, product := itemBrandProduct(item)
		if brand != "" && strings.Contains(lowered, strings.ToLower(brand)) {
			brandMentioned = true
		}
		if product != "" && strings.Contains(lowered, strings.ToLower(product)) {
			productMentioned = true
		}
	}

	if brandMentioned && productMentioned {
		return 0.8
	}
	return 0.5
}

// accuracyScore rewards answers that read like an actionable procedure: a
// step marker plus a domain-specific term.
func accuracyScore(answer string) float32 {
	lowered := strings.ToLower(answer)
	if stepMarkerPattern.MatchString(lowered) && domainTermPattern.MatchString(lowered) {
		return 0.7
	}
	return 0.5
}

func itemBrandProduct(item *FusedContextItem) (string, string) {
	if item == nil {
		return "", ""
	}
	if item.Entry != nil {
		return item.Entry.Attributes.Brand, item.Entry.Attributes.ProductCategory
	}
	if item.Chunk != nil {
		return item.Chunk.Attributes.Brand, item.Chunk.Attributes.ProductCategory
	}
	return "", ""
}

// summarizeContext renders the top context items for the model prompt
func summarizeContext(items []*FusedContextItem) string {
	if len(items) == 0 {
		return "No context available"
	}

	var parts []string
	for i, item := range items {
		if i >= 3 {
			break
		}
		brand, product := itemBrandProduct(item)
		if brand == "" {
			brand = "Unknown"
		}
		if product == "" {
			product = "Unknown"
		}
		parts = append(parts, "- "+brand+" "+product+" ("+string(item.Source)+")")
	}
	return strings.Join(parts, "\n")
}

func wordSet(s string) map[string]struct{} {
	words := wordPattern.FindAllString(strings.ToLower(s), -1)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
