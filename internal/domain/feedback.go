package domain

import (
	"fmt"
	"sort"
	"time"
)

// FeedbackType classifies why a correction episode was opened
type FeedbackType string

const (
	FeedbackTypeUnsatisfactory   FeedbackType = "unsatisfactory"
	FeedbackTypeIncorrect        FeedbackType = "incorrect"
	FeedbackTypeIncomplete       FeedbackType = "incomplete"
	FeedbackTypeManualCorrection FeedbackType = "manual_correction"
)

// Satisfaction values accepted from callers. The source data mixes word and
// numeric-string encodings ("satisfied" vs "4"); both forms are preserved in
// the accepted set rather than normalized.
const (
	SatisfactionVerySatisfied    = "very_satisfied"
	SatisfactionSatisfied        = "satisfied"
	SatisfactionNeutral          = "neutral"
	SatisfactionDissatisfied     = "dissatisfied"
	SatisfactionVeryDissatisfied = "very_dissatisfied"
)

// positiveSatisfaction is the promotion gate: a feedback record becomes a
// manual entry iff its customer_satisfaction is in this set.
var positiveSatisfaction = map[string]struct{}{
	SatisfactionSatisfied:     {},
	SatisfactionVerySatisfied: {},
	"4":                       {},
	"5":                       {},
}

// PositiveSatisfactionValues returns the accepted positive values, for
// callers that filter in SQL rather than in memory.
func PositiveSatisfactionValues() []string {
	values := make([]string, 0, len(positiveSatisfaction))
	for v := range positiveSatisfaction {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

// IsPositiveSatisfaction reports whether the given satisfaction value gates a
// feedback record into the manual knowledge store. Any other value, including
// empty or unknown, does not promote.
func IsPositiveSatisfaction(satisfaction string) bool {
	_, ok := positiveSatisfaction[satisfaction]
	return ok
}

// SourceRef records the attributes of one source that backed the original
// (unsatisfactory) answer.
type SourceRef struct {
	Brand           string `json:"brand,omitempty"`
	ProductCategory string `json:"product_category,omitempty"`
	DocumentType    string `json:"document_type,omitempty"`
	FileName        string `json:"file_name,omitempty"`
}

// FeedbackRecord is one human correction episode. Records are append-only:
// the ledger is the audit trail regardless of whether promotion occurred, and
// a record's id becomes the ManualEntry id if it is promoted.
type FeedbackRecord struct {
	ID                   string
	CreatedAt            time.Time
	UserQuestion         string
	OriginalAnswer       string
	OriginalSources      []SourceRef
	FeedbackType         FeedbackType
	ManualSolution       string
	SupportAgent         string
	Attributes           EntryAttributes
	CustomerSatisfaction string
	Tags                 []string
	Notes                string
}

// Promotable reports whether this record qualifies for promotion into the
// manual knowledge store.
func (r *FeedbackRecord) Promotable() bool {
	return r.ManualSolution != "" && IsPositiveSatisfaction(r.CustomerSatisfaction)
}

// ValidateFeedbackRecord validates a FeedbackRecord instance
func ValidateFeedbackRecord(r *FeedbackRecord) error {
	if r == nil {
		return fmt.Errorf("feedback record cannot be nil")
	}

	if r.ID == "" {
		return fmt.Errorf("feedback record ID is required")
	}

	if r.UserQuestion == "" {
		return fmt.Errorf("feedback record UserQuestion is required")
	}

	if !isValidFeedbackType(r.FeedbackType) {
		return fmt.Errorf("%w: %s", ErrInvalidFeedbackType, r.FeedbackType)
	}

	return nil
}

// isValidFeedbackType checks if a FeedbackType is valid
func isValidFeedbackType(t FeedbackType) bool {
	switch t {
	case FeedbackTypeUnsatisfactory, FeedbackTypeIncorrect,
		FeedbackTypeIncomplete, FeedbackTypeManualCorrection:
		return true
	}
	return false
}
