package domain

import (
	"fmt"
	"time"
)

// SourceType describes how a manual entry entered the store
type SourceType string

const (
	SourceTypeManual         SourceType = "manual"
	SourceTypeRealTimeManual SourceType = "real_time_manual"
	SourceTypeManualLearning SourceType = "manual_learning"
)

// EntryAttributes carries the product metadata attached to a manual entry
type EntryAttributes struct {
	Brand            string
	ProductCategory  string
	IssueCategory    string
	ResolutionMethod string
}

// ManualEntry is a human-validated question/solution pair promoted from
// feedback. Entries are created once and never mutated in place; re-promotion
// of an existing id is a no-op.
type ManualEntry struct {
	ID              string
	Question        string
	Solution        string
	Attributes      EntryAttributes
	Tags            []string
	ConfidenceScore float32
	SourceType      SourceType
	CreatedAt       time.Time
}

// NewManualEntry creates a new ManualEntry instance
func NewManualEntry(
	id, question, solution string,
	attrs EntryAttributes,
	tags []string,
	confidenceScore float32,
	sourceType SourceType,
	createdAt time.Time,
) *ManualEntry {
	return &ManualEntry{
		ID:              id,
		Question:        question,
		Solution:        solution,
		Attributes:      attrs,
		Tags:            tags,
		ConfidenceScore: confidenceScore,
		SourceType:      sourceType,
		CreatedAt:       createdAt,
	}
}

// HasTag reports whether the entry carries the given tag
func (e *ManualEntry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ValidateManualEntry validates a ManualEntry instance
func ValidateManualEntry(e *ManualEntry) error {
	if e == nil {
		return fmt.Errorf("manual entry cannot be nil")
	}

	if e.ID == "" {
		return fmt.Errorf("manual entry ID is required")
	}

	if e.Question == "" {
		return fmt.Errorf("manual entry Question is required")
	}

	if e.Solution == "" {
		return fmt.Errorf("manual entry Solution is required")
	}

	if e.ConfidenceScore < 0 || e.ConfidenceScore > 1 {
		return fmt.Errorf("manual entry ConfidenceScore must be in [0,1], got %f", e.ConfidenceScore)
	}

	if !isValidSourceType(e.SourceType) {
		return fmt.Errorf("%w: %s", ErrInvalidSourceType, e.SourceType)
	}

	return nil
}

// isValidSourceType checks if a SourceType is valid
func isValidSourceType(s SourceType) bool {
	switch s {
	case SourceTypeManual, SourceTypeRealTimeManual, SourceTypeManualLearning:
		return true
	}
	return false
}
