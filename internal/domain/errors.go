package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodePersistence   = "PERSISTENCE_ERROR"
)

// Validation errors
var (
	ErrInvalidSourceType    = NewDomainError(ErrCodeValidation, "invalid manual entry source type")
	ErrInvalidFeedbackType  = NewDomainError(ErrCodeValidation, "invalid feedback type")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrManualEntryNotFound    = NewDomainError(ErrCodeNotFound, "manual entry not found")
	ErrFeedbackRecordNotFound = NewDomainError(ErrCodeNotFound, "feedback record not found")
)

// Already exists errors
var (
	ErrManualEntryAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "manual entry already exists")
)

// Persistence errors. The feedback ledger is the audit trail; losing an append
// is the one fatal condition in the feedback pipeline.
var (
	ErrLedgerAppendFailed = NewDomainError(ErrCodePersistence, "failed to append feedback record to ledger")
)
