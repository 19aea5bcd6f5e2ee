package utils

import (
	"errors"
	"fmt"
)

// ErrorKind classifies analytic failures that are reported to tool callers
// as structured records rather than faults.
type ErrorKind string

const (
	KindNotFound            ErrorKind = "not_found"
	KindOutOfRange          ErrorKind = "out_of_range"
	KindDivisionUndefined   ErrorKind = "division_undefined"
	KindInsufficientOverlap ErrorKind = "insufficient_overlap"
	KindInvalidArgument     ErrorKind = "invalid_argument"
	KindInvalidData         ErrorKind = "invalid_data"
)

// Sentinels for errors.Is matching. Only the Kind is compared.
var (
	ErrNotFound            = &AnalysisError{Kind: KindNotFound}
	ErrOutOfRange          = &AnalysisError{Kind: KindOutOfRange}
	ErrDivisionUndefined   = &AnalysisError{Kind: KindDivisionUndefined}
	ErrInsufficientOverlap = &AnalysisError{Kind: KindInsufficientOverlap}
	ErrInvalidArgument     = &AnalysisError{Kind: KindInvalidArgument}
	ErrInvalidData         = &AnalysisError{Kind: KindInvalidData}
)

// AnalysisError is a tagged error carrying optional details that help the
// caller recover, such as the available date range.
type AnalysisError struct {
	Kind    ErrorKind
	Message string
	Details map[string]interface{}
}

// Error returns the error message string.
func (e *AnalysisError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is reports whether target is an AnalysisError of the same kind.
func (e *AnalysisError) Is(target error) bool {
	t, ok := target.(*AnalysisError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// WithDetail returns a copy of the error with an extra detail attached.
func (e *AnalysisError) WithDetail(key string, value interface{}) *AnalysisError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &AnalysisError{Kind: e.Kind, Message: e.Message, Details: details}
}

func newKindError(kind ErrorKind, format string, args ...interface{}) *AnalysisError {
	return &AnalysisError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewNotFoundError reports an unknown dataset, date or record.
func NewNotFoundError(format string, args ...interface{}) *AnalysisError {
	return newKindError(KindNotFound, format, args...)
}

// NewOutOfRangeError reports a forecast horizon beyond coverage.
func NewOutOfRangeError(format string, args ...interface{}) *AnalysisError {
	return newKindError(KindOutOfRange, format, args...)
}

// NewDivisionUndefinedError reports a zero base value in a ratio.
func NewDivisionUndefinedError(format string, args ...interface{}) *AnalysisError {
	return newKindError(KindDivisionUndefined, format, args...)
}

// NewInsufficientOverlapError reports too few aligned points for correlation.
func NewInsufficientOverlapError(format string, args ...interface{}) *AnalysisError {
	return newKindError(KindInsufficientOverlap, format, args...)
}

// NewInvalidDataError reports a malformed source file or row.
func NewInvalidDataError(format string, args ...interface{}) *AnalysisError {
	return newKindError(KindInvalidData, format, args...)
}

// ValidationError represents an error occurring during argument validation.
type ValidationError struct {
	Message string
}

// Error returns the error message string.
func (e *ValidationError) Error() string {
	return e.Message
}

// Is lets validation failures match ErrInvalidArgument.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*AnalysisError)
	return ok && t.Kind == KindInvalidArgument
}

// NewValidationError creates a new ValidationError with a specific message.
func NewValidationError(message string) error {
	return &ValidationError{
		Message: message,
	}
}

// NewValidationErrorf creates a new ValidationError with a formatted message.
func NewValidationErrorf(format string, args ...interface{}) error {
	return &ValidationError{
		Message: fmt.Sprintf(format, args...),
	}
}

// KindOf returns the kind of err, or an empty kind when err is not one of
// the analytic error types.
func KindOf(err error) ErrorKind {
	var analysisErr *AnalysisError
	if errors.As(err, &analysisErr) {
		return analysisErr.Kind
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return KindInvalidArgument
	}
	return ""
}

// DetailsOf returns the details attached to err, if any.
func DetailsOf(err error) map[string]interface{} {
	var analysisErr *AnalysisError
	if errors.As(err, &analysisErr) {
		return analysisErr.Details
	}
	return nil
}
