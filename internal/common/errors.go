package common

import (
	"errors"
	"fmt"
)

// Sentinel errors matching the failure taxonomy surfaced at the service
// boundary. Callers branch with errors.Is.
var (
	ErrUnsupportedFormat   = errors.New("unsupported format")
	ErrEmptyExtraction     = errors.New("no recoverable text in document")
	ErrExtractionFailed    = errors.New("extraction failed")
	ErrAnalysisUnavailable = errors.New("analysis backend unavailable")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrInvalidDecision     = errors.New("invalid review decision")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInternal            = errors.New("internal error")
)

// AppError carries a stable code and a human-readable message alongside the
// taxonomy sentinel it wraps. Messages are safe to return to callers; the
// Cause chain is for logs only.
type AppError struct {
	Code      string
	Message   string
	Retryable bool
	Sentinel  error
	Cause     error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Sentinel
}

// IsRetryable reports whether a caller may safely retry the operation.
func IsRetryable(err error) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Retryable
	}
	return false
}

func NewAppError(code, message string, sentinel error) *AppError {
	return &AppError{Code: code, Message: message, Sentinel: sentinel}
}

// UnsupportedFormat builds the client-input error for rejected uploads.
func UnsupportedFormat(message string) *AppError {
	return &AppError{Code: "UNSUPPORTED_FORMAT", Message: message, Sentinel: ErrUnsupportedFormat}
}

// EmptyExtraction is returned when a document yields no text after trimming.
func EmptyExtraction() *AppError {
	return &AppError{
		Code:     "EMPTY_EXTRACTION",
		Message:  "could not extract text from file; ensure the file contains readable text",
		Sentinel: ErrEmptyExtraction,
	}
}

// ExtractionFailed wraps a strategy failure. Transient I/O failures are
// marked retryable; structurally corrupt documents are not.
func ExtractionFailed(message string, retryable bool, cause error) *AppError {
	return &AppError{
		Code:      "EXTRACTION_FAILED",
		Message:   message,
		Retryable: retryable,
		Sentinel:  ErrExtractionFailed,
		Cause:     cause,
	}
}

// AnalysisUnavailable wraps an AI transport failure. Always retryable with
// backoff; parse failures never reach this path.
func AnalysisUnavailable(cause error) *AppError {
	return &AppError{
		Code:      "ANALYSIS_UNAVAILABLE",
		Message:   "failed to analyze report with AI",
		Retryable: true,
		Sentinel:  ErrAnalysisUnavailable,
		Cause:     cause,
	}
}

// Forbidden never leaks resource existence beyond "access denied".
func Forbidden() *AppError {
	return &AppError{Code: "FORBIDDEN", Message: "access denied", Sentinel: ErrForbidden}
}

func NotFound(what string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: what + " not found", Sentinel: ErrNotFound}
}

func InvalidDecision(message string) *AppError {
	return &AppError{Code: "INVALID_DECISION", Message: message, Sentinel: ErrInvalidDecision}
}
