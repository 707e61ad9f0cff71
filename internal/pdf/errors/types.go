package errors

import (
	"fmt"
	"strings"
	"time"
)

// PDFError describes one failure while annotating a document, with enough
// context to report it per page without aborting the run.
type PDFError struct {
	Type        ErrorType `json:"type"`
	Message     string    `json:"message"`
	Context     string    `json:"context,omitempty"`
	ObjectNum   int       `json:"object_num,omitempty"`
	PageNumber  int       `json:"page_number,omitempty"`
	Recoverable bool      `json:"recoverable"`
	Timestamp   time.Time `json:"timestamp"`
	Err         error     `json:"-"`
}

// ErrorType represents the categories of failures the pipeline reports
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeDecodeFailure
	ErrorTypeRasterizationFailed
	ErrorTypeEmptyExtraction
	ErrorTypeMalformedColorValue
	ErrorTypeEmbedFailure
	ErrorTypeSaveFailure
	ErrorTypeInvalidInput
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
	SeverityFatal
)

// Sentinels for errors.Is matching by kind.
var (
	ErrDecodeFailure       = &PDFError{Type: ErrorTypeDecodeFailure, Message: "content stream could not be decoded"}
	ErrRasterizationFailed = &PDFError{Type: ErrorTypeRasterizationFailed, Message: "rasterization failed"}
	ErrEmptyExtraction     = &PDFError{Type: ErrorTypeEmptyExtraction, Message: "no question/answer spans found"}
	ErrMalformedColorValue = &PDFError{Type: ErrorTypeMalformedColorValue, Message: "malformed color value"}
	ErrEmbedFailure        = &PDFError{Type: ErrorTypeEmbedFailure, Message: "image could not be embedded"}
	ErrSaveFailure         = &PDFError{Type: ErrorTypeSaveFailure, Message: "document could not be saved"}
	ErrInvalidInput        = &PDFError{Type: ErrorTypeInvalidInput, Message: "invalid input document"}
)

// Error implements the error interface
func (e *PDFError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Type.String(), e.Message)
	if e.PageNumber > 0 {
		fmt.Fprintf(&b, " (page %d)", e.PageNumber)
	}
	if e.ObjectNum > 0 {
		fmt.Fprintf(&b, " (object %d)", e.ObjectNum)
	}
	if e.Context != "" {
		fmt.Fprintf(&b, ": %s", e.Context)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause
func (e *PDFError) Unwrap() error {
	return e.Err
}

// Is matches any PDFError of the same kind, so callers can test against the
// package sentinels.
func (e *PDFError) Is(target error) bool {
	t, ok := target.(*PDFError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// String returns a string representation of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeDecodeFailure:
		return "DECODE_FAILURE"
	case ErrorTypeRasterizationFailed:
		return "RASTERIZATION_FAILED"
	case ErrorTypeEmptyExtraction:
		return "EMPTY_EXTRACTION"
	case ErrorTypeMalformedColorValue:
		return "MALFORMED_COLOR_VALUE"
	case ErrorTypeEmbedFailure:
		return "EMBED_FAILURE"
	case ErrorTypeSaveFailure:
		return "SAVE_FAILURE"
	case ErrorTypeInvalidInput:
		return "INVALID_INPUT"
	default:
		return "UNKNOWN"
	}
}

// GetSeverity returns the severity level for a given error type
func (et ErrorType) GetSeverity() ErrorSeverity {
	switch et {
	case ErrorTypeEmptyExtraction, ErrorTypeMalformedColorValue:
		return SeverityInfo
	case ErrorTypeDecodeFailure:
		return SeverityWarning
	case ErrorTypeRasterizationFailed, ErrorTypeEmbedFailure:
		return SeverityError
	case ErrorTypeSaveFailure, ErrorTypeInvalidInput:
		return SeverityFatal
	default:
		return SeverityError
	}
}

// IsRecoverable reports whether processing of later pages may continue
// after an error of this type.
func (et ErrorType) IsRecoverable() bool {
	switch et {
	case ErrorTypeSaveFailure, ErrorTypeInvalidInput, ErrorTypeUnknown:
		return false
	default:
		return true
	}
}

// NewPDFError creates a new PDFError of the given type
func NewPDFError(errorType ErrorType, message string) *PDFError {
	return &PDFError{
		Type:        errorType,
		Message:     message,
		Recoverable: errorType.IsRecoverable(),
		Timestamp:   time.Now(),
	}
}

// WrapError wraps a standard error as a PDFError
func WrapError(errorType ErrorType, err error) *PDFError {
	e := NewPDFError(errorType, errorType.defaultMessage())
	e.Err = err
	return e
}

func (et ErrorType) defaultMessage() string {
	switch et {
	case ErrorTypeDecodeFailure:
		return ErrDecodeFailure.Message
	case ErrorTypeRasterizationFailed:
		return ErrRasterizationFailed.Message
	case ErrorTypeEmptyExtraction:
		return ErrEmptyExtraction.Message
	case ErrorTypeMalformedColorValue:
		return ErrMalformedColorValue.Message
	case ErrorTypeEmbedFailure:
		return ErrEmbedFailure.Message
	case ErrorTypeSaveFailure:
		return ErrSaveFailure.Message
	case ErrorTypeInvalidInput:
		return ErrInvalidInput.Message
	default:
		return "unknown error"
	}
}

// WithContext adds context to an existing PDFError
func (e *PDFError) WithContext(context string) *PDFError {
	e.Context = context
	return e
}

// WithObject records the object number of the offending stream
func (e *PDFError) WithObject(objNum int) *PDFError {
	e.ObjectNum = objNum
	return e
}

// WithPage adds page number information to an existing PDFError
func (e *PDFError) WithPage(pageNumber int) *PDFError {
	e.PageNumber = pageNumber
	return e
}

// GetSeverity returns the severity of this specific error
func (e *PDFError) GetSeverity() ErrorSeverity {
	return e.Type.GetSeverity()
}

// IsCritical returns true if this error is critical or fatal
func (e *PDFError) IsCritical() bool {
	severity := e.GetSeverity()
	return severity == SeverityCritical || severity == SeverityFatal
}

// ErrorCollection accumulates the outcomes of one processing run
type ErrorCollection struct {
	Errors   []*PDFError `json:"errors"`
	Warnings []*PDFError `json:"warnings"`
	FilePath string      `json:"file_path,omitempty"`
}

// NewErrorCollection creates a new error collection
func NewErrorCollection(filePath string) *ErrorCollection {
	return &ErrorCollection{
		Errors:   make([]*PDFError, 0),
		Warnings: make([]*PDFError, 0),
		FilePath: filePath,
	}
}

// Add adds an error to the appropriate collection based on severity
func (ec *ErrorCollection) Add(err *PDFError) {
	if err == nil {
		return
	}
	severity := err.GetSeverity()
	if severity == SeverityWarning || severity == SeverityInfo {
		ec.Warnings = append(ec.Warnings, err)
	} else {
		ec.Errors = append(ec.Errors, err)
	}
}

// HasCriticalErrors returns true if any critical errors exist
func (ec *ErrorCollection) HasCriticalErrors() bool {
	for _, err := range ec.Errors {
		if err.IsCritical() {
			return true
		}
	}
	return false
}

// ForPage returns every error and warning recorded for the given 1-based page
func (ec *ErrorCollection) ForPage(pageNumber int) []*PDFError {
	var out []*PDFError
	for _, err := range ec.Errors {
		if err.PageNumber == pageNumber {
			out = append(out, err)
		}
	}
	for _, err := range ec.Warnings {
		if err.PageNumber == pageNumber {
			out = append(out, err)
		}
	}
	return out
}

// Count returns the total number of errors and warnings
func (ec *ErrorCollection) Count() (errors, warnings int) {
	return len(ec.Errors), len(ec.Warnings)
}

// Summary returns a text summary of all errors and warnings
func (ec *ErrorCollection) Summary() string {
	errorCount, warningCount := ec.Count()
	if errorCount == 0 && warningCount == 0 {
		return "No errors or warnings"
	}

	summary := fmt.Sprintf("Found %d error(s) and %d warning(s)", errorCount, warningCount)

	if ec.HasCriticalErrors() {
		summary += " (including critical errors)"
	}

	return summary
}
