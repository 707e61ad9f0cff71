package document

import "fmt"

// LibraryType names the PDF library an operation ran on
type LibraryType string

const (
	LibraryPDFCPU     LibraryType = "pdfcpu"
	LibraryLedongthuc LibraryType = "ledongthuc"
)

// DocumentError reports a failed document operation and the library it
// failed in.
type DocumentError struct {
	Library LibraryType `json:"library"`
	Op      string      `json:"operation"`
	Err     error       `json:"error"`
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("PDF %s library error in %s: %v", e.Library, e.Op, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

// Common errors
var (
	ErrInvalidPage    = fmt.Errorf("invalid page number")
	ErrUnknownStream  = fmt.Errorf("unknown content stream")
	ErrNotAStream     = fmt.Errorf("object is not a stream")
	ErrNoContents     = fmt.Errorf("page has no contents")
	ErrEmptyImage     = fmt.Errorf("image has no pixels")
	ErrMalformedPage  = fmt.Errorf("malformed page dictionary")
	ErrInterpretPanic = fmt.Errorf("content stream could not be interpreted")
)

func pdfcpuError(op string, err error) error {
	return &DocumentError{Library: LibraryPDFCPU, Op: op, Err: err}
}

func ledongthucError(op string, err error) error {
	return &DocumentError{Library: LibraryLedongthuc, Op: op, Err: err}
}
