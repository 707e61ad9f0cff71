package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPDFError_IsMatchesKind(t *testing.T) {
	err := WrapError(ErrorTypeRasterizationFailed, fmt.Errorf("chrome exited")).WithPage(3)
	wrapped := fmt.Errorf("annotate: %w", err)

	assert.True(t, stderrors.Is(wrapped, ErrRasterizationFailed))
	assert.False(t, stderrors.Is(wrapped, ErrDecodeFailure))

	var pdfErr *PDFError
	require.True(t, stderrors.As(wrapped, &pdfErr))
	assert.Equal(t, 3, pdfErr.PageNumber)
	assert.Contains(t, pdfErr.Error(), "RASTERIZATION_FAILED")
	assert.Contains(t, pdfErr.Error(), "page 3")
	assert.Contains(t, pdfErr.Error(), "chrome exited")
}

func TestPDFError_UnwrapCause(t *testing.T) {
	cause := fmt.Errorf("flate: corrupt input")
	err := WrapError(ErrorTypeDecodeFailure, cause).WithObject(12)

	assert.Equal(t, cause, stderrors.Unwrap(err))
	assert.Contains(t, err.Error(), "object 12")
}

func TestErrorType_SeverityAndRecovery(t *testing.T) {
	tests := []struct {
		errType     ErrorType
		name        string
		severity    ErrorSeverity
		recoverable bool
	}{
		{ErrorTypeDecodeFailure, "DECODE_FAILURE", SeverityWarning, true},
		{ErrorTypeRasterizationFailed, "RASTERIZATION_FAILED", SeverityError, true},
		{ErrorTypeEmptyExtraction, "EMPTY_EXTRACTION", SeverityInfo, true},
		{ErrorTypeMalformedColorValue, "MALFORMED_COLOR_VALUE", SeverityInfo, true},
		{ErrorTypeEmbedFailure, "EMBED_FAILURE", SeverityError, true},
		{ErrorTypeSaveFailure, "SAVE_FAILURE", SeverityFatal, false},
		{ErrorTypeInvalidInput, "INVALID_INPUT", SeverityFatal, false},
		{ErrorTypeUnknown, "UNKNOWN", SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.errType.String())
			assert.Equal(t, tt.severity, tt.errType.GetSeverity())
			assert.Equal(t, tt.recoverable, tt.errType.IsRecoverable())
		})
	}
}

func TestErrorCollection(t *testing.T) {
	ec := NewErrorCollection("in.pdf")
	assert.Equal(t, "No errors or warnings", ec.Summary())

	ec.Add(NewPDFError(ErrorTypeEmptyExtraction, "nothing colored").WithPage(1))
	ec.Add(WrapError(ErrorTypeRasterizationFailed, fmt.Errorf("timeout")).WithPage(2))
	ec.Add(WrapError(ErrorTypeDecodeFailure, fmt.Errorf("bad hex")).WithPage(2))
	ec.Add(nil)

	errs, warns := ec.Count()
	assert.Equal(t, 1, errs)
	assert.Equal(t, 2, warns)
	assert.False(t, ec.HasCriticalErrors())
	assert.Len(t, ec.ForPage(2), 2)
	assert.Len(t, ec.ForPage(1), 1)
	assert.Empty(t, ec.ForPage(4))

	ec.Add(WrapError(ErrorTypeSaveFailure, fmt.Errorf("disk full")))
	assert.True(t, ec.HasCriticalErrors())
	assert.Equal(t, "Found 2 error(s) and 2 warning(s) (including critical errors)", ec.Summary())
}
