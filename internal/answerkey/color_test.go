package answerkey

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pdferrors "github.com/a3tai/pdf-answer-key/internal/pdf/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		packed int64
		want   ColorClass
	}{
		{"PureRed", 0xFF0000, QuestionMarker},
		{"NearRed", 0xF01010, QuestionMarker},
		{"AnswerGreen", 0x00B050, AnswerMarker},
		{"NearGreen", 0x10A858, AnswerMarker},
		{"Black", 0x000000, Neutral},
		{"White", 0xFFFFFF, Neutral},
		{"Blue", 0x0000FF, Neutral},
		{"PureGreen", 0x00FF00, Neutral},
		{"AlphaIgnored", 0xFFFF0000, QuestionMarker},
		{"AlphaIgnoredGreen", 0x8000B050, AnswerMarker},
		{"Negative", -1, Neutral},
		{"HighByteSet", 0x1FF0000, QuestionMarker},
		{"Beyond32Bits", 0x1_00FF_0000, Neutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.packed))
		})
	}
}

func TestClassify_ToleranceIsStrict(t *testing.T) {
	c := Classifier{Tolerance: 0.1}

	atThreshold := ColorSample{R: 0.9, G: 0, B: 0}
	assert.Equal(t, Neutral, c.ClassifySample(ColorSample{R: 1 - 0.1, G: 0.1, B: 0}))
	assert.Equal(t, QuestionMarker, c.ClassifySample(ColorSample{R: 0.9001, G: 0.0999, B: 0}))

	// 0.1 is not representable exactly; compare against the sample itself
	exact := Classifier{Tolerance: 1 - atThreshold.R}
	assert.Equal(t, Neutral, exact.ClassifySample(atThreshold))

	// 25/255 is just under 0.1 and still matches
	assert.Equal(t, QuestionMarker, c.ClassifySample(SampleFromPacked(0xE60000)))
	// 26/255 is just over 0.1
	assert.Equal(t, Neutral, c.ClassifySample(SampleFromPacked(0xE50000)))
}

func TestClassify_QuestionWinsTie(t *testing.T) {
	// a tolerance wide enough for a sample to match both references
	wide := Classifier{Tolerance: 1.1}
	assert.Equal(t, QuestionMarker, wide.ClassifySample(ColorSample{R: 0.5, G: 0.3, B: 0.2}))
}

func TestClassifier_MalformedValue(t *testing.T) {
	class, err := NewClassifier().Classify(-5)
	assert.Equal(t, Neutral, class)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, pdferrors.ErrMalformedColorValue))

	_, err = NewClassifier().Classify(0xFFFFFFFF)
	assert.NoError(t, err)
}

func TestSampleFromPacked(t *testing.T) {
	s := SampleFromPacked(0x00B050)
	assert.InDelta(t, 0.0, s.R, 1e-9)
	assert.InDelta(t, 176.0/255, s.G, 1e-9)
	assert.InDelta(t, 80.0/255, s.B, 1e-9)
}
