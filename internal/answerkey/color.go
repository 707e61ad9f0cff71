package answerkey

import (
	"fmt"
	"math"

	pdferrors "github.com/a3tai/pdf-answer-key/internal/pdf/errors"
)

// ColorClass is the semantic meaning of a text color
type ColorClass int

const (
	Neutral ColorClass = iota
	QuestionMarker
	AnswerMarker
)

func (c ColorClass) String() string {
	switch c {
	case QuestionMarker:
		return "question"
	case AnswerMarker:
		return "answer"
	default:
		return "neutral"
	}
}

// DefaultTolerance is the per-channel absolute difference below which a
// sample matches a reference color.
const DefaultTolerance = 0.1

// ColorSample holds three channel intensities in [0,1]
type ColorSample struct {
	R, G, B float64
}

var (
	// QuestionReference is pure red
	QuestionReference = ColorSample{R: 1, G: 0, B: 0}
	// AnswerReference is the green used for answers, RGB(0,176,80)
	AnswerReference = ColorSample{R: 0, G: 176.0 / 255, B: 80.0 / 255}
)

// SampleFromPacked splits a packed 0xAARRGGBB value into a sample. The alpha
// byte is ignored.
func SampleFromPacked(packed uint32) ColorSample {
	r := (packed >> 16) & 0xFF
	g := (packed >> 8) & 0xFF
	b := packed & 0xFF
	return ColorSample{
		R: float64(r) / 255,
		G: float64(g) / 255,
		B: float64(b) / 255,
	}
}

// Matches reports whether every channel differs from ref by strictly less
// than tolerance.
func (s ColorSample) Matches(ref ColorSample, tolerance float64) bool {
	return math.Abs(s.R-ref.R) < tolerance &&
		math.Abs(s.G-ref.G) < tolerance &&
		math.Abs(s.B-ref.B) < tolerance
}

// Classifier maps colors to classes with a configurable tolerance
type Classifier struct {
	Tolerance float64
}

// NewClassifier returns a classifier using DefaultTolerance
func NewClassifier() Classifier {
	return Classifier{Tolerance: DefaultTolerance}
}

// ClassifySample classifies a normalized sample. Question wins when a sample
// matches both references.
func (c Classifier) ClassifySample(s ColorSample) ColorClass {
	switch {
	case s.Matches(QuestionReference, c.Tolerance):
		return QuestionMarker
	case s.Matches(AnswerReference, c.Tolerance):
		return AnswerMarker
	default:
		return Neutral
	}
}

// Classify classifies a packed color. Values that do not fit in 32 bits are
// reported as MalformedColorValue and classified Neutral.
func (c Classifier) Classify(packed int64) (ColorClass, error) {
	if packed < 0 || packed > math.MaxUint32 {
		return Neutral, pdferrors.NewPDFError(pdferrors.ErrorTypeMalformedColorValue,
			"packed color out of range").WithContext(fmt.Sprintf("0x%X", packed))
	}
	return c.ClassifySample(SampleFromPacked(uint32(packed))), nil
}

// Classify classifies a packed color with the default tolerance
func Classify(packed int64) ColorClass {
	class, _ := NewClassifier().Classify(packed)
	return class
}
