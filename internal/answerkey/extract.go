package answerkey

import (
	"errors"
	"log"
	"strings"

	"golang.org/x/text/unicode/norm"

	pdferrors "github.com/a3tai/pdf-answer-key/internal/pdf/errors"
)

const (
	// DefaultFallbackFont names the answer font used when a question has no answers
	DefaultFallbackFont = "Arial"
	// BlankAnswer is the answer text of a question without answers
	BlankAnswer = "Blank"
	// AnswerSeparator joins the fragments of a multi-part answer
	AnswerSeparator = " + "
)

// TextSpan is a classified, trimmed text run
type TextSpan struct {
	Text  string
	Font  string
	Class ColorClass
}

// QAEntry is one question with its collected answer
type QAEntry struct {
	Question     string `json:"question"`
	QuestionFont string `json:"question_font"`
	Answer       string `json:"answer"`
	AnswerFont   string `json:"answer_font"`
}

// Entries is the ordered list of pairs found on a page
type Entries []QAEntry

// Split returns the four parallel sequences of questions, answers and their fonts
func (e Entries) Split() (questions, answers, questionFonts, answerFonts []string) {
	for _, entry := range e {
		questions = append(questions, entry.Question)
		answers = append(answers, entry.Answer)
		questionFonts = append(questionFonts, entry.QuestionFont)
		answerFonts = append(answerFonts, entry.AnswerFont)
	}
	return questions, answers, questionFonts, answerFonts
}

// weightSuffixes are the style parts dropped from PostScript font names
var weightSuffixes = map[string]bool{
	"bold":           true,
	"boldmt":         true,
	"bolditalic":     true,
	"bolditalicmt":   true,
	"boldoblique":    true,
	"semibold":       true,
	"semibolditalic": true,
	"demibold":       true,
	"extrabold":      true,
	"black":          true,
	"heavy":          true,
	"medium":         true,
	"light":          true,
	"semilight":      true,
	"italic":         true,
	"italicmt":       true,
	"oblique":        true,
	"regular":        true,
	"roman":          true,
}

// FontFamily reduces a raw font name to its family: the subset tag
// ("ABCDEF+"), any ",Style" suffix and a trailing weight part are removed.
func FontFamily(raw string) string {
	name := strings.TrimSpace(raw)
	if len(name) > 7 && name[6] == '+' && isSubsetTag(name[:6]) {
		name = name[7:]
	}
	if i := strings.IndexByte(name, ','); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndexByte(name, '-'); i > 0 && weightSuffixes[strings.ToLower(name[i+1:])] {
		name = name[:i]
	}
	return name
}

func isSubsetTag(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}

// extractState is the state of the grouping machine
type extractState int

const (
	stateSeeking extractState = iota
	stateInQuestion
)

// accumulator holds the open question and the answer fragments seen since
type accumulator struct {
	question     string
	questionFont string
	answers      []string
	answerFonts  []string
}

func (a accumulator) entry(fallbackFont string) QAEntry {
	entry := QAEntry{
		Question:     a.question,
		QuestionFont: a.questionFont,
		Answer:       BlankAnswer,
		AnswerFont:   fallbackFont,
	}
	if len(a.answers) > 0 {
		entry.Answer = strings.Join(a.answers, AnswerSeparator)
		entry.AnswerFont = a.answerFonts[0]
	}
	return entry
}

// machine is the grouping state machine. It is a value: step returns the
// successor and never mutates its receiver's accumulator in place.
type machine struct {
	state        extractState
	acc          accumulator
	entries      Entries
	fallbackFont string
}

func (m machine) step(span TextSpan) machine {
	if span.Text == "" {
		return m
	}

	switch span.Class {
	case QuestionMarker:
		if m.state == stateInQuestion {
			m.entries = append(m.entries, m.acc.entry(m.fallbackFont))
		}
		m.acc = accumulator{question: span.Text, questionFont: span.Font}
		m.state = stateInQuestion
	case AnswerMarker:
		if m.state == stateSeeking {
			return m
		}
		acc := m.acc
		acc.answers = append(append([]string(nil), acc.answers...), span.Text)
		acc.answerFonts = append(append([]string(nil), acc.answerFonts...), span.Font)
		m.acc = acc
	}
	return m
}

func (m machine) finish() Entries {
	if m.state == stateInQuestion {
		m.entries = append(m.entries, m.acc.entry(m.fallbackFont))
	}
	return m.entries
}

// Extractor groups text runs into question/answer pairs
type Extractor struct {
	Classifier   Classifier
	FallbackFont string
	Debug        bool
}

// NewExtractor returns an extractor with default tolerance and fallback font
func NewExtractor() Extractor {
	return Extractor{Classifier: NewClassifier(), FallbackFont: DefaultFallbackFont}
}

// Span classifies and normalizes one run. A malformed color yields a
// Neutral span together with the error describing it.
func (e Extractor) Span(run TextRun) (TextSpan, error) {
	class, err := e.Classifier.Classify(run.Color)
	return TextSpan{
		Text:  strings.TrimSpace(norm.NFKC.String(run.Text)),
		Font:  FontFamily(run.Font),
		Class: class,
	}, err
}

// Extract groups runs, in the order given, into entries. Malformed colors
// are returned as warnings; they never stop extraction.
func (e Extractor) Extract(runs []TextRun) (Entries, []*pdferrors.PDFError) {
	fallback := e.FallbackFont
	if fallback == "" {
		fallback = DefaultFallbackFont
	}

	var warnings []*pdferrors.PDFError
	m := machine{fallbackFont: fallback}
	for _, run := range runs {
		span, err := e.Span(run)
		if err != nil {
			var pdfErr *pdferrors.PDFError
			if errors.As(err, &pdfErr) {
				warnings = append(warnings, pdfErr)
			}
		}
		m = m.step(span)
	}

	entries := m.finish()
	if e.Debug {
		log.Printf("answerkey: %d runs grouped into %d entries", len(runs), len(entries))
	}
	return entries, warnings
}

// ExtractPage reads the text runs of one page and groups them. A failure to
// read the runs is a DecodeFailure for that page.
func (e Extractor) ExtractPage(doc Document, pageIndex int) (Entries, []*pdferrors.PDFError, error) {
	runs, err := doc.TextRuns(pageIndex)
	if err != nil {
		return nil, nil, pdferrors.WrapError(pdferrors.ErrorTypeDecodeFailure, err).
			WithPage(pageIndex + 1).WithContext("reading text runs")
	}
	entries, warnings := e.Extract(runs)
	for _, w := range warnings {
		w.WithPage(pageIndex + 1)
	}
	return entries, warnings, nil
}

// Extract groups runs using the default extractor
func Extract(runs []TextRun) Entries {
	entries, _ := NewExtractor().Extract(runs)
	return entries
}
