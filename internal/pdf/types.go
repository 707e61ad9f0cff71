package pdf

import (
	"github.com/a3tai/pdf-answer-key/internal/answerkey"
	pdferrors "github.com/a3tai/pdf-answer-key/internal/pdf/errors"
)

// Request Types

// PDFAnswerKeyAnnotateRequest asks for an annotated copy of a PDF
type PDFAnswerKeyAnnotateRequest struct {
	Path string `json:"path"`
	// Output defaults to <name>.answerkey.pdf next to Path
	Output string `json:"output,omitempty"`
	// Pages selects pages, e.g. "1-3,5,8-"; empty selects all
	Pages string `json:"pages,omitempty"`
}

// PDFAnswerKeyExtractRequest asks for the question/answer pairs of a PDF
type PDFAnswerKeyExtractRequest struct {
	Path  string `json:"path"`
	Pages string `json:"pages,omitempty"`
}

// PDFValidateFileRequest represents a request to validate a PDF file
type PDFValidateFileRequest struct {
	Path string `json:"path"`
}

// Response Types

// PageReport is the per-page part of a tool result
type PageReport struct {
	Page             int                  `json:"page"`
	Entries          answerkey.Entries    `json:"entries,omitempty"`
	Annotated        bool                 `json:"annotated"`
	Skipped          bool                 `json:"skipped,omitempty"`
	StreamsRewritten int                  `json:"streams_rewritten,omitempty"`
	Placement        *answerkey.Placement `json:"placement,omitempty"`
	Problems         []string             `json:"problems,omitempty"`
}

// PDFAnswerKeyAnnotateResult represents the result of an annotate operation
type PDFAnswerKeyAnnotateResult struct {
	Path           string       `json:"path"`
	OutputPath     string       `json:"output_path"`
	Pages          int          `json:"pages"`
	AnnotatedPages int          `json:"annotated_pages"`
	Report         []PageReport `json:"report"`
	Summary        string       `json:"summary"`
}

// PDFAnswerKeyExtractResult represents the result of an extract operation
type PDFAnswerKeyExtractResult struct {
	Path       string       `json:"path"`
	Pages      int          `json:"pages"`
	TotalPairs int          `json:"total_pairs"`
	Report     []PageReport `json:"report"`
}

// PDFValidateFileResult represents the result of a PDF validation operation
type PDFValidateFileResult struct {
	Valid   bool   `json:"valid"`
	Path    string `json:"path"`
	Pages   int    `json:"pages,omitempty"`
	Message string `json:"message,omitempty"`
}

// pageReports converts pipeline outcomes into tool output
func pageReports(outcomes []answerkey.PageOutcome) []PageReport {
	reports := make([]PageReport, 0, len(outcomes))
	for _, o := range outcomes {
		reports = append(reports, PageReport{
			Page:             o.Page,
			Entries:          o.Entries,
			Annotated:        o.Annotated,
			Skipped:          o.Skipped,
			StreamsRewritten: o.StreamsRewritten,
			Placement:        o.Placement,
			Problems:         problemMessages(o.Problems),
		})
	}
	return reports
}

func problemMessages(problems []*pdferrors.PDFError) []string {
	if len(problems) == 0 {
		return nil
	}
	out := make([]string, 0, len(problems))
	for _, p := range problems {
		out = append(out, p.Error())
	}
	return out
}
