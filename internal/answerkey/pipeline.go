package answerkey

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	pdferrors "github.com/a3tai/pdf-answer-key/internal/pdf/errors"
	"github.com/a3tai/pdf-answer-key/internal/pdf/pagerange"
)

// PageOutcome records what happened to one page
type PageOutcome struct {
	// Page is 1-based
	Page             int                   `json:"page"`
	Entries          Entries               `json:"entries,omitempty"`
	StreamsRewritten int                   `json:"streams_rewritten"`
	Annotated        bool                  `json:"annotated"`
	Placement        *Placement            `json:"placement,omitempty"`
	Skipped          bool                  `json:"skipped,omitempty"`
	Problems         []*pdferrors.PDFError `json:"problems,omitempty"`
}

// Report is the result of one pipeline run
type Report struct {
	Pages  []PageOutcome              `json:"pages"`
	Errors *pdferrors.ErrorCollection `json:"errors"`
}

// AnnotatedPages returns how many pages received a footer stamp
func (r *Report) AnnotatedPages() int {
	n := 0
	for _, p := range r.Pages {
		if p.Annotated {
			n++
		}
	}
	return n
}

// Pipeline runs extraction, neutralization and annotation over the pages of
// a document and saves it once at the end.
type Pipeline struct {
	Extractor   Extractor
	Neutralizer Neutralizer
	Rasterizer  *Rasterizer
	Placer      Placer
	// Pages restricts processing to the selected pages; nil selects all
	Pages []pagerange.PageRange
	Debug bool
}

// NewPipeline returns a pipeline with default settings around renderer
func NewPipeline(renderer Renderer) *Pipeline {
	return &Pipeline{
		Extractor:  NewExtractor(),
		Rasterizer: NewRasterizer(renderer),
		Placer:     NewPlacer(),
	}
}

// Process annotates every selected page of doc and writes the result to w.
// Page level failures are recorded in the report and never stop the run.
// Only a cancelled context or a failed save ends it with an error; in the
// first case nothing is written.
func (p *Pipeline) Process(ctx context.Context, doc Document, w io.Writer) (*Report, error) {
	report := &Report{Errors: pdferrors.NewErrorCollection("")}

	for i := 0; i < doc.PageCount(); i++ {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("processing stopped before page %d: %w", i+1, err)
		}

		outcome := p.ProcessPage(ctx, doc, i)
		for _, problem := range outcome.Problems {
			report.Errors.Add(problem)
		}
		report.Pages = append(report.Pages, outcome)
	}

	if err := doc.Save(w); err != nil {
		saveErr := pdferrors.WrapError(pdferrors.ErrorTypeSaveFailure, err)
		report.Errors.Add(saveErr)
		return report, saveErr
	}

	if p.Debug {
		log.Printf("answerkey: %d of %d pages annotated; %s",
			report.AnnotatedPages(), len(report.Pages), report.Errors.Summary())
	}
	return report, nil
}

// ProcessPage runs the per-page steps. Neutralization happens whether or not
// extraction found anything and stands even when annotation fails.
func (p *Pipeline) ProcessPage(ctx context.Context, doc Document, pageIndex int) PageOutcome {
	outcome := PageOutcome{Page: pageIndex + 1}
	if !pagerange.Selected(p.Pages, outcome.Page) {
		outcome.Skipped = true
		return outcome
	}

	entries, warnings, err := p.Extractor.ExtractPage(doc, pageIndex)
	outcome.Problems = append(outcome.Problems, warnings...)
	if err != nil {
		outcome.Problems = append(outcome.Problems, asKind(pdferrors.ErrorTypeDecodeFailure, err))
	}
	outcome.Entries = entries

	rewritten, problems := p.Neutralizer.NeutralizePage(doc, pageIndex)
	outcome.StreamsRewritten = rewritten
	outcome.Problems = append(outcome.Problems, problems...)

	if len(entries) == 0 {
		outcome.Problems = append(outcome.Problems,
			pdferrors.NewPDFError(pdferrors.ErrorTypeEmptyExtraction, pdferrors.ErrEmptyExtraction.Message).
				WithPage(outcome.Page))
		return outcome
	}

	placement, err := p.annotate(ctx, doc, pageIndex, entries)
	if err != nil {
		outcome.Problems = append(outcome.Problems, asKind(pdferrors.ErrorTypeEmbedFailure, err).WithPage(outcome.Page))
		if p.Debug {
			log.Printf("answerkey: page %d not annotated: %v", outcome.Page, err)
		}
		return outcome
	}

	outcome.Annotated = true
	outcome.Placement = &placement
	return outcome
}

func (p *Pipeline) annotate(ctx context.Context, doc Document, pageIndex int, entries Entries) (Placement, error) {
	if p.Rasterizer == nil {
		return Placement{}, pdferrors.NewPDFError(pdferrors.ErrorTypeRasterizationFailed, "no rasterizer configured")
	}

	raster, err := p.Rasterizer.Rasterize(ctx, Compose(entries))
	if err != nil {
		return Placement{}, err
	}

	pageWidth, pageHeight, err := doc.PageSize(pageIndex)
	if err != nil {
		return Placement{}, pdferrors.WrapError(pdferrors.ErrorTypeEmbedFailure, err).WithContext("reading page size")
	}

	placement, err := p.Placer.Place(pageWidth, pageHeight, raster.Width, raster.Height, pageIndex)
	if err != nil {
		return Placement{}, err
	}

	if err := doc.InsertImage(pageIndex, placement, raster.Image); err != nil {
		return Placement{}, pdferrors.WrapError(pdferrors.ErrorTypeEmbedFailure, err)
	}
	return placement, nil
}

// Extract collects the entries of every selected page without modifying doc
func (p *Pipeline) Extract(doc Document) []PageOutcome {
	var outcomes []PageOutcome
	for i := 0; i < doc.PageCount(); i++ {
		outcome := PageOutcome{Page: i + 1}
		if !pagerange.Selected(p.Pages, outcome.Page) {
			outcome.Skipped = true
			outcomes = append(outcomes, outcome)
			continue
		}

		entries, warnings, err := p.Extractor.ExtractPage(doc, i)
		outcome.Entries = entries
		outcome.Problems = append(outcome.Problems, warnings...)
		if err != nil {
			outcome.Problems = append(outcome.Problems, asKind(pdferrors.ErrorTypeDecodeFailure, err))
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// asKind returns err as a PDFError, wrapping it with kind when it is not one
// already.
func asKind(kind pdferrors.ErrorType, err error) *pdferrors.PDFError {
	var pdfErr *pdferrors.PDFError
	if errors.As(err, &pdfErr) {
		return pdfErr
	}
	return pdferrors.WrapError(kind, err)
}
