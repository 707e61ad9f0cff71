// Package document provides the PDF handle the answer-key pipeline runs
// against. pdfcpu owns the object graph: page geometry, content streams,
// image XObjects and serialization. ledongthuc/pdf interprets the content
// streams to recover the colored text runs.
package document

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/a3tai/pdf-answer-key/internal/answerkey"
)

// Document is an open PDF. It is not safe for concurrent use.
type Document struct {
	ctx  *model.Context
	text *pdf.Reader

	imageSeq int
}

var _ answerkey.Document = (*Document)(nil)

// Open parses a PDF held in memory.
func Open(data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, pdfcpuError("open", fmt.Errorf("empty input"))
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, pdfcpuError("open", fmt.Errorf("failed to read PDF context: %w", err))
	}

	if err := ctx.EnsurePageCount(); err != nil {
		return nil, pdfcpuError("open", fmt.Errorf("failed to ensure page count: %w", err))
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, ledongthucError("open", fmt.Errorf("failed to open PDF for text: %w", err))
	}

	return &Document{ctx: ctx, text: reader}, nil
}

// OpenFile reads and parses the PDF at path.
func OpenFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pdfcpuError("open_file", fmt.Errorf("failed to read file: %w", err))
	}
	return Open(data)
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return d.ctx.PageCount
}

// Save serializes the document, including every rewritten stream and
// inserted image.
func (d *Document) Save(w io.Writer) error {
	if err := api.WriteContext(d.ctx, w); err != nil {
		return pdfcpuError("save", err)
	}
	return nil
}

func (d *Document) checkPage(pageIndex int) error {
	if pageIndex < 0 || pageIndex >= d.ctx.PageCount {
		return fmt.Errorf("%w: index %d of %d pages", ErrInvalidPage, pageIndex, d.ctx.PageCount)
	}
	return nil
}
