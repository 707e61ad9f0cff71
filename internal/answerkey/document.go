// Package answerkey turns color-coded question/answer text on PDF pages into
// a footer answer sheet. Questions are written in red and their answers in
// green; for every page the package collects the pairs, repaints the page
// text black, renders the pairs as a small table and stamps that table as an
// image into the page footer.
//
// The package works against the Document and Renderer interfaces only. The
// concrete PDF handle lives in internal/pdf/document and the headless
// browser renderer in internal/render.
package answerkey

import (
	"image"
	"io"
)

// TextRun is one text-showing operation as delivered by a Document, in
// content order.
type TextRun struct {
	Text string
	// Font is the raw font name, for example "ABCDEF+Calibri-Bold".
	Font string
	// Color is the fill color packed as 0xRRGGBB.
	Color    int64
	X, Y     float64
	FontSize float64
}

// Document is an open PDF owned by one pipeline run. Page indexes are
// zero-based.
type Document interface {
	PageCount() int
	PageSize(pageIndex int) (width, height float64, err error)
	TextRuns(pageIndex int) ([]TextRun, error)
	ContentStreamIDs(pageIndex int) ([]int, error)
	ContentStream(id int) ([]byte, error)
	SetContentStream(id int, data []byte) error
	InsertImage(pageIndex int, rect Placement, img image.Image) error
	Save(w io.Writer) error
}
