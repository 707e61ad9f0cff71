package answerkey

import (
	"fmt"
	"math"

	pdferrors "github.com/a3tai/pdf-answer-key/internal/pdf/errors"
)

// Footer geometry defaults, in points
const (
	DefaultFooterWidth  = 250.0
	DefaultSideMargin   = 36.0
	DefaultBottomMargin = 50.0
)

// Placement is a page rectangle with the origin at the top-left corner of
// the page and y growing downwards.
type Placement struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Width returns the horizontal extent of the rectangle
func (p Placement) Width() float64 {
	return p.Right - p.Left
}

// Height returns the vertical extent of the rectangle
func (p Placement) Height() float64 {
	return p.Bottom - p.Top
}

// Placer computes where the answer sheet goes in a page footer. Stamps on
// even page indexes hug the right margin and stamps on odd indexes the left
// one, so facing pages keep their binding edge clear.
type Placer struct {
	DesiredWidth float64
	SideMargin   float64
	BottomMargin float64
}

// NewPlacer returns a placer with the default footer geometry
func NewPlacer() Placer {
	return Placer{
		DesiredWidth: DefaultFooterWidth,
		SideMargin:   DefaultSideMargin,
		BottomMargin: DefaultBottomMargin,
	}
}

// Place computes the footer rectangle for an image of imageWidth x
// imageHeight pixels on a page of pageWidth x pageHeight points. The image
// keeps its aspect ratio; its width is the desired width, narrowed when the
// page is too small to hold it between the side margins.
func (p Placer) Place(pageWidth, pageHeight float64, imageWidth, imageHeight, pageIndex int) (Placement, error) {
	if imageWidth <= 0 || imageHeight <= 0 {
		return Placement{}, pdferrors.NewPDFError(pdferrors.ErrorTypeEmbedFailure, "image has no area").
			WithContext(fmt.Sprintf("%dx%d", imageWidth, imageHeight))
	}
	if !(pageWidth > 0) || !(pageHeight > 0) || math.IsInf(pageWidth, 0) || math.IsInf(pageHeight, 0) {
		return Placement{}, pdferrors.NewPDFError(pdferrors.ErrorTypeEmbedFailure, "page has no area").
			WithContext(fmt.Sprintf("%gx%g", pageWidth, pageHeight))
	}

	width := p.DesiredWidth
	if available := pageWidth - 2*p.SideMargin; width > available {
		width = available
	}
	if width <= 0 {
		return Placement{}, pdferrors.NewPDFError(pdferrors.ErrorTypeEmbedFailure, "page too narrow for footer").
			WithContext(fmt.Sprintf("width %g, side margin %g", pageWidth, p.SideMargin))
	}

	scale := width / float64(imageWidth)
	height := float64(imageHeight) * scale

	var placement Placement
	if pageIndex%2 == 0 {
		placement.Right = pageWidth - p.SideMargin
		placement.Left = placement.Right - width
	} else {
		placement.Left = p.SideMargin
		placement.Right = placement.Left + width
	}
	placement.Bottom = pageHeight - p.BottomMargin
	placement.Top = placement.Bottom - height

	return placement, nil
}
