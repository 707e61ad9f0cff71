package pdftest

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"

	"github.com/a3tai/pdf-answer-key/internal/answerkey"
)

// Renderer stands in for a headless browser. It returns a transparent PNG
// holding an opaque white box, or Err when set.
type Renderer struct {
	Calls int
	Err   error
}

// Render implements answerkey.Renderer
func (r *Renderer) Render(_ context.Context, _ string, _ answerkey.RenderConfig) ([]byte, error) {
	r.Calls++
	if r.Err != nil {
		return nil, r.Err
	}

	img := image.NewNRGBA(image.Rect(0, 0, 200, 40))
	for y := 5; y < 35; y++ {
		for x := 5; x < 195; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
