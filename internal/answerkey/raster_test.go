package answerkey

import (
	"context"
	stderrors "errors"
	"fmt"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pdferrors "github.com/a3tai/pdf-answer-key/internal/pdf/errors"
)

var oneRow = Compose(Entries{{Question: "1", QuestionFont: "Arial", Answer: "Paris", AnswerFont: "Arial"}})

func TestRasterize_CropsToContent(t *testing.T) {
	renderer := &fakeRenderer{width: 300, height: 120, margin: 10}
	r := NewRasterizer(renderer)

	img, err := r.Rasterize(context.Background(), oneRow)
	require.NoError(t, err)

	assert.Equal(t, 280, img.Width)
	assert.Equal(t, 100, img.Height)
	assert.Equal(t, 280, img.ContentWidth)
	assert.Equal(t, image.Rect(0, 0, 280, 100), img.Image.Bounds())

	assert.Equal(t, 1, renderer.calls)
	assert.Equal(t, DefaultRenderConfig(), renderer.lastConfig)
	assert.Contains(t, renderer.lastHTML, "Paris")
}

func TestRasterize_Downscales(t *testing.T) {
	renderer := &fakeRenderer{width: 402, height: 102, margin: 1}
	r := NewRasterizer(renderer)
	r.MaxPixelWidth = 200

	img, err := r.Rasterize(context.Background(), oneRow)
	require.NoError(t, err)
	assert.Equal(t, 200, img.Width)
	assert.Equal(t, 50, img.Height)
	assert.Equal(t, 400, img.ContentWidth)
}

func TestRasterize_Failures(t *testing.T) {
	tests := []struct {
		name     string
		renderer *fakeRenderer
	}{
		{"RendererError", &fakeRenderer{err: fmt.Errorf("chrome crashed")}},
		{"NotAnImage", &fakeRenderer{raw: []byte("<html>")}},
		{"AllTransparent", &fakeRenderer{width: 50, height: 20, margin: 25}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := NewRasterizer(tt.renderer).Rasterize(context.Background(), oneRow)
			assert.Nil(t, img)
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, pdferrors.ErrRasterizationFailed))
		})
	}
}

func TestRasterize_Timeout(t *testing.T) {
	r := NewRasterizer(&fakeRenderer{width: 10, height: 10, delay: 500 * time.Millisecond})
	r.Timeout = 20 * time.Millisecond

	start := time.Now()
	img, err := r.Rasterize(context.Background(), oneRow)
	assert.Less(t, time.Since(start), 400*time.Millisecond)

	assert.Nil(t, img)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, pdferrors.ErrRasterizationFailed))
	assert.True(t, stderrors.Is(err, context.DeadlineExceeded))
}

func TestRasterize_EmptyTable(t *testing.T) {
	renderer := &fakeRenderer{width: 10, height: 10}
	_, err := NewRasterizer(renderer).Rasterize(context.Background(), Compose(nil))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, pdferrors.ErrRasterizationFailed))
	assert.Zero(t, renderer.calls)
}

func TestContentBounds_OpaqueBackground(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.White)
		}
	}
	img.Set(5, 7, color.Black)
	img.Set(20, 12, color.Black)

	bounds, ok := ContentBounds(img)
	require.True(t, ok)
	assert.Equal(t, image.Rect(5, 7, 21, 13), bounds)
}

func TestContentBounds_NoContent(t *testing.T) {
	_, ok := ContentBounds(image.NewNRGBA(image.Rect(0, 0, 8, 8)))
	assert.False(t, ok)

	_, ok = ContentBounds(image.NewNRGBA(image.Rectangle{}))
	assert.False(t, ok)
}
