package answerkey

import (
	stderrors "errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pdferrors "github.com/a3tai/pdf-answer-key/internal/pdf/errors"
)

func TestPlace_Parity(t *testing.T) {
	p := NewPlacer()

	even, err := p.Place(600, 800, 500, 100, 0)
	require.NoError(t, err)
	assert.InDelta(t, 600-DefaultSideMargin, even.Right, 1e-9)
	assert.LessOrEqual(t, 600-even.Right, DefaultSideMargin)
	assert.InDelta(t, DefaultFooterWidth, even.Width(), 1e-9)

	odd, err := p.Place(600, 800, 500, 100, 1)
	require.NoError(t, err)
	assert.InDelta(t, DefaultSideMargin, odd.Left, 1e-9)
	assert.InDelta(t, DefaultFooterWidth, odd.Width(), 1e-9)

	for _, placement := range []Placement{even, odd} {
		assert.InDelta(t, 800-DefaultBottomMargin, placement.Bottom, 1e-9)
		// 500x100 scaled to 250 wide is 50 high
		assert.InDelta(t, 50, placement.Height(), 1e-9)
		assert.InDelta(t, 800-DefaultBottomMargin-50, placement.Top, 1e-9)
	}
}

func TestPlace_AlternatesAcrossPages(t *testing.T) {
	p := NewPlacer()
	for i := 0; i < 6; i++ {
		placement, err := p.Place(612, 792, 250, 40, i)
		require.NoError(t, err)
		if i%2 == 0 {
			assert.InDelta(t, 612-DefaultSideMargin, placement.Right, 1e-9, "page index %d", i)
		} else {
			assert.InDelta(t, DefaultSideMargin, placement.Left, 1e-9, "page index %d", i)
		}
	}
}

func TestPlace_ClampsToNarrowPage(t *testing.T) {
	p := NewPlacer()
	placement, err := p.Place(200, 300, 100, 50, 0)
	require.NoError(t, err)

	assert.InDelta(t, 200-2*DefaultSideMargin, placement.Width(), 1e-9)
	assert.InDelta(t, DefaultSideMargin, placement.Left, 1e-9)
	assert.InDelta(t, 200-DefaultSideMargin, placement.Right, 1e-9)
	assert.InDelta(t, 64, placement.Height(), 1e-9)
}

func TestPlace_InvalidDimensions(t *testing.T) {
	p := NewPlacer()
	tests := []struct {
		name                  string
		pageWidth, pageHeight float64
		imageWidth            int
		imageHeight           int
	}{
		{"ZeroImageWidth", 600, 800, 0, 10},
		{"NegativeImageHeight", 600, 800, 10, -1},
		{"ZeroPageWidth", 0, 800, 10, 10},
		{"NaNPageHeight", 600, math.NaN(), 10, 10},
		{"InfinitePage", math.Inf(1), 800, 10, 10},
		{"NarrowerThanMargins", 60, 800, 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Place(tt.pageWidth, tt.pageHeight, tt.imageWidth, tt.imageHeight, 0)
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, pdferrors.ErrEmbedFailure))
		})
	}
}
