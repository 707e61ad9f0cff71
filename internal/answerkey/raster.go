package answerkey

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"time"

	"golang.org/x/image/draw"

	pdferrors "github.com/a3tai/pdf-answer-key/internal/pdf/errors"
)

const (
	// DefaultRenderTimeout bounds a single renderer call
	DefaultRenderTimeout = 30 * time.Second
	// DefaultMaxPixelWidth is the widest bitmap kept before downscaling
	DefaultMaxPixelWidth = 2400
)

// RenderConfig is the fixed configuration handed to a Renderer
type RenderConfig struct {
	Format                string
	TransparentBackground bool
	CropToContent         bool
	// Selector identifies the element to capture when CropToContent is set
	Selector string
}

// DefaultRenderConfig asks for a transparent PNG cropped to the table element
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		Format:                "png",
		TransparentBackground: true,
		CropToContent:         true,
		Selector:              "#" + TableElementID,
	}
}

// Renderer converts an HTML document into encoded bitmap bytes
type Renderer interface {
	Render(ctx context.Context, html string, cfg RenderConfig) ([]byte, error)
}

// RasterImage is a bitmap cropped to its painted content
type RasterImage struct {
	Image  image.Image
	Width  int
	Height int
	// ContentWidth is the pixel width of the painted area
	ContentWidth int
}

// Rasterizer turns tables into cropped bitmaps through a Renderer
type Rasterizer struct {
	Renderer      Renderer
	Config        RenderConfig
	Timeout       time.Duration
	MaxPixelWidth int
}

// NewRasterizer returns a rasterizer with default configuration
func NewRasterizer(r Renderer) *Rasterizer {
	return &Rasterizer{
		Renderer:      r,
		Config:        DefaultRenderConfig(),
		Timeout:       DefaultRenderTimeout,
		MaxPixelWidth: DefaultMaxPixelWidth,
	}
}

// Rasterize renders the table and crops the result to its content. Every
// failure, including a timeout and an output without content, is a
// RasterizationFailed error.
func (r *Rasterizer) Rasterize(ctx context.Context, table Table) (*RasterImage, error) {
	if r.Renderer == nil {
		return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeRasterizationFailed, "no renderer configured")
	}
	if table.Empty() {
		return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeRasterizationFailed, "nothing to render")
	}

	doc, err := table.HTML()
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeRasterizationFailed, err)
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultRenderTimeout
	}
	renderCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	data, err := r.render(renderCtx, doc)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, pdferrors.WrapError(pdferrors.ErrorTypeRasterizationFailed, err).
				WithContext(fmt.Sprintf("renderer exceeded %s", timeout))
		}
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeRasterizationFailed, err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeRasterizationFailed, err).
			WithContext("decoding renderer output")
	}

	bounds, ok := ContentBounds(img)
	if !ok {
		return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeRasterizationFailed, "rendered bitmap has no content")
	}

	cropped := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(cropped, cropped.Bounds(), img, bounds.Min, draw.Src)

	var out image.Image = cropped
	if r.MaxPixelWidth > 0 && cropped.Bounds().Dx() > r.MaxPixelWidth {
		out = downscale(cropped, r.MaxPixelWidth)
	}

	return &RasterImage{
		Image:        out,
		Width:        out.Bounds().Dx(),
		Height:       out.Bounds().Dy(),
		ContentWidth: bounds.Dx(),
	}, nil
}

// render runs the renderer and gives up when ctx ends, even if the renderer
// itself ignores ctx.
func (r *Rasterizer) render(ctx context.Context, doc string) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := r.Renderer.Render(ctx, doc, r.Config)
		done <- result{data: data, err: err}
	}()

	select {
	case res := <-done:
		return res.data, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ContentBounds returns the smallest rectangle holding every content pixel.
// Content is any pixel with non-zero alpha; when the bitmap has no
// transparent pixel at all, content is any pixel differing from the
// top-left corner color. ok is false when there is no content.
func ContentBounds(img image.Image) (image.Rectangle, bool) {
	b := img.Bounds()
	if b.Empty() {
		return image.Rectangle{}, false
	}

	isContent := func(x, y int) bool {
		_, _, _, a := img.At(x, y).RGBA()
		return a != 0
	}
	if opaque(img) {
		background := color.NRGBA64Model.Convert(img.At(b.Min.X, b.Min.Y))
		isContent = func(x, y int) bool {
			return color.NRGBA64Model.Convert(img.At(x, y)) != background
		}
	}

	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if !isContent(x, y) {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < minX || maxY < minY {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

func opaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xFFFF {
				return false
			}
		}
	}
	return true
}

func downscale(src image.Image, width int) image.Image {
	b := src.Bounds()
	height := b.Dy() * width / b.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
