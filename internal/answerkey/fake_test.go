package answerkey

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/a3tai/pdf-answer-key/internal/pdf/contentstream"
)

// fakePage is a page whose text runs are derived from its content streams,
// so repainting the streams changes what extraction sees.
type fakePage struct {
	width, height float64
	streams       []int
	fonts         map[string]string
}

type insertedImage struct {
	page  int
	rect  Placement
	image image.Image
}

type fakeDocument struct {
	pages   []fakePage
	streams map[int][]byte
	images  []insertedImage
	saved   bool

	textErr   map[int]error
	streamErr map[int]error
	insertErr error
	saveErr   error
}

func newFakeDocument() *fakeDocument {
	return &fakeDocument{
		streams:   map[int][]byte{},
		textErr:   map[int]error{},
		streamErr: map[int]error{},
	}
}

// addPage adds a Letter page drawn by the given streams and returns its index
func (d *fakeDocument) addPage(contents ...string) int {
	page := fakePage{
		width:  612,
		height: 792,
		fonts:  map[string]string{"F1": "ABCDEF+Calibri-Bold", "F2": "TimesNewRomanPSMT"},
	}
	for _, c := range contents {
		id := len(d.streams) + 10
		d.streams[id] = []byte(c)
		page.streams = append(page.streams, id)
	}
	d.pages = append(d.pages, page)
	return len(d.pages) - 1
}

func (d *fakeDocument) PageCount() int { return len(d.pages) }

func (d *fakeDocument) PageSize(i int) (float64, float64, error) {
	if i < 0 || i >= len(d.pages) {
		return 0, 0, fmt.Errorf("page %d out of range", i)
	}
	return d.pages[i].width, d.pages[i].height, nil
}

func (d *fakeDocument) TextRuns(i int) ([]TextRun, error) {
	if err := d.textErr[i]; err != nil {
		return nil, err
	}
	var runs []TextRun
	for _, id := range d.pages[i].streams {
		streamRuns, err := runsFromStream(d.streams[id], d.pages[i].fonts)
		if err != nil {
			return nil, err
		}
		runs = append(runs, streamRuns...)
	}
	return runs, nil
}

func (d *fakeDocument) ContentStreamIDs(i int) ([]int, error) {
	if i < 0 || i >= len(d.pages) {
		return nil, fmt.Errorf("page %d out of range", i)
	}
	return append([]int(nil), d.pages[i].streams...), nil
}

func (d *fakeDocument) ContentStream(id int) ([]byte, error) {
	if err := d.streamErr[id]; err != nil {
		return nil, err
	}
	data, ok := d.streams[id]
	if !ok {
		return nil, fmt.Errorf("no stream %d", id)
	}
	return data, nil
}

func (d *fakeDocument) SetContentStream(id int, data []byte) error {
	d.streams[id] = append([]byte(nil), data...)
	return nil
}

func (d *fakeDocument) InsertImage(i int, rect Placement, img image.Image) error {
	if d.insertErr != nil {
		return d.insertErr
	}
	d.images = append(d.images, insertedImage{page: i, rect: rect, image: img})
	return nil
}

func (d *fakeDocument) Save(w io.Writer) error {
	if d.saveErr != nil {
		return d.saveErr
	}
	d.saved = true
	ids := make([]int, 0, len(d.streams))
	for id := range d.streams {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if _, err := w.Write(d.streams[id]); err != nil {
			return err
		}
	}
	return nil
}

// runsFromStream interprets the handful of operators the tests use: rg, g,
// Tf and Tj.
func runsFromStream(data []byte, fonts map[string]string) ([]TextRun, error) {
	var runs []TextRun
	var fill int64
	font := ""

	err := contentstream.Scan(data, func(op contentstream.Operation) error {
		switch op.Operator.Value {
		case "rg":
			if op.NumberOperands(3) {
				fill = packOperands(op.Operands)
			}
		case "g":
			if op.NumberOperands(1) {
				fill = packOperands([]contentstream.Token{op.Operands[0], op.Operands[0], op.Operands[0]})
			}
		case "Tf":
			if len(op.Operands) == 2 {
				font = fonts[op.Operands[0].Value]
			}
		case "Tj":
			if len(op.Operands) == 1 {
				runs = append(runs, TextRun{Text: op.Operands[0].Value, Font: font, Color: fill})
			}
		}
		return nil
	})
	return runs, err
}

func packOperands(ops []contentstream.Token) int64 {
	var packed int64
	for _, op := range ops {
		v, _ := strconv.ParseFloat(op.Value, 64)
		packed = packed<<8 | int64(math.Round(math.Max(0, math.Min(1, v))*255))
	}
	return packed
}

// fakeRenderer returns a PNG with a transparent margin around an opaque box
type fakeRenderer struct {
	width, height int
	margin        int
	err           error
	raw           []byte
	delay         time.Duration
	calls         int
	lastHTML      string
	lastConfig    RenderConfig
}

func (r *fakeRenderer) Render(ctx context.Context, html string, cfg RenderConfig) ([]byte, error) {
	r.calls++
	r.lastHTML = html
	r.lastConfig = cfg
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	if r.err != nil {
		return nil, r.err
	}
	if r.raw != nil {
		return r.raw, nil
	}
	return encodePNG(boxImage(r.width, r.height, r.margin)), nil
}

// boxImage is a transparent canvas with an opaque white box inset by margin
func boxImage(width, height, margin int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := margin; y < height-margin; y++ {
		for x := margin; x < width-margin; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	return img
}

func encodePNG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
