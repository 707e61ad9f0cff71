package document

import (
	"fmt"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/a3tai/pdf-answer-key/internal/answerkey"
)

// wordSpacing is the TJ displacement, in thousandths of text space, beyond
// which adjacent strings are treated as separate words.
const wordSpacing = -200

// TextRuns interprets the page's content streams and returns its text runs
// with the fill color each one was painted in. Consecutive strings on the
// same line sharing font and color are merged into one run.
func (d *Document) TextRuns(pageIndex int) (runs []answerkey.TextRun, err error) {
	if err := d.checkPage(pageIndex); err != nil {
		return nil, err
	}

	page := d.text.Page(pageIndex + 1)
	if page.V.IsNull() {
		return nil, ledongthucError("text_runs", fmt.Errorf("%w: page %d", ErrInvalidPage, pageIndex+1))
	}

	defer func() {
		if r := recover(); r != nil {
			runs = nil
			err = ledongthucError("text_runs", fmt.Errorf("%w: page %d: %v", ErrInterpretPanic, pageIndex+1, r))
		}
	}()

	it := newTextInterpreter(page)
	contents := page.V.Key("Contents")
	if contents.Kind() == pdf.Array {
		for i := 0; i < contents.Len(); i++ {
			pdf.Interpret(contents.Index(i), it.do)
		}
	} else if !contents.IsNull() {
		pdf.Interpret(contents, it.do)
	}
	it.flush()

	return it.runs, nil
}

type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

type textInterpreter struct {
	page pdf.Page

	fill      int64
	fillStack []int64

	font     string
	fontName string
	fontSize float64
	encoder  pdf.TextEncoding
	leading  float64

	tm, tlm matrix

	pending *answerkey.TextRun
	newLine bool
	runs    []answerkey.TextRun
}

func newTextInterpreter(page pdf.Page) *textInterpreter {
	return &textInterpreter{page: page, tm: identity, tlm: identity, newLine: true}
}

func (t *textInterpreter) do(stk *pdf.Stack, op string) {
	n := stk.Len()
	args := make([]pdf.Value, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = stk.Pop()
	}

	switch op {
	case "q":
		t.fillStack = append(t.fillStack, t.fill)
	case "Q":
		if k := len(t.fillStack); k > 0 {
			t.fill = t.fillStack[k-1]
			t.fillStack = t.fillStack[:k-1]
		}

	case "rg":
		if len(args) == 3 {
			t.fill = packRGB(args[0].Float64(), args[1].Float64(), args[2].Float64())
		}
	case "g":
		if len(args) == 1 {
			v := args[0].Float64()
			t.fill = packRGB(v, v, v)
		}
	case "k":
		if len(args) == 4 {
			t.fill = packCMYK(args[0].Float64(), args[1].Float64(), args[2].Float64(), args[3].Float64())
		}
	case "cs":
		t.fill = 0
	case "sc", "scn":
		t.setComponents(args)

	case "BT":
		t.tm, t.tlm = identity, identity
		t.newLine = true
	case "ET":
		t.newLine = true
	case "Tf":
		if len(args) == 2 {
			t.setFont(args[0].Name(), args[1].Float64())
		}
	case "TL":
		if len(args) == 1 {
			t.leading = args[0].Float64()
		}
	case "Td":
		if len(args) == 2 {
			t.moveLine(args[0].Float64(), args[1].Float64())
		}
	case "TD":
		if len(args) == 2 {
			t.leading = -args[1].Float64()
			t.moveLine(args[0].Float64(), args[1].Float64())
		}
	case "T*":
		t.moveLine(0, -t.leading)
	case "Tm":
		if len(args) == 6 {
			var m matrix
			for i := range m {
				m[i] = args[i].Float64()
			}
			if m[5] != t.tlm[5] || m[0] != t.tlm[0] || m[1] != t.tlm[1] || m[2] != t.tlm[2] || m[3] != t.tlm[3] {
				t.newLine = true
			}
			t.tm, t.tlm = m, m
		}

	case "Tj":
		if len(args) == 1 {
			t.show(t.decode(args[0]))
		}
	case "'":
		if len(args) == 1 {
			t.moveLine(0, -t.leading)
			t.show(t.decode(args[0]))
		}
	case "\"":
		if len(args) == 3 {
			t.moveLine(0, -t.leading)
			t.show(t.decode(args[2]))
		}
	case "TJ":
		if len(args) == 1 {
			t.show(t.decodeArray(args[0]))
		}
	}
}

// setComponents handles sc/scn: one component is gray, three RGB and four
// CMYK. A trailing pattern name leaves the color unchanged.
func (t *textInterpreter) setComponents(args []pdf.Value) {
	if len(args) == 0 || args[len(args)-1].Kind() == pdf.Name {
		return
	}
	switch len(args) {
	case 1:
		v := args[0].Float64()
		t.fill = packRGB(v, v, v)
	case 3:
		t.fill = packRGB(args[0].Float64(), args[1].Float64(), args[2].Float64())
	case 4:
		t.fill = packCMYK(args[0].Float64(), args[1].Float64(), args[2].Float64(), args[3].Float64())
	}
}

func (t *textInterpreter) setFont(name string, size float64) {
	t.fontName = name
	t.fontSize = size
	t.font = name
	t.encoder = nil

	f := t.page.Font(name)
	if f.V.IsNull() {
		return
	}
	if base := f.BaseFont(); base != "" {
		t.font = base
	}
	t.encoder = f.Encoder()
}

// moveLine starts a new run only when the baseline changes. Horizontal
// moves on the same line keep merging.
func (t *textInterpreter) moveLine(tx, ty float64) {
	y := t.tlm[5]
	t.tlm = matrix{1, 0, 0, 1, tx, ty}.mul(t.tlm)
	t.tm = t.tlm
	if t.tlm[5] != y {
		t.newLine = true
	}
}

func (t *textInterpreter) decode(v pdf.Value) string {
	raw := v.RawString()
	if t.encoder == nil {
		return raw
	}
	return t.encoder.Decode(raw)
}

func (t *textInterpreter) decodeArray(v pdf.Value) string {
	var b strings.Builder
	for i := 0; i < v.Len(); i++ {
		item := v.Index(i)
		switch item.Kind() {
		case pdf.String:
			b.WriteString(t.decode(item))
		case pdf.Integer, pdf.Real:
			if item.Float64() <= wordSpacing && b.Len() > 0 && !strings.HasSuffix(b.String(), " ") {
				b.WriteByte(' ')
			}
		}
	}
	return b.String()
}

func (t *textInterpreter) show(s string) {
	if s == "" {
		return
	}

	if t.pending != nil && !t.newLine && t.pending.Font == t.font && t.pending.Color == t.fill {
		t.pending.Text += s
		return
	}

	t.flush()
	t.pending = &answerkey.TextRun{
		Text:     s,
		Font:     t.font,
		Color:    t.fill,
		X:        t.tm[4],
		Y:        t.tm[5],
		FontSize: t.fontSize,
	}
	t.newLine = false
}

func (t *textInterpreter) flush() {
	if t.pending == nil {
		return
	}
	t.runs = append(t.runs, *t.pending)
	t.pending = nil
}

func component(v float64) int64 {
	if math.IsNaN(v) {
		return 0
	}
	v = math.Max(0, math.Min(1, v))
	return int64(math.Round(v * 255))
}

func packRGB(r, g, b float64) int64 {
	return component(r)<<16 | component(g)<<8 | component(b)
}

func packCMYK(c, m, y, k float64) int64 {
	return packRGB((1-c)*(1-k), (1-m)*(1-k), (1-y)*(1-k))
}
