package answerkey

import (
	"bytes"
	"log"

	"github.com/a3tai/pdf-answer-key/internal/pdf/contentstream"
	pdferrors "github.com/a3tai/pdf-answer-key/internal/pdf/errors"
)

var black = []byte("0 0 0")

// Neutralizer repaints explicit RGB colors in page content streams black
type Neutralizer struct {
	// IncludeStroke also rewrites the RG stroke color operator
	IncludeStroke bool
	Debug         bool
}

// NeutralizeStream rewrites the operands of every rg operator with exactly
// three numeric operands to "0 0 0". All other bytes are copied unchanged.
// The returned flag is false when nothing had to be rewritten, in which case
// the returned slice is data itself.
func (n Neutralizer) NeutralizeStream(data []byte) ([]byte, bool, error) {
	edits, _, _, err := n.scanStream(data, nil)
	if err != nil {
		return data, false, pdferrors.WrapError(pdferrors.ErrorTypeDecodeFailure, err)
	}
	out, changed := splice(data, edits)
	return out, changed, nil
}

func (n Neutralizer) targets(operator string) bool {
	return operator == "rg" || (n.IncludeStroke && operator == "RG")
}

// edit replaces data[start:end] with with
type edit struct {
	start, end int
	with       []byte
}

var zero = []byte("0")

// scanStream collects the edits for one stream. carried are the operands
// left at the end of the previous stream of the page. When they complete a
// color operation at the start of data, joined is true and the operands on
// this side are zeroed; the caller zeroes the carried ones.
func (n Neutralizer) scanStream(data []byte, carried []contentstream.Token) (edits []edit, joined bool, trailing []contentstream.Token, err error) {
	first := true
	trailing, err = contentstream.ScanTrailing(data, func(op contentstream.Operation) error {
		if first && len(carried) > 0 && len(op.Operands) < 3 {
			whole := contentstream.Operation{
				Operator: op.Operator,
				Operands: append(append([]contentstream.Token(nil), carried...), op.Operands...),
			}
			if n.targets(op.Operator.Value) && whole.NumberOperands(3) {
				joined = true
				for _, o := range op.Operands {
					edits = append(edits, edit{o.Start, o.End, zero})
				}
			}
		}
		first = false

		if !n.targets(op.Operator.Value) || !op.NumberOperands(3) {
			return nil
		}
		start := op.Operands[0].Start
		end := op.Operands[2].End
		if bytes.Equal(data[start:end], black) {
			return nil
		}
		edits = append(edits, edit{start, end, black})
		return nil
	})
	return edits, joined, trailing, err
}

// splice applies edits, which must be ordered and disjoint. It returns data
// itself when the result would be identical.
func splice(data []byte, edits []edit) ([]byte, bool) {
	if len(edits) == 0 {
		return data, false
	}
	var out bytes.Buffer
	copied := 0
	for _, e := range edits {
		out.Write(data[copied:e.start])
		out.Write(e.with)
		copied = e.end
	}
	out.Write(data[copied:])
	if bytes.Equal(out.Bytes(), data) {
		return data, false
	}
	return out.Bytes(), true
}

type pageStream struct {
	id    int
	data  []byte
	edits []edit
}

// NeutralizePage rewrites every content stream of a page. The streams are
// scanned as one sequence, so a color operation whose operands end one
// stream and whose operator starts the next is rewritten too. Streams that
// cannot be read or tokenized are left as they are and reported; the
// remaining streams are still processed. It returns the number of rewritten
// streams.
func (n Neutralizer) NeutralizePage(doc Document, pageIndex int) (int, []*pdferrors.PDFError) {
	ids, err := doc.ContentStreamIDs(pageIndex)
	if err != nil {
		return 0, []*pdferrors.PDFError{pdferrors.WrapError(pdferrors.ErrorTypeDecodeFailure, err).
			WithPage(pageIndex + 1).WithContext("listing content streams")}
	}

	var problems []*pdferrors.PDFError
	var streams []*pageStream
	var prev *pageStream
	var carried []contentstream.Token
	for _, id := range ids {
		data, err := doc.ContentStream(id)
		if err != nil {
			problems = append(problems, asKind(pdferrors.ErrorTypeDecodeFailure, err).WithPage(pageIndex+1).WithObject(id))
			prev, carried = nil, nil
			continue
		}

		edits, joined, trailing, err := n.scanStream(data, carried)
		if err != nil {
			problems = append(problems, pdferrors.WrapError(pdferrors.ErrorTypeDecodeFailure, err).WithPage(pageIndex+1).WithObject(id))
			prev, carried = nil, nil
			continue
		}
		if joined {
			for _, o := range carried {
				prev.edits = append(prev.edits, edit{o.Start, o.End, zero})
			}
		}

		cur := &pageStream{id: id, data: data, edits: edits}
		streams = append(streams, cur)
		prev, carried = cur, trailing
	}

	rewritten := 0
	for _, st := range streams {
		out, changed := splice(st.data, st.edits)
		if !changed {
			continue
		}
		if err := doc.SetContentStream(st.id, out); err != nil {
			problems = append(problems, pdferrors.WrapError(pdferrors.ErrorTypeDecodeFailure, err).
				WithPage(pageIndex+1).WithObject(st.id).WithContext("writing content stream"))
			continue
		}
		rewritten++
	}

	if n.Debug {
		log.Printf("answerkey: page %d: %d of %d content streams rewritten", pageIndex+1, rewritten, len(ids))
	}
	return rewritten, problems
}
