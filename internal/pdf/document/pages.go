package document

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

const flateDecode = "FlateDecode"

// pageDict resolves the page dictionary and its inherited attributes.
func (d *Document) pageDict(pageIndex int) (types.Dict, *model.InheritedPageAttrs, error) {
	if err := d.checkPage(pageIndex); err != nil {
		return nil, nil, err
	}

	dict, _, inh, err := d.ctx.PageDict(pageIndex+1, false)
	if err != nil {
		return nil, nil, pdfcpuError("page_dict", err)
	}
	if dict == nil || inh == nil {
		return nil, nil, pdfcpuError("page_dict", fmt.Errorf("%w: page %d", ErrMalformedPage, pageIndex+1))
	}
	return dict, inh, nil
}

// visibleBox is the crop box when present, the media box otherwise.
func visibleBox(inh *model.InheritedPageAttrs) *types.Rectangle {
	if inh.CropBox != nil {
		return inh.CropBox
	}
	return inh.MediaBox
}

// PageSize returns the visible page size in points.
func (d *Document) PageSize(pageIndex int) (float64, float64, error) {
	_, inh, err := d.pageDict(pageIndex)
	if err != nil {
		return 0, 0, err
	}

	box := visibleBox(inh)
	if box == nil {
		return 0, 0, pdfcpuError("page_size", fmt.Errorf("%w: page %d has no media box", ErrMalformedPage, pageIndex+1))
	}
	return box.Width(), box.Height(), nil
}

// ContentStreamIDs lists the object numbers of the page's content streams
// in drawing order.
func (d *Document) ContentStreamIDs(pageIndex int) ([]int, error) {
	dict, _, err := d.pageDict(pageIndex)
	if err != nil {
		return nil, err
	}

	obj, found := dict.Find("Contents")
	if !found || obj == nil {
		return nil, nil
	}
	return d.streamRefs(obj)
}

func (d *Document) streamRefs(obj types.Object) ([]int, error) {
	switch o := obj.(type) {
	case types.IndirectRef:
		resolved, err := d.ctx.Dereference(o)
		if err != nil {
			return nil, pdfcpuError("contents", err)
		}
		if arr, ok := resolved.(types.Array); ok {
			return d.streamRefs(arr)
		}
		return []int{o.ObjectNumber.Value()}, nil

	case types.Array:
		ids := make([]int, 0, len(o))
		for _, item := range o {
			ref, ok := item.(types.IndirectRef)
			if !ok {
				continue
			}
			ids = append(ids, ref.ObjectNumber.Value())
		}
		return ids, nil
	}

	return nil, pdfcpuError("contents", fmt.Errorf("%w: unexpected %T", ErrNoContents, obj))
}

func (d *Document) lookupStream(id int) (*model.XRefTableEntry, *types.StreamDict, error) {
	entry, ok := d.ctx.Table[id]
	if !ok || entry == nil || entry.Free {
		return nil, nil, fmt.Errorf("%w: object %d", ErrUnknownStream, id)
	}

	gen := 0
	if entry.Generation != nil {
		gen = *entry.Generation
	}

	sd, _, err := d.ctx.DereferenceStreamDict(types.IndirectRef{
		ObjectNumber:     types.Integer(id),
		GenerationNumber: types.Integer(gen),
	})
	if err != nil {
		return nil, nil, pdfcpuError("stream", err)
	}
	if sd == nil {
		return nil, nil, fmt.Errorf("%w: object %d", ErrNotAStream, id)
	}
	return entry, sd, nil
}

// ContentStream returns the decoded bytes of a content stream.
func (d *Document) ContentStream(id int) ([]byte, error) {
	_, sd, err := d.lookupStream(id)
	if err != nil {
		return nil, err
	}

	if sd.Content == nil {
		if err := sd.Decode(); err != nil {
			return nil, pdfcpuError("decode_stream", fmt.Errorf("object %d: %w", id, err))
		}
	}
	return sd.Content, nil
}

// SetContentStream replaces a content stream. The stream is re-encoded with
// plain Flate so predictor parameters of the old filter never apply to the
// new bytes.
func (d *Document) SetContentStream(id int, data []byte) error {
	entry, sd, err := d.lookupStream(id)
	if err != nil {
		return err
	}

	sd.Content = data
	sd.FilterPipeline = []types.PDFFilter{{Name: flateDecode}}
	sd.Dict["Filter"] = types.Name(flateDecode)
	delete(sd.Dict, "DecodeParms")

	if err := sd.Encode(); err != nil {
		return pdfcpuError("encode_stream", fmt.Errorf("object %d: %w", id, err))
	}
	sd.Dict["Length"] = types.Integer(len(sd.Raw))

	entry.Object = *sd
	return nil
}
