package document

import (
	"fmt"
	"image"
	"image/color"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/a3tai/pdf-answer-key/internal/answerkey"
)

// imageNamePrefix names the XObject resources this package adds to a page.
const imageNamePrefix = "AnswerKey"

// maxTreeDepth bounds the walk up the page tree.
const maxTreeDepth = 64

// splitImage returns the 8-bit RGB samples and the alpha channel of img in
// row order. Color samples are un-premultiplied.
func splitImage(img image.Image) (rgb, alpha []byte, w, h int) {
	b := img.Bounds()
	w, h = b.Dx(), b.Dy()
	rgb = make([]byte, 0, w*h*3)
	alpha = make([]byte, 0, w*h)

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			rgb = append(rgb, c.R, c.G, c.B)
			alpha = append(alpha, c.A)
		}
	}
	return rgb, alpha, w, h
}

func (d *Document) newImageObject(samples []byte, w, h int, colorSpace string, smask *types.IndirectRef) (*types.IndirectRef, error) {
	sd, err := d.ctx.NewStreamDictForBuf(samples)
	if err != nil {
		return nil, err
	}

	sd.Dict["Type"] = types.Name("XObject")
	sd.Dict["Subtype"] = types.Name("Image")
	sd.Dict["Width"] = types.Integer(w)
	sd.Dict["Height"] = types.Integer(h)
	sd.Dict["ColorSpace"] = types.Name(colorSpace)
	sd.Dict["BitsPerComponent"] = types.Integer(8)
	if smask != nil {
		sd.Dict["SMask"] = *smask
	}

	if err := sd.Encode(); err != nil {
		return nil, err
	}
	return d.ctx.IndRefForNewObject(*sd)
}

func (d *Document) newContentObject(content string) (*types.IndirectRef, error) {
	sd, err := d.ctx.NewStreamDictForBuf([]byte(content))
	if err != nil {
		return nil, err
	}
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	return d.ctx.IndRefForNewObject(*sd)
}

// InsertImage draws img into rect on the page. rect uses a top-left origin;
// it is converted to PDF user space against the visible page box. The
// image's alpha channel becomes a soft mask so transparent pixels leave the
// page untouched.
//
// The page's existing content is wrapped in q/Q so a graphics state left
// unbalanced by the original streams cannot move or recolor the stamp.
func (d *Document) InsertImage(pageIndex int, rect answerkey.Placement, img image.Image) error {
	if img == nil || img.Bounds().Empty() {
		return pdfcpuError("insert_image", ErrEmptyImage)
	}

	dict, inh, err := d.pageDict(pageIndex)
	if err != nil {
		return err
	}
	box := visibleBox(inh)
	if box == nil {
		return pdfcpuError("insert_image", fmt.Errorf("%w: page %d has no media box", ErrMalformedPage, pageIndex+1))
	}

	rgb, alpha, w, h := splitImage(img)

	smask, err := d.newImageObject(alpha, w, h, "DeviceGray", nil)
	if err != nil {
		return pdfcpuError("insert_image", fmt.Errorf("soft mask: %w", err))
	}
	xobj, err := d.newImageObject(rgb, w, h, "DeviceRGB", smask)
	if err != nil {
		return pdfcpuError("insert_image", fmt.Errorf("image: %w", err))
	}

	d.imageSeq++
	name := imageNamePrefix + strconv.Itoa(d.imageSeq)

	if err := d.addXObject(dict, name, *xobj); err != nil {
		return err
	}

	x := box.LL.X + rect.Left
	y := box.LL.Y + box.Height() - rect.Bottom
	stamp := fmt.Sprintf("Q\nq %.4f 0 0 %.4f %.4f %.4f cm /%s Do Q\n", rect.Width(), rect.Height(), x, y, name)

	return d.wrapContents(dict, stamp)
}

// resources returns the page's resource dictionary, inherited from the
// nearest page tree node that defines one.
func (d *Document) resources(page types.Dict) (types.Dict, error) {
	node := page
	for depth := 0; node != nil && depth < maxTreeDepth; depth++ {
		if obj, found := node.Find("Resources"); found && obj != nil {
			return d.ctx.DereferenceDict(obj)
		}
		parent, found := node.Find("Parent")
		if !found || parent == nil {
			break
		}
		next, err := d.ctx.DereferenceDict(parent)
		if err != nil {
			return nil, err
		}
		node = next
	}
	return nil, nil
}

// addXObject registers ref under name in a page-local copy of the page's
// resources, so shared resource dictionaries of other pages stay unchanged.
func (d *Document) addXObject(page types.Dict, name string, ref types.IndirectRef) error {
	inherited, err := d.resources(page)
	if err != nil {
		return pdfcpuError("insert_image", fmt.Errorf("resources: %w", err))
	}

	resources := types.Dict{}
	for k, v := range inherited {
		resources[k] = v
	}

	xobjects := types.Dict{}
	if existing, found := resources.Find("XObject"); found && existing != nil {
		resolved, err := d.ctx.DereferenceDict(existing)
		if err != nil {
			return pdfcpuError("insert_image", fmt.Errorf("xobject resources: %w", err))
		}
		for k, v := range resolved {
			xobjects[k] = v
		}
	}
	for {
		if _, taken := xobjects[name]; !taken {
			break
		}
		d.imageSeq++
		name = imageNamePrefix + strconv.Itoa(d.imageSeq)
	}

	xobjects[name] = ref
	resources["XObject"] = xobjects
	page["Resources"] = resources
	return nil
}

// wrapContents brackets the page's content streams with "q" and the stamp
// stream, which opens with the matching "Q".
func (d *Document) wrapContents(page types.Dict, stamp string) error {
	open, err := d.newContentObject("q\n")
	if err != nil {
		return pdfcpuError("insert_image", fmt.Errorf("content prefix: %w", err))
	}
	closing, err := d.newContentObject(stamp)
	if err != nil {
		return pdfcpuError("insert_image", fmt.Errorf("content suffix: %w", err))
	}

	contents := types.Array{*open}
	if obj, found := page.Find("Contents"); found && obj != nil {
		ids, err := d.streamRefs(obj)
		if err != nil {
			return err
		}
		for _, id := range ids {
			entry := d.ctx.Table[id]
			gen := 0
			if entry != nil && entry.Generation != nil {
				gen = *entry.Generation
			}
			contents = append(contents, types.IndirectRef{
				ObjectNumber:     types.Integer(id),
				GenerationNumber: types.Integer(gen),
			})
		}
	}
	contents = append(contents, *closing)

	page["Contents"] = contents
	return nil
}
