package rawkit

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"runtime"

	"github.com/user/rawkit/pkg/metrics"
	"github.com/user/rawkit/pkg/ports"
	"github.com/user/rawkit/pkg/rawerr"
)

// ImageKind is the payload format of a ProcessedImage.
type ImageKind int

const (
	ImageJPEG   ImageKind = ports.ImageTypeJPEG
	ImageBitmap ImageKind = ports.ImageTypeBitmap
)

// String returns the kind name.
func (k ImageKind) String() string {
	switch k {
	case ImageJPEG:
		return "JPEG"
	case ImageBitmap:
		return "Bitmap"
	default:
		return "unknown"
	}
}

// ProcessedImage owns an image buffer allocated by the native library.
// Close releases it; if a ProcessedImage becomes unreachable unclosed, the
// buffer is released by a runtime cleanup. The payload is only reachable
// through View, WriteTo and Image, so no slice of native memory outlives it.
type ProcessedImage struct {
	native  ports.NativeLibrary
	ref     uintptr
	data    []byte
	kind    ImageKind
	width   uint16
	height  uint16
	colors  uint16
	bits    uint16
	cleanup runtime.Cleanup
}

type imageRef struct {
	native ports.NativeLibrary
	ref    uintptr
}

func clearNative(r imageRef) {
	r.native.ClearMem(r.ref)
	metrics.RecordImageReleased(metrics.ViaCleanup)
}

// newProcessedImage wraps the result of a make_mem call. On any failure
// the native buffer, if one was returned, is released before returning.
func newProcessedImage(lib *Library, rec *ports.ImageRecord, status int, site string) (*ProcessedImage, error) {
	if err := rawerr.FromStatus(status, lib.native); err != nil {
		if rec != nil && rec.Ref != 0 {
			lib.native.ClearMem(rec.Ref)
		}
		return nil, rawerr.At(err, site)
	}
	if rec == nil || rec.Ref == 0 {
		return nil, rawerr.Wrapper("native call succeeded without returning an image").At(site)
	}

	var kind ImageKind
	switch rec.Type {
	case ports.ImageTypeJPEG:
		kind = ImageJPEG
	case ports.ImageTypeBitmap:
		kind = ImageBitmap
	default:
		lib.native.ClearMem(rec.Ref)
		return nil, rawerr.Wrapper("Unexpected value at ProcessedImage.image_type! Value: %d. Expected 1 or 2", rec.Type).At(site)
	}

	img := &ProcessedImage{
		native: lib.native,
		ref:    rec.Ref,
		data:   rec.Data,
		kind:   kind,
		width:  rec.Width,
		height: rec.Height,
		colors: rec.Colors,
		bits:   rec.Bits,
	}
	img.cleanup = runtime.AddCleanup(img, clearNative, imageRef{native: lib.native, ref: rec.Ref})
	metrics.RecordImageAllocated()
	lib.log.Debug("Allocated %s image %dx%d (%d bytes)", kind, rec.Width, rec.Height, len(rec.Data))
	return img, nil
}

// Close releases the native buffer. Further calls are no-ops.
func (p *ProcessedImage) Close() {
	if p == nil || p.ref == 0 {
		return
	}
	p.cleanup.Stop()
	p.native.ClearMem(p.ref)
	p.ref = 0
	p.data = nil
	metrics.RecordImageReleased(metrics.ViaClose)
}

// Released reports whether Close has been called.
func (p *ProcessedImage) Released() bool {
	return p == nil || p.ref == 0
}

func (p *ProcessedImage) Kind() ImageKind { return p.kind }
func (p *ProcessedImage) Width() uint16   { return p.width }
func (p *ProcessedImage) Height() uint16  { return p.height }
func (p *ProcessedImage) Colors() uint16  { return p.colors }
func (p *ProcessedImage) Bits() uint16    { return p.bits }

// Len returns the payload size in bytes, 0 after Close.
func (p *ProcessedImage) Len() int { return len(p.data) }

// View lends the payload to fn. The slice must not escape fn.
func (p *ProcessedImage) View(fn func(data []byte) error) error {
	if p.Released() {
		return rawerr.Wrapper("image buffer already released").At("view()")
	}
	err := fn(p.data)
	runtime.KeepAlive(p)
	return err
}

// WriteTo writes the payload as is: JPEG bytes, or packed bitmap samples.
func (p *ProcessedImage) WriteTo(w io.Writer) (int64, error) {
	var n int
	err := p.View(func(data []byte) error {
		var werr error
		n, werr = w.Write(data)
		return werr
	})
	return int64(n), err
}

// Image decodes the payload into a Go image that does not alias native
// memory. Bitmaps with 1 or 3 colours at 8 or 16 bits are supported;
// 16-bit samples are in host byte order.
func (p *ProcessedImage) Image() (image.Image, error) {
	var out image.Image
	err := p.View(func(data []byte) error {
		var derr error
		if p.kind == ImageJPEG {
			out, derr = jpeg.Decode(bytes.NewReader(data))
			return derr
		}
		out, derr = p.bitmap(data)
		return derr
	})
	return out, err
}

func (p *ProcessedImage) bitmap(data []byte) (image.Image, error) {
	w, h := int(p.width), int(p.height)
	c := int(p.colors)
	bpp := int(p.bits) / 8
	if (c != 1 && c != 3) || (bpp != 1 && bpp != 2) {
		return nil, rawerr.Wrapper("unsupported bitmap layout: %d colors, %d bits", p.colors, p.bits).At("image()")
	}
	if need := w * h * c * bpp; len(data) < need {
		return nil, rawerr.Wrapper("bitmap payload is %d bytes, need %d", len(data), need).At("image()")
	}

	rect := image.Rect(0, 0, w, h)
	sample := func(i int) uint16 {
		if bpp == 1 {
			return uint16(data[i])
		}
		return binary.NativeEndian.Uint16(data[2*i:])
	}

	switch {
	case c == 1 && bpp == 1:
		img := image.NewGray(rect)
		copy(img.Pix, data[:w*h])
		return img, nil
	case c == 1:
		img := image.NewGray16(rect)
		for i := 0; i < w*h; i++ {
			img.SetGray16(i%w, i/w, color.Gray16{Y: sample(i)})
		}
		return img, nil
	case bpp == 1:
		img := image.NewRGBA(rect)
		for i := 0; i < w*h; i++ {
			img.Pix[4*i+0] = data[3*i+0]
			img.Pix[4*i+1] = data[3*i+1]
			img.Pix[4*i+2] = data[3*i+2]
			img.Pix[4*i+3] = 0xff
		}
		return img, nil
	default:
		img := image.NewRGBA64(rect)
		for i := 0; i < w*h; i++ {
			img.SetRGBA64(i%w, i/w, color.RGBA64{
				R: sample(3*i + 0),
				G: sample(3*i + 1),
				B: sample(3*i + 2),
				A: 0xffff,
			})
		}
		return img, nil
	}
}
