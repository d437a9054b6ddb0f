package memraw

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"github.com/user/rawkit/pkg/ports"
)

// Magic is the first token of every fixture file.
const Magic = "MEMRAW"

const (
	whiteLevel = 4095
	eio        = 5
)

// Thumbnail kinds a fixture can embed.
const (
	ThumbNone   = "none"
	ThumbJPEG   = "jpeg"
	ThumbBitmap = "bitmap"
)

// Fixture describes a synthetic RAW file. Its on-disk form is a single
// header line:
//
//	MEMRAW <width> <height> [black=<n>] [thumb=none|jpeg|bitmap] [kind=<n>]
//
// Anything after the first line is ignored.
type Fixture struct {
	Width  int
	Height int
	Black  uint16
	Thumb  string
	// Kind overrides the type code reported for in-memory images.
	Kind int
}

// String renders f in its on-disk form.
func (f Fixture) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d %d", Magic, f.Width, f.Height)
	if f.Black != 0 {
		fmt.Fprintf(&b, " black=%d", f.Black)
	}
	if f.Thumb != "" {
		fmt.Fprintf(&b, " thumb=%s", f.Thumb)
	}
	if f.Kind != 0 {
		fmt.Fprintf(&b, " kind=%d", f.Kind)
	}
	b.WriteByte('\n')
	return b.String()
}

// WriteFixture writes f to path.
func WriteFixture(path string, f Fixture) error {
	return os.WriteFile(path, []byte(f.String()), 0o644)
}

// ParseFixture parses the header line of a fixture file.
func ParseFixture(data []byte) (Fixture, error) {
	line, _, _ := bytes.Cut(data, []byte("\n"))
	sc := bufio.NewScanner(bytes.NewReader(line))
	sc.Split(bufio.ScanWords)
	var fields []string
	for sc.Scan() {
		fields = append(fields, sc.Text())
	}
	if len(fields) < 3 || fields[0] != Magic {
		return Fixture{}, errNotFixture
	}
	f := Fixture{Thumb: ThumbJPEG}
	var err error
	if f.Width, err = parseDim(fields[1]); err != nil {
		return Fixture{}, err
	}
	if f.Height, err = parseDim(fields[2]); err != nil {
		return Fixture{}, err
	}
	for _, kv := range fields[3:] {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return Fixture{}, fmt.Errorf("memraw: malformed attribute %q", kv)
		}
		switch key {
		case "black":
			n, err := strconv.ParseUint(value, 10, 16)
			if err != nil || n >= whiteLevel {
				return Fixture{}, fmt.Errorf("memraw: bad black level %q", value)
			}
			f.Black = uint16(n)
		case "thumb":
			switch value {
			case ThumbNone, ThumbJPEG, ThumbBitmap:
				f.Thumb = value
			default:
				return Fixture{}, fmt.Errorf("memraw: bad thumbnail kind %q", value)
			}
		case "kind":
			n, err := strconv.Atoi(value)
			if err != nil {
				return Fixture{}, fmt.Errorf("memraw: bad image kind %q", value)
			}
			f.Kind = n
		default:
			return Fixture{}, fmt.Errorf("memraw: unknown attribute %q", key)
		}
	}
	return f, nil
}

var errNotFixture = errors.New("memraw: not a fixture file")

func parseDim(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 0xffff {
		return 0, fmt.Errorf("memraw: bad dimension %q", s)
	}
	return n, nil
}

// loadFixture reads path, mapping OS failures to errno values the way the
// native library reports them.
func loadFixture(path string) (*Fixture, int) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errnoOf(err)
	}
	f, err := ParseFixture(data)
	if errors.Is(err, errNotFixture) {
		return nil, ports.StatusFileUnsupported
	}
	if err != nil {
		return nil, ports.StatusDataError
	}
	return &f, ports.StatusSuccess
}

func errnoOf(err error) int {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	if errors.Is(err, fs.ErrNotExist) {
		return int(syscall.ENOENT)
	}
	return eio
}

// decodeContext is the per-handle decoding state.
type decodeContext struct {
	options         uint32
	fixture         *Fixture
	raw             []uint16
	rgb             []byte
	thumb           *thumbnail
	outputTIFF      bool
	blackSubtracted bool
}

func (c *decodeContext) reset() {
	*c = decodeContext{options: c.options}
}

type thumbnail struct {
	width, height int
	jpeg          []byte
	rgb           []byte
}

// synthesize produces an RGGB mosaic of three gradients on top of the
// black level.
func (f *Fixture) synthesize() []uint16 {
	w, h := f.Width, f.Height
	raw := make([]uint16, w*h)
	span := uint32(whiteLevel - f.Black)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var v uint32
			switch {
			case x%2 == 0 && y%2 == 0:
				v = uint32(x) * span / uint32(w)
			case x%2 == 1 && y%2 == 1:
				v = uint32(x+y) * span / uint32(w+h)
			default:
				v = uint32(y) * span / uint32(h)
			}
			raw[y*w+x] = uint16(v) + f.Black
		}
	}
	return raw
}

// demosaic collapses each 2x2 cell into one RGB value and scales it to
// 8 bits. The black level is removed unless subtracted already.
func (f *Fixture) demosaic(raw []uint16, blackSubtracted bool) []byte {
	w, h := f.Width, f.Height
	black := f.Black
	if blackSubtracted {
		black = 0
	}
	span := uint32(whiteLevel - f.Black)
	at := func(x, y int) uint32 {
		x = min(x, w-1)
		y = min(y, h-1)
		v := raw[y*w+x]
		if v <= black {
			return 0
		}
		return uint32(v-black) * 255 / span
	}
	rgb := make([]byte, w*h*3)
	for y := 0; y < h; y++ {
		cy := y &^ 1
		for x := 0; x < w; x++ {
			cx := x &^ 1
			i := (y*w + x) * 3
			rgb[i] = clamp8(at(cx, cy))
			rgb[i+1] = clamp8((at(cx+1, cy) + at(cx, cy+1)) / 2)
			rgb[i+2] = clamp8(at(cx+1, cy+1))
		}
	}
	return rgb
}

func clamp8(v uint32) byte {
	if v > 255 {
		return 255
	}
	return byte(v)
}

// thumbnail renders a quarter size preview of the processed gradients.
func (f *Fixture) thumbnail() (*thumbnail, int) {
	if f.Thumb == ThumbNone {
		return nil, ports.StatusRequestForNonexistentThumb
	}
	full := rgbImage(f.Width, f.Height, f.demosaic(f.synthesize(), false))
	tw, th := max(f.Width/4, 1), max(f.Height/4, 1)
	small := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), full, full.Bounds(), draw.Src, nil)

	t := &thumbnail{width: tw, height: th}
	if f.Thumb == ThumbJPEG {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, small, &jpeg.Options{Quality: 90}); err != nil {
			return nil, ports.StatusUnsupportedThumbnail
		}
		t.jpeg = buf.Bytes()
		return t, ports.StatusSuccess
	}
	t.rgb = make([]byte, 0, tw*th*3)
	for i := 0; i < len(small.Pix); i += 4 {
		t.rgb = append(t.rgb, small.Pix[i], small.Pix[i+1], small.Pix[i+2])
	}
	return t, ports.StatusSuccess
}

func rgbImage(w, h int, rgb []byte) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i, j := 0, 0; i < len(rgb); i, j = i+3, j+4 {
		img.Pix[j] = rgb[i]
		img.Pix[j+1] = rgb[i+1]
		img.Pix[j+2] = rgb[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}

// writeBitmap writes an 8-bit RGB bitmap as binary PPM or uncompressed TIFF.
func writeBitmap(path string, w, h int, rgb []byte, asTIFF bool) int {
	var buf bytes.Buffer
	if asTIFF {
		if err := tiff.Encode(&buf, rgbImage(w, h, rgb), &tiff.Options{Compression: tiff.Uncompressed}); err != nil {
			return ports.StatusIOError
		}
	} else {
		fmt.Fprintf(&buf, "P6\n%d %d\n255\n", w, h)
		buf.Write(rgb)
	}
	return writeFile(path, buf.Bytes())
}

func writeFile(path string, data []byte) int {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errnoOf(err)
	}
	return ports.StatusSuccess
}
