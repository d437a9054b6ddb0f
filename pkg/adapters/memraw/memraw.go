// Package memraw simulates the native RAW library in process.
//
// It implements ports.NativeLibrary over a small synthetic fixture format
// (see ParseFixture) and keeps exact accounting of context and buffer
// allocations, which makes it the backend for tests and for the CLI's
// --backend memraw mode. Failures can be injected per operation with
// FailNext.
package memraw

import (
	"sync"

	"github.com/user/rawkit/pkg/ports"
)

// Operation names accepted by FailNext.
const (
	OpInit          = "init"
	OpOpenFile      = "open_file"
	OpUnpack        = "unpack"
	OpRaw2Image     = "raw2image"
	OpUnpackThumb   = "unpack_thumb"
	OpDcrawProcess  = "dcraw_process"
	OpPPMTIFFWriter = "ppm_tiff_writer"
	OpThumbWriter   = "thumb_writer"
	OpMakeMemImage  = "make_mem_image"
	OpMakeMemThumb  = "make_mem_thumb"
	OpDecoderInfo   = "decoder_info"
)

const (
	version       = "0.21.2-memraw"
	versionNumber = 0<<16 | 21<<8 | 2
	capabilities  = 1<<6 | 1<<7 // ZLIB | JPEG
	decoderName   = "memraw_load_bayer_raw()"
	decoderFlags  = 1<<4 | 1<<8 // HASCURVE | FIXEDMAXC
)

// DefaultCameras is the camera table used unless WithCameras is given.
var DefaultCameras = []string{
	"Canon EOS 5D Mark IV",
	"Fujifilm X-T4",
	"Leica M10",
	"Nikon Z 6",
	"Olympus E-M1 Mark III",
	"Panasonic DC-GH5",
	"Pentax K-1",
	"Sony ILCE-7M3",
}

var messages = map[int]string{
	ports.StatusSuccess:                    "No error",
	ports.StatusUnspecifiedError:           "Unspecified error",
	ports.StatusFileUnsupported:            "Unsupported file format or not RAW file",
	ports.StatusRequestForNonexistentImage: "Request for nonexisting image number",
	ports.StatusOutOfOrderCall:             "Out of order call of libraw function",
	ports.StatusNoThumbnail:                "No thumbnail in file",
	ports.StatusUnsupportedThumbnail:       "Unsupported thumbnail format",
	ports.StatusInputClosed:                "No input stream, or input stream closed",
	ports.StatusNotImplemented:             "Decoder not implemented for this data format",
	ports.StatusRequestForNonexistentThumb: "Request for nonexisting thumbnail number",
	ports.StatusInsufficientMemory:         "Not enough memory",
	ports.StatusDataError:                  "Corrupt data or unexpected EOF",
	ports.StatusIOError:                    "Input/output error",
	ports.StatusCancelledByCallback:        "Cancelled by user callback",
	ports.StatusBadCrop:                    "Bad crop box",
	ports.StatusTooBig:                     "Image too big for processing",
	ports.StatusMempoolOverflow:            "Not enough memory for processing",
}

// Stats counts allocations and releases.
type Stats struct {
	Inits        int
	Closes       int
	Allocs       int
	Clears       int
	DoubleCloses int
	DoubleClears int
}

// LiveContexts is the number of contexts initialised and not yet closed.
func (s Stats) LiveContexts() int { return s.Inits - s.Closes }

// LiveImages is the number of buffers allocated and not yet cleared.
func (s Stats) LiveImages() int { return s.Allocs - s.Clears }

// Library is an in-process ports.NativeLibrary.
type Library struct {
	mu        sync.Mutex
	nextID    ports.Handle
	contexts  map[ports.Handle]*decodeContext
	images    map[uintptr]*ports.ImageRecord
	nextRef   uintptr
	failures  map[string][]int
	imageType int
	cameras   []string
	stats     Stats
}

// Option configures a Library.
type Option func(*Library)

// WithCameras replaces the camera table.
func WithCameras(cameras ...string) Option {
	return func(l *Library) {
		l.cameras = cameras
	}
}

// New creates an empty simulator.
func New(opts ...Option) *Library {
	l := &Library{
		contexts: make(map[ports.Handle]*decodeContext),
		images:   make(map[uintptr]*ports.ImageRecord),
		failures: make(map[string][]int),
		cameras:  DefaultCameras,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FailNext makes the next call of op return status. For OpInit any status
// makes Init return the zero handle. Calls queue in order.
func (l *Library) FailNext(op string, status int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[op] = append(l.failures[op], status)
}

// SetImageType overrides the type code of buffers returned by the
// make_mem calls. Zero restores the real type.
func (l *Library) SetImageType(t int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.imageType = t
}

// Stats returns a snapshot of the allocation counters.
func (l *Library) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// popFailure must be called with l.mu held.
func (l *Library) popFailure(op string) (int, bool) {
	q := l.failures[op]
	if len(q) == 0 {
		return 0, false
	}
	l.failures[op] = q[1:]
	return q[0], true
}

// lookup must be called with l.mu held.
func (l *Library) lookup(h ports.Handle) (*decodeContext, bool) {
	c, ok := l.contexts[h]
	return c, ok
}

func (l *Library) Init(options uint32) ports.Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, fail := l.popFailure(OpInit); fail {
		return 0
	}
	l.nextID++
	l.contexts[l.nextID] = &decodeContext{options: options}
	l.stats.Inits++
	return l.nextID
}

func (l *Library) Close(h ports.Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.contexts[h]; !ok {
		l.stats.DoubleCloses++
		return
	}
	delete(l.contexts, h)
	l.stats.Closes++
}

func (l *Library) Recycle(h ports.Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := l.lookup(h); ok {
		c.reset()
	}
}

func (l *Library) OpenFile(h ports.Handle, path []byte) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.lookup(h)
	if !ok {
		return ports.StatusInputClosed
	}
	if st, fail := l.popFailure(OpOpenFile); fail {
		return st
	}
	if c.fixture != nil {
		return ports.StatusOutOfOrderCall
	}
	fx, status := loadFixture(cString(path))
	if status != ports.StatusSuccess {
		return status
	}
	c.fixture = fx
	return ports.StatusSuccess
}

func (l *Library) Unpack(h ports.Handle) int {
	return l.withContext(h, OpUnpack, func(c *decodeContext) int {
		if c.fixture == nil {
			return ports.StatusOutOfOrderCall
		}
		c.raw = c.fixture.synthesize()
		c.rgb = nil
		c.blackSubtracted = false
		return ports.StatusSuccess
	})
}

func (l *Library) Raw2Image(h ports.Handle) int {
	return l.withContext(h, OpRaw2Image, func(c *decodeContext) int {
		if c.fixture == nil {
			return ports.StatusOutOfOrderCall
		}
		if c.raw == nil {
			c.raw = c.fixture.synthesize()
			c.blackSubtracted = false
		}
		c.rgb = nil
		return ports.StatusSuccess
	})
}

func (l *Library) UnpackThumb(h ports.Handle) int {
	return l.withContext(h, OpUnpackThumb, func(c *decodeContext) int {
		if c.fixture == nil {
			return ports.StatusOutOfOrderCall
		}
		t, status := c.fixture.thumbnail()
		if status != ports.StatusSuccess {
			return status
		}
		c.thumb = t
		return ports.StatusSuccess
	})
}

func (l *Library) DcrawProcess(h ports.Handle) int {
	return l.withContext(h, OpDcrawProcess, func(c *decodeContext) int {
		if c.raw == nil {
			return ports.StatusOutOfOrderCall
		}
		c.rgb = c.fixture.demosaic(c.raw, c.blackSubtracted)
		return ports.StatusSuccess
	})
}

func (l *Library) SubtractBlack(h ports.Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.lookup(h)
	if !ok || c.raw == nil || c.blackSubtracted {
		return
	}
	black := c.fixture.Black
	for i, v := range c.raw {
		if v > black {
			c.raw[i] = v - black
		} else {
			c.raw[i] = 0
		}
	}
	c.blackSubtracted = true
}

func (l *Library) SetOutputTIFF(h ports.Handle, tiff bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := l.lookup(h); ok {
		c.outputTIFF = tiff
	}
}

func (l *Library) PPMTIFFWriter(h ports.Handle, path []byte) int {
	return l.withContext(h, OpPPMTIFFWriter, func(c *decodeContext) int {
		if c.rgb == nil {
			return ports.StatusOutOfOrderCall
		}
		return writeBitmap(cString(path), c.fixture.Width, c.fixture.Height, c.rgb, c.outputTIFF)
	})
}

func (l *Library) ThumbWriter(h ports.Handle, path []byte) int {
	return l.withContext(h, OpThumbWriter, func(c *decodeContext) int {
		if c.thumb == nil {
			return ports.StatusRequestForNonexistentThumb
		}
		if c.thumb.jpeg != nil {
			return writeFile(cString(path), c.thumb.jpeg)
		}
		return writeBitmap(cString(path), c.thumb.width, c.thumb.height, c.thumb.rgb, c.outputTIFF)
	})
}

func (l *Library) MakeMemImage(h ports.Handle) (*ports.ImageRecord, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.lookup(h)
	if !ok {
		return nil, ports.StatusInputClosed
	}
	if st, fail := l.popFailure(OpMakeMemImage); fail {
		return nil, st
	}
	rgb := c.rgb
	if rgb == nil {
		if c.raw == nil {
			return nil, ports.StatusOutOfOrderCall
		}
		rgb = c.fixture.demosaic(c.raw, c.blackSubtracted)
	}
	typ := ports.ImageTypeBitmap
	if c.fixture.Kind != 0 {
		typ = c.fixture.Kind
	}
	return l.alloc(typ, c.fixture.Width, c.fixture.Height, rgb), ports.StatusSuccess
}

func (l *Library) MakeMemThumb(h ports.Handle) (*ports.ImageRecord, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.lookup(h)
	if !ok {
		return nil, ports.StatusInputClosed
	}
	if st, fail := l.popFailure(OpMakeMemThumb); fail {
		return nil, st
	}
	if c.thumb == nil {
		return nil, ports.StatusRequestForNonexistentThumb
	}
	if c.thumb.jpeg != nil {
		return l.alloc(ports.ImageTypeJPEG, c.thumb.width, c.thumb.height, c.thumb.jpeg), ports.StatusSuccess
	}
	return l.alloc(ports.ImageTypeBitmap, c.thumb.width, c.thumb.height, c.thumb.rgb), ports.StatusSuccess
}

// alloc must be called with l.mu held.
func (l *Library) alloc(typ, width, height int, data []byte) *ports.ImageRecord {
	if l.imageType != 0 {
		typ = l.imageType
	}
	l.nextRef++
	rec := &ports.ImageRecord{
		Ref:    l.nextRef,
		Type:   typ,
		Width:  uint16(width),
		Height: uint16(height),
		Colors: 3,
		Bits:   8,
		Data:   append([]byte(nil), data...),
	}
	l.images[rec.Ref] = rec
	l.stats.Allocs++
	return rec
}

func (l *Library) ClearMem(ref uintptr) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.images[ref]
	if !ok {
		l.stats.DoubleClears++
		return
	}
	// Poison the buffer so a use after free shows up in tests.
	for i := range rec.Data {
		rec.Data[i] = 0xdd
	}
	delete(l.images, ref)
	l.stats.Clears++
}

func (l *Library) DecoderInfo(h ports.Handle) (ports.DecoderRecord, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.lookup(h)
	if !ok {
		return ports.DecoderRecord{}, ports.StatusInputClosed
	}
	if st, fail := l.popFailure(OpDecoderInfo); fail {
		return ports.DecoderRecord{}, st
	}
	if c.fixture == nil {
		return ports.DecoderRecord{}, ports.StatusOutOfOrderCall
	}
	return ports.DecoderRecord{
		Name:  append([]byte(decoderName), 0),
		Flags: decoderFlags,
	}, ports.StatusSuccess
}

func (l *Library) StrError(code int) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return "Unknown error code"
}

func (l *Library) Version() string      { return version }
func (l *Library) VersionNumber() int   { return versionNumber }
func (l *Library) Capabilities() uint32 { return capabilities }

func (l *Library) CameraAt(i int) ([]byte, bool) {
	if i < 0 || i >= len(l.cameras) {
		return nil, false
	}
	return []byte(l.cameras[i]), true
}

func (l *Library) CameraCount() int {
	return len(l.cameras)
}

// withContext runs fn on the context of h after consulting injected failures.
func (l *Library) withContext(h ports.Handle, op string, fn func(c *decodeContext) int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.lookup(h)
	if !ok {
		return ports.StatusInputClosed
	}
	if st, fail := l.popFailure(op); fail {
		return st
	}
	return fn(c)
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

var _ ports.NativeLibrary = (*Library)(nil)
