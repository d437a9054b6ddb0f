//go:build cgo && libraw

package libraw

/*
#cgo pkg-config: libraw_r
#include <stdlib.h>
#include <string.h>
#include <libraw/libraw.h>

static void rawkit_set_output_tiff(libraw_data_t *d, int v) {
    d->params.output_tiff = v;
}

static const char *rawkit_camera_at(int i) {
    return libraw_cameraList()[i];
}
*/
import "C"

import (
	"sync"
	"unsafe"

	"github.com/user/rawkit/pkg/ports"
)

// Available reports whether the native binding was compiled in.
func Available() bool {
	return true
}

// New returns the cgo binding.
func New() (ports.NativeLibrary, error) {
	return &library{
		contexts: make(map[ports.Handle]*C.libraw_data_t),
		images:   make(map[uintptr]*C.libraw_processed_image_t),
	}, nil
}

// library maps opaque handles to C pointers so no C address crosses into
// Go integers.
type library struct {
	mu       sync.Mutex
	nextID   ports.Handle
	contexts map[ports.Handle]*C.libraw_data_t
	nextRef  uintptr
	images   map[uintptr]*C.libraw_processed_image_t
}

func (l *library) data(h ports.Handle) *C.libraw_data_t {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.contexts[h]
}

func cpath(path []byte) *C.char {
	return (*C.char)(unsafe.Pointer(&path[0]))
}

func (l *library) Init(options uint32) ports.Handle {
	d := C.libraw_init(C.uint(options))
	if d == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	l.contexts[l.nextID] = d
	return l.nextID
}

func (l *library) Close(h ports.Handle) {
	l.mu.Lock()
	d, ok := l.contexts[h]
	delete(l.contexts, h)
	l.mu.Unlock()
	if ok {
		C.libraw_close(d)
	}
}

func (l *library) Recycle(h ports.Handle) {
	if d := l.data(h); d != nil {
		C.libraw_recycle(d)
	}
}

func (l *library) call(h ports.Handle, fn func(d *C.libraw_data_t) C.int) int {
	d := l.data(h)
	if d == nil {
		return ports.StatusInputClosed
	}
	return int(fn(d))
}

func (l *library) OpenFile(h ports.Handle, path []byte) int {
	return l.call(h, func(d *C.libraw_data_t) C.int { return C.libraw_open_file(d, cpath(path)) })
}

func (l *library) Unpack(h ports.Handle) int {
	return l.call(h, func(d *C.libraw_data_t) C.int { return C.libraw_unpack(d) })
}

func (l *library) Raw2Image(h ports.Handle) int {
	return l.call(h, func(d *C.libraw_data_t) C.int { return C.libraw_raw2image(d) })
}

func (l *library) UnpackThumb(h ports.Handle) int {
	return l.call(h, func(d *C.libraw_data_t) C.int { return C.libraw_unpack_thumb(d) })
}

func (l *library) DcrawProcess(h ports.Handle) int {
	return l.call(h, func(d *C.libraw_data_t) C.int { return C.libraw_dcraw_process(d) })
}

func (l *library) SubtractBlack(h ports.Handle) {
	if d := l.data(h); d != nil {
		C.libraw_subtract_black(d)
	}
}

func (l *library) SetOutputTIFF(h ports.Handle, tiff bool) {
	if d := l.data(h); d != nil {
		v := C.int(0)
		if tiff {
			v = 1
		}
		C.rawkit_set_output_tiff(d, v)
	}
}

func (l *library) PPMTIFFWriter(h ports.Handle, path []byte) int {
	return l.call(h, func(d *C.libraw_data_t) C.int { return C.libraw_dcraw_ppm_tiff_writer(d, cpath(path)) })
}

func (l *library) ThumbWriter(h ports.Handle, path []byte) int {
	return l.call(h, func(d *C.libraw_data_t) C.int { return C.libraw_dcraw_thumb_writer(d, cpath(path)) })
}

func (l *library) MakeMemImage(h ports.Handle) (*ports.ImageRecord, int) {
	d := l.data(h)
	if d == nil {
		return nil, ports.StatusInputClosed
	}
	var errc C.int
	img := C.libraw_dcraw_make_mem_image(d, &errc)
	return l.record(img), int(errc)
}

func (l *library) MakeMemThumb(h ports.Handle) (*ports.ImageRecord, int) {
	d := l.data(h)
	if d == nil {
		return nil, ports.StatusInputClosed
	}
	var errc C.int
	img := C.libraw_dcraw_make_mem_thumb(d, &errc)
	return l.record(img), int(errc)
}

func (l *library) record(img *C.libraw_processed_image_t) *ports.ImageRecord {
	if img == nil {
		return nil
	}
	l.mu.Lock()
	l.nextRef++
	ref := l.nextRef
	l.images[ref] = img
	l.mu.Unlock()

	return &ports.ImageRecord{
		Ref:    ref,
		Type:   int(img._type),
		Height: uint16(img.height),
		Width:  uint16(img.width),
		Colors: uint16(img.colors),
		Bits:   uint16(img.bits),
		Data:   unsafe.Slice((*byte)(unsafe.Pointer(&img.data[0])), int(img.data_size)),
	}
}

func (l *library) ClearMem(ref uintptr) {
	l.mu.Lock()
	img, ok := l.images[ref]
	delete(l.images, ref)
	l.mu.Unlock()
	if ok {
		C.libraw_dcraw_clear_mem(img)
	}
}

func (l *library) DecoderInfo(h ports.Handle) (ports.DecoderRecord, int) {
	d := l.data(h)
	if d == nil {
		return ports.DecoderRecord{}, ports.StatusInputClosed
	}
	var info C.libraw_decoder_info_t
	status := int(C.libraw_get_decoder_info(d, &info))
	if status != ports.StatusSuccess {
		return ports.DecoderRecord{}, status
	}
	var name []byte
	if info.decoder_name != nil {
		n := C.strlen(info.decoder_name)
		name = C.GoBytes(unsafe.Pointer(info.decoder_name), C.int(n+1))
	}
	return ports.DecoderRecord{Name: name, Flags: uint32(info.decoder_flags)}, status
}

func (l *library) StrError(code int) string {
	return C.GoString(C.libraw_strerror(C.int(code)))
}

func (l *library) Version() string {
	return C.GoString(C.libraw_version())
}

func (l *library) VersionNumber() int {
	return int(C.libraw_versionNumber())
}

func (l *library) Capabilities() uint32 {
	return uint32(C.libraw_capabilities())
}

func (l *library) CameraAt(i int) ([]byte, bool) {
	p := C.rawkit_camera_at(C.int(i))
	if p == nil {
		return nil, false
	}
	return C.GoBytes(unsafe.Pointer(p), C.int(C.strlen(p))), true
}

func (l *library) CameraCount() int {
	return int(C.libraw_cameraCount())
}
