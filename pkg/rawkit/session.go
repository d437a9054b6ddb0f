package rawkit

import (
	"fmt"
	"runtime"

	"github.com/user/rawkit/pkg/metrics"
	"github.com/user/rawkit/pkg/ports"
	"github.com/user/rawkit/pkg/rawerr"
)

// Session is one open native decoding context. Its type arguments record
// the pipeline position: S is the load stage, I the image sub-pipeline and
// T the thumbnail sub-pipeline. Operations are package functions whose
// parameter types only admit sessions in a state where the native library
// accepts the call, so an out-of-order sequence does not compile.
//
// Transitions consume their input: the argument becomes unusable (every
// further call on it returns a WrapperError) and the returned session owns
// the native context. When a transition fails the context is released and
// only the error is returned.
//
// A Session must not be used from more than one goroutine at a time.
type Session[S Stage, I ImageStage, T ThumbStage] struct {
	h *handle
}

// handle owns the native context across the chain of session values.
type handle struct {
	id       string
	lib      *Library
	native   ports.Handle
	released bool
	cleanup  runtime.Cleanup
}

// nativeRef is what the cleanup backstop needs to release a context
// without keeping the handle reachable.
type nativeRef struct {
	lib    ports.NativeLibrary
	native ports.Handle
	id     string
	log    ports.Logger
}

func closeNative(ref nativeRef) {
	ref.lib.Close(ref.native)
	metrics.RecordSessionReleased(metrics.ViaCleanup)
	ref.log.Warn("Session %s released by cleanup, Close was not called", ref.id)
}

func (h *handle) release() {
	if h.released {
		return
	}
	h.released = true
	h.cleanup.Stop()
	h.lib.native.Close(h.native)
	metrics.RecordSessionReleased(metrics.ViaClose)
	h.lib.log.Debug("Session %s released", h.id)
}

// check classifies a native status and records it.
func (h *handle) check(op, site string, status int) error {
	err := rawerr.FromStatus(status, h.lib.native)
	if err != nil {
		metrics.RecordNativeCall(op, resultLabel(err))
		h.lib.log.Debug("Session %s: %s failed: %v", h.id, op, err)
		return rawerr.At(err, site)
	}
	metrics.RecordNativeCall(op, "success")
	h.lib.log.Debug("Session %s: %s", h.id, op)
	return nil
}

func resultLabel(err error) string {
	switch rawerr.KindOf(err) {
	case rawerr.KindLibrary:
		return "library_error"
	case rawerr.KindSystemCall:
		return "system_error"
	default:
		return "wrapper_error"
	}
}

// ID returns the session identifier used in logs.
func (s *Session[S, I, T]) ID() string {
	if s.Consumed() {
		return ""
	}
	return s.h.id
}

// Consumed reports whether this value has been moved into another session,
// failed, or been closed.
func (s *Session[S, I, T]) Consumed() bool {
	return s == nil || s.h == nil
}

// Close releases the native context. It is a no-op on a consumed session.
func (s *Session[S, I, T]) Close() {
	if s.Consumed() {
		return
	}
	h := s.h
	s.h = nil
	h.release()
}

// Recycle frees the loaded file's buffers and returns the context in its
// initial state, ready for another Load.
func (s *Session[S, I, T]) Recycle() (*Fresh, error) {
	h, err := s.take("recycle()")
	if err != nil {
		return nil, err
	}
	h.lib.native.Recycle(h.native)
	metrics.RecordNativeCall("recycle", "success")
	h.lib.log.Debug("Session %s recycled", h.id)
	return &Fresh{h: h}, nil
}

// take moves the handle out of s.
func (s *Session[S, I, T]) take(site string) (*handle, error) {
	if s.Consumed() {
		return nil, errConsumed.At(site)
	}
	h := s.h
	s.h = nil
	return h, nil
}

// borrow returns the handle without consuming s.
func (s *Session[S, I, T]) borrow(site string) (*handle, error) {
	if s.Consumed() {
		return nil, errConsumed.At(site)
	}
	return s.h, nil
}

var errConsumed = rawerr.Wrapper("session already consumed")

// advance finishes a transition: on success h moves into a session of the
// target state, on failure it is released.
func advance[S Stage, I ImageStage, T ThumbStage](h *handle, op, site string, status int) (*Session[S, I, T], error) {
	if err := h.check(op, site, status); err != nil {
		h.release()
		return nil, err
	}
	return &Session[S, I, T]{h: h}, nil
}

// Load opens the RAW file at path and parses its headers.
func Load(s *Fresh, path string) (*Session[Loaded, Unknown, Unknown], error) {
	site := fmt.Sprintf("load_image_from_path(%s)", path)
	h, err := s.take(site)
	if err != nil {
		return nil, err
	}
	cpath, err := encodePath(path)
	if err != nil {
		h.release()
		return nil, rawerr.Wrapper("Failed to convert %q to a C string: %v", path, err).At("load_image_from_path()")
	}
	return advance[Loaded, Unknown, Unknown](h, "open_file", site, h.lib.native.OpenFile(h.native, cpath))
}

// Unpack decodes the sensor data into the context's raw buffer.
func Unpack[I ImageStage, T ThumbStage](s *Session[Loaded, I, T]) (*Session[Loaded, Unpacked, T], error) {
	h, err := s.take("unpack()")
	if err != nil {
		return nil, err
	}
	return advance[Loaded, Unpacked, T](h, "unpack", "unpack()", h.lib.native.Unpack(h.native))
}

// Raw2Image builds the addressable raw image without a full unpack.
func Raw2Image[I ImageStage, T ThumbStage](s *Session[Loaded, I, T]) (*Session[Loaded, Unpacked, T], error) {
	h, err := s.take("raw2image()")
	if err != nil {
		return nil, err
	}
	return advance[Loaded, Unpacked, T](h, "raw2image", "raw2image()", h.lib.native.Raw2Image(h.native))
}

// UnpackThumb decodes the embedded thumbnail. The image sub-pipeline is
// left where it was.
func UnpackThumb[I ImageStage, T ThumbStage](s *Session[Loaded, I, T]) (*Session[Loaded, I, Unpacked], error) {
	h, err := s.take("unpack_thumb()")
	if err != nil {
		return nil, err
	}
	return advance[Loaded, I, Unpacked](h, "unpack_thumb", "unpack_thumb()", h.lib.native.UnpackThumb(h.native))
}

// Process demosaics and colour corrects the unpacked image.
func Process[T ThumbStage](s *Session[Loaded, Unpacked, T]) (*Session[Loaded, Processed, T], error) {
	h, err := s.take("dcraw_process()")
	if err != nil {
		return nil, err
	}
	return advance[Loaded, Processed, T](h, "dcraw_process", "dcraw_process()", h.lib.native.DcrawProcess(h.native))
}

// WriteImage writes the processed image to path as TIFF or PPM.
func WriteImage[T ThumbStage](s *Session[Loaded, Processed, T], path string, tiff bool) (*Session[Loaded, Processed, T], error) {
	site := fmt.Sprintf("write_image(%s)", path)
	h, err := s.take(site)
	if err != nil {
		return nil, err
	}
	cpath, err := encodePath(path)
	if err != nil {
		h.release()
		return nil, rawerr.Wrapper("Failed to convert %q to a C string: %v", path, err).At("write_image()")
	}
	h.lib.native.SetOutputTIFF(h.native, tiff)
	return advance[Loaded, Processed, T](h, "ppm_tiff_writer", site, h.lib.native.PPMTIFFWriter(h.native, cpath))
}

// SubtractBlack subtracts the black level from the unpacked raw data in
// place. The stage does not change.
func SubtractBlack[T ThumbStage](s *Session[Loaded, Unpacked, T]) error {
	h, err := s.borrow("subtract_black()")
	if err != nil {
		return err
	}
	h.lib.native.SubtractBlack(h.native)
	metrics.RecordNativeCall("subtract_black", "success")
	h.lib.log.Debug("Session %s: %s", h.id, "subtract_black")
	return nil
}

// GetDecoderInfo describes the decoder selected for the loaded file.
func GetDecoderInfo[I ImageStage, T ThumbStage](s *Session[Loaded, I, T]) (DecoderInfo, error) {
	h, err := s.borrow("get_decoder_info()")
	if err != nil {
		return DecoderInfo{}, err
	}
	rec, status := h.lib.native.DecoderInfo(h.native)
	if err := h.check("decoder_info", "get_decoder_info()", status); err != nil {
		return DecoderInfo{}, err
	}
	return decoderInfoFromRecord(rec), nil
}

// WriteThumbnail writes the unpacked thumbnail to path. For bitmap
// thumbnails tiff selects the container; JPEG thumbnails are written as is.
func WriteThumbnail[I ImageStage, T ThumbReady](s *Session[Loaded, I, T], path string, tiff bool) error {
	site := fmt.Sprintf("write_thumbnail(%s)", path)
	h, err := s.borrow(site)
	if err != nil {
		return err
	}
	cpath, err := encodePath(path)
	if err != nil {
		return rawerr.Wrapper("Failed to convert %q to a C string: %v", path, err).At("write_thumbnail()")
	}
	h.lib.native.SetOutputTIFF(h.native, tiff)
	return h.check("thumb_writer", site, h.lib.native.ThumbWriter(h.native, cpath))
}

// MakeMemThumb copies the unpacked thumbnail into a new buffer.
func MakeMemThumb[I ImageStage, T ThumbReady](s *Session[Loaded, I, T]) (*ProcessedImage, error) {
	h, err := s.borrow("make_mem_thumb()")
	if err != nil {
		return nil, err
	}
	rec, status := h.lib.native.MakeMemThumb(h.native)
	metrics.RecordNativeCall("make_mem_thumb", statusLabel(status))
	return newProcessedImage(h.lib, rec, status, "make_mem_thumb()")
}

// MakeMemImage copies the unpacked or processed image into a new buffer.
func MakeMemImage[I UnpackedOrProcessed, T ThumbStage](s *Session[Loaded, I, T]) (*ProcessedImage, error) {
	h, err := s.borrow("make_mem_image()")
	if err != nil {
		return nil, err
	}
	rec, status := h.lib.native.MakeMemImage(h.native)
	metrics.RecordNativeCall("make_mem_image", statusLabel(status))
	return newProcessedImage(h.lib, rec, status, "make_mem_image()")
}

func statusLabel(status int) string {
	switch {
	case status == ports.StatusSuccess:
		return "success"
	case status < 0:
		return "library_error"
	default:
		return "system_error"
	}
}
