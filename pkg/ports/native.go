package ports

// Handle identifies one open native decoding context.
// The zero Handle is never returned for a live context.
type Handle uintptr

// Status codes returned by the native library. Zero is success, negative
// values are library errors and positive values are OS errno values.
const (
	StatusSuccess                    = 0
	StatusUnspecifiedError           = -1
	StatusFileUnsupported            = -2
	StatusRequestForNonexistentImage = -3
	StatusOutOfOrderCall             = -4
	StatusNoThumbnail                = -5
	StatusUnsupportedThumbnail       = -6
	StatusInputClosed                = -7
	StatusNotImplemented             = -8
	StatusRequestForNonexistentThumb = -9
	StatusInsufficientMemory         = -100007
	StatusDataError                  = -100008
	StatusIOError                    = -100009
	StatusCancelledByCallback        = -100010
	StatusBadCrop                    = -100011
	StatusTooBig                     = -100012
	StatusMempoolOverflow            = -100013
)

// Codes below this value leave the context unusable until Recycle.
const fatalStatusThreshold = -100000

// IsFatalStatus reports whether code is one of the library's fatal codes.
func IsFatalStatus(code int) bool {
	return code < fatalStatusThreshold
}

// Init options.
const (
	InitDefault           uint32 = 0
	InitNoDataErrCallback uint32 = 1 << 1
)

// Image type codes of ImageRecord.Type.
const (
	ImageTypeJPEG   = 1
	ImageTypeBitmap = 2
)

// ImageRecord describes a buffer allocated by MakeMemImage or MakeMemThumb.
// Data aliases native memory and is only valid until ClearMem(Ref).
type ImageRecord struct {
	Ref    uintptr
	Type   int
	Height uint16
	Width  uint16
	Colors uint16
	Bits   uint16
	Data   []byte
}

// DecoderRecord is the native decoder info structure. Name is the bytes of
// a C string and may carry its NUL terminator.
type DecoderRecord struct {
	Name  []byte
	Flags uint32
}

// NativeLibrary abstracts the RAW decoding library.
// Every fallible call reports an integer status; no call panics.
type NativeLibrary interface {
	// Init allocates a new decoding context. It returns 0 on failure.
	Init(options uint32) Handle

	// Close releases a context allocated by Init.
	Close(h Handle)

	// Recycle frees per-file buffers so the context can load another file.
	Recycle(h Handle)

	// OpenFile opens and parses the headers of the file at path.
	// path is NUL-terminated.
	OpenFile(h Handle, path []byte) int

	// Unpack decodes sensor data into the internal raw buffer.
	Unpack(h Handle) int

	// Raw2Image builds the addressable raw image without full processing.
	Raw2Image(h Handle) int

	// UnpackThumb decodes the embedded thumbnail.
	UnpackThumb(h Handle) int

	// DcrawProcess runs demosaicing and the colour pipeline.
	DcrawProcess(h Handle) int

	// SubtractBlack subtracts the black level from the raw image in place.
	SubtractBlack(h Handle)

	// SetOutputTIFF selects TIFF (true) or PPM (false) output for the writers.
	SetOutputTIFF(h Handle, tiff bool)

	// PPMTIFFWriter writes the processed image to path.
	PPMTIFFWriter(h Handle, path []byte) int

	// ThumbWriter writes the unpacked thumbnail to path.
	ThumbWriter(h Handle, path []byte) int

	// MakeMemImage copies the processed image into a new native buffer.
	MakeMemImage(h Handle) (*ImageRecord, int)

	// MakeMemThumb copies the unpacked thumbnail into a new native buffer.
	MakeMemThumb(h Handle) (*ImageRecord, int)

	// ClearMem frees a buffer returned by MakeMemImage or MakeMemThumb.
	ClearMem(ref uintptr)

	// DecoderInfo describes the decoder selected for the loaded file.
	DecoderInfo(h Handle) (DecoderRecord, int)

	// StrError returns the library's message for a negative status.
	StrError(code int) string

	// Version returns the library version string.
	Version() string

	// VersionNumber returns the numeric library version.
	VersionNumber() int

	// Capabilities returns the build capability flags.
	Capabilities() uint32

	// CameraAt returns the i-th entry of the supported camera table.
	// ok is false once the table's terminating sentinel is reached.
	CameraAt(i int) (name []byte, ok bool)

	// CameraCount returns the number of supported cameras.
	CameraCount() int
}
