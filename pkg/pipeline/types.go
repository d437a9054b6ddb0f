package pipeline

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/user/rawkit/pkg/rawkit"
)

// OutputFormat is the container of an exported image.
type OutputFormat string

const (
	// FormatPPM and FormatTIFF are written by the native library.
	FormatPPM  OutputFormat = "ppm"
	FormatTIFF OutputFormat = "tiff"
	// FormatPNG and FormatJPEG are encoded from the in-memory bitmap.
	FormatPNG  OutputFormat = "png"
	FormatJPEG OutputFormat = "jpeg"
)

// ParseOutputFormat parses a format name. "tif" and "jpg" are accepted.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(s) {
	case "ppm":
		return FormatPPM, nil
	case "tiff", "tif":
		return FormatTIFF, nil
	case "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// Native reports whether the format is written by the native library.
func (f OutputFormat) Native() bool {
	return f == FormatPPM || f == FormatTIFF
}

// Ext returns the file extension without the dot.
func (f OutputFormat) Ext() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

// =============================================================================
// Decode Stage Types
// =============================================================================

// DecodeInput selects the native steps run on one RAW file.
type DecodeInput struct {
	Path string

	// Raw2Image builds the raw image with raw2image instead of unpack.
	Raw2Image bool

	// SubtractBlack removes the black level before processing.
	SubtractBlack bool

	// Thumbnail extracts the embedded thumbnail as well.
	Thumbnail bool

	// NativeOutput, when set, is where the native writer stores the
	// processed image; NativeTIFF selects TIFF over PPM.
	NativeOutput string
	NativeTIFF   bool
}

// DecodeResult holds everything extracted from one file. Images are
// detached copies; no native memory outlives the stage.
type DecodeResult struct {
	Path    string
	Decoder rawkit.DecoderInfo

	// Image is the processed bitmap.
	Image image.Image

	// Thumbnail is the embedded preview, nil when absent or not requested.
	Thumbnail     image.Image
	ThumbnailKind rawkit.ImageKind

	// NativeOutput is the file written by the native writer, if any.
	NativeOutput string
}

// =============================================================================
// Export Stage Types
// =============================================================================

// ExportInput asks for an image to be encoded and written.
type ExportInput struct {
	Image      image.Image
	OutputPath string
	Format     OutputFormat
	Quality    int
}

// ExportResult describes the written file.
type ExportResult struct {
	Path  string
	Bytes int
}

// =============================================================================
// Preview Stage Types
// =============================================================================

// PreviewTheme holds the contact card colours.
type PreviewTheme struct {
	Background color.Color
	Text       color.Color
	Border     color.Color
}

// DefaultPreviewTheme returns the dark theme used by default.
func DefaultPreviewTheme() PreviewTheme {
	return PreviewTheme{
		Background: color.RGBA{R: 0x1a, G: 0x1a, B: 0x2e, A: 0xff},
		Text:       color.White,
		Border:     color.RGBA{R: 0x4a, G: 0xde, B: 0x80, A: 0xff},
	}
}

// PreviewInput describes a contact card: the image scaled to Width, the
// thumbnail inset in its corner and a caption strip below.
type PreviewInput struct {
	Image      image.Image
	Thumbnail  image.Image
	Caption    []string
	Width      int
	Theme      PreviewTheme
	OutputPath string
}

// PreviewResult describes the written card.
type PreviewResult struct {
	Path   string
	Width  int
	Height int
}
