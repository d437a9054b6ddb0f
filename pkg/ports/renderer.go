package ports

import (
	"image"
	"image/color"
)

// Renderer abstracts image encoding and drawing for exported images and
// preview cards.
type Renderer interface {
	// CreateCanvas creates a new drawing canvas with the specified dimensions and background color.
	CreateCanvas(width, height int, bg color.Color) Canvas

	// DecodeImage decodes image data into an image.Image.
	DecodeImage(data []byte, format ImageFormat) (image.Image, error)

	// EncodeImage encodes an image to the specified format. quality only
	// applies to JPEG.
	EncodeImage(img image.Image, format ImageFormat, quality int) ([]byte, error)

	// ResizeImage resizes an image to the specified dimensions.
	ResizeImage(img image.Image, width, height int) image.Image
}

// Canvas provides drawing operations for composing a preview card.
type Canvas interface {
	// DrawImage draws an image at the specified position.
	DrawImage(img image.Image, x, y int)

	// DrawRect draws a filled rectangle.
	DrawRect(x, y, w, h int, c color.Color)

	// DrawRectStroke draws a rectangle outline.
	DrawRectStroke(x, y, w, h int, c color.Color, strokeWidth float64)

	// DrawText draws text vertically centred on y.
	DrawText(text string, x, y int, style TextStyle)

	// MeasureText returns the width and height of the text.
	MeasureText(text string, style TextStyle) (width, height float64)

	// ToImage returns the canvas as an image.Image.
	ToImage() image.Image
}

// TextStyle defines text rendering properties. FontSize only applies when
// FontPath names a TrueType font; otherwise the built-in face is used.
type TextStyle struct {
	FontSize float64
	FontPath string
	Color    color.Color
	Align    TextAlign
}

// TextAlign specifies text alignment.
type TextAlign int

const (
	AlignLeft TextAlign = iota
	AlignCenter
	AlignRight
)

// ImageFormat specifies image encoding format.
type ImageFormat int

const (
	FormatJPEG ImageFormat = iota
	FormatPNG
	FormatTIFF
)
