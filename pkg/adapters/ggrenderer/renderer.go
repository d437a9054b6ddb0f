// Package ggrenderer implements ports.Renderer with the gg drawing library
// and the x/image codecs.
package ggrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"github.com/user/rawkit/pkg/ports"
)

// Renderer implements ports.Renderer using the gg library.
type Renderer struct{}

// New creates a new Renderer.
func New() *Renderer {
	return &Renderer{}
}

// CreateCanvas creates a new drawing canvas.
func (r *Renderer) CreateCanvas(width, height int, bg color.Color) ports.Canvas {
	dc := gg.NewContext(width, height)
	dc.SetColor(bg)
	dc.Clear()
	return &Canvas{dc: dc}
}

// DecodeImage decodes image data into an image.Image.
func (r *Renderer) DecodeImage(data []byte, format ports.ImageFormat) (image.Image, error) {
	reader := bytes.NewReader(data)

	switch format {
	case ports.FormatJPEG:
		return jpeg.Decode(reader)
	case ports.FormatPNG:
		return png.Decode(reader)
	case ports.FormatTIFF:
		return tiff.Decode(reader)
	default:
		img, _, err := image.Decode(reader)
		return img, err
	}
}

// EncodeImage encodes an image to the specified format.
func (r *Renderer) EncodeImage(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case ports.FormatJPEG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encode JPEG: %w", err)
		}
	case ports.FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode PNG: %w", err)
		}
	case ports.FormatTIFF:
		if err := tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true}); err != nil {
			return nil, fmt.Errorf("encode TIFF: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %d", format)
	}

	return buf.Bytes(), nil
}

// ResizeImage resizes an image to the specified dimensions.
func (r *Renderer) ResizeImage(img image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

var _ ports.Renderer = (*Renderer)(nil)

// Canvas implements ports.Canvas using gg.Context.
type Canvas struct {
	dc *gg.Context
}

// DrawImage draws an image at the specified position.
func (c *Canvas) DrawImage(img image.Image, x, y int) {
	c.dc.DrawImage(img, x, y)
}

// DrawRect draws a filled rectangle.
func (c *Canvas) DrawRect(x, y, w, h int, col color.Color) {
	c.dc.SetColor(col)
	c.dc.DrawRectangle(float64(x), float64(y), float64(w), float64(h))
	c.dc.Fill()
}

// DrawRectStroke draws a rectangle outline.
func (c *Canvas) DrawRectStroke(x, y, w, h int, col color.Color, strokeWidth float64) {
	c.dc.SetColor(col)
	c.dc.SetLineWidth(strokeWidth)
	c.dc.DrawRectangle(float64(x), float64(y), float64(w), float64(h))
	c.dc.Stroke()
}

// DrawText draws text at the specified position.
func (c *Canvas) DrawText(text string, x, y int, style ports.TextStyle) {
	c.applyFont(style)
	c.dc.SetColor(style.Color)

	ax := 0.0
	switch style.Align {
	case ports.AlignCenter:
		ax = 0.5
	case ports.AlignRight:
		ax = 1.0
	}

	c.dc.DrawStringAnchored(text, float64(x), float64(y), ax, 0.5)
}

// MeasureText returns the rendered size of text.
func (c *Canvas) MeasureText(text string, style ports.TextStyle) (float64, float64) {
	c.applyFont(style)
	return c.dc.MeasureString(text)
}

// applyFont loads the style's font face. A font that fails to load leaves
// the current face in place.
func (c *Canvas) applyFont(style ports.TextStyle) {
	if style.FontPath == "" {
		return
	}
	_ = c.dc.LoadFontFace(style.FontPath, style.FontSize)
}

// ToImage returns the canvas as an image.Image.
func (c *Canvas) ToImage() image.Image {
	return c.dc.Image()
}

var _ ports.Canvas = (*Canvas)(nil)
