package ggrenderer

import (
	"image"
	"image/color"
	"testing"

	"github.com/user/rawkit/pkg/ports"
)

func gradient(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / width), G: uint8(y * 255 / height), B: 128, A: 255})
		}
	}
	return img
}

func TestRenderer_CreateCanvas(t *testing.T) {
	r := New()

	canvas := r.CreateCanvas(100, 60, color.White)
	img := canvas.ToImage()
	bounds := img.Bounds()

	if bounds.Dx() != 100 || bounds.Dy() != 60 {
		t.Errorf("expected 100x60, got %dx%d", bounds.Dx(), bounds.Dy())
	}
	if r, g, b, _ := img.At(50, 30).RGBA(); r != 0xffff || g != 0xffff || b != 0xffff {
		t.Error("expected white background")
	}
}

func TestRenderer_EncodeDecode(t *testing.T) {
	tests := []struct {
		name   string
		format ports.ImageFormat
	}{
		{"jpeg", ports.FormatJPEG},
		{"png", ports.FormatPNG},
		{"tiff", ports.FormatTIFF},
	}

	r := New()
	src := gradient(48, 32)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := r.EncodeImage(src, tt.format, 85)
			if err != nil {
				t.Fatalf("EncodeImage failed: %v", err)
			}
			if len(data) == 0 {
				t.Fatal("expected non-empty data")
			}

			decoded, err := r.DecodeImage(data, tt.format)
			if err != nil {
				t.Fatalf("DecodeImage failed: %v", err)
			}
			if b := decoded.Bounds(); b.Dx() != 48 || b.Dy() != 32 {
				t.Errorf("expected 48x32, got %dx%d", b.Dx(), b.Dy())
			}
		})
	}
}

func TestRenderer_DecodeAutoDetect(t *testing.T) {
	r := New()
	data, err := r.EncodeImage(gradient(10, 10), ports.FormatPNG, 0)
	if err != nil {
		t.Fatal(err)
	}
	img, err := r.DecodeImage(data, ports.ImageFormat(99))
	if err != nil {
		t.Fatalf("DecodeImage failed: %v", err)
	}
	if img.Bounds().Dx() != 10 {
		t.Errorf("expected width 10, got %d", img.Bounds().Dx())
	}
}

func TestRenderer_EncodeUnsupported(t *testing.T) {
	if _, err := New().EncodeImage(gradient(4, 4), ports.ImageFormat(99), 0); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestRenderer_ResizeImage(t *testing.T) {
	r := New()

	resized := r.ResizeImage(gradient(120, 80), 60, 40)

	bounds := resized.Bounds()
	if bounds.Dx() != 60 || bounds.Dy() != 40 {
		t.Errorf("expected 60x40, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestCanvas_DrawRect(t *testing.T) {
	canvas := New().CreateCanvas(100, 100, color.White)
	canvas.DrawRect(10, 10, 30, 30, color.RGBA{R: 255, A: 255})

	red, green, _, _ := canvas.ToImage().At(20, 20).RGBA()
	if red == 0 || green != 0 {
		t.Error("expected red pixel inside rectangle")
	}
}

func TestCanvas_DrawRectStroke(t *testing.T) {
	canvas := New().CreateCanvas(100, 100, color.White)
	canvas.DrawRectStroke(10, 10, 30, 30, color.Black, 2)

	img := canvas.ToImage()
	if r, _, _, _ := img.At(10, 20).RGBA(); r == 0xffff {
		t.Error("expected dark pixel on border")
	}
	if r, _, _, _ := img.At(25, 25).RGBA(); r != 0xffff {
		t.Error("expected untouched pixel inside outline")
	}
}

func TestCanvas_DrawImage(t *testing.T) {
	canvas := New().CreateCanvas(100, 100, color.White)

	small := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for i := 0; i < len(small.Pix); i += 4 {
		small.Pix[i] = 255
		small.Pix[i+3] = 255
	}
	canvas.DrawImage(small, 10, 10)

	_, g, _, _ := canvas.ToImage().At(15, 15).RGBA()
	if g != 0 {
		t.Error("expected red pixel from drawn image")
	}
}

func TestCanvas_Text(t *testing.T) {
	canvas := New().CreateCanvas(200, 50, color.White)
	style := ports.TextStyle{
		FontSize: 14,
		FontPath: "/nonexistent/font.ttf",
		Color:    color.Black,
	}

	short, h := canvas.MeasureText("Hi", style)
	long, _ := canvas.MeasureText("Hello World", style)
	if short <= 0 || h <= 0 {
		t.Errorf("expected positive size, got %vx%v", short, h)
	}
	if long <= short {
		t.Errorf("expected longer text to be wider: %v <= %v", long, short)
	}

	canvas.DrawText("Hello World", 10, 25, style)
	style.Align = ports.AlignRight
	canvas.DrawText("right", 190, 25, style)
}
