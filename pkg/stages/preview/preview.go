// Package preview implements the contact card stage: a downscaled copy of
// the processed image with the thumbnail inset and a caption strip.
package preview

import (
	"context"
	"fmt"
	"image"

	"github.com/user/rawkit/pkg/pipeline"
	"github.com/user/rawkit/pkg/ports"
)

const (
	defaultWidth = 480
	padding      = 8
	lineHeight   = 18
	ellipsis     = "..."
)

// Stage renders contact cards.
type Stage struct {
	renderer ports.Renderer
	fs       ports.FileSystem
	logger   ports.Logger
}

// NewStage creates a new preview stage.
func NewStage(renderer ports.Renderer, fs ports.FileSystem, logger ports.Logger) *Stage {
	return &Stage{
		renderer: renderer,
		fs:       fs,
		logger:   logger.WithComponent("preview"),
	}
}

// Execute renders the card and writes it as PNG.
func (s *Stage) Execute(ctx context.Context, input pipeline.PreviewInput) (pipeline.PreviewResult, error) {
	result := pipeline.PreviewResult{Path: input.OutputPath}

	if input.Image == nil {
		return result, fmt.Errorf("no image to preview")
	}
	width := input.Width
	if width <= 0 {
		width = defaultWidth
	}
	theme := input.Theme
	if theme.Background == nil || theme.Text == nil || theme.Border == nil {
		theme = pipeline.DefaultPreviewTheme()
	}

	imageHeight := scaledHeight(input.Image.Bounds(), width)
	height := imageHeight
	if len(input.Caption) > 0 {
		height += len(input.Caption)*lineHeight + 2*padding
	}

	canvas := s.renderer.CreateCanvas(width, height, theme.Background)
	canvas.DrawImage(s.renderer.ResizeImage(input.Image, width, imageHeight), 0, 0)

	if input.Thumbnail != nil {
		tw := width / 4
		th := scaledHeight(input.Thumbnail.Bounds(), tw)
		x := width - tw - padding
		canvas.DrawImage(s.renderer.ResizeImage(input.Thumbnail, tw, th), x, padding)
		canvas.DrawRectStroke(x, padding, tw, th, theme.Border, 2)
	}

	style := ports.TextStyle{Color: theme.Text, Align: ports.AlignLeft}
	for i, line := range input.Caption {
		line = fit(canvas, line, float64(width-2*padding), style)
		y := imageHeight + padding + i*lineHeight + lineHeight/2
		canvas.DrawText(line, padding, y, style)
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	data, err := s.renderer.EncodeImage(canvas.ToImage(), ports.FormatPNG, 0)
	if err != nil {
		return result, fmt.Errorf("encode preview: %w", err)
	}
	if err := s.fs.WriteFile(input.OutputPath, data); err != nil {
		return result, fmt.Errorf("write %s: %w", input.OutputPath, err)
	}

	result.Width = width
	result.Height = height
	s.logger.Debug("Wrote %s (%d bytes)", input.OutputPath, len(data))
	return result, nil
}

func scaledHeight(b image.Rectangle, width int) int {
	if b.Dx() == 0 {
		return 1
	}
	return max(b.Dy()*width/b.Dx(), 1)
}

// fit shortens text with an ellipsis until it is at most maxWidth wide.
func fit(canvas ports.Canvas, text string, maxWidth float64, style ports.TextStyle) string {
	if w, _ := canvas.MeasureText(text, style); w <= maxWidth {
		return text
	}
	runes := []rune(text)
	for n := len(runes) - 1; n > 0; n-- {
		candidate := string(runes[:n]) + ellipsis
		if w, _ := canvas.MeasureText(candidate, style); w <= maxWidth {
			return candidate
		}
	}
	return ellipsis
}
