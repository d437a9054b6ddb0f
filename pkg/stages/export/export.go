// Package export implements the stage that encodes a decoded image and
// writes it out.
package export

import (
	"context"
	"fmt"

	"github.com/user/rawkit/pkg/pipeline"
	"github.com/user/rawkit/pkg/ports"
)

// Stage encodes images with a Renderer and writes them to a FileSystem.
type Stage struct {
	renderer ports.Renderer
	fs       ports.FileSystem
	logger   ports.Logger
}

// NewStage creates a new export stage.
func NewStage(renderer ports.Renderer, fs ports.FileSystem, logger ports.Logger) *Stage {
	return &Stage{
		renderer: renderer,
		fs:       fs,
		logger:   logger.WithComponent("export"),
	}
}

// Execute encodes input.Image as PNG, JPEG or TIFF. PPM is only produced
// by the native writer and is rejected here.
func (s *Stage) Execute(ctx context.Context, input pipeline.ExportInput) (pipeline.ExportResult, error) {
	result := pipeline.ExportResult{Path: input.OutputPath}

	if input.Image == nil {
		return result, fmt.Errorf("no image to export")
	}

	var format ports.ImageFormat
	switch input.Format {
	case pipeline.FormatPNG:
		format = ports.FormatPNG
	case pipeline.FormatJPEG:
		format = ports.FormatJPEG
	case pipeline.FormatTIFF:
		format = ports.FormatTIFF
	default:
		return result, fmt.Errorf("cannot encode %s from memory", input.Format)
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	data, err := s.renderer.EncodeImage(input.Image, format, input.Quality)
	if err != nil {
		return result, fmt.Errorf("encode %s: %w", input.Format, err)
	}
	if err := s.fs.WriteFile(input.OutputPath, data); err != nil {
		return result, fmt.Errorf("write %s: %w", input.OutputPath, err)
	}

	result.Bytes = len(data)
	s.logger.Debug("Wrote %s (%d bytes)", input.OutputPath, result.Bytes)
	return result, nil
}
