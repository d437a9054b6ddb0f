// Package decode implements the stage that runs the native decoding
// workflow on one RAW file.
package decode

import (
	"context"
	"fmt"
	"image"

	"github.com/user/rawkit/pkg/pipeline"
	"github.com/user/rawkit/pkg/ports"
	"github.com/user/rawkit/pkg/rawkit"
)

// Stage decodes a RAW file into detached images. Every session it opens is
// closed before Execute returns, whatever the outcome.
type Stage struct {
	lib    *rawkit.Library
	logger ports.Logger
}

// NewStage creates a new decode stage.
func NewStage(lib *rawkit.Library, logger ports.Logger) *Stage {
	return &Stage{
		lib:    lib,
		logger: logger.WithComponent("decode"),
	}
}

// Execute loads, unpacks and processes input.Path. Cancellation is
// observed between native calls.
func (s *Stage) Execute(ctx context.Context, input pipeline.DecodeInput) (pipeline.DecodeResult, error) {
	result := pipeline.DecodeResult{Path: input.Path}

	fresh, err := s.lib.Init()
	if err != nil {
		return result, err
	}
	defer fresh.Close()

	loaded, err := rawkit.Load(fresh, input.Path)
	if err != nil {
		return result, err
	}
	defer loaded.Close()

	result.Decoder, err = rawkit.GetDecoderInfo(loaded)
	if err != nil {
		return result, err
	}
	s.logger.Debug("Decoder for %s: %s (%s)", input.Path, result.Decoder.Name, result.Decoder.Flags)
	if !result.Decoder.Supported() {
		return result, fmt.Errorf("decoder %s cannot decode this file", result.Decoder.Name)
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	unpack := rawkit.Unpack[rawkit.Unknown, rawkit.Unknown]
	if input.Raw2Image {
		unpack = rawkit.Raw2Image[rawkit.Unknown, rawkit.Unknown]
	}
	unpacked, err := unpack(loaded)
	if err != nil {
		return result, err
	}
	defer unpacked.Close()

	if input.SubtractBlack {
		if err := rawkit.SubtractBlack(unpacked); err != nil {
			return result, err
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	processed, err := rawkit.Process(unpacked)
	if err != nil {
		return result, err
	}
	defer processed.Close()

	if input.NativeOutput != "" {
		processed, err = rawkit.WriteImage(processed, input.NativeOutput, input.NativeTIFF)
		if err != nil {
			return result, err
		}
		defer processed.Close()
		result.NativeOutput = input.NativeOutput
	}

	result.Image, err = extract(rawkit.MakeMemImage(processed))
	if err != nil {
		return result, err
	}

	if input.Thumbnail {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		s.thumbnail(processed, &result)
	}
	return result, nil
}

// thumbnail extracts the embedded preview. A file without a usable
// thumbnail is not an error; the failed unpack releases the session.
func (s *Stage) thumbnail(processed *rawkit.Session[rawkit.Loaded, rawkit.Processed, rawkit.Unknown], result *pipeline.DecodeResult) {
	thumbed, err := rawkit.UnpackThumb(processed)
	if err != nil {
		s.logger.Warn("No thumbnail in %s: %v", result.Path, err)
		return
	}
	defer thumbed.Close()

	img, err := rawkit.MakeMemThumb(thumbed)
	if err != nil {
		s.logger.Warn("No thumbnail in %s: %v", result.Path, err)
		return
	}
	result.ThumbnailKind = img.Kind()
	result.Thumbnail, err = extract(img, nil)
	if err != nil {
		s.logger.Warn("No thumbnail in %s: %v", result.Path, err)
	}
}

// extract copies a native buffer into a Go image and releases it.
func extract(img *rawkit.ProcessedImage, err error) (image.Image, error) {
	if err != nil {
		return nil, err
	}
	defer img.Close()
	return img.Image()
}
