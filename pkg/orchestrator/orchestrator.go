// Package orchestrator drives the decode, export and preview stages for
// single files and batches.
package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/tiff"
	"golang.org/x/sync/errgroup"

	"github.com/user/rawkit/pkg/metrics"
	"github.com/user/rawkit/pkg/pipeline"
	"github.com/user/rawkit/pkg/ports"
	"github.com/user/rawkit/pkg/rawkit"
)

// Config contains all configuration for the orchestrator.
type Config struct {
	// Output
	OutputDir string
	Format    pipeline.OutputFormat
	Quality   int // JPEG quality (1-100)
	Overwrite bool

	// Processing
	Raw2Image     bool
	SubtractBlack bool

	// Extras
	Thumbnail    bool // write the embedded thumbnail as <name>.thumb.jpg
	Preview      bool // write a contact card as <name>.preview.png
	PreviewWidth int
	PreviewTheme pipeline.PreviewTheme

	// Batch
	Workers int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		OutputDir:    ".",
		Format:       pipeline.FormatTIFF,
		Quality:      92,
		PreviewWidth: 480,
		PreviewTheme: pipeline.DefaultPreviewTheme(),
		Workers:      4,
	}
}

// Job is one file to decode. An empty Output is derived from the input
// name, the output directory and the format.
type Job struct {
	Input  string
	Output string
}

// Result describes what a job produced.
type Result struct {
	Input     string
	Output    string
	Thumbnail string
	Preview   string
	Decoder   rawkit.DecoderInfo
	Width     int
	Height    int
	Skipped   bool
	Duration  time.Duration

	// Err is the failure of this input, set by RunBatch.
	Err error
}

// ErrDuplicateOutput is returned by RunBatch for an input whose output
// path was already claimed by an earlier input of the same batch.
var ErrDuplicateOutput = errors.New("output path already used by another input")

// Orchestrator coordinates the execution of the pipeline stages.
type Orchestrator struct {
	decodeStage  pipeline.Stage[pipeline.DecodeInput, pipeline.DecodeResult]
	exportStage  pipeline.Stage[pipeline.ExportInput, pipeline.ExportResult]
	previewStage pipeline.Stage[pipeline.PreviewInput, pipeline.PreviewResult]
	fs           ports.FileSystem
	logger       ports.Logger
	config       Config
}

// New creates a new Orchestrator.
func New(
	decodeStage pipeline.Stage[pipeline.DecodeInput, pipeline.DecodeResult],
	exportStage pipeline.Stage[pipeline.ExportInput, pipeline.ExportResult],
	previewStage pipeline.Stage[pipeline.PreviewInput, pipeline.PreviewResult],
	fs ports.FileSystem,
	logger ports.Logger,
	config Config,
) *Orchestrator {
	if config.Workers < 1 {
		config.Workers = 1
	}
	return &Orchestrator{
		decodeStage:  decodeStage,
		exportStage:  exportStage,
		previewStage: previewStage,
		fs:           fs,
		logger:       logger,
		config:       config,
	}
}

// OutputPath derives the output file for input.
func (o *Orchestrator) OutputPath(input string) string {
	return filepath.Join(o.config.OutputDir, stem(input)+"."+o.config.Format.Ext())
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Run decodes one file and writes its outputs.
func (o *Orchestrator) Run(ctx context.Context, job Job) (Result, error) {
	result := Result{Input: job.Input, Output: job.Output}
	if result.Output == "" {
		result.Output = o.OutputPath(job.Input)
	}

	if !o.config.Overwrite {
		exists, err := o.fs.Exists(result.Output)
		if err != nil {
			return result, fmt.Errorf("check %s: %w", result.Output, err)
		}
		if exists {
			o.logger.Info("Skipping %s: %s exists", job.Input, result.Output)
			result.Skipped = true
			return result, nil
		}
	}
	if err := o.fs.MkdirAll(filepath.Dir(result.Output)); err != nil {
		return result, fmt.Errorf("create output directory: %w", err)
	}

	o.logger.Info("Decoding %s", job.Input)
	start := time.Now()
	decodeInput := o.buildDecodeInput(job.Input, result.Output)
	decoded, err := o.decodeStage.Execute(ctx, decodeInput)
	result.Decoder = decoded.Decoder
	if err != nil {
		metrics.RecordDecode("error", time.Since(start).Seconds())
		o.logger.Error("Failed to decode %s: %v", job.Input, err)
		return result, fmt.Errorf("decode %s: %w", job.Input, err)
	}

	bounds := decoded.Image.Bounds()
	result.Width, result.Height = bounds.Dx(), bounds.Dy()

	if o.config.Format.Native() {
		if err := o.verify(result); err != nil {
			metrics.RecordDecode("error", time.Since(start).Seconds())
			o.logger.Error("Failed to verify %s: %v", result.Output, err)
			_ = o.fs.Remove(result.Output)
			return result, fmt.Errorf("verify %s: %w", result.Output, err)
		}
	} else {
		if _, err := o.exportStage.Execute(ctx, pipeline.ExportInput{
			Image:      decoded.Image,
			OutputPath: result.Output,
			Format:     o.config.Format,
			Quality:    o.config.Quality,
		}); err != nil {
			metrics.RecordDecode("error", time.Since(start).Seconds())
			return result, fmt.Errorf("export stage: %w", err)
		}
	}

	if o.config.Thumbnail && decoded.Thumbnail != nil {
		path := filepath.Join(filepath.Dir(result.Output), stem(job.Input)+".thumb.jpg")
		if _, err := o.exportStage.Execute(ctx, pipeline.ExportInput{
			Image:      decoded.Thumbnail,
			OutputPath: path,
			Format:     pipeline.FormatJPEG,
			Quality:    o.config.Quality,
		}); err != nil {
			metrics.RecordDecode("error", time.Since(start).Seconds())
			return result, fmt.Errorf("export thumbnail: %w", err)
		}
		result.Thumbnail = path
	}

	if o.config.Preview {
		path := filepath.Join(filepath.Dir(result.Output), stem(job.Input)+".preview.png")
		if _, err := o.previewStage.Execute(ctx, o.buildPreviewInput(job.Input, path, decoded)); err != nil {
			metrics.RecordDecode("error", time.Since(start).Seconds())
			return result, fmt.Errorf("preview stage: %w", err)
		}
		result.Preview = path
	}

	result.Duration = time.Since(start)
	metrics.RecordDecode("success", result.Duration.Seconds())
	o.logger.Info("Decoded %s to %s (%dx%d)", job.Input, result.Output, result.Width, result.Height)
	return result, nil
}

// RunBatch decodes inputs with at most Workers files in flight. A failed
// file does not stop the others; the returned error joins every failure.
// Results are in input order. Inputs that map to the same output path
// (same name in different directories) fail after the first with
// ErrDuplicateOutput and are never decoded.
func (o *Orchestrator) RunBatch(ctx context.Context, inputs []string) ([]Result, error) {
	o.logger.Info("Decoding %d files with %d workers", len(inputs), o.config.Workers)

	results := make([]Result, len(inputs))
	errs := make([]error, len(inputs))
	claimed := make(map[string]string, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.Workers)
	for i, input := range inputs {
		output := o.OutputPath(input)
		if first, ok := claimed[filepath.Clean(output)]; ok {
			errs[i] = fmt.Errorf("%s: %w: %s", input, ErrDuplicateOutput, first)
			results[i] = Result{Input: input, Output: output, Err: errs[i]}
			o.logger.Error("Failed to schedule %s: %s is also written by %s", input, output, first)
			continue
		}
		claimed[filepath.Clean(output)] = input

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				results[i] = Result{Input: input, Err: err}
				return nil
			}
			results[i], errs[i] = o.Run(gctx, Job{Input: input, Output: output})
			results[i].Err = errs[i]
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	o.logger.Info("Batch finished: %d succeeded, %d failed", len(inputs)-failed, failed)
	return results, errors.Join(errs...)
}

// verify checks a natively written file. TIFF output is decoded far
// enough to compare its dimensions with the in-memory image.
func (o *Orchestrator) verify(result Result) error {
	data, err := o.fs.ReadFile(result.Output)
	if err != nil {
		return err
	}
	if o.config.Format != pipeline.FormatTIFF {
		if len(data) == 0 {
			return fmt.Errorf("empty output")
		}
		return nil
	}
	cfg, err := tiff.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return err
	}
	if cfg.Width != result.Width || cfg.Height != result.Height {
		return fmt.Errorf("TIFF is %dx%d, decoded image is %dx%d", cfg.Width, cfg.Height, result.Width, result.Height)
	}
	return nil
}

func (o *Orchestrator) buildDecodeInput(input, output string) pipeline.DecodeInput {
	in := pipeline.DecodeInput{
		Path:          input,
		Raw2Image:     o.config.Raw2Image,
		SubtractBlack: o.config.SubtractBlack,
		Thumbnail:     o.config.Thumbnail || o.config.Preview,
	}
	if o.config.Format.Native() {
		in.NativeOutput = output
		in.NativeTIFF = o.config.Format == pipeline.FormatTIFF
	}
	return in
}

func (o *Orchestrator) buildPreviewInput(input, output string, decoded pipeline.DecodeResult) pipeline.PreviewInput {
	bounds := decoded.Image.Bounds()
	return pipeline.PreviewInput{
		Image:     decoded.Image,
		Thumbnail: decoded.Thumbnail,
		Caption: []string{
			filepath.Base(input),
			fmt.Sprintf("%s  %dx%d", decoded.Decoder.Name, bounds.Dx(), bounds.Dy()),
			decoded.Decoder.Flags.String(),
		},
		Width:      o.config.PreviewWidth,
		Theme:      o.config.PreviewTheme,
		OutputPath: output,
	}
}
