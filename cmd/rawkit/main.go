// Package main provides the CLI entry point for rawkit.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ideamans/go-l10n"
	"github.com/pkg/profile"
	"github.com/urfave/cli/v2"

	"github.com/user/rawkit/pkg/adapters/ggrenderer"
	"github.com/user/rawkit/pkg/adapters/libraw"
	"github.com/user/rawkit/pkg/adapters/logger"
	"github.com/user/rawkit/pkg/adapters/memraw"
	"github.com/user/rawkit/pkg/adapters/osfilesystem"
	"github.com/user/rawkit/pkg/config"
	"github.com/user/rawkit/pkg/metrics"
	"github.com/user/rawkit/pkg/orchestrator"
	"github.com/user/rawkit/pkg/pipeline"
	"github.com/user/rawkit/pkg/ports"
	"github.com/user/rawkit/pkg/rawkit"
	"github.com/user/rawkit/pkg/stages/decode"
	"github.com/user/rawkit/pkg/stages/export"
	"github.com/user/rawkit/pkg/stages/preview"
	"github.com/user/rawkit/pkg/summarizer"
)

var version = "dev"

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, l10n.T("Interrupted, shutting down..."))
		cancel()
	}()

	err := newApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env is the state shared by every command, built from the global flags.
type env struct {
	cfg      config.Config
	log      ports.Logger
	lib      *rawkit.Library
	profile  interface{ Stop() }
	exporter *metrics.Exporter
}

func newApp(stdout, stderr io.Writer) *cli.App {
	e := &env{}

	return &cli.App{
		Name:      "rawkit",
		Usage:     l10n.T("Decode camera RAW files with LibRaw"),
		Version:   version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: l10n.T("YAML configuration file"), Category: l10n.T("Configuration")},
			&cli.StringFlag{Name: "backend", Aliases: []string{"b"}, Usage: l10n.T("Native backend (libraw, memraw)"), Category: l10n.T("Configuration")},
			&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Usage: l10n.T("Log level (debug, info, warn, error)"), Category: l10n.T("Logging")},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"Q"}, Usage: l10n.T("Suppress all log output"), Category: l10n.T("Logging")},
			&cli.StringFlag{Name: "profile", Usage: l10n.T("Write a cpu or mem profile"), Category: l10n.T("Debug")},
			&cli.StringFlag{Name: "profile-dir", Value: ".", Usage: l10n.T("Directory for profile output"), Category: l10n.T("Debug")},
			&cli.StringFlag{Name: "metrics-addr", Usage: l10n.T("Serve Prometheus metrics at this address (e.g. :9090)"), Category: l10n.T("Debug")},
		},
		Before: e.setup,
		After:  e.teardown,
		Commands: []*cli.Command{
			{
				Name:   "version",
				Usage:  l10n.T("Show version information"),
				Action: e.version,
			},
			{
				Name:  "cameras",
				Usage: l10n.T("List the cameras supported by the native library"),
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "filter", Aliases: []string{"f"}, Usage: l10n.T("Only show cameras containing this text")},
					&cli.BoolFlag{Name: "count", Usage: l10n.T("Only print the number of cameras")},
				},
				Action: e.cameras,
			},
			{
				Name:      "info",
				Usage:     l10n.T("Show decoder and thumbnail information"),
				ArgsUsage: "FILE...",
				Action:    e.info,
			},
			{
				Name:      "process",
				Usage:     l10n.T("Decode a RAW file into an image"),
				ArgsUsage: "FILE",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: l10n.T("Output image path")},
					&cli.BoolFlag{Name: "tiff", Usage: l10n.T("Write TIFF regardless of the output extension")},
				}, processingFlags()...),
				Action: e.process,
			},
			{
				Name:      "thumb",
				Usage:     l10n.T("Extract the embedded thumbnail"),
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: l10n.T("Output thumbnail path")},
					&cli.BoolFlag{Name: "tiff", Usage: l10n.T("Write bitmap thumbnails as TIFF instead of PPM")},
				},
				Action: e.thumb,
			},
			{
				Name:      "batch",
				Usage:     l10n.T("Decode many RAW files in parallel"),
				ArgsUsage: "FILE...",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "out-dir", Aliases: []string{"d"}, Usage: l10n.T("Output directory")},
					&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: l10n.T("Number of files decoded at once")},
					&cli.BoolFlag{Name: "overwrite", Usage: l10n.T("Replace existing outputs")},
					&cli.StringFlag{Name: "report", Usage: l10n.T("Write a Markdown summary of the batch to this file")},
				}, processingFlags()...),
				Action: e.batch,
			},
		},
	}
}

// processingFlags are shared by process and batch.
func processingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: l10n.T("Output format (ppm, tiff, png, jpeg)"), Category: l10n.T("Output")},
		&cli.IntFlag{Name: "quality", Aliases: []string{"q"}, Usage: l10n.T("JPEG quality (1-100)"), Category: l10n.T("Output")},
		&cli.BoolFlag{Name: "thumbnail", Usage: l10n.T("Also write the embedded thumbnail"), Category: l10n.T("Output")},
		&cli.BoolFlag{Name: "preview", Usage: l10n.T("Also write a preview card"), Category: l10n.T("Output")},
		&cli.BoolFlag{Name: "raw2image", Usage: l10n.T("Unpack with raw2image instead of unpack"), Category: l10n.T("Processing")},
		&cli.BoolFlag{Name: "subtract-black", Usage: l10n.T("Subtract the black level before processing"), Category: l10n.T("Processing")},
	}
}

// setup loads the configuration, applies global flag overrides and
// starts the optional profiler and metrics exporter.
func (e *env) setup(c *cli.Context) error {
	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		var err error
		cfg, err = config.LoadFromFile(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	if c.IsSet("backend") {
		cfg.Backend = c.String("backend")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("metrics-addr") {
		cfg.MetricsAddr = c.String("metrics-addr")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	e.cfg = cfg

	if c.Bool("quiet") {
		e.log = logger.NewNoop()
	} else {
		e.log = logger.NewConsole(cfg.Level())
	}

	switch c.String("profile") {
	case "":
	case "cpu":
		e.profile = profile.Start(profile.CPUProfile, profile.ProfilePath(c.String("profile-dir")), profile.Quiet, profile.NoShutdownHook)
	case "mem":
		e.profile = profile.Start(profile.MemProfile, profile.ProfilePath(c.String("profile-dir")), profile.Quiet, profile.NoShutdownHook)
	default:
		return fmt.Errorf("unknown profile %q (want cpu or mem)", c.String("profile"))
	}

	if cfg.MetricsAddr != "" {
		e.exporter = metrics.NewExporter(cfg.MetricsAddr)
		exporter := e.exporter
		go func() {
			if err := exporter.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				e.log.Warn("Metrics exporter stopped: %v", err)
			}
		}()
		e.log.Info("Serving metrics at %s", cfg.MetricsAddr)
	}
	return nil
}

func (e *env) teardown(c *cli.Context) error {
	if e.exporter != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.exporter.Shutdown(ctx)
	}
	if e.profile != nil {
		e.profile.Stop()
	}
	return nil
}

// library opens the configured backend on first use.
func (e *env) library() (*rawkit.Library, error) {
	if e.lib != nil {
		return e.lib, nil
	}

	var native ports.NativeLibrary
	switch e.cfg.Backend {
	case config.BackendMemRaw:
		native = memraw.New()
	default:
		var err error
		native, err = libraw.New()
		if err != nil {
			return nil, fmt.Errorf("%w; rebuild with -tags libraw or pass --backend memraw", err)
		}
	}
	e.lib = rawkit.New(native, rawkit.WithLogger(e.log))
	return e.lib, nil
}

// orchestratorConfig applies command flag overrides to the loaded
// configuration.
func (e *env) orchestratorConfig(c *cli.Context) (orchestrator.Config, error) {
	cfg := e.cfg
	if c.IsSet("format") {
		cfg.Output.Format = c.String("format")
	}
	if c.IsSet("quality") {
		cfg.Output.Quality = c.Int("quality")
	}
	if c.IsSet("thumbnail") {
		cfg.Output.Thumbnail = c.Bool("thumbnail")
	}
	if c.IsSet("preview") {
		cfg.Preview.Enabled = c.Bool("preview")
	}
	if c.IsSet("raw2image") {
		cfg.Process.Raw2Image = c.Bool("raw2image")
	}
	if c.IsSet("subtract-black") {
		cfg.Process.SubtractBlack = c.Bool("subtract-black")
	}
	if c.IsSet("out-dir") {
		cfg.Output.Dir = c.String("out-dir")
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("overwrite") {
		cfg.Output.Overwrite = c.Bool("overwrite")
	}
	if err := cfg.Validate(); err != nil {
		return orchestrator.Config{}, err
	}
	return cfg.ToOrchestratorConfig(), nil
}

func (e *env) orchestrator(oc orchestrator.Config) (*orchestrator.Orchestrator, error) {
	lib, err := e.library()
	if err != nil {
		return nil, err
	}

	// Create adapters
	fs := osfilesystem.New()
	renderer := ggrenderer.New()

	// Create stages
	decodeStage := decode.NewStage(lib, e.log)
	exportStage := export.NewStage(renderer, fs, e.log)
	previewStage := preview.NewStage(renderer, fs, e.log)

	return orchestrator.New(decodeStage, exportStage, previewStage, fs, e.log, oc), nil
}

func (e *env) version(c *cli.Context) error {
	w := c.App.Writer
	fmt.Fprintln(w, l10n.F("rawkit version %s", version))

	lib, err := e.library()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, l10n.F("Native library %s (%d)", lib.Version(), lib.VersionNumber()))
	fmt.Fprintln(w, l10n.F("Capabilities: %s", lib.Capabilities()))
	fmt.Fprintln(w, l10n.F("Supported cameras: %d", lib.CameraCount()))
	return nil
}

func (e *env) cameras(c *cli.Context) error {
	lib, err := e.library()
	if err != nil {
		return err
	}

	filter := strings.ToLower(c.String("filter"))
	var matched []string
	for _, name := range lib.CameraList() {
		if strings.Contains(strings.ToLower(name), filter) {
			matched = append(matched, name)
		}
	}

	if c.Bool("count") {
		fmt.Fprintln(c.App.Writer, len(matched))
		return nil
	}
	for _, name := range matched {
		fmt.Fprintln(c.App.Writer, name)
	}
	return nil
}

func (e *env) info(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New(l10n.T("info needs at least one RAW file"))
	}
	lib, err := e.library()
	if err != nil {
		return err
	}

	var errs []error
	for _, path := range c.Args().Slice() {
		if err := describe(c.App.Writer, lib, path); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
		}
	}
	return errors.Join(errs...)
}

// describe prints the decoder and thumbnail of one file.
func describe(w io.Writer, lib *rawkit.Library, path string) error {
	fresh, err := lib.Init()
	if err != nil {
		return err
	}
	defer fresh.Close()

	loaded, err := rawkit.Load(fresh, path)
	if err != nil {
		return err
	}
	defer loaded.Close()

	info, err := rawkit.GetDecoderInfo(loaded)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, path)
	fmt.Fprintln(w, l10n.F("  Decoder: %s", info.Name))
	fmt.Fprintln(w, l10n.F("  Flags: %s", info.Flags))

	thumbed, err := rawkit.UnpackThumb(loaded)
	if err != nil {
		fmt.Fprintln(w, l10n.F("  Thumbnail: none (%v)", err))
		return nil
	}
	defer thumbed.Close()

	thumb, err := rawkit.MakeMemThumb(thumbed)
	if err != nil {
		fmt.Fprintln(w, l10n.F("  Thumbnail: none (%v)", err))
		return nil
	}
	defer thumb.Close()
	fmt.Fprintln(w, l10n.F("  Thumbnail: %s %dx%d (%d bytes)", thumb.Kind(), thumb.Width(), thumb.Height(), thumb.Len()))
	return nil
}

func (e *env) process(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New(l10n.T("process takes exactly one RAW file"))
	}
	output := c.String("output")

	oc, err := e.orchestratorConfig(c)
	if err != nil {
		return err
	}
	switch {
	case c.Bool("tiff"):
		oc.Format = pipeline.FormatTIFF
	case !c.IsSet("format"):
		format, err := pipeline.ParseOutputFormat(strings.TrimPrefix(filepath.Ext(output), "."))
		if err != nil {
			return fmt.Errorf("cannot infer format from %s: %w", output, err)
		}
		oc.Format = format
	}
	// The output was named explicitly.
	oc.Overwrite = true

	orch, err := e.orchestrator(oc)
	if err != nil {
		return err
	}
	if _, err := orch.Run(c.Context, orchestrator.Job{Input: c.Args().First(), Output: output}); err != nil {
		return err
	}

	e.log.Info("Output saved to %s", output)
	return nil
}

func (e *env) thumb(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New(l10n.T("thumb takes exactly one RAW file"))
	}
	lib, err := e.library()
	if err != nil {
		return err
	}

	fresh, err := lib.Init()
	if err != nil {
		return err
	}
	defer fresh.Close()

	loaded, err := rawkit.Load(fresh, c.Args().First())
	if err != nil {
		return err
	}
	defer loaded.Close()

	thumbed, err := rawkit.UnpackThumb(loaded)
	if err != nil {
		return err
	}
	defer thumbed.Close()

	output := c.String("output")
	if err := rawkit.WriteThumbnail(thumbed, output, c.Bool("tiff")); err != nil {
		return err
	}

	e.log.Info("Output saved to %s", output)
	return nil
}

func (e *env) batch(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New(l10n.T("batch needs at least one RAW file"))
	}

	oc, err := e.orchestratorConfig(c)
	if err != nil {
		return err
	}
	orch, err := e.orchestrator(oc)
	if err != nil {
		return err
	}

	results, err := orch.RunBatch(c.Context, c.Args().Slice())
	for _, r := range results {
		switch {
		case r.Skipped:
			fmt.Fprintln(c.App.Writer, l10n.F("skipped  %s", r.Input))
		case r.Err != nil:
			fmt.Fprintln(c.App.Writer, l10n.F("failed   %s: %v", r.Input, r.Err))
		default:
			fmt.Fprintln(c.App.Writer, l10n.F("ok       %s -> %s", r.Input, r.Output))
		}
	}

	if path := c.String("report"); path != "" {
		if werr := e.writeReport(path, oc, results); werr != nil {
			return errors.Join(err, werr)
		}
		e.log.Info("Report saved to %s", path)
	}
	if err != nil {
		return fmt.Errorf("batch: %w", err)
	}
	return nil
}

func (e *env) writeReport(path string, oc orchestrator.Config, results []orchestrator.Result) error {
	lib, err := e.library()
	if err != nil {
		return err
	}
	summary := summarizer.NewBuilder().
		WithLibrary(lib.Version(), lib.Capabilities().String(), lib.CameraCount()).
		WithSettings(oc).
		WithResults(results).
		Build()
	return summarizer.NewWriter(summarizer.NewMarkdownFormatter(), osfilesystem.New()).Write(path, summary)
}
