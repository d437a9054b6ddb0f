// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"image/color"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/user/rawkit/pkg/orchestrator"
	"github.com/user/rawkit/pkg/pipeline"
	"github.com/user/rawkit/pkg/ports"
)

// Backends selectable with the backend key.
const (
	BackendLibRaw = "libraw"
	BackendMemRaw = "memraw"
)

// Config represents the full configuration for rawkit.
type Config struct {
	Backend     string `yaml:"backend"`
	LogLevel    string `yaml:"log_level"`
	Workers     int    `yaml:"workers"`
	MetricsAddr string `yaml:"metrics_addr"`

	Output  OutputConfig  `yaml:"output"`
	Process ProcessConfig `yaml:"process"`
	Preview PreviewConfig `yaml:"preview"`
}

// OutputConfig controls where and how decoded images are written.
type OutputConfig struct {
	Dir       string `yaml:"dir"`
	Format    string `yaml:"format"`
	Quality   int    `yaml:"quality"`
	Overwrite bool   `yaml:"overwrite"`
	Thumbnail bool   `yaml:"thumbnail"`
}

// ProcessConfig selects the unpack variant and black level handling.
type ProcessConfig struct {
	Raw2Image     bool `yaml:"raw2image"`
	SubtractBlack bool `yaml:"subtract_black"`
}

// PreviewConfig controls the contact card written next to each output.
type PreviewConfig struct {
	Enabled bool        `yaml:"enabled"`
	Width   int         `yaml:"width"`
	Theme   ThemeConfig `yaml:"theme"`
}

// ThemeConfig represents theming options.
type ThemeConfig struct {
	BackgroundColor string `yaml:"background_color"`
	TextColor       string `yaml:"text_color"`
	BorderColor     string `yaml:"border_color"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		Backend:  BackendLibRaw,
		LogLevel: "info",
		Workers:  4,

		Output: OutputConfig{
			Dir:     ".",
			Format:  string(pipeline.FormatTIFF),
			Quality: 92,
		},

		Preview: PreviewConfig{
			Width: 480,
			Theme: ThemeConfig{
				BackgroundColor: "#1a1a2e",
				TextColor:       "#ffffff",
				BorderColor:     "#4ade80",
			},
		},
	}
}

// LoadFromFile loads configuration from a YAML file. Keys missing from
// the file keep their default values.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendLibRaw, BackendMemRaw:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendLibRaw, BackendMemRaw)
	}
	if _, err := pipeline.ParseOutputFormat(c.Output.Format); err != nil {
		return err
	}
	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("quality must be between 1 and 100, got %d", c.Output.Quality)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Preview.Enabled && c.Preview.Width < 64 {
		return fmt.Errorf("preview width must be at least 64, got %d", c.Preview.Width)
	}
	return nil
}

// Level returns the configured log level.
func (c Config) Level() ports.LogLevel {
	return ports.ParseLogLevel(c.LogLevel)
}

// ParseColor parses a hex color string to color.Color.
func ParseColor(hex string) color.Color {
	if len(hex) == 0 {
		return color.Black
	}

	if hex[0] == '#' {
		hex = hex[1:]
	}

	if len(hex) != 6 {
		return color.Black
	}

	var rgb [3]uint8
	for i := range rgb {
		rgb[i] = hexValue(hex[2*i])<<4 | hexValue(hex[2*i+1])
	}

	return color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}
}

func hexValue(c byte) uint8 {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}

// ToOrchestratorConfig converts Config to orchestrator.Config. Call
// Validate first; an unparsable format falls back to TIFF.
func (c Config) ToOrchestratorConfig() orchestrator.Config {
	format, err := pipeline.ParseOutputFormat(c.Output.Format)
	if err != nil {
		format = pipeline.FormatTIFF
	}
	return orchestrator.Config{
		OutputDir: c.Output.Dir,
		Format:    format,
		Quality:   c.Output.Quality,
		Overwrite: c.Output.Overwrite,

		Raw2Image:     c.Process.Raw2Image,
		SubtractBlack: c.Process.SubtractBlack,

		Thumbnail:    c.Output.Thumbnail,
		Preview:      c.Preview.Enabled,
		PreviewWidth: c.Preview.Width,
		PreviewTheme: pipeline.PreviewTheme{
			Background: ParseColor(c.Preview.Theme.BackgroundColor),
			Text:       ParseColor(c.Preview.Theme.TextColor),
			Border:     ParseColor(c.Preview.Theme.BorderColor),
		},

		Workers: c.Workers,
	}
}
