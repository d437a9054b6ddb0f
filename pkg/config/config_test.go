package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/user/rawkit/pkg/pipeline"
	"github.com/user/rawkit/pkg/ports"
)

func TestDefaultsAreValid(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rawkit.yaml")
	data := `
backend: memraw
log_level: debug
workers: 8
output:
  dir: /tmp/out
  format: jpg
  quality: 80
  thumbnail: true
process:
  raw2image: true
preview:
  enabled: true
  theme:
    text_color: "#ff0000"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	if cfg.Backend != BackendMemRaw || cfg.Level() != ports.LevelDebug || cfg.Workers != 8 {
		t.Errorf("unexpected top-level settings: %+v", cfg)
	}
	// Unset keys keep their defaults.
	if cfg.Preview.Width != 480 || cfg.Preview.Theme.BorderColor != "#4ade80" {
		t.Errorf("expected preview defaults to survive, got %+v", cfg.Preview)
	}

	oc := cfg.ToOrchestratorConfig()
	if oc.Format != pipeline.FormatJPEG || oc.Quality != 80 || oc.OutputDir != "/tmp/out" {
		t.Errorf("unexpected output settings: %+v", oc)
	}
	if !oc.Raw2Image || oc.SubtractBlack || !oc.Thumbnail || !oc.Preview {
		t.Errorf("unexpected processing flags: %+v", oc)
	}
	if oc.PreviewTheme.Text != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("unexpected text color %v", oc.PreviewTheme.Text)
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("workers: [1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"backend", func(c *Config) { c.Backend = "dcraw" }},
		{"format", func(c *Config) { c.Output.Format = "gif" }},
		{"quality low", func(c *Config) { c.Output.Quality = 0 }},
		{"quality high", func(c *Config) { c.Output.Quality = 101 }},
		{"workers", func(c *Config) { c.Workers = 0 }},
		{"preview width", func(c *Config) {
			c.Preview.Enabled = true
			c.Preview.Width = 10
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		input string
		want  color.Color
	}{
		{"#1a1a2e", color.RGBA{R: 0x1a, G: 0x1a, B: 0x2e, A: 255}},
		{"FFFFFF", color.RGBA{R: 255, G: 255, B: 255, A: 255}},
		{"#4ADE80", color.RGBA{R: 0x4a, G: 0xde, B: 0x80, A: 255}},
		{"", color.Black},
		{"#fff", color.Black},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseColor(tt.input); got != tt.want {
				t.Errorf("ParseColor(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
