package main

import (
	"bytes"
	"errors"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/user/rawkit/pkg/adapters/libraw"
	"github.com/user/rawkit/pkg/adapters/memraw"
)

// run executes the CLI in-process against the simulated backend.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	argv := append([]string{"rawkit", "--backend", "memraw", "--quiet"}, args...)
	err := newApp(&stdout, &stderr).Run(argv)
	return stdout.String(), err
}

func writeFixture(t *testing.T, dir, name string, f memraw.Fixture) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := memraw.WriteFixture(path, f); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	for _, want := range []string{version, "0.21.2-memraw", "ZLIB|JPEG"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestCamerasCommand(t *testing.T) {
	out, err := run(t, "cameras", "--count")
	if err != nil {
		t.Fatalf("cameras failed: %v", err)
	}
	if strings.TrimSpace(out) != strconv.Itoa(len(memraw.DefaultCameras)) {
		t.Errorf("unexpected count %q", out)
	}

	first := memraw.DefaultCameras[0]
	out, err = run(t, "cameras", "--filter", strings.ToUpper(first))
	if err != nil {
		t.Fatalf("cameras failed: %v", err)
	}
	if !strings.Contains(out, first) {
		t.Errorf("expected %q in filtered list:\n%s", first, out)
	}
}

func TestInfoCommand(t *testing.T) {
	path := writeFixture(t, t.TempDir(), "a.raw", memraw.Fixture{Width: 40, Height: 20, Thumb: memraw.ThumbJPEG})

	out, err := run(t, "info", path)
	if err != nil {
		t.Fatalf("info failed: %v", err)
	}
	for _, want := range []string{path, "memraw_load_bayer_raw()", "HASCURVE|FIXEDMAXC", "10x5"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}

	if _, err := run(t, "info", filepath.Join(t.TempDir(), "missing.raw")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
	if _, err := run(t, "info"); err == nil {
		t.Error("expected usage error without files")
	}
}

func TestProcessCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "a.raw", memraw.Fixture{Width: 32, Height: 24})
	output := filepath.Join(dir, "out", "a.png")

	if _, err := run(t, "process", "-o", output, path); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	f, err := os.Open(output)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if cfg.Width != 32 || cfg.Height != 24 {
		t.Errorf("expected 32x24, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestProcessCommandErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "a.raw", memraw.Fixture{Width: 8, Height: 8})

	if _, err := run(t, "process", "-o", filepath.Join(dir, "a.gif"), path); err == nil {
		t.Error("expected error for an unknown output extension")
	}
	if _, err := run(t, "process", path); err == nil {
		t.Error("expected error without --output")
	}
	if _, err := run(t, "process", "-o", filepath.Join(dir, "a.png"), path, path); err == nil {
		t.Error("expected error for two inputs")
	}
}

func TestThumbCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "a.raw", memraw.Fixture{Width: 40, Height: 20, Thumb: memraw.ThumbJPEG})
	output := filepath.Join(dir, "a.jpg")

	if _, err := run(t, "thumb", "-o", output, path); err != nil {
		t.Fatalf("thumb failed: %v", err)
	}
	f, err := os.Open(output)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := jpeg.DecodeConfig(f); err != nil {
		t.Errorf("thumbnail is not a JPEG: %v", err)
	}

	none := writeFixture(t, dir, "b.raw", memraw.Fixture{Width: 8, Height: 8, Thumb: memraw.ThumbNone})
	if _, err := run(t, "thumb", "-o", filepath.Join(dir, "b.jpg"), none); err == nil {
		t.Error("expected error for a file without thumbnail")
	}
}

func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	inputs := []string{
		writeFixture(t, dir, "a.raw", memraw.Fixture{Width: 16, Height: 16}),
		writeFixture(t, dir, "b.raw", memraw.Fixture{Width: 24, Height: 8}),
		filepath.Join(dir, "missing.raw"),
	}

	report := filepath.Join(dir, "report.md")
	args := append([]string{"batch", "--out-dir", outDir, "--workers", "2", "--format", "tiff", "--report", report}, inputs...)
	out, err := run(t, args...)
	if err == nil {
		t.Fatal("expected batch to report the missing file")
	}
	if strings.Count(out, "\n") != len(inputs) {
		t.Errorf("expected one line per input:\n%s", out)
	}
	for _, name := range []string{"a.tiff", "b.tiff"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("missing output: %v", err)
		}
	}

	data, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("missing report: %v", err)
	}
	if !strings.Contains(string(data), "2 decoded, 0 skipped, 1 failed") {
		t.Errorf("unexpected report:\n%s", data)
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "configured")
	configPath := filepath.Join(dir, "rawkit.yaml")
	data := "backend: memraw\noutput:\n  dir: " + outDir + "\n  format: png\n"
	if err := os.WriteFile(configPath, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	path := writeFixture(t, dir, "a.raw", memraw.Fixture{Width: 8, Height: 8})

	var stdout bytes.Buffer
	err := newApp(&stdout, &stdout).Run([]string{"rawkit", "--config", configPath, "--quiet", "batch", path})
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "a.png")); err != nil {
		t.Errorf("expected configured output: %v", err)
	}
}

func TestInvalidGlobalFlags(t *testing.T) {
	var stdout bytes.Buffer
	if err := newApp(&stdout, &stdout).Run([]string{"rawkit", "--backend", "dcraw", "--quiet", "version"}); err == nil {
		t.Error("expected error for an unknown backend")
	}
	if _, err := run(t, "--profile", "gpu", "version"); err == nil {
		t.Error("expected error for an unknown profile")
	}
}

func TestLibRawBackendUnavailable(t *testing.T) {
	if libraw.Available() {
		t.Skip("native binding is built in")
	}
	var stdout bytes.Buffer
	err := newApp(&stdout, &stdout).Run([]string{"rawkit", "--backend", "libraw", "--quiet", "version"})
	if !errors.Is(err, libraw.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}
