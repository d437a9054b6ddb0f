package decode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/user/rawkit/pkg/adapters/memraw"
	"github.com/user/rawkit/pkg/mocks"
	"github.com/user/rawkit/pkg/pipeline"
	"github.com/user/rawkit/pkg/ports"
	"github.com/user/rawkit/pkg/rawerr"
	"github.com/user/rawkit/pkg/rawkit"
)

func setup(t *testing.T, f memraw.Fixture) (*Stage, *memraw.Library, *mocks.Logger, string) {
	t.Helper()
	native := memraw.New()
	log := mocks.NewLogger()
	path := filepath.Join(t.TempDir(), "shot.raw")
	if err := memraw.WriteFixture(path, f); err != nil {
		t.Fatal(err)
	}
	return NewStage(rawkit.New(native), log), native, log, path
}

func assertReleased(t *testing.T, native *memraw.Library) {
	t.Helper()
	stats := native.Stats()
	if stats.LiveContexts() != 0 || stats.LiveImages() != 0 {
		t.Errorf("leaked %d contexts and %d images", stats.LiveContexts(), stats.LiveImages())
	}
	if stats.DoubleCloses != 0 || stats.DoubleClears != 0 {
		t.Errorf("released twice: %d contexts, %d images", stats.DoubleCloses, stats.DoubleClears)
	}
}

func TestStage_Execute(t *testing.T) {
	stage, native, _, path := setup(t, memraw.Fixture{Width: 40, Height: 24, Black: 128, Thumb: memraw.ThumbJPEG})

	result, err := stage.Execute(context.Background(), pipeline.DecodeInput{
		Path:          path,
		SubtractBlack: true,
		Thumbnail:     true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if b := result.Image.Bounds(); b.Dx() != 40 || b.Dy() != 24 {
		t.Errorf("expected 40x24 image, got %dx%d", b.Dx(), b.Dy())
	}
	if result.Thumbnail == nil {
		t.Fatal("expected thumbnail")
	}
	if result.ThumbnailKind != rawkit.ImageJPEG {
		t.Errorf("expected JPEG thumbnail, got %s", result.ThumbnailKind)
	}
	if result.Decoder.Name != "memraw_load_bayer_raw()" {
		t.Errorf("unexpected decoder %q", result.Decoder.Name)
	}
	if result.NativeOutput != "" {
		t.Errorf("unexpected native output %q", result.NativeOutput)
	}
	assertReleased(t, native)
}

func TestStage_Execute_NativeOutput(t *testing.T) {
	stage, native, _, path := setup(t, memraw.Fixture{Width: 8, Height: 6})
	out := filepath.Join(t.TempDir(), "out.tiff")

	result, err := stage.Execute(context.Background(), pipeline.DecodeInput{
		Path:         path,
		Raw2Image:    true,
		NativeOutput: out,
		NativeTIFF:   true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.NativeOutput != out {
		t.Errorf("expected native output %q, got %q", out, result.NativeOutput)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("native output missing: %v", err)
	}
	if result.Thumbnail != nil {
		t.Error("thumbnail extracted without being requested")
	}
	assertReleased(t, native)
}

func TestStage_Execute_MissingThumbnailWarns(t *testing.T) {
	stage, native, log, path := setup(t, memraw.Fixture{Width: 8, Height: 8, Thumb: memraw.ThumbNone})

	result, err := stage.Execute(context.Background(), pipeline.DecodeInput{Path: path, Thumbnail: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Image == nil {
		t.Error("expected image despite missing thumbnail")
	}
	if result.Thumbnail != nil {
		t.Error("expected no thumbnail")
	}
	if !log.Contains(ports.LevelWarn, "No thumbnail in "+path) {
		t.Errorf("expected warning, got %v", log.Entries())
	}
	assertReleased(t, native)
}

func TestStage_Execute_Failures(t *testing.T) {
	tests := []struct {
		name string
		op   string
		kind error
	}{
		{"open", memraw.OpOpenFile, rawerr.ErrLibrary},
		{"unpack", memraw.OpUnpack, rawerr.ErrLibrary},
		{"process", memraw.OpDcrawProcess, rawerr.ErrLibrary},
		{"make_mem_image", memraw.OpMakeMemImage, rawerr.ErrLibrary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stage, native, _, path := setup(t, memraw.Fixture{Width: 8, Height: 8})
			native.FailNext(tt.op, ports.StatusDataError)

			_, err := stage.Execute(context.Background(), pipeline.DecodeInput{Path: path})
			if !errors.Is(err, tt.kind) {
				t.Fatalf("expected %v, got %v", tt.kind, err)
			}
			assertReleased(t, native)
		})
	}
}

func TestStage_Execute_Cancelled(t *testing.T) {
	stage, native, _, path := setup(t, memraw.Fixture{Width: 8, Height: 8})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := stage.Execute(ctx, pipeline.DecodeInput{Path: path})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	assertReleased(t, native)
}

func TestStage_Execute_MissingFile(t *testing.T) {
	stage, native, _, _ := setup(t, memraw.Fixture{Width: 8, Height: 8})

	_, err := stage.Execute(context.Background(), pipeline.DecodeInput{Path: filepath.Join(t.TempDir(), "missing.raw")})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	assertReleased(t, native)
}
