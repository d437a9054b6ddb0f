package memraw

import (
	"bytes"
	"image/jpeg"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/user/rawkit/pkg/ports"
)

func writeTestFixture(t *testing.T, f Fixture) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shot.raw")
	require.NoError(t, WriteFixture(path, f))
	return append([]byte(path), 0)
}

func TestParseFixture(t *testing.T) {
	f, err := ParseFixture([]byte("MEMRAW 64 48 black=128 thumb=bitmap\ntrailing data"))
	require.NoError(t, err)
	assert.Equal(t, Fixture{Width: 64, Height: 48, Black: 128, Thumb: ThumbBitmap}, f)

	f, err = ParseFixture([]byte("MEMRAW 2 2"))
	require.NoError(t, err)
	assert.Equal(t, ThumbJPEG, f.Thumb)

	_, err = ParseFixture([]byte("II*\x00 not a fixture"))
	assert.ErrorIs(t, err, errNotFixture)

	for _, bad := range []string{"MEMRAW 0 4", "MEMRAW 4 70000", "MEMRAW 4 4 thumb=gif", "MEMRAW 4 4 black=5000", "MEMRAW 4 4 color"} {
		_, err := ParseFixture([]byte(bad))
		assert.Error(t, err, bad)
	}
}

func TestFixtureStringRoundTrip(t *testing.T) {
	in := Fixture{Width: 10, Height: 6, Black: 64, Thumb: ThumbNone, Kind: 7}
	out, err := ParseFixture([]byte(in.String()))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestOpenFileStatuses(t *testing.T) {
	lib := New()
	h := lib.Init(0)
	defer lib.Close(h)

	missing := append([]byte(filepath.Join(t.TempDir(), "missing.raw")), 0)
	assert.Equal(t, int(syscall.ENOENT), lib.OpenFile(h, missing))

	junk := filepath.Join(t.TempDir(), "junk.raw")
	require.NoError(t, os.WriteFile(junk, []byte("not raw"), 0o644))
	assert.Equal(t, ports.StatusFileUnsupported, lib.OpenFile(h, []byte(junk)))

	path := writeTestFixture(t, Fixture{Width: 8, Height: 8})
	assert.Equal(t, ports.StatusSuccess, lib.OpenFile(h, path))
	assert.Equal(t, ports.StatusOutOfOrderCall, lib.OpenFile(h, path))
}

func TestOutOfOrderCalls(t *testing.T) {
	lib := New()
	h := lib.Init(0)
	defer lib.Close(h)

	assert.Equal(t, ports.StatusOutOfOrderCall, lib.Unpack(h))
	assert.Equal(t, ports.StatusOutOfOrderCall, lib.DcrawProcess(h))
	_, status := lib.DecoderInfo(h)
	assert.Equal(t, ports.StatusOutOfOrderCall, status)
	rec, status := lib.MakeMemImage(h)
	assert.Nil(t, rec)
	assert.Equal(t, ports.StatusOutOfOrderCall, status)
	_, status = lib.MakeMemThumb(h)
	assert.Equal(t, ports.StatusRequestForNonexistentThumb, status)

	assert.Equal(t, ports.StatusInputClosed, lib.Unpack(h+100))
}

func TestProcessAndMemImage(t *testing.T) {
	lib := New()
	h := lib.Init(0)
	defer lib.Close(h)

	require.Equal(t, ports.StatusSuccess, lib.OpenFile(h, writeTestFixture(t, Fixture{Width: 16, Height: 10, Black: 200})))
	require.Equal(t, ports.StatusSuccess, lib.Unpack(h))
	require.Equal(t, ports.StatusSuccess, lib.DcrawProcess(h))

	rec, status := lib.MakeMemImage(h)
	require.Equal(t, ports.StatusSuccess, status)
	assert.Equal(t, ports.ImageTypeBitmap, rec.Type)
	assert.EqualValues(t, 16, rec.Width)
	assert.EqualValues(t, 10, rec.Height)
	assert.EqualValues(t, 3, rec.Colors)
	assert.EqualValues(t, 8, rec.Bits)
	assert.Len(t, rec.Data, 16*10*3)
	assert.Equal(t, 1, lib.Stats().LiveImages())

	lib.ClearMem(rec.Ref)
	lib.ClearMem(rec.Ref)
	stats := lib.Stats()
	assert.Equal(t, 0, stats.LiveImages())
	assert.Equal(t, 1, stats.DoubleClears)
	assert.Equal(t, byte(0xdd), rec.Data[0])
}

func TestSubtractBlack(t *testing.T) {
	lib := New()
	h := lib.Init(0)
	defer lib.Close(h)

	require.Equal(t, ports.StatusSuccess, lib.OpenFile(h, writeTestFixture(t, Fixture{Width: 4, Height: 4, Black: 100})))
	require.Equal(t, ports.StatusSuccess, lib.Unpack(h))

	lib.mu.Lock()
	before := lib.contexts[h].raw[0]
	lib.mu.Unlock()
	assert.EqualValues(t, 100, before)

	lib.SubtractBlack(h)
	lib.SubtractBlack(h)

	lib.mu.Lock()
	after := lib.contexts[h].raw[0]
	lib.mu.Unlock()
	assert.EqualValues(t, 0, after)
}

func TestThumbnails(t *testing.T) {
	lib := New()

	h := lib.Init(0)
	require.Equal(t, ports.StatusSuccess, lib.OpenFile(h, writeTestFixture(t, Fixture{Width: 40, Height: 20, Thumb: ThumbJPEG})))
	require.Equal(t, ports.StatusSuccess, lib.UnpackThumb(h))
	rec, status := lib.MakeMemThumb(h)
	require.Equal(t, ports.StatusSuccess, status)
	assert.Equal(t, ports.ImageTypeJPEG, rec.Type)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(rec.Data))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Width)
	assert.Equal(t, 5, cfg.Height)
	lib.ClearMem(rec.Ref)
	lib.Close(h)

	h = lib.Init(0)
	require.Equal(t, ports.StatusSuccess, lib.OpenFile(h, writeTestFixture(t, Fixture{Width: 40, Height: 20, Thumb: ThumbBitmap})))
	require.Equal(t, ports.StatusSuccess, lib.UnpackThumb(h))
	rec, status = lib.MakeMemThumb(h)
	require.Equal(t, ports.StatusSuccess, status)
	assert.Equal(t, ports.ImageTypeBitmap, rec.Type)
	assert.Len(t, rec.Data, 10*5*3)
	lib.ClearMem(rec.Ref)
	lib.Close(h)

	h = lib.Init(0)
	require.Equal(t, ports.StatusSuccess, lib.OpenFile(h, writeTestFixture(t, Fixture{Width: 40, Height: 20, Thumb: ThumbNone})))
	assert.Equal(t, ports.StatusRequestForNonexistentThumb, lib.UnpackThumb(h))
	lib.Close(h)

	assert.Zero(t, lib.Stats().LiveImages())
	assert.Zero(t, lib.Stats().LiveContexts())
}

func TestWriters(t *testing.T) {
	lib := New()
	h := lib.Init(0)
	defer lib.Close(h)
	dir := t.TempDir()

	require.Equal(t, ports.StatusSuccess, lib.OpenFile(h, writeTestFixture(t, Fixture{Width: 12, Height: 8})))
	assert.Equal(t, ports.StatusOutOfOrderCall, lib.PPMTIFFWriter(h, []byte(filepath.Join(dir, "early.ppm"))))
	require.Equal(t, ports.StatusSuccess, lib.Unpack(h))
	require.Equal(t, ports.StatusSuccess, lib.DcrawProcess(h))

	ppm := filepath.Join(dir, "out.ppm")
	require.Equal(t, ports.StatusSuccess, lib.PPMTIFFWriter(h, []byte(ppm)))
	data, err := os.ReadFile(ppm)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("P6\n12 8\n255\n")))
	assert.Len(t, data, len("P6\n12 8\n255\n")+12*8*3)

	tif := filepath.Join(dir, "out.tiff")
	lib.SetOutputTIFF(h, true)
	require.Equal(t, ports.StatusSuccess, lib.PPMTIFFWriter(h, []byte(tif)))
	f, err := os.Open(tif)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := tiff.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Width)
	assert.Equal(t, 8, cfg.Height)

	assert.Equal(t, int(syscall.ENOENT), lib.PPMTIFFWriter(h, []byte(filepath.Join(dir, "no", "such", "dir.ppm"))))
}

func TestFailNext(t *testing.T) {
	lib := New()
	lib.FailNext(OpInit, ports.StatusInsufficientMemory)
	assert.Equal(t, ports.Handle(0), lib.Init(0))

	h := lib.Init(0)
	require.NotZero(t, h)
	defer lib.Close(h)

	path := writeTestFixture(t, Fixture{Width: 4, Height: 4})
	lib.FailNext(OpOpenFile, ports.StatusDataError)
	assert.Equal(t, ports.StatusDataError, lib.OpenFile(h, path))
	assert.Equal(t, ports.StatusSuccess, lib.OpenFile(h, path))
}

func TestRecycleAndStats(t *testing.T) {
	lib := New()
	h := lib.Init(0)
	path := writeTestFixture(t, Fixture{Width: 4, Height: 4})
	require.Equal(t, ports.StatusSuccess, lib.OpenFile(h, path))
	require.Equal(t, ports.StatusSuccess, lib.Unpack(h))

	lib.Recycle(h)
	assert.Equal(t, ports.StatusOutOfOrderCall, lib.Unpack(h))
	assert.Equal(t, ports.StatusSuccess, lib.OpenFile(h, path))

	lib.Close(h)
	lib.Close(h)
	stats := lib.Stats()
	assert.Equal(t, 1, stats.Inits)
	assert.Equal(t, 1, stats.Closes)
	assert.Equal(t, 1, stats.DoubleCloses)
	assert.Zero(t, stats.LiveContexts())
}

func TestLibraryFacade(t *testing.T) {
	lib := New(WithCameras("A", "B"))
	assert.Equal(t, 2, lib.CameraCount())
	name, ok := lib.CameraAt(1)
	assert.True(t, ok)
	assert.Equal(t, []byte("B"), name)
	_, ok = lib.CameraAt(2)
	assert.False(t, ok)

	assert.Equal(t, "0.21.2-memraw", lib.Version())
	assert.Equal(t, 21<<8|2, lib.VersionNumber())
	assert.Equal(t, "Out of order call of libraw function", lib.StrError(ports.StatusOutOfOrderCall))
	assert.Equal(t, "Unknown error code", lib.StrError(-42))
}
