// Package rawkit drives a native RAW decoding library through a typed,
// ordered workflow.
//
// A typical decode:
//
//	lib := rawkit.New(native)
//	s0, err := lib.Init()
//	s1, err := rawkit.Load(s0, "IMG_0001.CR2")
//	s2, err := rawkit.Unpack(s1)
//	s3, err := rawkit.Process(s2)
//	img, err := rawkit.MakeMemImage(s3)
//	defer img.Close()
//	defer s3.Close()
//
// Each step consumes the previous session value. Calling Process on s1, or
// MakeMemImage before an unpack, is a compile error.
package rawkit

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/user/rawkit/pkg/adapters/logger"
	"github.com/user/rawkit/pkg/metrics"
	"github.com/user/rawkit/pkg/ports"
	"github.com/user/rawkit/pkg/rawerr"
)

// Library is the entry point to a native decoding library.
// It is safe for concurrent use; the sessions it creates are not.
type Library struct {
	native  ports.NativeLibrary
	log     ports.Logger
	options uint32
	once    sync.Once
}

// Option configures a Library.
type Option func(*Library)

// WithLogger sets the logger used for session diagnostics.
func WithLogger(log ports.Logger) Option {
	return func(l *Library) {
		l.log = log.WithComponent("rawkit")
	}
}

// WithInitOptions sets the option word passed to every native Init.
func WithInitOptions(options uint32) Option {
	return func(l *Library) {
		l.options = options
	}
}

// New wraps a native library.
func New(native ports.NativeLibrary, opts ...Option) *Library {
	l := &Library{
		native:  native,
		log:     logger.NewNoop(),
		options: ports.InitNoDataErrCallback,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// setup runs once per Library before the first context is allocated.
func (l *Library) setup() {
	version := l.native.Version()
	metrics.SetLibraryInfo(version)
	l.log.Debug("Using native library %s (%d)", version, l.native.VersionNumber())
}

// Init allocates a native decoding context and returns it in the initial
// state.
func (l *Library) Init() (*Fresh, error) {
	l.once.Do(l.setup)

	nh := l.native.Init(l.options)
	if nh == 0 {
		return nil, rawerr.Wrapper("Failed to init LibrawData struct!").At("new()")
	}
	metrics.RecordSessionOpened()

	h := &handle{
		id:     uuid.NewString(),
		lib:    l,
		native: nh,
	}
	h.cleanup = runtime.AddCleanup(h, closeNative, nativeRef{
		lib:    l.native,
		native: nh,
		id:     h.id,
		log:    l.log,
	})
	l.log.Debug("Session %s initialised", h.id)
	return &Fresh{h: h}, nil
}

// Version returns the native library's version string.
func (l *Library) Version() string {
	return l.native.Version()
}

// VersionNumber returns the native library's numeric version.
func (l *Library) VersionNumber() int {
	return l.native.VersionNumber()
}

// Capabilities returns the native library's build capabilities.
func (l *Library) Capabilities() Capabilities {
	return Capabilities(l.native.Capabilities())
}

// CameraCount returns the number of supported camera models.
func (l *Library) CameraCount() int {
	return l.native.CameraCount()
}

// CameraList returns the supported camera model names. The native table
// is read up to its sentinel; a table that is not valid UTF-8 means the
// native library is broken and CameraList panics.
func (l *Library) CameraList() []string {
	n := l.native.CameraCount()
	if n < 0 {
		n = 0
	}
	cams := make([]string, 0, n)
	for i := 0; ; i++ {
		name, ok := l.native.CameraAt(i)
		if !ok {
			break
		}
		if !utf8.Valid(name) {
			panic(fmt.Sprintf("rawkit: camera table entry %d is not valid UTF-8", i))
		}
		cams = append(cams, string(name))
	}
	return cams
}

// Capabilities is the native library's build capability word.
type Capabilities uint32

const (
	CapRawSpeed Capabilities = 1 << iota
	CapDNGSDK
	CapGPRSDK
	CapUnicodePaths
	CapX3FTools
	CapRPI6By9
	CapZlib
	CapJPEG
	CapRawSpeed3
	CapRawSpeedBits
)

var capNames = []struct {
	flag Capabilities
	name string
}{
	{CapRawSpeed, "RAWSPEED"},
	{CapDNGSDK, "DNGSDK"},
	{CapGPRSDK, "GPRSDK"},
	{CapUnicodePaths, "UNICODEPATHS"},
	{CapX3FTools, "X3FTOOLS"},
	{CapRPI6By9, "RPI6BY9"},
	{CapZlib, "ZLIB"},
	{CapJPEG, "JPEG"},
	{CapRawSpeed3, "RAWSPEED3"},
	{CapRawSpeedBits, "RAWSPEED_BITS"},
}

// Has reports whether every bit of flag is set.
func (c Capabilities) Has(flag Capabilities) bool {
	return c&flag == flag
}

// String lists the set capabilities separated by "|".
func (c Capabilities) String() string {
	var names []string
	for _, n := range capNames {
		if c.Has(n.flag) {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}
