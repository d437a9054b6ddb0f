// Package libraw binds ports.NativeLibrary to the LibRaw C library.
//
// The binding needs cgo and the libraw build tag (go build -tags libraw);
// it links libraw_r through pkg-config. Without them New returns
// ErrUnavailable and callers fall back to the memraw simulator.
package libraw

import "errors"

// ErrUnavailable is returned by New when the binary was built without the
// native binding.
var ErrUnavailable = errors.New("libraw: native binding not built (requires cgo and -tags libraw)")
