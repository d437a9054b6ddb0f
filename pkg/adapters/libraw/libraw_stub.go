//go:build !cgo || !libraw

package libraw

import "github.com/user/rawkit/pkg/ports"

// Available reports whether the native binding was compiled in.
func Available() bool {
	return false
}

// New returns ErrUnavailable.
func New() (ports.NativeLibrary, error) {
	return nil, ErrUnavailable
}
