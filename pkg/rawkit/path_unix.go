//go:build unix

package rawkit

import "golang.org/x/sys/unix"

// encodePath returns path as a NUL-terminated byte string.
func encodePath(path string) ([]byte, error) {
	return unix.ByteSliceFromString(path)
}
