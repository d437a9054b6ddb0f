//go:build windows

package rawkit

import "golang.org/x/sys/windows"

// encodePath returns path as a NUL-terminated byte string.
func encodePath(path string) ([]byte, error) {
	return windows.ByteSliceFromString(path)
}
