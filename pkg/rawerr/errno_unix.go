//go:build unix

package rawerr

import "golang.org/x/sys/unix"

func errnoMessage(code int) string {
	return unix.Errno(code).Error()
}

func errnoError(code int) error {
	return unix.Errno(code)
}
