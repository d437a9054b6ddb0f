//go:build !unix && !windows

package rawerr

import "syscall"

func errnoMessage(code int) string {
	return syscall.Errno(code).Error()
}

func errnoError(code int) error {
	return syscall.Errno(code)
}
