//go:build windows

package rawerr

import "golang.org/x/sys/windows"

func errnoMessage(code int) string {
	return windows.Errno(code).Error()
}

func errnoError(code int) error {
	return windows.Errno(code)
}
