//go:build !unix && !windows

package rawkit

import (
	"errors"
	"strings"
)

func encodePath(path string) ([]byte, error) {
	if strings.IndexByte(path, 0) >= 0 {
		return nil, errors.New("path contains a NUL byte")
	}
	return append([]byte(path), 0), nil
}
