//go:build !darwin && !freebsd && !linux

package engine

import (
	"fmt"
	"runtime"
)

// Open is unsupported where dlopen is not available
func Open(path string) (Module, error) {
	return nil, fmt.Errorf("native modules are not supported on %s", runtime.GOOS)
}
