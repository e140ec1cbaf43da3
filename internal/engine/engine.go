// Package engine locates the native inspection module and asks it whether a request should be blocked.
package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ModulePath is where the inspection module lives under a candidate root
const ModulePath = "twistlock/libtw_serverless.so"

// DefaultLayerRoot is the directory Lambda layers are extracted to
const DefaultLayerRoot = "/opt"

// ErrNotFound is returned when no candidate root holds the inspection module
var ErrNotFound = errors.New("failed to find native inspection module")

// Module is a loaded inspection module (helpful for testing)
type Module interface {
	CheckRequest(event, ctx []byte) bool
}

// Opener loads the module file at path and binds its check function
type Opener func(path string) (Module, error)

// Engine is a loaded inspection module
type Engine struct {
	mu   sync.Mutex
	mod  Module
	path string
}

// Locate returns the module path under the first root that has one
func Locate(roots []string) (string, error) {
	for _, root := range roots {
		if p, ok := modulePath(root); ok {
			return p, nil
		}
	}
	return "", ErrNotFound
}

// Load tries each root in order and opens the first module it finds.
// A module that exists but cannot be opened is fatal; later roots are not tried.
func Load(roots []string, open Opener) (*Engine, error) {
	if open == nil {
		open = Open
	}

	for _, root := range roots {
		p, ok := modulePath(root)
		if !ok {
			continue
		}

		mod, err := open(p)
		if err != nil {
			return nil, fmt.Errorf("failed to load inspection module %s: %w", p, err)
		}
		return &Engine{mod: mod, path: p}, nil
	}

	return nil, fmt.Errorf("%w in %v", ErrNotFound, roots)
}

// modulePath reports whether root holds the module file
func modulePath(root string) (string, bool) {
	if root == "" {
		return "", false
	}
	p := filepath.Join(root, ModulePath)
	if _, err := os.Stat(p); err != nil {
		return p, false
	}
	return p, true
}

// Path is the file the engine was loaded from
func (e *Engine) Path() string {
	return e.path
}

// CheckRequest returns true when the request should be blocked.
// The module makes no reentrancy promise, so calls are serialized.
func (e *Engine) CheckRequest(event, ctx []byte) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mod.CheckRequest(event, ctx)
}
