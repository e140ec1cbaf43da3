//go:build darwin || freebsd || linux

package engine

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/ebitengine/purego"
)

// checkSymbol is exported by the module as
//
//	bool check_request(char *event, int event_len, char *ctx, int ctx_len)
const checkSymbol = "check_request"

type native struct {
	check func(event unsafe.Pointer, eventLen int32, ctx unsafe.Pointer, ctxLen int32) bool
}

// Open dlopens the module at path and binds check_request
func Open(path string) (Module, error) {

	h, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return nil, fmt.Errorf("dlopen failed: %w", err)
	}

	sym, err := purego.Dlsym(h, checkSymbol)
	if err != nil {
		_ = purego.Dlclose(h)
		return nil, fmt.Errorf("missing symbol %s: %w", checkSymbol, err)
	}

	n := &native{}
	purego.RegisterFunc(&n.check, sym)
	return n, nil
}

// CheckRequest passes both buffers with explicit lengths, they may contain NUL bytes
func (n *native) CheckRequest(event, ctx []byte) bool {
	block := n.check(
		unsafe.Pointer(unsafe.SliceData(event)), int32(len(event)),
		unsafe.Pointer(unsafe.SliceData(ctx)), int32(len(ctx)),
	)
	runtime.KeepAlive(event)
	runtime.KeepAlive(ctx)
	return block
}
