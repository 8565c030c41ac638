package driver

import "github.com/ebitengine/purego"

// registerFunc binds a C function address to a Go function pointer.
// Indirection point so tests can construct bindings without a real
// library.
func registerFunc(fptr any, addr uintptr) {
	purego.RegisterFunc(fptr, addr)
}
