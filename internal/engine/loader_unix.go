//go:build linux || darwin || freebsd

package engine

import (
	"strings"

	"github.com/ebitengine/purego"
)

// dlLoader loads libraries via dlopen. It is the default Loader on
// Unix-like systems.
type dlLoader struct{}

// NewLoader returns the platform's dynamic library loader.
func NewLoader() Loader {
	return &dlLoader{}
}

// Load opens the library with RTLD_NOW|RTLD_GLOBAL. Format and architecture
// rejections are reported as BadImage; everything else is a plain load
// failure.
func (l *dlLoader) Load(path string) (Library, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, &LoadError{
			Path:     path,
			BadImage: isBadImageMessage(err.Error()),
			Message:  err.Error(),
		}
	}
	return &dlLibrary{handle: handle}, nil
}

// isBadImageMessage recognizes dlerror strings for wrong-format or
// wrong-architecture files. The exact wording varies by libc and OS.
func isBadImageMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range []string{
		"invalid elf header",
		"wrong elf class",
		"not a mach-o",
		"incompatible architecture",
		"file too short",
		"exec format error",
	} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

type dlLibrary struct {
	handle uintptr
}

func (l *dlLibrary) Lookup(name string) (uintptr, error) {
	return purego.Dlsym(l.handle, name)
}

func (l *dlLibrary) VersionString() (string, bool) {
	addr, err := purego.Dlsym(l.handle, versionSymbol)
	if err != nil || addr == 0 {
		return "", false
	}
	var versionFn func() string
	purego.RegisterFunc(&versionFn, addr)
	v := versionFn()
	if v == "" {
		return "", false
	}
	return v, true
}
