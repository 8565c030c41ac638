//go:build windows

package engine

import (
	"errors"

	"github.com/ebitengine/purego"
	"golang.org/x/sys/windows"
)

// winLoader loads libraries via LoadLibraryEx. It is the default Loader on
// Windows.
type winLoader struct{}

// NewLoader returns the platform's dynamic library loader.
func NewLoader() Loader {
	return &winLoader{}
}

// Load opens the DLL with an altered search path so its dependencies
// resolve from its own directory. ERROR_BAD_EXE_FORMAT maps to BadImage.
func (l *winLoader) Load(path string) (Library, error) {
	handle, err := windows.LoadLibraryEx(path, 0, windows.LOAD_WITH_ALTERED_SEARCH_PATH)
	if err != nil {
		return nil, &LoadError{
			Path:     path,
			BadImage: errors.Is(err, windows.ERROR_BAD_EXE_FORMAT),
			Message:  err.Error(),
		}
	}
	return &winLibrary{handle: handle}, nil
}

type winLibrary struct {
	handle windows.Handle
}

func (l *winLibrary) Lookup(name string) (uintptr, error) {
	return windows.GetProcAddress(l.handle, name)
}

func (l *winLibrary) VersionString() (string, bool) {
	addr, err := windows.GetProcAddress(l.handle, versionSymbol)
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
