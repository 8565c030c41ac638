package engine

// Library is a loaded engine library. There is no Close: a dynamically
// loaded library is a process-lifetime resource and is never unloaded.
type Library interface {
	// Lookup resolves an exported symbol to its address.
	Lookup(name string) (uintptr, error)
	// VersionString returns the version reported by the engine's version
	// symbol, if the library exports one.
	VersionString() (string, bool)
}

// Loader attempts to dynamically load a library file. Implementations
// classify format/architecture rejections separately from other load
// failures so the probe can advance to the next candidate.
type Loader interface {
	Load(path string) (Library, error)
}

// LoadError is returned by Loader implementations. BadImage distinguishes
// "wrong format or architecture" from every other load failure.
type LoadError struct {
	Path     string
	BadImage bool
	Message  string
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return e.Message
}

// versionSymbol is the engine's exported version accessor. It returns the
// library version as a C string.
const versionSymbol = "nestdb_library_version"
