package platform

import (
	"os"
	"path/filepath"
)

// LibraryNames returns the engine library file name variants for an OS,
// most-preferred first. Candidate search and extraction-tree search both
// consume this list.
func LibraryNames(goos string) []string {
	switch goos {
	case "windows":
		return []string{"nestdb.dll", "libnestdb.dll"}
	case "darwin":
		return []string{"libnestdb.dylib", "nestdb.dylib"}
	default:
		return []string{"libnestdb.so", "nestdb.so"}
	}
}

// WellKnownDirs returns directories where a system-wide engine install is
// commonly found, in search order. Non-existent directories are fine; the
// probe skips them.
func WellKnownDirs(goos string) []string {
	switch goos {
	case "windows":
		var dirs []string
		if pf := os.Getenv("ProgramFiles"); pf != "" {
			dirs = append(dirs, filepath.Join(pf, "NestDB"))
		}
		if pf := os.Getenv("ProgramFiles(x86)"); pf != "" {
			dirs = append(dirs, filepath.Join(pf, "NestDB"))
		}
		return dirs
	case "darwin":
		return []string{"/usr/local/lib", "/opt/homebrew/lib", "/opt/nestdb/lib"}
	default:
		return []string{"/usr/local/lib", "/usr/lib", "/opt/nestdb/lib"}
	}
}

// PathEntries splits the PATH-style environment variable into its entries,
// dropping empties.
func PathEntries(pathEnv string) []string {
	var entries []string
	for _, dir := range filepath.SplitList(pathEnv) {
		if dir != "" {
			entries = append(entries, dir)
		}
	}
	return entries
}
