package engine

import (
	"path/filepath"
)

// CandidateInput holds the directories considered during the local search
// phase. Empty fields are skipped. Construction performs no I/O; existence
// is the probe's concern.
type CandidateInput struct {
	// UserPath is a full library path, not a directory. Tried verbatim.
	UserPath   string
	InstallDir string
	ExeDir     string
	DBDir      string
	WorkDir    string
	PathDirs   []string
	WellKnown  []string
}

// BuildCandidates produces the ordered candidate list for the given inputs
// and library basename variants (most-preferred first). The result is
// de-duplicated by exact string equality, preserving first-seen order.
func BuildCandidates(in CandidateInput, basenames []string) []Candidate {
	var out []Candidate
	seen := make(map[string]struct{})

	add := func(path string, origin Origin) {
		if path == "" {
			return
		}
		if _, dup := seen[path]; dup {
			return
		}
		seen[path] = struct{}{}
		out = append(out, Candidate{Path: path, Origin: origin})
	}

	addDir := func(dir string, origin Origin) {
		if dir == "" {
			return
		}
		for _, name := range basenames {
			add(filepath.Join(dir, name), origin)
		}
	}

	add(in.UserPath, OriginUser)
	addDir(in.InstallDir, OriginInstallDir)
	addDir(in.ExeDir, OriginExeDir)
	addDir(in.DBDir, OriginDBDir)
	addDir(in.WorkDir, OriginWorkDir)
	for _, dir := range in.PathDirs {
		addDir(dir, OriginPathEntry)
	}
	for _, dir := range in.WellKnown {
		addDir(dir, OriginWellKnown)
	}

	return out
}

// CandidatePaths returns just the paths of a candidate list, in order.
// Used for NotFound diagnostics.
func CandidatePaths(candidates []Candidate) []string {
	paths := make([]string, 0, len(candidates))
	for _, c := range candidates {
		paths = append(paths, c.Path)
	}
	return paths
}
