package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blang/semver"
	"go.uber.org/zap"
)

// Probe attempts to dynamically load candidate files and classifies the
// outcome. Loading is a process-wide, one-shot side effect: a successfully
// loaded library cannot be unloaded within the process lifetime.
type Probe struct {
	loader Loader
	logger *zap.Logger
}

// NewProbe creates a probe backed by the given loader. A nil logger is
// replaced with a no-op logger.
func NewProbe(loader Loader, logger *zap.Logger) *Probe {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Probe{loader: loader, logger: logger}
}

// Run probes a single path. A missing file yields Failure==FailureNone and
// Loaded==false, meaning "not a candidate, skip" rather than a real
// failure. All per-candidate failures are non-fatal; the caller advances to
// the next candidate.
func (p *Probe) Run(path string) ProbeResult {
	result := ProbeResult{Path: path}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return result
		}
		// The path exists but cannot be inspected (typically a
		// permissions problem). Report it instead of silently skipping.
		result.Failure = FailureLoad
		result.Message = err.Error()
		p.logger.Debug("candidate not statable", zap.String("path", path), zap.Error(err))
		return result
	}
	if info.IsDir() {
		return result
	}

	if info.Size() < MinLibrarySize {
		result.Failure = FailureTooSmall
		result.Message = fmt.Sprintf("file is %d bytes, below the %d byte minimum", info.Size(), MinLibrarySize)
		p.logger.Debug("candidate rejected", zap.String("path", path), zap.String("reason", result.Message))
		return result
	}

	lib, err := p.loader.Load(path)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.BadImage {
			result.Failure = FailureBadImage
		} else {
			result.Failure = FailureLoad
		}
		result.Message = err.Error()
		p.logger.Debug("candidate failed to load",
			zap.String("path", path),
			zap.String("kind", result.Failure.String()),
			zap.String("error", result.Message))
		return result
	}

	result.Loaded = true
	result.Handle = lib
	result.RawVersion, result.Version = p.extractVersion(path, lib)

	if result.Version.Major >= IncompatibleMajor {
		result.Warning = fmt.Sprintf(
			"engine version %s has a major version at or above %d; its database schema may be incompatible with this tool (expected major %d)",
			result.RawVersion, IncompatibleMajor, ExpectedMajor)
	}

	p.logger.Debug("candidate loaded",
		zap.String("path", path),
		zap.String("version", result.RawVersion))
	return result
}

// extractVersion resolves the library version: the engine's version symbol
// first, then the version marker file next to the library, then "Unknown".
func (p *Probe) extractVersion(path string, lib Library) (string, semver.Version) {
	if raw, ok := lib.VersionString(); ok {
		if v, err := parseVersion(raw); err == nil {
			return raw, v
		}
		return raw, semver.Version{}
	}

	marker := filepath.Join(filepath.Dir(path), VersionMarkerFile)
	if data, err := os.ReadFile(marker); err == nil {
		raw := strings.TrimSpace(string(data))
		if raw != "" {
			if v, err := parseVersion(raw); err == nil {
				return raw, v
			}
			return raw, semver.Version{}
		}
	}

	return "Unknown", semver.Version{}
}

// parseVersion parses a release tag or version string, tolerating a leading
// "v" and missing minor/patch segments.
func parseVersion(raw string) (semver.Version, error) {
	return semver.ParseTolerant(strings.TrimPrefix(strings.TrimSpace(raw), "v"))
}
