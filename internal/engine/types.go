package engine

import (
	"time"

	"github.com/blang/semver"
)

const (
	// DefaultOwner is the GitHub owner of the engine repository.
	DefaultOwner = "nestdb"
	// DefaultRepo is the GitHub repository the engine is released from.
	DefaultRepo = "nestdb-core"
	// VersionLatest requests the newest published release.
	VersionLatest = "latest"

	// ExpectedMajor is the engine major version the report schema targets.
	ExpectedMajor = 4
	// IncompatibleMajor marks engine majors whose on-disk schema is known to
	// differ from the expected one. Loading still succeeds; the resolver
	// surfaces a warning.
	IncompatibleMajor = 5

	// MinLibrarySize is the smallest plausible size for a real engine
	// library. Anything below is classified TooSmall and skipped.
	MinLibrarySize = 1024

	// VersionMarkerFile is written next to the installed library and holds
	// the resolved release tag on a single line.
	VersionMarkerFile = "version.txt"
)

// Origin tags where a candidate path came from.
type Origin string

const (
	OriginUser       Origin = "user"
	OriginInstallDir Origin = "install-dir"
	OriginExeDir     Origin = "exe-dir"
	OriginDBDir      Origin = "db-dir"
	OriginWorkDir    Origin = "cwd"
	OriginPathEntry  Origin = "path-entry"
	OriginWellKnown  Origin = "well-known"
	OriginExtracted  Origin = "extracted"
)

// Candidate is one filesystem location that may hold the engine library.
type Candidate struct {
	Path   string
	Origin Origin
}

// FailureKind classifies the outcome of probing one candidate.
type FailureKind int

const (
	// FailureNone means the path is not a candidate at all (missing file);
	// the probe is skipped, which is distinct from a real failure.
	FailureNone FailureKind = iota
	// FailureTooSmall means the file exists but is implausibly small.
	FailureTooSmall
	// FailureBadImage means the loader rejected the file's format or
	// architecture.
	FailureBadImage
	// FailureLoad means the load failed for any other reason.
	FailureLoad
)

// String returns the string representation of the failure kind.
func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureTooSmall:
		return "too-small"
	case FailureBadImage:
		return "bad-image"
	case FailureLoad:
		return "load-error"
	default:
		return "unknown"
	}
}

// ProbeResult is the outcome of one dynamic-load attempt.
type ProbeResult struct {
	Path    string
	Loaded  bool
	Version semver.Version
	// RawVersion is the version string as reported ("Unknown" when the
	// library exposes none and no marker file exists).
	RawVersion string
	Failure    FailureKind
	// Message carries the loader error for FailureBadImage / FailureLoad.
	Message string
	// Warning is set when the library loads but its major version is known
	// to be schema-incompatible. Non-fatal.
	Warning string
	// Handle is owned by the caller on success.
	Handle Library
}

// Release describes one tagged publication on the release host.
// Immutable once fetched; never persisted to disk.
type Release struct {
	Tag         string    `json:"tag_name"`
	Name        string    `json:"name"`
	PublishedAt time.Time `json:"published_at"`
	Prerelease  bool      `json:"prerelease"`
	Body        string    `json:"body"`
	Assets      []Asset   `json:"assets"`
}

// Asset is a single downloadable file attached to a release.
type Asset struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"browser_download_url"`
}

// InstallationRecord describes what the installer left in the install dir.
type InstallationRecord struct {
	InstallDir  string
	LibraryPath string
	Version     string
	Valid       bool
}

// Options configures one resolution attempt.
type Options struct {
	// LibraryPath is an explicit, user-specified library location. Tried
	// first when set.
	LibraryPath string
	// InstallDir is where auto-install places the library, the version
	// marker, and the download cache.
	InstallDir string
	// DatabasePath, when set, adds the database file's directory to the
	// candidate list.
	DatabasePath string
	// Version is a concrete release tag or VersionLatest.
	Version string
	// Force skips the local candidate phase and reinstalls.
	Force bool
	// SkipInstall disables auto-install; resolution fails with NotFound if
	// no local candidate loads.
	SkipInstall bool
	// Token is an optional API token for the release host.
	Token string
	// Timeout bounds each network attempt. Zero means DefaultTimeout.
	Timeout time.Duration
	// CacheMaxAge bounds cache entry freshness. Zero means DefaultCacheMaxAge.
	CacheMaxAge time.Duration
	// Progress receives download progress. Nil disables reporting.
	Progress ProgressFunc
}

// LoadedEngine is the opaque handle the rest of the program builds a driver
// connection from. It lives for the process lifetime.
type LoadedEngine struct {
	Path       string
	Version    semver.Version
	RawVersion string
	// Warning is non-empty when the engine loaded but its major version is
	// known-incompatible with the expected report schema.
	Warning string
	Library  Library
}
