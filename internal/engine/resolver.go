package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/nestdb/nestreport/internal/platform"
)

// Resolver locates a loadable engine library, installing one from the
// release host when the local search comes up empty. The successfully
// loaded handle is cached for the process lifetime; Ensure is safe for
// concurrent use.
type Resolver struct {
	opts     Options
	info     *platform.Info
	detector platform.Detector
	loader   Loader
	releases *ReleaseClient
	logger   *zap.Logger

	mu     sync.Mutex
	loaded *LoadedEngine
}

// ResolverConfig configures a Resolver. Zero values take sensible
// defaults; Platform, Loader, and APIBaseURL exist mainly so tests can
// substitute fakes.
type ResolverConfig struct {
	Options    Options
	Platform   *platform.Info
	Loader     Loader
	APIBaseURL string
	Logger     *zap.Logger
}

// NewResolver creates a resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Loader == nil {
		cfg.Loader = NewLoader()
	}
	opts := cfg.Options
	if opts.InstallDir == "" {
		opts.InstallDir = DefaultInstallDir()
	}
	if opts.Version == "" {
		opts.Version = VersionLatest
	}
	return &Resolver{
		opts:     opts,
		info:     cfg.Platform,
		detector: platform.NewDetector(),
		loader:   cfg.Loader,
		releases: NewReleaseClient(ReleaseClientConfig{
			BaseURL: cfg.APIBaseURL,
			Token:   opts.Token,
			Timeout: opts.Timeout,
			Logger:  cfg.Logger,
		}),
		logger: cfg.Logger,
	}
}

// DefaultInstallDir returns the per-user engine install directory.
func DefaultInstallDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = ".nestreport"
	}
	return filepath.Join(base, "nestreport", "engine")
}

// Ensure returns a loaded engine, going through the three phases in
// order: the cached process-wide handle, the local candidate search, and
// auto-install. Force skips the candidate search; SkipInstall disables
// auto-install, turning an empty search into NotFound.
func (r *Resolver) Ensure(ctx context.Context) (*LoadedEngine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// A loaded library is process-wide and can never be unloaded, so a
	// second resolution always short-circuits, even under Force. Force
	// only governs the candidate and install phases of the first
	// resolution.
	if r.loaded != nil {
		return r.loaded, nil
	}

	if r.info == nil {
		info, err := r.detector.Detect(ctx)
		if err != nil {
			return nil, err
		}
		r.info = info
	}

	basenames := platform.LibraryNames(r.info.OS)
	candidates := BuildCandidates(r.candidateInput(), basenames)
	probe := NewProbe(r.loader, r.logger)

	if !r.opts.Force {
		for _, cand := range candidates {
			result := probe.Run(cand.Path)
			if !result.Loaded {
				continue
			}
			r.logger.Info("engine found",
				zap.String("path", cand.Path),
				zap.String("origin", string(cand.Origin)),
				zap.String("version", result.RawVersion))
			r.loaded = engineFromProbe(result)
			return r.loaded, nil
		}
	}

	if r.opts.SkipInstall {
		err := newError(KindNotFound, "locate engine library",
			errors.New("no loadable library found and auto-install is disabled"))
		err.Searched = CandidatePaths(candidates)
		return nil, err
	}

	loaded, err := r.autoInstall(ctx, probe, basenames)
	if err != nil {
		return nil, err
	}
	r.loaded = loaded
	return loaded, nil
}

// Loaded returns the cached handle, or nil before the first successful
// Ensure.
func (r *Resolver) Loaded() *LoadedEngine {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// autoInstall runs the install pipeline: lock the install directory,
// resolve the release, pick an asset, download it into the cache,
// extract, locate the library inside the extraction tree, and install.
// The caller holds r.mu.
func (r *Resolver) autoInstall(ctx context.Context, probe *Probe, basenames []string) (*LoadedEngine, error) {
	lock, err := acquireInstallLock(r.opts.InstallDir)
	if err != nil {
		return nil, newError(KindInstallFailed, "lock install dir", err)
	}
	defer lock.release()

	// Another process may have finished installing while we waited for
	// the lock. Re-check before downloading anything.
	if !r.opts.Force {
		for _, name := range basenames {
			result := probe.Run(filepath.Join(r.opts.InstallDir, name))
			if result.Loaded {
				r.logger.Info("engine installed by another process",
					zap.String("path", result.Path))
				return engineFromProbe(result), nil
			}
		}
	}

	release, err := r.releases.Resolve(ctx, r.opts.Version)
	if err != nil {
		return nil, err
	}
	r.logger.Info("release resolved",
		zap.String("tag", release.Tag),
		zap.Int("assets", len(release.Assets)))

	selector, err := NewAssetSelector(PreferredPatterns(r.info), r.logger)
	if err != nil {
		return nil, newError(KindInstallFailed, "compile asset patterns", err)
	}
	asset := selector.Select(release.Assets)
	if asset == nil {
		return nil, newError(KindReleaseNotFound,
			fmt.Sprintf("select asset from release %s", release.Tag),
			errors.New("release has no assets"))
	}

	downloader := NewDownloader(
		filepath.Join(r.opts.InstallDir, "cache"),
		r.opts.CacheMaxAge, r.opts.Progress, r.logger)
	archivePath, err := downloader.Fetch(ctx, *asset)
	if err != nil {
		return nil, err
	}

	scratchDir := filepath.Join(r.opts.InstallDir, "extracted")
	if _, err := NewExtractor().Extract(archivePath, scratchDir); err != nil {
		return nil, err
	}

	libPath, err := findLibrary(scratchDir, basenames)
	if err != nil {
		return nil, newError(KindInstallFailed,
			fmt.Sprintf("locate library in %s", scratchDir), err)
	}

	result := probe.Run(libPath)
	if !result.Loaded {
		return nil, newError(KindInstallFailed,
			fmt.Sprintf("verify extracted library %s", libPath),
			fmt.Errorf("%s: %s", result.Failure, result.Message))
	}

	installer := NewInstaller(r.opts.InstallDir, probe, r.logger)
	installed, err := installer.Install(libPath, release.Tag)
	if err != nil {
		// The extracted copy already loads in this process; on platforms
		// where the installed copy resolves to the same image the
		// re-probe shares its handle. Any verification failure is fatal.
		return nil, err
	}
	return engineFromProbe(installed), nil
}

// candidateInput assembles the search directories from the options and
// the process environment.
func (r *Resolver) candidateInput() CandidateInput {
	in := CandidateInput{
		UserPath:   r.opts.LibraryPath,
		InstallDir: r.opts.InstallDir,
		PathDirs:   platform.PathEntries(os.Getenv("PATH")),
		WellKnown:  platform.WellKnownDirs(r.info.OS),
	}
	if exe, err := os.Executable(); err == nil {
		in.ExeDir = filepath.Dir(exe)
	}
	if r.opts.DatabasePath != "" {
		in.DBDir = filepath.Dir(r.opts.DatabasePath)
	}
	if wd, err := os.Getwd(); err == nil {
		in.WorkDir = wd
	}
	return in
}

// findLibrary walks an extraction tree looking for the library by
// basename, honoring the basename preference order. Within one basename
// the first match in walk order wins.
func findLibrary(root string, basenames []string) (string, error) {
	found := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := filepath.Base(path)
		for _, want := range basenames {
			if name == want {
				if _, dup := found[want]; !dup {
					found[want] = path
				}
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walk extraction tree: %w", err)
	}
	for _, want := range basenames {
		if path, ok := found[want]; ok {
			return path, nil
		}
	}
	return "", fmt.Errorf("no library named %v in archive", basenames)
}

// engineFromProbe converts a successful probe into the caller-facing
// handle.
func engineFromProbe(result ProbeResult) *LoadedEngine {
	return &LoadedEngine{
		Path:       result.Path,
		Version:    result.Version,
		RawVersion: result.RawVersion,
		Warning:    result.Warning,
		Library:    result.Handle,
	}
}

// Status reports the current installation without loading anything.
func (r *Resolver) Status(ctx context.Context) (InstallationRecord, []Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.info == nil {
		info, err := r.detector.Detect(ctx)
		if err != nil {
			return InstallationRecord{}, nil, err
		}
		r.info = info
	}
	basenames := platform.LibraryNames(r.info.OS)
	installer := NewInstaller(r.opts.InstallDir, nil, r.logger)
	return installer.Record(basenames), BuildCandidates(r.candidateInput(), basenames), nil
}
