// Package engine locates, verifies, and installs the NestDB native engine
// library that the rest of nestreport loads at runtime.
//
// # Resolution Strategy
//
// 1. Fast path: if an engine library is already loaded in this process,
// return it. A loaded library is a process-lifetime resource; it is never
// unloaded or replaced.
//
// 2. Local search: build an ordered, de-duplicated list of candidate paths
// (explicit path, install dir, executable dir, database dir, working dir,
// PATH entries, well-known system dirs) and probe each one. Per-candidate
// failures (too small, wrong architecture, load error) are non-fatal and
// advance the search.
//
// 3. Auto-install: resolve the requested release on GitHub, pick the best
// matching asset, download it through an age-based cache, extract it, and
// install the library into the install directory with a version marker.
//
// # Architecture
//
// The package is organized into several components:
//   - Resolver: high-level orchestration of search, download, install
//   - Probe: dynamic-load attempts and outcome classification
//   - ReleaseClient: GitHub Releases API with retry and backoff
//   - Downloader: cached streaming download with atomic rename
//   - Extractor: archive extraction (zip, nupkg, tar.gz)
//   - Installer: copy into place, version marker, load confirmation
package engine
