package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

const (
	// DefaultCacheMaxAge is how long a cache entry is trusted without
	// re-downloading.
	DefaultCacheMaxAge = 7 * 24 * time.Hour
	// DefaultDownloadTimeout bounds a whole asset download.
	DefaultDownloadTimeout = 5 * time.Minute
)

// ProgressFunc receives download progress as bytes read so far and the
// total expected size (-1 when unknown).
type ProgressFunc func(read, total int64)

// Downloader streams release assets into a local cache keyed by URL and
// size. Entries younger than the max age are served without touching the
// network; staleness is judged purely by modification time, so a rebuilt
// artifact published under the same tag and size goes unnoticed until the
// entry ages out. There is no retry here: retry responsibility sits with
// the caller re-running the resolution.
type Downloader struct {
	client    *http.Client
	cacheDir  string
	maxAge    time.Duration
	userAgent string
	progress  ProgressFunc
	logger    *zap.Logger
}

// NewDownloader creates a downloader writing into cacheDir. maxAge of zero
// takes DefaultCacheMaxAge; progress may be nil.
func NewDownloader(cacheDir string, maxAge time.Duration, progress ProgressFunc, logger *zap.Logger) *Downloader {
	if maxAge == 0 {
		maxAge = DefaultCacheMaxAge
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{
		client: &http.Client{
			Timeout: DefaultDownloadTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Allow up to 10 redirects
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		cacheDir:  cacheDir,
		maxAge:    maxAge,
		userAgent: DefaultUserAgent,
		progress:  progress,
		logger:    logger,
	}
}

// CachePath returns the cache file path for an asset. The key hashes the
// download URL together with the advertised size, so a republished asset
// with a different size lands in a new entry.
func (d *Downloader) CachePath(asset Asset) string {
	key := xxhash.Sum64String(fmt.Sprintf("%s|%d", asset.DownloadURL, asset.Size))
	return filepath.Join(d.cacheDir, fmt.Sprintf("%016x%s", key, archiveExt(asset.Name)))
}

// Fetch returns a local path for the asset, downloading it unless a fresh
// cache entry exists. Failures remove the partial file and report
// DownloadFailed; an already-cached entry is never deleted on failure.
func (d *Downloader) Fetch(ctx context.Context, asset Asset) (string, error) {
	cachePath := d.CachePath(asset)

	if info, err := os.Stat(cachePath); err == nil && !info.IsDir() && info.Size() > 0 {
		age := time.Since(info.ModTime())
		if age < d.maxAge {
			// Trusted by age alone, not content. Deliberate policy; see
			// the staleness note on the type.
			d.logger.Debug("serving asset from cache",
				zap.String("path", cachePath),
				zap.Duration("age", age))
			return cachePath, nil
		}
		d.logger.Debug("cache entry stale, re-downloading",
			zap.String("path", cachePath),
			zap.Duration("age", age))
	}

	if err := d.downloadOnce(ctx, asset, cachePath); err != nil {
		return "", newError(KindDownloadFailed, fmt.Sprintf("download %s", asset.DownloadURL), err)
	}
	return cachePath, nil
}

// downloadOnce streams the asset to a temp file in the cache directory and
// renames it into place, so readers never observe a partial entry.
func (d *Downloader) downloadOnce(ctx context.Context, asset Asset, cachePath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.DownloadURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := os.MkdirAll(d.cacheDir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(d.cacheDir, filepath.Base(cachePath)+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	cleanupNeeded := true
	defer func() {
		tmpFile.Close()
		if cleanupNeeded {
			os.Remove(tmpPath)
		}
	}()

	total := asset.Size
	if total == 0 {
		total = resp.ContentLength
	}
	body := io.Reader(resp.Body)
	if d.progress != nil {
		body = &progressReader{r: resp.Body, total: total, report: d.progress}
	}

	if _, err := io.Copy(tmpFile, body); err != nil {
		return fmt.Errorf("copy response body: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, cachePath); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	cleanupNeeded = false
	return nil
}

// progressReader reports cumulative bytes read through a ProgressFunc.
type progressReader struct {
	r      io.Reader
	read   int64
	total  int64
	report ProgressFunc
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.read += int64(n)
		p.report(p.read, p.total)
	}
	return n, err
}

// archiveExt returns the archive extension of a file name, keeping the
// compound ".tar.gz" suffix intact.
func archiveExt(name string) string {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".tar.gz") {
		return ".tar.gz"
	}
	return filepath.Ext(lower)
}
