package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

const (
	// DefaultAPIBase is the release host's API root.
	DefaultAPIBase = "https://api.github.com"
	// DefaultTimeout bounds a single network attempt.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxAttempts is the retry budget for release resolution.
	DefaultMaxAttempts = 3
	// DefaultRetryDelay is the base backoff delay between attempts.
	DefaultRetryDelay = time.Second
	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "nestreport/1.0"

	apiVersionHeader = "2022-11-28"

	// maxResponseSize caps API response bodies (10MB).
	maxResponseSize = 10 * 1024 * 1024
)

// ReleaseClient resolves version tags against a GitHub-style Releases API.
type ReleaseClient struct {
	baseURL     string
	owner       string
	repo        string
	token       string
	userAgent   string
	maxAttempts uint
	retryDelay  time.Duration
	client      *http.Client
	logger      *zap.Logger
}

// ReleaseClientConfig configures a ReleaseClient. Zero values take the
// package defaults.
type ReleaseClientConfig struct {
	BaseURL     string
	Owner       string
	Repo        string
	Token       string
	Timeout     time.Duration
	MaxAttempts uint
	RetryDelay  time.Duration
	Logger      *zap.Logger
}

// NewReleaseClient creates a release client.
func NewReleaseClient(cfg ReleaseClientConfig) *ReleaseClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultAPIBase
	}
	if cfg.Owner == "" {
		cfg.Owner = DefaultOwner
	}
	if cfg.Repo == "" {
		cfg.Repo = DefaultRepo
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &ReleaseClient{
		baseURL:     cfg.BaseURL,
		owner:       cfg.Owner,
		repo:        cfg.Repo,
		token:       cfg.Token,
		userAgent:   DefaultUserAgent,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		client:      &http.Client{Timeout: cfg.Timeout},
		logger:      cfg.Logger,
	}
}

// Resolve maps a version string (a concrete tag or VersionLatest) to a
// release descriptor. Transient failures are retried with exponential
// backoff up to the configured attempt budget. If resolving "latest" fails
// outright, the client falls back to listing all releases and taking the
// first non-prerelease entry in server order.
func (c *ReleaseClient) Resolve(ctx context.Context, version string) (*Release, error) {
	endpoint := c.apiURL("repos", c.owner, c.repo, "releases", "tags", version)
	if version == "" || version == VersionLatest {
		version = VersionLatest
		endpoint = c.apiURL("repos", c.owner, c.repo, "releases", "latest")
	}

	release, err := fetchWithRetry(ctx, c, endpoint, func(body io.Reader) (*Release, error) {
		var rel Release
		if err := json.NewDecoder(body).Decode(&rel); err != nil {
			return nil, fmt.Errorf("decode release: %w", err)
		}
		if rel.Tag == "" {
			return nil, fmt.Errorf("malformed release payload: empty tag")
		}
		return &rel, nil
	})
	if err == nil {
		return release, nil
	}

	if version == VersionLatest {
		c.logger.Warn("latest release lookup failed, falling back to release listing", zap.Error(err))
		if rel, listErr := c.latestFromListing(ctx); listErr == nil {
			return rel, nil
		}
	}

	if IsKind(err, KindNetwork) {
		return nil, err
	}
	return nil, newError(KindReleaseNotFound,
		fmt.Sprintf("resolve release %q for %s/%s", version, c.owner, c.repo), err)
}

// latestFromListing lists all releases and returns the first non-prerelease
// entry. The API returns releases newest-first.
func (c *ReleaseClient) latestFromListing(ctx context.Context) (*Release, error) {
	endpoint := c.apiURL("repos", c.owner, c.repo, "releases")

	releases, err := fetchWithRetry(ctx, c, endpoint, func(body io.Reader) (*[]Release, error) {
		var list []Release
		if err := json.NewDecoder(body).Decode(&list); err != nil {
			return nil, fmt.Errorf("decode release list: %w", err)
		}
		return &list, nil
	})
	if err != nil {
		return nil, err
	}

	for i := range *releases {
		if !(*releases)[i].Prerelease {
			return &(*releases)[i], nil
		}
	}
	return nil, newError(KindReleaseNotFound,
		fmt.Sprintf("list releases for %s/%s", c.owner, c.repo),
		fmt.Errorf("no non-prerelease entries"))
}

// fetchWithRetry performs a GET with the standard headers, retrying
// transient failures (timeouts, 5xx, rate limits, connection resets) with
// exponential backoff. Other client errors fail immediately.
func fetchWithRetry[T any](ctx context.Context, c *ReleaseClient, endpoint string, decode func(io.Reader) (T, error)) (T, error) {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.retryDelay

	attempt := 0
	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		var zero T

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return zero, backoff.Permanent(newError(KindNetwork, "build release request", err))
		}
		c.setHeaders(req)

		resp, err := c.client.Do(req)
		if err != nil {
			c.logger.Debug("release request failed",
				zap.String("url", endpoint),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return zero, newError(KindNetwork, fmt.Sprintf("GET %s", endpoint), err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			out, err := decode(io.LimitReader(resp.Body, maxResponseSize))
			if err != nil {
				return zero, backoff.Permanent(err)
			}
			return out, nil
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			c.logger.Debug("release request got transient status",
				zap.String("url", endpoint),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt))
			return zero, newError(KindNetwork,
				fmt.Sprintf("GET %s", endpoint),
				fmt.Errorf("status %d", resp.StatusCode))
		default:
			return zero, backoff.Permanent(fmt.Errorf("status %d", resp.StatusCode))
		}
	}, backoff.WithBackOff(expo), backoff.WithMaxTries(c.maxAttempts))
}

// setHeaders sets the standard release API headers and, when a token is
// configured, the Authorization header.
func (c *ReleaseClient) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-GitHub-Api-Version", apiVersionHeader)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// apiURL joins path segments onto the API base.
func (c *ReleaseClient) apiURL(segments ...string) string {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL
	}
	return base.JoinPath(segments...).String()
}
