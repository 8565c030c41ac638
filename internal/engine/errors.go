package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a fatal resolution error.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNotFound: no local candidate loaded and auto-install was
	// unavailable or declined.
	KindNotFound
	// KindNetwork: transient API or download transport failure.
	KindNetwork
	// KindReleaseNotFound: the tag does not exist, or retries and the
	// listing fallback were exhausted.
	KindReleaseNotFound
	// KindDownloadFailed: the asset could not be streamed to the cache.
	KindDownloadFailed
	// KindUnsupportedFormat: the archive extension is not handled.
	KindUnsupportedFormat
	// KindExtractFailed: the archive could not be unpacked.
	KindExtractFailed
	// KindInstallFailed: the library could not be copied or re-verified in
	// the install directory.
	KindInstallFailed
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not-found"
	case KindNetwork:
		return "network-error"
	case KindReleaseNotFound:
		return "release-not-found"
	case KindDownloadFailed:
		return "download-failed"
	case KindUnsupportedFormat:
		return "unsupported-format"
	case KindExtractFailed:
		return "extract-failed"
	case KindInstallFailed:
		return "install-failed"
	default:
		return "unknown"
	}
}

// Error is the resolver's fatal error type. It carries the attempted action
// and the underlying cause; NotFound errors additionally list every searched
// path so users can self-diagnose without a verbose re-run.
type Error struct {
	Kind     Kind
	Action   string
	Searched []string
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Kind, e.Action)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if len(e.Searched) > 0 {
		b.WriteString("\nsearched locations:")
		for _, p := range e.Searched {
			b.WriteString("\n  ")
			b.WriteString(p)
		}
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// newError creates a fatal resolution error.
func newError(kind Kind, action string, err error) *Error {
	return &Error{Kind: kind, Action: action, Err: err}
}

// IsKind reports whether err is an engine Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
