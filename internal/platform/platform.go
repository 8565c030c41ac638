// Package platform provides host platform detection and the platform-specific
// naming used to locate and download the NestDB engine library.
//
// It detects OS, architecture, and (on Linux) distribution details, and maps
// them to the file names and release-asset tokens the engine ships under.
// Distro detection uses gopsutil and falls back gracefully when it fails;
// basic OS/arch information is always available.
package platform

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// Info contains platform detection information.
type Info struct {
	OS      string // "linux", "darwin", "windows"
	Arch    string // "amd64", "arm64" (normalized)
	ArchRaw string // original GOARCH
	Distro  string // distro ID (Linux only, e.g. "ubuntu")
	Version string // distro version (Linux only)
}

// Detector performs platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}

// RealDetector implements Detector using the running host.
type RealDetector struct{}

// NewDetector creates a new platform detector.
func NewDetector() Detector {
	return &RealDetector{}
}

// Detect returns platform information for the running host.
// On Linux, distro details come from gopsutil; if that fails, the distro
// fields stay empty and detection still succeeds with OS/arch only.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	info := &Info{
		OS:      runtime.GOOS,
		ArchRaw: runtime.GOARCH,
	}

	arch, err := normalizeArch(runtime.GOARCH)
	if err != nil {
		return nil, fmt.Errorf("platform detection failed: %w", err)
	}
	info.Arch = arch

	if runtime.GOOS == "linux" {
		distro, _, version, err := host.PlatformInformationWithContext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
			}
			// Graceful fallback: OS/arch is enough for engine resolution.
			return info, nil
		}
		info.Distro = distro
		info.Version = version
	}

	return info, nil
}

// normalizeArch maps GOARCH values to the architectures the engine ships for.
func normalizeArch(goarch string) (string, error) {
	switch goarch {
	case "amd64", "arm64":
		return goarch, nil
	default:
		return "", fmt.Errorf("unsupported architecture: %s", goarch)
	}
}

// ArchToken returns the architecture token used in engine release asset names.
func (i *Info) ArchToken() string {
	switch i.Arch {
	case "amd64":
		return "x64"
	case "arm64":
		return "arm64"
	default:
		return i.Arch
	}
}

// OSToken returns the OS token used in engine release asset names.
func (i *Info) OSToken() string {
	switch i.OS {
	case "windows":
		return "win"
	case "darwin":
		return "osx"
	default:
		return i.OS
	}
}
