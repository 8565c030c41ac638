package engine

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Installer copies a verified library into the install directory, writes
// the version marker, and confirms the installed copy loads.
type Installer struct {
	installDir string
	probe      *Probe
	logger     *zap.Logger
}

// NewInstaller creates an installer for the given directory.
func NewInstaller(installDir string, probe *Probe, logger *zap.Logger) *Installer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Installer{installDir: installDir, probe: probe, logger: logger}
}

// Install copies srcPath into the install directory under its own basename,
// writes the version marker with the resolved tag, and probes the installed
// copy. The probe result is returned so the caller can surface any
// compatibility warning.
func (i *Installer) Install(srcPath, tag string) (ProbeResult, error) {
	if err := os.MkdirAll(i.installDir, 0755); err != nil {
		return ProbeResult{}, newError(KindInstallFailed, "create install dir", err)
	}

	destPath := filepath.Join(i.installDir, filepath.Base(srcPath))
	if err := copyFile(srcPath, destPath); err != nil {
		return ProbeResult{}, newError(KindInstallFailed,
			fmt.Sprintf("copy %s into %s", srcPath, i.installDir), err)
	}

	if err := i.writeMarker(tag); err != nil {
		return ProbeResult{}, newError(KindInstallFailed, "write version marker", err)
	}

	result := i.probe.Run(destPath)
	if !result.Loaded {
		return result, newError(KindInstallFailed,
			fmt.Sprintf("verify installed library %s", destPath),
			fmt.Errorf("%s: %s", result.Failure, result.Message))
	}

	i.logger.Info("engine installed",
		zap.String("path", destPath),
		zap.String("version", tag))
	return result, nil
}

// writeMarker writes the version marker file: plain text, single line, the
// resolved tag.
func (i *Installer) writeMarker(tag string) error {
	marker := filepath.Join(i.installDir, VersionMarkerFile)
	return os.WriteFile(marker, []byte(tag+"\n"), 0644)
}

// Record reports what is currently installed, without loading anything.
func (i *Installer) Record(basenames []string) InstallationRecord {
	rec := InstallationRecord{InstallDir: i.installDir}

	for _, name := range basenames {
		path := filepath.Join(i.installDir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() && info.Size() >= MinLibrarySize {
			rec.LibraryPath = path
			rec.Valid = true
			break
		}
	}

	if data, err := os.ReadFile(filepath.Join(i.installDir, VersionMarkerFile)); err == nil {
		rec.Version = strings.TrimSpace(string(data))
	}
	return rec
}

// copyFile copies src to dst, preserving the source's permission bits.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copy contents: %w", err)
	}
	return out.Close()
}
