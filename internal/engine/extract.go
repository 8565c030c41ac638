package engine

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Extractor unpacks downloaded archives into a scratch directory. Dispatch
// is purely by file extension: .zip and .nupkg are ZIP (a NuGet package is
// a ZIP with extra metadata, ignored here), .tar.gz and .tgz are gzip+tar.
type Extractor struct{}

// NewExtractor creates a new extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract unpacks archivePath into destDir and returns destDir. An
// unsupported extension fails before the destination is touched, so no
// partial output directory is created. For supported formats the
// destination is removed and recreated first, so a previous failed attempt
// cannot contaminate this one. On extraction failure the archive itself is
// left in place for manual inspection.
func (e *Extractor) Extract(archivePath, destDir string) (string, error) {
	var unpack func(string, string) error
	switch archiveExt(archivePath) {
	case ".zip", ".nupkg":
		unpack = extractZip
	case ".tar.gz", ".tgz":
		unpack = extractTarGz
	default:
		return "", newError(KindUnsupportedFormat,
			fmt.Sprintf("extract %s", archivePath),
			fmt.Errorf("no extractor for %q", filepath.Base(archivePath)))
	}

	if err := os.RemoveAll(destDir); err != nil {
		return "", newError(KindExtractFailed, fmt.Sprintf("clear %s", destDir), err)
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", newError(KindExtractFailed, fmt.Sprintf("create %s", destDir), err)
	}

	if err := unpack(archivePath, destDir); err != nil {
		return "", newError(KindExtractFailed, fmt.Sprintf("extract %s", archivePath), err)
	}
	return destDir, nil
}

// extractZip unpacks a ZIP archive.
func extractZip(archivePath, destDir string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		target, err := safeJoin(destDir, file.Name)
		if err != nil {
			return err
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("create parent dir for %s: %w", target, err)
		}

		src, err := file.Open()
		if err != nil {
			return fmt.Errorf("open zip entry %s: %w", file.Name, err)
		}

		mode := file.Mode().Perm()
		if mode == 0 {
			mode = 0644
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
		if err != nil {
			src.Close()
			return fmt.Errorf("create file %s: %w", target, err)
		}

		if _, err := io.Copy(out, src); err != nil {
			out.Close()
			src.Close()
			return fmt.Errorf("write file %s: %w", target, err)
		}
		out.Close()
		src.Close()
	}

	return nil
}

// extractTarGz unpacks a gzip-compressed tar archive.
func extractTarGz(archivePath, destDir string) error {
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer archiveFile.Close()

	gzipReader, err := gzip.NewReader(archiveFile)
	if err != nil {
		return fmt.Errorf("create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	tarReader := tar.NewReader(gzipReader)

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		target, err := safeJoin(destDir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}

		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("create parent dir for %s: %w", target, err)
			}

			outFile, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode))
			if err != nil {
				return fmt.Errorf("create file %s: %w", target, err)
			}

			if _, err := io.Copy(outFile, tarReader); err != nil {
				outFile.Close()
				return fmt.Errorf("write file %s: %w", target, err)
			}
			outFile.Close()

		case tar.TypeSymlink:
			if err := os.Symlink(header.Linkname, target); err != nil {
				return fmt.Errorf("create symlink %s: %w", target, err)
			}

		default:
			// Skip other types (char devices, block devices, etc.)
			continue
		}
	}

	return nil
}

// safeJoin joins an archive entry name onto the destination, rejecting path
// traversal.
func safeJoin(destDir, name string) (string, error) {
	target := filepath.Join(destDir, name)
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("illegal file path: %s", name)
	}
	return target, nil
}
