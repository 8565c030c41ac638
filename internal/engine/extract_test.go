package engine

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
)

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range files {
		entry, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := entry.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func writeTarGz(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0644, Size: int64(len(content))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestExtractZip(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "release.zip")
	writeZip(t, archive, map[string]string{
		"runtimes/linux-x64/libnestdb.so": "library",
		"README.md":                       "docs",
	})

	dest := filepath.Join(dir, "out")
	got, err := NewExtractor().Extract(archive, dest)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != dest {
		t.Errorf("Extract returned %q, want %q", got, dest)
	}

	data, err := os.ReadFile(filepath.Join(dest, "runtimes", "linux-x64", "libnestdb.so"))
	if err != nil {
		t.Fatalf("read extracted file: %v", err)
	}
	if string(data) != "library" {
		t.Errorf("extracted contents = %q", data)
	}
}

func TestExtractNupkgAsZip(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "nestdb.4.1.4.nupkg")
	writeZip(t, archive, map[string]string{"lib/libnestdb.so": "library"})

	dest := filepath.Join(dir, "out")
	if _, err := NewExtractor().Extract(archive, dest); err != nil {
		t.Fatalf("Extract nupkg: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "lib", "libnestdb.so")); err != nil {
		t.Errorf("extracted file missing: %v", err)
	}
}

func TestExtractTarGz(t *testing.T) {
	for _, ext := range []string{".tar.gz", ".tgz"} {
		t.Run(ext, func(t *testing.T) {
			dir := t.TempDir()
			archive := filepath.Join(dir, "release"+ext)
			writeTarGz(t, archive, map[string]string{"nestdb/libnestdb.so": "library"})

			dest := filepath.Join(dir, "out")
			if _, err := NewExtractor().Extract(archive, dest); err != nil {
				t.Fatalf("Extract: %v", err)
			}
			data, err := os.ReadFile(filepath.Join(dest, "nestdb", "libnestdb.so"))
			if err != nil {
				t.Fatalf("read extracted file: %v", err)
			}
			if string(data) != "library" {
				t.Errorf("extracted contents = %q", data)
			}
		})
	}
}

func TestExtractUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "release.rar")
	if err := os.WriteFile(archive, []byte("rar"), 0644); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(dir, "out")
	_, err := NewExtractor().Extract(archive, dest)
	if !IsKind(err, KindUnsupportedFormat) {
		t.Fatalf("error = %v, want KindUnsupportedFormat", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("destination directory should not exist after an unsupported-format failure")
	}
}

func TestExtractCorruptArchiveKeepsArchive(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "broken.zip")
	if err := os.WriteFile(archive, []byte("not a zip"), 0644); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(dir, "out")
	_, err := NewExtractor().Extract(archive, dest)
	if !IsKind(err, KindExtractFailed) {
		t.Fatalf("error = %v, want KindExtractFailed", err)
	}
	if _, statErr := os.Stat(archive); statErr != nil {
		t.Error("archive should be kept for inspection after a failed extraction")
	}
}

func TestExtractClearsPreviousAttempt(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "release.zip")
	writeZip(t, archive, map[string]string{"libnestdb.so": "library"})

	dest := filepath.Join(dir, "out")
	if err := os.MkdirAll(dest, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dest, "leftover"), []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewExtractor().Extract(archive, dest); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dest, "leftover")); !os.IsNotExist(err) {
		t.Error("previous attempt's contents should be cleared")
	}
}

func TestExtractRejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.zip")
	writeZip(t, archive, map[string]string{"../escape.txt": "evil"})

	dest := filepath.Join(dir, "out")
	if _, err := NewExtractor().Extract(archive, dest); err == nil {
		t.Fatal("expected an error for a traversal entry")
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.txt")); !os.IsNotExist(err) {
		t.Error("traversal entry must not be written outside the destination")
	}
}
