package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFetchDownloadsAndCaches(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte("archive-bytes"))
	}))
	defer server.Close()

	d := NewDownloader(t.TempDir(), 0, nil, nil)
	asset := Asset{Name: "nestdb-linux-x64.tar.gz", Size: 13, DownloadURL: server.URL + "/a.tar.gz"}

	first, err := d.Fetch(context.Background(), asset)
	if err != nil {
		t.Fatalf("first Fetch: %v", err)
	}
	data, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("read cached file: %v", err)
	}
	if string(data) != "archive-bytes" {
		t.Errorf("cached contents = %q", data)
	}
	if !strings.HasSuffix(first, ".tar.gz") {
		t.Errorf("cache path %q should keep the compound extension", first)
	}

	second, err := d.Fetch(context.Background(), asset)
	if err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if second != first {
		t.Errorf("cache path changed between fetches: %q vs %q", first, second)
	}
	if requests != 1 {
		t.Errorf("server saw %d requests, want 1 (second fetch should hit cache)", requests)
	}
}

func TestFetchStaleEntryRedownloaded(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte("fresh"))
	}))
	defer server.Close()

	cacheDir := t.TempDir()
	d := NewDownloader(cacheDir, time.Hour, nil, nil)
	asset := Asset{Name: "a.zip", Size: 5, DownloadURL: server.URL + "/a.zip"}

	path, err := d.Fetch(context.Background(), asset)
	if err != nil {
		t.Fatal(err)
	}

	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	if _, err := d.Fetch(context.Background(), asset); err != nil {
		t.Fatal(err)
	}
	if requests != 2 {
		t.Errorf("server saw %d requests, want 2 after the entry aged out", requests)
	}
}

func TestFetchDistinctKeysPerURLAndSize(t *testing.T) {
	d := NewDownloader(t.TempDir(), 0, nil, nil)

	a := Asset{Name: "a.zip", Size: 10, DownloadURL: "https://example.com/a.zip"}
	b := a
	b.Size = 11
	c := a
	c.DownloadURL = "https://example.com/other.zip"

	if d.CachePath(a) == d.CachePath(b) {
		t.Error("same key for different sizes")
	}
	if d.CachePath(a) == d.CachePath(c) {
		t.Error("same key for different URLs")
	}
}

func TestFetchFailureLeavesNoPartialEntry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cacheDir := t.TempDir()
	d := NewDownloader(cacheDir, 0, nil, nil)
	asset := Asset{Name: "a.zip", Size: 5, DownloadURL: server.URL + "/a.zip"}

	_, err := d.Fetch(context.Background(), asset)
	if !IsKind(err, KindDownloadFailed) {
		t.Fatalf("error = %v, want KindDownloadFailed", err)
	}

	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		t.Errorf("unexpected leftover cache entry %s", e.Name())
	}
}

func TestFetchReportsProgress(t *testing.T) {
	payload := strings.Repeat("x", 4096)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	defer server.Close()

	var lastRead, lastTotal int64
	progress := func(read, total int64) {
		lastRead, lastTotal = read, total
	}

	d := NewDownloader(t.TempDir(), 0, progress, nil)
	asset := Asset{Name: "a.zip", Size: int64(len(payload)), DownloadURL: server.URL + "/a.zip"}

	if _, err := d.Fetch(context.Background(), asset); err != nil {
		t.Fatal(err)
	}
	if lastRead != int64(len(payload)) {
		t.Errorf("final progress read = %d, want %d", lastRead, len(payload))
	}
	if lastTotal != int64(len(payload)) {
		t.Errorf("progress total = %d, want %d", lastTotal, len(payload))
	}
}

func TestFetchZeroByteCacheEntryIgnored(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte("real"))
	}))
	defer server.Close()

	cacheDir := t.TempDir()
	d := NewDownloader(cacheDir, 0, nil, nil)
	asset := Asset{Name: "a.zip", Size: 4, DownloadURL: server.URL + "/a.zip"}

	// Simulate a corrupt empty entry from an interrupted earlier run.
	if err := os.WriteFile(d.CachePath(asset), nil, 0644); err != nil {
		t.Fatal(err)
	}

	path, err := d.Fetch(context.Background(), asset)
	if err != nil {
		t.Fatal(err)
	}
	if requests != 1 {
		t.Errorf("server saw %d requests, want 1", requests)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "real" {
		t.Errorf("cache contents = %q", data)
	}
}

func TestCachePathInsideCacheDir(t *testing.T) {
	dir := t.TempDir()
	d := NewDownloader(dir, 0, nil, nil)
	path := d.CachePath(Asset{Name: "a.zip", Size: 1, DownloadURL: "u"})
	if filepath.Dir(path) != dir {
		t.Errorf("CachePath %q not inside %q", path, dir)
	}
}
