package engine

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestBuildCandidatesOrder(t *testing.T) {
	in := CandidateInput{
		UserPath:   "/custom/libnestdb.so",
		InstallDir: "/install",
		ExeDir:     "/exe",
		DBDir:      "/db",
		WorkDir:    "/work",
		PathDirs:   []string{"/p1", "/p2"},
		WellKnown:  []string{"/usr/local/lib"},
	}
	basenames := []string{"libnestdb.so", "nestdb.so"}

	got := BuildCandidates(in, basenames)

	want := []Candidate{
		{Path: "/custom/libnestdb.so", Origin: OriginUser},
		{Path: filepath.Join("/install", "libnestdb.so"), Origin: OriginInstallDir},
		{Path: filepath.Join("/install", "nestdb.so"), Origin: OriginInstallDir},
		{Path: filepath.Join("/exe", "libnestdb.so"), Origin: OriginExeDir},
		{Path: filepath.Join("/exe", "nestdb.so"), Origin: OriginExeDir},
		{Path: filepath.Join("/db", "libnestdb.so"), Origin: OriginDBDir},
		{Path: filepath.Join("/db", "nestdb.so"), Origin: OriginDBDir},
		{Path: filepath.Join("/work", "libnestdb.so"), Origin: OriginWorkDir},
		{Path: filepath.Join("/work", "nestdb.so"), Origin: OriginWorkDir},
		{Path: filepath.Join("/p1", "libnestdb.so"), Origin: OriginPathEntry},
		{Path: filepath.Join("/p1", "nestdb.so"), Origin: OriginPathEntry},
		{Path: filepath.Join("/p2", "libnestdb.so"), Origin: OriginPathEntry},
		{Path: filepath.Join("/p2", "nestdb.so"), Origin: OriginPathEntry},
		{Path: filepath.Join("/usr/local/lib", "libnestdb.so"), Origin: OriginWellKnown},
		{Path: filepath.Join("/usr/local/lib", "nestdb.so"), Origin: OriginWellKnown},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("candidate order mismatch:\ngot  %v\nwant %v", got, want)
	}
}

func TestBuildCandidatesDedup(t *testing.T) {
	// Install dir and work dir coincide; the first origin wins.
	in := CandidateInput{
		InstallDir: "/same",
		WorkDir:    "/same",
	}
	got := BuildCandidates(in, []string{"libnestdb.so"})

	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	if got[0].Origin != OriginInstallDir {
		t.Errorf("Origin = %v, want OriginInstallDir", got[0].Origin)
	}
}

func TestBuildCandidatesEmptyFieldsSkipped(t *testing.T) {
	got := BuildCandidates(CandidateInput{ExeDir: "/exe"}, []string{"libnestdb.so"})
	if len(got) != 1 || got[0].Path != filepath.Join("/exe", "libnestdb.so") {
		t.Errorf("unexpected candidates: %v", got)
	}
}

func TestCandidatePaths(t *testing.T) {
	cands := []Candidate{
		{Path: "/a", Origin: OriginUser},
		{Path: "/b", Origin: OriginExeDir},
	}
	got := CandidatePaths(cands)
	if !reflect.DeepEqual(got, []string{"/a", "/b"}) {
		t.Errorf("CandidatePaths = %v", got)
	}
}
