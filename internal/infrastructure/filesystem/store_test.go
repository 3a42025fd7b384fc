package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"btxconv/internal/domain/texture"
)

func newTestStore(t *testing.T, isolate bool) *Store {
	t.Helper()
	root := t.TempDir()
	s := NewStore(filepath.Join(root, "uploads"), filepath.Join(root, "outputs"), isolate)
	if err := s.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	return s
}

func TestWorkspace_UniqueAndReleased(t *testing.T) {
	s := newTestStore(t, true)

	a, err := s.NewWorkspace()
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}
	b, err := s.NewWorkspace()
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}
	if a.ID == b.ID || a.Dir == b.Dir {
		t.Fatalf("workspaces share identity: %s", a.Dir)
	}
	if filepath.Dir(a.Dir) != s.UploadsDir {
		t.Fatalf("workspace outside uploads dir: %s", a.Dir)
	}

	if err := os.WriteFile(a.Path("texture.btx"), []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	s.ReleaseWorkspace(a)
	s.ReleaseWorkspace(a)
	if _, err := os.Stat(a.Dir); !os.IsNotExist(err) {
		t.Fatalf("expected workspace removed, stat err = %v", err)
	}
	if _, err := os.Stat(b.Dir); err != nil {
		t.Fatalf("releasing one workspace touched another: %v", err)
	}
}

func TestOutputPath_IsolatedAndFlat(t *testing.T) {
	isolated := newTestStore(t, true)
	rel, full, err := isolated.OutputPath("batch-1", "job-1", "texture.png")
	if err != nil {
		t.Fatalf("OutputPath: %v", err)
	}
	if rel != "batch-1/job-1/texture.png" {
		t.Fatalf("unexpected rel %q", rel)
	}
	if full != filepath.Join(isolated.OutputsDir, "batch-1", "job-1", "texture.png") {
		t.Fatalf("unexpected full path %q", full)
	}
	if info, err := os.Stat(filepath.Dir(full)); err != nil || !info.IsDir() {
		t.Fatalf("expected job dir to exist: %v", err)
	}

	otherRel, _, err := isolated.OutputPath("batch-1", "job-2", "texture.png")
	if err != nil {
		t.Fatalf("OutputPath: %v", err)
	}
	if otherRel == rel {
		t.Fatalf("two jobs share artifact path %q", rel)
	}

	for _, segment := range []string{"..", "a/b", ".hidden"} {
		if _, _, err := isolated.OutputPath("batch-1", segment, "texture.png"); !errors.Is(err, texture.ErrInvalidName) {
			t.Fatalf("OutputPath(job %q): expected ErrInvalidName, got %v", segment, err)
		}
	}

	flat := newTestStore(t, false)
	rel, full, err = flat.OutputPath("batch-1", "job-1", "texture.png")
	if err != nil {
		t.Fatalf("OutputPath: %v", err)
	}
	if rel != "texture.png" || full != filepath.Join(flat.OutputsDir, "texture.png") {
		t.Fatalf("unexpected flat layout: %q %q", rel, full)
	}
}

func TestClaim_SingleUse(t *testing.T) {
	s := newTestStore(t, true)
	rel, full, err := s.OutputPath("batch-1", "job-1", "texture.png")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte("pixels"), 0o644); err != nil {
		t.Fatal(err)
	}

	claimed, err := s.Claim(rel)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if claimed.Name != "texture.png" || claimed.Size != int64(len("pixels")) {
		t.Fatalf("unexpected claim %+v", claimed)
	}

	if _, err := s.Claim(rel); !errors.Is(err, texture.ErrNotFound) {
		t.Fatalf("second claim: expected ErrNotFound, got %v", err)
	}

	data, err := os.ReadFile(claimed.Path)
	if err != nil || string(data) != "pixels" {
		t.Fatalf("unexpected content %q, %v", data, err)
	}

	if err := s.ReleaseClaim(claimed); err != nil {
		t.Fatalf("ReleaseClaim: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.OutputsDir, "batch-1")); !os.IsNotExist(err) {
		t.Fatalf("expected empty batch dir pruned, stat err = %v", err)
	}
	if _, err := os.Stat(s.OutputsDir); err != nil {
		t.Fatalf("outputs root removed: %v", err)
	}
}

func TestClaim_RejectsTraversalAndMissing(t *testing.T) {
	s := newTestStore(t, false)
	secret := filepath.Join(filepath.Dir(s.OutputsDir), "secret.txt")
	if err := os.WriteFile(secret, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, rel := range []string{"", "missing.png", "../secret.txt", "..", "/"} {
		if _, err := s.Claim(rel); !errors.Is(err, texture.ErrNotFound) {
			t.Fatalf("Claim(%q): expected ErrNotFound, got %v", rel, err)
		}
	}
	if _, err := os.Stat(secret); err != nil {
		t.Fatalf("file outside outputs touched: %v", err)
	}
}

func TestSweepStale(t *testing.T) {
	s := newTestStore(t, true)

	old, err := s.NewWorkspace()
	if err != nil {
		t.Fatal(err)
	}
	fresh, err := s.NewWorkspace()
	if err != nil {
		t.Fatal(err)
	}
	_, oldOutput, err := s.OutputPath("old-batch", "job", "a.png")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(oldOutput, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	past := time.Now().Add(-2 * time.Hour)
	for _, p := range []string{old.Dir, filepath.Dir(filepath.Dir(oldOutput))} {
		if err := os.Chtimes(p, past, past); err != nil {
			t.Fatal(err)
		}
	}

	result, err := s.SweepStale(time.Hour)
	if err != nil {
		t.Fatalf("SweepStale: %v", err)
	}
	if result.Skipped || len(result.Errors) != 0 {
		t.Fatalf("unexpected sweep result %+v", result)
	}
	if len(result.Removed) != 2 {
		t.Fatalf("expected 2 removals, got %v", result.Removed)
	}
	if _, err := os.Stat(old.Dir); !os.IsNotExist(err) {
		t.Fatalf("stale workspace kept")
	}
	if _, err := os.Stat(fresh.Dir); err != nil {
		t.Fatalf("fresh workspace removed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.UploadsDir, sweepLockFile)); err != nil {
		t.Fatalf("lock file removed: %v", err)
	}
}

func TestClaim_IgnoresHiddenFiles(t *testing.T) {
	s := newTestStore(t, false)
	if err := os.WriteFile(filepath.Join(s.OutputsDir, ".partial-a.btx"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Claim(".partial-a.btx"); !errors.Is(err, texture.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for in-flight file, got %v", err)
	}
}

func TestChecksum(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	if err := os.WriteFile(a, []byte("pixels"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("pixels!"), 0o644); err != nil {
		t.Fatal(err)
	}

	sumA, err := Checksum(a)
	if err != nil {
		t.Fatalf("Checksum: %v", err)
	}
	if len(sumA) != 64 {
		t.Fatalf("expected 32-byte hex digest, got %q", sumA)
	}
	again, _ := Checksum(a)
	sumB, _ := Checksum(b)
	if sumA != again || sumA == sumB {
		t.Fatalf("checksum not content-addressed: %s %s %s", sumA, again, sumB)
	}
	if _, err := Checksum(filepath.Join(dir, "missing")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestWriteArtifact(t *testing.T) {
	s := newTestStore(t, true)
	rel, full, err := s.OutputPath("b", "j", "a.btx")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.WriteArtifact(full, []byte("framed")); err != nil {
		t.Fatalf("WriteArtifact: %v", err)
	}

	entries, err := os.ReadDir(filepath.Dir(full))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "a.btx" {
		t.Fatalf("expected only the published artifact, got %v", entries)
	}

	claimed, err := s.Claim(rel)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	defer s.ReleaseClaim(claimed)
	if claimed.Size != int64(len("framed")) {
		t.Fatalf("unexpected size %d", claimed.Size)
	}
}

func TestReleaseClaim_KeepsSiblingJobs(t *testing.T) {
	s := newTestStore(t, true)
	relA, fullA, err := s.OutputPath("batch-1", "job-a", "a.png")
	if err != nil {
		t.Fatal(err)
	}
	_, fullB, err := s.OutputPath("batch-1", "job-b", "a.png")
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{fullA, fullB} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	claimed, err := s.Claim(relA)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := s.ReleaseClaim(claimed); err != nil {
		t.Fatalf("ReleaseClaim: %v", err)
	}
	if _, err := os.Stat(filepath.Dir(fullA)); !os.IsNotExist(err) {
		t.Fatalf("expected empty job dir pruned, stat err = %v", err)
	}
	if _, err := os.Stat(fullB); err != nil {
		t.Fatalf("sibling job artifact removed: %v", err)
	}

	if err := s.ReleaseClaim(texture.ClaimedArtifact{Path: filepath.Join(s.UploadsDir, "x")}); err == nil {
		t.Fatal("expected error for claim outside outputs")
	}
}

func TestPublishFile(t *testing.T) {
	s := newTestStore(t, true)
	ws, err := s.NewWorkspace()
	if err != nil {
		t.Fatal(err)
	}
	defer s.ReleaseWorkspace(ws)

	src := ws.Path("a.png")
	if err := os.WriteFile(src, []byte("pixels"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, full, err := s.OutputPath("b", ws.ID, "a.png")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.PublishFile(src, full); err != nil {
		t.Fatalf("PublishFile: %v", err)
	}
	if data, err := os.ReadFile(full); err != nil || string(data) != "pixels" {
		t.Fatalf("published content = %q, %v", data, err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("expected source moved, stat err = %v", err)
	}

	if err := s.PublishFile(ws.Path("missing.png"), full); !errors.Is(err, texture.ErrStaging) {
		t.Fatalf("expected ErrStaging for missing source, got %v", err)
	}
	if _, err := os.Stat(full); err != nil {
		t.Fatalf("failed publish touched existing artifact: %v", err)
	}
}
