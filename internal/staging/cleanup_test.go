package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vidpipe/internal/logging"
)

func makeDir(t *testing.T, path string, age time.Duration) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if age > 0 {
		stamp := time.Now().Add(-age)
		if err := os.Chtimes(path, stamp, stamp); err != nil {
			t.Fatalf("chtimes %s: %v", path, err)
		}
	}
}

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Now(), nil, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	oldDir := filepath.Join(tmpDir, "old-job")
	makeDir(t, oldDir, 2*time.Hour)
	recentDir := filepath.Join(tmpDir, "recent-job")
	makeDir(t, recentDir, 0)

	result := CleanStale(context.Background(), tmpDir, time.Now().Add(-time.Hour), nil, logging.NewNop())

	if len(result.Removed) != 1 || result.Removed[0] != oldDir {
		t.Fatalf("expected only %s removed, got %v", oldDir, result.Removed)
	}
	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Error("old directory should have been removed")
	}
	if _, err := os.Stat(recentDir); err != nil {
		t.Error("recent directory should still exist")
	}
}

func TestCleanStaleSkipsLiveJobs(t *testing.T) {
	tmpDir := t.TempDir()
	live := filepath.Join(tmpDir, "live-job")
	dead := filepath.Join(tmpDir, "dead-job")
	makeDir(t, live, 3*time.Hour)
	makeDir(t, dead, 3*time.Hour)

	keep := func(_ context.Context, name string) bool { return name == "live-job" }
	result := CleanStale(context.Background(), tmpDir, time.Now().Add(-time.Hour), keep, nil)

	if len(result.Removed) != 1 || result.Removed[0] != dead {
		t.Fatalf("expected only dead-job removed, got %v", result.Removed)
	}
	if _, err := os.Stat(live); err != nil {
		t.Fatal("live job directory must be kept")
	}
}

func TestListDirectoriesReportsSize(t *testing.T) {
	tmpDir := t.TempDir()
	jobDir := filepath.Join(tmpDir, "job-1")
	makeDir(t, jobDir, 0)
	if err := os.WriteFile(filepath.Join(jobDir, "job-1.mp4"), make([]byte, 300), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "stray.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	dirs, err := ListDirectories(tmpDir)
	if err != nil {
		t.Fatalf("ListDirectories: %v", err)
	}
	if len(dirs) != 1 || dirs[0].Name != "job-1" || dirs[0].Size != 300 {
		t.Fatalf("unexpected directories %+v", dirs)
	}
}
