package fileutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestCopyVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mp4")
	dst := filepath.Join(dir, "nested", "dst.mp4")

	content := bytes.Repeat([]byte("frame"), 4096)
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	written, err := CopyVerified(context.Background(), src, dst)
	if err != nil {
		t.Fatal(err)
	}
	if written != int64(len(content)) {
		t.Fatalf("written = %d, want %d", written, len(content))
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Fatal("content mismatch")
	}
	if _, err := os.Stat(dst + partialSuffix); !os.IsNotExist(err) {
		t.Fatal("partial file should not remain")
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatal("source should remain after copy")
	}
}

func TestCopyVerifiedCancelled(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mp4")
	dst := filepath.Join(dir, "dst.mp4")
	if err := os.WriteFile(src, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := CopyVerified(ctx, src, dst); err == nil {
		t.Fatal("expected cancellation error")
	}
	for _, path := range []string{dst, dst + partialSuffix} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("%s should not exist after a cancelled copy", path)
		}
	}
}

func TestCopyVerifiedMissingSource(t *testing.T) {
	dir := t.TempDir()
	if _, err := CopyVerified(context.Background(), filepath.Join(dir, "nope"), filepath.Join(dir, "dst")); err == nil {
		t.Fatal("expected error for missing source")
	}
	if _, err := CopyVerified(context.Background(), dir, filepath.Join(dir, "dst")); err == nil {
		t.Fatal("expected error for directory source")
	}
}

func TestMove(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mov")
	dst := filepath.Join(dir, "job", "job.mov")
	if err := os.WriteFile(src, []byte("movie"), 0o644); err != nil {
		t.Fatal(err)
	}

	written, err := Move(context.Background(), src, dst)
	if err != nil {
		t.Fatal(err)
	}
	if written != 5 {
		t.Fatalf("written = %d, want 5", written)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatal("source should be gone after move")
	}
	if got, _ := os.ReadFile(dst); string(got) != "movie" {
		t.Fatalf("unexpected destination content %q", got)
	}
}
