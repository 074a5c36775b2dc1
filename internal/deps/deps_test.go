package deps_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"vidpipe/internal/deps"
	"vidpipe/internal/testsupport"
)

func writeStub(t *testing.T, dir, name, script string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestCheckBinaries(t *testing.T) {
	present := writeStub(t, t.TempDir(), "present", "#!/bin/sh\nexit 0\n")
	reqs := []deps.Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := deps.CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %q", results[2].Detail)
	}
	if deps.AllAvailable(results) {
		t.Fatal("expected AllAvailable to be false")
	}
}

func TestCheckTranscoderRecordsVersion(t *testing.T) {
	dir := t.TempDir()
	cfg := testsupport.NewConfig(t)
	cfg.Transcoder.FFmpegBinary = writeStub(t, dir, "ffmpeg", "#!/bin/sh\necho 'ffmpeg version 7.1 Copyright'\necho 'built with gcc'\n")
	cfg.Transcoder.FFprobeBinary = writeStub(t, dir, "ffprobe", "#!/bin/sh\nexit 3\n")

	statuses := deps.CheckTranscoder(context.Background(), cfg)
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if !statuses[0].Available || statuses[0].Version != "ffmpeg version 7.1 Copyright" {
		t.Fatalf("unexpected ffmpeg status %#v", statuses[0])
	}
	if statuses[1].Available || statuses[1].Detail == "" {
		t.Fatalf("expected failing ffprobe to be unavailable, got %#v", statuses[1])
	}
}
