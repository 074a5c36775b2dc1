package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"vidpipe/internal/queue"
	"vidpipe/internal/testsupport"
)

type healthStub struct {
	health queue.DatabaseHealth
}

func (h healthStub) CheckHealth(context.Context) queue.DatabaseHealth { return h.health }

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed || result.Detail == "" {
		t.Fatalf("expected failure with detail for missing dir, got %+v", result)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckDirectoryAccess("test", f); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckStore(t *testing.T) {
	if result := CheckStore(context.Background(), nil); result.Passed {
		t.Fatal("expected failure without a store")
	}
	down := CheckStore(context.Background(), healthStub{queue.DatabaseHealth{Driver: "postgres", Error: "connection refused"}})
	if down.Passed {
		t.Fatal("expected failure for unreachable store")
	}
	up := CheckStore(context.Background(), healthStub{queue.DatabaseHealth{Driver: "sqlite", Reachable: true, SchemaVersion: 1}})
	if !up.Passed {
		t.Fatalf("expected pass, got %s", up.Detail)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil, nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_ReadyHost(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cfg.Transcoder.FFmpegBinary = "ffmpeg"
	cfg.Transcoder.FFprobeBinary = "ffprobe"
	store := testsupport.MustOpenStore(t, cfg)

	results := RunAll(context.Background(), cfg, store)
	if len(results) != 6 {
		t.Fatalf("expected 6 results, got %d", len(results))
	}
	if err := FirstFailure(results); err != nil {
		t.Fatalf("expected all checks to pass: %v", err)
	}
}

func TestRunAll_MissingBinaryFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Transcoder.FFmpegBinary = "clearly-not-ffmpeg"
	store := testsupport.MustOpenStore(t, cfg)

	if err := FirstFailure(RunAll(context.Background(), cfg, store)); err == nil {
		t.Fatal("expected failure for missing ffmpeg")
	}
}

func TestCheckDaemon(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"running":true,"workflow":{"workerId":"worker-1"}}`))
	}))
	defer srv.Close()

	result := CheckDaemon(context.Background(), srv.URL)
	if !result.Passed || result.Detail != "running as worker-1" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCheckDaemon_Disabled(t *testing.T) {
	if result := CheckDaemon(context.Background(), ""); result.Passed || result.Detail != "API disabled" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCheckDaemon_NotRunning(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()
	if result := CheckDaemon(context.Background(), addr); result.Passed {
		t.Fatal("expected failure for closed server")
	}
}

func TestDaemonBaseURL(t *testing.T) {
	cases := map[string]string{
		":7070":          "http://127.0.0.1:7070",
		"0.0.0.0:7070":   "http://0.0.0.0:7070",
		"http://host:1/": "http://host:1",
		"  ":             "",
	}
	for in, want := range cases {
		if got := daemonBaseURL(in); got != want {
			t.Fatalf("%q: got %q, want %q", in, got, want)
		}
	}
}
