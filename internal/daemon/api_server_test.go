package daemon

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vidpipe/internal/api"
	"vidpipe/internal/config"
	"vidpipe/internal/metrics"
	"vidpipe/internal/pipeline"
	"vidpipe/internal/queue"
	"vidpipe/internal/sweeper"
	"vidpipe/internal/testsupport"
	"vidpipe/internal/workflow"
)

func newTestDaemon(t *testing.T, cfg *config.Config, opts ...Option) (*Daemon, *queue.Store) {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	engine := &testsupport.FakeTranscoder{}
	mgr := workflow.NewManager(cfg, store, pipeline.NewExecutor(cfg, store, engine, nil), nil)
	d, err := New(cfg, store, nil, mgr, sweeper.New(cfg, store, nil), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d, store
}

func completeJob(t *testing.T, cfg *config.Config, store *queue.Store, id string) []queue.StepResult {
	t.Helper()
	testsupport.MustCreateJob(t, store, id, queue.Options{GeneratePoster: true})
	testsupport.MustClaim(t, store, id, "w1")
	results := []queue.StepResult{{Kind: queue.KindPoster, FileName: queue.PosterName(id, "png"), Size: 64}}
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.MediaDir, results[0].FileName), 64)
	if err := store.TransitionStatus(context.Background(), id, queue.StatusCompleted, queue.Transition{WorkerID: "w1", Results: results}); err != nil {
		t.Fatalf("complete %s: %v", id, err)
	}
	return results
}

func serve(d *Daemon, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	d.api.handler.ServeHTTP(w, req)
	return w
}

func TestAPIServerListsJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPublicBaseURL("https://cdn.example.com"))
	d, store := newTestDaemon(t, cfg)
	testsupport.MustCreateJob(t, store, "pending-1", queue.Options{GeneratePoster: true})
	completeJob(t, cfg, store, "done-1")

	w := serve(d, http.MethodGet, "/api/jobs")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var resp api.JobListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(resp.Jobs))
	}

	w = serve(d, http.MethodGet, "/api/jobs?status=completed")
	resp = api.JobListResponse{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Jobs) != 1 || resp.Jobs[0].ID != "done-1" {
		t.Fatalf("unexpected filtered jobs %+v", resp.Jobs)
	}
	ref := resp.Jobs[0].StepResults[0].DownloadRef
	if ref != "https://cdn.example.com/view/done-1-poster.png" {
		t.Fatalf("unexpected download ref %q", ref)
	}

	if w := serve(d, http.MethodGet, "/api/jobs?status=bogus"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", w.Code)
	}
}

func TestAPIServerDescribeJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, store := newTestDaemon(t, cfg)
	testsupport.MustCreateJob(t, store, "job-a", queue.Options{RemoveAudio: true})

	w := serve(d, http.MethodGet, "/api/jobs/job-a")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp api.JobResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Job.Status != "pending" || resp.Job.Progress != 0 || resp.Job.InitialSize != 4096 {
		t.Fatalf("unexpected report %+v", resp.Job)
	}
	if strings.Contains(w.Body.String(), "stepResults") || strings.Contains(w.Body.String(), "finalSize") {
		t.Fatalf("pending report leaked results: %s", w.Body.String())
	}

	if w := serve(d, http.MethodGet, "/api/jobs/missing"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if w := serve(d, http.MethodPost, "/api/jobs/job-a"); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestAPIServerViewServesArtifacts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, store := newTestDaemon(t, cfg)
	results := completeJob(t, cfg, store, "view-1")

	w := serve(d, http.MethodGet, "/view/"+results[0].FileName)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("unexpected content type %q", ct)
	}
	body, _ := io.ReadAll(w.Body)
	if len(body) != 64 {
		t.Fatalf("expected 64 bytes, got %d", len(body))
	}

	if w := serve(d, http.MethodGet, "/view/unknown-poster.png"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown file, got %d", w.Code)
	}
	if w := serve(d, http.MethodGet, "/view/view-1-123.webm"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing file on disk, got %d", w.Code)
	}
}

func TestAPIServerViewExpired(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	clock := testsupport.NewClock(time.Now())
	d, store := newTestDaemon(t, cfg, WithClock(clock.Now))
	results := completeJob(t, cfg, store, "old-1")

	clock.Advance(cfg.JobTTL() + time.Hour)
	if w := serve(d, http.MethodGet, "/view/"+results[0].FileName); w.Code != http.StatusGone {
		t.Fatalf("expected 410 for expired artifact, got %d", w.Code)
	}
}

func TestAPIServerMetrics(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	mx := metrics.New()
	d, store := newTestDaemon(t, cfg, WithMetrics(mx))
	testsupport.MustCreateJob(t, store, "m-1", queue.Options{GeneratePoster: true})
	if err := mx.RefreshStatus(context.Background(), store); err != nil {
		t.Fatalf("RefreshStatus: %v", err)
	}

	w := serve(d, http.MethodGet, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `vidpipe_jobs{status="pending"} 1`) {
		t.Fatalf("expected pending gauge in metrics output:\n%s", w.Body.String())
	}
}
