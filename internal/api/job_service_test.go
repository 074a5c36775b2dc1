package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"vidpipe/internal/queue"
)

type stubJobReader struct {
	jobs    map[string]*queue.Job
	listErr error
	lookups []string
}

func (s *stubJobReader) List(context.Context, ...queue.Status) ([]*queue.Job, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]*queue.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job)
	}
	return out, nil
}

func (s *stubJobReader) Stats(context.Context) (map[queue.Status]int, error) {
	stats := make(map[queue.Status]int)
	for _, job := range s.jobs {
		stats[job.Status]++
	}
	return stats, nil
}

func (s *stubJobReader) GetJob(_ context.Context, id string) (*queue.Job, error) {
	s.lookups = append(s.lookups, id)
	return s.jobs[id], nil
}

func TestJobServiceListNewestFirst(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := NewJobService(&stubJobReader{jobs: map[string]*queue.Job{
		"old": {ID: "old", Status: queue.StatusPending, CreatedAt: base},
		"new": {ID: "new", Status: queue.StatusPending, CreatedAt: base.Add(time.Minute)},
	}}, "")

	reports, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(reports) != 2 || reports[0].ID != "new" || reports[1].ID != "old" {
		t.Fatalf("unexpected order %+v", reports)
	}
}

func TestJobServiceListError(t *testing.T) {
	sentinel := errors.New("boom")
	svc := NewJobService(&stubJobReader{listErr: sentinel}, "")
	if _, err := svc.List(context.Background()); !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel, got %v", err)
	}
}

func TestJobServiceDescribeMissing(t *testing.T) {
	svc := NewJobService(&stubJobReader{jobs: map[string]*queue.Job{}}, "")
	report, err := svc.Describe(context.Background(), "nope")
	if err != nil || report != nil {
		t.Fatalf("expected nil report, got %+v, %v", report, err)
	}
}

func TestResolveArtifact(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	id := "6f1c2e1a-8d4b-4a55-9d7e-0c1b2a3d4e5f"
	reader := &stubJobReader{jobs: map[string]*queue.Job{
		id:        {ID: id, Status: queue.StatusCompleted, ExpiresAt: now.Add(time.Hour)},
		"expired": {ID: "expired", Status: queue.StatusCompleted, ExpiresAt: now.Add(-time.Hour)},
		"running": {ID: "running", Status: queue.StatusProcessing, ExpiresAt: now.Add(time.Hour)},
	}}
	svc := NewJobService(reader, "")

	job, err := svc.ResolveArtifact(context.Background(), id+"-poster.png", now)
	if err != nil || job == nil || job.ID != id {
		t.Fatalf("expected owner %s, got %+v, %v", id, job, err)
	}
	if job, err := svc.ResolveArtifact(context.Background(), id+".mp4", now); err != nil || job.ID != id {
		t.Fatalf("expected compressed artifact owner, got %v", err)
	}
	if _, err := svc.ResolveArtifact(context.Background(), "expired-123.webm", now); !errors.Is(err, ErrArtifactExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
	if _, err := svc.ResolveArtifact(context.Background(), "running.mp4", now); !errors.Is(err, ErrArtifactNotFound) {
		t.Fatalf("expected not found for in-flight job, got %v", err)
	}
	for _, name := range []string{"unknown-1.mp4", "../etc/passwd", ".hidden", ""} {
		if _, err := svc.ResolveArtifact(context.Background(), name, now); !errors.Is(err, ErrArtifactNotFound) {
			t.Fatalf("%q: expected not found, got %v", name, err)
		}
	}
}

func TestContentType(t *testing.T) {
	cases := map[string]string{
		"a.mp4":        "video/mp4",
		"a.WEBM":       "video/webm",
		"a-poster.jpg": "image/jpeg",
		"a.m3u8":       "application/vnd.apple.mpegurl",
		"a-001.ts":     "video/mp2t",
		"a.bin":        "application/octet-stream",
	}
	for name, want := range cases {
		if got := ContentType(name); got != want {
			t.Fatalf("%s: got %q, want %q", name, got, want)
		}
	}
}
