package testsupport

import (
	"context"
	"testing"

	"vidpipe/internal/config"
	"vidpipe/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config, opts ...queue.Option) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg, opts...)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustCreateJob inserts a pending job with the given options.
func MustCreateJob(t testing.TB, store *queue.Store, id string, opts queue.Options) *queue.Job {
	t.Helper()

	if opts.VideoExtension == "" {
		opts.VideoExtension = "mp4"
	}
	job, err := store.CreateJob(context.Background(), id, id+".mp4", 4096, opts)
	if err != nil {
		t.Fatalf("store.CreateJob: %v", err)
	}
	return job
}

// MustClaim claims a pending job for workerID and returns the refreshed row.
func MustClaim(t testing.TB, store *queue.Store, id, workerID string) *queue.Job {
	t.Helper()

	ctx := context.Background()
	won, err := store.Claim(ctx, id, workerID)
	if err != nil {
		t.Fatalf("store.Claim: %v", err)
	}
	if !won {
		t.Fatalf("expected to win claim for %s", id)
	}
	job, err := store.GetJob(ctx, id)
	if err != nil || job == nil {
		t.Fatalf("store.GetJob: %v", err)
	}
	return job
}
