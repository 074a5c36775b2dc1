package services_test

import (
	"context"
	"testing"

	"vidpipe/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobID(ctx, "job-1")
	ctx = services.WithStep(ctx, "compress")
	ctx = services.WithWorkerID(ctx, "worker-a")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.JobIDFromContext(ctx); !ok || id != "job-1" {
		t.Fatalf("unexpected job id: %v %v", id, ok)
	}
	if step, ok := services.StepFromContext(ctx); !ok || step != "compress" {
		t.Fatalf("unexpected step: %v %v", step, ok)
	}
	if worker, ok := services.WorkerIDFromContext(ctx); !ok || worker != "worker-a" {
		t.Fatalf("unexpected worker id: %v %v", worker, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStep(ctx, "")
	ctx = services.WithJobID(ctx, "")
	if _, ok := services.StepFromContext(ctx); ok {
		t.Fatal("expected no step value")
	}
	if _, ok := services.JobIDFromContext(ctx); ok {
		t.Fatal("expected no job id value")
	}
}
