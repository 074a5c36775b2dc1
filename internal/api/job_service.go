package api

import (
	"context"
	"sort"

	"vidpipe/internal/queue"
)

// JobReader abstracts the store queries needed to answer clients.
type JobReader interface {
	List(ctx context.Context, statuses ...queue.Status) ([]*queue.Job, error)
	Stats(ctx context.Context) (map[queue.Status]int, error)
	GetJob(ctx context.Context, id string) (*queue.Job, error)
}

// JobService exposes read-only job queries returning API DTOs.
type JobService struct {
	store   JobReader
	baseURL string
}

// NewJobService constructs a JobService around the provided reader.
func NewJobService(store JobReader, baseURL string) *JobService {
	if store == nil {
		return nil
	}
	return &JobService{store: store, baseURL: baseURL}
}

// List returns reports filtered by status, newest first.
func (s *JobService) List(ctx context.Context, statuses ...queue.Status) ([]Report, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	jobs, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return SortNewestFirst(FromJobs(jobs, s.baseURL)), nil
}

// Stats returns job counts keyed by status string.
func (s *JobService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeQueueStats(stats), nil
}

// Describe fetches a single report. A missing job yields (nil, nil).
func (s *JobService) Describe(ctx context.Context, id string) (*Report, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	job, err := s.store.GetJob(ctx, id)
	if err != nil || job == nil {
		return nil, err
	}
	report := FromJob(job, s.baseURL)
	return &report, nil
}

// SortNewestFirst orders reports by CreatedAt descending, breaking ties by ID descending.
func SortNewestFirst(reports []Report) []Report {
	if len(reports) == 0 {
		return nil
	}
	sorted := make([]Report, len(reports))
	copy(sorted, reports)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti := ParseTime(sorted[i].CreatedAt)
		tj := ParseTime(sorted[j].CreatedAt)
		if ti.Equal(tj) {
			return sorted[i].ID > sorted[j].ID
		}
		return ti.After(tj)
	})
	return sorted
}
