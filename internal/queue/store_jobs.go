package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CreateJob inserts a pending job. Options are normalized and validated first;
// invalid options never produce a row.
func (s *Store) CreateJob(ctx context.Context, id, originalName string, originalSize int64, opts Options) (*Job, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("job id is required")
	}
	opts = opts.Normalize()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("encode options: %w", err)
	}

	now := s.now().UTC()
	expires := now.Add(s.ttl)
	res, err := s.execWithRetry(ctx,
		`INSERT INTO jobs (id, original_file_name, original_file_size, conversion_type, status, progress, options, created_at, expires_at, updated_at)
         VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?, ?)
         ON CONFLICT (id) DO NOTHING`,
		id, originalName, originalSize, ConversionTypeMultiStep, string(StatusPending), string(payload),
		formatTime(now), formatTime(expires), formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("insert job rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	return s.GetJob(ctx, id)
}

// GetJob fetches a job by id. A missing job yields (nil, nil).
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	row := s.queryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

// NextPending returns the oldest pending job, or nil when none is waiting.
func (s *Store) NextPending(ctx context.Context) (*Job, error) {
	row := s.queryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY created_at ASC, id ASC LIMIT 1`,
		string(StatusPending),
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next pending job: %w", err)
	}
	return job, nil
}

// Claim atomically moves a pending job to processing on behalf of workerID.
// It reports false, without error, when another caller won the claim.
func (s *Store) Claim(ctx context.Context, id, workerID string) (bool, error) {
	if strings.TrimSpace(workerID) == "" {
		return false, fmt.Errorf("%w: claim requires a worker id", ErrInvalidTransition)
	}
	now := formatTime(s.now())
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, worker_id = ?, start_time = ?, last_heartbeat = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		string(StatusProcessing), workerID, now, now, now,
		id, string(StatusPending),
	)
	if err != nil {
		return false, fmt.Errorf("claim job %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim job %s rows affected: %w", id, err)
	}
	return affected == 1, nil
}

// UpdateProgress raises the stored progress of a processing job. Lower values
// are ignored so progress never decreases.
func (s *Store) UpdateProgress(ctx context.Context, id string, percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if _, err := s.execWithRetry(ctx,
		`UPDATE jobs SET progress = CASE WHEN progress < ? THEN ? ELSE progress END, updated_at = ?
         WHERE id = ? AND status = ?`,
		percent, percent, formatTime(s.now()),
		id, string(StatusProcessing),
	); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// Heartbeat refreshes the liveness timestamp of a processing job owned by
// workerID. ErrConflict means the claim was lost.
func (s *Store) Heartbeat(ctx context.Context, id, workerID string) error {
	now := formatTime(s.now())
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ? AND status = ? AND worker_id = ?`,
		now, now, id, string(StatusProcessing), workerID,
	)
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("%w: job %s is not processing for worker %s", ErrConflict, id, workerID)
	}
	return nil
}

// List returns jobs filtered by status, oldest first. No statuses means all.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	var args []any
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		args = statusArgs(statuses)
	}
	query += ` ORDER BY created_at ASC, id ASC`
	return s.listJobs(ctx, "list jobs", query, args...)
}

// ListExpired returns completed jobs whose expires_at is in the past.
func (s *Store) ListExpired(ctx context.Context) ([]*Job, error) {
	return s.listJobs(ctx, "list expired jobs",
		`SELECT `+jobColumns+` FROM jobs WHERE status = ? AND expires_at < ? ORDER BY expires_at ASC`,
		string(StatusCompleted), formatTime(s.now()),
	)
}

// ListFailedBefore returns failed jobs that ended before cutoff.
func (s *Store) ListFailedBefore(ctx context.Context, cutoff time.Time) ([]*Job, error) {
	return s.listJobs(ctx, "list failed jobs",
		`SELECT `+jobColumns+` FROM jobs WHERE status = ? AND COALESCE(end_time, created_at) < ? ORDER BY created_at ASC`,
		string(StatusFailed), formatTime(cutoff),
	)
}

// Exists reports whether a row with id is present.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var count int
	if err := s.queryRow(ctx, `SELECT COUNT(1) FROM jobs WHERE id = ?`, id).Scan(&count); err != nil {
		return false, fmt.Errorf("check job %s: %w", id, err)
	}
	return count > 0, nil
}

// Delete removes a job row. It reports whether a row was removed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete job %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *Store) listJobs(ctx context.Context, op, query string, args ...any) ([]*Job, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return jobs, nil
}
