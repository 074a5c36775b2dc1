package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vidpipe/internal/services"
)

// TransitionStatus writes a forward state change. The write only applies when
// the row is in one of the allowed source states for next (and owned by
// t.WorkerID when set); otherwise ErrConflict is returned. A completed write
// stores the results and sets progress to exactly 100 in the same statement.
// Database failures carry services.ErrPersistence.
func (s *Store) TransitionStatus(ctx context.Context, id string, next Status, t Transition) error {
	froms, ok := transitions[next]
	if !ok {
		return fmt.Errorf("%w: unsupported target %q", ErrInvalidTransition, next)
	}
	if next == StatusProcessing {
		won, err := s.Claim(ctx, id, t.WorkerID)
		if errors.Is(err, ErrInvalidTransition) {
			return err
		}
		if err != nil {
			return services.Wrap(services.ErrPersistence, "", "transition", "claim", err)
		}
		if !won {
			return s.conflict(ctx, id, next)
		}
		return nil
	}

	now := formatTime(s.now())
	var (
		sets []string
		args []any
	)
	switch next {
	case StatusCompleted:
		cols, err := splitResults(t.Results)
		if err != nil {
			return err
		}
		sets = []string{
			"status = ?", "progress = 100", "converted_files = ?", "compressed_file_name = ?",
			"compressed_file_size = ?", "audio_removed = ?", "audio_removed_file = ?",
			"poster_file_name = ?", "poster_file_size = ?", "error_message = NULL",
			"end_time = ?", "updated_at = ?",
		}
		args = []any{
			string(next), cols.convertedFiles, cols.compressedName, cols.compressedSize,
			cols.audioRemoved, cols.audioRemovedFile, cols.posterName, cols.posterSize,
			now, now,
		}
	case StatusFailed:
		msg := strings.TrimSpace(t.Error)
		if msg == "" {
			return errors.New("failed transition requires an error message")
		}
		sets = []string{"status = ?", "error_message = ?", "end_time = ?", "updated_at = ?"}
		args = []any{string(next), msg, now, now}
	}

	query := `UPDATE jobs SET ` + strings.Join(sets, ", ") +
		` WHERE id = ? AND status IN (` + makePlaceholders(len(froms)) + `)`
	args = append(args, id)
	args = append(args, statusArgs(froms)...)
	if t.WorkerID != "" {
		query += ` AND worker_id = ?`
		args = append(args, t.WorkerID)
	}

	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "", "transition", "write "+string(next), err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return services.Wrap(services.ErrPersistence, "", "transition", "rows affected", err)
	}
	if affected == 0 {
		return s.conflict(ctx, id, next)
	}
	return nil
}

func (s *Store) conflict(ctx context.Context, id string, next Status) error {
	current, err := s.GetJob(ctx, id)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "", "transition", "reload", err)
	}
	if current == nil {
		return fmt.Errorf("%w: job %s", services.ErrNotFound, id)
	}
	return fmt.Errorf("%w: job %s is %s (owner %q), cannot move to %s",
		ErrConflict, id, current.Status, current.WorkerID, next)
}

// FailStale fails processing jobs whose last heartbeat is older than cutoff.
// Their worker is gone or could not persist a terminal state. Jobs are never
// returned to pending.
func (s *Store) FailStale(ctx context.Context, cutoff time.Time) ([]string, error) {
	stale, err := s.listJobs(ctx, "list stale jobs",
		`SELECT `+jobColumns+` FROM jobs
         WHERE status = ? AND COALESCE(last_heartbeat, start_time, created_at) < ?`,
		string(StatusProcessing), formatTime(cutoff),
	)
	if err != nil {
		return nil, err
	}
	var failed []string
	for _, job := range stale {
		now := formatTime(s.now())
		res, err := s.execWithRetry(ctx,
			`UPDATE jobs SET status = ?, error_message = ?, end_time = ?, updated_at = ?
             WHERE id = ? AND status = ? AND COALESCE(last_heartbeat, start_time, created_at) < ?`,
			string(StatusFailed), StaleHeartbeatReason, now, now,
			job.ID, string(StatusProcessing), formatTime(cutoff),
		)
		if err != nil {
			return failed, fmt.Errorf("fail stale job %s: %w", job.ID, err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 1 {
			failed = append(failed, job.ID)
		}
	}
	return failed, nil
}
