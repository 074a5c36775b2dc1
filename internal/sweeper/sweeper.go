// Package sweeper reclaims storage: expired completed jobs, failed jobs past
// their retention window, and scratch directories nobody owns any more.
//
// A sweep holds an exclusive file lock so the daemon schedule and a manual
// `vidpipe sweep` never run at once. Artifact deletion is best effort: a
// missing file is a warning, other removal errors are logged and counted, and
// the job row is deleted after every artifact has been attempted.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"vidpipe/internal/config"
	"vidpipe/internal/logging"
	"vidpipe/internal/metrics"
	"vidpipe/internal/queue"
	"vidpipe/internal/staging"
	"vidpipe/internal/transcoder"
)

// ErrLocked is returned when another sweep holds the lock.
var ErrLocked = errors.New("sweep already in progress")

const (
	reasonExpired = "expired"
	reasonFailed  = "failed_retention"
)

// Result summarizes one sweep.
type Result struct {
	ExpiredJobs    int      `json:"expiredJobs"`
	FailedJobs     int      `json:"failedJobs"`
	FilesRemoved   int      `json:"filesRemoved"`
	FilesMissing   int      `json:"filesMissing"`
	FileErrors     int      `json:"fileErrors"`
	ScratchRemoved []string `json:"scratchRemoved,omitempty"`
}

// Sweeper deletes expired work from the media root, scratch root and store.
type Sweeper struct {
	store   *queue.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	lock    *flock.Flock
	now     func() time.Time

	mediaDir        string
	scratchDir      string
	failedRetention time.Duration
	scratchMaxAge   time.Duration
}

// Option customizes a Sweeper.
type Option func(*Sweeper)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sweeper) {
		s.metrics = m
	}
}

// WithClock replaces time.Now for retention cutoffs.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds a sweeper from configuration.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, opts ...Option) *Sweeper {
	s := &Sweeper{
		store:           store,
		logger:          logging.NewComponentLogger(logger, "sweeper"),
		lock:            flock.New(cfg.SweepLockPath()),
		now:             time.Now,
		mediaDir:        cfg.Paths.MediaDir,
		scratchDir:      cfg.Paths.ScratchDir,
		failedRetention: cfg.FailedRetention(),
		scratchMaxAge:   cfg.ScratchMaxAge(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Sweep runs one cycle. Store errors abort the cycle; file errors do not.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	var result Result

	locked, err := s.lock.TryLock()
	if err != nil {
		return result, fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !locked {
		return result, ErrLocked
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("failed to release sweep lock", logging.Error(err))
		}
	}()

	started := time.Now()
	expired, err := s.store.ListExpired(ctx)
	if err != nil {
		return result, fmt.Errorf("list expired jobs: %w", err)
	}
	for _, job := range expired {
		if err := s.purge(ctx, job, reasonExpired, &result); err != nil {
			return result, err
		}
		result.ExpiredJobs++
	}

	if s.failedRetention > 0 {
		failed, err := s.store.ListFailedBefore(ctx, s.now().Add(-s.failedRetention))
		if err != nil {
			return result, fmt.Errorf("list failed jobs: %w", err)
		}
		for _, job := range failed {
			if err := s.purge(ctx, job, reasonFailed, &result); err != nil {
				return result, err
			}
			result.FailedJobs++
		}
	}

	if s.scratchMaxAge > 0 {
		cleaned := staging.CleanStale(ctx, s.scratchDir, s.now().Add(-s.scratchMaxAge), s.hasLiveJob, s.logger)
		result.ScratchRemoved = cleaned.Removed
	}

	s.metrics.SweptFiles(result.FilesRemoved, result.FilesMissing)
	s.logger.Info("sweep completed",
		logging.String(logging.FieldEventType, "sweep_completed"),
		logging.Int("expired_jobs", result.ExpiredJobs),
		logging.Int("failed_jobs", result.FailedJobs),
		logging.Int("files_removed", result.FilesRemoved),
		logging.Int("files_missing", result.FilesMissing),
		logging.Int("scratch_removed", len(result.ScratchRemoved)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

// purge removes every file belonging to job, then its row.
func (s *Sweeper) purge(ctx context.Context, job *queue.Job, reason string, result *Result) error {
	logger := s.logger.With(logging.String(logging.FieldJobID, job.ID), logging.String("reason", reason))

	for _, path := range s.artifactPaths(job) {
		s.removeFile(logger, path, result)
	}
	if reason == reasonFailed {
		s.removeOwnedFiles(ctx, logger, job.ID, result)
	}
	if err := os.RemoveAll(queue.ScratchDir(s.scratchDir, job.ID)); err != nil {
		logger.Warn("failed to remove job scratch directory", logging.Error(err))
	}

	deleted, err := s.store.Delete(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("delete job %s: %w", job.ID, err)
	}
	if deleted {
		s.metrics.SweptJob(reason)
		logger.Info("job swept", logging.String(logging.FieldEventType, "job_swept"))
	}
	return nil
}

// artifactPaths lists the media files recorded for job, expanding HLS
// playlists to their segments. Segments come first so the playlist that
// names them is removed last.
func (s *Sweeper) artifactPaths(job *queue.Job) []string {
	var paths []string
	for _, r := range job.Results {
		if r.FileName == "" || filepath.Base(r.FileName) != r.FileName {
			continue
		}
		path := filepath.Join(s.mediaDir, r.FileName)
		if transcoder.IsHLS(r.Format) || filepath.Ext(r.FileName) == ".m3u8" {
			if segments, err := transcoder.PlaylistSegments(path); err == nil {
				paths = append(paths, segments...)
			}
		}
		paths = append(paths, path)
	}
	return paths
}

// removeOwnedFiles clears media files named for jobID that no result recorded.
// A file a longer existing job id also claims belongs to that job.
func (s *Sweeper) removeOwnedFiles(ctx context.Context, logger *slog.Logger, jobID string, result *Result) {
	entries, err := os.ReadDir(s.mediaDir)
	if err != nil {
		logger.Warn("failed to scan media directory", logging.Error(err))
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !queue.OwnedBy(entry.Name(), jobID) {
			continue
		}
		if s.claimedByLongerID(ctx, entry.Name(), jobID) {
			logger.Debug("keeping file owned by another job", logging.String("file", entry.Name()))
			continue
		}
		s.removeFile(logger, filepath.Join(s.mediaDir, entry.Name()), result)
	}
}

// claimedByLongerID reports whether a job whose id extends jobID owns name.
// Lookup errors count as claimed.
func (s *Sweeper) claimedByLongerID(ctx context.Context, name, jobID string) bool {
	for _, candidate := range queue.OwnerCandidates(name) {
		if len(candidate) <= len(jobID) {
			return false
		}
		job, err := s.store.GetJob(ctx, candidate)
		if err != nil || job != nil {
			return true
		}
	}
	return false
}

func (s *Sweeper) removeFile(logger *slog.Logger, path string, result *Result) {
	err := os.Remove(path)
	switch {
	case err == nil:
		result.FilesRemoved++
	case errors.Is(err, os.ErrNotExist):
		result.FilesMissing++
		logging.WarnWithContext(logger, "artifact already missing", "artifact_missing",
			logging.String("path", path),
		)
	default:
		result.FileErrors++
		logging.WarnWithContext(logger, "failed to remove artifact", "artifact_remove_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "disk space not reclaimed"),
		)
	}
}

// hasLiveJob keeps scratch directories of pending and processing jobs. Lookup
// errors keep the directory.
func (s *Sweeper) hasLiveJob(ctx context.Context, name string) bool {
	job, err := s.store.GetJob(ctx, name)
	if err != nil {
		return true
	}
	return job != nil && !job.Status.IsTerminal()
}

// RunEvery sweeps immediately and then on every tick until ctx ends.
func (s *Sweeper) RunEvery(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			if errors.Is(err, ErrLocked) {
				s.logger.Info("sweep skipped; another sweep holds the lock")
			} else {
				s.logger.Error("sweep failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "sweep_failed"),
					logging.String(logging.FieldErrorHint, "check job store access"),
				)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
