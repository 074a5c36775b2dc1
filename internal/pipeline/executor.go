package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"vidpipe/internal/config"
	"vidpipe/internal/logging"
	"vidpipe/internal/metrics"
	"vidpipe/internal/queue"
	"vidpipe/internal/services"
	"vidpipe/internal/transcoder"
)

// ProgressStep is the fixed progress increment for each enabled step type.
const ProgressStep = 20

// JobStore is the slice of the job store the executor writes to.
type JobStore interface {
	UpdateProgress(ctx context.Context, id string, percent int) error
	TransitionStatus(ctx context.Context, id string, next queue.Status, t queue.Transition) error
}

// Request identifies the job to run and where its input is staged.
type Request struct {
	JobID     string
	WorkerID  string
	Options   queue.Options
	InputPath string
}

// Executor drives the transcoder through a job's steps.
type Executor struct {
	store   JobStore
	engine  transcoder.Transcoder
	logger  *slog.Logger
	metrics *metrics.Metrics

	mediaDir         string
	scratchDir       string
	stepTimeout      time.Duration
	terminalAttempts int
	terminalBackoff  time.Duration

	seq atomic.Uint64
}

// Option customizes an Executor.
type Option func(*Executor)

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

// WithTerminalBackoff sets the initial delay between completed-write retries.
func WithTerminalBackoff(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.terminalBackoff = d
		}
	}
}

// WithStepTimeout overrides the configured per-invocation deadline.
func WithStepTimeout(d time.Duration) Option {
	return func(e *Executor) {
		e.stepTimeout = d
	}
}

// NewExecutor wires an executor from configuration.
func NewExecutor(cfg *config.Config, store JobStore, engine transcoder.Transcoder, logger *slog.Logger, opts ...Option) *Executor {
	e := &Executor{
		store:            store,
		engine:           engine,
		logger:           logging.NewComponentLogger(logger, "pipeline"),
		mediaDir:         cfg.Paths.MediaDir,
		scratchDir:       cfg.Paths.ScratchDir,
		stepTimeout:      cfg.StepTimeout(),
		terminalAttempts: cfg.Workflow.TerminalWriteAttempts,
		terminalBackoff:  200 * time.Millisecond,
	}
	// Seeded from the clock so names stay ordered across restarts.
	e.seq.Store(uint64(time.Now().UnixMilli()))
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Execute runs every enabled step for req and, on success, persists the
// completed state. The returned results are in pipeline order. On failure no
// artifact of this run remains on disk.
func (e *Executor) Execute(ctx context.Context, req Request) ([]queue.StepResult, error) {
	if e.store == nil || e.engine == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "execute", "executor is missing its store or transcoder", nil)
	}
	ctx = services.WithJobID(ctx, req.JobID)
	ctx = services.WithWorkerID(ctx, req.WorkerID)
	r := &run{
		exec:    e,
		req:     req,
		opts:    req.Options.Normalize(),
		working: req.InputPath,
		logger:  logging.WithContext(ctx, e.logger),
	}
	started := time.Now()

	if err := r.execute(ctx); err != nil {
		r.discard()
		return nil, err
	}

	e.cleanScratch(r.logger, req.JobID)

	err := queue.RetryTerminal(ctx, e.terminalAttempts, e.terminalBackoff, func(ctx context.Context) error {
		return e.store.TransitionStatus(ctx, req.JobID, queue.StatusCompleted, queue.Transition{
			WorkerID: req.WorkerID,
			Results:  r.results,
		})
	})
	if err != nil {
		r.logger.Error("failed to persist job completion",
			logging.Error(err),
			logging.String(logging.FieldEventType, "completion_persist_failed"),
			logging.String(logging.FieldErrorHint, "check job store access; the reclaimer will fail the job"),
		)
		r.discard()
		return nil, err
	}

	r.logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_completed"),
		logging.Int("artifacts", len(r.results)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return r.results, nil
}

// disambiguator returns a process-unique, strictly increasing token for
// converted output names.
func (e *Executor) disambiguator() uint64 {
	return e.seq.Add(1)
}

func (e *Executor) cleanScratch(logger *slog.Logger, jobID string) {
	dir := queue.ScratchDir(e.scratchDir, jobID)
	if err := os.RemoveAll(dir); err != nil {
		logging.WarnWithContext(logger, "failed to remove scratch directory", "scratch_cleanup_failed",
			logging.String("path", dir),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale scratch is removed by the sweeper"),
		)
	}
}

func (e *Executor) mediaPath(name string) string {
	return filepath.Join(e.mediaDir, name)
}

// stepError marks a failed invocation as a transcode failure for step. A
// deadline expiry on the step context becomes a timeout.
func stepError(step string, stepCtx, parent context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(stepCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, services.ErrTimeout) {
		return services.Wrap(services.ErrTranscode, step, "run", "Step deadline exceeded", errors.Join(services.ErrTimeout, err))
	}
	if errors.Is(err, services.ErrTranscode) || errors.Is(err, services.ErrStorage) {
		return err
	}
	return services.Wrap(services.ErrTranscode, step, "run", "Transcoder failed", err)
}
