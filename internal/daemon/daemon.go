package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"vidpipe/internal/api"
	"vidpipe/internal/config"
	"vidpipe/internal/deps"
	"vidpipe/internal/logging"
	"vidpipe/internal/metrics"
	"vidpipe/internal/preflight"
	"vidpipe/internal/queue"
	"vidpipe/internal/services"
	"vidpipe/internal/sweeper"
	"vidpipe/internal/workflow"
)

const metricsRefreshInterval = 15 * time.Second

// Daemon coordinates the background processing services and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager
	sweeper  *sweeper.Sweeper
	metrics  *metrics.Metrics
	jobs     *api.JobService
	api      *apiServer
	now      func() time.Time

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Workflow     workflow.StatusSummary
	Store        queue.DatabaseHealth
	LockFilePath string
	Dependencies []deps.Status
}

// Option customizes a Daemon.
type Option func(*Daemon)

// WithMetrics exposes mx on /metrics and refreshes its queue gauge.
func WithMetrics(mx *metrics.Metrics) Option {
	return func(d *Daemon) {
		d.metrics = mx
	}
}

// WithClock overrides the time source used for artifact expiry.
func WithClock(now func() time.Time) Option {
	return func(d *Daemon) {
		if now != nil {
			d.now = now
		}
	}
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager, sw *sweeper.Sweeper, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil || sw == nil {
		return nil, errors.New("daemon requires config, store, workflow manager and sweeper")
	}

	lockPath := cfg.DaemonLockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		sweeper:  sw,
		jobs:     api.NewJobService(store, cfg.API.PublicBaseURL),
		now:      time.Now,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, runs preflight checks and launches the
// dispatcher, the sweep schedule and the HTTP server.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another vidpipe daemon instance is already running")
	}

	if err := preflight.FirstFailure(preflight.RunAll(ctx, d.cfg, d.store)); err != nil {
		_ = d.lock.Unlock()
		return services.Wrap(services.ErrConfiguration, "daemon", "preflight", err.Error(), nil)
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		d.api.stop()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}

	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		d.sweeper.RunEvery(runCtx, d.cfg.SweepInterval())
	}()
	go func() {
		defer d.wg.Done()
		d.refreshMetrics(runCtx)
	}()

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("vidpipe daemon started",
		logging.String(logging.FieldEventType, "daemon_start"),
		logging.String("lock", d.lockPath),
		logging.String("worker_id", d.workflow.WorkerID()),
		logging.String("api", d.api.address()),
	)
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}

	d.cancel()
	d.cancel = nil
	d.workflow.Stop()
	d.wg.Wait()
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("vidpipe daemon stopped", logging.String(logging.FieldEventType, "daemon_stop"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the HTTP listener address, empty before Start.
func (d *Daemon) Addr() string {
	return d.api.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Workflow:     d.workflow.Status(ctx),
		Store:        d.store.CheckHealth(ctx),
		LockFilePath: d.lockPath,
		Dependencies: deps.CheckBinaries(deps.TranscoderRequirements(d.cfg)),
	}
}

func (d *Daemon) refreshMetrics(ctx context.Context) {
	if d.metrics == nil {
		return
	}
	ticker := time.NewTicker(metricsRefreshInterval)
	defer ticker.Stop()
	for {
		if err := d.metrics.RefreshStatus(ctx, d.store); err != nil && ctx.Err() == nil {
			d.logger.Debug("queue gauge refresh failed", logging.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
