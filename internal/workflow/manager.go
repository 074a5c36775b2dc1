package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"vidpipe/internal/config"
	"vidpipe/internal/logging"
	"vidpipe/internal/metrics"
	"vidpipe/internal/pipeline"
	"vidpipe/internal/queue"
)

// Runner executes one claimed job.
type Runner interface {
	Execute(ctx context.Context, req pipeline.Request) ([]queue.StepResult, error)
}

// Manager coordinates job processing for one worker process.
type Manager struct {
	cfg     *config.Config
	store   *queue.Store
	runner  Runner
	logger  *slog.Logger
	metrics *metrics.Metrics

	workerID        string
	pollInterval    time.Duration
	errorRetry      time.Duration
	terminalBackoff time.Duration
	now             func() time.Time

	heartbeat *HeartbeatMonitor

	mu         sync.RWMutex
	running    bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	lastErr    error
	lastJob    *queue.Job
	currentJob string
	processed  int
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithWorkerID fixes the claim owner recorded on jobs. A random id is used otherwise.
func WithWorkerID(id string) ManagerOption {
	return func(m *Manager) {
		if id != "" {
			m.workerID = id
		}
	}
}

func WithMetrics(mx *metrics.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = mx
	}
}

// WithTerminalBackoff sets the initial delay between failed-write retries.
func WithTerminalBackoff(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.terminalBackoff = d
		}
	}
}

// WithPollInterval overrides the idle poll delay.
func WithPollInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.pollInterval = d
		}
	}
}

// WithClock replaces time.Now for reclaimer cutoffs.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager constructs a dispatcher for store feeding runner.
func NewManager(cfg *config.Config, store *queue.Store, runner Runner, logger *slog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		cfg:             cfg,
		store:           store,
		runner:          runner,
		workerID:        "worker-" + uuid.NewString(),
		pollInterval:    cfg.PollInterval(),
		errorRetry:      cfg.ErrorRetryInterval(),
		terminalBackoff: 200 * time.Millisecond,
		now:             time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	m.logger = logging.NewComponentLogger(logger, "dispatcher").With(logging.String(logging.FieldWorkerID, m.workerID))
	m.heartbeat = NewHeartbeatMonitor(store, m.logger, cfg.HeartbeatInterval(), cfg.HeartbeatTimeout(), m.now)
	return m
}

// WorkerID returns the owner id this manager claims jobs under.
func (m *Manager) WorkerID() string {
	return m.workerID
}
