package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"vidpipe/internal/logging"
	"vidpipe/internal/metrics"
	"vidpipe/internal/queue"
)

// HeartbeatMonitor keeps claims fresh and fails jobs whose worker went quiet.
type HeartbeatMonitor struct {
	store             *queue.Store
	logger            *slog.Logger
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
	now               func() time.Time
}

// NewHeartbeatMonitor creates a new monitor.
func NewHeartbeatMonitor(store *queue.Store, logger *slog.Logger, interval, timeout time.Duration, now func() time.Time) *HeartbeatMonitor {
	if now == nil {
		now = time.Now
	}
	return &HeartbeatMonitor{
		store:             store,
		logger:            logger,
		heartbeatInterval: interval,
		heartbeatTimeout:  timeout,
		now:               now,
	}
}

// ReclaimStale fails processing jobs whose heartbeat is older than the
// timeout. Jobs are never returned to pending.
func (h *HeartbeatMonitor) ReclaimStale(ctx context.Context, mx *metrics.Metrics) error {
	if h.heartbeatTimeout <= 0 {
		return nil
	}
	cutoff := h.now().Add(-h.heartbeatTimeout)
	failed, err := h.store.FailStale(ctx, cutoff)
	for _, id := range failed {
		mx.JobFinished(queue.StatusFailed, "stale_heartbeat")
		logging.WarnWithContext(h.logger, "failed stale job", "job_reclaimed",
			logging.String(logging.FieldJobID, id),
			logging.Duration("heartbeat_timeout", h.heartbeatTimeout),
			logging.String(logging.FieldImpact, "job marked failed; resubmit to retry"),
		)
	}
	return err
}

// StartLoop refreshes the heartbeat of jobID until ctx ends.
func (h *HeartbeatMonitor) StartLoop(ctx context.Context, wg *sync.WaitGroup, jobID, workerID string) {
	defer wg.Done()
	if h.heartbeatInterval <= 0 {
		return
	}
	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, h.logger.With(logging.String(logging.FieldComponent, "heartbeat")))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.store.Heartbeat(ctx, jobID, workerID); err != nil {
				switch {
				case errors.Is(err, context.Canceled):
					logger.Debug("heartbeat update cancelled")
				case errors.Is(err, queue.ErrConflict):
					logger.Warn("heartbeat rejected; claim no longer held", logging.Error(err))
				default:
					logger.Warn("heartbeat update failed", logging.Error(err))
				}
			}
		}
	}
}
