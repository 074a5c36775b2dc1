package workflow

import (
	"context"
	"errors"
	"time"

	"vidpipe/internal/logging"
)

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if m.runner == nil {
		m.mu.Unlock()
		return errors.New("workflow runner not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	m.logger.Info("dispatcher started",
		logging.String(logging.FieldEventType, "dispatcher_start"),
		logging.Duration("poll_interval", m.pollInterval),
	)
	go m.loop(runCtx)
	return nil
}

// Stop terminates background processing and waits for the current job to return.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.logger.Info("dispatcher stopped", logging.String(logging.FieldEventType, "dispatcher_stop"))
}

func (m *Manager) loop(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		processed, err := m.ProcessNext(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			m.handleLoopError(ctx, err)
		case !processed:
			m.waitForJobOrShutdown(ctx)
		}
	}
}

// ProcessNext runs one dispatcher iteration: reclaim stale jobs, pick the
// oldest pending job, claim it and run it to a terminal state. It reports
// whether a job was claimed. A lost claim returns (true, nil) so the caller
// polls again without sleeping.
func (m *Manager) ProcessNext(ctx context.Context) (bool, error) {
	if err := m.heartbeat.ReclaimStale(ctx, m.metrics); err != nil {
		logging.WarnWithContext(m.logger, "reclaim stale processing failed; stuck jobs may remain", "heartbeat_reclaim_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check job store access"),
		)
	}

	job, err := m.store.NextPending(ctx)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	won, err := m.store.Claim(ctx, job.ID, m.workerID)
	if err != nil {
		return false, err
	}
	if !won {
		m.logger.Debug("claim lost to another worker", logging.String(logging.FieldJobID, job.ID))
		return true, nil
	}
	m.metrics.JobClaimed()

	// Options and source fields never change after creation, so the pending
	// snapshot is enough to run the claimed job.
	return true, m.processJob(ctx, job)
}

func (m *Manager) handleLoopError(ctx context.Context, err error) {
	m.setLastError(err)
	m.logger.Error("dispatcher iteration failed",
		logging.Error(err),
		logging.String(logging.FieldEventType, "dispatch_failed"),
		logging.String(logging.FieldErrorHint, "check job store access"),
	)
	select {
	case <-ctx.Done():
	case <-time.After(m.errorRetry):
	}
}

func (m *Manager) waitForJobOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}
