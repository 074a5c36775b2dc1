package workflow

import (
	"context"
	"errors"
	"log/slog"

	"vidpipe/internal/logging"
	"vidpipe/internal/queue"
	"vidpipe/internal/services"
)

// handleJobFailure writes the failed transition, retrying transient store
// errors. It returns an error only when the failure could not be recorded.
func (m *Manager) handleJobFailure(ctx context.Context, logger *slog.Logger, jobID string, jobErr error) error {
	message := services.FailureMessage(jobErr)
	category := services.Category(jobErr)

	logger.Error("job failed",
		logging.String(logging.FieldEventType, "job_failed"),
		logging.String("category", category),
		logging.String("error_message", message),
		logging.Error(jobErr),
	)

	err := queue.RetryTerminal(ctx, m.cfg.Workflow.TerminalWriteAttempts, m.terminalBackoff, func(ctx context.Context) error {
		return m.store.TransitionStatus(ctx, jobID, queue.StatusFailed, queue.Transition{
			WorkerID: m.workerID,
			Error:    message,
		})
	})
	switch {
	case err == nil:
		m.metrics.JobFinished(queue.StatusFailed, category)
		m.setLastError(jobErr)
		return nil
	case errors.Is(err, queue.ErrConflict):
		logging.WarnWithContext(logger, "job failure not recorded; job is no longer owned by this worker", "claim_lost",
			logging.Error(err),
		)
		m.setLastError(jobErr)
		return nil
	case errors.Is(err, context.Canceled):
		logger.Debug("daemon shutting down, could not record job failure")
		return err
	default:
		logging.ErrorWithContext(logger, "failed to persist job failure", "failure_persist_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check job store access; the reclaimer will fail the job after the heartbeat timeout"),
		)
		m.setLastError(err)
		return err
	}
}
