package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"vidpipe/internal/logging"
	"vidpipe/internal/pipeline"
	"vidpipe/internal/queue"
	"vidpipe/internal/services"
)

// processJob runs a claimed job. Pipeline failures are recorded on the job and
// are not returned; the error result is reserved for terminal writes that
// could not be persisted.
func (m *Manager) processJob(ctx context.Context, job *queue.Job) error {
	requestID := uuid.NewString()
	jobCtx := services.WithJobID(ctx, job.ID)
	jobCtx = services.WithWorkerID(jobCtx, m.workerID)
	jobCtx = services.WithRequestID(jobCtx, requestID)
	logger := logging.WithContext(jobCtx, m.logger)

	m.setCurrentJob(job.ID)
	defer m.setCurrentJob("")

	logger.Info("job claimed",
		logging.String(logging.FieldEventType, "job_claimed"),
		logging.String("original_file", job.OriginalFileName),
		logging.Int64("original_size", job.OriginalFileSize),
	)

	req := pipeline.Request{
		JobID:     job.ID,
		WorkerID:  m.workerID,
		Options:   job.Options,
		InputPath: queue.StagedInputPath(m.cfg.Paths.ScratchDir, job.ID, job.Options.VideoExtension),
	}
	started := time.Now()
	_, execErr := m.executeWithHeartbeat(jobCtx, job.ID, req)

	switch {
	case execErr == nil:
		m.metrics.JobFinished(queue.StatusCompleted, "")
		logger.Info("job finished",
			logging.String(logging.FieldEventType, "job_finished"),
			logging.String("status", string(queue.StatusCompleted)),
			logging.Duration("elapsed", time.Since(started)),
		)
	case errors.Is(execErr, context.Canceled) && ctx.Err() != nil:
		logger.Info("job interrupted by shutdown; the heartbeat reclaimer will fail it",
			logging.String(logging.FieldEventType, "job_interrupted"),
		)
		return execErr
	case errors.Is(execErr, queue.ErrConflict):
		logging.WarnWithContext(logger, "job no longer owned by this worker", "claim_lost",
			logging.Error(execErr),
			logging.String(logging.FieldImpact, "results of this run were discarded"),
		)
	default:
		if err := m.handleJobFailure(jobCtx, logger, job.ID, execErr); err != nil {
			m.refreshLastJob(ctx, job.ID)
			return err
		}
	}
	m.refreshLastJob(ctx, job.ID)
	return nil
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, jobID string, req pipeline.Request) ([]queue.StepResult, error) {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, jobID, m.workerID)

	results, err := m.runner.Execute(ctx, req)
	hbCancel()
	hbWG.Wait()
	return results, err
}

func (m *Manager) refreshLastJob(ctx context.Context, id string) {
	job, err := m.store.GetJob(ctx, id)
	if err != nil || job == nil {
		return
	}
	m.setLastJob(job)
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
}
