package workflow

import (
	"context"

	"vidpipe/internal/logging"
	"vidpipe/internal/queue"
)

// StatusSummary represents lightweight dispatcher diagnostics.
type StatusSummary struct {
	Running    bool                 `json:"running"`
	WorkerID   string               `json:"workerId"`
	CurrentJob string               `json:"currentJob,omitempty"`
	Processed  int                  `json:"processed"`
	LastError  string               `json:"lastError,omitempty"`
	LastJob    *queue.Job           `json:"-"`
	QueueStats map[queue.Status]int `json:"queueStats"`
}

// Status returns the latest dispatcher information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{
		Running:    m.running,
		WorkerID:   m.workerID,
		CurrentJob: m.currentJob,
		Processed:  m.processed,
	}
	lastErr := m.lastErr
	lastJob := m.lastJob
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	}
	summary.QueueStats = stats
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastJob != nil {
		copy := *lastJob
		summary.LastJob = &copy
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastJob(job *queue.Job) {
	m.mu.Lock()
	if job != nil {
		copy := *job
		m.lastJob = &copy
	} else {
		m.lastJob = nil
	}
	m.mu.Unlock()
}

func (m *Manager) setCurrentJob(id string) {
	m.mu.Lock()
	m.currentJob = id
	m.mu.Unlock()
}
