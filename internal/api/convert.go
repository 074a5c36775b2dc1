package api

import (
	"net/url"
	"strings"
	"time"

	"vidpipe/internal/queue"
	"vidpipe/internal/workflow"
)

// FromJob converts a job into its client report. baseURL prefixes download
// references; an empty base yields root-relative links.
func FromJob(job *queue.Job, baseURL string) Report {
	if job == nil {
		return Report{}
	}
	report := Report{
		ID:               job.ID,
		OriginalFileName: job.OriginalFileName,
		Status:           string(job.Status),
		Progress:         job.Progress,
		InitialSize:      job.OriginalFileSize,
		CreatedAt:        formatTime(job.CreatedAt),
		UpdatedAt:        formatTime(job.UpdatedAt),
		ExpiresAt:        formatTime(job.ExpiresAt),
	}
	switch job.Status {
	case queue.StatusCompleted:
		final := job.FinalSize()
		report.FinalSize = &final
		report.StepResults = make([]StepReport, 0, len(job.Results))
		for _, result := range job.Results {
			report.StepResults = append(report.StepResults, StepReport{
				Kind:        result.Label(),
				Format:      result.Format,
				FileName:    result.FileName,
				FileSize:    result.Size,
				DownloadRef: DownloadRef(baseURL, result.FileName),
			})
		}
	case queue.StatusFailed:
		report.Error = job.ErrorMessage
	}
	return report
}

// FromJobs converts a slice of jobs preserving order.
func FromJobs(jobs []*queue.Job, baseURL string) []Report {
	if len(jobs) == 0 {
		return nil
	}
	out := make([]Report, 0, len(jobs))
	for _, job := range jobs {
		if job == nil {
			continue
		}
		out = append(out, FromJob(job, baseURL))
	}
	return out
}

// DownloadRef builds the /view link for an artifact.
func DownloadRef(baseURL, fileName string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/view/" + url.PathEscape(fileName)
}

// FromStatusSummary converts a dispatcher summary.
func FromStatusSummary(summary workflow.StatusSummary, baseURL string) WorkflowStatus {
	status := WorkflowStatus{
		Running:    summary.Running,
		WorkerID:   summary.WorkerID,
		CurrentJob: summary.CurrentJob,
		Processed:  summary.Processed,
		QueueStats: MergeQueueStats(summary.QueueStats),
		LastError:  summary.LastError,
	}
	if summary.LastJob != nil {
		last := FromJob(summary.LastJob, baseURL)
		status.LastJob = &last
	}
	return status
}

// MergeQueueStats keys counts by status name and includes every status, zero
// or not.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(queue.AllStatuses()))
	for _, status := range queue.AllStatuses() {
		out[string(status)] = stats[status]
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// ParseTime reads a timestamp produced by this package.
func ParseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}
