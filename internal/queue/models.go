package queue

import (
	"time"
)

// Status represents the lifecycle of a conversion job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ConversionTypeMultiStep is the only conversion type the pipeline produces.
const ConversionTypeMultiStep = "multi_step"

// StaleHeartbeatReason is stored on jobs failed by the heartbeat reclaimer.
const StaleHeartbeatReason = "worker stopped reporting progress; job abandoned"

var allStatuses = []Status{StatusPending, StatusProcessing, StatusCompleted, StatusFailed}

// transitions lists the allowed source states for each target state. Nothing
// ever returns to pending.
var transitions = map[Status][]Status{
	StatusProcessing: {StatusPending},
	StatusCompleted:  {StatusPending, StatusProcessing},
	StatusFailed:     {StatusPending, StatusProcessing},
}

// AllStatuses returns every job status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a user supplied string to a Status.
func ParseStatus(value string) (Status, bool) {
	for _, status := range allStatuses {
		if string(status) == value {
			return status, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next is a forward transition.
func (s Status) CanTransition(next Status) bool {
	for _, from := range transitions[next] {
		if from == s {
			return true
		}
	}
	return false
}

// StepKind identifies which pipeline step produced an artifact.
type StepKind string

const (
	KindAudioRemoved StepKind = "audio-removed"
	KindCompressed   StepKind = "compressed"
	KindConverted    StepKind = "converted"
	KindPoster       StepKind = "poster"
)

// StepResult describes one artifact produced by one successful step.
type StepResult struct {
	Kind StepKind `json:"kind"`
	// Format is set for converted artifacts (webm, mov, hls...).
	Format   string `json:"format,omitempty"`
	FileName string `json:"fileName"`
	Size     int64  `json:"fileSize"`
}

// Label returns the kind, tagged with the format for converted artifacts.
func (r StepResult) Label() string {
	if r.Kind == KindConverted && r.Format != "" {
		return string(r.Kind) + "<" + r.Format + ">"
	}
	return string(r.Kind)
}

// Job is a persisted unit of requested conversion work.
type Job struct {
	ID               string
	OriginalFileName string
	OriginalFileSize int64
	ConversionType   string
	Status           Status
	Progress         int
	Options          Options
	Results          []StepResult
	ErrorMessage     string
	WorkerID         string
	CreatedAt        time.Time
	StartedAt        *time.Time
	EndedAt          *time.Time
	ExpiresAt        time.Time
	UpdatedAt        time.Time
	LastHeartbeat    *time.Time
}

// FinalSize sums the sizes of every artifact the job produced.
func (j *Job) FinalSize() int64 {
	if j == nil {
		return 0
	}
	var total int64
	for _, r := range j.Results {
		total += r.Size
	}
	return total
}

// IsExpired reports whether a completed job has outlived its TTL.
func (j *Job) IsExpired(now time.Time) bool {
	return j != nil && j.Status == StatusCompleted && j.ExpiresAt.Before(now)
}

// Transition carries the payload of a terminal status write.
type Transition struct {
	// WorkerID restricts the write to the worker that holds the claim. Empty
	// skips the ownership check.
	WorkerID string
	Results  []StepResult
	Error    string
}

// HealthSummary captures job counts by lifecycle state.
type HealthSummary struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// DatabaseHealth describes the store backend for diagnostics.
type DatabaseHealth struct {
	Driver        string `json:"driver"`
	Location      string `json:"location"`
	SchemaVersion int    `json:"schemaVersion"`
	Reachable     bool   `json:"reachable"`
	Error         string `json:"error,omitempty"`
}
