package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Report describes a job in a transport-friendly format.
type Report struct {
	ID               string `json:"id"`
	OriginalFileName string `json:"originalFileName"`
	Status           string `json:"status"`
	Progress         int    `json:"progress"`
	InitialSize      int64  `json:"initialSize"`
	CreatedAt        string `json:"createdAt"`
	UpdatedAt        string `json:"updatedAt,omitempty"`
	ExpiresAt        string `json:"expiresAt,omitempty"`

	// Set only for completed jobs.
	FinalSize   *int64       `json:"finalSize,omitempty"`
	StepResults []StepReport `json:"stepResults,omitempty"`

	// Set only for failed jobs.
	Error string `json:"error,omitempty"`
}

// StepReport describes one downloadable artifact.
type StepReport struct {
	Kind        string `json:"kind"`
	Format      string `json:"format,omitempty"`
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
	DownloadRef string `json:"downloadRef"`
}

// WorkflowStatus summarizes dispatcher state.
type WorkflowStatus struct {
	Running    bool           `json:"running"`
	WorkerID   string         `json:"workerId"`
	CurrentJob string         `json:"currentJob,omitempty"`
	Processed  int            `json:"processed"`
	QueueStats map[string]int `json:"queueStats"`
	LastError  string         `json:"lastError,omitempty"`
	LastJob    *Report        `json:"lastJob,omitempty"`
}

// DependencyStatus captures availability of an external binary.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	StoreDriver  string             `json:"storeDriver"`
	StoreTarget  string             `json:"storeTarget"`
	LockFilePath string             `json:"lockFilePath"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// JobListResponse wraps a collection of reports.
type JobListResponse struct {
	Jobs []Report `json:"jobs"`
}

// JobResponse wraps a single report.
type JobResponse struct {
	Job Report `json:"job"`
}
