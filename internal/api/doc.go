// Package api defines the wire-format types returned to clients and the
// read-only services that build them from the job store.
//
// # Key Types
//
// Report: the client view of a job. Pending and processing jobs expose only
// status, progress and the initial size; completed jobs add the final size and
// one StepReport per artifact; failed jobs add the error message.
//
// DaemonStatus: dispatcher state, queue counts and dependency availability.
//
// # Converters
//
// FromJob: queue.Job -> Report, deriving download references from the public
// base URL.
//
// FromStatusSummary: workflow.StatusSummary -> WorkflowStatus.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds.
// Intermediate step detail is never exposed; a job is either waiting, running
// with a percentage, finished with results or failed with a message.
package api
