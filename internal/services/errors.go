package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInput marks a rejected source file or invalid options. Nothing is persisted.
	ErrInput = errors.New("invalid input")
	// ErrTranscode marks an engine failure or a missing/undersized output.
	ErrTranscode = errors.New("transcode failed")
	// ErrStorage marks a filesystem failure while staging, writing or removing artifacts.
	ErrStorage = errors.New("storage error")
	// ErrPersistence marks a job store write that could not be completed.
	ErrPersistence = errors.New("persistence error")

	ErrTimeout       = errors.New("timeout")
	ErrNotFound      = errors.New("not found")
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes step context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, step, operation, message string, err error) error {
	detail := buildDetail(step, operation, message)
	if marker == nil {
		marker = ErrTranscode
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Category returns a short, stable label for the marker carried by err. It is
// used as a metrics label and log field.
func Category(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInput):
		return "input"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrTranscode):
		return "transcode"
	case errors.Is(err, ErrStorage):
		return "storage"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "unknown"
	}
}

// FailureMessage renders the message stored on a failed job. Client-visible
// text stays on a single line.
func FailureMessage(err error) string {
	if err == nil {
		return "unknown failure"
	}
	msg := strings.Join(strings.Fields(err.Error()), " ")
	const limit = 1024
	if len(msg) > limit {
		msg = msg[:limit]
	}
	return msg
}

func buildDetail(step, operation, message string) string {
	parts := make([]string, 0, 3)
	if step = strings.TrimSpace(step); step != "" {
		parts = append(parts, step)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
