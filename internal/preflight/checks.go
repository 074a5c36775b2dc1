package preflight

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"vidpipe/internal/config"
	"vidpipe/internal/deps"
	"vidpipe/internal/queue"
)

// HealthChecker reports job store reachability.
type HealthChecker interface {
	CheckHealth(ctx context.Context) queue.DatabaseHealth
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckStore pings the job store.
func CheckStore(ctx context.Context, store HealthChecker) Result {
	const name = "Job store"
	if store == nil {
		return Result{Name: name, Detail: "not opened"}
	}
	health := store.CheckHealth(ctx)
	if !health.Reachable {
		return Result{Name: name, Detail: fmt.Sprintf("%s %s (error: %s)", health.Driver, health.Location, health.Error)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s %s (schema v%d)", health.Driver, health.Location, health.SchemaVersion)}
}

// CheckTranscoder converts binary availability into results.
func CheckTranscoder(ctx context.Context, cfg *config.Config) []Result {
	statuses := deps.CheckTranscoder(ctx, cfg)
	results := make([]Result, 0, len(statuses))
	for _, status := range statuses {
		result := Result{Name: status.Name, Passed: status.Available}
		switch {
		case status.Available && status.Version != "":
			result.Detail = status.Version
		case status.Available:
			result.Detail = status.Command
		default:
			result.Detail = status.Detail
		}
		results = append(results, result)
	}
	return results
}
