package preflight

import (
	"context"
	"fmt"
	"strings"

	"vidpipe/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every startup check. store may be nil when the caller has
// not opened the job store yet; its check then fails.
func RunAll(ctx context.Context, cfg *config.Config, store HealthChecker) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Media directory", cfg.Paths.MediaDir),
		CheckDirectoryAccess("Scratch directory", cfg.Paths.ScratchDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckStore(ctx, store),
	}
	results = append(results, CheckTranscoder(ctx, cfg)...)
	return results
}

// FirstFailure returns an error naming every failed check, or nil.
func FirstFailure(results []Result) error {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("preflight failed: %s", strings.Join(failed, "; "))
}
