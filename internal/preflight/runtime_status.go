package preflight

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"vidpipe/internal/config"
)

// CheckDaemon asks the daemon's status endpoint whether it is running.
func CheckDaemon(ctx context.Context, bind string) Result {
	const name = "Daemon"

	base := daemonBaseURL(bind)
	if base == "" {
		return Result{Name: name, Detail: "API disabled"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/api/status", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("status check failed (%v)", err)}
	}
	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: "not running"}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{Name: name, Detail: fmt.Sprintf("status check failed (%d)", resp.StatusCode)}
	}
	var payload struct {
		Running  bool `json:"running"`
		Workflow struct {
			WorkerID string `json:"workerId"`
		} `json:"workflow"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreadable status (%v)", err)}
	}
	if !payload.Running {
		return Result{Name: name, Detail: "stopped"}
	}
	return Result{Name: name, Passed: true, Detail: "running as " + payload.Workflow.WorkerID}
}

// CheckDaemonFromConfig evaluates daemon status from the configured API bind.
func CheckDaemonFromConfig(ctx context.Context, cfg *config.Config) Result {
	if cfg == nil {
		return Result{Name: "Daemon", Detail: "Unknown"}
	}
	return CheckDaemon(ctx, cfg.API.Bind)
}

func daemonBaseURL(bind string) string {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return ""
	}
	if strings.HasPrefix(bind, "http://") || strings.HasPrefix(bind, "https://") {
		return strings.TrimRight(bind, "/")
	}
	if strings.HasPrefix(bind, ":") {
		bind = "127.0.0.1" + bind
	}
	return "http://" + bind
}
