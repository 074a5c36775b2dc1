package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external binary vidpipe relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
}

// Status reports the availability of a binary. Command holds the resolved
// path when the binary was found.
type Status struct {
	Name        string
	Command     string
	Description string
	Available   bool
	Version     string
	Detail      string
}

// CheckBinaries resolves each requirement on PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, lookup(req))
	}
	return results
}

func lookup(req Requirement) Status {
	cmd := strings.TrimSpace(req.Command)
	status := Status{
		Name:        req.Name,
		Command:     cmd,
		Description: strings.TrimSpace(req.Description),
	}
	if cmd == "" {
		status.Detail = "command not configured"
		return status
	}
	resolved, err := exec.LookPath(cmd)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", cmd)
		return status
	}
	status.Command = resolved
	status.Available = true
	return status
}

// AllAvailable reports whether every status is available.
func AllAvailable(statuses []Status) bool {
	for _, s := range statuses {
		if !s.Available {
			return false
		}
	}
	return true
}
