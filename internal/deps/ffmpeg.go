package deps

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"vidpipe/internal/config"
)

const versionTimeout = 5 * time.Second

// TranscoderRequirements lists the binaries the ffmpeg engine executes.
func TranscoderRequirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "FFmpeg", Command: cfg.Transcoder.FFmpegBinary, Description: "Runs every pipeline step"},
		{Name: "FFprobe", Command: cfg.Transcoder.FFprobeBinary, Description: "Measures aspect ratio and duration"},
	}
}

// CheckTranscoder resolves the ffmpeg and ffprobe binaries and records the
// first line of their -version banner. A binary that is found but cannot
// report a version is unavailable.
func CheckTranscoder(ctx context.Context, cfg *config.Config) []Status {
	statuses := CheckBinaries(TranscoderRequirements(cfg))
	for i := range statuses {
		if !statuses[i].Available {
			continue
		}
		version, err := probeVersion(ctx, statuses[i].Command)
		if err != nil {
			statuses[i].Available = false
			statuses[i].Detail = "version check failed: " + err.Error()
			continue
		}
		statuses[i].Version = version
	}
	return statuses
}

func probeVersion(ctx context.Context, binary string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, binary, "-version").Output()
	if err != nil {
		return "", err
	}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()), nil
	}
	return "", nil
}
