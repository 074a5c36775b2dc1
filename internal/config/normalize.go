package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeStore()
	c.normalizeWorkflow()
	c.normalizePipeline()
	c.normalizeRetention()
	c.normalizeTranscoder()
	c.normalizeLogging()
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	c.API.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.API.PublicBaseURL), "/")
	return nil
}

func (c *Config) normalizePaths() error {
	targets := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.media_dir", &c.Paths.MediaDir, defaultMediaDir},
		{"paths.scratch_dir", &c.Paths.ScratchDir, defaultScratchDir},
		{"paths.state_dir", &c.Paths.StateDir, defaultStateDir},
	}
	for _, target := range targets {
		if strings.TrimSpace(*target.value) == "" {
			*target.value = target.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*target.value))
		if err != nil {
			return fmt.Errorf("%s: %w", target.key, err)
		}
		*target.value = expanded
	}
	return nil
}

func (c *Config) normalizeStore() {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if c.Store.Driver == "" {
		c.Store.Driver = defaultStoreDriver
	}
	if c.Store.Driver == "postgresql" {
		c.Store.Driver = "postgres"
	}
	c.Store.DSN = strings.TrimSpace(c.Store.DSN)
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.PollIntervalSeconds <= 0 {
		c.Workflow.PollIntervalSeconds = defaultPollIntervalSeconds
	}
	if c.Workflow.ErrorRetryIntervalSeconds <= 0 {
		c.Workflow.ErrorRetryIntervalSeconds = defaultErrorRetryIntervalSeconds
	}
	if c.Workflow.HeartbeatIntervalSeconds <= 0 {
		c.Workflow.HeartbeatIntervalSeconds = defaultHeartbeatIntervalSeconds
	}
	if c.Workflow.HeartbeatTimeoutSeconds <= 0 {
		c.Workflow.HeartbeatTimeoutSeconds = defaultHeartbeatTimeoutSeconds
	}
	if c.Workflow.TerminalWriteAttempts <= 0 {
		c.Workflow.TerminalWriteAttempts = defaultTerminalWriteAttempts
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.StepTimeoutSeconds <= 0 {
		c.Pipeline.StepTimeoutSeconds = defaultStepTimeoutSeconds
	}
	if c.Pipeline.MinOutputBytes <= 0 {
		c.Pipeline.MinOutputBytes = defaultMinOutputBytes
	}
	exts := make([]string, 0, len(c.Pipeline.AllowedExtensions))
	seen := make(map[string]struct{}, len(c.Pipeline.AllowedExtensions))
	for _, ext := range c.Pipeline.AllowedExtensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext == "" {
			continue
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		exts = append(exts, ext)
	}
	if len(exts) == 0 {
		exts = append(exts, defaultAllowedExtensions...)
	}
	c.Pipeline.AllowedExtensions = exts
}

func (c *Config) normalizeRetention() {
	if c.Retention.JobTTLHours <= 0 {
		c.Retention.JobTTLHours = defaultJobTTLHours
	}
	if c.Retention.FailedRetentionHours < 0 {
		c.Retention.FailedRetentionHours = 0
	}
	if c.Retention.SweepIntervalMinutes <= 0 {
		c.Retention.SweepIntervalMinutes = defaultSweepIntervalMinutes
	}
	if c.Retention.ScratchMaxAgeHours <= 0 {
		c.Retention.ScratchMaxAgeHours = defaultScratchMaxAgeHours
	}
}

func (c *Config) normalizeTranscoder() {
	c.Transcoder.FFmpegBinary = strings.TrimSpace(c.Transcoder.FFmpegBinary)
	if c.Transcoder.FFmpegBinary == "" {
		c.Transcoder.FFmpegBinary = defaultFFmpegBinary
	}
	c.Transcoder.FFprobeBinary = strings.TrimSpace(c.Transcoder.FFprobeBinary)
	if c.Transcoder.FFprobeBinary == "" {
		c.Transcoder.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Transcoder.HLSSegmentSeconds <= 0 {
		c.Transcoder.HLSSegmentSeconds = defaultHLSSegmentSeconds
	}
	if c.Transcoder.PosterWidth <= 0 {
		c.Transcoder.PosterWidth = defaultPosterWidth
	}
	if c.Transcoder.PosterHeight <= 0 {
		c.Transcoder.PosterHeight = defaultPosterHeight
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
