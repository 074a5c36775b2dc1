package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directories vidpipe reads and writes.
type Paths struct {
	MediaDir   string `toml:"media_dir"`
	ScratchDir string `toml:"scratch_dir"`
	StateDir   string `toml:"state_dir"`
}

// Store selects the job store backend. The sqlite driver keeps its database in
// StateDir when DSN is empty.
type Store struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

// Workflow contains dispatcher timing.
type Workflow struct {
	PollIntervalSeconds       int `toml:"poll_interval_seconds"`
	ErrorRetryIntervalSeconds int `toml:"error_retry_interval_seconds"`
	HeartbeatIntervalSeconds  int `toml:"heartbeat_interval_seconds"`
	HeartbeatTimeoutSeconds   int `toml:"heartbeat_timeout_seconds"`
	TerminalWriteAttempts     int `toml:"terminal_write_attempts"`
}

// Pipeline contains per-step execution limits.
type Pipeline struct {
	StepTimeoutSeconds int      `toml:"step_timeout_seconds"`
	MinOutputBytes     int64    `toml:"min_output_bytes"`
	AllowedExtensions  []string `toml:"allowed_extensions"`
}

// Retention controls how long jobs and their files are kept.
type Retention struct {
	JobTTLHours int `toml:"job_ttl_hours"`
	// FailedRetentionHours of zero keeps failed jobs forever.
	FailedRetentionHours int `toml:"failed_retention_hours"`
	SweepIntervalMinutes int `toml:"sweep_interval_minutes"`
	ScratchMaxAgeHours   int `toml:"scratch_max_age_hours"`
}

// Transcoder configures the ffmpeg backed engine.
type Transcoder struct {
	FFmpegBinary      string `toml:"ffmpeg_binary"`
	FFprobeBinary     string `toml:"ffprobe_binary"`
	HLSSegmentSeconds int    `toml:"hls_segment_seconds"`
	PosterWidth       int    `toml:"poster_width"`
	PosterHeight      int    `toml:"poster_height"`
}

// API configures the HTTP status server.
type API struct {
	Bind string `toml:"bind"`
	// PublicBaseURL prefixes download references. Empty yields relative links.
	PublicBaseURL string `toml:"public_base_url"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for vidpipe.
//
// Configuration sections by subsystem:
//   - Paths: media output, scratch staging and state directories
//   - Store: job store driver and DSN
//   - Workflow: dispatcher polling, heartbeat and terminal write retries
//   - Pipeline: per-step deadline and output sanity limits
//   - Retention: job TTL, failed-job retention and sweep schedule
//   - Transcoder: ffmpeg/ffprobe binaries and output tuning
//   - API: HTTP status server
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Store      Store      `toml:"store"`
	Workflow   Workflow   `toml:"workflow"`
	Pipeline   Pipeline   `toml:"pipeline"`
	Retention  Retention  `toml:"retention"`
	Transcoder Transcoder `toml:"transcoder"`
	API        API        `toml:"api"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/vidpipe/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	if err := loadDotEnv(); err != nil {
		return nil, "", false, err
	}

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv reads ./.env when present. Variables already set in the process
// environment win.
func loadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		name   string
		target *string
	}{
		{"VIDPIPE_STORE_DRIVER", &c.Store.Driver},
		{"VIDPIPE_STORE_DSN", &c.Store.DSN},
		{"VIDPIPE_MEDIA_DIR", &c.Paths.MediaDir},
		{"VIDPIPE_SCRATCH_DIR", &c.Paths.ScratchDir},
		{"VIDPIPE_API_BIND", &c.API.Bind},
	}
	for _, o := range overrides {
		if value, ok := os.LookupEnv(o.name); ok && strings.TrimSpace(value) != "" {
			*o.target = strings.TrimSpace(value)
		}
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vidpipe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.MediaDir, c.Paths.ScratchDir, c.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath is the sqlite database location used when no DSN is configured.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "jobs.db")
}

// LogPath is the file the daemon appends to alongside stdout.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.StateDir, "logs", "vidpipe.log")
}

// DaemonLockPath enforces a single daemon per state directory.
func (c *Config) DaemonLockPath() string {
	return filepath.Join(c.Paths.StateDir, "vidpipe.lock")
}

// SweepLockPath guards against overlapping sweeps from the daemon and the CLI.
func (c *Config) SweepLockPath() string {
	return filepath.Join(c.Paths.StateDir, "sweep.lock")
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Workflow.PollIntervalSeconds) * time.Second
}

func (c *Config) ErrorRetryInterval() time.Duration {
	return time.Duration(c.Workflow.ErrorRetryIntervalSeconds) * time.Second
}

func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Workflow.HeartbeatIntervalSeconds) * time.Second
}

func (c *Config) HeartbeatTimeout() time.Duration {
	return time.Duration(c.Workflow.HeartbeatTimeoutSeconds) * time.Second
}

func (c *Config) StepTimeout() time.Duration {
	return time.Duration(c.Pipeline.StepTimeoutSeconds) * time.Second
}

// JobTTL is added to a job's creation time to produce expires_at.
func (c *Config) JobTTL() time.Duration {
	return time.Duration(c.Retention.JobTTLHours) * time.Hour
}

// FailedRetention returns zero when failed jobs are kept indefinitely.
func (c *Config) FailedRetention() time.Duration {
	return time.Duration(c.Retention.FailedRetentionHours) * time.Hour
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Retention.SweepIntervalMinutes) * time.Minute
}

func (c *Config) ScratchMaxAge() time.Duration {
	return time.Duration(c.Retention.ScratchMaxAgeHours) * time.Hour
}

// AllowsExtension reports whether ext (with or without a leading dot) may be submitted.
func (c *Config) AllowsExtension(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if ext == "" {
		return false
	}
	for _, allowed := range c.Pipeline.AllowedExtensions {
		if allowed == ext {
			return true
		}
	}
	return false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
