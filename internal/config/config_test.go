package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"vidpipe/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantMedia := filepath.Join(tempHome, ".local", "share", "vidpipe", "media")
	if cfg.Paths.MediaDir != wantMedia {
		t.Fatalf("unexpected media dir: got %q want %q", cfg.Paths.MediaDir, wantMedia)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Fatalf("unexpected store driver: %q", cfg.Store.Driver)
	}
	if cfg.JobTTL() != 7*24*time.Hour {
		t.Fatalf("unexpected job ttl: %s", cfg.JobTTL())
	}
	if cfg.PollInterval() != 5*time.Second {
		t.Fatalf("unexpected poll interval: %s", cfg.PollInterval())
	}
	if cfg.DatabasePath() != filepath.Join(cfg.Paths.StateDir, "jobs.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
}

func TestLoadCustomConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	configPath := filepath.Join(tempHome, "config.toml")
	payload := map[string]any{
		"paths": map[string]any{
			"media_dir":   "~/out",
			"scratch_dir": "~/tmp",
		},
		"pipeline": map[string]any{
			"step_timeout_seconds": 90,
			"allowed_extensions":   []string{".MP4", "mov", "mov", ""},
		},
		"retention": map[string]any{
			"failed_retention_hours": 0,
		},
		"logging": map[string]any{
			"format": "JSON",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected explicit config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.MediaDir != filepath.Join(tempHome, "out") {
		t.Fatalf("unexpected media dir: %q", cfg.Paths.MediaDir)
	}
	if cfg.StepTimeout() != 90*time.Second {
		t.Fatalf("unexpected step timeout: %s", cfg.StepTimeout())
	}
	if got := strings.Join(cfg.Pipeline.AllowedExtensions, ","); got != "mp4,mov" {
		t.Fatalf("unexpected extensions: %q", got)
	}
	if !cfg.AllowsExtension(".MOV") || cfg.AllowsExtension("exe") {
		t.Fatal("unexpected extension policy")
	}
	if cfg.FailedRetention() != 0 {
		t.Fatalf("expected failed retention disabled, got %s", cfg.FailedRetention())
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected normalized log format, got %q", cfg.Logging.Format)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	os.Unsetenv("VIDPIPE_STORE_DSN")
	os.Unsetenv("VIDPIPE_STORE_DRIVER")
	t.Cleanup(func() {
		os.Unsetenv("VIDPIPE_STORE_DSN")
		os.Unsetenv("VIDPIPE_STORE_DRIVER")
	})

	env := "VIDPIPE_STORE_DRIVER=postgres\nVIDPIPE_STORE_DSN=postgres://vidpipe@localhost/vidpipe\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Store.Driver != "postgres" {
		t.Fatalf("expected driver from .env, got %q", cfg.Store.Driver)
	}
	if cfg.Store.DSN != "postgres://vidpipe@localhost/vidpipe" {
		t.Fatalf("expected dsn from .env, got %q", cfg.Store.DSN)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*config.Config){
		"postgres without dsn": func(c *config.Config) { c.Store.Driver = "postgres" },
		"unknown driver":       func(c *config.Config) { c.Store.Driver = "mysql" },
		"same media and scratch": func(c *config.Config) {
			c.Paths.ScratchDir = c.Paths.MediaDir
		},
		"heartbeat timeout too short": func(c *config.Config) {
			c.Workflow.HeartbeatTimeoutSeconds = c.Workflow.HeartbeatIntervalSeconds
		},
		"bad log level": func(c *config.Config) { c.Logging.Level = "chatty" },
	}
	for name, mutate := range cases {
		cfg := config.Default()
		cfg.Paths.MediaDir = "/srv/media"
		cfg.Paths.ScratchDir = "/srv/scratch"
		cfg.Paths.StateDir = "/srv/state"
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Retention.JobTTLHours != 168 {
		t.Fatalf("unexpected ttl from sample: %d", cfg.Retention.JobTTLHours)
	}
}
