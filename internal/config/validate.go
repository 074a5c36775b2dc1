package config

import (
	"errors"
	"fmt"
	"path/filepath"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.MediaDir == "" || c.Paths.ScratchDir == "" || c.Paths.StateDir == "" {
		return errors.New("paths.media_dir, paths.scratch_dir and paths.state_dir must be set")
	}
	if filepath.Clean(c.Paths.MediaDir) == filepath.Clean(c.Paths.ScratchDir) {
		return errors.New("paths.scratch_dir must differ from paths.media_dir")
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case "sqlite":
		return nil
	case "postgres":
		if c.Store.DSN == "" {
			return errors.New("store.dsn is required for the postgres driver (or set VIDPIPE_STORE_DSN)")
		}
		return nil
	default:
		return fmt.Errorf("store.driver: unsupported value %q (want sqlite or postgres)", c.Store.Driver)
	}
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.HeartbeatTimeoutSeconds <= c.Workflow.HeartbeatIntervalSeconds*2 {
		return errors.New("workflow.heartbeat_timeout_seconds must allow at least two missed heartbeats")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
