package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWebUI(); err != nil {
		return err
	}
	if err := c.validateIntervals(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WebUIDir) == "" {
		return errors.New("paths.webui_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		return errors.New("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validateWebUI() error {
	if strings.TrimSpace(c.WebUI.LaunchScript) == "" {
		return errors.New("webui.launch_script must be set")
	}
	if c.WebUI.Port <= 0 || c.WebUI.Port > 65535 {
		return fmt.Errorf("webui.port must be between 1 and 65535, got %d", c.WebUI.Port)
	}
	return nil
}

func (c *Config) validateIntervals() error {
	return ensurePositiveMap(map[string]int{
		"provision.download_timeout":  c.Provision.DownloadTimeout,
		"probe.interval_seconds":      c.Probe.IntervalSeconds,
		"probe.max_attempts":          c.Probe.MaxAttempts,
		"bridge.poll_interval":        c.Bridge.PollInterval,
		"bridge.job_timeout":          c.Bridge.JobTimeout,
		"bridge.result_poll_interval": c.Bridge.ResultPollInterval,
		"upload.timeout_seconds":      c.Upload.TimeoutSeconds,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for name, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, value)
		}
	}
	return nil
}
