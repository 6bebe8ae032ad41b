package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateMix(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTools() error {
	if c.Tools.TimeoutSeconds < 0 {
		return errors.New("tools.timeout_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateMix() error {
	durations := map[string]float64{
		"mix.fade_in":   c.Mix.FadeIn,
		"mix.intro":     c.Mix.Intro,
		"mix.fade_down": c.Mix.FadeDown,
		"mix.fade_out":  c.Mix.FadeOut,
	}
	for name, value := range durations {
		if value < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if c.Mix.BGMVolume < 0 || c.Mix.BGMVolume > 1 {
		return errors.New("mix.bgm_volume must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.QueuePollInterval <= 0 {
		return errors.New("workflow.queue_poll_interval must be positive")
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		return errors.New("workflow.error_retry_interval must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
}
