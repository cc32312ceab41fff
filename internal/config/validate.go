package config

import (
	"errors"
	"fmt"
	"regexp"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSource(); err != nil {
		return err
	}
	if err := c.validateDownload(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSource() error {
	if len(c.Source.AllowedHosts) == 0 {
		return errors.New("source.allowed_hosts must list at least one origin host")
	}
	if c.Source.ProductIDPattern != "" {
		if _, err := regexp.Compile(c.Source.ProductIDPattern); err != nil {
			return fmt.Errorf("source.product_id_pattern is not a valid regular expression: %w", err)
		}
	}
	if c.Source.PreviewSuffix == "" || c.Source.ManifestSuffix == "" {
		return errors.New("source.preview_suffix and source.manifest_suffix must both be set")
	}
	if c.Source.PreviewSuffix == c.Source.ManifestSuffix {
		return errors.New("source.preview_suffix and source.manifest_suffix must differ")
	}
	return nil
}

func (c *Config) validateDownload() error {
	if c.Download.Workers > 64 {
		return fmt.Errorf("download.workers = %d exceeds the politeness ceiling of 64", c.Download.Workers)
	}
	if c.Download.RetryMaxDelayMS < c.Download.RetryBaseDelayMS {
		return errors.New("download.retry_max_delay_ms must be >= download.retry_base_delay_ms")
	}
	return nil
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
