package config

import (
	"strings"
)

// normalize expands path fields and backfills defaults for values that were
// left empty or nonsensical in the config file.
func (c *Config) normalize() error {
	var err error
	if c.Paths.WorkspaceDir, err = expandPath(strings.TrimSpace(c.Paths.WorkspaceDir)); err != nil {
		return err
	}
	if c.Paths.WorkspaceDir == "" {
		if c.Paths.WorkspaceDir, err = expandPath(defaultWorkspaceDir); err != nil {
			return err
		}
	}
	if c.Paths.DownloadsDir, err = expandPath(strings.TrimSpace(c.Paths.DownloadsDir)); err != nil {
		return err
	}

	hosts := make([]string, 0, len(c.Source.AllowedHosts))
	for _, host := range c.Source.AllowedHosts {
		host = strings.ToLower(strings.TrimSpace(host))
		if host != "" {
			hosts = append(hosts, host)
		}
	}
	c.Source.AllowedHosts = hosts

	c.Source.ProductIDPattern = strings.TrimSpace(c.Source.ProductIDPattern)
	c.Source.PreviewSuffix = strings.TrimSpace(c.Source.PreviewSuffix)
	c.Source.ManifestSuffix = strings.TrimSpace(c.Source.ManifestSuffix)
	if c.Source.PageLoadWait <= 0 {
		c.Source.PageLoadWait = defaultPageLoadWait
	}
	if c.Source.FindTimeout <= 0 {
		c.Source.FindTimeout = defaultFindTimeout
	}
	if c.Source.ScrollStep <= 0 {
		c.Source.ScrollStep = defaultScrollStep
	}
	if c.Source.PlaybackSettleWait <= 0 {
		c.Source.PlaybackSettleWait = defaultPlaybackSettle
	}

	if c.Download.Workers <= 0 {
		c.Download.Workers = defaultWorkers
	}
	if c.Download.SegmentRetries < 0 {
		c.Download.SegmentRetries = defaultSegmentRetries
	}
	if c.Download.ManifestRetries < 0 {
		c.Download.ManifestRetries = defaultManifestRetries
	}
	if c.Download.RetryBaseDelayMS <= 0 {
		c.Download.RetryBaseDelayMS = defaultRetryBaseDelayMS
	}
	if c.Download.RetryMaxDelayMS <= 0 {
		c.Download.RetryMaxDelayMS = defaultRetryMaxDelayMS
	}
	if c.Download.HTTPTimeout <= 0 {
		c.Download.HTTPTimeout = defaultHTTPTimeout
	}

	c.FFmpeg.Binary = strings.TrimSpace(c.FFmpeg.Binary)
	if c.FFmpeg.Binary == "" {
		c.FFmpeg.Binary = defaultFFmpegBinary
	}
	if c.FFmpeg.Timeout <= 0 {
		c.FFmpeg.Timeout = defaultFFmpegTimeout
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}

	return nil
}
