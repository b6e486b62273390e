package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSeparation()
	c.normalizeProgress()
	c.normalizeStaging()
	c.normalizeLogging()
	c.normalizeNotifications()
	return c.normalizeMetrics()
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.InputDir, err = expandPath(strings.TrimSpace(c.Paths.InputDir)); err != nil {
		return fmt.Errorf("paths.input_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if (c.derivedTempDir || strings.TrimSpace(c.Paths.TempDir) == "") && c.Paths.OutputDir != "" {
		c.Paths.TempDir = filepath.Join(c.Paths.OutputDir, defaultTempDirName)
		c.derivedTempDir = true
	}
	if c.Paths.TempDir, err = expandPath(strings.TrimSpace(c.Paths.TempDir)); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSeparation() {
	c.Separation.Binary = strings.TrimSpace(c.Separation.Binary)
	if c.Separation.Binary == "" {
		c.Separation.Binary = defaultBinary
	}
	c.Separation.Args = trimAll(c.Separation.Args)
	c.Separation.ProbeCommand = trimAll(c.Separation.ProbeCommand)

	c.Separation.OutputFormat = strings.ToLower(strings.TrimSpace(c.Separation.OutputFormat))
	if c.Separation.OutputFormat == "" {
		c.Separation.OutputFormat = defaultOutputFormat
	}
	if c.Separation.MP3Bitrate == 0 {
		c.Separation.MP3Bitrate = defaultMP3Bitrate
	}
	c.Separation.Device = strings.ToLower(strings.TrimSpace(c.Separation.Device))
	if c.Separation.Device == "" {
		c.Separation.Device = defaultDevice
	}

	if len(c.Separation.Models) == 0 {
		c.Separation.Models = DefaultModels()
	}
	for i := range c.Separation.Models {
		model := &c.Separation.Models[i]
		model.Name = strings.TrimSpace(model.Name)
		stems := make([]string, 0, len(model.Stems))
		for _, stem := range model.Stems {
			if stem = strings.ToLower(strings.TrimSpace(stem)); stem != "" {
				stems = append(stems, stem)
			}
		}
		model.Stems = stems
	}
}

func (c *Config) normalizeProgress() {
	c.Progress.Backend = strings.ToLower(strings.TrimSpace(c.Progress.Backend))
	if c.Progress.Backend == "" {
		c.Progress.Backend = defaultProgressBackend
	}
}

func (c *Config) normalizeStaging() {
	if c.Staging.StaleAfterHours < 0 {
		c.Staging.StaleAfterHours = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
	if c.Logging.MaxAgeDays < 0 {
		c.Logging.MaxAgeDays = 0
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
}

func (c *Config) normalizeMetrics() error {
	textfile := strings.TrimSpace(c.Metrics.Textfile)
	if textfile == "" {
		c.Metrics.Textfile = ""
		return nil
	}
	expanded, err := expandPath(textfile)
	if err != nil {
		return fmt.Errorf("metrics.textfile: %w", err)
	}
	c.Metrics.Textfile = expanded
	return nil
}

func trimAll(values []string) []string {
	if len(values) == 0 {
		return values
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
