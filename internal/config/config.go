package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	InputDir  string `toml:"input_dir"`
	OutputDir string `toml:"output_dir"`
	TempDir   string `toml:"temp_dir"`
	LogDir    string `toml:"log_dir"`
}

// Model names one checkpoint of the separator and the stems taken from it.
type Model struct {
	Name  string   `toml:"name"`
	Stems []string `toml:"stems"`
}

// Separation contains configuration for the external separation executable.
// Device selects the accelerator: "auto" probes once at startup, "none" omits
// the device flag entirely.
type Separation struct {
	Binary       string   `toml:"binary"`
	Args         []string `toml:"args"`
	BatchSize    int      `toml:"batch_size"`
	OutputFormat string   `toml:"output_format"`
	MP3Bitrate   int      `toml:"mp3_bitrate"`
	Device       string   `toml:"device"`
	ProbeCommand []string `toml:"probe_command"`
	Models       []Model  `toml:"models"`
}

// Progress contains configuration for processed-file persistence.
type Progress struct {
	Backend string `toml:"backend"`
}

// Organizer contains configuration for merging model outputs.
type Organizer struct {
	// MinStems is the number of stem files that must be copied before a file
	// counts as processed. Zero accepts partial stem sets.
	MinStems int `toml:"min_stems"`
}

// Staging contains configuration for batch scratch directories.
type Staging struct {
	StaleAfterHours int `toml:"stale_after_hours"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	File       bool   `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Metrics contains configuration for run metrics export.
type Metrics struct {
	Textfile string `toml:"textfile"`
}

// Notifications contains configuration for run-completion pushes.
type Notifications struct {
	// NtfyTopic is the full ntfy topic URL; empty disables notifications.
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Config encapsulates all configuration values for stemsep.
//
// Configuration sections by subsystem:
//   - Paths: input corpus, output root, scratch and log directories
//   - Separation: external executable, batch size, encoding, models
//   - Progress: persistence backend for the processed set
//   - Organizer: stem completeness policy
//   - Staging: stale scratch cleanup
//   - Logging: log format, level, and rotating file
//   - Metrics: Prometheus textfile export
//   - Notifications: ntfy push when a run ends
type Config struct {
	Paths      Paths      `toml:"paths"`
	Separation Separation `toml:"separation"`
	Progress   Progress   `toml:"progress"`
	Organizer  Organizer  `toml:"organizer"`
	Staging    Staging    `toml:"staging"`
	Logging    Logging    `toml:"logging"`
	Metrics    Metrics    `toml:"metrics"`

	Notifications Notifications `toml:"notifications"`

	derivedTempDir bool
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/stemsep/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

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

		// Array tables would otherwise extend the default model list.
		cfg.Separation.Models = nil
		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// Finalize re-applies normalization and validation after callers override
// fields (for example from command-line flags).
func (c *Config) Finalize() error {
	if err := c.normalize(); err != nil {
		return err
	}
	return c.Validate()
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

	projectPath, err := filepath.Abs("stemsep.toml")
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

// EnsureDirectories creates the output and scratch directories, and the log
// directory when file logging is enabled.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.OutputDir, c.Paths.TempDir}
	if c.Logging.File {
		dirs = append(dirs, c.Paths.LogDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ProgressPath returns the location of the processed-set file for the configured backend.
func (c *Config) ProgressPath() string {
	if c.Progress.Backend == ProgressBackendSQLite {
		return filepath.Join(c.Paths.OutputDir, "progress.db")
	}
	return filepath.Join(c.Paths.OutputDir, "progress.json")
}

// LockPath returns the single-writer lock file guarding the output directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.OutputDir, ".stemsep.lock")
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
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
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
