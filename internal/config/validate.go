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
	if err := c.validateSeparation(); err != nil {
		return err
	}
	if err := c.validateModels(); err != nil {
		return err
	}
	if err := c.validateProgress(); err != nil {
		return err
	}
	if c.Organizer.MinStems < 0 {
		return errors.New("organizer.min_stems must be zero or positive")
	}
	if topic := c.Notifications.NtfyTopic; topic != "" && !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) URL, got %q", topic)
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.InputDir != "" && c.Paths.InputDir == c.Paths.OutputDir {
		return errors.New("paths.input_dir and paths.output_dir must differ")
	}
	return nil
}

func (c *Config) validateSeparation() error {
	if c.Separation.BatchSize < 1 {
		return fmt.Errorf("separation.batch_size must be a positive integer, got %d", c.Separation.BatchSize)
	}
	switch c.Separation.OutputFormat {
	case OutputFormatMP3:
		if c.Separation.MP3Bitrate < 1 || c.Separation.MP3Bitrate > maxMP3Bitrate {
			return fmt.Errorf("separation.mp3_bitrate must be between 1 and %d, got %d", maxMP3Bitrate, c.Separation.MP3Bitrate)
		}
	case OutputFormatWAV, OutputFormatFloat32, OutputFormatInt24:
	default:
		return fmt.Errorf("separation.output_format: unsupported value %q (expected mp3, wav, float32, or int24)", c.Separation.OutputFormat)
	}
	switch c.Separation.Device {
	case DeviceAuto, DeviceNone, DeviceCPU, DeviceCUDA, DeviceMPS:
	default:
		return fmt.Errorf("separation.device: unsupported value %q", c.Separation.Device)
	}
	if c.Separation.Device == DeviceAuto && len(c.Separation.ProbeCommand) == 0 {
		return errors.New("separation.probe_command is required when separation.device is auto")
	}
	return nil
}

func (c *Config) validateModels() error {
	if len(c.Separation.Models) < 2 {
		return fmt.Errorf("separation.models must list at least two models, got %d", len(c.Separation.Models))
	}
	names := make(map[string]struct{}, len(c.Separation.Models))
	owners := make(map[string]string)
	for i, model := range c.Separation.Models {
		if model.Name == "" {
			return fmt.Errorf("separation.models[%d].name must be set", i)
		}
		if _, dup := names[model.Name]; dup {
			return fmt.Errorf("separation.models: duplicate model %q", model.Name)
		}
		names[model.Name] = struct{}{}
		if len(model.Stems) == 0 {
			return fmt.Errorf("separation.models[%d] (%s): stems must not be empty", i, model.Name)
		}
		for _, stem := range model.Stems {
			if owner, taken := owners[stem]; taken {
				return fmt.Errorf("separation.models: stem %q assigned to both %s and %s", stem, owner, model.Name)
			}
			owners[stem] = model.Name
		}
	}
	return nil
}

func (c *Config) validateProgress() error {
	switch c.Progress.Backend {
	case ProgressBackendJSON, ProgressBackendSQLite:
		return nil
	default:
		return fmt.Errorf("progress.backend: unsupported value %q (expected json or sqlite)", c.Progress.Backend)
	}
}

// StemCount returns the total number of stems produced across all models.
func (c *Config) StemCount() int {
	total := 0
	for _, model := range c.Separation.Models {
		total += len(model.Stems)
	}
	return total
}
