package organizer

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"stemsep/internal/config"
	"stemsep/internal/fileutil"
	"stemsep/internal/logging"
	"stemsep/internal/separator"
)

var (
	// ErrMissingModelOutput marks a file some model produced no subtree for.
	ErrMissingModelOutput = errors.New("missing model output")
	// ErrIncomplete marks a merge that copied fewer stems than required.
	ErrIncomplete = errors.New("incomplete stem set")
)

// Result describes one merge.
type Result struct {
	// Dir is the per-file output directory.
	Dir string
	// Copied lists stems copied, in model order.
	Copied []string
	// Missing lists expected stems that were absent or failed to copy.
	Missing []string
}

// Complete reports whether every expected stem was copied.
func (r Result) Complete() bool {
	return len(r.Missing) == 0
}

// Organizer copies stems from a batch scratch tree into the output root.
type Organizer struct {
	outputDir string
	ext       string
	models    []separator.Model
	minStems  int
	logger    *slog.Logger
}

// New builds an organizer from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Organizer, error) {
	if cfg == nil {
		return nil, errors.New("organizer requires config")
	}
	if strings.TrimSpace(cfg.Paths.OutputDir) == "" {
		return nil, errors.New("organizer requires output directory")
	}
	models := separator.ModelsFromConfig(cfg)
	if len(models) == 0 {
		return nil, errors.New("organizer requires at least one model")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Organizer{
		outputDir: cfg.Paths.OutputDir,
		ext:       StemExtension(cfg.Separation.OutputFormat),
		models:    models,
		minStems:  cfg.Organizer.MinStems,
		logger:    logger,
	}, nil
}

// StemExtension returns the file extension the separator writes for format.
// Only mp3 changes the container; the float and integer modes stay wav.
func StemExtension(format string) string {
	if format == config.OutputFormatMP3 {
		return "mp3"
	}
	return "wav"
}

// OutputDir returns the per-file directory for base.
func (o *Organizer) OutputDir(base string) string {
	return filepath.Join(o.outputDir, base)
}

// Organize merges the model subtrees for base found under tempDir. Every
// model's <tempDir>/<model>/<base>/ must exist or ErrMissingModelOutput is
// returned before anything is written. Individual stem files that are absent
// are recorded in Result.Missing; the merge still succeeds unless fewer than
// MinStems were copied, which returns ErrIncomplete alongside the result.
func (o *Organizer) Organize(tempDir, base string) (Result, error) {
	if strings.TrimSpace(base) == "" {
		return Result{}, errors.New("file base name required")
	}

	var absent []string
	for _, model := range o.models {
		dir := filepath.Join(tempDir, model.Name, base)
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			absent = append(absent, model.Name)
		}
	}
	if len(absent) > 0 {
		return Result{}, fmt.Errorf("%w: %s: %s", ErrMissingModelOutput, base, strings.Join(absent, ", "))
	}

	result := Result{Dir: o.OutputDir(base)}
	if err := os.MkdirAll(result.Dir, 0o755); err != nil {
		return result, fmt.Errorf("create stem directory: %w", err)
	}

	logger := o.logger.With(logging.String("base", base))
	for _, model := range o.models {
		modelDir := filepath.Join(tempDir, model.Name, base)
		for _, stem := range model.Stems {
			name := stem + "." + o.ext
			src := filepath.Join(modelDir, name)
			if _, err := os.Stat(src); err != nil {
				result.Missing = append(result.Missing, stem)
				continue
			}
			if err := fileutil.CopyFile(src, filepath.Join(result.Dir, name)); err != nil {
				logging.WarnWithContext(logger, "stem copy failed", "stem_copy_failed",
					logging.String(logging.FieldModel, model.Name),
					logging.String("stem", stem),
					logging.Error(err),
					logging.String(logging.FieldImpact, "stem missing from output directory"),
				)
				result.Missing = append(result.Missing, stem)
				continue
			}
			result.Copied = append(result.Copied, stem)
		}
	}

	if len(result.Missing) > 0 {
		logger.Warn("stem set partial",
			logging.Strings("copied", result.Copied),
			logging.Strings("missing", result.Missing),
			logging.String(logging.FieldEventType, "stem_set_partial"),
		)
	}
	if len(result.Copied) < o.minStems {
		return result, fmt.Errorf("%w: %s: copied %d of required %d", ErrIncomplete, base, len(result.Copied), o.minStems)
	}
	return result, nil
}
