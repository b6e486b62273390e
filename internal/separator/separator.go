// Package separator drives the external source-separation executable for one
// model checkpoint over one batch of input files.
package separator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"stemsep/internal/config"
	"stemsep/internal/discovery"
	"stemsep/internal/logging"
	"stemsep/internal/procstream"
)

// ErrModelFailed indicates the executable ran but exited nonzero.
var ErrModelFailed = errors.New("model run failed")

// Model is one checkpoint and the stems taken from its output.
type Model struct {
	Name  string
	Stems []string
}

// ModelsFromConfig converts configured models in order.
func ModelsFromConfig(cfg *config.Config) []Model {
	if cfg == nil {
		return nil
	}
	models := make([]Model, 0, len(cfg.Separation.Models))
	for _, m := range cfg.Separation.Models {
		models = append(models, Model{Name: m.Name, Stems: append([]string(nil), m.Stems...)})
	}
	return models
}

// Separator runs a model over a batch, writing stems under
// <outputDir>/<model>/<base>/. It reports true only when the run exited zero.
type Separator interface {
	Separate(ctx context.Context, model Model, outputDir string, files []discovery.InputFile) (bool, error)
}

// Option configures Demucs.
type Option func(*Demucs)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec procstream.Executor) Option {
	return func(d *Demucs) {
		if exec != nil {
			d.exec = exec
		}
	}
}

// WithLogger sets the logger used for run lifecycle messages.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Demucs) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// Demucs invokes the demucs command-line separator.
type Demucs struct {
	binary      string
	prefix      []string
	formatFlags []string
	device      string
	exec        procstream.Executor
	logger      *slog.Logger
}

// New builds a Demucs separator from configuration. device is the resolved
// accelerator; empty or "none" omits the device flag.
func New(cfg *config.Config, device string, opts ...Option) (*Demucs, error) {
	if cfg == nil {
		return nil, errors.New("separator requires config")
	}
	binary := strings.TrimSpace(cfg.Separation.Binary)
	if binary == "" {
		return nil, errors.New("separation binary required")
	}
	flags, err := FormatFlags(cfg.Separation.OutputFormat, cfg.Separation.MP3Bitrate)
	if err != nil {
		return nil, err
	}
	d := &Demucs{
		binary:      binary,
		prefix:      append([]string(nil), cfg.Separation.Args...),
		formatFlags: flags,
		device:      strings.TrimSpace(device),
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.exec == nil {
		d.exec = procstream.New(procstream.WithLogger(d.logger))
	}
	return d, nil
}

// FormatFlags returns the encoding flags for format. At most one output mode
// is ever selected; wav needs no flag.
func FormatFlags(format string, mp3Bitrate int) ([]string, error) {
	switch format {
	case config.OutputFormatMP3:
		if mp3Bitrate <= 0 {
			return nil, fmt.Errorf("mp3 bitrate must be positive, got %d", mp3Bitrate)
		}
		return []string{"--mp3", "--mp3-bitrate=" + strconv.Itoa(mp3Bitrate)}, nil
	case config.OutputFormatFloat32:
		return []string{"--float32"}, nil
	case config.OutputFormatInt24:
		return []string{"--int24"}, nil
	case config.OutputFormatWAV:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

// Command returns the binary and argument list for one model run.
func (d *Demucs) Command(model Model, outputDir string, files []discovery.InputFile) (string, []string) {
	args := make([]string, 0, len(d.prefix)+len(d.formatFlags)+len(files)+6)
	args = append(args, d.prefix...)
	args = append(args, "-n", model.Name, "-o", outputDir)
	if d.device != "" && d.device != config.DeviceNone {
		args = append(args, "-d", d.device)
	}
	args = append(args, d.formatFlags...)
	for _, f := range files {
		args = append(args, f.Path)
	}
	return d.binary, args
}

// Device returns the accelerator passed to the executable, if any.
func (d *Demucs) Device() string {
	return d.device
}

// Separate runs model over files. An empty batch succeeds without launching
// anything. The error carries launch, exit, or cancellation detail when the
// result is false.
func (d *Demucs) Separate(ctx context.Context, model Model, outputDir string, files []discovery.InputFile) (bool, error) {
	if len(files) == 0 {
		return true, nil
	}
	if strings.TrimSpace(model.Name) == "" {
		return false, errors.New("model name required")
	}

	name, args := d.Command(model, outputDir, files)
	logger := d.logger.With(logging.String(logging.FieldModel, model.Name))
	logger.Info("model run started",
		logging.Int("files", len(files)),
		logging.String("output_dir", outputDir),
		logging.String("device", d.device),
	)

	start := time.Now()
	code, err := d.exec.Run(ctx, name, args)
	elapsed := time.Since(start)
	if err != nil {
		return false, fmt.Errorf("model %s: %w", model.Name, err)
	}
	if code != 0 {
		return false, fmt.Errorf("%w: model %s exited with code %d", ErrModelFailed, model.Name, code)
	}

	logger.Info("model run finished", logging.Duration("elapsed", elapsed))
	return true, nil
}
