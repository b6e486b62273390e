package workflow

import (
	"errors"
	"log/slog"

	"stemsep/internal/config"
	"stemsep/internal/deps"
	"stemsep/internal/logging"
	"stemsep/internal/metrics"
	"stemsep/internal/organizer"
	"stemsep/internal/procstream"
	"stemsep/internal/progress"
	"stemsep/internal/separator"
)

// Manager coordinates one separation run.
type Manager struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     progress.Store
	separator separator.Separator
	organizer FileOrganizer
	models    []separator.Model
	metrics   *metrics.Recorder
	prober    deps.Prober
	executor  procstream.Executor
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithLogger sets the run logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithStore injects a progress store. By default the configured backend is
// opened after the output lock is taken.
func WithStore(store progress.Store) ManagerOption {
	return func(m *Manager) {
		m.store = store
	}
}

// WithSeparator replaces the model runner (primarily for tests). When set, the
// accelerator probe is skipped.
func WithSeparator(sep separator.Separator) ManagerOption {
	return func(m *Manager) {
		m.separator = sep
	}
}

// WithExecutor keeps the default separator but runs its commands through exec.
func WithExecutor(exec procstream.Executor) ManagerOption {
	return func(m *Manager) {
		m.executor = exec
	}
}

// WithOrganizer replaces the stem merger.
func WithOrganizer(org FileOrganizer) ManagerOption {
	return func(m *Manager) {
		m.organizer = org
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(rec *metrics.Recorder) ManagerOption {
	return func(m *Manager) {
		m.metrics = rec
	}
}

// WithProber replaces the accelerator probe.
func WithProber(probe deps.Prober) ManagerOption {
	return func(m *Manager) {
		m.prober = probe
	}
}

// NewManager constructs a workflow manager for a finalized config.
func NewManager(cfg *config.Config, opts ...ManagerOption) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("workflow requires config")
	}
	m := &Manager{
		cfg:    cfg,
		logger: logging.NewNop(),
		models: separator.ModelsFromConfig(cfg),
		prober: deps.ExecProber,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.NewComponentLogger(m.logger, "workflow")
	if len(m.models) == 0 {
		return nil, errors.New("workflow requires at least one model")
	}
	if m.organizer == nil {
		org, err := organizer.New(cfg, m.logger)
		if err != nil {
			return nil, err
		}
		m.organizer = org
	}
	return m, nil
}
