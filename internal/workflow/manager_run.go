package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stemsep/internal/deps"
	"stemsep/internal/discovery"
	"stemsep/internal/logging"
	"stemsep/internal/procstream"
	"stemsep/internal/progress"
	"stemsep/internal/separator"
	"stemsep/internal/staging"
)

// runState is the mutable state shared by the batches of one run.
type runState struct {
	store     progress.Store
	processed progress.Set
	separator separator.Separator
	summary   *Summary
}

// Run processes every pending file and returns what happened. Only setup
// failures (lock, corrupt progress, unreadable input directory) return an
// error before batches start; batch and file failures are reported in the
// summary. A cancelled run returns the summary so far with the context error.
func (m *Manager) Run(ctx context.Context) (Summary, error) {
	started := time.Now()
	summary := Summary{RunID: uuid.NewString()}
	ctx = logging.WithRunID(ctx, summary.RunID)
	logger := logging.WithContext(ctx, m.logger)

	if err := m.cfg.EnsureDirectories(); err != nil {
		return summary, err
	}

	lock := progress.NewLock(m.cfg.LockPath())
	if err := lock.Acquire(); err != nil {
		return summary, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("failed to release output lock", logging.Error(err))
		}
	}()

	store := m.store
	if store == nil {
		opened, err := progress.Open(m.cfg)
		if err != nil {
			return summary, fmt.Errorf("open progress: %w", err)
		}
		defer opened.Close()
		store = opened
	}
	processed, err := store.Load(ctx)
	if err != nil {
		return summary, fmt.Errorf("load progress: %w", err)
	}
	summary.Processed = processed.Len()

	maxAge := time.Duration(m.cfg.Staging.StaleAfterHours) * time.Hour
	staging.CleanStale(ctx, m.cfg.Paths.TempDir, maxAge, logger)

	files, err := discovery.Find(m.cfg.Paths.InputDir, processed)
	if err != nil {
		return summary, err
	}
	summary.Discovered = len(files)
	if len(files) == 0 {
		logger.Info("No unprocessed files found.", logging.Int("processed", summary.Processed))
		m.finish(logger, &summary, started)
		return summary, nil
	}
	logger.Info("found files to process",
		logging.Int("pending", len(files)),
		logging.Int("batch_size", m.cfg.Separation.BatchSize),
	)

	sep, err := m.ensureSeparator(ctx, logger)
	if err != nil {
		return summary, err
	}

	state := &runState{store: store, processed: processed, separator: sep, summary: &summary}
	batches := Partition(files, m.cfg.Separation.BatchSize)
	summary.Batches = len(batches)
	start := 0
	for i, batch := range batches {
		if ctx.Err() != nil {
			break
		}
		result := m.runBatch(ctx, state, i+1, len(batches), start, batch)
		start += len(batch)
		summary.FilesOrganized += result.Organized
		if result.Failed {
			summary.BatchesFailed++
		}
		m.metrics.RecordBatch(!result.Failed && !result.Cancelled)
		if result.Cancelled {
			break
		}
	}

	summary.Processed = processed.Len()
	summary.FilesFailed = len(summary.Failures)
	if err := ctx.Err(); err != nil {
		summary.Cancelled = true
		logger.Warn("run cancelled",
			logging.Int("organized", summary.FilesOrganized),
			logging.String(logging.FieldEventType, "run_cancelled"),
			logging.String(logging.FieldImpact, "remaining files stay pending for the next run"),
		)
		m.finish(logger, &summary, started)
		return summary, err
	}
	m.finish(logger, &summary, started)
	return summary, nil
}

// ensureSeparator resolves the accelerator once, before any batch, and builds
// the default separator around it.
func (m *Manager) ensureSeparator(ctx context.Context, logger *slog.Logger) (separator.Separator, error) {
	if m.separator != nil {
		return m.separator, nil
	}
	device, err := deps.ResolveDevice(ctx, m.cfg.Separation, m.prober)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		logging.WarnWithContext(logger, "accelerator probe failed; running without device flag", "device_probe_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "set separation.device explicitly to skip probing"),
			logging.String(logging.FieldImpact, "separator chooses its own device"),
		)
		device = ""
	}
	opts := []separator.Option{separator.WithLogger(m.logger)}
	if m.executor != nil {
		opts = append(opts, separator.WithExecutor(m.executor))
	} else {
		opts = append(opts, separator.WithExecutor(procstream.New(procstream.WithLogger(m.logger))))
	}
	sep, err := separator.New(m.cfg, device, opts...)
	if err != nil {
		return nil, err
	}
	logger.Info("accelerator resolved", logging.String("device", displayDevice(sep.Device())))
	m.separator = sep
	return sep, nil
}

func (m *Manager) finish(logger *slog.Logger, summary *Summary, started time.Time) {
	summary.Duration = time.Since(started)
	m.metrics.SetProcessed(summary.Processed)
	if path := m.cfg.Metrics.Textfile; path != "" {
		if err := m.metrics.WriteTextfile(path); err != nil {
			logger.Warn("failed to write metrics textfile",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "metrics_write_failed"),
			)
		}
	}
	logger.Info(fmt.Sprintf("Successfully processed %d files", summary.Processed),
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("organized", summary.FilesOrganized),
		logging.Int("failed", summary.FilesFailed),
		logging.Int("batches_failed", summary.BatchesFailed),
		logging.Duration("duration", summary.Duration),
	)
}

func displayDevice(device string) string {
	if device == "" {
		return "default"
	}
	return device
}
