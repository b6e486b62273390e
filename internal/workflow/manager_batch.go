package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"stemsep/internal/discovery"
	"stemsep/internal/logging"
	"stemsep/internal/metrics"
	"stemsep/internal/staging"
)

// runBatch drives one batch through every model and then merges its files.
// Panics are recovered into a failed result; the scratch directory is removed
// on every path.
func (m *Manager) runBatch(ctx context.Context, state *runState, index, total, start int, files []discovery.InputFile) (result BatchResult) {
	result = BatchResult{Index: index, Start: start, Files: len(files)}
	ctx = logging.WithBatch(ctx, index)
	logger := logging.WithContext(ctx, m.logger)
	logger.Info(fmt.Sprintf("Processing batch %d of %d", index, total),
		logging.Int("start", start),
		logging.Strings("files", discovery.Names(files)),
	)

	dir, err := staging.NewBatchDir(m.cfg.Paths.TempDir, start)
	if err != nil {
		m.failBatch(logger, state, &result, files, err)
		return result
	}
	defer func() { _ = staging.Remove(dir, logger) }()
	defer func() {
		if r := recover(); r != nil {
			m.failBatch(logger, state, &result, files, fmt.Errorf("batch panic: %v", r))
		}
	}()

	for _, model := range m.models {
		if err := ctx.Err(); err != nil {
			result.Cancelled, result.Err = true, err
			return result
		}
		began := time.Now()
		ok, err := state.separator.Separate(ctx, model, dir, files)
		m.metrics.ObserveModelRun(model.Name, ok, time.Since(began))
		if ok {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			logger.Info("model run interrupted", logging.String(logging.FieldModel, model.Name))
			result.Cancelled, result.Err = true, ctxErr
			return result
		}
		if err == nil {
			err = fmt.Errorf("model %s failed", model.Name)
		}
		m.failBatch(logger.With(logging.String(logging.FieldModel, model.Name)), state, &result, files, err)
		return result
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			result.Cancelled, result.Err = true, err
			return result
		}
		if m.organizeFile(ctx, logger, state, result.Index, dir, file) {
			result.Organized++
		}
	}

	logger.Info("batch complete",
		logging.Int("organized", result.Organized),
		logging.Int("files", result.Files),
		logging.String(logging.FieldEventType, "batch_complete"),
	)
	return result
}

// organizeFile merges one file and, on success, records and flushes it. The
// flush runs even if ctx was cancelled during the merge so a finished file is
// never redone.
func (m *Manager) organizeFile(ctx context.Context, logger *slog.Logger, state *runState, batch int, dir string, file discovery.InputFile) bool {
	fileLogger := logger.With(logging.String(logging.FieldFile, file.Name))

	res, err := m.organizer.Organize(dir, file.Base)
	if err != nil {
		status, hint := classifyFileFailure(err)
		m.metrics.RecordFiles(status, 1)
		state.summary.Failures = append(state.summary.Failures, FileFailure{Name: file.Name, Batch: batch, Reason: err.Error()})
		logging.WarnWithContext(fileLogger, fmt.Sprintf("Failed to organize stems for %s", file.Name), "organize_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hint),
			logging.String(logging.FieldImpact, "file stays pending for the next run"),
		)
		return false
	}

	state.processed.Add(file.Name)
	if err := state.store.Save(context.WithoutCancel(ctx), state.processed); err != nil {
		logging.ErrorWithContext(fileLogger, "failed to persist progress", "progress_save_failed",
			logging.Error(err),
			logging.String("path", state.store.Path()),
			logging.String(logging.FieldErrorHint, "check output directory permissions and free space"),
		)
	}
	if !res.Complete() {
		state.summary.Partial = append(state.summary.Partial, PartialFile{Name: file.Name, Missing: res.Missing})
	}
	m.metrics.RecordFiles(metrics.FileOrganized, 1)
	fileLogger.Info("stems organized",
		logging.Strings("stems", res.Copied),
		logging.String("dir", res.Dir),
	)
	return true
}

// failBatch marks a batch failed and records every file in it that is not
// already processed.
func (m *Manager) failBatch(logger *slog.Logger, state *runState, result *BatchResult, files []discovery.InputFile, err error) {
	result.Failed, result.Err = true, err
	pending := 0
	for _, file := range files {
		if state.processed.Has(file.Name) {
			continue
		}
		pending++
		state.summary.Failures = append(state.summary.Failures, FileFailure{Name: file.Name, Batch: result.Index, Reason: err.Error()})
	}
	m.metrics.RecordFiles(metrics.FileBatchFailed, pending)
	logging.ErrorWithContext(logger, fmt.Sprintf("Failed to process batch %d", result.Index), "batch_failed",
		logging.Error(err),
		logging.Int("files", pending),
		logging.String(logging.FieldErrorHint, "inspect the separator output above; rerun to retry"),
		logging.String(logging.FieldImpact, "batch files stay pending for the next run"),
	)
}
