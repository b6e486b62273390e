package staging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"stemsep/internal/logging"
)

// batchPrefix marks directories owned by this package; nothing else under the
// scratch root is ever touched.
const batchPrefix = "batch_"

// BatchDirName returns the deterministic directory name for the batch that
// starts at index start of the pending list.
func BatchDirName(start int) string {
	return batchPrefix + strconv.Itoa(start)
}

// IsBatchDir reports whether name looks like a batch scratch directory.
func IsBatchDir(name string) bool {
	rest, ok := strings.CutPrefix(name, batchPrefix)
	if !ok || rest == "" {
		return false
	}
	_, err := strconv.Atoi(rest)
	return err == nil
}

// NewBatchDir creates an empty scratch directory for a batch under root. A
// leftover directory of the same name is removed first so model output from a
// crashed run never mixes with the new one.
func NewBatchDir(root string, start int) (string, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return "", errors.New("scratch root required")
	}
	if start < 0 {
		return "", fmt.Errorf("batch start index must not be negative, got %d", start)
	}
	dir := filepath.Join(root, BatchDirName(start))
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("clear batch directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create batch directory: %w", err)
	}
	return dir, nil
}

// Remove deletes a batch directory. Failures are logged and returned but are
// never fatal to the caller's loop.
func Remove(dir string, logger *slog.Logger) error {
	if strings.TrimSpace(dir) == "" {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		if logger != nil {
			logger.Warn("failed to remove batch directory",
				logging.String("path", dir),
				logging.Error(err),
				logging.String(logging.FieldEventType, "staging_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "check temp_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
		}
		return err
	}
	return nil
}

// CleanStaleResult contains the outcome of a stale directory cleanup operation.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes batch directories under root older than maxAge. A zero
// maxAge removes every batch directory, which is safe while the caller holds
// the output lock.
func CleanStale(ctx context.Context, root string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}

	root = strings.TrimSpace(root)
	if root == "" {
		return result
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: root, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if ctx.Err() != nil {
			return result
		}
		if !entry.IsDir() || !IsBatchDir(entry.Name()) {
			continue
		}

		dirPath := filepath.Join(root, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			continue
		}
		if maxAge > 0 && !info.ModTime().Before(cutoff) {
			continue
		}

		if err := Remove(dirPath, logger); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		if logger != nil {
			logger.Info("removed stale batch directory",
				logging.String("path", dirPath),
				logging.Duration("age", time.Since(info.ModTime())),
				logging.String(logging.FieldEventType, "staging_cleanup"),
			)
		}
	}

	return result
}

// ListDirectories returns the batch directories under root with their metadata.
func ListDirectories(root string) ([]DirInfo, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() || !IsBatchDir(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		dirPath := filepath.Join(root, entry.Name())
		size, _ := dirSize(dirPath)

		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    dirPath,
			ModTime: info.ModTime(),
			Size:    size,
		})
	}

	return dirs, nil
}

// DirInfo contains metadata about a batch directory.
type DirInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// dirSize calculates the total size of a directory recursively.
func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // best effort
		}
		if d.IsDir() {
			return nil
		}
		if info, infoErr := d.Info(); infoErr == nil {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
