package progress

import (
	"context"
	"errors"
	"fmt"

	"stemsep/internal/config"
)

var (
	// ErrCorrupt marks a progress file that exists but cannot be parsed.
	ErrCorrupt = errors.New("progress file corrupt")
	// ErrLocked marks an output directory already claimed by another run.
	ErrLocked = errors.New("output directory locked by another run")
)

// Store persists the processed set.
type Store interface {
	// Load returns the persisted set; a missing backing file yields an empty set.
	Load(ctx context.Context) (Set, error)
	// Save durably records every name in set.
	Save(ctx context.Context, set Set) error
	// Remove deletes names and returns how many were present.
	Remove(ctx context.Context, names ...string) (int, error)
	// Path returns the backing file location.
	Path() string
	Close() error
}

// Open returns the store selected by cfg.Progress.Backend.
func Open(cfg *config.Config) (Store, error) {
	if cfg == nil {
		return nil, errors.New("progress store requires config")
	}
	path := cfg.ProgressPath()
	switch cfg.Progress.Backend {
	case config.ProgressBackendJSON:
		return NewJSONStore(path), nil
	case config.ProgressBackendSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("progress backend %q not supported", cfg.Progress.Backend)
	}
}

// Forget removes names from store. It is an operator action; a normal run
// never shrinks the processed set.
func Forget(ctx context.Context, store Store, names ...string) (int, error) {
	if store == nil {
		return 0, errors.New("progress store unavailable")
	}
	if len(names) == 0 {
		return 0, nil
	}
	return store.Remove(ctx, names...)
}
