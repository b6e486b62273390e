package progress

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Lock guards an output directory so only one run writes its progress.
type Lock struct {
	path string
	lock *flock.Flock
}

// NewLock returns an unlocked Lock for the file at path.
func NewLock(path string) *Lock {
	return &Lock{path: path, lock: flock.New(path)}
}

// Acquire takes the lock without blocking. It returns ErrLocked when another
// process already holds it.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("ensure lock directory: %w", err)
	}
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", l.path, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocked, l.path)
	}
	return nil
}

// Release drops the lock. Releasing an unheld lock is a no-op.
func (l *Lock) Release() error {
	if !l.lock.Locked() {
		return nil
	}
	return l.lock.Unlock()
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}
