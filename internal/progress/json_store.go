package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"stemsep/internal/fileutil"
)

// JSONStore keeps the processed set as a JSON array of names.
type JSONStore struct {
	path string
}

// NewJSONStore returns a store backed by the file at path.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Path returns the backing file location.
func (s *JSONStore) Path() string {
	return s.path
}

// Load reads the set. A missing file is the first-run case and yields an empty
// set; unparsable content returns ErrCorrupt.
func (s *JSONStore) Load(ctx context.Context) (Set, error) {
	if err := ctx.Err(); err != nil {
		return Set{}, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewSet(), nil
		}
		return Set{}, fmt.Errorf("read progress: %w", err)
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return Set{}, fmt.Errorf("%w: %s: %w", ErrCorrupt, s.path, err)
	}
	return NewSet(names...), nil
}

// Save rewrites the whole file atomically.
func (s *JSONStore) Save(ctx context.Context, set Set) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(set.Names())
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("ensure progress directory: %w", err)
	}
	if err := fileutil.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write progress: %w", err)
	}
	return nil
}

// Remove deletes names from the persisted set.
func (s *JSONStore) Remove(ctx context.Context, names ...string) (int, error) {
	set, err := s.Load(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, name := range names {
		if set.Delete(name) {
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, s.Save(ctx, set)
}

// Close is a no-op; the file is not held open between calls.
func (s *JSONStore) Close() error {
	return nil
}
