package progress

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped when schema.sql changes incompatibly.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// SQLiteStore keeps the processed set in a SQLite table. Save only inserts, so
// the table grows monotonically.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure progress directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: apply pragma %q: %w", ErrCorrupt, pragma, execErr)
		}
	}

	store := &SQLiteStore{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("%w: check schema_version table: %w", ErrCorrupt, err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("%w: read schema version: %w", ErrCorrupt, err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (s *SQLiteStore) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Load returns every recorded name.
func (s *SQLiteStore) Load(ctx context.Context) (Set, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM processed")
	if err != nil {
		return Set{}, fmt.Errorf("query processed: %w", err)
	}
	defer rows.Close()

	set := NewSet()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return Set{}, fmt.Errorf("scan processed: %w", err)
		}
		set.Add(name)
	}
	if err := rows.Err(); err != nil {
		return Set{}, fmt.Errorf("iterate processed: %w", err)
	}
	return set, nil
}

// Save inserts any names not yet recorded inside one transaction.
func (s *SQLiteStore) Save(ctx context.Context, set Set) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO processed (name, processed_at) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	for _, name := range set.Names() {
		if _, err := stmt.ExecContext(ctx, name, timestamp); err != nil {
			return fmt.Errorf("insert %q: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Remove deletes names from the table. Rows match in NFC form, so a name
// recorded in decomposed spelling is removed by its composed one too.
func (s *SQLiteStore) Remove(ctx context.Context, names ...string) (int, error) {
	stored, err := s.storedNames(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, name := range names {
		for _, row := range stored[norm.NFC.String(name)] {
			res, err := s.db.ExecContext(ctx, "DELETE FROM processed WHERE name = ?", row)
			if err != nil {
				return removed, fmt.Errorf("delete %q: %w", name, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				removed += int(n)
			}
		}
		delete(stored, norm.NFC.String(name))
	}
	return removed, nil
}

// storedNames groups the recorded spellings by their NFC form.
func (s *SQLiteStore) storedNames(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM processed")
	if err != nil {
		return nil, fmt.Errorf("query processed: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan processed: %w", err)
		}
		key := norm.NFC.String(name)
		out[key] = append(out[key], name)
	}
	return out, rows.Err()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
