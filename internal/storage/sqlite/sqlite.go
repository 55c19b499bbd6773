package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gyaneshwarpardhi/caseflow/internal/storage"
)

// Store implements storage.Store using SQLite
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at path and migrates it. Use
// ":memory:" for a throwaway store.
func New(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every pooled connection to :memory: would get its own database.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		saved_at INTEGER NOT NULL,
		nodes INTEGER NOT NULL DEFAULT 0,
		connections INTEGER NOT NULL DEFAULT 0,
		body BLOB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_name_saved ON snapshots(name, saved_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save stores snap.
func (s *Store) Save(ctx context.Context, snap *storage.Snapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, name, saved_at, nodes, connections, body)
		VALUES (?, ?, ?, ?, ?, ?)
	`, snap.ID, snap.Name, snap.SavedAt.UnixNano(), snap.Nodes, snap.Connections, snap.Body)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot %s: %w", snap.ID, err)
	}
	return nil
}

// Get loads one snapshot with its body.
func (s *Store) Get(ctx context.Context, id string) (*storage.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, saved_at, nodes, connections, body
		FROM snapshots WHERE id = ?
	`, id)
	return scanFull(row, id)
}

// Latest loads the newest snapshot of name with its body.
func (s *Store) Latest(ctx context.Context, name string) (*storage.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, saved_at, nodes, connections, body
		FROM snapshots WHERE name = ?
		ORDER BY saved_at DESC, rowid DESC LIMIT 1
	`, name)
	return scanFull(row, name)
}

// List returns snapshot headers of name, newest first.
func (s *Store) List(ctx context.Context, name string, limit int) ([]storage.Snapshot, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, saved_at, nodes, connections
		FROM snapshots WHERE name = ?
		ORDER BY saved_at DESC, rowid DESC LIMIT ?
	`, name, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var out []storage.Snapshot
	for rows.Next() {
		var (
			snap    storage.Snapshot
			savedAt int64
		)
		if err := rows.Scan(&snap.ID, &snap.Name, &savedAt, &snap.Nodes, &snap.Connections); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snap.SavedAt = time.Unix(0, savedAt).UTC()
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Prune keeps the newest keep snapshots of name.
func (s *Store) Prune(ctx context.Context, name string, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM snapshots WHERE name = ? AND id NOT IN (
			SELECT id FROM snapshots WHERE name = ?
			ORDER BY saved_at DESC, rowid DESC LIMIT ?
		)
	`, name, name, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanFull(row *sql.Row, key string) (*storage.Snapshot, error) {
	var (
		snap    storage.Snapshot
		savedAt int64
	)
	err := row.Scan(&snap.ID, &snap.Name, &savedAt, &snap.Nodes, &snap.Connections, &snap.Body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}
	snap.SavedAt = time.Unix(0, savedAt).UTC()
	return &snap, nil
}
