package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gyaneshwarpardhi/caseflow/internal/storage"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS caseflow_snapshots (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    saved_at    TIMESTAMPTZ NOT NULL,
    nodes       INTEGER NOT NULL DEFAULT 0,
    connections INTEGER NOT NULL DEFAULT 0,
    body        JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_caseflow_snapshots_name_saved ON caseflow_snapshots(name, saved_at DESC);
`

// PGStore implements storage.Store using PostgreSQL via pgx.
type PGStore struct {
	db *pgxpool.Pool
}

// New creates a new PGStore backed by the given pgx connection pool.
func New(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// Open connects to dsn and creates the schema.
func Open(ctx context.Context, dsn string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: connect postgres: %w", err)
	}
	s := New(pool)
	if err := s.CreateSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: create schema: %w", err)
	}
	return s, nil
}

// CreateSchema creates the snapshot table if it doesn't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the snapshot table.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS caseflow_snapshots;`)
	return err
}

func (s *PGStore) Save(ctx context.Context, snap *storage.Snapshot) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO caseflow_snapshots (id, name, saved_at, nodes, connections, body) VALUES ($1, $2, $3, $4, $5, $6)`,
		snap.ID, snap.Name, snap.SavedAt, snap.Nodes, snap.Connections, string(snap.Body),
	)
	if err != nil {
		return fmt.Errorf("storage: insert snapshot %s: %w", snap.ID, err)
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, id string) (*storage.Snapshot, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, name, saved_at, nodes, connections, body FROM caseflow_snapshots WHERE id = $1`, id)
	return scanFull(row, id)
}

func (s *PGStore) Latest(ctx context.Context, name string) (*storage.Snapshot, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, name, saved_at, nodes, connections, body FROM caseflow_snapshots
		 WHERE name = $1 ORDER BY saved_at DESC LIMIT 1`, name)
	return scanFull(row, name)
}

func (s *PGStore) List(ctx context.Context, name string, limit int) ([]storage.Snapshot, error) {
	var lim interface{}
	if limit > 0 {
		lim = limit
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, name, saved_at, nodes, connections FROM caseflow_snapshots
		 WHERE name = $1 ORDER BY saved_at DESC LIMIT $2`, name, lim)
	if err != nil {
		return nil, fmt.Errorf("storage: query snapshots: %w", err)
	}
	defer rows.Close()

	var out []storage.Snapshot
	for rows.Next() {
		var snap storage.Snapshot
		if err := rows.Scan(&snap.ID, &snap.Name, &snap.SavedAt, &snap.Nodes, &snap.Connections); err != nil {
			return nil, fmt.Errorf("storage: scan snapshot: %w", err)
		}
		snap.SavedAt = snap.SavedAt.UTC()
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: rows snapshots: %w", err)
	}
	return out, nil
}

func (s *PGStore) Prune(ctx context.Context, name string, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	tag, err := s.db.Exec(ctx,
		`DELETE FROM caseflow_snapshots WHERE name = $1 AND id NOT IN (
			SELECT id FROM caseflow_snapshots WHERE name = $1 ORDER BY saved_at DESC LIMIT $2
		)`, name, keep)
	if err != nil {
		return 0, fmt.Errorf("storage: prune snapshots: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Close releases the pool.
func (s *PGStore) Close() error {
	s.db.Close()
	return nil
}

func scanFull(row pgx.Row, key string) (*storage.Snapshot, error) {
	var (
		snap storage.Snapshot
		body string
	)
	err := row.Scan(&snap.ID, &snap.Name, &snap.SavedAt, &snap.Nodes, &snap.Connections, &body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: scan snapshot: %w", err)
	}
	snap.SavedAt = snap.SavedAt.UTC()
	snap.Body = []byte(body)
	return &snap, nil
}
