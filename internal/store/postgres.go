package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &PostgresStore{pool: pool}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// EnsureSchema creates the history table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS lectern_history (
			document_path TEXT PRIMARY KEY,
			snapshots     JSONB NOT NULL DEFAULT '[]'::jsonb,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("create lectern_history: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, documentPath string) (*History, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `
		SELECT snapshots FROM lectern_history WHERE document_path = $1`, documentPath,
	).Scan(&raw)
	if err == pgx.ErrNoRows {
		return &History{DocumentPath: documentPath, Snapshots: []Snapshot{}}, nil
	}
	if err != nil {
		return nil, err
	}
	h := &History{DocumentPath: documentPath}
	if err := json.Unmarshal(raw, &h.Snapshots); err != nil {
		return nil, fmt.Errorf("decode snapshots: %w", err)
	}
	return h, nil
}

func (s *PostgresStore) Save(ctx context.Context, h *History) error {
	snapshots := h.Snapshots
	if snapshots == nil {
		snapshots = []Snapshot{}
	}
	raw, err := json.Marshal(snapshots)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO lectern_history (document_path, snapshots)
		VALUES ($1, $2)
		ON CONFLICT (document_path)
		DO UPDATE SET snapshots = EXCLUDED.snapshots, updated_at = now()`,
		h.DocumentPath, raw,
	)
	return err
}

// Documents lists every document with recorded history.
func (s *PostgresStore) Documents(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT document_path FROM lectern_history ORDER BY document_path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
