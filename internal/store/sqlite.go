package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// SQLiteStore keeps every history in one local database file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("history: create data dir: %w", err)
	}
	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: migration: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS history (
			document_path TEXT PRIMARY KEY,
			snapshots     TEXT NOT NULL DEFAULT '[]',
			updated_at    TEXT NOT NULL DEFAULT (datetime('now'))
		)`)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context, documentPath string) (*History, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshots FROM history WHERE document_path = ?`, documentPath,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return &History{DocumentPath: documentPath, Snapshots: []Snapshot{}}, nil
	}
	if err != nil {
		return nil, err
	}
	h := &History{DocumentPath: documentPath}
	if err := json.Unmarshal([]byte(raw), &h.Snapshots); err != nil {
		return nil, fmt.Errorf("decode snapshots: %w", err)
	}
	return h, nil
}

func (s *SQLiteStore) Save(ctx context.Context, h *History) error {
	snapshots := h.Snapshots
	if snapshots == nil {
		snapshots = []Snapshot{}
	}
	raw, err := json.Marshal(snapshots)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO history (document_path, snapshots) VALUES (?, ?)
		ON CONFLICT(document_path) DO UPDATE SET
			snapshots = excluded.snapshots,
			updated_at = datetime('now')`,
		h.DocumentPath, string(raw),
	)
	return err
}
