package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// HistoryDirName is the directory that holds history files.
const HistoryDirName = ".lectern-history"

// FileStore keeps one JSON file per document. With an empty root the
// history sits next to each document, which only suits local use. A
// rooted store keeps every history under root and never writes outside it.
type FileStore struct {
	root string
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

// Rooted reports whether histories are kept under a fixed directory.
func (s *FileStore) Rooted() bool {
	return s.root != ""
}

// Path returns the history file of documentPath. Unrooted it is
// <doc dir>/.lectern-history/<stem>.history.json. Rooted it is
// <root>/.lectern-history/<stem>-<hash>.history.json, where hash is taken
// over the cleaned document path so documents sharing a file name do not
// share a history.
func (s *FileStore) Path(documentPath string) string {
	base := filepath.Base(documentPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if s.root == "" {
		return filepath.Join(filepath.Dir(documentPath), HistoryDirName, stem+".history.json")
	}
	sum := sha256.Sum256([]byte(filepath.ToSlash(filepath.Clean(documentPath))))
	return filepath.Join(s.root, HistoryDirName, stem+"-"+hex.EncodeToString(sum[:6])+".history.json")
}

func (s *FileStore) check(documentPath string) error {
	if s.root == "" {
		return nil
	}
	return ValidatePath(documentPath)
}

func (s *FileStore) Load(_ context.Context, documentPath string) (*History, error) {
	if err := s.check(documentPath); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path(documentPath))
	if errors.Is(err, fs.ErrNotExist) {
		return &History{DocumentPath: documentPath, Snapshots: []Snapshot{}}, nil
	}
	if err != nil {
		return nil, err
	}
	var h History
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.Path(documentPath), err)
	}
	if h.DocumentPath == "" {
		h.DocumentPath = documentPath
	}
	return &h, nil
}

func (s *FileStore) Save(_ context.Context, h *History) error {
	if err := s.check(h.DocumentPath); err != nil {
		return err
	}
	path := s.Path(h.DocumentPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *FileStore) Close() error { return nil }
