// Package store persists escrow records as one JSON snapshot per game.
// Snapshots are written after each committed transition and loaded at boot;
// per-record serialized execution makes write-after-commit safe without a
// write-ahead log.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/thejustinfagan/Battle-Dinghy-ORE/internal/escrow"
)

// ledgerFile holds the account balances backing the records. Game IDs
// cannot contain '.', so the name never collides with a record snapshot.
const ledgerFile = "ledger.balances.json"

// Store writes escrow snapshots under a single directory.
type Store struct {
	dir    string
	logger *log.Logger
}

// New creates the snapshot directory if needed and returns a store.
func New(dir string, logger *log.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &Store{dir: dir, logger: logger.WithPrefix("store")}, nil
}

// Save writes the record's snapshot atomically. Readers observe either the
// previous snapshot or the new one, never a partial file.
func (s *Store) Save(e *escrow.Escrow) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal escrow %s: %w", e.GameID, err)
	}
	if err := writeFileAtomic(s.path(e.GameID), data, 0o644); err != nil {
		return fmt.Errorf("write escrow %s: %w", e.GameID, err)
	}
	return nil
}

// Load reads one record's snapshot. Returns os.ErrNotExist (wrapped) when
// no snapshot exists for the game.
func (s *Store) Load(gameID string) (*escrow.Escrow, error) {
	data, err := os.ReadFile(s.path(gameID))
	if err != nil {
		return nil, fmt.Errorf("read escrow %s: %w", gameID, err)
	}
	var e escrow.Escrow
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode escrow %s: %w", gameID, err)
	}
	return &e, nil
}

// SaveLedger writes the account balances backing the records, using the
// same atomic write path as record snapshots.
func (s *Store) SaveLedger(balances map[string]int64) error {
	data, err := json.MarshalIndent(balances, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(s.dir, ledgerFile), data, 0o644); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}

// LoadLedger reads the persisted balances. A missing file is not an error:
// it returns nil, meaning nothing has been persisted yet.
func (s *Store) LoadLedger() (map[string]int64, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, ledgerFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	var balances map[string]int64
	if err := json.Unmarshal(data, &balances); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	return balances, nil
}

// LoadAll reads every record snapshot in the directory. Files that fail to
// decode are skipped with a warning rather than aborting recovery.
func (s *Store) LoadAll() ([]*escrow.Escrow, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read snapshot dir: %w", err)
	}

	var out []*escrow.Escrow
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if entry.Name() == ledgerFile {
			continue
		}
		gameID := strings.TrimSuffix(entry.Name(), ".json")
		e, err := s.Load(gameID)
		if err != nil {
			s.logger.Warn("skipping unreadable snapshot", "file", entry.Name(), "error", err)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) path(gameID string) string {
	return filepath.Join(s.dir, gameID+".json")
}

// writeFileAtomic writes data via a temp file in the same directory and an
// atomic rename, so a crash mid-write never leaves a truncated snapshot.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	tmpFile, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	tmpFile = nil

	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, filename); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
