package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hylla/tavla/internal/app"
	"github.com/hylla/tavla/internal/domain"
)

// Store persists the board tree as one indented JSON document on disk.
// The file shares its shape with the export document, so a state file can
// be copied out as a backup or dropped in from another machine unchanged.
type Store struct {
	path string
}

// New constructs a new value for this package.
func New(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("state path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &Store{path: path}, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads and validates the state file. A missing file maps to
// app.ErrNoState so the caller can seed a fresh tree.
func (s *Store) Load(ctx context.Context) ([]domain.Board, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, app.ErrNoState
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var snapshot []app.BoardSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}
	boards, err := app.BoardsFromSnapshot(snapshot)
	if err != nil {
		return nil, fmt.Errorf("validate state file: %w", err)
	}
	return boards, nil
}

// Save writes the tree through a temp file and rename so a crash mid-write
// never leaves a truncated state file behind.
func (s *Store) Save(ctx context.Context, boards []domain.Board) error {
	data, err := json.MarshalIndent(app.SnapshotFromBoards(boards), "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".tavla-state-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
