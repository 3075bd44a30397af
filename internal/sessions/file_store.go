package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// FileStore keeps one JSON document per session in a directory
type FileStore struct {
	dir    string
	logger *zap.Logger
}

// NewFileStore creates the directory if needed
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

// Dir returns the storage directory
func (f *FileStore) Dir() string {
	return f.dir
}

func (f *FileStore) path(id string) string {
	return filepath.Join(f.dir, id+".json")
}

// Save writes the record to a temp file and renames it into place, so a
// crash never leaves a half-written session behind.
func (f *FileStore) Save(_ context.Context, s *State) error {
	if !validID(s.SessionID) {
		return fmt.Errorf("save session: invalid id %q", s.SessionID)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.SessionID, err)
	}

	tmp, err := os.CreateTemp(f.dir, s.SessionID+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write session %s: %w", s.SessionID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close session %s: %w", s.SessionID, err)
	}
	if err := os.Rename(tmpName, f.path(s.SessionID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename session %s: %w", s.SessionID, err)
	}
	return nil
}

func (f *FileStore) Load(_ context.Context, id string) (*State, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	return f.read(f.path(id))
}

func (f *FileStore) read(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, filepath.Base(path), err)
	}
	if s.Answers == nil {
		s.Answers = []string{}
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, filepath.Base(path), err)
	}
	return &s, nil
}

// List scans the directory. Unreadable records are logged and skipped.
func (f *FileStore) List(_ context.Context, userID string) ([]*State, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("read session directory: %w", err)
	}

	var out []*State
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		s, err := f.read(filepath.Join(f.dir, entry.Name()))
		if err != nil {
			f.logger.Warn("skipping session record", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		if userID == "" || s.UserID == userID {
			out = append(out, s)
		}
	}

	newestFirst(out)
	return out, nil
}

func (f *FileStore) Close() error { return nil }
