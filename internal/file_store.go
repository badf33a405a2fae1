package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/lychee-technology/propgrid"
	"go.uber.org/zap"
)

// FileStore keeps all snapshots in one JSON document keyed by view. Writes go
// to a temporary file that replaces the document, so readers never see a
// partial write.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Save(_ context.Context, key string, names *propgrid.CollapsedNames) (*propgrid.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snaps, err := s.read()
	if err != nil {
		return nil, err
	}
	snap := propgrid.NewSnapshot(key, names)
	snaps[key] = snap
	if err := s.write(snaps); err != nil {
		return nil, err
	}
	zap.S().Debugw("collapse state saved", "backend", propgrid.BackendFile, "key", key, "names", snap.Names.Len())
	return snap, nil
}

func (s *FileStore) Load(_ context.Context, key string) (*propgrid.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snaps, err := s.read()
	if err != nil {
		return nil, err
	}
	snap, ok := snaps[key]
	if !ok {
		return nil, propgrid.NewStateNotFoundError(key)
	}
	return snap, nil
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snaps, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := snaps[key]; !ok {
		return nil
	}
	delete(snaps, key)
	return s.write(snaps)
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) read() (map[string]*propgrid.Snapshot, error) {
	snaps := make(map[string]*propgrid.Snapshot)
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return snaps, nil
	}
	if err != nil {
		return nil, propgrid.NewStorageError(fmt.Sprintf("failed to read %s", s.path), err)
	}
	if len(data) == 0 {
		return snaps, nil
	}
	if err := json.Unmarshal(data, &snaps); err != nil {
		return nil, propgrid.NewStorageError(fmt.Sprintf("failed to parse %s", s.path), err)
	}
	return snaps, nil
}

func (s *FileStore) write(snaps map[string]*propgrid.Snapshot) error {
	data, err := json.MarshalIndent(snaps, "", "  ")
	if err != nil {
		return propgrid.NewStorageError("failed to encode snapshots", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return propgrid.NewStorageError(fmt.Sprintf("failed to create %s", dir), err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return propgrid.NewStorageError("failed to create temporary file", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return propgrid.NewStorageError("failed to write snapshots", err)
	}
	if err := tmp.Close(); err != nil {
		return propgrid.NewStorageError("failed to write snapshots", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return propgrid.NewStorageError(fmt.Sprintf("failed to replace %s", s.path), err)
	}
	return nil
}
