package runstate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore persists one pretty-printed JSON document per run id under a
// directory. Writes go through a temp file + rename so a concurrent reader
// never observes a torn document.
type FileStore struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir, now: time.Now}
}

func (s *FileStore) path(runID string) string {
	return filepath.Join(s.dir, runID+".json")
}

func (s *FileStore) Write(ctx context.Context, runID string, p Patch) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.read(runID)
	if err != nil && err != ErrNotFound {
		return Record{}, err
	}
	if err == ErrNotFound {
		existing = Record{RunID: runID, Status: StatusPending}
	}
	if !CanTransition(existing.Status, p.Status) {
		return Record{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, existing.Status, p.Status)
	}

	merged := Merge(existing, p, s.now())
	merged.RunID = runID

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Record{}, fmt.Errorf("create runs dir: %w", err)
	}
	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return Record{}, fmt.Errorf("marshal run %s: %w", runID, err)
	}

	tmp, err := os.CreateTemp(s.dir, runID+".*.tmp")
	if err != nil {
		return Record{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return Record{}, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return Record{}, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path(runID)); err != nil {
		os.Remove(tmpName)
		return Record{}, fmt.Errorf("replace run file: %w", err)
	}
	return merged, nil
}

func (s *FileStore) Read(ctx context.Context, runID string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(runID)
}

func (s *FileStore) read(runID string) (Record, error) {
	data, err := os.ReadFile(s.path(runID))
	if os.IsNotExist(err) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("read run %s: %w", runID, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("%w: run %s: %v", ErrCorrupt, runID, err)
	}
	return rec, nil
}
