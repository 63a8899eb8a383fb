package runstate

import (
	"context"
	"errors"
	"fmt"

	"github.com/mohammad-safakhou/postforge/config"
)

var (
	// ErrNotFound means no write has ever happened for the run id.
	ErrNotFound = errors.New("run not found")
	// ErrCorrupt means the stored document exists but cannot be parsed.
	ErrCorrupt = errors.New("corrupt run data")
	// ErrInvalidTransition means a write tried to regress the status or
	// leave a terminal state.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Store is a durable key-value slot holding one serialized Record per run id.
// Write performs a read-modify-write merge so partial progress is never lost;
// Read returns the latest merged snapshot.
type Store interface {
	Write(ctx context.Context, runID string, p Patch) (Record, error)
	Read(ctx context.Context, runID string) (Record, error)
}

// NewStore builds the configured backend.
func NewStore(cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "file", "":
		return NewFileStore(cfg.RunsDir), nil
	case "redis":
		return NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}
