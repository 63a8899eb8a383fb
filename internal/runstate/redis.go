package runstate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisClient is the slice of redis.Cmdable the store needs.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisStore keeps one JSON document per run id under run:<id>. Useful when
// the service runs replicated and the poller may hit a different instance
// than the worker that owns the run.
type RedisStore struct {
	client redisClient
	now    func() time.Time
}

func NewRedisStore(addr, password string, db int) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisStore{client: rdb, now: time.Now}
}

func runKey(runID string) string { return "run:" + runID }

func (s *RedisStore) Write(ctx context.Context, runID string, p Patch) (Record, error) {
	existing, err := s.Read(ctx, runID)
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

	data, err := json.Marshal(merged)
	if err != nil {
		return Record{}, fmt.Errorf("marshal run %s: %w", runID, err)
	}
	if err := s.client.Set(ctx, runKey(runID), data, 0).Err(); err != nil {
		return Record{}, fmt.Errorf("store run %s: %w", runID, err)
	}
	return merged, nil
}

func (s *RedisStore) Read(ctx context.Context, runID string) (Record, error) {
	data, err := s.client.Get(ctx, runKey(runID)).Bytes()
	if err == redis.Nil {
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
