package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tripmingle/pkg/cache"

	"github.com/redis/go-redis/v9"
)

// Store persists the full session state on every mutation.
type Store interface {
	Save(state *State) error
	Load() (*State, bool, error)
	Clear() error
}

// FileStore keeps the session as a JSON blob on the device, the way a mobile
// client persists its draft booking between launches.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Save(state *State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode booking session: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write booking session: %w", err)
	}

	return os.Rename(tmp, f.path)
}

func (f *FileStore) Load() (*State, bool, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read booking session: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, false, fmt.Errorf("failed to decode booking session: %w", err)
	}

	return &state, true, nil
}

func (f *FileStore) Clear() error {
	err := os.Remove(f.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear booking session: %w", err)
	}
	return nil
}

// RedisStore keeps the session server-side, keyed by user, so a login from a
// new device can resume an in-flight booking.
type RedisStore struct {
	cache *cache.RedisCache
	key   string
	ttl   time.Duration
}

func NewRedisStore(redisCache *cache.RedisCache, userID string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		cache: redisCache,
		key:   "booking:session:" + userID,
		ttl:   ttl,
	}
}

func (r *RedisStore) Save(state *State) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.cache.Set(ctx, r.key, state, r.ttl)
}

func (r *RedisStore) Load() (*State, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var state State
	err := r.cache.Get(ctx, r.key, &state)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &state, true, nil
}

func (r *RedisStore) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.cache.Delete(ctx, r.key)
}
