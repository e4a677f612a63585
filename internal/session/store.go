package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"creator-match/internal/models"
	"creator-match/internal/wizard"

	"github.com/redis/go-redis/v9"
)

var (
	ErrNotFound = errors.New("session: not found")
	// ErrStale is returned by Save when the store already holds the same or a
	// newer version of the record.
	ErrStale = errors.New("session: stale version")
)

// Record is the persisted form of one session. Version grows by one on every
// save so instances sharing a store can tell which snapshot is newer.
type Record struct {
	Session models.Session `json:"session"`
	State   wizard.State   `json:"state"`
	Version int64          `json:"version"`
}

// Store persists session records between process restarts and across
// instances.
type Store interface {
	Save(ctx context.Context, rec Record, ttl time.Duration) error
	Load(ctx context.Context, id string) (*Record, error)
	Delete(ctx context.Context, id string) error
}

// RedisStore keeps one JSON document per session under prefix+id.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

// Save writes rec only if the stored record is older. The read and the write
// run under WATCH so a concurrent writer makes this save fail with ErrStale.
func (s *RedisStore) Save(ctx context.Context, rec Record, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", rec.Session.ID, err)
	}

	key := s.key(rec.Session.ID)
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			var stored Record
			if err := json.Unmarshal(current, &stored); err == nil && stored.Version >= rec.Version {
				return ErrStale
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, ttl)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStale), errors.Is(err, redis.TxFailedErr):
		return fmt.Errorf("save session %s version %d: %w", rec.Session.ID, rec.Version, ErrStale)
	default:
		return fmt.Errorf("save session %s: %w", rec.Session.ID, err)
	}
}

func (s *RedisStore) Load(ctx context.Context, id string) (*Record, error) {
	val, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	var rec Record
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &rec, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}
