package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"clouddesign.com.br/storefront/pkg/cart"
	"clouddesign.com.br/storefront/pkg/models"
)

// Storage is the Redis implementation of cart.Storage. Every write refreshes
// the key's TTL, so a cart lives for ttl after its last change.
type Storage struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStorage(client *redis.Client, ttl time.Duration) *Storage {
	return &Storage{client: client, ttl: ttl}
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, nil
}

func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Incr bumps a counter and refreshes its TTL in one transaction.
func (s *Storage) Incr(ctx context.Context, key string) (int64, error) {
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", key, err)
	}
	return incr.Val(), nil
}

// Commit applies w in a MULTI/EXEC block. Guard keys are WATCHed, so a
// concurrent change to any of them between the check and EXEC also yields
// models.ErrConflict.
func (s *Storage) Commit(ctx context.Context, w cart.Write) error {
	apply := func(pipe redis.Pipeliner) error {
		for key, value := range w.Set {
			pipe.Set(ctx, key, value, s.ttl)
		}
		if len(w.Remove) > 0 {
			pipe.Del(ctx, w.Remove...)
		}
		for _, key := range w.Incr {
			pipe.Incr(ctx, key)
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	}

	if len(w.Guards) == 0 {
		if _, err := s.client.TxPipelined(ctx, apply); err != nil {
			return fmt.Errorf("redis commit: %w", err)
		}
		return nil
	}

	keys := make([]string, 0, len(w.Guards))
	for key := range w.Guards {
		keys = append(keys, key)
	}
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		for key, want := range w.Guards {
			got, err := tx.Get(ctx, key).Int64()
			if errors.Is(err, redis.Nil) {
				got, err = 0, nil
			}
			if err != nil {
				return fmt.Errorf("redis guard %s: %w", key, err)
			}
			if got != want {
				return models.ErrConflict
			}
		}
		_, err := tx.TxPipelined(ctx, apply)
		return err
	}, keys...)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrConflict):
		return err
	case errors.Is(err, redis.TxFailedErr):
		return models.ErrConflict
	}
	return fmt.Errorf("redis commit: %w", err)
}
