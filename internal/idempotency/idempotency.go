// Package idempotency records processed job ids in Redis so that a
// redelivered queue message is handled once.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"cafe-backoffice/internal/config"
)

const keyPrefix = "cafe:job:"

// Store claims job ids with SETNX. A claim lives for ttl; Release drops it
// so that a failed job can be retried on redelivery.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// NewClient builds a go-redis client from config.
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func key(jobID string) string {
	return keyPrefix + jobID
}

// Claim returns true when jobID has not been claimed before.
func (s *Store) Claim(ctx context.Context, jobID string) (bool, error) {
	ok, err := s.client.SetNX(ctx, key(jobID), time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim job %s: %w", jobID, err)
	}
	return ok, nil
}

func (s *Store) Release(ctx context.Context, jobID string) error {
	if err := s.client.Del(ctx, key(jobID)).Err(); err != nil {
		return fmt.Errorf("failed to release job %s: %w", jobID, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
