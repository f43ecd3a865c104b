package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultLabelTTL is the default TTL for cached geo labels (24 hours)
const DefaultLabelTTL = 24 * time.Hour

// Store caches geo labels in Redis. It satisfies geo.LabelCache.
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// SetLabel stores an address -> label resolution
func (s *Store) SetLabel(ctx context.Context, address, label string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultLabelTTL
	}
	if err := s.client.Set(ctx, GeoKey(address), label, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache geo label: %w", err)
	}
	return nil
}

// GetLabel retrieves a cached label; a miss returns "" and no error
func (s *Store) GetLabel(ctx context.Context, address string) (string, error) {
	label, err := s.client.Get(ctx, GeoKey(address)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get cached geo label: %w", err)
	}
	return label, nil
}

// InvalidateLabel removes a cached label and reports whether one existed
func (s *Store) InvalidateLabel(ctx context.Context, address string) (bool, error) {
	n, err := s.client.Del(ctx, GeoKey(address)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to invalidate geo label: %w", err)
	}
	return n > 0, nil
}

// FlushLabels removes all cached labels and returns how many were deleted
func (s *Store) FlushLabels(ctx context.Context) (int, error) {
	deleted := 0
	iter := s.client.Scan(ctx, 0, KeyPrefixGeo+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, fmt.Errorf("failed to delete geo key: %w", err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("failed to flush geo labels: %w", err)
	}
	return deleted, nil
}

// Ping reports whether Redis answers
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
