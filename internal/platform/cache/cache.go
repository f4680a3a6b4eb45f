// Package cache is a Redis-backed JSON document store with a key prefix
// and an optional TTL. A Store built without a client is disabled: reads
// miss and writes are dropped.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrDisabled = errors.New("cache: redis not configured")

type Store struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// New returns a Store whose keys are prefix+key. ttl <= 0 keeps entries
// until deleted.
func New(client redis.UniversalClient, prefix string, ttl time.Duration) *Store {
	if c, ok := client.(*redis.Client); ok && c == nil {
		client = nil
	}
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

// Connect parses a redis:// URL and pings it. An empty URL yields a nil
// client without error.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("cache: parse url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("cache: ping: %w", err)
	}
	return client, nil
}

func (s *Store) Enabled() bool { return s != nil && s.client != nil }

func (s *Store) key(k string) string { return s.prefix + k }

// Get decodes the value at key into dest. It reports false on a miss.
func (s *Store) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache: get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return true, nil
}

// GetRaw returns the stored bytes without decoding them.
func (s *Store) GetRaw(ctx context.Context, key string) ([]byte, bool, error) {
	if !s.Enabled() {
		return nil, false, nil
	}
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: get %s: %w", key, err)
	}
	return data, true, nil
}

func (s *Store) Set(ctx context.Context, key string, v interface{}) error {
	if !s.Enabled() {
		return ErrDisabled
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	return s.SetRaw(ctx, key, data)
}

func (s *Store) SetRaw(ctx context.Context, key string, data []byte) error {
	if !s.Enabled() {
		return ErrDisabled
	}
	ttl := s.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("cache: set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if !s.Enabled() || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("cache: delete: %w", err)
	}
	return nil
}

// DeleteMatching removes every key under prefix+pattern using SCAN.
func (s *Store) DeleteMatching(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	iter := s.client.Scan(ctx, 0, s.key(pattern), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache: scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}
