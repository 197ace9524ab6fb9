package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/portal-sync/internal/core/domain"
	"github.com/custodia-labs/portal-sync/internal/core/ports/driven"
)

// DefaultNamespace prefixes every key written by the store.
const DefaultNamespace = "portalsync:"

// scanBatch is the COUNT hint passed to SCAN.
const scanBatch = 200

// casScript swaps KEYS[1] to ARGV[2] if it currently equals ARGV[1].
// ARGV[3] == "1" means the key must be absent instead.
var casScript = goredis.NewScript(`
local current = redis.call("GET", KEYS[1])
if ARGV[3] == "1" then
  if current then return 0 end
elseif current ~= ARGV[1] then
  return 0
end
redis.call("SET", KEYS[1], ARGV[2])
return 1
`)

// Config holds the Redis connection settings.
type Config struct {
	Addr      string
	Password  string
	DB        int
	Namespace string
}

// KVStore implements driven.KVStore on Redis.
type KVStore struct {
	client    *goredis.Client
	namespace string
}

var _ driven.KVStore = (*KVStore)(nil)

// NewKVStore connects to Redis and pings it before returning.
func NewKVStore(ctx context.Context, cfg Config) (*KVStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}

	return NewKVStoreFromClient(client, cfg.Namespace), nil
}

// NewKVStoreFromClient wraps an existing client.
func NewKVStoreFromClient(client *goredis.Client, namespace string) *KVStore {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &KVStore{client: client, namespace: namespace}
}

// Close closes the underlying client.
func (s *KVStore) Close() error {
	return s.client.Close()
}

func (s *KVStore) key(k string) string {
	return s.namespace + k
}

// Get returns the value for key.
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting key %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key without expiry.
func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("setting key %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("deleting key %s: %w", key, err)
	}
	return nil
}

// DeleteMany removes every key in keys with one DEL.
func (s *KVStore) DeleteMany(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("deleting %d keys: %w", len(keys), err)
	}
	return nil
}

// Keys returns every key starting with prefix.
func (s *KVStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	pattern := s.key(escapeGlob(prefix)) + "*"

	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.namespace))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scanning keys: %w", err)
	}
	return keys, nil
}

// CompareAndSwap runs the swap as a Lua script, which Redis executes atomically.
func (s *KVStore) CompareAndSwap(ctx context.Context, key string, oldValue, newValue []byte) (bool, error) {
	mustBeAbsent := "0"
	if oldValue == nil {
		mustBeAbsent = "1"
	}

	n, err := casScript.Run(ctx, s.client, []string{s.key(key)}, oldValue, newValue, mustBeAbsent).Int()
	if err != nil {
		return false, fmt.Errorf("compare and swap %s: %w", key, err)
	}
	return n == 1, nil
}

// escapeGlob escapes the SCAN MATCH metacharacters in s.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
