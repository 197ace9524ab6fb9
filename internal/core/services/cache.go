package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/portal-sync/internal/core/domain"
	"github.com/custodia-labs/portal-sync/internal/core/ports/driven"
	"github.com/custodia-labs/portal-sync/internal/logger"
)

// Store keys owned by the cache.
const (
	cacheKeyPrefix    = "cache:"
	cacheEntryPrefix  = cacheKeyPrefix + "entry:"
	keyCacheLastWrite = cacheKeyPrefix + "last_update"
	keyAppVersion     = "app:version"
)

var cacheLog = logger.For("cache")

// CacheService is the TTL cache of fetched portal payloads.
// Entries older than domain.CacheTTL read as misses but stay stored until overwritten.
type CacheService struct {
	store driven.KVStore
	now   func() time.Time

	locksMu sync.Mutex
	locks   map[domain.DataKind]*sync.Mutex

	group singleflight.Group
}

// NewCacheService creates a cache over store.
func NewCacheService(store driven.KVStore, opts ...Option) *CacheService {
	o := applyOptions(opts)
	return &CacheService{
		store: store,
		now:   o.now,
		locks: make(map[domain.DataKind]*sync.Mutex),
	}
}

func entryKey(kind domain.DataKind) string {
	return cacheEntryPrefix + string(kind)
}

// lockFor returns the write mutex for kind.
func (c *CacheService) lockFor(kind domain.DataKind) *sync.Mutex {
	c.locksMu.Lock()
	defer c.locksMu.Unlock()
	mu, ok := c.locks[kind]
	if !ok {
		mu = &sync.Mutex{}
		c.locks[kind] = mu
	}
	return mu
}

// Get returns the entry for kind if it exists and is younger than domain.CacheTTL.
// Returns domain.ErrCacheMiss otherwise.
func (c *CacheService) Get(ctx context.Context, kind domain.DataKind) (*domain.CacheEntry, error) {
	entry, err := c.read(ctx, kind)
	if err != nil {
		return nil, err
	}
	if !entry.Valid(c.now()) {
		return nil, domain.ErrCacheMiss
	}
	return entry, nil
}

// read loads the stored entry for kind regardless of age.
func (c *CacheService) read(ctx context.Context, kind domain.DataKind) (*domain.CacheEntry, error) {
	raw, err := c.store.Get(ctx, entryKey(kind))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("read cache %s: %w", kind, err)
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		cacheLog.Warn("discarding unreadable %s entry: %v", kind, err)
		return nil, domain.ErrCacheMiss
	}
	return &entry, nil
}

// Set overwrites the entry for kind with payload and stamps it with the current time.
func (c *CacheService) Set(ctx context.Context, kind domain.DataKind, payload any) error {
	if !kind.IsValid() {
		return fmt.Errorf("%w: data kind %q", domain.ErrInvalidInput, kind)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", kind, err)
	}

	now := c.now()
	raw, err := json.Marshal(domain.CacheEntry{Kind: kind, FetchedAt: now, Payload: data})
	if err != nil {
		return fmt.Errorf("encode %s entry: %w", kind, err)
	}

	mu := c.lockFor(kind)
	mu.Lock()
	defer mu.Unlock()

	if err := c.store.Set(ctx, entryKey(kind), raw); err != nil {
		return fmt.Errorf("write cache %s: %w", kind, err)
	}
	if err := c.store.Set(ctx, keyCacheLastWrite, []byte(now.Format(time.RFC3339Nano))); err != nil {
		return fmt.Errorf("write cache last update: %w", err)
	}

	cacheLog.Debug("stored %s (%d bytes)", kind, len(data))
	return nil
}

// Lookup returns the cached payload for kind decoded as T.
func Lookup[T any](ctx context.Context, c *CacheService, kind domain.DataKind) (T, error) {
	var value T
	entry, err := c.Get(ctx, kind)
	if err != nil {
		return value, err
	}
	if err := json.Unmarshal(entry.Payload, &value); err != nil {
		return value, fmt.Errorf("%w: cached %s: %v", domain.ErrDecodePayload, kind, err)
	}
	return value, nil
}

// GetOrFetch returns the cached payload for kind, or calls fetch on a miss and
// caches its result. Fetch errors are returned unchanged and nothing is cached.
// Concurrent misses for the same kind share one fetch.
func GetOrFetch[T any](
	ctx context.Context,
	c *CacheService,
	kind domain.DataKind,
	fetch func(ctx context.Context) (T, error),
) (T, error) {
	if value, err := Lookup[T](ctx, c, kind); err == nil {
		return value, nil
	}

	result, err, _ := c.group.Do(string(kind), func() (any, error) {
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.Set(ctx, kind, value); err != nil {
			cacheLog.Warn("fetched %s but could not cache it: %v", kind, err)
		}
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

// ClearAll removes every entry and the last-update marker.
func (c *CacheService) ClearAll(ctx context.Context) error {
	keys, err := c.store.Keys(ctx, cacheKeyPrefix)
	if err != nil {
		return fmt.Errorf("list cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.store.DeleteMany(ctx, keys); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	cacheLog.Info("cleared %d keys", len(keys))
	return nil
}

// LastUpdate returns the time of the most recent successful write, or zero.
func (c *CacheService) LastUpdate(ctx context.Context) (time.Time, error) {
	raw, err := c.store.Get(ctx, keyCacheLastWrite)
	if errors.Is(err, domain.ErrNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read cache last update: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, string(raw))
	if err != nil {
		return time.Time{}, nil
	}
	return t, nil
}

// IsStale reports whether the last write is older than maxAgeHours or missing.
// It ignores per-kind validity; use Get for per-item correctness.
func (c *CacheService) IsStale(ctx context.Context, maxAgeHours int) (bool, error) {
	last, err := c.LastUpdate(ctx)
	if err != nil {
		return true, err
	}
	if last.IsZero() {
		return true, nil
	}
	return c.now().Sub(last) >= time.Duration(maxAgeHours)*time.Hour, nil
}

// Status builds the cache introspection view.
func (c *CacheService) Status(ctx context.Context) (*domain.CacheStatus, error) {
	last, err := c.LastUpdate(ctx)
	if err != nil {
		return nil, err
	}

	now := c.now()
	status := &domain.CacheStatus{
		LastUpdate: last,
		Stale:      last.IsZero() || now.Sub(last) >= domain.CacheTTL,
		Kinds:      make(map[domain.DataKind]domain.KindStatus, len(domain.AllKinds())),
	}

	for _, kind := range domain.AllKinds() {
		entry, err := c.read(ctx, kind)
		switch {
		case errors.Is(err, domain.ErrCacheMiss):
			status.Kinds[kind] = domain.KindStatus{}
		case err != nil:
			return nil, err
		default:
			status.Kinds[kind] = domain.KindStatus{
				Present:   true,
				Valid:     entry.Valid(now),
				FetchedAt: entry.FetchedAt,
			}
		}
	}
	return status, nil
}

// EnsureVersion clears the cache if it was written by a different app version.
// Returns true if the cache was cleared.
func (c *CacheService) EnsureVersion(ctx context.Context, version string) (bool, error) {
	stored, err := c.store.Get(ctx, keyAppVersion)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return false, fmt.Errorf("read app version: %w", err)
	}
	if err == nil && string(stored) == version {
		return false, nil
	}

	cleared := err == nil
	if cleared {
		cacheLog.Info("app version changed from %s to %s", stored, version)
		if err := c.ClearAll(ctx); err != nil {
			return false, err
		}
	}
	if err := c.store.Set(ctx, keyAppVersion, []byte(version)); err != nil {
		return cleared, fmt.Errorf("write app version: %w", err)
	}
	return cleared, nil
}
