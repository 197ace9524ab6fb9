package driven

import "context"

// KVStore is the persistent key-value store shared by every execution context.
// Implementations must be safe for concurrent use.
type KVStore interface {
	// Get returns the value for key.
	// Returns domain.ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// DeleteMany removes every key in keys.
	DeleteMany(ctx context.Context, keys []string) error

	// Keys returns every key starting with prefix, in no particular order.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// CompareAndSwap atomically replaces the value of key with newValue
	// if its current value equals oldValue. A nil oldValue means the key
	// must not exist. Returns true if the swap happened.
	CompareAndSwap(ctx context.Context, key string, oldValue, newValue []byte) (bool, error)
}
