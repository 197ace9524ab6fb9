package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/portal-sync/internal/core/domain"
)

func TestKVStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewKVStore()

	require.NoError(t, store.Set(ctx, "cache:attendance", []byte(`{"kind":"attendance"}`)))

	val, err := store.Get(ctx, "cache:attendance")
	require.NoError(t, err)
	assert.Equal(t, `{"kind":"attendance"}`, string(val))

	require.NoError(t, store.Delete(ctx, "cache:attendance"))
	_, err = store.Get(ctx, "cache:attendance")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestKVStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewKVStore()
	require.NoError(t, store.Set(ctx, "k", []byte("abc")))

	val, err := store.Get(ctx, "k")
	require.NoError(t, err)
	val[0] = 'z'

	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

func TestKVStore_KeysAndDeleteMany(t *testing.T) {
	ctx := context.Background()
	store := NewKVStore()
	for _, key := range []string{"notify:a", "notify:b", "cache:attendance"} {
		require.NoError(t, store.Set(ctx, key, []byte("1")))
	}

	keys, err := store.Keys(ctx, "notify:")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"notify:a", "notify:b"}, keys)

	require.NoError(t, store.DeleteMany(ctx, keys))
	assert.Equal(t, 1, store.Len())
}

func TestKVStore_CompareAndSwap(t *testing.T) {
	ctx := context.Background()
	store := NewKVStore()

	// Absent key, expect absent
	ok, err := store.CompareAndSwap(ctx, "refresh:marker:midnight", nil, []byte("2026-03-10"))
	require.NoError(t, err)
	assert.True(t, ok)

	// Absent expected but present
	ok, err = store.CompareAndSwap(ctx, "refresh:marker:midnight", nil, []byte("2026-03-10"))
	require.NoError(t, err)
	assert.False(t, ok)

	// Wrong old value
	ok, err = store.CompareAndSwap(ctx, "refresh:marker:midnight", []byte("2026-03-09"), []byte("2026-03-11"))
	require.NoError(t, err)
	assert.False(t, ok)

	// Matching old value
	ok, err = store.CompareAndSwap(ctx, "refresh:marker:midnight", []byte("2026-03-10"), []byte("2026-03-11"))
	require.NoError(t, err)
	assert.True(t, ok)

	val, err := store.Get(ctx, "refresh:marker:midnight")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-11", string(val))
}

func TestKVStore_CompareAndSwap_SingleWinner(t *testing.T) {
	ctx := context.Background()
	store := NewKVStore()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.CompareAndSwap(ctx, "notify:low_attendance:2026-03-10", nil, []byte("1"))
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}
