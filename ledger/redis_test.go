package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, ""), mr
}

func TestRedisStore_ReserveAndDeny(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	ok, err := store.Reserve(ctx, 42, 60, 1, 100, 10)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second 60 against the 100 ceiling in the same bucket is denied.
	ok, err = store.Reserve(ctx, 42, 60, 1, 100, 10)
	require.NoError(t, err)
	assert.False(t, ok)

	// A different bucket has its own counters.
	ok, err = store.Reserve(ctx, 43, 60, 1, 100, 10)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisStore_DenialLeavesCountersUntouched(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	ok, err := store.Reserve(ctx, 7, 90, 1, 100, 10)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.Reserve(ctx, 7, 20, 1, 100, 10)
	require.NoError(t, err)
	require.False(t, ok)

	got, err := mr.Get(DefaultKeyPrefix + ":tokens:7")
	require.NoError(t, err)
	assert.Equal(t, "90", got, "denied reservation must not bump the token counter")
	got, err = mr.Get(DefaultKeyPrefix + ":requests:7")
	require.NoError(t, err)
	assert.Equal(t, "1", got, "denied reservation must not bump the request counter")
}

func TestRedisStore_ZeroCeilingUnlimited(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ok, err := store.Reserve(ctx, 9, 1_000_000, 100, 0, 0)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestRedisStore_CountersExpire(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	ok, err := store.Reserve(ctx, 5, 10, 1, 100, 10)
	require.NoError(t, err)
	require.True(t, ok)

	key := DefaultKeyPrefix + ":tokens:5"
	require.True(t, mr.Exists(key))

	mr.FastForward(3 * time.Minute)
	assert.False(t, mr.Exists(key), "bucket counters should expire after the window")
}

func TestRedisStore_UnreachableServer(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, "")
	mr.Close()

	ok, err := store.Reserve(context.Background(), 1, 1, 1, 100, 10)
	assert.False(t, ok)
	assert.Error(t, err, "a dead store must surface an error so the ledger fails closed")
}
