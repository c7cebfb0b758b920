package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

type profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestAside_FetchesOnceThenServesFromCache(t *testing.T) {
	_, rdb := newTestRedis(t)
	SetClient(rdb)
	t.Cleanup(func() { SetClient(nil) })

	ctx := context.Background()
	calls := 0
	fetch := func(dest *profile) func() error {
		return func() error {
			calls++
			*dest = profile{ID: "u1", Name: "Ada"}
			return nil
		}
	}

	var first profile
	require.NoError(t, Aside(ctx, UserKey("u1"), &first, time.Minute, fetch(&first)))
	var second profile
	require.NoError(t, Aside(ctx, UserKey("u1"), &second, time.Minute, fetch(&second)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, "Ada", second.Name)
}

func TestAside_PropagatesFetchError(t *testing.T) {
	SetClient(nil)
	var p profile
	err := Aside(context.Background(), UserKey("u1"), &p, time.Minute, func() error {
		return errors.New("db down")
	})
	assert.EqualError(t, err, "db down")
}

func TestAside_NoClientAlwaysFetches(t *testing.T) {
	SetClient(nil)
	calls := 0
	var p profile
	for n := 0; n < 2; n++ {
		require.NoError(t, Aside(context.Background(), "k", &p, time.Minute, func() error {
			calls++
			return nil
		}))
	}
	assert.Equal(t, 2, calls)
}

func TestInvalidate(t *testing.T) {
	mr, rdb := newTestRedis(t)
	SetClient(rdb)
	t.Cleanup(func() { SetClient(nil) })

	require.NoError(t, SetJSON(context.Background(), UserKey("u1"), profile{ID: "u1"}, time.Minute))
	assert.True(t, mr.Exists(UserKey("u1")))

	Invalidate(context.Background(), UserKey("u1"))
	assert.False(t, mr.Exists(UserKey("u1")))
}

func TestSeenStore(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewSeenStore(rdb, 30*time.Minute)
	ctx := context.Background()

	require.NoError(t, store.MarkSeen(ctx, "viewer", []string{"p1", "p2"}))
	require.NoError(t, store.MarkSeen(ctx, "viewer", []string{"p2", "p3"}))

	seen, err := store.Seen(ctx, "viewer")
	require.NoError(t, err)
	assert.Len(t, seen, 3)
	assert.Contains(t, seen, "p3")
	assert.Equal(t, 30*time.Minute, mr.TTL(SeenKey("viewer")))

	other, err := store.Seen(ctx, "someone-else")
	require.NoError(t, err)
	assert.Empty(t, other)

	mr.FastForward(31 * time.Minute)
	expired, err := store.Seen(ctx, "viewer")
	require.NoError(t, err)
	assert.Empty(t, expired)
}

func TestSeenStore_Reset(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewSeenStore(rdb, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.MarkSeen(ctx, "viewer", []string{"p1"}))
	require.NoError(t, store.Reset(ctx, "viewer"))

	seen, err := store.Seen(ctx, "viewer")
	require.NoError(t, err)
	assert.Empty(t, seen)
}

func TestSeenStore_NilClientIsNoop(t *testing.T) {
	store := NewSeenStore(nil, time.Minute)
	ctx := context.Background()

	assert.NoError(t, store.MarkSeen(ctx, "viewer", []string{"p1"}))
	seen, err := store.Seen(ctx, "viewer")
	assert.NoError(t, err)
	assert.Nil(t, seen)
}

func TestInitRedis_UnreachableLeavesClientNil(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	InitRedis(addr)
	assert.Nil(t, GetClient())

	InitRedis("redis://%zz")
	assert.Nil(t, GetClient())
}
