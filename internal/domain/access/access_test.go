package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"el-estate-bot/internal/infra/kv"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (kv.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := kv.NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

// failingStore отвечает ошибкой на проверку членства.
type failingStore struct{ kv.Store }

func (failingStore) SIsMember(context.Context, string, string) (bool, error) {
	return false, errors.New("connection refused")
}

func TestIsAllowed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _ := newStore(t)
	w := New(store, []int64{1})

	assert.True(t, w.IsAllowed(ctx, 1), "admin bypasses whitelist")
	assert.False(t, w.IsAllowed(ctx, 2))

	require.NoError(t, w.Allow(ctx, 2))
	assert.True(t, w.IsAllowed(ctx, 2))

	require.NoError(t, w.Deny(ctx, 2))
	assert.False(t, w.IsAllowed(ctx, 2))
	require.NoError(t, w.Deny(ctx, 2), "deny of absent id is not an error")
}

func TestIsAllowedFailsClosed(t *testing.T) {
	t.Parallel()
	w := New(failingStore{}, []int64{1})

	assert.False(t, w.IsAllowed(context.Background(), 2))
	assert.True(t, w.IsAllowed(context.Background(), 1), "admins do not touch the store")
}

func TestIsAllowedRedisDown(t *testing.T) {
	t.Parallel()
	store, mr := newStore(t)
	w := New(store, nil)
	require.NoError(t, w.Allow(context.Background(), 5))
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.False(t, w.IsAllowed(ctx, 5))
}

func TestMembersSortedNumerically(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, mr := newStore(t)
	w := New(store, []int64{9, 3})

	for _, id := range []int64{100, 20, 3} {
		require.NoError(t, w.Allow(ctx, id))
	}
	_, err := mr.SAdd(WhitelistKey, "garbage")
	require.NoError(t, err)

	got, err := w.Members(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 20, 100}, got)
	assert.Equal(t, []int64{3, 9}, w.Admins())
}

func TestForwardRequests(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, mr := newStore(t)
	f := NewForwardRequests(store)

	assert.False(t, f.Pending(ctx, 1))
	require.NoError(t, f.Begin(ctx, 1))
	assert.True(t, f.Pending(ctx, 1))
	assert.Equal(t, ForwardTTL, mr.TTL("admin:await_forward:1"))

	mr.FastForward(ForwardTTL + time.Second)
	assert.False(t, f.Pending(ctx, 1))

	require.NoError(t, f.Begin(ctx, 1))
	require.NoError(t, f.Clear(ctx, 1))
	assert.False(t, f.Pending(ctx, 1))
}
