package commands

import (
	"context"
	"testing"
	"time"

	"el-estate-bot/internal/domain/access"
	"el-estate-bot/internal/domain/stats"
	"el-estate-bot/internal/domain/users"
	"el-estate-bot/internal/infra/clock"
	"el-estate-bot/internal/infra/kv"
	versioninfo "el-estate-bot/internal/support/version"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	exec  *CommandExecutor
	store kv.Store
	mr    *miniredis.Miniredis
	dir   *users.Directory
	stats *stats.Counter
	now   *time.Time
}

func newFixture(t *testing.T, browserOK bool) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	store := kv.NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = store.Close() })

	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	clk := clock.Func(func() time.Time { return now })
	f := &fixture{store: store, mr: mr, dir: users.NewDirectory(store), stats: stats.New(store, clk), now: &now}
	f.exec = NewExecutor(Deps{
		Store:     store,
		Access:    access.New(store, []int64{100, 1}),
		Directory: f.dir,
		Stats:     f.stats,
		Browser:   HealthCheckFunc(func(context.Context) bool { return browserOK }),
		Clock:     clk,
	})
	return f
}

func TestStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, true)
	require.NoError(t, f.exec.Allow(ctx, 5))
	*f.now = f.now.Add(time.Minute)

	st, err := f.exec.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.StoreOK)
	assert.True(t, st.BrowserOK)
	assert.True(t, st.OK())
	assert.Equal(t, 1, st.WhitelistSize)
	assert.Equal(t, []int64{1, 100}, st.Admins)
	assert.Equal(t, time.Minute, st.Uptime)
}

func TestStatusStoreDown(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)
	f.mr.Close()

	st, err := f.exec.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, st.StoreOK)
	assert.False(t, st.BrowserOK)
	assert.False(t, st.OK())
	assert.Equal(t, -1, st.WhitelistSize)
}

func TestAllowedJoinsDirectory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, true)

	require.NoError(t, f.exec.Allow(ctx, 20))
	require.NoError(t, f.exec.Allow(ctx, 3))
	require.NoError(t, f.dir.Remember(ctx, users.Identity{ID: 20, Username: "Ann", FirstName: "Ann", LastName: "Lee"}))

	res, err := f.exec.Allowed(ctx)
	require.NoError(t, err)
	assert.Equal(t, []AllowedUser{
		{ID: 3},
		{ID: 20, Username: "@ann", FullName: "Ann Lee"},
	}, res.Users)

	require.NoError(t, f.exec.Deny(ctx, 20))
	res, err = f.exec.Allowed(ctx)
	require.NoError(t, err)
	assert.Equal(t, []AllowedUser{{ID: 3}}, res.Users)
}

func TestAllowRejectsBadID(t *testing.T) {
	t.Parallel()
	f := newFixture(t, true)
	assert.Error(t, f.exec.Allow(context.Background(), 0))
	assert.Error(t, f.exec.Allow(context.Background(), -7))
}

func TestStatsUsesUsernames(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, true)

	require.NoError(t, f.dir.Link(ctx, 7, "@bob"))
	for range 3 {
		require.NoError(t, f.stats.Increment(ctx, 7))
	}
	require.NoError(t, f.stats.Increment(ctx, 8))

	res, err := f.exec.Stats(ctx)
	require.NoError(t, err)
	want := []stats.Row{{Label: "@bob", Count: 3}, {Label: "8", Count: 1}}
	assert.Equal(t, want, res.Daily)
	assert.Equal(t, want, res.Weekly)
}

func TestVersion(t *testing.T) {
	t.Parallel()
	f := newFixture(t, true)
	v, err := f.exec.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, versioninfo.Name, v.Name)
	assert.Equal(t, versioninfo.Version, v.Version)
}
