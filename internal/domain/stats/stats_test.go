package stats

import (
	"context"
	"testing"
	"time"

	"el-estate-bot/internal/infra/clock"
	"el-estate-bot/internal/infra/kv"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	t.Parallel()

	ts := time.Date(2027, 1, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "stats:daily:2027-01-01", DailyKey(ts))
	assert.Equal(t, "stats:weekly:2026-53", WeeklyKey(ts))
	assert.Equal(t, "stats:weekly:2025-03", WeeklyKey(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)))
}

func TestIncrementAndRead(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mr := miniredis.RunT(t)
	store := kv.NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = store.Close() })

	now := time.Date(2025, 3, 5, 23, 30, 0, 0, time.UTC)
	c := New(store, clock.Func(func() time.Time { return now }))

	require.NoError(t, c.Increment(ctx, 1))
	require.NoError(t, c.Increment(ctx, 1))
	require.NoError(t, c.Increment(ctx, 2))

	daily, err := c.Daily(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"1": 2, "2": 1}, daily)

	assert.Equal(t, DailyTTL, mr.TTL("stats:daily:2025-03-05"))
	assert.Equal(t, WeeklyTTL, mr.TTL("stats:weekly:2025-10"))

	now = now.Add(time.Hour)
	daily, err = c.Daily(ctx)
	require.NoError(t, err)
	assert.Empty(t, daily, "new day starts from zero")

	weekly, err := c.Weekly(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"1": 2, "2": 1}, weekly)
}

func TestRank(t *testing.T) {
	t.Parallel()

	items := map[string]int64{"1": 3, "2": 5, "3": 3, "4": 1}
	names := map[string]string{"3": "@anna", "4": ""}

	got := Rank(items, names)
	assert.Equal(t, []Row{
		{Label: "2", Count: 5},
		{Label: "1", Count: 3},
		{Label: "@anna", Count: 3},
		{Label: "4", Count: 1},
	}, got)

	assert.Empty(t, Rank(nil, nil))
}

func TestIDs(t *testing.T) {
	t.Parallel()
	got := IDs(map[string]int64{"2": 1, "1": 1}, map[string]int64{"1": 4, "3": 1})
	assert.Equal(t, []string{"1", "2", "3"}, got)
}
