package app

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"el-estate-bot/internal/infra/config"
	"el-estate-bot/internal/infra/kv"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStoreBolt(t *testing.T) {
	t.Parallel()
	env := config.EnvConfig{StoreBackend: config.StoreBolt, BoltFile: filepath.Join(t.TempDir(), "data", "state.bbolt")}

	s, err := openStore(context.Background(), env)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	assert.IsType(t, &kv.BoltStore{}, s)
	require.NoError(t, s.Ping(context.Background()))
}

func TestOpenStoreRedis(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	env := config.EnvConfig{StoreBackend: config.StoreRedis, RedisURL: "redis://" + mr.Addr() + "/0"}

	s, err := openStore(context.Background(), env)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	assert.IsType(t, &kv.RedisStore{}, s)
}

func TestOpenStoreRedisUnavailable(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := openStore(context.Background(), config.EnvConfig{StoreBackend: config.StoreRedis, RedisURL: "redis://" + addr + "/0"})
	assert.Error(t, err)
}

func TestWaitGroupHonorsDeadline(t *testing.T) {
	t.Parallel()
	var wg sync.WaitGroup
	release := make(chan struct{})
	wg.Go(func() { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, waitGroup(ctx, &wg), context.DeadlineExceeded)

	close(release)
	assert.NoError(t, waitGroup(context.Background(), &wg))
}
