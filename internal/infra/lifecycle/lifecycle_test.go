package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder пишет события start/stop в общий журнал.
type recorder struct{ events []string }

func (r *recorder) start(name string) StartFunc {
	return func(context.Context) error {
		r.events = append(r.events, "start "+name)
		return nil
	}
}

func (r *recorder) stop(name string) StopFunc {
	return func(context.Context) error {
		r.events = append(r.events, "stop "+name)
		return nil
	}
}

func TestStartOrderFollowsDeps(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	m := New(context.Background())

	require.NoError(t, m.Register("bot", []string{"store", "browser"}, rec.start("bot"), rec.stop("bot")))
	require.NoError(t, m.Register("store", nil, rec.start("store"), rec.stop("store")))
	require.NoError(t, m.Register("browser", nil, rec.start("browser"), rec.stop("browser")))
	require.NoError(t, m.Register("health", []string{"store"}, rec.start("health"), nil))

	require.NoError(t, m.StartAll())
	assert.Equal(t, []string{"store", "browser", "bot", "health"}, m.Started())

	require.NoError(t, m.Shutdown(context.Background()))
	assert.Equal(t, []string{
		"start store", "start browser", "start bot", "start health",
		"stop bot", "stop browser", "stop store",
	}, rec.events)

	require.NoError(t, m.Shutdown(context.Background()), "second shutdown is a no-op")
}

func TestUnitContextCanceledBeforeStop(t *testing.T) {
	t.Parallel()
	m := New(context.Background())
	var unitCtx context.Context
	var canceledAtStop bool

	require.NoError(t, m.Register("worker", nil,
		func(ctx context.Context) error { unitCtx = ctx; return nil },
		func(context.Context) error { canceledAtStop = unitCtx.Err() != nil; return nil },
	))
	require.NoError(t, m.StartAll())
	assert.NoError(t, unitCtx.Err())
	require.NoError(t, m.Shutdown(context.Background()))
	assert.True(t, canceledAtStop)
}

func TestStartFailureStopsEarly(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	m := New(context.Background())
	boom := errors.New("boom")

	require.NoError(t, m.Register("store", nil, rec.start("store"), rec.stop("store")))
	require.NoError(t, m.Register("browser", []string{"store"}, func(context.Context) error { return boom }, rec.stop("browser")))
	require.NoError(t, m.Register("bot", []string{"browser"}, rec.start("bot"), rec.stop("bot")))

	err := m.StartAll()
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"store"}, m.Started())

	require.NoError(t, m.Shutdown(context.Background()))
	assert.Equal(t, []string{"start store", "stop store"}, rec.events)
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()
	m := New(context.Background())
	assert.Error(t, m.Register("", nil, nil, nil))
	assert.Error(t, m.Register("a", []string{"a"}, nil, nil))
	require.NoError(t, m.Register("a", nil, nil, nil))
	assert.Error(t, m.Register("a", nil, nil, nil))
}

func TestCycleAndUnknownDeps(t *testing.T) {
	t.Parallel()

	m := New(context.Background())
	require.NoError(t, m.Register("a", []string{"b"}, nil, nil))
	require.NoError(t, m.Register("b", []string{"a"}, nil, nil))
	assert.ErrorContains(t, m.StartAll(), "cycle")

	m = New(context.Background())
	require.NoError(t, m.Register("a", []string{"ghost"}, nil, nil))
	assert.ErrorContains(t, m.StartAll(), "not registered")
}

func TestStopErrorsAreJoined(t *testing.T) {
	t.Parallel()
	m := New(context.Background())
	e1, e2 := errors.New("e1"), errors.New("e2")
	require.NoError(t, m.Register("a", nil, nil, func(context.Context) error { return e1 }))
	require.NoError(t, m.Register("b", nil, nil, func(context.Context) error { return e2 }))
	require.NoError(t, m.StartAll())

	err := m.Shutdown(context.Background())
	assert.ErrorIs(t, err, e1)
	assert.ErrorIs(t, err, e2)
}
