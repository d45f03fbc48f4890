package web

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"el-estate-bot/internal/domain/commands"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	commands.Executor
	store, browser bool
}

func (f fakeExecutor) Status(context.Context) (*commands.StatusResult, error) {
	return &commands.StatusResult{StoreOK: f.store, BrowserOK: f.browser}, nil
}

func (f fakeExecutor) Version(context.Context) (*commands.VersionResult, error) {
	return &commands.VersionResult{Name: "el-estate-bot", Version: "1.2.3", Commit: "abc"}, nil
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name           string
		store, browser bool
		wantCode       int
		want           healthResponse
	}{
		{name: "all up", store: true, browser: true, wantCode: http.StatusOK,
			want: healthResponse{OK: true, RedisOK: true, SeleniumOK: true}},
		{name: "store down", store: false, browser: true, wantCode: http.StatusServiceUnavailable,
			want: healthResponse{SeleniumOK: true}},
		{name: "browser down", store: true, browser: false, wantCode: http.StatusServiceUnavailable,
			want: healthResponse{RedisOK: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := NewServer(":0", fakeExecutor{store: tt.store, browser: tt.browser})
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
			var got healthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHealthzBodyFieldNames(t *testing.T) {
	t.Parallel()
	s := NewServer(":0", fakeExecutor{store: true, browser: true})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.JSONEq(t, `{"ok":true,"redis_ok":true,"selenium_ok":true}`, rec.Body.String())
}

func TestMetricsAndVersion(t *testing.T) {
	t.Parallel()
	s := NewServer(":0", fakeExecutor{store: true, browser: true})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{code="200",method="GET",route="/healthz"}`)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	assert.JSONEq(t, `{"name":"el-estate-bot","version":"1.2.3","commit":"abc"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServeAndShutdown(t *testing.T) {
	t.Parallel()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := NewServer(ln.Addr().String(), fakeExecutor{store: true, browser: true})
	done := make(chan error, 1)
	go func() { done <- s.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"ok":true`)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	require.NoError(t, <-done)
}
