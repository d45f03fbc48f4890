package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsByRoute(t *testing.T) {
	Init()
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/items/{id}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/items/{id}", "418"))
	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	}
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/items/{id}", "418"))
	assert.InDelta(t, 2, after-before, 0.001)
}

func TestHandlerExposesDomainMetrics(t *testing.T) {
	ObserveScrape("olx", "ok", 1500*time.Millisecond)
	AddImagesSent(3)
	AddImagesSent(0)
	IncAccessDenied("message")
	IncCommand("start")
	IncSendRetry()
	IncInFlight()
	DecInFlight()

	srv := httptest.NewServer(Handler())
	t.Cleanup(srv.Close)
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	for _, name := range []string{
		`estatebot_scrapes_total{result="ok",site="olx"}`,
		"estatebot_scrape_duration_seconds_bucket",
		"estatebot_images_sent_total",
		`estatebot_access_denied_total{kind="message"}`,
		`estatebot_commands_total{command="start"}`,
		"estatebot_send_retries_total",
		"go_goroutines",
	} {
		assert.True(t, strings.Contains(text, name), name)
	}
}
