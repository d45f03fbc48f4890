// Package metrics — Prometheus-метрики бота и HTTP-сервера.
// Коллекторы регистрируются в собственном реестре, который отдаёт Handler.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	scrapesTotal          *prometheus.CounterVec
	scrapeDurationSeconds *prometheus.HistogramVec
	imagesSentTotal       prometheus.Counter
	accessDeniedTotal     *prometheus.CounterVec
	commandsTotal         *prometheus.CounterVec
	sendRetriesTotal      prometheus.Counter
	httpRequestsTotal     *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
	inFlightRequests      prometheus.Gauge

	once sync.Once
)

// Init создаёт коллекторы. Повторные вызовы безопасны.
func Init() {
	once.Do(func() {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		f := promauto.With(registry)

		scrapesTotal = f.NewCounterVec(prometheus.CounterOpts{
			Name: "estatebot_scrapes_total",
			Help: "Listing scrapes by site and result (ok, empty, error).",
		}, []string{"site", "result"})

		scrapeDurationSeconds = f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "estatebot_scrape_duration_seconds",
			Help:    "Time from request to photos ready, by site.",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"site"})

		imagesSentTotal = f.NewCounter(prometheus.CounterOpts{
			Name: "estatebot_images_sent_total",
			Help: "Photos delivered to users.",
		})

		accessDeniedTotal = f.NewCounterVec(prometheus.CounterOpts{
			Name: "estatebot_access_denied_total",
			Help: "Updates rejected by the whitelist, by update kind.",
		}, []string{"kind"})

		commandsTotal = f.NewCounterVec(prometheus.CounterOpts{
			Name: "estatebot_commands_total",
			Help: "Handled chat commands by name.",
		}, []string{"command"})

		sendRetriesTotal = f.NewCounter(prometheus.CounterOpts{
			Name: "estatebot_send_retries_total",
			Help: "Retried Bot API calls.",
		})

		httpRequestsTotal = f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and code.",
		}, []string{"method", "route", "code"})

		httpRequestDuration = f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies by method and route.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		}, []string{"method", "route"})

		inFlightRequests = f.NewGauge(prometheus.GaugeOpts{
			Name: "estatebot_inflight_requests",
			Help: "Listing requests currently being processed.",
		})
	})
}

// Handler отдаёт метрики в формате Prometheus.
func Handler() http.Handler {
	Init()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

// ObserveScrape учитывает одну обработку ссылки.
func ObserveScrape(site, result string, d time.Duration) {
	Init()
	scrapesTotal.WithLabelValues(site, result).Inc()
	scrapeDurationSeconds.WithLabelValues(site).Observe(d.Seconds())
}

// AddImagesSent увеличивает счётчик отправленных фото.
func AddImagesSent(n int) {
	Init()
	if n > 0 {
		imagesSentTotal.Add(float64(n))
	}
}

// IncAccessDenied учитывает отказ белого списка.
func IncAccessDenied(kind string) {
	Init()
	accessDeniedTotal.WithLabelValues(kind).Inc()
}

// IncCommand учитывает обработанную команду.
func IncCommand(name string) {
	Init()
	commandsTotal.WithLabelValues(name).Inc()
}

// IncSendRetry учитывает повтор отправки альбома.
func IncSendRetry() {
	Init()
	sendRetriesTotal.Inc()
}

// IncInFlight / DecInFlight отслеживают обрабатываемые запросы.
func IncInFlight() { Init(); inFlightRequests.Inc() }

// DecInFlight см. IncInFlight.
func DecInFlight() { Init(); inFlightRequests.Dec() }

// Middleware считает HTTP-запросы по шаблону маршрута chi.
func Middleware(next http.Handler) http.Handler {
	Init()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(code)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
