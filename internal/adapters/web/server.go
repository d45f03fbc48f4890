// Package web — служебный HTTP-сервер бота: проверка живости для оркестратора,
// метрики Prometheus и версия сборки.
package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"el-estate-bot/internal/domain/commands"
	"el-estate-bot/internal/infra/logger"
	"el-estate-bot/internal/infra/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const (
	readTimeout    = 5 * time.Second
	writeTimeout   = 15 * time.Second
	idleTimeout    = 60 * time.Second
	requestTimeout = 10 * time.Second
)

// Server — HTTP-сервер health/metrics.
type Server struct {
	srv      *http.Server
	executor commands.Executor
}

// NewServer создаёт сервер на addr (например ":8080").
func NewServer(addr string, executor commands.Executor) *Server {
	s := &Server{executor: executor}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(loggingMiddleware)
	r.Use(metrics.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", s.handleHealth)
	r.Get("/version", s.handleVersion)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	return s
}

// Handler возвращает корневой обработчик (для тестов и встраивания).
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Addr возвращает адрес, на котором сервер должен слушать.
func (s *Server) Addr() string { return s.srv.Addr }

// Serve обслуживает уже открытый listener.
func (s *Server) Serve(ln net.Listener) error {
	logger.Info("health server started", zap.String("address", ln.Addr().String()))
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown корректно останавливает сервер, дожидаясь активных запросов.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("shutting down health server")
	return s.srv.Shutdown(ctx)
}

// healthResponse — тело /healthz. Имя selenium_ok сохранено для совместимости с мониторингом.
type healthResponse struct {
	OK         bool `json:"ok"`
	RedisOK    bool `json:"redis_ok"`
	SeleniumOK bool `json:"selenium_ok"`
}

// handleHealth отвечает 200, если хранилище и браузер доступны, иначе 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st, err := s.executor.Status(r.Context())
	if err != nil {
		logger.Error("health status failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{})
		return
	}
	code := http.StatusOK
	if !st.OK() {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, healthResponse{OK: st.OK(), RedisOK: st.StoreOK, SeleniumOK: st.BrowserOK})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	v, err := s.executor.Version(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": v.Name, "version": v.Version, "commit": v.Commit})
}

// loggingMiddleware пишет по строке на запрос на уровне debug.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("remote", r.RemoteAddr),
		)
	})
}
