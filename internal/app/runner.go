package app

import (
	"context"
	"net"
	"sync"
	"time"

	"el-estate-bot/internal/domain/images"
	"el-estate-bot/internal/infra/concurrency"
	"el-estate-bot/internal/infra/lifecycle"
	"el-estate-bot/internal/infra/logger"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

const (
	// shutdownTimeout ограничивает общую остановку подсистем.
	shutdownTimeout = 20 * time.Second
)

// Run запускает подсистемы в порядке store → health → browser → janitor → bot → cli
// и блокируется до отмены mainCtx. Останавливает всё в обратном порядке.
func (a *App) Run() error {
	mgr := lifecycle.New(a.mainCtx)
	if err := a.register(mgr); err != nil {
		return err
	}

	logger.Info("el-estate-bot starting")
	if err := mgr.StartAll(); err != nil {
		a.shutdown(mgr)
		return err
	}
	logger.Info("el-estate-bot running")
	concurrency.StopAfter(a.mainCtx, a.env.AppTimeout, a.mainCancel)

	<-a.mainCtx.Done()
	logger.Info("shutdown signal received")
	return a.shutdown(mgr)
}

func (a *App) shutdown(mgr *lifecycle.Manager) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := mgr.Shutdown(ctx)
	if err != nil {
		logger.Error("shutdown finished with errors", zap.Error(err))
	}
	return err
}

// unitSpec — описание подсистемы для lifecycle.Manager.
type unitSpec struct {
	name  string
	deps  []string
	start lifecycle.StartFunc
	stop  lifecycle.StopFunc
}

func (a *App) register(mgr *lifecycle.Manager) error {
	var botWG sync.WaitGroup

	units := []unitSpec{
		{
			name: "store",
			stop: func(context.Context) error { return a.store.Close() },
		},
		{
			name: "health",
			deps: []string{"store"},
			start: func(context.Context) error {
				ln, err := net.Listen("tcp", a.web.Addr())
				if err != nil {
					return errors.Wrap(err, "listen health port")
				}
				go func() {
					if err := a.web.Serve(ln); err != nil {
						logger.Error("health server failed", zap.Error(err))
						a.mainCancel()
					}
				}()
				return nil
			},
			stop: func(ctx context.Context) error { return a.web.Shutdown(ctx) },
		},
		{
			name: "browser",
			start: func(ctx context.Context) error {
				if !a.scraper.Alive(ctx) {
					logger.Warn("browser endpoint is not reachable yet")
				}
				return nil
			},
			stop: func(context.Context) error { a.scraper.Close(); return nil },
		},
		{
			name: "janitor",
			start: func(ctx context.Context) error {
				if n, err := a.workspaces.Sweep(images.WorkspaceTTL); err != nil {
					logger.Warn("initial workspace sweep failed", zap.Error(err))
				} else if n > 0 {
					logger.Info("removed stale workspaces", zap.Int("count", n))
				}
				return a.workspaces.Start(ctx)
			},
			stop: func(context.Context) error { a.workspaces.Stop(); return nil },
		},
		{
			name: "bot",
			deps: []string{"store", "browser", "janitor"},
			start: func(ctx context.Context) error {
				botWG.Go(func() {
					if err := a.bot.Run(ctx); err != nil {
						logger.Error("bot stopped with error", zap.Error(err))
						a.mainCancel()
					}
				})
				return nil
			},
			stop: func(ctx context.Context) error { return waitGroup(ctx, &botWG) },
		},
	}
	if a.cli != nil {
		units = append(units, unitSpec{
			name:  "cli",
			deps:  []string{"bot"},
			start: a.cli.Start,
			stop:  func(context.Context) error { a.cli.Stop(); return nil },
		})
	}

	for _, u := range units {
		if err := mgr.Register(u.name, u.deps, u.start, u.stop); err != nil {
			return err
		}
	}
	return nil
}

// waitGroup ждёт wg, но не дольше ctx.
func waitGroup(ctx context.Context, wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "wait for bot handlers")
	}
}
