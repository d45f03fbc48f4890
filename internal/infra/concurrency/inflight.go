// Package concurrency — вспомогательная инфраструктура конкурентного исполнения.
// Guard не даёт одному пользователю запустить вторую обработку, пока первая не
// закончилась. Запись, которую по ошибке не освободили, считается протухшей через
// maxHold и вычищается фоновой горутиной.
package concurrency

import (
	"context"
	"sync"
	"time"

	"el-estate-bot/internal/infra/logger"

	"go.uber.org/zap"
)

// cleanupInterval — период фоновой очистки протухших записей.
const cleanupInterval = time.Minute

// Guard — потокобезопасный набор «занятых» ключей.
type Guard struct {
	mu      sync.Mutex
	active  map[int64]time.Time // key -> момент захвата
	maxHold time.Duration
	now     func() time.Time

	runMu  sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewGuard создаёт Guard. maxHold <= 0 отключает протухание.
func NewGuard(maxHold time.Duration) *Guard {
	return &Guard{
		active:  make(map[int64]time.Time),
		maxHold: maxHold,
		now:     time.Now,
	}
}

// TryAcquire занимает key. ok=false, если key уже занят и запись не протухла.
// release идемпотентна.
func (g *Guard) TryAcquire(key int64) (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if at, busy := g.active[key]; busy && !g.expired(at, now) {
		return func() {}, false
	}
	g.active[key] = now

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			if g.active[key].Equal(now) {
				delete(g.active, key)
			}
		})
	}, true
}

// Busy сообщает, занят ли key.
func (g *Guard) Busy(key int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	at, ok := g.active[key]
	return ok && !g.expired(at, g.now())
}

// Len возвращает число занятых ключей.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.active)
}

func (g *Guard) expired(at, now time.Time) bool {
	return g.maxHold > 0 && now.Sub(at) >= g.maxHold
}

// Start поднимает фоновую очистку. Повторные вызовы игнорируются.
func (g *Guard) Start(ctx context.Context) {
	g.runMu.Lock()
	defer g.runMu.Unlock()
	if g.cancel != nil || g.maxHold <= 0 {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.wg.Go(func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				g.Cleanup()
			}
		}
	})
}

// Stop завершает фоновую очистку и дожидается её.
func (g *Guard) Stop() {
	g.runMu.Lock()
	cancel := g.cancel
	g.cancel = nil
	g.runMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	g.wg.Wait()
}

// Cleanup удаляет протухшие записи.
func (g *Guard) Cleanup() {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	for k, at := range g.active {
		if g.expired(at, now) {
			logger.Warn("in-flight entry expired without release", zap.Int64("key", k))
			delete(g.active, k)
		}
	}
}
