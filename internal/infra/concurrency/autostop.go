package concurrency

import (
	"context"
	"time"

	"el-estate-bot/internal/infra/logger"

	"go.uber.org/zap"
)

// StopAfter вызывает stop через timeout, если ctx не отменят раньше. Нулевой или
// отрицательный timeout ничего не запускает. Возвращается сразу.
func StopAfter(ctx context.Context, timeout time.Duration, stop context.CancelFunc) {
	if timeout <= 0 || stop == nil {
		return
	}
	logger.Info("auto-shutdown timer started", zap.Duration("timeout", timeout))
	go func() {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-timer.C:
			logger.Info("auto-shutdown timeout reached")
			stop()
		case <-ctx.Done():
		}
	}()
}
