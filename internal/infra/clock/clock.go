// Package clock — источник текущего времени в таймзоне приложения.
package clock

import (
	"time"

	"el-estate-bot/internal/infra/config"
)

// Clock отдаёт текущее время. Сервисы принимают его, чтобы тесты могли зафиксировать дату.
type Clock interface {
	Now() time.Time
}

// Func адаптирует обычную функцию к Clock.
type Func func() time.Time

// Now реализует Clock.
func (f Func) Now() time.Time { return f() }

// System — часы процесса в глобальной таймзоне приложения.
var System Clock = Func(Now)

// Now возвращает текущее время в глобальной таймзоне приложения.
func Now() time.Time {
	return time.Now().In(config.AppLocation)
}
