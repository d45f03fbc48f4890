// Package commands — общий набор операторских команд бота. Им пользуются консоль
// (CLI-адаптер), админские команды в Telegram и health-эндпоинт.
package commands

import (
	"context"
	"time"

	"el-estate-bot/internal/domain/stats"
)

// Executor — интерфейс выполнения операторских команд.
type Executor interface {
	// Status проверяет хранилище и браузер и собирает сводку.
	Status(ctx context.Context) (*StatusResult, error)

	// Allowed возвращает белый список с известными никами и именами.
	Allowed(ctx context.Context) (*AllowedResult, error)

	// Stats возвращает рейтинги использования за сутки и за неделю.
	Stats(ctx context.Context) (*StatsResult, error)

	// Allow добавляет пользователя в белый список.
	Allow(ctx context.Context, uid int64) error

	// Deny убирает пользователя из белого списка.
	Deny(ctx context.Context, uid int64) error

	// Version возвращает информацию о версии приложения
	Version(ctx context.Context) (*VersionResult, error)
}

// StatusResult - результат команды Status
type StatusResult struct {
	StoreOK       bool          // хранилище отвечает на PING
	BrowserOK     bool          // браузер отвечает на пробу
	WhitelistSize int           // -1, если хранилище недоступно
	Admins        []int64       // администраторы из конфигурации
	Uptime        time.Duration // время с момента запуска
	Now           time.Time     // текущее время в таймзоне приложения
}

// OK — общий признак готовности.
func (s *StatusResult) OK() bool { return s.StoreOK && s.BrowserOK }

// AllowedUser — строка белого списка.
type AllowedUser struct {
	ID       int64
	Username string
	FullName string
}

// AllowedResult - результат команды Allowed
type AllowedResult struct {
	Users []AllowedUser // по возрастанию id
}

// StatsResult - результат команды Stats
type StatsResult struct {
	Daily  []stats.Row
	Weekly []stats.Row
}

// VersionResult - результат команды Version
type VersionResult struct {
	Name    string // название приложения
	Version string // версия
	Commit  string
}
