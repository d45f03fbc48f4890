package commands

import (
	"context"
	"time"

	"el-estate-bot/internal/domain/access"
	"el-estate-bot/internal/domain/stats"
	"el-estate-bot/internal/domain/users"
	"el-estate-bot/internal/infra/clock"
	"el-estate-bot/internal/infra/kv"
	"el-estate-bot/internal/infra/logger"
	versioninfo "el-estate-bot/internal/support/version"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// checkTimeout ограничивает каждую проверку в Status.
const checkTimeout = 2 * time.Second

// HealthChecker сообщает, жива ли внешняя зависимость.
type HealthChecker interface {
	Alive(ctx context.Context) bool
}

// HealthCheckFunc адаптирует функцию к HealthChecker.
type HealthCheckFunc func(ctx context.Context) bool

// Alive вызывает f(ctx).
func (f HealthCheckFunc) Alive(ctx context.Context) bool { return f(ctx) }

// Deps — зависимости CommandExecutor.
type Deps struct {
	Store     kv.Store
	Access    *access.Whitelist
	Directory *users.Directory
	Stats     *stats.Counter
	Browser   HealthChecker
	Clock     clock.Clock
}

// CommandExecutor - реализация интерфейса Executor
type CommandExecutor struct {
	store     kv.Store
	access    *access.Whitelist
	directory *users.Directory
	stats     *stats.Counter
	browser   HealthChecker
	clock     clock.Clock
	startedAt time.Time
}

// NewExecutor создает новый экземпляр CommandExecutor
func NewExecutor(d Deps) *CommandExecutor {
	if d.Clock == nil {
		d.Clock = clock.System
	}
	if d.Browser == nil {
		d.Browser = HealthCheckFunc(func(context.Context) bool { return true })
	}
	return &CommandExecutor{
		store:     d.Store,
		access:    d.Access,
		directory: d.Directory,
		stats:     d.Stats,
		browser:   d.Browser,
		clock:     d.Clock,
		startedAt: d.Clock.Now(),
	}
}

// Status опрашивает хранилище и браузер. Ошибки проверок отражаются в полях, а не в err.
func (e *CommandExecutor) Status(ctx context.Context) (*StatusResult, error) {
	res := &StatusResult{
		WhitelistSize: -1,
		Admins:        e.access.Admins(),
		Now:           e.clock.Now(),
	}
	res.Uptime = res.Now.Sub(e.startedAt)

	pingCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	err := e.store.Ping(pingCtx)
	cancel()
	if err != nil {
		logger.Warn("store ping failed", zap.Error(err))
	} else {
		res.StoreOK = true
		if members, err := e.access.Members(ctx); err == nil {
			res.WhitelistSize = len(members)
		}
	}

	browserCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	res.BrowserOK = e.browser.Alive(browserCtx)
	cancel()
	return res, nil
}

// Allowed собирает белый список с никами и именами из справочника.
func (e *CommandExecutor) Allowed(ctx context.Context) (*AllowedResult, error) {
	ids, err := e.access.Members(ctx)
	if err != nil {
		return nil, err
	}
	res := &AllowedResult{Users: make([]AllowedUser, 0, len(ids))}
	for _, id := range ids {
		u := AllowedUser{ID: id}
		if u.Username, err = e.directory.Username(ctx, id); err != nil {
			logger.Debug("lookup username failed", zap.Int64("user_id", id), zap.Error(err))
		}
		if u.FullName, err = e.directory.FullName(ctx, id); err != nil {
			logger.Debug("lookup full name failed", zap.Int64("user_id", id), zap.Error(err))
		}
		res.Users = append(res.Users, u)
	}
	return res, nil
}

// Stats строит рейтинги за текущие сутки и неделю. Подпись — ник, если он известен.
func (e *CommandExecutor) Stats(ctx context.Context) (*StatsResult, error) {
	daily, err := e.stats.Daily(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "daily stats")
	}
	weekly, err := e.stats.Weekly(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "weekly stats")
	}
	names := e.directory.Usernames(ctx, stats.IDs(daily, weekly))
	return &StatsResult{
		Daily:  stats.Rank(daily, names),
		Weekly: stats.Rank(weekly, names),
	}, nil
}

// Allow добавляет uid в белый список.
func (e *CommandExecutor) Allow(ctx context.Context, uid int64) error {
	if uid <= 0 {
		return errors.Errorf("invalid user id %d", uid)
	}
	if err := e.access.Allow(ctx, uid); err != nil {
		return err
	}
	logger.Info("user allowed", zap.Int64("user_id", uid))
	return nil
}

// Deny убирает uid из белого списка.
func (e *CommandExecutor) Deny(ctx context.Context, uid int64) error {
	if err := e.access.Deny(ctx, uid); err != nil {
		return err
	}
	logger.Info("user denied", zap.Int64("user_id", uid))
	return nil
}

// Version возвращает информацию о версии приложения
func (e *CommandExecutor) Version(_ context.Context) (*VersionResult, error) {
	return &VersionResult{
		Name:    versioninfo.Name,
		Version: versioninfo.Version,
		Commit:  versioninfo.Commit,
	}, nil
}
