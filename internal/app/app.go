// Package app — сборка бота: хранилище, доменные сервисы, браузер, конвейер фото,
// фронтенд Bot API, health-сервер и консоль. Порядок запуска и остановки задаёт runner.go.
package app

import (
	"context"
	"fmt"

	"el-estate-bot/internal/adapters/browser"
	"el-estate-bot/internal/adapters/cli"
	"el-estate-bot/internal/adapters/telegram"
	"el-estate-bot/internal/adapters/web"
	"el-estate-bot/internal/domain/access"
	"el-estate-bot/internal/domain/commands"
	"el-estate-bot/internal/domain/images"
	"el-estate-bot/internal/domain/stats"
	"el-estate-bot/internal/domain/users"
	"el-estate-bot/internal/infra/clock"
	"el-estate-bot/internal/infra/config"
	"el-estate-bot/internal/infra/kv"
	"el-estate-bot/internal/infra/logger"

	"github.com/go-faster/errors"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// App агрегирует подсистемы бота.
type App struct {
	mainCtx    context.Context
	mainCancel context.CancelFunc
	env        config.EnvConfig

	store      kv.Store
	scraper    *browser.Scraper
	workspaces *images.Workspaces
	executor   commands.Executor
	bot        *telegram.Bot
	web        *web.Server
	cli        *cli.Service // nil, если консоль выключена
}

// NewApp создаёт пустой каркас. Зависимости собирает Init.
func NewApp(mainCtx context.Context, mainCancel context.CancelFunc, env config.EnvConfig) *App {
	return &App{mainCtx: mainCtx, mainCancel: mainCancel, env: env}
}

// Init подключается к хранилищу и Bot API и собирает сервисы. Ничего не запускает.
func (a *App) Init() error {
	store, err := openStore(a.mainCtx, a.env)
	if err != nil {
		return err
	}
	a.store = store

	api, err := tgbotapi.NewBotAPI(a.env.BotToken)
	if err != nil {
		_ = store.Close()
		return errors.Wrap(err, "connect to bot api")
	}
	logger.Info("authorized on bot api", zap.String("username", api.Self.UserName), zap.Int64("id", api.Self.ID))

	a.scraper, err = browser.New(browser.Config{
		RemoteURL:         a.env.BrowserURL,
		MaxParallel:       a.env.BrowserMaxParallel,
		NavigationTimeout: a.env.ScrapeTimeout,
	})
	if err != nil {
		_ = store.Close()
		return errors.Wrap(err, "init browser")
	}

	whitelist := access.New(store, a.env.AdminIDs)
	directory := users.NewDirectory(store)
	counter := stats.New(store, clock.System)

	a.executor = commands.NewExecutor(commands.Deps{
		Store:     store,
		Access:    whitelist,
		Directory: directory,
		Stats:     counter,
		Browser:   a.scraper,
		Clock:     clock.System,
	})
	a.workspaces = images.NewWorkspaces(a.env.ImagesDir)

	a.bot = telegram.New(telegram.Deps{
		API:        api,
		Access:     whitelist,
		Forwards:   access.NewForwardRequests(store),
		Directory:  directory,
		Profiles:   users.NewProfiles(store),
		FSM:        users.NewFSM(store),
		Stats:      counter,
		Commands:   a.executor,
		Scraper:    a.scraper,
		Downloader: images.NewPipeline(nil, a.env.RateLimitRPS),
		Workspaces: a.workspaces,
		Clock:      clock.System,
	})
	a.web = web.NewServer(fmt.Sprintf(":%d", a.env.HealthPort), a.executor)

	if a.env.CLIEnable {
		if cli.IsInteractive() {
			a.cli = cli.NewService(a.executor, a.mainCancel)
		} else {
			logger.Warn("CLI_ENABLE is set but stdin is not a terminal; console disabled")
		}
	}
	return nil
}

// openStore выбирает бэкенд хранилища по STORE_BACKEND.
func openStore(ctx context.Context, env config.EnvConfig) (kv.Store, error) {
	switch env.StoreBackend {
	case config.StoreBolt:
		s, err := kv.OpenBolt(env.BoltFile)
		if err != nil {
			return nil, errors.Wrap(err, "open bolt store")
		}
		logger.Info("state store opened", zap.String("backend", "bolt"), zap.String("file", env.BoltFile))
		return s, nil
	default:
		s, err := kv.OpenRedis(ctx, env.RedisURL)
		if err != nil {
			return nil, errors.Wrap(err, "open redis store")
		}
		logger.Info("state store opened", zap.String("backend", "redis"))
		return s, nil
	}
}
