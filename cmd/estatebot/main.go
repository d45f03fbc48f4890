package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"el-estate-bot/internal/app"
	"el-estate-bot/internal/infra/config"
	"el-estate-bot/internal/infra/logger"
	"el-estate-bot/internal/support/debug"
	"el-estate-bot/internal/support/version"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func main() {
	// envPath — .env с токеном бота и настройками; в контейнере можно не задавать.
	envPath := flag.String("env", ".env", "path to .env file")
	flag.Parse()

	if err := config.Load(*envPath); err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	env := config.Env()

	logger.Init(env.LogLevel, logger.FileOptions{
		Path:       env.LogFile,
		MaxSizeMB:  env.LogFileMaxSize,
		MaxBackups: env.LogFileMaxBackups,
		MaxAgeDays: env.LogFileMaxAge,
		Compress:   env.LogFileCompress,
	})
	defer logger.Close()
	for _, msg := range config.Warnings() {
		logger.Warn(msg)
	}
	_ = tgbotapi.SetLogger(logger.BotAPILogger{})
	// Дамп апдейтов в консоль нужен только при отладке с включённым CLI.
	debug.SetEnabled(env.CLIEnable && logger.IsDebugEnabled())

	logger.Info("starting",
		zap.String("name", version.Name),
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("store", env.StoreBackend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.NewApp(ctx, stop, env)
	if err := a.Init(); err != nil {
		stop()
		logger.Fatal("app init failed", zap.Error(err))
	}
	if err := a.Run(); err != nil {
		stop()
		logger.Fatal("app run failed", zap.Error(err))
	}
	logger.Info("graceful shutdown complete")
}
