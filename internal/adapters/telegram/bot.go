// Package telegram — фронтенд бота на Bot API: long polling, белый список,
// пользовательские и админские команды, обработка ссылок на объявления.
package telegram

import (
	"context"
	rtdebug "runtime/debug"
	"sync"
	"time"

	"el-estate-bot/internal/domain/access"
	"el-estate-bot/internal/domain/commands"
	"el-estate-bot/internal/domain/listing"
	"el-estate-bot/internal/domain/stats"
	"el-estate-bot/internal/domain/users"
	"el-estate-bot/internal/infra/clock"
	"el-estate-bot/internal/infra/concurrency"
	"el-estate-bot/internal/infra/logger"
	"el-estate-bot/internal/support/debug"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	// pollTimeout — таймаут long polling, секунды.
	pollTimeout = 30
	// defaultMaxHandlers — сколько апдейтов обрабатывается одновременно.
	defaultMaxHandlers = 32
	// processingHold — через сколько незакрытая обработка пользователя считается зависшей.
	processingHold = 10 * time.Minute
)

// Scraper достаёт адреса фото со страницы объявления.
type Scraper interface {
	Scrape(ctx context.Context, l listing.Listing) ([]string, error)
}

// Downloader скачивает и обрезает фото в каталог.
type Downloader interface {
	Run(ctx context.Context, urls []string, dir string, crop int) ([]string, error)
}

// Workspaces выдаёт и удаляет временные каталоги.
type Workspaces interface {
	Create(uid int64) (string, error)
	Remove(dir string)
}

// Deps — зависимости бота.
type Deps struct {
	API        API
	Access     *access.Whitelist
	Forwards   *access.ForwardRequests
	Directory  *users.Directory
	Profiles   *users.Profiles
	FSM        *users.FSM
	Stats      *stats.Counter
	Commands   commands.Executor
	Scraper    Scraper
	Downloader Downloader
	Workspaces Workspaces
	Clock      clock.Clock
	// MaxHandlers ограничивает параллельную обработку апдейтов; 0 — по умолчанию.
	MaxHandlers int
}

// Bot обрабатывает апдейты Telegram.
type Bot struct {
	api    API
	sender *Sender

	access    *access.Whitelist
	forwards  *access.ForwardRequests
	directory *users.Directory
	profiles  *users.Profiles
	fsm       *users.FSM
	stats     *stats.Counter
	commands  commands.Executor

	scraper    Scraper
	downloader Downloader
	workspaces Workspaces
	clock      clock.Clock

	inflight    *concurrency.Guard
	maxHandlers int
	wg          sync.WaitGroup
}

// New собирает бота из зависимостей.
func New(d Deps) *Bot {
	if d.Clock == nil {
		d.Clock = clock.System
	}
	if d.MaxHandlers <= 0 {
		d.MaxHandlers = defaultMaxHandlers
	}
	return &Bot{
		api:         d.API,
		sender:      NewSender(d.API),
		access:      d.Access,
		forwards:    d.Forwards,
		directory:   d.Directory,
		profiles:    d.Profiles,
		fsm:         d.FSM,
		stats:       d.Stats,
		commands:    d.Commands,
		scraper:     d.Scraper,
		downloader:  d.Downloader,
		workspaces:  d.Workspaces,
		clock:       d.Clock,
		inflight:    concurrency.NewGuard(processingHold),
		maxHandlers: d.MaxHandlers,
	}
}

// Run читает апдейты до отмены ctx, затем дожидается начатых обработчиков.
func (b *Bot) Run(ctx context.Context) error {
	b.registerCommands()
	b.inflight.Start(ctx)
	defer b.inflight.Stop()

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeout
	cfg.AllowedUpdates = []string{"message", "callback_query"}
	updates := b.api.GetUpdatesChan(cfg)
	logger.Info("bot polling started")

	sem := make(chan struct{}, b.maxHandlers)
	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			logger.Info("bot polling stopped")
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				b.api.StopReceivingUpdates()
				return nil
			}
			b.wg.Go(func() {
				defer func() { <-sem }()
				b.safeHandle(ctx, upd)
			})
		}
	}
}

// safeHandle изолирует панику одного апдейта от остальных.
func (b *Bot) safeHandle(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("update handler panic",
				zap.Int("update_id", upd.UpdateID), zap.Any("panic", r), zap.ByteString("stack", rtdebug.Stack()))
		}
	}()
	debug.PrintUpdate("bot", upd)
	b.HandleUpdate(ctx, upd)
}

// HandleUpdate маршрутизирует один апдейт.
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.CallbackQuery != nil:
		if !b.gateCallback(ctx, upd.CallbackQuery) {
			return
		}
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		if !b.gateMessage(ctx, upd.Message) {
			return
		}
		b.handleMessage(ctx, upd.Message)
	}
}

func (b *Bot) registerCommands() {
	cmds := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "почати"},
		tgbotapi.BotCommand{Command: "crop", Description: "обрізка знизу"},
		tgbotapi.BotCommand{Command: "retry", Description: "повтор останнього посилання"},
		tgbotapi.BotCommand{Command: "help", Description: "довідка"},
	)
	if _, err := b.api.Request(cmds); err != nil {
		logger.Warn("set bot commands failed", zap.Error(err))
	}
}

// identity переводит пользователя Telegram в доменную структуру.
func identity(u *tgbotapi.User) users.Identity {
	return users.Identity{ID: u.ID, Username: u.UserName, FirstName: u.FirstName, LastName: u.LastName}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string, markup any) {
	if _, err := b.sender.Reply(ctx, chatID, text, markup); err != nil {
		logger.Error("send reply failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) replyAll(ctx context.Context, chatID int64, texts []string) {
	for _, t := range texts {
		b.reply(ctx, chatID, t, nil)
	}
}
