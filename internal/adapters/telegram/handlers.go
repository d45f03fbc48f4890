package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"el-estate-bot/internal/domain/listing"
	"el-estate-bot/internal/domain/users"
	"el-estate-bot/internal/infra/logger"
	"el-estate-bot/internal/infra/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// cropCallbackPrefix — префикс callback_data кнопок обрезки.
const cropCallbackPrefix = "set_crop:"

// handleMessage разбирает сообщение, уже прошедшее белый список.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if isForwarded(msg) && b.access.IsAdmin(msg.From.ID) && b.forwards.Pending(ctx, msg.From.ID) {
		b.handleForwardAllow(ctx, msg)
		return
	}
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	if strings.HasPrefix(strings.TrimSpace(msg.Text), "http") {
		b.processURL(ctx, msg, msg.Text)
	}
}

func isForwarded(msg *tgbotapi.Message) bool {
	return msg.ForwardFrom != nil || msg.ForwardSenderName != "" || msg.ForwardDate != 0
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	switch cmd {
	case "start":
		b.handleStart(ctx, msg)
	case "help":
		b.reply(ctx, msg.Chat.ID, textHelp, nil)
	case "crop":
		b.handleCrop(ctx, msg)
	case "retry":
		b.handleRetry(ctx, msg)
	default:
		if !b.handleAdminCommand(ctx, msg, cmd) {
			return
		}
	}
	metrics.IncCommand(cmd)
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	if err := b.fsm.Set(ctx, msg.Chat.ID, msg.From.ID, users.StateWaitingURL); err != nil {
		logger.Warn("set fsm state failed", zap.Int64("user_id", msg.From.ID), zap.Error(err))
	}
	b.directory.RememberQuiet(ctx, identity(msg.From))
	b.reply(ctx, msg.Chat.ID, textWelcome, nil)
}

// cropKeyboard — одна строка кнопок со всеми допустимыми значениями обрезки.
func cropKeyboard() tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(users.CropOptions))
	for _, v := range users.CropOptions {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			strconv.Itoa(v)+"%", cropCallbackPrefix+strconv.Itoa(v)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func (b *Bot) handleCrop(ctx context.Context, msg *tgbotapi.Message) {
	prof, err := b.profiles.Get(ctx, msg.From.ID)
	if err != nil {
		logger.Warn("load profile failed", zap.Int64("user_id", msg.From.ID), zap.Error(err))
	}
	b.reply(ctx, msg.Chat.ID, fmt.Sprintf(textCropCurrent, prof.Crop()), cropKeyboard())
}

func (b *Bot) handleRetry(ctx context.Context, msg *tgbotapi.Message) {
	prof, err := b.profiles.Get(ctx, msg.From.ID)
	if err != nil {
		logger.Warn("load profile failed", zap.Int64("user_id", msg.From.ID), zap.Error(err))
	}
	if prof.LastURL == "" {
		b.reply(ctx, msg.Chat.ID, textNoLastURL, nil)
		return
	}
	b.processURL(ctx, msg, prof.LastURL)
}

// processURL проводит ссылку через весь конвейер: браузер, скачивание с обрезкой,
// отправку альбомами. Рабочий каталог удаляется в любом исходе.
func (b *Bot) processURL(ctx context.Context, msg *tgbotapi.Message, raw string) {
	chatID, uid := msg.Chat.ID, msg.From.ID
	b.directory.RememberQuiet(ctx, identity(msg.From))

	l, err := listing.Parse(raw)
	switch {
	case errors.Is(err, listing.ErrUnsupportedSite):
		b.reply(ctx, chatID, textUnsupported, nil)
		return
	case err != nil:
		b.reply(ctx, chatID, textInvalidURL, nil)
		return
	}

	release, ok := b.inflight.TryAcquire(uid)
	if !ok {
		b.reply(ctx, chatID, textBusy, nil)
		return
	}
	defer release()
	metrics.IncInFlight()
	defer metrics.DecInFlight()

	log := logger.Named("bot").With(zap.Int64("user_id", uid), zap.String("url", l.URL), zap.String("site", string(l.Site)))
	b.setState(ctx, chatID, uid, users.StateProcessing)
	defer b.setState(ctx, chatID, uid, users.StateWaitingURL)

	prof, err := b.profiles.Get(ctx, uid)
	if err != nil {
		log.Warn("load profile failed", zap.Error(err))
	}
	crop := prof.Crop()

	status, err := b.sender.Reply(ctx, chatID, textCollecting, nil)
	if err != nil {
		log.Error("send status failed", zap.Error(err))
		return
	}
	finish := func(text string) {
		if err := b.sender.Edit(ctx, chatID, status.MessageID, text, nil); err != nil {
			log.Warn("edit status failed", zap.Error(err))
		}
	}

	dir, err := b.workspaces.Create(uid)
	if err != nil {
		log.Error("create workspace failed", zap.Error(err))
		finish(textInternalFailed)
		return
	}
	defer b.workspaces.Remove(dir)

	started := time.Now()
	srcs, err := b.scraper.Scrape(ctx, l)
	if err != nil {
		metrics.ObserveScrape(string(l.Site), "error", time.Since(started))
		log.Error("scrape failed", zap.Error(err))
		finish(textNotFound)
		return
	}
	paths, err := b.downloader.Run(ctx, srcs, dir, crop)
	if err != nil {
		metrics.ObserveScrape(string(l.Site), "error", time.Since(started))
		log.Error("download images failed", zap.Error(err))
		finish(textInternalFailed)
		return
	}
	if len(paths) == 0 {
		metrics.ObserveScrape(string(l.Site), "empty", time.Since(started))
		log.Info("no images found", zap.Int("sources", len(srcs)))
		finish(textNotFound)
		return
	}
	metrics.ObserveScrape(string(l.Site), "ok", time.Since(started))

	if err := b.stats.Increment(ctx, uid); err != nil {
		log.Warn("increment stats failed", zap.Error(err))
	}
	delivered, sendErr := b.sender.SendPhotos(ctx, chatID, paths)
	metrics.AddImagesSent(delivered)
	if delivered == 0 {
		log.Error("no albums delivered", zap.Error(sendErr))
		finish(textSendFailed)
	} else {
		finish(fmt.Sprintf(textDone, delivered))
	}

	if err := b.profiles.RecordRun(ctx, uid, l.URL, len(paths), crop, b.clock.Now()); err != nil {
		log.Warn("save profile failed", zap.Error(err))
	}
	log.Info("listing processed", zap.Int("images", len(paths)), zap.Int("delivered", delivered),
		zap.Int("crop", crop), zap.Duration("took", time.Since(started)))
}

func (b *Bot) setState(ctx context.Context, chatID, uid int64, s users.State) {
	if err := b.fsm.Set(ctx, chatID, uid, s); err != nil {
		logger.Warn("set fsm state failed", zap.Int64("user_id", uid), zap.String("state", string(s)), zap.Error(err))
	}
}
