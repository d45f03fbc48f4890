package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"el-estate-bot/internal/domain/users"
	"el-estate-bot/internal/infra/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// handleCallback обрабатывает нажатия inline-кнопок.
func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	switch data := cq.Data; {
	case strings.HasPrefix(data, cropCallbackPrefix):
		b.handleSetCrop(ctx, cq, strings.TrimPrefix(data, cropCallbackPrefix))
	case data == callbackAllowed || data == callbackStats:
		if cq.From == nil || !b.access.IsAdmin(cq.From.ID) {
			return
		}
		b.handleAdminCallback(ctx, cq)
	default:
		b.sender.Answer(ctx, cq.ID, "")
	}
}

func (b *Bot) handleSetCrop(ctx context.Context, cq *tgbotapi.CallbackQuery, raw string) {
	value, err := strconv.Atoi(raw)
	if err != nil {
		b.sender.Answer(ctx, cq.ID, textCropBadValue)
		return
	}
	if !users.ValidCrop(value) {
		b.sender.Answer(ctx, cq.ID, textCropNotAllowed)
		return
	}
	if err := b.profiles.SetCrop(ctx, cq.From.ID, value); err != nil {
		logger.Error("save crop failed", zap.Int64("user_id", cq.From.ID), zap.Error(err))
		b.sender.Answer(ctx, cq.ID, textStoreUnavailable)
		return
	}
	if cq.Message != nil {
		kb := cropKeyboard()
		if err := b.sender.Edit(ctx, cq.Message.Chat.ID, cq.Message.MessageID,
			fmt.Sprintf(textCropCurrent, value), &kb); err != nil {
			logger.Debug("edit crop message failed", zap.Error(err))
		}
	}
	b.sender.Answer(ctx, cq.ID, textCropUpdated)
}

// handleAdminCallback заменяет текст меню первой частью таблицы, остальные части
// досылает отдельными сообщениями.
func (b *Bot) handleAdminCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	var (
		texts []string
		ok    bool
	)
	if cq.Data == callbackAllowed {
		texts, ok = b.allowedTexts(ctx)
	} else {
		texts, ok = b.statsTexts(ctx)
	}
	if !ok {
		b.sender.Answer(ctx, cq.ID, textStoreUnavailable)
		return
	}
	if cq.Message != nil && len(texts) > 0 {
		chatID := cq.Message.Chat.ID
		if err := b.sender.Edit(ctx, chatID, cq.Message.MessageID, texts[0], nil); err != nil {
			logger.Warn("edit admin menu failed", zap.Error(err))
			b.reply(ctx, chatID, texts[0], nil)
		}
		b.replyAll(ctx, chatID, texts[1:])
	}
	b.sender.Answer(ctx, cq.ID, "")
}
