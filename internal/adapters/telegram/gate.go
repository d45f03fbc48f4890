package telegram

import (
	"context"

	"el-estate-bot/internal/domain/access"
	"el-estate-bot/internal/infra/logger"
	"el-estate-bot/internal/infra/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// gateMessage пропускает сообщения без отправителя и пользователей из белого списка.
// Остальным отвечает фиксированным отказом.
func (b *Bot) gateMessage(ctx context.Context, msg *tgbotapi.Message) bool {
	if msg.From == nil || b.access.IsAllowed(ctx, msg.From.ID) {
		return true
	}
	// Ник и имя запоминаются и для чужих: админ добавляет их потом через /allow @нік.
	b.directory.RememberQuiet(ctx, identity(msg.From))
	metrics.IncAccessDenied("message")
	logger.Info("access denied", zap.Int64("user_id", msg.From.ID))
	b.reply(ctx, msg.Chat.ID, access.DeniedMessage, nil)
	return false
}

// gateCallback молча гасит нажатия кнопок от пользователей вне белого списка.
func (b *Bot) gateCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) bool {
	if cq.From == nil || b.access.IsAllowed(ctx, cq.From.ID) {
		return true
	}
	metrics.IncAccessDenied("callback")
	b.sender.Answer(ctx, cq.ID, "")
	return false
}
