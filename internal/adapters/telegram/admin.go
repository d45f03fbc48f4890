package telegram

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode"

	"el-estate-bot/internal/domain/users"
	"el-estate-bot/internal/infra/logger"
	"el-estate-bot/internal/infra/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Данные кнопок админского меню.
const (
	callbackAllowed = "admin:allowed"
	callbackStats   = "admin:stats"
)

// handleAdminCommand выполняет админскую команду. Возвращает false, если команда
// не админская или отправитель не администратор: такие сообщения молча игнорируются.
func (b *Bot) handleAdminCommand(ctx context.Context, msg *tgbotapi.Message, cmd string) bool {
	var h func(context.Context, *tgbotapi.Message)
	switch cmd {
	case "admin":
		h = b.handleAdminHelp
	case "allow":
		h = b.handleAllow
	case "allow_username":
		h = b.handleAllowUsername
	case "allow_from_forward":
		h = b.handleAllowFromForward
	case "deny":
		h = b.handleDeny
	case "allowed":
		h = b.handleAllowed
	case "stats":
		h = b.handleStats
	case "setname":
		h = b.handleSetName
	default:
		return false
	}
	if !b.access.IsAdmin(msg.From.ID) {
		return false
	}
	h(ctx, msg)
	return true
}

func adminKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(buttonAllowed, callbackAllowed),
		tgbotapi.NewInlineKeyboardButtonData(buttonStats, callbackStats),
	))
}

func (b *Bot) handleAdminHelp(ctx context.Context, msg *tgbotapi.Message) {
	b.reply(ctx, msg.Chat.ID, textAdminHelp, adminKeyboard())
}

// handleAllow: /allow <id> или /allow @нік (ник должен быть уже связан с id).
func (b *Bot) handleAllow(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 1 {
		b.reply(ctx, msg.Chat.ID, textAllowFormat, nil)
		return
	}
	arg := args[0]

	var uid int64
	if strings.HasPrefix(arg, "@") {
		id, ok, err := b.directory.ResolveUsername(ctx, arg)
		if err != nil {
			logger.Error("resolve username failed", zap.String("nick", arg), zap.Error(err))
			b.reply(ctx, msg.Chat.ID, textStoreUnavailable, nil)
			return
		}
		if !ok {
			b.reply(ctx, msg.Chat.ID, textAllowUnknownNick, nil)
			return
		}
		uid = id
	} else {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			b.reply(ctx, msg.Chat.ID, textBadID, nil)
			return
		}
		uid = id
	}
	b.allow(ctx, msg.Chat.ID, uid)
}

func (b *Bot) allow(ctx context.Context, chatID, uid int64) bool {
	if err := b.commands.Allow(ctx, uid); err != nil {
		logger.Error("allow user failed", zap.Int64("user_id", uid), zap.Error(err))
		b.reply(ctx, chatID, textStoreUnavailable, nil)
		return false
	}
	b.reply(ctx, chatID, fmt.Sprintf(textAllowed, uid), nil)
	return true
}

// handleAllowUsername добавляет по нику, а неизвестный ник резервирует до /start или пересылки.
func (b *Bot) handleAllowUsername(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 1 || !strings.HasPrefix(args[0], "@") || len(args[0]) == 1 {
		b.reply(ctx, msg.Chat.ID, textAllowUsernameFmt, nil)
		return
	}
	nick := users.NormalizeUsername(args[0])

	uid, ok, err := b.directory.ResolveUsername(ctx, nick)
	if err != nil {
		logger.Error("resolve username failed", zap.String("nick", nick), zap.Error(err))
		b.reply(ctx, msg.Chat.ID, textStoreUnavailable, nil)
		return
	}
	if ok {
		if b.allow(ctx, msg.Chat.ID, uid) {
			if err := b.directory.Link(ctx, uid, nick); err != nil {
				logger.Warn("refresh username mapping failed", zap.Int64("user_id", uid), zap.Error(err))
			}
		}
		return
	}
	if err := b.directory.Reserve(ctx, nick); err != nil {
		logger.Error("reserve username failed", zap.String("nick", nick), zap.Error(err))
		b.reply(ctx, msg.Chat.ID, textStoreUnavailable, nil)
		return
	}
	b.reply(ctx, msg.Chat.ID, fmt.Sprintf(textNickReserved, html.EscapeString(nick)), nil)
}

func (b *Bot) handleAllowFromForward(ctx context.Context, msg *tgbotapi.Message) {
	if err := b.forwards.Begin(ctx, msg.From.ID); err != nil {
		logger.Error("begin forward request failed", zap.Int64("admin_id", msg.From.ID), zap.Error(err))
		b.reply(ctx, msg.Chat.ID, textStoreUnavailable, nil)
		return
	}
	b.reply(ctx, msg.Chat.ID, textAwaitForward, nil)
}

// handleForwardAllow добавляет автора пересланного сообщения. Запрос остаётся активным,
// если Telegram скрыл автора настройками приватности.
func (b *Bot) handleForwardAllow(ctx context.Context, msg *tgbotapi.Message) {
	origin := msg.ForwardFrom
	if origin == nil {
		b.reply(ctx, msg.Chat.ID, textForwardHidden, nil)
		return
	}
	if err := b.forwards.Clear(ctx, msg.From.ID); err != nil {
		logger.Warn("clear forward request failed", zap.Int64("admin_id", msg.From.ID), zap.Error(err))
	}
	if !b.allow(ctx, msg.Chat.ID, origin.ID) {
		return
	}
	b.directory.RememberQuiet(ctx, identity(origin))
	metrics.IncCommand("forward_allow")
}

func (b *Bot) handleDeny(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 1 {
		b.reply(ctx, msg.Chat.ID, textDenyFormat, nil)
		return
	}
	uid, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		b.reply(ctx, msg.Chat.ID, textBadID, nil)
		return
	}
	if err := b.commands.Deny(ctx, uid); err != nil {
		logger.Error("deny user failed", zap.Int64("user_id", uid), zap.Error(err))
		b.reply(ctx, msg.Chat.ID, textStoreUnavailable, nil)
		return
	}
	b.reply(ctx, msg.Chat.ID, fmt.Sprintf(textDenied, uid), nil)
}

func (b *Bot) handleAllowed(ctx context.Context, msg *tgbotapi.Message) {
	texts, ok := b.allowedTexts(ctx)
	if !ok {
		b.reply(ctx, msg.Chat.ID, textStoreUnavailable, nil)
		return
	}
	b.replyAll(ctx, msg.Chat.ID, texts)
}

func (b *Bot) handleStats(ctx context.Context, msg *tgbotapi.Message) {
	texts, ok := b.statsTexts(ctx)
	if !ok {
		b.reply(ctx, msg.Chat.ID, textStoreUnavailable, nil)
		return
	}
	b.replyAll(ctx, msg.Chat.ID, texts)
}

// handleSetName: /setname <id> <полное имя>; имя может содержать пробелы.
func (b *Bot) handleSetName(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.TrimSpace(msg.CommandArguments())
	sep := strings.IndexFunc(args, unicode.IsSpace)
	if sep < 0 || strings.TrimSpace(args[sep:]) == "" {
		b.reply(ctx, msg.Chat.ID, textSetNameFormat, nil)
		return
	}
	idPart, name := args[:sep], strings.TrimSpace(args[sep:])
	uid, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		b.reply(ctx, msg.Chat.ID, textBadID, nil)
		return
	}
	if err := b.directory.SetFullName(ctx, uid, name); err != nil {
		logger.Error("set full name failed", zap.Int64("user_id", uid), zap.Error(err))
		b.reply(ctx, msg.Chat.ID, textStoreUnavailable, nil)
		return
	}
	b.reply(ctx, msg.Chat.ID, textNameUpdated, nil)
}

func (b *Bot) allowedTexts(ctx context.Context) ([]string, bool) {
	res, err := b.commands.Allowed(ctx)
	if err != nil {
		logger.Error("list allowed users failed", zap.Error(err))
		return nil, false
	}
	return RenderAllowed(res.Users), true
}

func (b *Bot) statsTexts(ctx context.Context) ([]string, bool) {
	res, err := b.commands.Stats(ctx)
	if err != nil {
		logger.Error("load stats failed", zap.Error(err))
		return nil, false
	}
	return RenderStats(res.Daily, res.Weekly), true
}
