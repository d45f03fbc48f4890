// Package debug печатает входящие апдейты в консоль оператора. Включается только
// вместе с консолью и уровнем логирования debug, на обработку апдейтов не влияет.
package debug

import (
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"el-estate-bot/internal/infra/pr"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// textMaxLen — сколько рун текста показывать.
const textMaxLen = 50

var enabled atomic.Bool

// SetEnabled включает или выключает печать.
func SetEnabled(v bool) { enabled.Store(v) }

// Enabled сообщает, включена ли печать.
func Enabled() bool { return enabled.Load() }

// Describe возвращает однострочное описание апдейта: тип, автор и обрезанный текст.
func Describe(upd tgbotapi.Update) string {
	var kind, text string
	var from *tgbotapi.User
	switch {
	case upd.Message != nil:
		kind, from, text = "message", upd.Message.From, upd.Message.Text
		if upd.Message.IsCommand() {
			kind = "command"
		}
	case upd.CallbackQuery != nil:
		kind, from, text = "callback", upd.CallbackQuery.From, upd.CallbackQuery.Data
	default:
		kind = "other"
	}
	return kind + " > " + author(from) + ": " + truncate(text)
}

// PrintUpdate печатает Describe(upd) с префиксом, если печать включена.
func PrintUpdate(prefix string, upd tgbotapi.Update) {
	if !Enabled() {
		return
	}
	pr.Printf("[%s] %s\n", prefix, Describe(upd))
}

func author(u *tgbotapi.User) string {
	if u == nil {
		return "<unknown>"
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = "<unknown>"
	}
	if u.UserName != "" {
		return "'" + name + "' (@" + u.UserName + ")"
	}
	return "'" + name + "'"
}

// truncate режет по рунам, чтобы не порвать UTF-8.
func truncate(text string) string {
	text = strings.ReplaceAll(text, "\n", " ")
	if utf8.RuneCountInString(text) <= textMaxLen {
		return text
	}
	return string([]rune(text)[:textMaxLen]) + "..."
}
