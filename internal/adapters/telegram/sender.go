package telegram

import (
	"context"
	"errors"
	"net/http"
	"time"

	"el-estate-bot/internal/infra/logger"
	"el-estate-bot/internal/infra/metrics"
	"el-estate-bot/internal/infra/throttle"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Параметры отправки.
const (
	// AlbumSize — максимум фото в одном альбоме Bot API.
	AlbumSize = 10
	// sendRPS — общий лимит запросов к Bot API.
	sendRPS = 20
	// sendBurst — запас мгновенных запросов; глобальный лимит Bot API около 30 в секунду.
	sendBurst = sendRPS
	// sendAttempts — попытки на один запрос (первая + повторы).
	sendAttempts = 5
	// retryAfterPad — запас к серверному retry_after.
	retryAfterPad = time.Second
	// retryPause — пауза после ошибок без retry_after.
	retryPause = 3 * time.Second
)

// API — используемая часть *tgbotapi.BotAPI.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	SendMediaGroup(c tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// permanentError — ответ Bot API, который не исправится повтором (4xx кроме 429).
type permanentError struct{ err error }

func (e permanentError) Error() string   { return e.err.Error() }
func (e permanentError) Unwrap() error   { return e.err }
func (e permanentError) StopRetry() bool { return true }

// classify помечает постоянные ошибки Bot API.
func classify(err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.Code >= 400 && apiErr.Code < 500 && apiErr.Code != http.StatusTooManyRequests {
		return permanentError{err: err}
	}
	return err
}

// RetryAfterExtractor достаёт parameters.retry_after из ошибки Bot API.
func RetryAfterExtractor(err error) (time.Duration, bool) {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) || apiErr.RetryAfter <= 0 {
		return 0, false
	}
	return time.Duration(apiErr.RetryAfter) * time.Second, true
}

// Sender отправляет сообщения через общий троттлер.
type Sender struct {
	api      API
	throttle *throttle.Throttler
}

// NewSender создаёт Sender с настройками повторов по умолчанию.
func NewSender(api API, opts ...throttle.Option) *Sender {
	base := []throttle.Option{
		throttle.WithMaxAttempts(sendAttempts),
		throttle.WithBurst(sendBurst),
		throttle.WithWaitExtractors(RetryAfterExtractor),
		throttle.WithServerWaitPad(retryAfterPad),
		throttle.WithBackoff(retryPause, retryPause),
		throttle.WithRetryHook(func(attempt int, wait time.Duration, err error) {
			metrics.IncSendRetry()
			logger.Warn("bot api call failed, retrying",
				zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
		}),
	}
	return &Sender{api: api, throttle: throttle.New(sendRPS, append(base, opts...)...)}
}

// Reply отправляет HTML-сообщение в чат. markup может быть nil.
func (s *Sender) Reply(ctx context.Context, chatID int64, text string, markup any) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	var sent tgbotapi.Message
	err := s.throttle.Do(ctx, func() error {
		var err error
		sent, err = s.api.Send(msg)
		return classify(err)
	})
	return sent, err
}

// Edit меняет текст сообщения. markup может быть nil.
func (s *Sender) Edit(ctx context.Context, chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.DisableWebPagePreview = true
	edit.ReplyMarkup = markup
	return s.throttle.Do(ctx, func() error {
		_, err := s.api.Request(edit)
		return classify(err)
	})
}

// Answer отвечает на callback query (text может быть пустым).
func (s *Sender) Answer(ctx context.Context, callbackID, text string) {
	cb := tgbotapi.NewCallback(callbackID, text)
	if err := s.throttle.Do(ctx, func() error {
		_, err := s.api.Request(cb)
		return classify(err)
	}); err != nil {
		logger.Debug("answer callback failed", zap.Error(err))
	}
}

// SendPhotos отправляет файлы альбомами по AlbumSize. Неудавшийся альбом пропускается,
// остальные всё равно отправляются. Возвращает число доставленных фото и последнюю ошибку.
func (s *Sender) SendPhotos(ctx context.Context, chatID int64, paths []string) (int, error) {
	delivered := 0
	var lastErr error
	for start := 0; start < len(paths); start += AlbumSize {
		group := paths[start:min(start+AlbumSize, len(paths))]
		media := make([]any, 0, len(group))
		for _, p := range group {
			media = append(media, tgbotapi.NewInputMediaPhoto(tgbotapi.FilePath(p)))
		}
		cfg := tgbotapi.NewMediaGroup(chatID, media)
		err := s.throttle.Do(ctx, func() error {
			_, err := s.api.SendMediaGroup(cfg)
			return classify(err)
		})
		if err != nil {
			if ctx.Err() != nil {
				return delivered, err
			}
			logger.Error("send album failed", zap.Int64("chat_id", chatID), zap.Int("size", len(group)), zap.Error(err))
			lastErr = err
			continue
		}
		delivered += len(group)
	}
	return delivered, lastErr
}
