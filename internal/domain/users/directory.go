// Package users хранит всё, что бот знает о пользователях: соответствие ников и id,
// полные имена, персональные настройки и состояние диалога (FSM).
package users

import (
	"context"
	"strconv"
	"strings"
	"time"

	"el-estate-bot/internal/infra/kv"
	"el-estate-bot/internal/infra/logger"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// MappingTTL — срок жизни соответствий ник/id/имя.
const MappingTTL = 30 * 24 * time.Hour

// Identity — минимальные сведения о пользователе Telegram.
type Identity struct {
	ID        int64
	Username  string // без @, как приходит от Telegram
	FirstName string
	LastName  string
}

// FullName склеивает имя и фамилию.
func (i Identity) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(i.FirstName) + " " + strings.TrimSpace(i.LastName))
}

// NormalizeUsername приводит ник к виду "@lowercase". Пустой ввод даёт пустую строку.
func NormalizeUsername(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "@")
	if name == "" {
		return ""
	}
	return "@" + strings.ToLower(name)
}

func usernameKey(nick string) string { return "username_to_id:" + nick }
func idUsernameKey(uid int64) string { return "id_to_username:" + strconv.FormatInt(uid, 10) }
func idFullNameKey(uid int64) string { return "id_to_fullname:" + strconv.FormatInt(uid, 10) }

// Directory — двусторонний справочник ник ↔ id и id → полное имя.
type Directory struct {
	store kv.Store
}

// NewDirectory создаёт справочник поверх хранилища.
func NewDirectory(store kv.Store) *Directory {
	return &Directory{store: store}
}

// Remember обновляет соответствия по данным пользователя. Отсутствующие поля пропускаются.
func (d *Directory) Remember(ctx context.Context, u Identity) error {
	if nick := NormalizeUsername(u.Username); nick != "" {
		if err := d.Link(ctx, u.ID, nick); err != nil {
			return err
		}
	}
	if full := u.FullName(); full != "" {
		if err := d.SetFullName(ctx, u.ID, full); err != nil {
			return err
		}
	}
	return nil
}

// RememberQuiet вызывает Remember и только логирует ошибку: обновление справочника
// не должно мешать основной обработке сообщения.
func (d *Directory) RememberQuiet(ctx context.Context, u Identity) {
	if err := d.Remember(ctx, u); err != nil {
		logger.Debug("refresh user mapping failed", zap.Int64("user_id", u.ID), zap.Error(err))
	}
}

// Link записывает соответствие nick ↔ uid в обе стороны.
func (d *Directory) Link(ctx context.Context, uid int64, nick string) error {
	nick = NormalizeUsername(nick)
	if err := d.store.Set(ctx, usernameKey(nick), strconv.FormatInt(uid, 10), MappingTTL); err != nil {
		return errors.Wrapf(err, "link %s", nick)
	}
	if err := d.store.Set(ctx, idUsernameKey(uid), nick, MappingTTL); err != nil {
		return errors.Wrapf(err, "link %d", uid)
	}
	return nil
}

// ResolveUsername ищет id по нику. ok=false, если ник неизвестен или только зарезервирован.
func (d *Directory) ResolveUsername(ctx context.Context, nick string) (int64, bool, error) {
	nick = NormalizeUsername(nick)
	if nick == "" {
		return 0, false, nil
	}
	raw, err := d.store.Get(ctx, usernameKey(nick))
	if errors.Is(err, kv.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrapf(err, "resolve %s", nick)
	}
	uid, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || uid <= 0 {
		return 0, false, nil
	}
	return uid, true, nil
}

// Reserve запоминает ник без id, чтобы связать его позже через /start или пересылку.
func (d *Directory) Reserve(ctx context.Context, nick string) error {
	nick = NormalizeUsername(nick)
	if err := d.store.Set(ctx, usernameKey(nick), "", MappingTTL); err != nil {
		return errors.Wrapf(err, "reserve %s", nick)
	}
	return nil
}

// Username возвращает известный ник пользователя ("" если нет).
func (d *Directory) Username(ctx context.Context, uid int64) (string, error) {
	return d.optional(ctx, idUsernameKey(uid))
}

// FullName возвращает сохранённое полное имя ("" если нет).
func (d *Directory) FullName(ctx context.Context, uid int64) (string, error) {
	return d.optional(ctx, idFullNameKey(uid))
}

// SetFullName вручную задаёт полное имя.
func (d *Directory) SetFullName(ctx context.Context, uid int64, name string) error {
	if err := d.store.Set(ctx, idFullNameKey(uid), strings.TrimSpace(name), MappingTTL); err != nil {
		return errors.Wrapf(err, "set full name %d", uid)
	}
	return nil
}

// Usernames собирает известные ники для набора id (ключ — десятичный id).
func (d *Directory) Usernames(ctx context.Context, ids []string) map[string]string {
	out := make(map[string]string, len(ids))
	for _, raw := range ids {
		uid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		name, err := d.Username(ctx, uid)
		if err != nil {
			logger.Debug("lookup username failed", zap.Int64("user_id", uid), zap.Error(err))
			continue
		}
		if name != "" {
			out[raw] = name
		}
	}
	return out
}

func (d *Directory) optional(ctx context.Context, key string) (string, error) {
	v, err := d.store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrapf(err, "get %s", key)
	}
	return v, nil
}
