// Package access — белый список пользователей бота.
// Администраторы из ADMIN_IDS проходят всегда, остальные должны состоять в множестве
// whitelist:users. Любая ошибка хранилища трактуется как запрет (fail-closed).
package access

import (
	"context"
	"slices"
	"strconv"

	"el-estate-bot/internal/infra/kv"
	"el-estate-bot/internal/infra/logger"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// WhitelistKey — множество разрешённых id.
const WhitelistKey = "whitelist:users"

// DeniedMessage — ответ пользователю, которого нет в белом списке.
const DeniedMessage = "Доступ обмежено. Зверніться до адміністратора для внесення до білого списку."

// Whitelist управляет доступом к боту.
type Whitelist struct {
	store  kv.Store
	admins map[int64]struct{}
}

// New создаёт белый список поверх хранилища с фиксированным набором администраторов.
func New(store kv.Store, adminIDs []int64) *Whitelist {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &Whitelist{store: store, admins: admins}
}

// IsAdmin сообщает, входит ли uid в ADMIN_IDS.
func (w *Whitelist) IsAdmin(uid int64) bool {
	_, ok := w.admins[uid]
	return ok
}

// Admins возвращает отсортированный список администраторов.
func (w *Whitelist) Admins() []int64 {
	out := make([]int64, 0, len(w.admins))
	for id := range w.admins {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// IsAllowed решает, может ли uid пользоваться ботом.
func (w *Whitelist) IsAllowed(ctx context.Context, uid int64) bool {
	if w.IsAdmin(uid) {
		return true
	}
	ok, err := w.store.SIsMember(ctx, WhitelistKey, strconv.FormatInt(uid, 10))
	if err != nil {
		logger.Warn("whitelist check failed, denying", zap.Int64("user_id", uid), zap.Error(err))
		return false
	}
	return ok
}

// Allow добавляет uid в белый список.
func (w *Whitelist) Allow(ctx context.Context, uid int64) error {
	if err := w.store.SAdd(ctx, WhitelistKey, strconv.FormatInt(uid, 10)); err != nil {
		return errors.Wrapf(err, "allow %d", uid)
	}
	return nil
}

// Deny удаляет uid из белого списка. Отсутствие uid ошибкой не считается.
func (w *Whitelist) Deny(ctx context.Context, uid int64) error {
	if err := w.store.SRem(ctx, WhitelistKey, strconv.FormatInt(uid, 10)); err != nil {
		return errors.Wrapf(err, "deny %d", uid)
	}
	return nil
}

// Members возвращает участников белого списка по возрастанию id.
// Нечисловые значения (ручные правки в Redis) пропускаются.
func (w *Whitelist) Members(ctx context.Context) ([]int64, error) {
	raw, err := w.store.SMembers(ctx, WhitelistKey)
	if err != nil {
		return nil, errors.Wrap(err, "list whitelist")
	}
	out := make([]int64, 0, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			logger.Debug("skip non-numeric whitelist member", zap.String("member", s))
			continue
		}
		out = append(out, id)
	}
	slices.Sort(out)
	return out, nil
}
