package access

import (
	"context"
	"strconv"
	"time"

	"el-estate-bot/internal/infra/kv"

	"github.com/go-faster/errors"
)

// ForwardTTL — сколько ждём пересланное сообщение после /allow_from_forward.
const ForwardTTL = 300 * time.Second

func forwardKey(adminID int64) string {
	return "admin:await_forward:" + strconv.FormatInt(adminID, 10)
}

// ForwardRequests — отметки «администратор ждёт пересланное сообщение».
type ForwardRequests struct {
	store kv.Store
}

// NewForwardRequests создаёт хранилище отметок.
func NewForwardRequests(store kv.Store) *ForwardRequests {
	return &ForwardRequests{store: store}
}

// Begin ставит отметку на ForwardTTL.
func (f *ForwardRequests) Begin(ctx context.Context, adminID int64) error {
	if err := f.store.Set(ctx, forwardKey(adminID), "1", ForwardTTL); err != nil {
		return errors.Wrap(err, "begin forward request")
	}
	return nil
}

// Pending сообщает, ждёт ли администратор пересылку. Ошибка хранилища — «не ждёт».
func (f *ForwardRequests) Pending(ctx context.Context, adminID int64) bool {
	v, err := f.store.Get(ctx, forwardKey(adminID))
	return err == nil && v != ""
}

// Clear снимает отметку.
func (f *ForwardRequests) Clear(ctx context.Context, adminID int64) error {
	if err := f.store.Del(ctx, forwardKey(adminID)); err != nil {
		return errors.Wrap(err, "clear forward request")
	}
	return nil
}
