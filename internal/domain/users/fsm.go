package users

import (
	"context"
	"fmt"

	"el-estate-bot/internal/infra/kv"

	"github.com/go-faster/errors"
)

// State — состояние диалога пользователя.
type State string

// Состояния диалога. Значения совпадают с уже записанными в хранилище.
const (
	StateNone       State = ""
	StateWaitingURL State = "UserState:waiting_for_url"
	StateProcessing State = "UserState:processing_url"
)

// FSM хранит состояние диалога по паре чат/пользователь.
type FSM struct {
	store kv.Store
}

// NewFSM создаёт FSM поверх хранилища.
func NewFSM(store kv.Store) *FSM {
	return &FSM{store: store}
}

func stateKey(chatID, uid int64) string {
	return fmt.Sprintf("el_estate_bot:%d:%d:state", chatID, uid)
}

// Set записывает состояние. StateNone удаляет ключ.
func (f *FSM) Set(ctx context.Context, chatID, uid int64, s State) error {
	key := stateKey(chatID, uid)
	var err error
	if s == StateNone {
		err = f.store.Del(ctx, key)
	} else {
		err = f.store.Set(ctx, key, string(s), 0)
	}
	if err != nil {
		return errors.Wrapf(err, "set state %q", s)
	}
	return nil
}

// Get возвращает текущее состояние или StateNone.
func (f *FSM) Get(ctx context.Context, chatID, uid int64) (State, error) {
	v, err := f.store.Get(ctx, stateKey(chatID, uid))
	if errors.Is(err, kv.ErrNotFound) {
		return StateNone, nil
	}
	if err != nil {
		return StateNone, errors.Wrap(err, "get state")
	}
	return State(v), nil
}
