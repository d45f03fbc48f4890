// Package kv — хранилище состояния бота: белый список, FSM, профили пользователей и
// счётчики статистики. Контракт повторяет подмножество команд Redis, которое реально
// нужно доменным сервисам (строки с TTL, множества, хэши со счётчиками), поэтому
// доменный код одинаково работает поверх Redis и поверх локального bbolt-файла.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound возвращается Get, если ключа нет или срок его жизни истёк.
var ErrNotFound = errors.New("kv: key not found")

// ErrWrongType возвращается, если операция применена к ключу другого типа
// (например, SAdd к строковому ключу).
var ErrWrongType = errors.New("kv: operation against a key holding the wrong kind of value")

// Store — минимальный контракт key-value хранилища.
// ttl <= 0 в Set означает «без срока жизни». Все методы потокобезопасны.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error

	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SIsMember(ctx context.Context, key, member string) (bool, error)
	SMembers(ctx context.Context, key string) ([]string, error)

	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	Expire(ctx context.Context, key string, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}
