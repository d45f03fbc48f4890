// Package stats — счётчики успешных обработок ссылок по пользователям.
// Для каждого дня и каждой ISO-недели ведётся хэш id → количество; ключи
// сами истекают (35 и 180 дней), поэтому отдельной очистки не требуется.
package stats

import (
	"context"
	"sort"
	"strconv"
	"time"

	"el-estate-bot/internal/infra/clock"
	"el-estate-bot/internal/infra/kv"
	"el-estate-bot/internal/infra/timeutil"

	"github.com/go-faster/errors"
)

// Сроки жизни хэшей статистики.
const (
	DailyTTL  = 35 * 24 * time.Hour
	WeeklyTTL = 180 * 24 * time.Hour
)

// Row — строка рейтинга.
type Row struct {
	Label string
	Count int64
}

// Counter ведёт дневные и недельные счётчики.
type Counter struct {
	store kv.Store
	clock clock.Clock
}

// New создаёт счётчик. Nil clock означает clock.System.
func New(store kv.Store, c clock.Clock) *Counter {
	if c == nil {
		c = clock.System
	}
	return &Counter{store: store, clock: c}
}

// DailyKey — ключ хэша за день t.
func DailyKey(t time.Time) string { return "stats:daily:" + timeutil.DayKey(t) }

// WeeklyKey — ключ хэша за ISO-неделю t.
func WeeklyKey(t time.Time) string { return "stats:weekly:" + timeutil.WeekKey(t) }

// Increment увеличивает счётчики uid за текущие день и неделю и продлевает TTL.
func (c *Counter) Increment(ctx context.Context, uid int64) error {
	now := c.clock.Now()
	field := strconv.FormatInt(uid, 10)
	for _, b := range []struct {
		key string
		ttl time.Duration
	}{
		{DailyKey(now), DailyTTL},
		{WeeklyKey(now), WeeklyTTL},
	} {
		if _, err := c.store.HIncrBy(ctx, b.key, field, 1); err != nil {
			return errors.Wrapf(err, "increment %s", b.key)
		}
		if err := c.store.Expire(ctx, b.key, b.ttl); err != nil {
			return errors.Wrapf(err, "expire %s", b.key)
		}
	}
	return nil
}

// Daily возвращает счётчики за текущий день.
func (c *Counter) Daily(ctx context.Context) (map[string]int64, error) {
	return c.read(ctx, DailyKey(c.clock.Now()))
}

// Weekly возвращает счётчики за текущую неделю.
func (c *Counter) Weekly(ctx context.Context) (map[string]int64, error) {
	return c.read(ctx, WeeklyKey(c.clock.Now()))
}

func (c *Counter) read(ctx context.Context, key string) (map[string]int64, error) {
	raw, err := c.store.HGetAll(ctx, key)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", key)
	}
	out := make(map[string]int64, len(raw))
	for id, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out[id] = n
	}
	return out, nil
}

// Rank сортирует счётчики по убыванию, при равенстве — по подписи.
// Подпись — известный ник из names, иначе сам id.
func Rank(items map[string]int64, names map[string]string) []Row {
	rows := make([]Row, 0, len(items))
	for id, n := range items {
		label := id
		if name, ok := names[id]; ok && name != "" {
			label = name
		}
		rows = append(rows, Row{Label: label, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Label < rows[j].Label
	})
	return rows
}

// IDs возвращает объединение id из нескольких наборов счётчиков.
func IDs(sets ...map[string]int64) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range sets {
		for id := range s {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
