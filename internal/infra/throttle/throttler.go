// Package throttle — ограничение частоты и повторные попытки вызовов внешних API.
// Частота задаётся токен-бакетом (x/time/rate), повторы — ограниченным числом попыток
// с экспоненциальной паузой и джиттером. Серверные указания подождать (retry_after)
// извлекаются через WaitExtractor и соблюдаются без джиттера.
package throttle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

// burstMultiplier задаёт burst по умолчанию как кратный rate.
const burstMultiplier = 2

// WaitExtractor анализирует ошибку и возвращает серверную паузу, если распознал её.
type WaitExtractor func(err error) (time.Duration, bool)

// StopRetryer помечает ошибки, после которых повторять вызов бессмысленно.
type StopRetryer interface {
	StopRetry() bool
}

// Option настраивает Throttler.
type Option func(*Throttler)

// WithMaxAttempts ограничивает общее число попыток (первая + повторы). <=0 — без ограничения.
func WithMaxAttempts(n int) Option {
	return func(t *Throttler) { t.maxAttempts = n }
}

// WithBurst переопределяет ёмкость бакета.
func WithBurst(burst int) Option {
	return func(t *Throttler) { t.burst = burst }
}

// WithWaitExtractors регистрирует экстракторы серверных пауз. Срабатывает первый совпавший.
func WithWaitExtractors(extractors ...WaitExtractor) Option {
	return func(t *Throttler) { t.extractors = append(t.extractors, extractors...) }
}

// WithBackoff задаёт базовую паузу и её потолок для ошибок без серверной паузы.
func WithBackoff(base, ceiling time.Duration) Option {
	return func(t *Throttler) {
		t.backoffBase = base
		t.backoffMax = ceiling
	}
}

// WithServerWaitPad добавляет запас к серверной паузе.
func WithServerWaitPad(pad time.Duration) Option {
	return func(t *Throttler) { t.serverPad = pad }
}

// WithRandom подменяет источник джиттера (для тестов).
func WithRandom(fn func() float64) Option {
	return func(t *Throttler) {
		if fn != nil {
			t.randomFn = fn
		}
	}
}

// WithRetryHook вызывается перед каждой повторной попыткой.
func WithRetryHook(fn func(attempt int, wait time.Duration, err error)) Option {
	return func(t *Throttler) { t.onRetry = fn }
}

// ErrAttemptsExhausted оборачивает последнюю ошибку, когда попытки закончились.
var ErrAttemptsExhausted = errors.New("throttle: attempts exhausted")

// Throttler потокобезопасен: Do может вызываться из нескольких горутин,
// все они делят один бакет.
type Throttler struct {
	limiter *rate.Limiter
	rps     int
	burst   int

	maxAttempts int
	extractors  []WaitExtractor
	backoffBase time.Duration
	backoffMax  time.Duration
	serverPad   time.Duration
	randomFn    func() float64
	onRetry     func(attempt int, wait time.Duration, err error)
}

// New создаёт троттлер с частотой rps вызовов в секунду.
func New(rps int, opts ...Option) *Throttler {
	if rps <= 0 {
		rps = 1
	}
	t := &Throttler{
		rps:         rps,
		burst:       rps * burstMultiplier,
		backoffBase: time.Second,
		backoffMax:  time.Minute,
		randomFn:    rand.Float64,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.burst < 1 {
		t.burst = 1
	}
	t.limiter = rate.NewLimiter(rate.Limit(t.rps), t.burst)
	return t
}

// Do вызывает fn, дожидаясь токена перед каждой попыткой.
//  1. StopRetryer или отмена контекста — ошибка возвращается сразу;
//  2. экстрактор вернул паузу — ждём её (плюс serverPad);
//  3. иначе экспоненциальная пауза с джиттером.
//
// Серверные паузы тоже расходуют попытку, чтобы бесконечный 429 не повесил вызов.
func (t *Throttler) Do(ctx context.Context, fn func() error) error {
	for attempt := 1; ; attempt++ {
		if err := t.limiter.Wait(ctx); err != nil {
			return err
		}
		callErr := fn()
		if callErr == nil {
			return nil
		}

		var stopper StopRetryer
		switch {
		case errors.As(callErr, &stopper) && stopper.StopRetry():
			return callErr
		case errors.Is(callErr, context.Canceled) || errors.Is(callErr, context.DeadlineExceeded):
			return callErr
		}

		if t.maxAttempts > 0 && attempt >= t.maxAttempts {
			return fmt.Errorf("%w (%d): %w", ErrAttemptsExhausted, attempt, callErr)
		}

		wait, ok := t.serverWait(callErr)
		if ok {
			wait += t.serverPad
		} else {
			wait = t.backoff(attempt - 1)
		}
		if t.onRetry != nil {
			t.onRetry(attempt, wait, callErr)
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (t *Throttler) serverWait(err error) (time.Duration, bool) {
	for _, ex := range t.extractors {
		if ex == nil {
			continue
		}
		if d, ok := ex(err); ok && d > 0 {
			return d, true
		}
	}
	return 0, false
}

// backoff возвращает base*2^n, ограниченное backoffMax, с джиттером [0.85..1.15].
func (t *Throttler) backoff(n int) time.Duration {
	const (
		jitterRange = 0.3
		jitterMin   = 0.85
	)
	d := float64(t.backoffBase) * math.Pow(2, float64(n))
	if limit := float64(t.backoffMax); t.backoffMax > 0 && d > limit {
		d = limit
	}
	return time.Duration(d * (t.randomFn()*jitterRange + jitterMin))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
