// Package lifecycle запускает подсистемы приложения в порядке зависимостей и
// останавливает их в обратном порядке. Каждая подсистема получает собственный
// контекст, который отменяется перед вызовом её StopFunc.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"el-estate-bot/internal/infra/logger"

	"go.uber.org/zap"
)

// StartFunc запускает подсистему. Долгоживущая работа должна уходить в горутины,
// привязанные к ctx: StartFunc обязан вернуть управление.
type StartFunc func(ctx context.Context) error

// StopFunc останавливает подсистему. ctx ограничивает время остановки.
type StopFunc func(ctx context.Context) error

type unitStatus int

const (
	statusRegistered unitStatus = iota
	statusStarting
	statusRunning
	statusStopped
	statusFailed
)

type unit struct {
	name   string
	deps   []string
	start  StartFunc
	stop   StopFunc
	cancel context.CancelFunc
	status unitStatus
}

// Manager — реестр подсистем. Потокобезопасен.
type Manager struct {
	mu      sync.Mutex
	root    context.Context
	units   map[string]*unit
	order   []string // порядок регистрации
	started []string // фактический порядок запуска
}

// New создаёт менеджер. Контексты подсистем наследуют отмену root.
func New(root context.Context) *Manager {
	if root == nil {
		root = context.Background()
	}
	return &Manager{root: root, units: make(map[string]*unit)}
}

// Register добавляет подсистему. deps должны быть запущены раньше неё;
// регистрировать их можно и позже, проверка выполняется в StartAll.
func (m *Manager) Register(name string, deps []string, start StartFunc, stop StopFunc) error {
	if name == "" {
		return errors.New("lifecycle: empty unit name")
	}
	if slices.Contains(deps, name) {
		return fmt.Errorf("lifecycle: unit %q cannot depend on itself", name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.units[name]; ok {
		return fmt.Errorf("lifecycle: unit %q already registered", name)
	}
	m.units[name] = &unit{name: name, deps: slices.Compact(slices.Clone(deps)), start: start, stop: stop}
	m.order = append(m.order, name)
	return nil
}

// StartAll запускает подсистемы в порядке регистрации, поднимая зависимости первыми.
// Останавливается на первой ошибке; уже запущенное гасится через Shutdown.
func (m *Manager) StartAll() error {
	m.mu.Lock()
	names := slices.Clone(m.order)
	m.mu.Unlock()

	for _, name := range names {
		if err := m.startUnit(name); err != nil {
			return err
		}
	}
	logger.Debug("lifecycle started", zap.Strings("order", m.Started()))
	return nil
}

func (m *Manager) startUnit(name string) error {
	m.mu.Lock()
	u, ok := m.units[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("lifecycle: unit %q is not registered", name)
	}
	switch u.status {
	case statusRunning:
		m.mu.Unlock()
		return nil
	case statusStarting:
		m.mu.Unlock()
		return fmt.Errorf("lifecycle: dependency cycle at %q", name)
	case statusFailed, statusStopped:
		m.mu.Unlock()
		return fmt.Errorf("lifecycle: unit %q cannot be restarted", name)
	}
	u.status = statusStarting
	m.mu.Unlock()

	for _, dep := range u.deps {
		if err := m.startUnit(dep); err != nil {
			m.setStatus(u, statusFailed)
			return fmt.Errorf("lifecycle: %s: %w", name, err)
		}
	}

	ctx, cancel := context.WithCancel(m.root)
	if u.start != nil {
		if err := u.start(ctx); err != nil {
			cancel()
			m.setStatus(u, statusFailed)
			logger.Error("unit failed to start", zap.String("unit", name), zap.Error(err))
			return fmt.Errorf("lifecycle: start %s: %w", name, err)
		}
	}

	m.mu.Lock()
	u.cancel = cancel
	u.status = statusRunning
	m.started = append(m.started, name)
	m.mu.Unlock()
	logger.Debug("unit started", zap.String("unit", name))
	return nil
}

// Shutdown останавливает запущенные подсистемы в порядке, обратном запуску.
// Ошибки всех StopFunc объединяются.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	order := slices.Clone(m.started)
	m.mu.Unlock()

	var errs error
	for _, name := range slices.Backward(order) {
		if err := m.stopUnit(ctx, name); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}

func (m *Manager) stopUnit(ctx context.Context, name string) error {
	m.mu.Lock()
	u := m.units[name]
	if u == nil || u.status != statusRunning {
		m.mu.Unlock()
		return nil
	}
	cancel, stop := u.cancel, u.stop
	m.mu.Unlock()

	cancel()
	var err error
	if stop != nil {
		err = stop(ctx)
	}
	if err != nil {
		m.setStatus(u, statusFailed)
		logger.Error("unit stopped with error", zap.String("unit", name), zap.Error(err))
		return fmt.Errorf("lifecycle: stop %s: %w", name, err)
	}
	m.setStatus(u, statusStopped)
	logger.Debug("unit stopped", zap.String("unit", name))
	return nil
}

// Started возвращает подсистемы в порядке запуска.
func (m *Manager) Started() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.started)
}

func (m *Manager) setStatus(u *unit, s unitStatus) {
	m.mu.Lock()
	u.status = s
	m.mu.Unlock()
}
