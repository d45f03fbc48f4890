package images

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"el-estate-bot/internal/infra/logger"
	"el-estate-bot/internal/infra/storage"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Параметры фоновой уборки брошенных каталогов.
const (
	JanitorSpec  = "@every 15m"
	WorkspaceTTL = time.Hour
)

// Workspaces выдаёт временные каталоги под запросы вида <root>/<uid>_<unix>.
type Workspaces struct {
	root string
	now  func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// NewWorkspaces создаёт менеджер каталогов в root.
func NewWorkspaces(root string) *Workspaces {
	return &Workspaces{root: root, now: time.Now}
}

// Create создаёт каталог для запроса пользователя uid.
// При совпадении имени (два запроса в одну секунду) добавляется случайный суффикс.
func (w *Workspaces) Create(uid int64) (string, error) {
	if err := os.MkdirAll(w.root, storage.DefaultDirPerm); err != nil {
		return "", errors.Wrap(err, "create images root")
	}
	name := fmt.Sprintf("%d_%d", uid, w.now().Unix())
	dir := filepath.Join(w.root, name)
	err := os.Mkdir(dir, storage.DefaultDirPerm)
	if errors.Is(err, os.ErrExist) {
		dir = filepath.Join(w.root, name+"_"+uuid.NewString()[:8])
		err = os.Mkdir(dir, storage.DefaultDirPerm)
	}
	if err != nil {
		return "", errors.Wrap(err, "create workspace")
	}
	return dir, nil
}

// Remove удаляет каталог запроса. Ошибки только логируются.
func (w *Workspaces) Remove(dir string) {
	if dir == "" {
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		logger.Warn("remove workspace failed", zap.String("dir", dir), zap.Error(err))
	}
}

// Sweep удаляет каталоги старше maxAge, оставшиеся после аварийных завершений.
// Возвращает число удалённых каталогов.
func (w *Workspaces) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(w.root)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "read images root")
	}
	cutoff := w.now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(w.root, e.Name())); err != nil {
			logger.Warn("sweep workspace failed", zap.String("dir", e.Name()), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

// Start запускает периодическую уборку по расписанию JanitorSpec. Повторный вызов игнорируется.
func (w *Workspaces) Start(_ context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cron != nil {
		return nil
	}
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	if _, err := c.AddFunc(JanitorSpec, func() {
		n, err := w.Sweep(WorkspaceTTL)
		if err != nil {
			logger.Warn("workspace janitor failed", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Info("workspace janitor removed stale dirs", zap.Int("count", n))
		}
	}); err != nil {
		return errors.Wrap(err, "schedule janitor")
	}
	c.Start()
	w.cron = c
	return nil
}

// Stop останавливает уборку и дожидается текущего прохода.
func (w *Workspaces) Stop() {
	w.mu.Lock()
	c := w.cron
	w.cron = nil
	w.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
}
