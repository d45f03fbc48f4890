package images

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"el-estate-bot/internal/infra/logger"
	"el-estate-bot/internal/infra/storage"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	// maxImageBytes ограничивает размер одного скачиваемого файла.
	maxImageBytes = 25 << 20
	// defaultWorkers — число одновременных скачиваний.
	defaultWorkers = 8
	// downloadTimeout — таймаут одного запроса.
	downloadTimeout = 30 * time.Second
	// userAgent совпадает с мобильным агентом браузера, которым открывалась страница.
	userAgent = "Mozilla/5.0 (Linux; Android 10; SM-G975F) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Mobile Safari/537.36"
)

// Pipeline скачивает и обрабатывает фото. Скорость запросов ограничена токен-бакетом,
// общим для всех пользователей.
type Pipeline struct {
	client  *http.Client
	limiter *rate.Limiter
	workers int
}

// NewPipeline создаёт конвейер с лимитом rps запросов в секунду. Nil client — клиент
// с таймаутом downloadTimeout.
func NewPipeline(client *http.Client, rps int) *Pipeline {
	if client == nil {
		client = &http.Client{Timeout: downloadTimeout}
	}
	if rps <= 0 {
		rps = 1
	}
	return &Pipeline{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		workers: defaultWorkers,
	}
}

// Run скачивает urls, обрезает на crop процентов и пишет файлы image_<n>.jpg в dir.
// Неудачные фото (не 200, не картинка) пропускаются. Возвращает пути в порядке urls.
// Ошибка возвращается только при отмене ctx.
func (p *Pipeline) Run(ctx context.Context, urls []string, dir string, crop int) ([]string, error) {
	results := make([]string, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, u := range urls {
		g.Go(func() error {
			if err := p.limiter.Wait(gctx); err != nil {
				return err
			}
			data, err := p.fetch(gctx, u, crop)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Debug("skip image", zap.String("url", u), zap.Error(err))
				return nil
			}
			path := filepath.Join(dir, fmt.Sprintf("image_%d.jpg", i+1))
			if err := storage.AtomicWriteFile(path, data); err != nil {
				logger.Warn("write image failed", zap.String("path", path), zap.Error(err))
				return nil
			}
			results[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "download images")
	}

	out := make([]string, 0, len(results))
	for _, path := range results {
		if path != "" {
			out = append(out, path)
		}
	}
	return out, nil
}

func (p *Pipeline) fetch(ctx context.Context, url string, crop int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status %d", resp.StatusCode)
	}
	return Process(io.LimitReader(resp.Body, maxImageBytes), crop)
}
