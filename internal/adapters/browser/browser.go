// Package browser открывает страницы объявлений в headless Chrome через chromedp и
// достаёт из галереи адреса фотографий. Браузер может быть удалённым (SELENIUM_URL
// указывает на DevTools endpoint) или локальным процессом.
package browser

import (
	"context"
	"net/http"
	"strings"
	"time"

	"el-estate-bot/internal/domain/listing"
	"el-estate-bot/internal/infra/logger"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// Параметры мобильной эмуляции: галереи OLX/Otodom в мобильной вёрстке проще.
const (
	viewportWidth  = 412
	viewportHeight = 915
	deviceScale    = 2.625

	// MobileUserAgent — агент Android-смартфона.
	MobileUserAgent = "Mozilla/5.0 (Linux; Android 10; SM-G975F) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Mobile Safari/537.36"

	cookieConsentXPath = `//div[contains(text(),'Прийняти всі')]`
	cookieWait         = 5 * time.Second
	galleryWait        = 10 * time.Second
	checkTimeout       = 1500 * time.Millisecond
	defaultNavTimeout  = 45 * time.Second
)

// Config управляет браузером.
type Config struct {
	// RemoteURL — http(s):// или ws(s):// адрес DevTools. Пусто — локальный Chrome.
	RemoteURL         string
	MaxParallel       int
	NavigationTimeout time.Duration
	UserAgent         string
}

// Scraper реализует получение адресов фото через chromedp.
type Scraper struct {
	cfg         Config
	slots       chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
	checkClient *http.Client
}

// New создаёт Scraper. Сам браузер запускается лениво, при первом Scrape.
func New(cfg Config) (*Scraper, error) {
	if cfg.MaxParallel < 0 {
		return nil, errors.New("browser max parallel must be >= 0")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = MobileUserAgent
	}
	cfg.RemoteURL = strings.TrimRight(strings.TrimSpace(cfg.RemoteURL), "/")

	var slots chan struct{}
	if cfg.MaxParallel > 0 {
		slots = make(chan struct{}, cfg.MaxParallel)
	}

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if cfg.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", "new"),
			chromedp.NoSandbox,
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.DisableGPU,
			chromedp.WindowSize(viewportWidth, viewportHeight),
			chromedp.UserAgent(cfg.UserAgent),
		)
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}

	return &Scraper{
		cfg:         cfg,
		slots:       slots,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		checkClient: &http.Client{Timeout: checkTimeout},
	}, nil
}

// Close освобождает аллокатор (и локальный процесс Chrome, если он был запущен).
func (s *Scraper) Close() {
	s.allocCancel()
}

// Scrape открывает объявление и возвращает нормализованные адреса фото.
// Отсутствие галереи не ошибка: возвращается пустой список.
func (s *Scraper) Scrape(ctx context.Context, l listing.Listing) ([]string, error) {
	selector, ok := gallerySelectors[l.Site]
	if !ok {
		return nil, errors.Wrap(listing.ErrUnsupportedSite, string(l.Site))
	}
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	tabCtx, tabCancel := chromedp.NewContext(s.allocator)
	defer tabCancel()
	// Отмена внешнего ctx должна закрывать вкладку.
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	navCtx, cancel := context.WithTimeout(tabCtx, s.cfg.NavigationTimeout)
	defer cancel()

	if err := chromedp.Run(navCtx, s.emulateMobile(), chromedp.Navigate(l.URL)); err != nil {
		return nil, errors.Wrap(err, "open listing")
	}
	s.dismissCookies(navCtx)

	html, err := s.galleryHTML(navCtx, selector)
	if err != nil {
		logger.Info("gallery not found",
			zap.String("site", string(l.Site)), zap.String("url", l.URL), zap.Error(err))
		return nil, nil
	}
	srcs, err := ExtractImageURLs(l.Site, html)
	if err != nil {
		return nil, err
	}
	return listing.NormalizeImageURLs(l.Site, srcs), nil
}

func (s *Scraper) emulateMobile() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := emulation.SetDeviceMetricsOverride(viewportWidth, viewportHeight, deviceScale, true).Do(ctx); err != nil {
			return errors.Wrap(err, "set device metrics")
		}
		if err := emulation.SetUserAgentOverride(s.cfg.UserAgent).Do(ctx); err != nil {
			return errors.Wrap(err, "set user-agent")
		}
		return nil
	})
}

// dismissCookies пытается нажать «Прийняти всі». Отсутствие баннера не ошибка.
func (s *Scraper) dismissCookies(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, cookieWait)
	defer cancel()
	if err := chromedp.Run(cctx, chromedp.Click(cookieConsentXPath, chromedp.BySearch, chromedp.NodeVisible)); err != nil {
		logger.Debug("cookie banner not dismissed", zap.Error(err))
	}
}

// galleryHTML ждёт появления галереи и возвращает HTML документа.
func (s *Scraper) galleryHTML(ctx context.Context, selector string) (string, error) {
	wctx, cancel := context.WithTimeout(ctx, galleryWait)
	defer cancel()
	var html string
	err := chromedp.Run(wctx,
		chromedp.WaitReady(selector, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, err
}

func (s *Scraper) acquire(ctx context.Context) error {
	if s.slots == nil {
		return nil
	}
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "browser slot wait canceled")
	}
}

func (s *Scraper) release() {
	if s.slots == nil {
		return
	}
	select {
	case <-s.slots:
	default:
	}
}

// Alive проверяет доступность удалённого браузера запросом <RemoteURL>/json/version.
// Без удалённого браузера проверять нечего — возвращает true.
func (s *Scraper) Alive(ctx context.Context) bool {
	return EndpointAlive(ctx, s.checkClient, s.cfg.RemoteURL)
}

// EndpointAlive — проверка DevTools endpoint; вынесена для переиспользования health-сервером.
func EndpointAlive(ctx context.Context, client *http.Client, remoteURL string) bool {
	if remoteURL == "" {
		return true
	}
	if client == nil {
		client = &http.Client{Timeout: checkTimeout}
	}
	base := remoteURL
	switch {
	case strings.HasPrefix(base, "ws://"):
		base = "http://" + strings.TrimPrefix(base, "ws://")
	case strings.HasPrefix(base, "wss://"):
		base = "https://" + strings.TrimPrefix(base, "wss://")
	}
	// ws-адрес вида ws://host:9222/devtools/browser/<id> — проверяем корень хоста.
	if i := strings.Index(base, "/devtools/"); i >= 0 {
		base = base[:i]
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+"/json/version", nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
