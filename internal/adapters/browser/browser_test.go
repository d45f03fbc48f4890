package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"el-estate-bot/internal/domain/listing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const otodomPage = `<html><body>
<div data-testid="carousel-container">
  <img src="https://ireland.apollo.olxcdn.com/v1/files/a/image;s=1280x1024">
  <img src="https://ireland.apollo.olxcdn.com/v1/files/a/image;s=640x480">
  <img data-src="https://ireland.apollo.olxcdn.com/v1/files/b/image;s=1280x1024" src="data:image/gif;base64,AAAA">
</div>
<img src="https://ireland.apollo.olxcdn.com/v1/files/logo.png">
</body></html>`

const olxPage = `<html><body>
<div class="swiper-wrapper">
  <div class="swiper-slide"><img src="https://cdn.olx/1.jpg"><img src="https://cdn.olx/1-thumb.jpg"></div>
  <div class="swiper-slide"><img src="https://cdn.olx/2.jpg"></div>
  <div class="swiper-slide"><span>video</span></div>
</div></body></html>`

func TestExtractImageURLs(t *testing.T) {
	t.Parallel()

	got, err := ExtractImageURLs(listing.SiteOtodom, otodomPage)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://ireland.apollo.olxcdn.com/v1/files/a/image;s=1280x1024",
		"https://ireland.apollo.olxcdn.com/v1/files/a/image;s=640x480",
		"https://ireland.apollo.olxcdn.com/v1/files/b/image;s=1280x1024",
	}, got)
	assert.Equal(t, []string{
		"https://ireland.apollo.olxcdn.com/v1/files/a/image;",
		"https://ireland.apollo.olxcdn.com/v1/files/b/image;",
	}, listing.NormalizeImageURLs(listing.SiteOtodom, got))

	got, err = ExtractImageURLs(listing.SiteOLX, olxPage)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.olx/1.jpg", "https://cdn.olx/2.jpg"}, got)

	_, err = ExtractImageURLs(listing.Site("avito"), olxPage)
	assert.ErrorIs(t, err, listing.ErrUnsupportedSite)
}

func TestExtractNoGallery(t *testing.T) {
	t.Parallel()
	got, err := ExtractImageURLs(listing.SiteOLX, "<html><body><p>Оголошення видалено</p></body></html>")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEndpointAlive(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/version" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	ctx := context.Background()
	assert.True(t, EndpointAlive(ctx, nil, ""))
	assert.True(t, EndpointAlive(ctx, srv.Client(), srv.URL))

	wsURL := "ws://" + srv.Listener.Addr().String() + "/devtools/browser/abc"
	assert.True(t, EndpointAlive(ctx, srv.Client(), wsURL))

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(down.Close)
	assert.False(t, EndpointAlive(ctx, down.Client(), down.URL))
	assert.False(t, EndpointAlive(ctx, &http.Client{Timeout: 200 * time.Millisecond}, "http://127.0.0.1:1"))
}

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()

	_, err := New(Config{MaxParallel: -1})
	assert.Error(t, err)

	s, err := New(Config{RemoteURL: "http://chrome:9222/", MaxParallel: 2})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	assert.Equal(t, "http://chrome:9222", s.cfg.RemoteURL)
	assert.Equal(t, 2, cap(s.slots))
	assert.Equal(t, defaultNavTimeout, s.cfg.NavigationTimeout)
	assert.Equal(t, MobileUserAgent, s.cfg.UserAgent)
}

func TestScrapeRejectsUnknownSite(t *testing.T) {
	t.Parallel()
	s, err := New(Config{RemoteURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	t.Cleanup(s.Close)

	_, err = s.Scrape(context.Background(), listing.Listing{URL: "https://x", Site: "x"})
	assert.ErrorIs(t, err, listing.ErrUnsupportedSite)
}

func TestSlotsRespectContext(t *testing.T) {
	t.Parallel()
	s := &Scraper{slots: make(chan struct{}, 1)}
	require.NoError(t, s.acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.acquire(ctx), context.DeadlineExceeded)
	s.release()
	require.NoError(t, s.acquire(context.Background()))
}
