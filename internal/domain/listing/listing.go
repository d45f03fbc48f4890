// Package listing распознаёт ссылки на объявления и нормализует найденные на странице
// адреса фотографий.
package listing

import (
	"net/url"
	"strings"

	"github.com/go-faster/errors"
)

// Site — поддерживаемая площадка.
type Site string

// Поддерживаемые площадки.
const (
	SiteOLX    Site = "olx"
	SiteOtodom Site = "otodom"
)

var (
	// ErrInvalidURL — текст не является http(s)-ссылкой.
	ErrInvalidURL = errors.New("invalid listing url")
	// ErrUnsupportedSite — ссылка ведёт не на OLX и не на Otodom.
	ErrUnsupportedSite = errors.New("unsupported listing site")
)

// Listing — распознанная ссылка на объявление.
type Listing struct {
	URL  string
	Site Site
}

// Parse проверяет ссылку и определяет площадку по хосту.
// olx.ua, www.olx.pl, m.olx.ua → OLX; otodom.pl и его поддомены → Otodom.
func Parse(text string) (Listing, error) {
	raw := strings.TrimSpace(text)
	if fields := strings.Fields(raw); len(fields) > 0 {
		raw = fields[0]
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Listing{}, ErrInvalidURL
	}
	site, ok := siteOf(u.Hostname())
	if !ok {
		return Listing{}, errors.Wrap(ErrUnsupportedSite, u.Hostname())
	}
	return Listing{URL: u.String(), Site: site}, nil
}

func siteOf(host string) (Site, bool) {
	for _, label := range strings.Split(strings.ToLower(host), ".") {
		switch label {
		case "olx":
			return SiteOLX, true
		case "otodom":
			return SiteOtodom, true
		}
	}
	return "", false
}

// otodomImageMarker отделяет базовый адрес фото Otodom от параметров размера.
const otodomImageMarker = "/image;"

// NormalizeImageURLs приводит адреса фото к виду для скачивания: у Otodom
// отрезаются параметры размера (".../image;s=1280x1024" → ".../image;"), пустые
// и data:-адреса выбрасываются, повторы удаляются с сохранением порядка.
func NormalizeImageURLs(site Site, srcs []string) []string {
	seen := make(map[string]struct{}, len(srcs))
	out := make([]string, 0, len(srcs))
	for _, src := range srcs {
		src = strings.TrimSpace(src)
		if src == "" || strings.HasPrefix(src, "data:") {
			continue
		}
		if site == SiteOtodom {
			if i := strings.Index(src, otodomImageMarker); i >= 0 {
				src = src[:i] + otodomImageMarker
			}
		}
		if _, dup := seen[src]; dup {
			continue
		}
		seen[src] = struct{}{}
		out = append(out, src)
	}
	return out
}
