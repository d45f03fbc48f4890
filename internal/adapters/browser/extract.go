package browser

import (
	"strings"

	"el-estate-bot/internal/domain/listing"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-faster/errors"
)

// gallerySelectors — CSS-селекторы галереи по площадкам.
var gallerySelectors = map[listing.Site]string{
	listing.SiteOtodom: "[data-testid='carousel-container']",
	listing.SiteOLX:    ".swiper-slide",
}

// ExtractImageURLs достаёт src картинок галереи из HTML страницы.
// Otodom: все img внутри карусели. OLX: первая img каждого слайда.
// Порядок соответствует порядку в документе; нормализация — отдельным шагом.
func ExtractImageURLs(site listing.Site, html string) ([]string, error) {
	selector, ok := gallerySelectors[site]
	if !ok {
		return nil, errors.Wrap(listing.ErrUnsupportedSite, string(site))
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, errors.Wrap(err, "parse page")
	}

	var out []string
	doc.Find(selector).Each(func(_ int, node *goquery.Selection) {
		imgs := node.Find("img")
		if site == listing.SiteOLX {
			imgs = imgs.First()
		}
		imgs.Each(func(_ int, img *goquery.Selection) {
			if src := imageSource(img); src != "" {
				out = append(out, src)
			}
		})
	})
	return out, nil
}

// imageSource берёт src, а для ленивых картинок — data-src.
func imageSource(img *goquery.Selection) string {
	for _, attr := range []string{"src", "data-src"} {
		if v, ok := img.Attr(attr); ok {
			v = strings.TrimSpace(v)
			if v != "" && !strings.HasPrefix(v, "data:") {
				return v
			}
		}
	}
	return ""
}
