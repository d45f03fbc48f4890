// Package images скачивает фотографии объявления, срезает нижнюю полосу
// (там площадки ставят водяной знак) и складывает результат во временный каталог.
package images

import (
	"bytes"
	"image"
	"image/jpeg"
	"io"

	// Форматы, которые встречаются на CDN площадок.
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/go-faster/errors"
	"golang.org/x/image/draw"
)

// jpegQuality — качество итоговых файлов.
const jpegQuality = 90

// Crop оставляет верхние (100-percent)% строк изображения.
// percent ограничивается диапазоном [0, 99]; высота результата не меньше одной строки.
func Crop(src image.Image, percent int) image.Image {
	percent = max(0, min(percent, 99))
	b := src.Bounds()
	if percent == 0 || b.Dy() <= 1 {
		return src
	}
	h := max(b.Dy()*(100-percent)/100, 1)
	rect := image.Rect(0, 0, b.Dx(), h)
	dst := image.NewRGBA(rect)
	draw.Copy(dst, image.Point{}, src, image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+h), draw.Src, nil)
	return dst
}

// Process декодирует картинку любого поддерживаемого формата, обрезает её и
// кодирует в JPEG.
func Process(r io.Reader, percent int) ([]byte, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "decode image")
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Crop(img, percent), &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, errors.Wrap(err, "encode jpeg")
	}
	return buf.Bytes(), nil
}
