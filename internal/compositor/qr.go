package compositor

import (
	"image"
	"image/draw"

	qrcode "github.com/skip2/go-qrcode"
)

// NewQRWatermark генерирует QR-код для ссылки, который компоновщик кладет
// в угол каждого кадра. Размер подбирается от высоты холста, но не меньше
// читаемого минимума.
func NewQRWatermark(link string, canvasH int) (*image.RGBA, error) {
	size := canvasH / 8
	if size < 64 {
		size = 64
	}

	qr, err := qrcode.New(link, qrcode.Medium)
	if err != nil {
		return nil, err
	}

	src := qr.Image(size)
	rgba := image.NewRGBA(src.Bounds())
	draw.Draw(rgba, src.Bounds(), src, src.Bounds().Min, draw.Src)
	return rgba, nil
}
