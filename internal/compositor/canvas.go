package compositor

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/ivlev/text2video/internal/system"
)

// Canvas владеет всеми растровыми буферами одного рендера: текущий кадр,
// кадр-история для motion blur и scratch-слой текста. Буферы берутся из
// общего пула и возвращаются в него в Release.
type Canvas struct {
	W, H    int
	Frame   *image.RGBA
	History *image.RGBA

	textLayer  *image.RGBA
	scratch    *image.RGBA
	scratch2   *image.RGBA
	hasHistory bool
}

func NewCanvas(w, h int) *Canvas {
	rect := image.Rect(0, 0, w, h)
	return &Canvas{
		W:         w,
		H:         h,
		Frame:     system.GetImage(rect),
		History:   system.GetImage(rect),
		textLayer: system.GetImage(rect),
		scratch:   system.GetImage(rect),
		scratch2:  system.GetImage(rect),
	}
}

// Release возвращает буферы в пул. После вызова Canvas использовать нельзя.
func (c *Canvas) Release() {
	system.PutImage(c.Frame)
	system.PutImage(c.History)
	system.PutImage(c.textLayer)
	system.PutImage(c.scratch)
	system.PutImage(c.scratch2)
	c.Frame, c.History, c.textLayer, c.scratch, c.scratch2 = nil, nil, nil, nil, nil
}

// Fill заливает кадр непрозрачным цветом.
func (c *Canvas) Fill(bg color.NRGBA) {
	draw.Draw(c.Frame, c.Frame.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
}

// Clear очищает кадр в полную прозрачность (экспорт с альфа-каналом).
func (c *Canvas) Clear() {
	clearRGBA(c.Frame)
}

func clearRGBA(img *image.RGBA) {
	pix := img.Pix
	for i := range pix {
		pix[i] = 0
	}
}

// BlendHistory подмешивает прошлый кадр с глобальной альфой: простое
// экспоненциальное затухание следа вместо честной интеграции по выдержке.
func (c *Canvas) BlendHistory(alpha float64) {
	if !c.hasHistory || alpha <= 0 {
		return
	}
	blendOver(c.Frame, c.History, 0, 0, alpha)
}

// Snapshot сохраняет текущий составленный кадр как историю для следующего.
func (c *Canvas) Snapshot() {
	copy(c.History.Pix, c.Frame.Pix)
	c.hasHistory = true
}

// Bytes отдает сырые RGBA-байты кадра (row-major, сверху вниз, stride = W*4).
func (c *Canvas) Bytes() []byte {
	return c.Frame.Pix
}

// blendOver накладывает src на dst со смещением и глобальной альфой
// (обычный source-over поверх премультиплицированных каналов).
func blendOver(dst, src *image.RGBA, dx, dy int, alpha float64) {
	if alpha <= 0 {
		return
	}
	if alpha > 1 {
		alpha = 1
	}
	ga := uint32(alpha * 255)

	b := dst.Bounds().Intersect(src.Bounds().Add(image.Pt(dx, dy)))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		di := dst.PixOffset(b.Min.X, y)
		si := src.PixOffset(b.Min.X-dx, y-dy)
		for x := b.Min.X; x < b.Max.X; x++ {
			sr := uint32(src.Pix[si]) * ga / 255
			sg := uint32(src.Pix[si+1]) * ga / 255
			sb := uint32(src.Pix[si+2]) * ga / 255
			sa := uint32(src.Pix[si+3]) * ga / 255

			inv := 255 - sa
			dst.Pix[di] = uint8(sr + uint32(dst.Pix[di])*inv/255)
			dst.Pix[di+1] = uint8(sg + uint32(dst.Pix[di+1])*inv/255)
			dst.Pix[di+2] = uint8(sb + uint32(dst.Pix[di+2])*inv/255)
			dst.Pix[di+3] = uint8(sa + uint32(dst.Pix[di+3])*inv/255)
			di += 4
			si += 4
		}
	}
}

// blendScreen накладывает src на dst в режиме screen, оставляя от src
// только каналы, разрешенные маской keepR/keepG/keepB (для хроматической
// аберрации нужны чисто красная и чисто синяя копии).
func blendScreen(dst, src *image.RGBA, dx, dy int, keepR, keepG, keepB bool) {
	b := dst.Bounds().Intersect(src.Bounds().Add(image.Pt(dx, dy)))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		di := dst.PixOffset(b.Min.X, y)
		si := src.PixOffset(b.Min.X-dx, y-dy)
		for x := b.Min.X; x < b.Max.X; x++ {
			var sr, sg, sb uint32
			if keepR {
				sr = uint32(src.Pix[si])
			}
			if keepG {
				sg = uint32(src.Pix[si+1])
			}
			if keepB {
				sb = uint32(src.Pix[si+2])
			}
			sa := uint32(src.Pix[si+3])

			dst.Pix[di] = screen8(uint32(dst.Pix[di]), sr)
			dst.Pix[di+1] = screen8(uint32(dst.Pix[di+1]), sg)
			dst.Pix[di+2] = screen8(uint32(dst.Pix[di+2]), sb)
			dst.Pix[di+3] = screen8(uint32(dst.Pix[di+3]), sa)
			di += 4
			si += 4
		}
	}
}

func screen8(a, b uint32) uint8 {
	return uint8(255 - (255-a)*(255-b)/255)
}

// blendOverMasked делает source-over с канальной маской, применяется вместо
// screen, когда фон хромакейный зеленый и screen бы его разрушил.
func blendOverMasked(dst, src *image.RGBA, dx, dy int, keepR, keepG, keepB bool) {
	b := dst.Bounds().Intersect(src.Bounds().Add(image.Pt(dx, dy)))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		di := dst.PixOffset(b.Min.X, y)
		si := src.PixOffset(b.Min.X-dx, y-dy)
		for x := b.Min.X; x < b.Max.X; x++ {
			var sr, sg, sb uint32
			if keepR {
				sr = uint32(src.Pix[si])
			}
			if keepG {
				sg = uint32(src.Pix[si+1])
			}
			if keepB {
				sb = uint32(src.Pix[si+2])
			}
			sa := uint32(src.Pix[si+3])

			inv := 255 - sa
			dst.Pix[di] = uint8(sr + uint32(dst.Pix[di])*inv/255)
			dst.Pix[di+1] = uint8(sg + uint32(dst.Pix[di+1])*inv/255)
			dst.Pix[di+2] = uint8(sb + uint32(dst.Pix[di+2])*inv/255)
			dst.Pix[di+3] = uint8(sa + uint32(dst.Pix[di+3])*inv/255)
			di += 4
			si += 4
		}
	}
}
