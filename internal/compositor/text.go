package compositor

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/ivlev/text2video/internal/config"
)

// GlyphOp описывает один глиф, подготовленный машиной состояний к отрисовке:
// позиция уже включает смещение анимации, прозрачность несет вес сэмпла
// motion blur.
type GlyphOp struct {
	Glyph   rune
	X, Y    float64 // базовая линия
	Color   color.NRGBA
	Opacity float64
}

// FrameParams описывает все слои одного кадра в порядке композиции.
type FrameParams struct {
	FirstFrame bool

	MotionBlur float64
	ShakeX     float64
	ShakeY     float64

	Chroma     float64
	DropShadow float64
	Blur       float64

	Ops []GlyphOp

	Cursor *GlyphOp // nil = курсор в этом кадре не рисуется

	Watermark *image.RGBA // QR-водяной знак, nil = выключен
}

// цвет хромакея, при котором screen-режим заменяется на обычное наложение
var chromaKeyGreen = color.NRGBA{R: 0, G: 255, B: 0, A: 255}

// ComposeFrame собирает кадр в строгом порядке: фон -> история ->
// хроматическая аберрация -> тень/размытие -> основной текст -> курсор ->
// водяной знак -> снимок истории.
func (c *Canvas) ComposeFrame(cfg *config.Config, face font.Face, p FrameParams) {
	// (a) фон: заливка или прозрачность
	if cfg.Transparent {
		c.Clear()
	} else {
		c.Fill(cfg.BackgroundColor)
	}

	// (b) след от прошлого кадра
	if p.MotionBlur > 0 && !p.FirstFrame {
		c.BlendHistory(p.MotionBlur)
	}

	// Слой текста рисуется отдельно, чтобы тряска, аберрация и размытие
	// применялись ко всему слою целиком.
	clearRGBA(c.textLayer)
	for _, op := range p.Ops {
		drawGlyph(c.textLayer, face, op)
	}

	shakeX := int(math.Round(p.ShakeX))
	shakeY := int(math.Round(p.ShakeY))

	// (d) хроматическая аберрация: красная копия слева, синяя справа.
	// На хромакейном фоне screen уничтожил бы ключевой цвет.
	if p.Chroma > 0 {
		off := int(math.Round(p.Chroma))
		if cfg.BackgroundColor == chromaKeyGreen && !cfg.Transparent {
			blendOverMasked(c.Frame, c.textLayer, shakeX-off, shakeY, true, false, false)
			blendOverMasked(c.Frame, c.textLayer, shakeX+off, shakeY, false, false, true)
		} else {
			blendScreen(c.Frame, c.textLayer, shakeX-off, shakeY, true, false, false)
			blendScreen(c.Frame, c.textLayer, shakeX+off, shakeY, false, false, true)
		}
	}

	// (e) тень: размытая копия слоя, цвет зависит от яркости текста
	if p.DropShadow > 0 {
		shadow := c.scratch
		colorizeAlpha(shadow, c.textLayer, shadowColor(cfg.TextColor))
		boxBlur(shadow, c.scratch2, int(math.Round(p.DropShadow)))
		blendOver(c.Frame, shadow, shakeX, shakeY+int(math.Round(p.DropShadow/2))+1, 1)
	}

	// статическое размытие всего текстового слоя
	if p.Blur > 0 {
		boxBlur(c.textLayer, c.scratch, int(math.Round(p.Blur)))
	}

	// основной слой текста со смещением тряски
	blendOver(c.Frame, c.textLayer, shakeX, shakeY, 1)

	// (f) мигающий курсор за последним видимым символом
	if p.Cursor != nil {
		cur := *p.Cursor
		cur.X += float64(shakeX)
		cur.Y += float64(shakeY)
		drawGlyph(c.Frame, face, cur)
	}

	if p.Watermark != nil {
		c.drawWatermark(p.Watermark)
	}

	// (g) снимок кадра в историю для следующей итерации
	if p.MotionBlur > 0 {
		c.Snapshot()
	}
}

// drawGlyph рисует один глиф с масштабированной по прозрачности альфой.
func drawGlyph(dst *image.RGBA, face font.Face, op GlyphOp) {
	if op.Opacity <= 0 {
		return
	}
	a := op.Opacity
	if a > 1 {
		a = 1
	}
	col := op.Color
	col.A = uint8(float64(col.A) * a)

	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.Int26_6(math.Round(op.X * 64)),
			Y: fixed.Int26_6(math.Round(op.Y * 64)),
		},
	}
	d.DrawString(string(op.Glyph))
}

// colorizeAlpha переносит альфа-канал src в dst с заданным цветом
// (заготовка тени).
func colorizeAlpha(dst, src *image.RGBA, col color.NRGBA) {
	for i := 0; i+3 < len(src.Pix); i += 4 {
		a := uint32(src.Pix[i+3]) * uint32(col.A) / 255
		dst.Pix[i] = uint8(uint32(col.R) * a / 255)
		dst.Pix[i+1] = uint8(uint32(col.G) * a / 255)
		dst.Pix[i+2] = uint8(uint32(col.B) * a / 255)
		dst.Pix[i+3] = uint8(a)
	}
}

// shadowColor выбирает цвет тени по яркости текста: светлому тексту
// темная тень, темному светлая, иначе тень сольется с текстом.
func shadowColor(text color.NRGBA) color.NRGBA {
	luma := 0.2126*float64(text.R) + 0.7152*float64(text.G) + 0.0722*float64(text.B)
	if luma > 128 {
		return color.NRGBA{R: 0, G: 0, B: 0, A: 200}
	}
	return color.NRGBA{R: 255, G: 255, B: 255, A: 200}
}

// drawWatermark кладет QR-знак в правый нижний угол с небольшим отступом.
func (c *Canvas) drawWatermark(wm *image.RGBA) {
	const margin = 16
	dx := c.W - wm.Bounds().Dx() - margin
	dy := c.H - wm.Bounds().Dy() - margin
	blendOver(c.Frame, wm, dx, dy, 0.85)
}
