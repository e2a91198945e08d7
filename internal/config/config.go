package config

import (
	"fmt"
	"image/color"
)

// Стили анимации появления символов
const (
	StyleDefault    = "default"
	StyleTypewriter = "typewriter"
	StyleGlitch     = "glitch"
)

// Стили курсора
const (
	CursorLine       = "line"
	CursorBlock      = "block"
	CursorUnderscore = "underscore"
)

type Config struct {
	Text         string
	TimelinePath string
	OutputVideo  string

	Width  int
	Height int
	FPS    int

	CharsPerSecond float64
	RevealFrames   int
	RevealOffsetPx float64
	EndHold        float64 // секунды удержания после полного появления текста

	AnimationStyle string
	Jitter         float64
	MotionBlur     float64 // [0,1), 0 = выключен
	Blur           float64 // радиус статического размытия
	DropShadow     float64 // радиус тени, 0 = выключена
	Chroma         float64 // смещение хроматической аберрации в пикселях

	GlitchCharset string // symbols, letters, numbers, mixed
	GlitchSpeed   float64

	ShowCursor  bool
	CursorStyle string
	CursorSpeed float64

	TextAlign  string // left, center, right
	FontFamily string
	FontSize   float64 // 0 = автоподбор под холст

	TextColor       color.NRGBA
	BackgroundColor color.NRGBA
	Transparent     bool // прозрачный фон вместо заливки

	SafeZonePx int // отступ safe-zone для финального экспорта

	QRLink string // если не пусто, в углу рисуется QR-водяной знак

	// Параметры, унаследованные из общего пайплайна
	TotalDuration float64 // для таймлайна: полная длительность (обычно из аудио)
	AudioPath     string
	VideoEncoder  string
	Quality       int
	ShowStats     bool
	BuildVersion  string
}

// Validate проверяет обязательные числовые поля и выставляет дефолты
// для необязательных. Некорректные fps/charsPerSecond считаем ошибкой вызывающего,
// а не поводом молча подставить дефолт.
func (c *Config) Validate() error {
	if c.FPS <= 0 {
		return fmt.Errorf("fps должен быть > 0, получено %d", c.FPS)
	}
	if c.CharsPerSecond <= 0 {
		return fmt.Errorf("chars-per-second должен быть > 0, получено %f", c.CharsPerSecond)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("размер холста %dx%d некорректен", c.Width, c.Height)
	}
	if c.RevealFrames < 1 {
		c.RevealFrames = 1
	}
	if c.MotionBlur < 0 {
		c.MotionBlur = 0
	}
	if c.MotionBlur >= 1 {
		c.MotionBlur = 0.99
	}
	if c.AnimationStyle == "" {
		c.AnimationStyle = StyleDefault
	}
	switch c.AnimationStyle {
	case StyleDefault, StyleTypewriter, StyleGlitch:
	default:
		return fmt.Errorf("неизвестный стиль анимации: %s", c.AnimationStyle)
	}
	if c.GlitchSpeed <= 0 {
		c.GlitchSpeed = 1.0
	}
	if c.GlitchCharset == "" {
		c.GlitchCharset = "symbols"
	}
	if c.CursorSpeed <= 0 {
		c.CursorSpeed = 1.0
	}
	if c.CursorStyle == "" {
		c.CursorStyle = CursorLine
	}
	if c.TextAlign == "" {
		c.TextAlign = "center"
	}
	if c.SafeZonePx < 0 {
		c.SafeZonePx = 0
	}
	return nil
}

// CanvasWidth возвращает ширину холста с учетом safe-zone.
func (c *Config) CanvasWidth() int { return c.Width + 2*c.SafeZonePx }

// CanvasHeight возвращает высоту холста с учетом safe-zone.
func (c *Config) CanvasHeight() int { return c.Height + 2*c.SafeZonePx }
