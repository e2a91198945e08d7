package compositor

import (
	"bytes"
	"image/color"
	"testing"

	"github.com/ivlev/text2video/internal/config"
	"github.com/ivlev/text2video/internal/layout"
)

func testConfig() *config.Config {
	return &config.Config{
		Width:           64,
		Height:          32,
		FPS:             30,
		CharsPerSecond:  10,
		TextColor:       color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		BackgroundColor: color.NRGBA{R: 10, G: 10, B: 30, A: 255},
	}
}

func TestFillAndBytes(t *testing.T) {
	c := NewCanvas(4, 2)
	defer c.Release()

	c.Fill(color.NRGBA{R: 1, G: 2, B: 3, A: 255})
	buf := c.Bytes()
	if len(buf) != 4*2*4 {
		t.Fatalf("expected %d bytes, got %d", 4*2*4, len(buf))
	}
	for i := 0; i < len(buf); i += 4 {
		if buf[i] != 1 || buf[i+1] != 2 || buf[i+2] != 3 || buf[i+3] != 255 {
			t.Fatalf("pixel %d wrong: %v", i/4, buf[i:i+4])
		}
	}

	c.Clear()
	for i, b := range c.Bytes() {
		if b != 0 {
			t.Fatalf("clear left non-zero byte at %d", i)
		}
	}
}

func TestSnapshotAndHistoryBlend(t *testing.T) {
	c := NewCanvas(2, 2)
	defer c.Release()

	// История не подмешивается, пока снимок не сделан.
	c.Fill(color.NRGBA{A: 255})
	c.BlendHistory(0.5)

	c.Fill(color.NRGBA{R: 200, A: 255})
	c.Snapshot()

	c.Fill(color.NRGBA{A: 255})
	c.BlendHistory(0.5)
	got := c.Bytes()[0]
	// 200 * 0.5 поверх черного
	if got < 90 || got > 110 {
		t.Errorf("expected ~100 red after half-alpha history blend, got %d", got)
	}
}

func TestComposeFrameDeterministic(t *testing.T) {
	cfg := testConfig()
	l, err := layout.Compute("ab", cfg)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	chars, err := layout.Flatten(l, cfg, nil)
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}
	face, err := layout.Face(cfg.FontFamily, l.FontSize)
	if err != nil {
		t.Fatalf("face: %v", err)
	}

	ops := make([]GlyphOp, 0, len(chars))
	for _, ch := range chars {
		ops = append(ops, GlyphOp{Glyph: ch.Char, X: ch.X, Y: ch.Y, Color: cfg.TextColor, Opacity: 1})
	}

	params := FrameParams{FirstFrame: true, Chroma: 2, DropShadow: 2, Ops: ops}

	render := func() []byte {
		c := NewCanvas(cfg.CanvasWidth(), cfg.CanvasHeight())
		defer c.Release()
		c.ComposeFrame(cfg, face, params)
		out := make([]byte, len(c.Bytes()))
		copy(out, c.Bytes())
		return out
	}

	f1 := render()
	f2 := render()
	if !bytes.Equal(f1, f2) {
		t.Error("identical compose inputs must produce byte-identical frames")
	}

	// Текст должен был что-то нарисовать поверх фона.
	bg := cfg.BackgroundColor
	changed := false
	for i := 0; i < len(f1); i += 4 {
		if f1[i] != bg.R || f1[i+1] != bg.G || f1[i+2] != bg.B {
			changed = true
			break
		}
	}
	if !changed {
		t.Error("composed frame is pure background, glyphs missing")
	}
}

func TestBoxBlurPreservesEnergyBounds(t *testing.T) {
	c := NewCanvas(16, 16)
	defer c.Release()

	// Одиночный белый пиксель в центре.
	c.Clear()
	idx := c.Frame.PixOffset(8, 8)
	c.Frame.Pix[idx] = 255
	c.Frame.Pix[idx+3] = 255

	boxBlur(c.Frame, c.scratch, 2)

	center := c.Frame.Pix[idx]
	if center == 0 || center == 255 {
		t.Errorf("blur should spread the pixel, center=%d", center)
	}
	neighbor := c.Frame.Pix[c.Frame.PixOffset(10, 8)]
	if neighbor == 0 {
		t.Error("blur should reach pixels inside the radius")
	}
	outside := c.Frame.Pix[c.Frame.PixOffset(14, 14)]
	if outside != 0 {
		t.Errorf("blur leaked outside the window: %d", outside)
	}
}

func TestShadowColorByBrightness(t *testing.T) {
	dark := shadowColor(color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	if dark.R != 0 {
		t.Errorf("bright text should cast a dark shadow, got %+v", dark)
	}
	light := shadowColor(color.NRGBA{R: 10, G: 10, B: 10, A: 255})
	if light.R != 255 {
		t.Errorf("dark text should cast a light shadow, got %+v", light)
	}
}

func TestNewQRWatermark(t *testing.T) {
	wm, err := NewQRWatermark("https://example.com", 720)
	if err != nil {
		t.Fatalf("NewQRWatermark failed: %v", err)
	}
	if wm.Bounds().Dx() < 64 {
		t.Errorf("QR watermark too small to scan: %d px", wm.Bounds().Dx())
	}
}
