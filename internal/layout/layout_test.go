package layout

import (
	"image"
	"image/color"
	"sync"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/ivlev/text2video/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Width:          640,
		Height:         360,
		FPS:            30,
		CharsPerSecond: 10,
		TextAlign:      "center",
	}
}

func TestExtractTextAndColors(t *testing.T) {
	clean, colors := ExtractTextAndColors("ab{#ff0000}cd{/}e")
	if clean != "abcde" {
		t.Errorf("expected clean text 'abcde', got %q", clean)
	}
	if len(colors) != 2 {
		t.Fatalf("expected 2 colored chars, got %d", len(colors))
	}
	for _, idx := range []int{2, 3} {
		c, ok := colors[idx]
		if !ok {
			t.Fatalf("index %d should be colored", idx)
		}
		if c.R != 0xff || c.G != 0 || c.B != 0 {
			t.Errorf("index %d: expected red, got %+v", idx, c)
		}
	}
	if _, ok := colors[4]; ok {
		t.Error("index 4 is after {/} and must not be colored")
	}
}

func TestExtractTextNoTags(t *testing.T) {
	clean, colors := ExtractTextAndColors("plain text")
	if clean != "plain text" {
		t.Errorf("text without tags must pass through, got %q", clean)
	}
	if len(colors) != 0 {
		t.Errorf("expected no colors, got %d", len(colors))
	}
}

func TestComputeFitsCanvas(t *testing.T) {
	cfg := testConfig()
	l, err := Compute("hello world, this is a longer line of text that wraps", cfg)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if l.BlockWidth > float64(cfg.Width)*0.9+0.5 {
		t.Errorf("block width %f exceeds usable canvas", l.BlockWidth)
	}
	if l.BlockHeight > float64(cfg.Height)*0.9+0.5 {
		t.Errorf("block height %f exceeds usable canvas", l.BlockHeight)
	}
	if len(l.Lines) < 2 {
		t.Errorf("expected wrapped lines, got %d", len(l.Lines))
	}
	t.Logf("fontSize=%.1f lines=%d block=%.0fx%.0f", l.FontSize, len(l.Lines), l.BlockWidth, l.BlockHeight)
}

func TestFlattenIndicesStable(t *testing.T) {
	cfg := testConfig()
	l, err := Compute("ab cd", cfg)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	chars, err := Flatten(l, cfg, nil)
	if err != nil {
		t.Fatalf("Flatten failed: %v", err)
	}

	prev := -1
	for _, c := range chars {
		if c.Index <= prev {
			t.Fatalf("indices not strictly increasing: %d after %d", c.Index, prev)
		}
		prev = c.Index
	}

	// Повторная раскладка дает те же индексы и позиции.
	again, err := Flatten(l, cfg, nil)
	if err != nil {
		t.Fatalf("Flatten failed: %v", err)
	}
	if len(again) != len(chars) {
		t.Fatalf("reflow changed char count: %d vs %d", len(again), len(chars))
	}
	for i := range chars {
		if chars[i] != again[i] {
			t.Errorf("char %d differs across identical reflows: %+v vs %+v", i, chars[i], again[i])
		}
	}
}

func TestFlattenColorOverride(t *testing.T) {
	cfg := testConfig()
	clean, colors := ExtractTextAndColors("a{#00ff00}b{/}")
	l, err := Compute(clean, cfg)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	chars, err := Flatten(l, cfg, colors)
	if err != nil {
		t.Fatalf("Flatten failed: %v", err)
	}
	if chars[0].Color != nil {
		t.Error("char 0 must use the default color")
	}
	if chars[1].Color == nil || chars[1].Color.G != 0xff {
		t.Errorf("char 1 must be green, got %+v", chars[1].Color)
	}
}

func TestFacePerCallInstances(t *testing.T) {
	f1, err := Face("regular", 24)
	if err != nil {
		t.Fatalf("Face failed: %v", err)
	}
	f2, err := Face("regular", 24)
	if err != nil {
		t.Fatalf("Face failed: %v", err)
	}
	// Face несет изменяемые буферы растеризатора, поэтому каждый
	// вызывающий получает собственный экземпляр.
	if f1 == f2 {
		t.Error("Face must not hand the same instance to two callers")
	}

	// Неизвестное семейство деградирует до встроенного.
	if _, err := Face("no-such-family", 24); err != nil {
		t.Errorf("unknown family should fall back, got error: %v", err)
	}
}

func TestFaceConcurrentDraw(t *testing.T) {
	const workers = 8
	errCh := make(chan error, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			face, err := Face("regular", 24)
			if err != nil {
				errCh <- err
				return
			}
			dst := image.NewRGBA(image.Rect(0, 0, 160, 48))
			d := font.Drawer{
				Dst:  dst,
				Src:  image.NewUniform(color.NRGBA{R: 255, G: 255, B: 255, A: 255}),
				Face: face,
			}
			for i := 0; i < 200; i++ {
				d.Dot = fixed.P(4, 32)
				d.DrawString("параллельный рендер")
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("Face failed: %v", err)
	}
}

func TestCursorPos(t *testing.T) {
	cfg := testConfig()
	l, err := Compute("abc", cfg)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	chars, err := Flatten(l, cfg, nil)
	if err != nil {
		t.Fatalf("Flatten failed: %v", err)
	}
	face, _ := Face(cfg.FontFamily, l.FontSize)

	x0, _ := CursorPos(chars, 0, face)
	if x0 != chars[0].X {
		t.Errorf("empty cursor should sit at first char: %f vs %f", x0, chars[0].X)
	}

	x1, _ := CursorPos(chars, 1, face)
	if x1 <= chars[0].X {
		t.Errorf("cursor after 1 char should advance past it: %f", x1)
	}
}
