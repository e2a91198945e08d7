package engine

import (
	"bytes"
	"image/color"
	"math/rand"
	"testing"

	"github.com/ivlev/text2video/internal/config"
	"github.com/ivlev/text2video/internal/timeline"
)

// memorySink накапливает кадры в памяти вместо энкодера.
type memorySink struct {
	frames [][]byte
}

func (s *memorySink) WriteFrame(pix []byte) error {
	buf := make([]byte, len(pix))
	copy(buf, pix)
	s.frames = append(s.frames, buf)
	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{
		Text:            "hi",
		Width:           48,
		Height:          32,
		FPS:             30,
		CharsPerSecond:  10,
		RevealFrames:    6,
		RevealOffsetPx:  8,
		EndHold:         0.2,
		TextColor:       color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		BackgroundColor: color.NRGBA{R: 20, G: 20, B: 40, A: 255},
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}

func TestTotalFramesSingleBlock(t *testing.T) {
	cfg := testConfig()
	// ceil((20/10 + 1.5) * 30) = 105
	cfg.Text = "abcdefghij0123456789"
	cfg.CharsPerSecond = 10
	cfg.EndHold = 1.5

	p := NewRenderProject(cfg, nil)
	got, err := p.totalFrames()
	if err != nil {
		t.Fatalf("totalFrames failed: %v", err)
	}
	if got != 105 {
		t.Errorf("expected 105 frames, got %d", got)
	}
}

func TestTotalFramesTimeline(t *testing.T) {
	cfg := testConfig()
	cfg.TotalDuration = 6
	blocks := []timeline.Block{{Text: "AB", Start: 0, Duration: 2}}

	p := NewRenderProject(cfg, blocks)
	got, err := p.totalFrames()
	if err != nil {
		t.Fatalf("totalFrames failed: %v", err)
	}
	if got != 180 {
		t.Errorf("expected 180 frames for 6s @ 30fps, got %d", got)
	}
}

func TestTimelineNeedsDuration(t *testing.T) {
	cfg := testConfig()
	cfg.TotalDuration = 0
	p := NewRenderProject(cfg, []timeline.Block{{Text: "x", Start: 0, Duration: 1}})
	if _, err := p.totalFrames(); err == nil {
		t.Error("timeline without total duration must be rejected")
	}
}

func TestRenderDeterministicWithoutJitter(t *testing.T) {
	render := func() [][]byte {
		cfg := testConfig()
		p := NewRenderProject(cfg, nil)
		n, err := p.totalFrames()
		if err != nil {
			t.Fatalf("totalFrames: %v", err)
		}
		sink := &memorySink{}
		if err := p.RenderFrames(sink, n); err != nil {
			t.Fatalf("RenderFrames: %v", err)
		}
		return sink.frames
	}

	a := render()
	b := render()
	if len(a) != len(b) {
		t.Fatalf("frame counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if !bytes.Equal(a[i], b[i]) {
			t.Fatalf("frame %d differs between identical renders", i)
		}
	}
	t.Logf("byte-identical across %d frames", len(a))
}

func TestRenderFrameSizeAndCoverage(t *testing.T) {
	cfg := testConfig()
	p := NewRenderProject(cfg, nil)
	n, _ := p.totalFrames()
	sink := &memorySink{}
	if err := p.RenderFrames(sink, n); err != nil {
		t.Fatalf("RenderFrames: %v", err)
	}

	want := cfg.CanvasWidth() * cfg.CanvasHeight() * 4
	for i, f := range sink.frames {
		if len(f) != want {
			t.Fatalf("frame %d: %d bytes, expected %d", i, len(f), want)
		}
	}

	// Последний кадр должен отличаться от чистого фона: текст дорисован.
	last := sink.frames[len(sink.frames)-1]
	bg := cfg.BackgroundColor
	changed := false
	for i := 0; i < len(last); i += 4 {
		if last[i] != bg.R || last[i+1] != bg.G || last[i+2] != bg.B {
			changed = true
			break
		}
	}
	if !changed {
		t.Error("final frame has no text pixels")
	}
}

func TestRenderTimelineGapIsBackgroundOnly(t *testing.T) {
	cfg := testConfig()
	cfg.TotalDuration = 6
	cfg.ShowCursor = false
	blocks := []timeline.Block{
		{Text: "AB", Start: 0, Duration: 2},
		{Text: "CD", Start: 3, Duration: 2},
	}

	p := NewRenderProject(cfg, blocks)
	n, _ := p.totalFrames()
	sink := &memorySink{}
	if err := p.RenderFrames(sink, n); err != nil {
		t.Fatalf("RenderFrames: %v", err)
	}

	// t=2.5 -> кадр 75: ни один блок не активен, только фон.
	frame := sink.frames[75]
	bg := cfg.BackgroundColor
	for i := 0; i < len(frame); i += 4 {
		if frame[i] != bg.R || frame[i+1] != bg.G || frame[i+2] != bg.B || frame[i+3] != bg.A {
			t.Fatalf("gap frame has non-background pixel at %d: %v", i/4, frame[i:i+4])
		}
	}
}

func TestShakeSettlesThroughGap(t *testing.T) {
	blocks := []timeline.Block{
		{Text: "ab", Start: 0, Duration: 0.5},
		{Text: "cd", Start: 3, Duration: 0.5},
	}

	render := func(jitter float64, r *rand.Rand) [][]byte {
		cfg := testConfig()
		cfg.TotalDuration = 4
		cfg.ShowCursor = true
		cfg.Jitter = jitter

		p := &RenderProject{Config: cfg, Blocks: blocks, Rand: r}
		n, err := p.totalFrames()
		if err != nil {
			t.Fatalf("totalFrames: %v", err)
		}
		sink := &memorySink{}
		if err := p.RenderFrames(sink, n); err != nil {
			t.Fatalf("RenderFrames: %v", err)
		}
		return sink.frames
	}

	shaken := render(5, rand.New(rand.NewSource(7)))
	steady := render(0, nil)

	// Травма затухает 0.9x на каждом кадре паузы, так что к кадру 90
	// (старт второго блока) она давно ниже порога: курсор стоит ровно
	// там же, где и в рендере без тряски.
	if !bytes.Equal(shaken[90], steady[90]) {
		t.Error("leftover trauma from the first block shook the start of the second")
	}
}

func TestRenderMotionBlurLeavesTrail(t *testing.T) {
	cfg := testConfig()
	cfg.MotionBlur = 0.5
	p := NewRenderProject(cfg, nil)
	n, _ := p.totalFrames()
	sink := &memorySink{}
	if err := p.RenderFrames(sink, n); err != nil {
		t.Fatalf("RenderFrames: %v", err)
	}
	if len(sink.frames) != n {
		t.Fatalf("expected %d frames, got %d", n, len(sink.frames))
	}
}

func TestValidationRejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.FPS = 0
	if err := cfg.Validate(); err == nil {
		t.Error("fps=0 must be rejected")
	}

	cfg = testConfig()
	cfg.CharsPerSecond = -1
	if err := cfg.Validate(); err == nil {
		t.Error("negative charsPerSecond must be rejected")
	}
}
