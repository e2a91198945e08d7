package engine

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"time"
	"unicode"

	"golang.org/x/image/font"

	"github.com/ivlev/text2video/internal/anim"
	"github.com/ivlev/text2video/internal/compositor"
	"github.com/ivlev/text2video/internal/config"
	"github.com/ivlev/text2video/internal/layout"
	"github.com/ivlev/text2video/internal/system"
	"github.com/ivlev/text2video/internal/timeline"
	"github.com/ivlev/text2video/internal/video"
)

// FrameSink принимает кадры рендера строго по порядку. Боевая реализация
// это video.Stream; тесты подставляют приемник в памяти.
type FrameSink interface {
	WriteFrame(pix []byte) error
}

// RenderProject описывает один изолированный рендер: собственный холст, история,
// состояние тряски. Никакое состояние не переживает Run; два запуска с
// одинаковым входом (и jitter=0) дают байт-в-байт одинаковые кадры.
type RenderProject struct {
	Config *config.Config
	Blocks []timeline.Block // nil = одиночный текст из Config.Text
	Rand   *rand.Rand       // источник тряски; nil при jitter=0
}

func NewRenderProject(cfg *config.Config, blocks []timeline.Block) *RenderProject {
	var r *rand.Rand
	if cfg.Jitter > 0 {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &RenderProject{Config: cfg, Blocks: blocks, Rand: r}
}

// Run прогоняет полный пайплайн: проверки, запуск энкодера, покадровый
// рендер, завершение. Возвращает итоговый путь к видео.
func (p *RenderProject) Run(ctx context.Context) (string, error) {
	startTime := time.Now()

	cfg := p.Config
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	if err := layout.EnsureFontsLoaded(); err != nil {
		return "", err
	}

	const pipeDepth = 3
	if err := system.CheckMemoryBudget(cfg.CanvasWidth(), cfg.CanvasHeight(), pipeDepth); err != nil {
		return "", err
	}

	totalFrames, err := p.totalFrames()
	if err != nil {
		return "", err
	}

	fmt.Println("--- [PROJECT: TYPE ENGINE] ---")
	fmt.Printf("[*] Холст: %dx%d @ %d FPS | Кадров: %d | Стиль: %s\n",
		cfg.CanvasWidth(), cfg.CanvasHeight(), cfg.FPS, totalFrames, cfg.AnimationStyle)

	stream, err := video.StartStream(ctx, video.StreamOptions{
		Width:      cfg.CanvasWidth(),
		Height:     cfg.CanvasHeight(),
		FPS:        cfg.FPS,
		AudioPath:  cfg.AudioPath,
		Encoder:    cfg.VideoEncoder,
		Quality:    cfg.Quality,
		OutputPath: cfg.OutputVideo,
		PipeDepth:  pipeDepth,
	})
	if err != nil {
		return "", err
	}

	if err := p.RenderFrames(stream, totalFrames); err != nil {
		// Ошибка в покадровом цикле фатальна: глушим энкодер, частичный
		// вывод выбрасывается вызывающим.
		stream.Abort()
		return "", err
	}

	if err := stream.Close(); err != nil {
		return "", err
	}

	if cfg.ShowStats {
		p.reportStats(totalFrames, time.Since(startTime))
	}

	return stream.OutputPath, nil
}

func (p *RenderProject) totalFrames() (int, error) {
	cfg := p.Config
	if p.Blocks == nil {
		clean, _ := layout.ExtractTextAndColors(cfg.Text)
		total := len([]rune(clean))
		if total == 0 {
			return 0, fmt.Errorf("пустой текст: нечего анимировать")
		}
		clock := anim.Clock{FPS: cfg.FPS, CharsPerSecond: cfg.CharsPerSecond}
		return clock.TotalFrames(total, cfg.EndHold), nil
	}
	// Таймлайн: длительность задана извне (обычно аудиодорожкой) и не
	// зависит от длины текста.
	if cfg.TotalDuration <= 0 {
		return 0, fmt.Errorf("для таймлайна нужна общая длительность (аудио или -duration)")
	}
	return anim.TimelineFrames(cfg.TotalDuration, cfg.FPS), nil
}

// blockState хранит раскладку активного блока, пересчитываемую при изменении
// числа видимых символов или смене блока. Одиночный режим считает по
// глобальным часам; таймлайн идет через секвенсор, который сам сдвигает
// кадры в блочное время.
type blockState struct {
	text    string
	chars   []layout.Character
	face    font.Face
	total   int // всего символов в блоке
	layoutP *layout.Layout

	clock anim.Clock          // одиночный режим
	seq   *timeline.Sequencer // nil в одиночном режиме
	idx   int
}

func (st *blockState) visibleAt(frame int) int {
	if st.seq != nil {
		return st.seq.VisibleCount(st.idx, frame)
	}
	return st.clock.VisibleCount(frame, st.total)
}

func (st *blockState) charAt(style string, frame int, subOffset float64, charIndex, visible, revealFrames int, revealOffsetPx, glitchSpeed float64, charset []rune) anim.CharState {
	if st.seq != nil {
		return st.seq.CharFrame(st.idx, style, frame, subOffset, charIndex, visible, revealFrames, revealOffsetPx, glitchSpeed, charset)
	}
	return st.clock.CharFrame(style, frame, subOffset, charIndex, visible, revealFrames, revealOffsetPx, glitchSpeed, charset)
}

func (st *blockState) settledBefore(frame, charIndex, revealFrames int) bool {
	if st.seq != nil {
		return st.seq.FullyRevealedBefore(st.idx, frame, charIndex, revealFrames)
	}
	return st.clock.FullyRevealedBefore(frame, charIndex, revealFrames)
}

// RenderFrames крутит покадровый цикл компоновки и эмиссии. Кадры строго
// последовательны (каждый зависит от истории и затухающей травмы), каждые
// 10 кадров цикл добровольно уступает планировщику.
func (p *RenderProject) RenderFrames(sink FrameSink, totalFrames int) error {
	cfg := p.Config

	canvas := compositor.NewCanvas(cfg.CanvasWidth(), cfg.CanvasHeight())
	defer canvas.Release()

	var watermark *image.RGBA
	if cfg.QRLink != "" {
		wm, err := compositor.NewQRWatermark(cfg.QRLink, cfg.CanvasHeight())
		if err != nil {
			return fmt.Errorf("qr watermark: %w", err)
		}
		watermark = wm
	}

	shake := anim.NewShake(cfg.Jitter, p.Rand)
	charset := anim.GlitchCharset(cfg.GlitchCharset)

	seq := &timeline.Sequencer{Blocks: p.Blocks, FPS: cfg.FPS}

	var st *blockState
	var colorMap map[int]color.NRGBA
	lastVisible := -1
	lastBlock := -2

	for frame := 0; frame < totalFrames; frame++ {
		t := float64(frame) / float64(cfg.FPS)

		active := 0
		if p.Blocks != nil {
			active = seq.ActiveBlock(t)
		}

		if active < 0 {
			// Пауза между блоками: только фон, но след motion blur
			// продолжает затухать, а не обрывается. Травма тряски тоже
			// затухает, иначе остаток с прошлого блока тряхнет следующий.
			shake.Step(false, 0)
			canvas.ComposeFrame(p.Config, nil, compositor.FrameParams{
				FirstFrame: frame == 0,
				MotionBlur: cfg.MotionBlur,
				Watermark:  watermark,
			})
			if err := p.emit(sink, canvas, frame); err != nil {
				return err
			}
			lastBlock = -1
			continue
		}

		// Смена блока обнуляет раскладку, даже если число видимых
		// символов совпало: текст-то новый.
		if active != lastBlock {
			ns, cm, err := p.newBlockState(active, seq)
			if err != nil {
				return err
			}
			st = ns
			colorMap = cm
			lastVisible = -1
			lastBlock = active
		}

		visible := st.visibleAt(frame)

		visibleChanged := visible != lastVisible
		if visibleChanged && lastVisible >= 0 {
			// Перекладка при каждом изменении видимого количества:
			// авто-подбор может сдвинуть каждый символ.
			chars, err := p.flatten(st, colorMap)
			if err != nil {
				return err
			}
			st.chars = chars
		}
		shake.Step(visibleChanged, visible)
		lastVisible = visible

		ops := p.buildOps(st, frame, visible, charset)

		var cursor *compositor.GlyphOp
		if cfg.ShowCursor && anim.CursorVisible(frame, cfg.FPS, cfg.CursorSpeed) {
			cursor = p.cursorOp(st, visible)
		}

		dx, dy := shake.Offset()
		canvas.ComposeFrame(cfg, st.face, compositor.FrameParams{
			FirstFrame: frame == 0,
			MotionBlur: cfg.MotionBlur,
			ShakeX:     dx,
			ShakeY:     dy,
			Chroma:     cfg.Chroma,
			DropShadow: cfg.DropShadow,
			Blur:       cfg.Blur,
			Ops:        ops,
			Cursor:     cursor,
			Watermark:  watermark,
		})

		if err := p.emit(sink, canvas, frame); err != nil {
			return err
		}
	}

	return nil
}

// emit отправляет кадр в пайп и каждые 10 кадров уступает планировщику,
// чтобы не держать поток занятым весь рендер.
func (p *RenderProject) emit(sink FrameSink, canvas *compositor.Canvas, frame int) error {
	if err := sink.WriteFrame(canvas.Bytes()); err != nil {
		return fmt.Errorf("кадр %d не принят энкодером: %w", frame, err)
	}
	if (frame+1)%10 == 0 {
		runtime.Gosched()
	}
	return nil
}

func (p *RenderProject) newBlockState(active int, seq *timeline.Sequencer) (*blockState, map[int]color.NRGBA, error) {
	cfg := p.Config

	var raw string
	st := &blockState{}
	if p.Blocks == nil {
		raw = cfg.Text
		st.clock = anim.Clock{FPS: cfg.FPS, CharsPerSecond: cfg.CharsPerSecond}
	} else {
		raw = p.Blocks[active].Text
		st.seq = seq
		st.idx = active
	}

	clean, colors := layout.ExtractTextAndColors(raw)
	st.text = clean
	st.total = len([]rune(clean))

	l, err := layout.Compute(clean, cfg)
	if err != nil {
		return nil, nil, err
	}
	st.layoutP = l

	face, err := layout.Face(cfg.FontFamily, l.FontSize)
	if err != nil {
		return nil, nil, err
	}
	st.face = face

	chars, err := layout.Flatten(l, cfg, colors)
	if err != nil {
		return nil, nil, err
	}
	st.chars = chars

	return st, colors, nil
}

func (p *RenderProject) flatten(st *blockState, colors map[int]color.NRGBA) ([]layout.Character, error) {
	return layout.Flatten(st.layoutP, p.Config, colors)
}

// buildOps раскатывает машину состояний по символам, с мультисэмплингом
// motion blur для символов, еще не завершивших появление.
func (p *RenderProject) buildOps(st *blockState, frame, visible int, charset []rune) []compositor.GlyphOp {
	cfg := p.Config
	samples, weight := anim.BlurSamples(cfg.MotionBlur)

	ops := make([]compositor.GlyphOp, 0, len(st.chars))
	for _, ch := range st.chars {
		if unicode.IsSpace(ch.Char) {
			continue
		}

		col := cfg.TextColor
		if ch.Color != nil {
			col = *ch.Color
		}

		n := samples
		if n > 1 && st.settledBefore(frame, ch.Index, cfg.RevealFrames) {
			// Символ давно в покое, одного сэмпла достаточно.
			n = 1
		}

		if n == 1 {
			s := st.charAt(cfg.AnimationStyle, frame, 0, ch.Index, visible, cfg.RevealFrames, cfg.RevealOffsetPx, cfg.GlitchSpeed, charset)
			if s.Hidden() {
				continue
			}
			ops = append(ops, makeOp(ch, s, col, s.Opacity))
			continue
		}

		for i := 0; i < n; i++ {
			offset := -(float64(i) / float64(n))
			s := st.charAt(cfg.AnimationStyle, frame, offset, ch.Index, visible, cfg.RevealFrames, cfg.RevealOffsetPx, cfg.GlitchSpeed, charset)
			if s.Hidden() {
				continue
			}
			ops = append(ops, makeOp(ch, s, col, s.Opacity*weight))
		}
	}
	return ops
}

func makeOp(ch layout.Character, s anim.CharState, col color.NRGBA, opacity float64) compositor.GlyphOp {
	glyph := ch.Char
	if s.Substitute != 0 {
		glyph = s.Substitute
	}
	return compositor.GlyphOp{
		Glyph:   glyph,
		X:       ch.X + s.XOffset,
		Y:       ch.Y,
		Color:   col,
		Opacity: opacity,
	}
}

func (p *RenderProject) cursorOp(st *blockState, visible int) *compositor.GlyphOp {
	cfg := p.Config
	x, y := layout.CursorPos(st.chars, visible, st.face)

	glyph := '|'
	switch cfg.CursorStyle {
	case config.CursorBlock:
		glyph = '█'
	case config.CursorUnderscore:
		glyph = '_'
	}
	return &compositor.GlyphOp{Glyph: glyph, X: x, Y: y, Color: cfg.TextColor, Opacity: 1}
}

func (p *RenderProject) reportStats(totalFrames int, elapsed time.Duration) {
	fps := float64(totalFrames) / elapsed.Seconds()
	report := fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.2fs\n"+
			"Frames: %d\n"+
			"Effective FPS: %.2f\n"+
			"----------------------------\n",
		p.Config.BuildVersion, elapsed.Seconds(), totalFrames, fps,
	)
	fmt.Print(report)

	logEntry := fmt.Sprintf("[%s] Build: %s | Output: %s | Frames: %d | Total: %.2fs | FPS: %.2f\n",
		time.Now().Format("2006-01-02 15:04:05"),
		p.Config.BuildVersion,
		filepath.Base(p.Config.OutputVideo),
		totalFrames,
		elapsed.Seconds(),
		fps,
	)

	f, err := os.OpenFile("benchmark.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		f.WriteString(logEntry)
		f.Close()
	} else {
		fmt.Printf("[!] Не удалось записать benchmark.log: %v\n", err)
	}
}
