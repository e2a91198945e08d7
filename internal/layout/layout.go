package layout

import (
	"image/color"
	"regexp"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/ivlev/text2video/internal/config"
)

// Character is one entry of the flattened, laid-out text: a stable index in
// order of appearance plus the pixel position it should be drawn at for the
// current layout pass. A new slice is produced on every reflow; instances
// are never mutated in place.
type Character struct {
	Index int
	Char  rune
	X     float64
	Y     float64
	Color *color.NRGBA // nil = конфигурационный цвет текста
}

// Layout is the measured shape of the text for one visible-count state.
type Layout struct {
	FontSize    float64
	LineHeight  float64
	Lines       []string
	BlockWidth  float64
	BlockHeight float64
}

var colorTagRe = regexp.MustCompile(`\{#([0-9a-fA-F]{6})\}|\{/\}`)

// ExtractTextAndColors strips inline color tags ({#RRGGBB} opens a span,
// {/} closes it) and returns the clean text plus a map from character index
// to override color.
func ExtractTextAndColors(raw string) (string, map[int]color.NRGBA) {
	colors := make(map[int]color.NRGBA)
	var clean []rune
	var current *color.NRGBA

	rest := raw
	for len(rest) > 0 {
		loc := colorTagRe.FindStringSubmatchIndex(rest)
		if loc == nil {
			for _, r := range rest {
				if current != nil {
					colors[len(clean)] = *current
				}
				clean = append(clean, r)
			}
			break
		}

		for _, r := range rest[:loc[0]] {
			if current != nil {
				colors[len(clean)] = *current
			}
			clean = append(clean, r)
		}

		tag := rest[loc[0]:loc[1]]
		if tag == "{/}" {
			current = nil
		} else {
			c := parseHexColor(rest[loc[2]:loc[3]])
			current = &c
		}
		rest = rest[loc[1]:]
	}

	return string(clean), colors
}

func parseHexColor(hex string) color.NRGBA {
	var c color.NRGBA
	c.A = 0xff
	c.R = hexByte(hex[0])<<4 | hexByte(hex[1])
	c.G = hexByte(hex[2])<<4 | hexByte(hex[3])
	c.B = hexByte(hex[4])<<4 | hexByte(hex[5])
	return c
}

func hexByte(b byte) uint8 {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	}
	return 0
}

// Compute measures the text and picks a font size that fits the usable
// canvas area (90% of each dimension inside the safe zone), wrapping lines
// on word boundaries. Explicit newlines are respected. When cfg.FontSize is
// set, auto-fit only shrinks, never grows.
func Compute(text string, cfg *config.Config) (*Layout, error) {
	maxW := float64(cfg.Width) * 0.9
	maxH := float64(cfg.Height) * 0.9

	size := cfg.FontSize
	if size <= 0 {
		size = float64(cfg.Height) / 6
	}

	for {
		face, err := Face(cfg.FontFamily, size)
		if err != nil {
			return nil, err
		}

		lines := wrap(text, face, maxW)
		lineHeight := size * 1.3

		blockW := 0.0
		for _, line := range lines {
			if w := measure(face, line); w > blockW {
				blockW = w
			}
		}
		blockH := lineHeight * float64(len(lines))

		if (blockW <= maxW && blockH <= maxH) || size <= 8 {
			return &Layout{
				FontSize:    size,
				LineHeight:  lineHeight,
				Lines:       lines,
				BlockWidth:  blockW,
				BlockHeight: blockH,
			}, nil
		}
		size -= 2
	}
}

// wrap splits text into lines no wider than maxW, breaking on spaces.
// A single word wider than maxW stays on its own line (auto-fit shrinks
// the font until it fits).
func wrap(text string, face font.Face, maxW float64) []string {
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Split(paragraph, " ")
		line := ""
		for _, word := range words {
			candidate := word
			if line != "" {
				candidate = line + " " + word
			}
			if measure(face, candidate) <= maxW || line == "" {
				line = candidate
				continue
			}
			lines = append(lines, line)
			line = word
		}
		lines = append(lines, line)
	}
	return lines
}

func measure(face font.Face, s string) float64 {
	return fromFixed(font.MeasureString(face, s))
}

func fromFixed(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

// Flatten produces the ordered character sequence with pixel positions for
// the current layout, centered on the canvas (including safe-zone padding)
// and aligned per cfg.TextAlign. Character indices are stable across reflow:
// they follow the order of appearance in the clean text, counting newlines
// and spaces.
func Flatten(l *Layout, cfg *config.Config, colors map[int]color.NRGBA) ([]Character, error) {
	face, err := Face(cfg.FontFamily, l.FontSize)
	if err != nil {
		return nil, err
	}

	canvasW := float64(cfg.CanvasWidth())
	canvasH := float64(cfg.CanvasHeight())
	originY := (canvasH-l.BlockHeight)/2 + l.FontSize

	var chars []Character
	index := 0
	y := originY
	for li, line := range l.Lines {
		lineW := measure(face, line)
		var x float64
		switch cfg.TextAlign {
		case "left":
			x = (canvasW - l.BlockWidth) / 2
		case "right":
			x = (canvasW-l.BlockWidth)/2 + (l.BlockWidth - lineW)
		default: // center
			x = (canvasW - lineW) / 2
		}

		prev := rune(-1)
		for _, r := range line {
			if prev >= 0 {
				x += fromFixed(face.Kern(prev, r))
			}
			var override *color.NRGBA
			if c, ok := colors[index]; ok {
				cc := c
				override = &cc
			}
			chars = append(chars, Character{
				Index: index,
				Char:  r,
				X:     x,
				Y:     y,
				Color: override,
			})
			adv, _ := face.GlyphAdvance(r)
			x += fromFixed(adv)
			prev = r
			index++
		}

		// Перенос строки занимает индекс, чтобы нумерация совпадала с
		// посимвольным порядком исходного текста.
		if li < len(l.Lines)-1 {
			index++
		}
		y += l.LineHeight
	}

	return chars, nil
}

// CursorPos returns the draw position just past the last visible character.
// With nothing visible yet the cursor sits at the first character.
func CursorPos(chars []Character, visibleCount int, face font.Face) (float64, float64) {
	if len(chars) == 0 {
		return 0, 0
	}
	if visibleCount <= 0 {
		return chars[0].X, chars[0].Y
	}
	// Индекс visibleCount-1 может прийтись на перенос строки, которого нет
	// в списке, поэтому берем ближайший видимый символ не дальше него.
	last := chars[0]
	for _, c := range chars {
		if c.Index <= visibleCount-1 {
			last = c
		} else {
			break
		}
	}
	adv, _ := face.GlyphAdvance(last.Char)
	return last.X + fromFixed(adv), last.Y
}
