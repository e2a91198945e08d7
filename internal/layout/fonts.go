package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// registry is the process-wide font store: parsed once, read concurrently
// thereafter. Only *sfnt.Font values live here; a font.Face carries mutable
// rasterizer buffers and is not safe for concurrent use, so faces are never
// shared between callers.
type registry struct {
	mu    sync.RWMutex
	fonts map[string]*sfnt.Font
}

var (
	reg      = &registry{fonts: make(map[string]*sfnt.Font)}
	initOnce sync.Once
	initErr  error
)

// EnsureFontsLoaded idempotently registers the built-in font families and
// any .ttf/.otf files found in the optional fonts/ directory. Safe to call
// from concurrent renders; only the first call does work.
func EnsureFontsLoaded() error {
	initOnce.Do(func() {
		builtins := map[string][]byte{
			"regular": goregular.TTF,
			"bold":    gobold.TTF,
			"mono":    gomono.TTF,
		}
		for name, data := range builtins {
			f, err := opentype.Parse(data)
			if err != nil {
				initErr = fmt.Errorf("builtin font %s: %w", name, err)
				return
			}
			reg.fonts[name] = f
		}

		// Пользовательские шрифты из fonts/ необязательны.
		entries, err := os.ReadDir("fonts")
		if err != nil {
			return
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			ext := strings.ToLower(filepath.Ext(entry.Name()))
			if ext != ".ttf" && ext != ".otf" {
				continue
			}
			data, err := os.ReadFile(filepath.Join("fonts", entry.Name()))
			if err != nil {
				continue
			}
			f, err := opentype.Parse(data)
			if err != nil {
				fmt.Printf("[!] Шрифт %s не распознан: %v\n", entry.Name(), err)
				continue
			}
			family := strings.TrimSuffix(entry.Name(), ext)
			reg.fonts[strings.ToLower(family)] = f
		}
	})
	return initErr
}

// Face creates a font.Face for the family at the given pixel size. Every
// call returns a fresh instance: faces hold per-use glyph buffers, so handing
// the same one to two renders corrupts rasterization. The parsed fonts
// behind them are shared read-only. Unknown families fall back to the
// regular builtin.
func Face(family string, size float64) (font.Face, error) {
	if err := EnsureFontsLoaded(); err != nil {
		return nil, err
	}

	if family == "" {
		family = "regular"
	}
	family = strings.ToLower(family)

	reg.mu.RLock()
	sf, ok := reg.fonts[family]
	if !ok {
		sf = reg.fonts["regular"]
	}
	reg.mu.RUnlock()

	return opentype.NewFace(sf, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
