package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/text2video/internal/config"
	"github.com/ivlev/text2video/internal/timeline"
)

// RunBatch рендерит несколько таймлайнов параллельно. Рендеры полностью
// изолированы (свои холсты, история, состояние), общий только реестр
// шрифтов, который безопасен для конкурентного чтения.
func RunBatch(ctx context.Context, paths []string, base *config.Config) ([]string, error) {
	results := make([]string, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4) // больше четырех параллельных ffmpeg уже перебор

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			tl, err := timeline.Read(path)
			if err != nil {
				return fmt.Errorf("таймлайн %s: %w", path, err)
			}
			if err := tl.Validate(); err != nil {
				return fmt.Errorf("таймлайн %s: %w", path, err)
			}

			cfg := *base
			cfg.TimelinePath = path
			if cfg.TotalDuration <= 0 {
				cfg.TotalDuration = tl.TotalEnd()
			}
			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			cfg.OutputVideo = filepath.Join(filepath.Dir(base.OutputVideo), name+".mp4")

			project := NewRenderProject(&cfg, tl.Blocks)
			out, err := project.Run(ctx)
			if err != nil {
				return err
			}
			results[i] = out
			fmt.Printf("[>] Готово: %s\n", out)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
