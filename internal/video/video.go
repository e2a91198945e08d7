package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// StreamOptions описывает один потоковый проход кодирования: сырые
// RGBA-кадры через stdin, опциональное аудио вторым входом.
type StreamOptions struct {
	Width      int
	Height     int
	FPS        int
	AudioPath  string
	Encoder    string
	Quality    int
	OutputPath string
	PipeDepth  int // глубина очереди кадров, 0 = дефолт
}

// Stream представляет запущенный процесс ffmpeg, принимающий кадры через Pipe.
type Stream struct {
	*Pipe

	cmd        *exec.Cmd
	stdin      io.WriteCloser
	logBuf     *bytes.Buffer
	OutputPath string
}

// StartStream запускает ffmpeg и возвращает поток, готовый принимать кадры.
// Итоговый путь дедуплицируется, если файл уже существует.
func StartStream(ctx context.Context, opts StreamOptions) (*Stream, error) {
	finalPath := DedupPath(opts.OutputPath)
	if dir := filepath.Dir(finalPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"-framerate", fmt.Sprintf("%d", opts.FPS),
		"-i", "-",
	}
	if opts.AudioPath != "" {
		args = append(args, "-i", opts.AudioPath)
	}
	args = append(args, "-map", "0:v")
	if opts.AudioPath != "" {
		args = append(args, "-map", "1:a", "-shortest")
	}
	args = append(args,
		"-r", fmt.Sprintf("%d", opts.FPS),
		"-pix_fmt", "yuv420p",
		"-c:v", opts.Encoder,
	)
	args = append(args, qualityArgs(opts.Encoder, opts.Quality)...)
	args = append(args, finalPath)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var logBuf bytes.Buffer
	cmd.Stdout = &logBuf
	cmd.Stderr = &logBuf

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}

	depth := opts.PipeDepth
	if depth == 0 {
		depth = 3
	}

	return &Stream{
		Pipe:       NewPipe(stdin, depth),
		cmd:        cmd,
		stdin:      stdin,
		logBuf:     &logBuf,
		OutputPath: finalPath,
	}, nil
}

// Close дожидается очереди кадров и завершения ffmpeg. Ненулевой код
// выхода энкодера отдается вызывающему как есть, без повторов.
func (s *Stream) Close() error {
	pipeErr := s.Pipe.Close()
	s.stdin.Close()

	waitErr := s.cmd.Wait()
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return fmt.Errorf("ffmpeg завершился с кодом %d: %s", exitErr.ExitCode(), tail(s.logBuf.String(), 512))
		}
		return fmt.Errorf("ffmpeg wait error: %w", waitErr)
	}
	// Ошибка пайпа при нулевом коде выхода редкость (ffmpeg закрыл stdin
	// сам), но молча глотать её нельзя.
	if pipeErr != nil {
		return fmt.Errorf("frame pipe error: %w", pipeErr)
	}
	return nil
}

// Abort прибивает энкодер, не дожидаясь очереди (фатальная ошибка рендера).
func (s *Stream) Abort() {
	s.stdin.Close()
	s.cmd.Process.Kill()
	s.Pipe.Close()
	s.cmd.Wait()
}

func qualityArgs(encoder string, quality int) []string {
	switch encoder {
	case "h264_videotoolbox":
		// VideoToolbox не везде понимает -q:v, используем битрейт.
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return []string{"-cq", fmt.Sprintf("%d", quality)}
	default: // libx264
		return []string{"-crf", fmt.Sprintf("%d", quality), "-preset", "medium"}
	}
}

// DedupPath возвращает первый свободный вариант пути: video.mp4 ->
// video_1.mp4 -> video_2.mp4 и так далее.
func DedupPath(path string) string {
	if !fileExists(path) {
		return path
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
		if !fileExists(candidate) {
			return candidate
		}
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// tail возвращает последние n байт лога ffmpeg, начало при ошибке
// неинформативно.
func tail(s string, n int) string {
	if len(s) <= n {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(s[len(s)-n:])
}
