package video

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestDedupPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "video.mp4")

	if got := DedupPath(path); got != path {
		t.Errorf("fresh path must pass through, got %s", got)
	}

	os.WriteFile(path, []byte("x"), 0644)
	first := DedupPath(path)
	if filepath.Base(first) != "video_1.mp4" {
		t.Errorf("expected video_1.mp4, got %s", filepath.Base(first))
	}

	os.WriteFile(first, []byte("x"), 0644)
	second := DedupPath(path)
	if filepath.Base(second) != "video_2.mp4" {
		t.Errorf("expected video_2.mp4, got %s", filepath.Base(second))
	}
}

// slowWriter фиксирует порядок кадров и искусственно тормозит,
// провоцируя заполнение очереди.
type slowWriter struct {
	mu    sync.Mutex
	seen  []uint32
	delay time.Duration
}

func (w *slowWriter) Write(p []byte) (int, error) {
	time.Sleep(w.delay)
	w.mu.Lock()
	w.seen = append(w.seen, binary.BigEndian.Uint32(p))
	w.mu.Unlock()
	return len(p), nil
}

func TestPipeOrderingUnderBackpressure(t *testing.T) {
	w := &slowWriter{delay: time.Millisecond}
	p := NewPipe(w, 2)

	const frames = 50
	buf := make([]byte, 16)
	for i := 0; i < frames; i++ {
		binary.BigEndian.PutUint32(buf, uint32(i))
		if err := p.WriteFrame(buf); err != nil {
			t.Fatalf("WriteFrame %d failed: %v", i, err)
		}
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if len(w.seen) != frames {
		t.Fatalf("expected %d frames, got %d", frames, len(w.seen))
	}
	for i, n := range w.seen {
		if n != uint32(i) {
			t.Fatalf("frame order broken at %d: got frame %d", i, n)
		}
	}
}

type failingWriter struct {
	failAfter int
	count     int
}

var errSink = errors.New("sink closed")

func (w *failingWriter) Write(p []byte) (int, error) {
	w.count++
	if w.count > w.failAfter {
		return 0, errSink
	}
	return len(p), nil
}

func TestPipePropagatesWriteError(t *testing.T) {
	w := &failingWriter{failAfter: 2}
	p := NewPipe(w, 1)

	buf := make([]byte, 8)
	var gotErr error
	for i := 0; i < 100; i++ {
		if err := p.WriteFrame(buf); err != nil {
			gotErr = err
			break
		}
	}
	closeErr := p.Close()
	if gotErr == nil && closeErr == nil {
		t.Fatal("write error was swallowed")
	}
	if closeErr != nil && !errors.Is(closeErr, errSink) {
		t.Errorf("expected sink error, got %v", closeErr)
	}
}
