package system

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestImagePoolReuse(t *testing.T) {
	rect := image.Rect(0, 0, 8, 8)
	img := GetImage(rect)
	img.Pix[0] = 77
	PutImage(img)

	again := GetImage(rect)
	if again.Rect != rect {
		t.Fatalf("pool returned wrong rect: %v", again.Rect)
	}
	// Буфер из пула приходит обнуленным.
	for i, b := range again.Pix {
		if b != 0 {
			t.Fatalf("reused buffer not cleared at %d: %d", i, b)
		}
	}
}

func TestBytePool(t *testing.T) {
	b := GetBytes(64)
	if len(b) != 64 {
		t.Fatalf("expected 64 bytes, got %d", len(b))
	}
	PutBytes(b)
	b2 := GetBytes(64)
	if len(b2) != 64 {
		t.Fatalf("expected 64 bytes after reuse, got %d", len(b2))
	}
}

func TestCheckMemoryBudget(t *testing.T) {
	// Небольшой холст должен пройти на любой машине.
	if err := CheckMemoryBudget(640, 360, 3); err != nil {
		t.Errorf("small canvas rejected: %v", err)
	}
	// Абсурдный холст пройти не должен.
	if err := CheckMemoryBudget(1<<20, 1<<20, 3); err == nil {
		t.Error("petabyte canvas should be rejected")
	}
}

func TestFindLatestText(t *testing.T) {
	dir := t.TempDir()
	for i, name := range []string{"old.txt", "new.txt", "skip.md"} {
		p := filepath.Join(dir, name)
		os.WriteFile(p, []byte("x"), 0644)
		modTime := time.Now().Add(time.Duration(i) * time.Hour)
		os.Chtimes(p, modTime, modTime)
	}

	latest, err := FindLatestText(dir)
	if err != nil {
		t.Fatalf("FindLatestText failed: %v", err)
	}
	if filepath.Base(latest) != "new.txt" {
		t.Errorf("expected new.txt (skip.md is not a text input), got %s", filepath.Base(latest))
	}
}
