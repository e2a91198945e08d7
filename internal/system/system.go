package system

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
)

func InitResourceLimits() {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Не удалось получить лимит файлов: %v", err)
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Не удалось установить лимит файлов: %v", err)
	}
}

// CheckMemoryBudget оценивает потребность рендера в растровых буферах
// (кадр, история, слои, очередь пайпа) и сверяет её с доступной памятью.
// Ошибка означает, что аллокация почти наверняка упадет, лучше отказаться
// до запуска энкодера.
func CheckMemoryBudget(width, height, pipeDepth int) error {
	frameBytes := uint64(width) * uint64(height) * 4
	// кадр + история + текст + 2 scratch + буферы очереди
	need := frameBytes * uint64(5+pipeDepth)

	vm, err := mem.VirtualMemory()
	if err != nil {
		// Не смогли спросить систему, не блокируем рендер.
		log.Printf("[!] Не удалось получить информацию о памяти: %v", err)
		return nil
	}

	if need > vm.Available {
		return fmt.Errorf("недостаточно памяти для холста %dx%d: нужно ~%d МБ, доступно %d МБ",
			width, height, need/(1<<20), vm.Available/(1<<20))
	}
	return nil
}

// FindLatestText возвращает самый свежий .txt в папке.
func FindLatestText(dir string) (string, error) {
	return findLatest(dir, []string{".txt"})
}

// FindLatestAudio возвращает самый свежий аудиофайл в папке.
func FindLatestAudio(dir string) (string, error) {
	return findLatest(dir, []string{".mp3", ".wav", ".m4a", ".ogg", ".aac", ".flac"})
}

func findLatest(dir string, extensions []string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() {
			continue
		}
		matched := false
		for _, ext := range extensions {
			if strings.HasSuffix(strings.ToLower(f.Name()), ext) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("в папке %s не найдено подходящих файлов", dir)
	}

	return latestFile, nil
}

// GetAudioDuration спрашивает длительность трека у ffprobe.
func GetAudioDuration(path string) (float64, error) {
	cmd := exec.Command("ffprobe", "-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, err
	}

	var duration float64
	_, err = fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &duration)
	if err != nil {
		return 0, err
	}

	return duration, nil
}

// GetBestH264Encoder выбирает аппаратный энкодер, если ffmpeg его знает.
// Приоритет: VideoToolbox (macOS) -> NVENC -> программный libx264.
func GetBestH264Encoder() (string, string) {
	encoders := []struct {
		name string
		args string
	}{
		{"h264_videotoolbox", ""},
		{"h264_nvenc", ""},
	}

	for _, enc := range encoders {
		cmd := exec.Command("ffmpeg", "-encoders")
		out, err := cmd.CombinedOutput()
		if err == nil && strings.Contains(string(out), enc.name) {
			return enc.name, enc.args
		}
	}

	return "libx264", ""
}
