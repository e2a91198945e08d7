package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ivlev/text2video/internal/config"
	"github.com/ivlev/text2video/internal/engine"
	"github.com/ivlev/text2video/internal/system"
	"github.com/ivlev/text2video/internal/timeline"
)

func main() {
	// Увеличиваем лимиты системы (для macOS/Linux)
	system.InitResourceLimits()

	// Создаем нужные директории, если их нет
	dirs := []string{"input/text", "input/timeline", "input/audio", "output"}
	for _, d := range dirs {
		os.MkdirAll(d, 0755)
	}

	textPtr := flag.String("text", "", "Текст для анимации (поддерживает теги {#RRGGBB}...{/})")
	textFilePtr := flag.String("text-file", "", "Файл с текстом (по умолчанию: самый свежий .txt в input/text/)")
	timelinePtr := flag.String("timeline", "", "YAML-таймлайн с блоками (текст+время)")
	batchPtr := flag.Bool("batch", false, "Отрендерить все таймлайны из input/timeline/")
	outputPtr := flag.String("output", "", "Путь к видео (если пусто, генерируется автоматически в output/)")

	widthPtr := flag.Int("width", 1280, "Ширина")
	heightPtr := flag.Int("height", 720, "Высота")
	fpsPtr := flag.Int("fps", 30, "FPS")
	presetPtr := flag.String("preset", "", "Пресет формата: 16:9, 9:16 (Shorts/TikTok), 4:5 (Instagram)")

	cpsPtr := flag.Float64("cps", 12, "Символов в секунду")
	revealFramesPtr := flag.Int("reveal-frames", 8, "Кадров на появление одного символа")
	revealOffsetPtr := flag.Float64("reveal-offset", 14, "Горизонтальный сдвиг появляющегося символа (px)")
	endHoldPtr := flag.Float64("end-hold", 1.5, "Удержание после полного текста (сек)")
	stylePtr := flag.String("style", "default", "Стиль анимации: default, typewriter, glitch")

	jitterPtr := flag.Float64("jitter", 0, "Интенсивность тряски при появлении символов")
	motionBlurPtr := flag.Float64("motion-blur", 0, "Motion blur [0..1), 0 = выключен")
	blurPtr := flag.Float64("blur", 0, "Статическое размытие текста (радиус)")
	shadowPtr := flag.Float64("shadow", 0, "Радиус тени, 0 = выключена")
	chromaPtr := flag.Float64("chroma", 0, "Хроматическая аберрация (px)")

	glitchCharsetPtr := flag.String("glitch-charset", "symbols", "Набор глитч-символов: symbols, letters, numbers, mixed")
	glitchSpeedPtr := flag.Float64("glitch-speed", 1.0, "Скорость смены глитч-символов")

	cursorPtr := flag.Bool("cursor", false, "Показывать мигающий курсор")
	cursorStylePtr := flag.String("cursor-style", "line", "Стиль курсора: line, block, underscore")
	cursorSpeedPtr := flag.Float64("cursor-speed", 1.0, "Скорость мигания курсора")

	alignPtr := flag.String("align", "center", "Выравнивание: left, center, right")
	fontPtr := flag.String("font", "regular", "Семейство шрифта (regular, bold, mono или файл из fonts/)")
	fontSizePtr := flag.Float64("font-size", 0, "Размер шрифта (0 = автоподбор)")
	colorPtr := flag.String("color", "#ffffff", "Цвет текста #RRGGBB")
	bgPtr := flag.String("bg", "#101018", "Цвет фона #RRGGBB")
	transparentPtr := flag.Bool("transparent", false, "Прозрачный фон вместо заливки")
	safeZonePtr := flag.Int("safe-zone", 0, "Отступ safe-zone для экспорта (px)")
	qrPtr := flag.String("qr", "", "Ссылка для QR-водяного знака в углу")

	audioPtr := flag.String("audio", "", "Путь к аудио (по умолчанию: самый свежий файл в input/audio/)")
	audioSyncPtr := flag.Bool("audio-sync", true, "Синхронизировать длительность таймлайна с аудио")
	durationPtr := flag.Float64("duration", 0, "Общая длительность таймлайна (сек), если нет аудио")
	qualityPtr := flag.Int("quality", 0, "Качество видео (0 - авто, x264: CRF 1-51, VideoToolbox: битрейт = Q*100кбит/с)")
	statsPtr := flag.Bool("stats", false, "Показать отчет о производительности")

	flag.Parse()

	width, height := *widthPtr, *heightPtr
	switch *presetPtr {
	case "16:9":
		width, height = 1280, 720
	case "9:16":
		width, height = 720, 1280
	case "4:5":
		width, height = 1080, 1350
	}

	// Обработка аудио
	audioPath := *audioPtr
	if audioPath == "" {
		if latest, err := system.FindLatestAudio("input/audio"); err == nil {
			audioPath = latest
			fmt.Printf("[*] Выбрано аудио: %s\n", audioPath)
		}
	}

	totalDuration := *durationPtr
	if audioPath != "" && *audioSyncPtr {
		audioDur, err := system.GetAudioDuration(audioPath)
		if err == nil {
			totalDuration = audioDur
			fmt.Printf("[*] Длительность видео установлена по аудио: %.2fs\n", totalDuration)
		} else {
			log.Printf("[!] Не удалось получить длительность аудио: %v", err)
		}
	}

	encoderName, _ := system.GetBestH264Encoder()
	if encoderName != "libx264" {
		fmt.Printf("[*] Обнаружено аппаратное ускорение: %s\n", encoderName)
	}

	quality := *qualityPtr
	if quality == 0 {
		switch encoderName {
		case "h264_videotoolbox":
			quality = 75
		case "h264_nvenc":
			quality = 28
		default:
			quality = 23
		}
	}

	cfg := &config.Config{
		OutputVideo:     *outputPtr,
		Width:           width,
		Height:          height,
		FPS:             *fpsPtr,
		CharsPerSecond:  *cpsPtr,
		RevealFrames:    *revealFramesPtr,
		RevealOffsetPx:  *revealOffsetPtr,
		EndHold:         *endHoldPtr,
		AnimationStyle:  *stylePtr,
		Jitter:          *jitterPtr,
		MotionBlur:      *motionBlurPtr,
		Blur:            *blurPtr,
		DropShadow:      *shadowPtr,
		Chroma:          *chromaPtr,
		GlitchCharset:   *glitchCharsetPtr,
		GlitchSpeed:     *glitchSpeedPtr,
		ShowCursor:      *cursorPtr,
		CursorStyle:     *cursorStylePtr,
		CursorSpeed:     *cursorSpeedPtr,
		TextAlign:       *alignPtr,
		FontFamily:      *fontPtr,
		FontSize:        *fontSizePtr,
		TextColor:       parseColor(*colorPtr),
		BackgroundColor: parseColor(*bgPtr),
		Transparent:     *transparentPtr,
		SafeZonePx:      *safeZonePtr,
		QRLink:          *qrPtr,
		TotalDuration:   totalDuration,
		AudioPath:       audioPath,
		VideoEncoder:    encoderName,
		Quality:         quality,
		ShowStats:       *statsPtr,
	}

	ctx := context.Background()

	// Пакетный режим: все таймлайны из input/timeline/ параллельно
	if *batchPtr {
		paths, err := timeline.List("input/timeline")
		if err != nil || len(paths) == 0 {
			log.Fatalf("[-] Нет таймлайнов в input/timeline/: %v", err)
		}
		if cfg.OutputVideo == "" {
			cfg.OutputVideo = filepath.Join("output", "batch.mp4")
		}
		outs, err := engine.RunBatch(ctx, paths, cfg)
		if err != nil {
			log.Fatalf("[-] Ошибка пакетного рендера: %v", err)
		}
		fmt.Printf("[+++] Успех! Готово видео: %d\n", len(outs))
		return
	}

	// Без явного входа берем самый свежий текст, а если текстов нет,
	// самый свежий таймлайн.
	timelinePath := *timelinePtr
	textFile := *textFilePtr
	if timelinePath == "" && *textPtr == "" && textFile == "" {
		if latest, err := system.FindLatestText("input/text"); err == nil {
			textFile = latest
			fmt.Printf("[*] Выбран файл: %s\n", textFile)
		} else if latest, err := timeline.FindLatest("input/timeline"); err == nil {
			timelinePath = latest
			fmt.Printf("[*] Выбран таймлайн: %s\n", timelinePath)
		} else {
			log.Fatalf("[-] Нет входных данных: укажите -text, -text-file или -timeline, либо положите файлы в input/text/ или input/timeline/")
		}
	}

	var project *engine.RenderProject

	switch {
	case timelinePath != "":
		tl, err := timeline.Read(timelinePath)
		if err != nil {
			log.Fatalf("[-] Ошибка чтения таймлайна: %v", err)
		}
		if err := tl.Validate(); err != nil {
			log.Fatalf("[-] Таймлайн некорректен: %v", err)
		}
		if cfg.TotalDuration <= 0 {
			cfg.TotalDuration = tl.TotalEnd()
		}
		if cfg.OutputVideo == "" {
			cfg.OutputVideo = autoOutput(timelinePath)
		}
		fmt.Printf("[*] Таймлайн: %s | Блоков: %d | Длительность: %.2fs\n", timelinePath, len(tl.Blocks), cfg.TotalDuration)
		project = engine.NewRenderProject(cfg, tl.Blocks)

	default:
		text := *textPtr
		if text == "" {
			data, err := os.ReadFile(textFile)
			if err != nil {
				log.Fatalf("[-] Не удалось прочитать %s: %v", textFile, err)
			}
			text = strings.TrimRight(string(data), "\n")
			if cfg.OutputVideo == "" {
				cfg.OutputVideo = autoOutput(textFile)
			}
		}
		cfg.Text = text
		if cfg.OutputVideo == "" {
			cfg.OutputVideo = autoOutput("text")
		}
		project = engine.NewRenderProject(cfg, nil)
	}

	out, err := project.Run(ctx)
	if err != nil {
		log.Fatalf("[-] Ошибка проекта: %v", err)
	}

	fmt.Printf("[+++] Успех! Результат: %s\n", out)
}

// autoOutput собирает имя вида output/<имя>_<метка времени>.mp4
func autoOutput(source string) string {
	baseName := filepath.Base(source)
	nameOnly := strings.TrimSuffix(baseName, filepath.Ext(baseName))
	cleanName := strings.ReplaceAll(nameOnly, " ", "_")
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join("output", fmt.Sprintf("%s_%s.mp4", cleanName, timestamp))
}

// parseColor разбирает #RRGGBB; мусор на входе деградирует до белого.
func parseColor(s string) color.NRGBA {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	}
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}
