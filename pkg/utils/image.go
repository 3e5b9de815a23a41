// Package utils предоставляет утилиты для обработки изображений.
package utils

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	_ "image/gif" // Регистрируем GIF декодер

	"github.com/nfnt/resize"
)

// ResizeImage ресайзит изображение до указанной ширины, сохраняя пропорции.
//
// Параметры:
//   - data: байты исходного изображения (JPEG, PNG, GIF)
//   - maxWidth: целевая ширина в пикселях. Если 0 или меньше исходной ширины — ресайз не применяется.
//   - quality: качество JPEG при кодировании (1-100). Рекомендуется 85.
//
// Возвращает байты JPEG изображения (для vision модели и base64).
func ResizeImage(data []byte, maxWidth int, quality int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	originalBounds := img.Bounds()
	originalWidth := originalBounds.Dx()

	if maxWidth > 0 && originalWidth > maxWidth {
		aspectRatio := float64(originalBounds.Dy()) / float64(originalWidth)
		newHeight := uint(float64(maxWidth) * aspectRatio)
		img = resize.Resize(uint(maxWidth), newHeight, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode to jpeg: %w", err)
	}

	return buf.Bytes(), nil
}

// ProcessImage конвертирует изображение в PNG и уменьшает его до maxSizeKB.
//
// Уменьшение идёт шагами по 10% от исходного размера, пока файл не влезет
// в лимит или масштаб не опустится до 10%. Результат пишется в outputPath,
// недостающие директории создаются.
func ProcessImage(inputPath, outputPath string, maxSizeKB int) error {
	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	encoded, err := encodePNG(img)
	if err != nil {
		return err
	}

	limit := maxSizeKB * 1024
	if maxSizeKB > 0 && len(encoded) > limit {
		bounds := img.Bounds()
		// Шаг 10% в целых процентах, чтобы не копить ошибку float
		for pct := 90; len(encoded) > limit && pct >= 10; pct -= 10 {
			w := uint(bounds.Dx() * pct / 100)
			h := uint(bounds.Dy() * pct / 100)
			if w == 0 || h == 0 {
				break
			}
			encoded, err = encodePNG(resize.Resize(w, h, img, resize.Lanczos3))
			if err != nil {
				return err
			}
		}
		Info("Image resized", "path", outputPath, "size_kb", fmt.Sprintf("%.2f", float64(len(encoded))/1024))
	}

	if err := os.WriteFile(outputPath, encoded, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	return nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode to png: %w", err)
	}
	return buf.Bytes(), nil
}
