package utils

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noisyPNG возвращает PNG, который плохо сжимается.
func noisyPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestResizeImage_DownscalesWideImages(t *testing.T) {
	data := noisyPNG(t, 200, 100)

	out, err := ResizeImage(data, 50, 85)
	require.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 50, img.Bounds().Dx())
	assert.Equal(t, 25, img.Bounds().Dy())
}

func TestResizeImage_KeepsNarrowImages(t *testing.T) {
	data := noisyPNG(t, 40, 20)

	out, err := ResizeImage(data, 100, 85)
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
}

func TestResizeImage_InvalidData(t *testing.T) {
	_, err := ResizeImage([]byte("not an image"), 100, 85)
	assert.Error(t, err)
}

func TestProcessImage_ShrinksUnderLimit(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	require.NoError(t, os.WriteFile(in, noisyPNG(t, 300, 300), 0o644))

	out := filepath.Join(dir, "nested", "out.png")
	require.NoError(t, ProcessImage(in, out, 20))

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.LessOrEqual(t, info.Size(), int64(20*1024))

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	img, format, err := image.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Less(t, img.Bounds().Dx(), 300)
}

func TestProcessImage_SmallImageUntouched(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	require.NoError(t, os.WriteFile(in, noisyPNG(t, 10, 10), 0o644))

	out := filepath.Join(dir, "out.png")
	require.NoError(t, ProcessImage(in, out, 100))

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	img, _, err := image.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dx())
}

func TestProcessImage_MissingInput(t *testing.T) {
	err := ProcessImage(filepath.Join(t.TempDir(), "absent.png"), filepath.Join(t.TempDir(), "out.png"), 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read image")
}
