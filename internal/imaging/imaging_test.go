package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, solid(w, h, color.RGBA{255, 0, 0, 255}), &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(w, h, color.RGBA{0, 0, 255, 255})))
	return buf.Bytes()
}

func TestProcess_JPEG(t *testing.T) {
	cover, err := Process(bytes.NewReader(encodeJPEG(t, 100, 80)), 0)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", cover.MIME)
	assert.NotEmpty(t, cover.Data)
	assert.Equal(t, 100, cover.Width)
	assert.Equal(t, 80, cover.Height)
}

func TestProcess_PNGIsReencodedAsJPEG(t *testing.T) {
	cover, err := Process(bytes.NewReader(encodePNG(t, 10, 10)), 0)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", cover.MIME)
	assert.Equal(t, "image/jpeg", http.DetectContentType(cover.Data))
}

func TestProcess_Downscale(t *testing.T) {
	cover, err := Process(bytes.NewReader(encodeJPEG(t, 2048, 1024)), 0)
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(cover.Data))
	require.NoError(t, err)
	assert.Equal(t, MaxDimension, img.Bounds().Dx())
	assert.Equal(t, MaxDimension/2, img.Bounds().Dy())
}

func TestProcess_SmallImageNotUpscaled(t *testing.T) {
	cover, err := Process(bytes.NewReader(encodeJPEG(t, 50, 50)), 0)
	require.NoError(t, err)
	assert.Equal(t, 50, cover.Width)
	assert.Equal(t, 50, cover.Height)
}

func TestProcess_Rejects(t *testing.T) {
	t.Run("NotAnImage", func(t *testing.T) {
		_, err := Process(bytes.NewReader([]byte("not image")), 0)
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("GIF", func(t *testing.T) {
		_, err := Process(bytes.NewReader([]byte("GIF89a...")), 0)
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("TruncatedPNG", func(t *testing.T) {
		data := encodePNG(t, 20, 20)
		_, err := Process(bytes.NewReader(data[:len(data)/2]), 0)
		assert.Error(t, err)
	})

	t.Run("TooLarge", func(t *testing.T) {
		data := encodeJPEG(t, 64, 64)
		_, err := Process(bytes.NewReader(data), int64(len(data)-1))
		assert.ErrorIs(t, err, ErrTooLarge)
	})
}
