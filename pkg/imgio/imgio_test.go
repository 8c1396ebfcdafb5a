package imgio

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 10), uint8(y * 20), 50, 255})
		}
	}
	return img
}

func TestDecodeFormats(t *testing.T) {
	src := testImage()

	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, src))
	var bmpBuf bytes.Buffer
	require.NoError(t, bmp.Encode(&bmpBuf, src))
	jpg, err := EncodeJPEGBytes(src, 95)
	require.NoError(t, err)

	for _, tc := range []struct {
		data   []byte
		format string
	}{
		{pngBuf.Bytes(), "png"},
		{bmpBuf.Bytes(), "bmp"},
		{jpg, "jpeg"},
	} {
		img, format, err := Decode(bytes.NewReader(tc.data))
		require.NoError(t, err)
		require.Equal(t, tc.format, format)
		require.Equal(t, 16, img.Bounds().Dx())
		require.Equal(t, 8, img.Bounds().Dy())

		cfg, _, err := DecodeConfig(tc.data)
		require.NoError(t, err)
		require.Equal(t, 16, cfg.Width)
	}

	_, err = DecodeBytes([]byte("not an image"))
	require.Error(t, err)
}

func TestSaveImage(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.png", "b.jpg", "c.JPEG"} {
		fn := filepath.Join(dir, name)
		require.NoError(t, SaveImage(fn, testImage()))
		img, err := DecodeFile(fn)
		require.NoError(t, err)
		require.Equal(t, image.Rect(0, 0, 16, 8), img.Bounds())
	}
	_, err := DecodeFile(filepath.Join(dir, "missing.png"))
	require.Error(t, err)
}
