// Package imgio decodes and encodes the image formats found in waste datasets
package imgio

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// DefaultJPEGQuality is used by SaveImage for .jpg files
const DefaultJPEGQuality = 90

// Decode reads an image in any of the registered formats (jpeg, png, gif, bmp, webp)
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("Failed to decode image: %w", err)
	}
	return img, format, nil
}

// DecodeBytes decodes an in-memory image
func DecodeBytes(b []byte) (image.Image, error) {
	img, _, err := Decode(bytes.NewReader(b))
	return img, err
}

// DecodeConfig returns only the dimensions and format, without decoding pixels
func DecodeConfig(b []byte) (image.Config, string, error) {
	return image.DecodeConfig(bytes.NewReader(b))
}

func DecodeFile(filename string) (image.Image, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", filename, err)
	}
	return img, nil
}

func EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
}

// EncodeJPEGBytes is EncodeJPEG into a byte slice
func EncodeJPEGBytes(img image.Image, quality int) ([]byte, error) {
	buf := bytes.Buffer{}
	if err := EncodeJPEG(&buf, img, quality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveImage writes img to filename. The format is chosen by extension (.jpg/.jpeg or png otherwise).
func SaveImage(filename string, img image.Image) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		err = EncodeJPEG(f, img, DefaultJPEGQuality)
	default:
		err = png.Encode(f, img)
	}
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
