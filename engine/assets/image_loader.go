// Package assets decodes image and shader files into engine-ready data.
package assets

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/webp"
)

// ErrUnsupportedFormat is returned for data no decoder accepts.
var ErrUnsupportedFormat = errors.New("assets: unsupported image format")

type decoder struct {
	name  string
	match func([]byte) bool
	fn    func(io.Reader) (image.Image, error)
}

func prefix(p string) func([]byte) bool {
	return func(b []byte) bool { return bytes.HasPrefix(b, []byte(p)) }
}

// Decoders are picked by signature. The tga package registers an empty
// signature with the image package, so image.Decode cannot be trusted to
// route data and TGA is only tried when nothing else matched.
var decoders = []decoder{
	{"png", prefix("\x89PNG\r\n\x1a\n"), png.Decode},
	{"jpeg", prefix("\xff\xd8"), jpeg.Decode},
	{"gif", func(b []byte) bool {
		return bytes.HasPrefix(b, []byte("GIF87a")) || bytes.HasPrefix(b, []byte("GIF89a"))
	}, gif.Decode},
	{"bmp", prefix("BM"), bmp.Decode},
	{"webp", func(b []byte) bool { return len(b) >= 12 && string(b[:4]) == "RIFF" && string(b[8:12]) == "WEBP" }, webp.Decode},
}

// DecodeImage decodes PNG, JPEG, GIF, BMP, WebP or TGA data into tightly
// packed NRGBA pixels (row-major, top-left origin). It also returns the
// detected format name.
func DecodeImage(r io.Reader) (*image.NRGBA, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("assets: read: %w", err)
	}
	return DecodeImageBytes(data)
}

// DecodeImageBytes is DecodeImage over a byte slice.
func DecodeImageBytes(data []byte) (*image.NRGBA, string, error) {
	for _, d := range decoders {
		if !d.match(data) {
			continue
		}
		img, err := d.fn(bytes.NewReader(data))
		if err != nil {
			return nil, d.name, fmt.Errorf("assets: decode %s: %w", d.name, err)
		}
		return toNRGBA(img), d.name, nil
	}
	img, err := tga.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", ErrUnsupportedFormat
	}
	return toNRGBA(img), "tga", nil
}

// LoadImage reads and decodes the image file at path.
func LoadImage(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	img, _, err := DecodeImage(f)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", path, err)
	}
	return img, nil
}

// toNRGBA converts img to NRGBA with a zero origin and stride == 4*width.
func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) && n.Stride == b.Dx()*4 {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
