package assets

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecodeImagePNG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	src.Set(2, 1, color.RGBA{10, 20, 30, 255})

	img, format, err := DecodeImageBytes(encodePNG(t, src))
	if err != nil {
		t.Fatalf("DecodeImageBytes() error = %v", err)
	}
	if format != "png" {
		t.Errorf("format = %q, want png", format)
	}
	if img.Stride != 3*4 || img.Bounds() != image.Rect(0, 0, 3, 2) {
		t.Errorf("image not tightly packed: stride %d bounds %v", img.Stride, img.Bounds())
	}
	if c := img.NRGBAAt(2, 1); c != (color.NRGBA{10, 20, 30, 255}) {
		t.Errorf("pixel = %v, want {10 20 30 255}", c)
	}
}

func TestDecodeImageSubImageOrigin(t *testing.T) {
	base := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	base.SetNRGBA(2, 2, color.NRGBA{1, 2, 3, 4})
	sub := base.SubImage(image.Rect(2, 2, 4, 4))

	got := toNRGBA(sub)
	if got.Bounds().Min != (image.Point{}) || got.NRGBAAt(0, 0) != (color.NRGBA{1, 2, 3, 4}) {
		t.Errorf("toNRGBA(sub) = bounds %v, pixel %v", got.Bounds(), got.NRGBAAt(0, 0))
	}
}

func TestDecodeImageErrors(t *testing.T) {
	if _, _, err := DecodeImageBytes([]byte("definitely not an image")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("unknown data error = %v, want ErrUnsupportedFormat", err)
	}

	data := encodePNG(t, image.NewRGBA(image.Rect(0, 0, 8, 8)))
	_, _, err := DecodeImageBytes(data[:len(data)/2])
	if err == nil || errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("truncated png error = %v, want a decode failure", err)
	}
}

func TestLoadImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sprite.png")
	if err := os.WriteFile(path, encodePNG(t, image.NewRGBA(image.Rect(0, 0, 2, 2))), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadImage(path); err != nil {
		t.Errorf("LoadImage() error = %v", err)
	}
	if _, err := LoadImage(filepath.Join(dir, "missing.png")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadImage(missing) error = %v, want os.ErrNotExist", err)
	}
}

func TestLoadShader(t *testing.T) {
	fsys := fstest.MapFS{
		"wave.glsl":  {Data: []byte("return texture(uTex, uv);\x00")},
		"empty.glsl": {Data: []byte("  \n")},
	}
	src, err := LoadShader(fsys, "wave.glsl")
	if err != nil || src != "return texture(uTex, uv);" {
		t.Errorf("LoadShader() = %q, %v", src, err)
	}
	if _, err := LoadShader(fsys, "empty.glsl"); err == nil {
		t.Error("LoadShader(empty) error = nil, want error")
	}
	if _, err := LoadShader(fsys, "missing.glsl"); err == nil {
		t.Error("LoadShader(missing) error = nil, want error")
	}
}
