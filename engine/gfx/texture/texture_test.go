package texture

import (
	"errors"
	"image"
	"testing"

	"github.com/hubastard/spot/engine/gfx/soft"
)

func solid(w, h int, r, g, b, a byte) []byte {
	px := make([]byte, w*h*4)
	for i := 0; i < len(px); i += 4 {
		px[i], px[i+1], px[i+2], px[i+3] = r, g, b, a
	}
	return px
}

func TestMipLevelCount(t *testing.T) {
	tests := []struct {
		w, h int
		want uint32
	}{
		{1, 1, 1},
		{2, 1, 2},
		{64, 64, 7},
		{64, 32, 7},
		{100, 3, 7},
		{4096, 4096, 13},
	}
	for _, tt := range tests {
		if got := MipLevelCount(tt.w, tt.h); got != tt.want {
			t.Errorf("MipLevelCount(%d, %d) = %d, want %d", tt.w, tt.h, got, tt.want)
		}
	}
}

func TestUploadBuildsMipChain(t *testing.T) {
	dev := soft.New(64, 64)
	m := NewManager(dev)

	tex, err := m.Upload(64, 64, solid(64, 64, 255, 0, 0, 255))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if tex.MipLevels() != 7 {
		t.Errorf("MipLevels() = %d, want 7", tex.MipLevels())
	}
	if s := dev.Stats(); s.MipChains != 1 || s.TexturesCreated != 1 {
		t.Errorf("device stats = %+v, want one texture with one mip chain", s)
	}
	last, ok := dev.Level(tex.Storage(), 6)
	if !ok || last.Bounds().Dx() != 1 {
		t.Fatalf("level 6 missing or wrong size")
	}
	if c := last.NRGBAAt(0, 0); c.R < 250 || c.A < 250 {
		t.Errorf("smallest level = %v, want red", c)
	}
}

func TestUploadRejectsBadInput(t *testing.T) {
	m := NewManager(soft.New(8, 8))
	if _, err := m.Upload(0, 4, nil); err == nil {
		t.Error("Upload(0x4) error = nil, want error")
	}
	if _, err := m.Upload(2, 2, make([]byte, 3)); err == nil {
		t.Error("Upload() with short pixels error = nil, want error")
	}
}

func TestSubImageSharesStorage(t *testing.T) {
	dev := soft.New(64, 64)
	m := NewManager(dev)
	parent, err := m.Upload(64, 64, solid(64, 64, 0, 0, 255, 255))
	if err != nil {
		t.Fatal(err)
	}
	before := dev.Stats()

	sub, err := m.SubImage(parent, image.Rect(32, 32, 48, 48))
	if err != nil {
		t.Fatalf("SubImage() error = %v", err)
	}
	if sub.Storage() != parent.Storage() {
		t.Errorf("Storage() = %d, want parent's %d", sub.Storage(), parent.Storage())
	}
	if dev.Stats() != before || m.Uploads() != 1 {
		t.Errorf("SubImage touched the device: %+v -> %+v", before, dev.Stats())
	}
	if !sub.IsView() || sub.MipLevels() != parent.MipLevels() {
		t.Errorf("view = %v, mips = %d; want a view inheriting %d mips", sub.IsView(), sub.MipLevels(), parent.MipLevels())
	}
	if uv := sub.UV(); uv != [4]float32{0.5, 0.5, 0.25, 0.25} {
		t.Errorf("UV() = %v, want [0.5 0.5 0.25 0.25]", uv)
	}

	// Nested views compose offsets.
	inner, err := m.SubImage(sub, image.Rect(4, 4, 8, 8))
	if err != nil {
		t.Fatal(err)
	}
	if inner.Bounds() != image.Rect(36, 36, 40, 40) {
		t.Errorf("nested Bounds() = %v, want (36,36)-(40,40)", inner.Bounds())
	}

	if err := m.GenerateMipmaps(sub); err != nil || dev.Stats().MipChains != before.MipChains {
		t.Errorf("GenerateMipmaps(view) regenerated the chain (err=%v)", err)
	}
}

func TestSubImageOutOfBounds(t *testing.T) {
	m := NewManager(soft.New(8, 8))
	parent, err := m.Upload(64, 64, solid(64, 64, 1, 2, 3, 4))
	if err != nil {
		t.Fatal(err)
	}
	tests := []image.Rectangle{
		image.Rect(60, 60, 70, 70),
		image.Rect(-1, 0, 4, 4),
		image.Rect(0, 0, 0, 0),
	}
	for _, r := range tests {
		if _, err := m.SubImage(parent, r); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("SubImage(%v) error = %v, want ErrOutOfBounds", r, err)
		}
	}
	sub, _ := m.SubImage(parent, image.Rect(32, 32, 48, 48))
	if _, err := m.SubImage(sub, image.Rect(8, 8, 17, 17)); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("nested SubImage past view edge error = %v, want ErrOutOfBounds", err)
	}
}

func TestDestroyIgnoresViews(t *testing.T) {
	dev := soft.New(8, 8)
	m := NewManager(dev)
	parent, _ := m.Upload(4, 4, solid(4, 4, 9, 9, 9, 9))
	sub, _ := m.SubImage(parent, image.Rect(0, 0, 2, 2))

	m.Destroy(sub)
	if dev.Live() != 1 {
		t.Fatalf("Destroy(view) freed storage")
	}
	m.Destroy(parent)
	if dev.Live() != 0 {
		t.Errorf("Destroy(parent) left %d textures", dev.Live())
	}
}

func TestCopyBetweenSubImages(t *testing.T) {
	dev := soft.New(8, 8)
	m := NewManager(dev)
	px := solid(8, 8, 0, 0, 255, 255)
	// Left half red.
	for y := 0; y < 8; y++ {
		for x := 0; x < 4; x++ {
			px[(y*8+x)*4], px[(y*8+x)*4+2] = 255, 0
		}
	}
	src, _ := m.Upload(8, 8, px)
	dst, _ := m.Upload(4, 4, solid(4, 4, 0, 0, 0, 255))
	red, _ := m.SubImage(src, image.Rect(0, 4, 4, 8))
	corner, _ := m.SubImage(dst, image.Rect(2, 2, 4, 4))
	chains := dev.Stats().MipChains

	if err := m.Copy(corner, image.Pt(0, 0), red, image.Rect(1, 1, 3, 3)); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	lvl, _ := dev.Level(dst.Storage(), 0)
	if c := lvl.NRGBAAt(2, 2); c.R != 255 || c.B != 0 {
		t.Errorf("copied pixel = %v, want red", c)
	}
	if c := lvl.NRGBAAt(1, 1); c.R != 0 {
		t.Errorf("pixel outside the copy = %v, want black", c)
	}
	if dev.Stats().MipChains != chains+1 {
		t.Error("Copy() did not refresh the destination mip chain")
	}
}

func TestCopyRejectsBadRectangles(t *testing.T) {
	m := NewManager(soft.New(8, 8))
	a, _ := m.Upload(4, 4, solid(4, 4, 1, 1, 1, 1))
	b, _ := m.Upload(4, 4, solid(4, 4, 2, 2, 2, 2))

	if err := m.Copy(b, image.Pt(3, 3), a, image.Rect(0, 0, 2, 2)); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Copy() past the destination error = %v, want ErrOutOfBounds", err)
	}
	if err := m.Copy(b, image.Pt(0, 0), a, image.Rect(2, 2, 5, 5)); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Copy() past the source error = %v, want ErrOutOfBounds", err)
	}
	if err := m.Copy(a, image.Pt(1, 1), a, image.Rect(0, 0, 2, 2)); err == nil {
		t.Error("Copy() onto an overlapping region of the same storage succeeded")
	}
	if err := m.Copy(a, image.Pt(2, 2), a, image.Rect(0, 0, 2, 2)); err != nil {
		t.Errorf("Copy() within one storage error = %v", err)
	}
}
