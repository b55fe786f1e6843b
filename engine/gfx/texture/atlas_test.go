package texture

import (
	"errors"
	"image"
	"testing"

	"github.com/hubastard/spot/engine/gfx/soft"
)

func TestPackerNoOverlap(t *testing.T) {
	p := NewPacker(64, 64, 2)
	var cells []image.Rectangle
	for i := 0; i < 8; i++ {
		cell, content, ok := p.Insert(10, 6)
		if !ok {
			t.Fatalf("Insert #%d failed", i)
		}
		if content != cell.Inset(2) || content.Dx() != 10 || content.Dy() != 6 {
			t.Errorf("content = %v for cell %v", content, cell)
		}
		if !cell.In(image.Rect(0, 0, 64, 64)) {
			t.Errorf("cell %v outside packer", cell)
		}
		for _, c := range cells {
			if c.Overlaps(cell) {
				t.Errorf("cell %v overlaps %v", cell, c)
			}
		}
		cells = append(cells, cell)
	}
	if _, _, ok := p.Insert(61, 61); ok {
		t.Error("Insert larger than the remaining area succeeded")
	}
	p.Reset()
	if _, _, ok := p.Insert(60, 60); !ok {
		t.Error("Insert after Reset failed")
	}
}

func TestExtrude(t *testing.T) {
	// 2x1 sprite: red, green.
	src := []byte{255, 0, 0, 255, 0, 255, 0, 255}
	out := Extrude(src, 2, 1, 1)
	// 4x3 result; every row is red red green green.
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			i := (y*4 + x) * 4
			wantRed := x < 2
			if (out[i] == 255) != wantRed || (out[i+1] == 255) == wantRed {
				t.Errorf("pixel (%d,%d) = %v", x, y, out[i:i+4])
			}
		}
	}
}

func TestAtlasAdd(t *testing.T) {
	dev := soft.New(8, 8)
	m := NewManager(dev)
	a, err := NewAtlas(m, "glyphs", 32, 1)
	if err != nil {
		t.Fatal(err)
	}

	sub, err := a.Add(4, 4, solid(4, 4, 10, 20, 30, 255))
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if sub.Storage() != a.Texture().Storage() || sub.Width() != 4 {
		t.Errorf("Add() = %+v, want 4px view into the atlas", sub)
	}
	lvl, _ := dev.Level(sub.Storage(), 0)
	b := sub.Bounds()
	if c := lvl.NRGBAAt(b.Min.X, b.Min.Y); c.R != 10 || c.A != 255 {
		t.Errorf("atlas pixel = %v, want sprite color", c)
	}
	// Padding was extruded from the edge.
	if c := lvl.NRGBAAt(b.Min.X-1, b.Min.Y-1); c.R != 10 {
		t.Errorf("padding pixel = %v, want extruded sprite color", c)
	}

	empty, err := a.Add(0, 0, nil)
	if err != nil || !empty.Bounds().Empty() {
		t.Errorf("Add(0x0) = %v, %v", empty.Bounds(), err)
	}
	if a.Len() != 1 {
		t.Errorf("Len() = %d, want 1", a.Len())
	}

	if _, err := a.Add(40, 40, solid(40, 40, 0, 0, 0, 0)); !errors.Is(err, ErrAtlasFull) {
		t.Errorf("Add(oversized) error = %v, want ErrAtlasFull", err)
	}
}
