package transform

import (
	"image"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hubastard/spot/engine/gfx"
)

func TestToNDCCorners(t *testing.T) {
	const w, h = 800, 600
	tests := []struct {
		x, y   float32
		nx, ny float32
	}{
		{0, 0, -1, 1},
		{w, h, 1, -1},
		{w, 0, 1, 1},
		{0, h, -1, -1},
		{w / 2, h / 2, 0, 0},
		{200, 450, 2*200.0/w - 1, 1 - 2*450.0/h},
	}
	for _, tt := range tests {
		nx, ny := ToNDC(tt.x, tt.y, w, h)
		if !mgl32.FloatEqual(nx, tt.nx) || !mgl32.FloatEqual(ny, tt.ny) {
			t.Errorf("ToNDC(%v, %v) = (%v, %v), want (%v, %v)", tt.x, tt.y, nx, ny, tt.nx, tt.ny)
		}
	}
}

func TestGlobalsReciprocals(t *testing.T) {
	g := Globals(800, 400, 0.5)
	want := [4]float32{2.0 / 800, 2.0 / 400, 1.0 / 800, 1.0 / 400}
	if g.Screen != want {
		t.Errorf("Screen = %v, want %v", g.Screen, want)
	}
	if g.Opacity != 0.5 {
		t.Errorf("Opacity = %v, want 0.5", g.Opacity)
	}
}

func TestCornersUnrotated(t *testing.T) {
	in := Instance(Placement{Scale: [2]float32{1, 1}}, 800, 600, [4]float32{0, 0, 1, 1})
	c := Corners(in, 800, 600)
	want := [4]mgl32.Vec2{{-1, 1}, {1, 1}, {-1, -1}, {1, -1}}
	for i := range want {
		if !c[i].ApproxEqual(want[i]) {
			t.Errorf("corner %d = %v, want %v", i, c[i], want[i])
		}
	}
}

func TestModelOrderScaleRotateTranslate(t *testing.T) {
	// A 10x20 quad scaled by 2 and rotated a quarter turn about its
	// top-left corner placed at (100, 50).
	in := Instance(Placement{
		Position: [2]float32{100, 50},
		Rotation: math.Pi / 2,
		Scale:    [2]float32{2, 2},
	}, 10, 20, [4]float32{})

	if in.Size != [2]float32{20, 40} {
		t.Fatalf("Size = %v, want [20 40]", in.Size)
	}
	px := PixelCorners(in)
	want := [4]mgl32.Vec2{
		{100, 50}, // top-left stays on the pivot
		{100, 70}, // +x edge (20px) rotated onto +y
		{60, 50},  // +y edge (40px) rotated onto -x
		{60, 70},
	}
	for i := range want {
		if !px[i].ApproxEqualThreshold(want[i], 1e-4) {
			t.Errorf("corner %d = %v, want %v", i, px[i], want[i])
		}
	}
	if got := Bounds(in); got != image.Rect(60, 50, 100, 70) {
		t.Errorf("Bounds() = %v, want (60,50)-(100,70)", got)
	}
}

func TestVisible(t *testing.T) {
	tests := []struct {
		name string
		pos  [2]float32
		want bool
	}{
		{"inside", [2]float32{10, 10}, true},
		{"partially left", [2]float32{-5, 10}, true},
		{"fully right", [2]float32{101, 10}, false},
		{"fully above", [2]float32{10, -20}, false},
	}
	for _, tt := range tests {
		in := Instance(Placement{Position: tt.pos, Scale: [2]float32{1, 1}}, 10, 10, [4]float32{})
		if got := Visible(in, 100, 100); got != tt.want {
			t.Errorf("%s: Visible() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestUVRectAndSubUV(t *testing.T) {
	uv := UVRect(image.Rect(32, 32, 48, 48), 64, 64)
	want := [4]float32{0.5, 0.5, 0.25, 0.25}
	if uv != want {
		t.Fatalf("UVRect() = %v, want %v", uv, want)
	}
	// Top-left quarter of that region.
	sub := SubUV(uv, image.Rect(0, 0, 8, 8), 16, 16)
	if sub != [4]float32{0.5, 0.5, 0.125, 0.125} {
		t.Errorf("SubUV() = %v", sub)
	}
	sub = SubUV(uv, image.Rect(8, 8, 16, 16), 16, 16)
	if sub != [4]float32{0.625, 0.625, 0.125, 0.125} {
		t.Errorf("SubUV() = %v", sub)
	}
}

func TestInstanceCarriesUV(t *testing.T) {
	uv := [4]float32{0.1, 0.2, 0.3, 0.4}
	in := Instance(Placement{Scale: [2]float32{1, 1}}, 4, 4, uv)
	if in.UV != uv {
		t.Errorf("UV = %v, want %v", in.UV, uv)
	}
	var _ gfx.Instance = in
}
