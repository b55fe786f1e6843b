package transform

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hubastard/spot/engine/colors"
	"github.com/hubastard/spot/engine/gfx"
)

func approxColor(a, b colors.Color) bool {
	return mgl32.Vec4(a).ApproxEqualThreshold(mgl32.Vec4(b), 1e-5)
}

func TestIdentityColorIsIdempotent(t *testing.T) {
	samples := []colors.Color{
		{0, 0, 0, 0},
		{1, 1, 1, 1},
		{0.25, 0.5, 0.75, 0.6},
	}
	disabled := IdentityColor().Uniform()
	disabled.UseUniform = 0
	enabled := IdentityColor().Uniform()

	for _, c := range samples {
		if got := ApplyColor(disabled, c); got != c {
			t.Errorf("ApplyColor(use=0, %v) = %v, want unchanged", c, got)
		}
		if got := ApplyColor(enabled, c); !approxColor(got, c) {
			t.Errorf("ApplyColor(identity, %v) = %v, want unchanged", c, got)
		}
		if got := ApplyColor(gfx.IdentityColor, c); got != c {
			t.Errorf("ApplyColor(gfx.IdentityColor, %v) = %v, want unchanged", c, got)
		}
	}
}

func TestUniformNormalizesVector(t *testing.T) {
	u := Brightness(51).Uniform()
	if u.UseUniform != 1 {
		t.Fatalf("UseUniform = %d, want 1", u.UseUniform)
	}
	if u.Vector != [4]float32{0.2, 0.2, 0.2, 0} {
		t.Errorf("Vector = %v, want [0.2 0.2 0.2 0]", u.Vector)
	}
	got := ApplyColor(u, colors.Color{0.5, 0.5, 0.5, 1})
	if !approxColor(got, colors.Color{0.7, 0.7, 0.7, 1}) {
		t.Errorf("brightened = %v, want [0.7 0.7 0.7 1]", got)
	}
}

func TestGrayscale(t *testing.T) {
	c := colors.Color{1, 0, 0, 1}
	if got := ApplyColor(Grayscale(0).Uniform(), c); !approxColor(got, c) {
		t.Errorf("Grayscale(0) = %v, want %v", got, c)
	}
	got := ApplyColor(Grayscale(1).Uniform(), c)
	want := colors.Color{lumaR, lumaR, lumaR, 1}
	if !approxColor(got, want) {
		t.Errorf("Grayscale(1) = %v, want %v", got, want)
	}
}

func TestContrastKeepsMidGray(t *testing.T) {
	mid := colors.Color{0.5, 0.5, 0.5, 1}
	if got := ApplyColor(Contrast(2).Uniform(), mid); !approxColor(got, mid) {
		t.Errorf("Contrast(2)(mid) = %v, want %v", got, mid)
	}
	got := ApplyColor(Contrast(2).Uniform(), colors.Color{0.75, 0.25, 0.5, 1})
	if !approxColor(got, colors.Color{1, 0, 0.5, 1}) {
		t.Errorf("Contrast(2) = %v, want [1 0 0.5 1]", got)
	}
}

func TestThenComposes(t *testing.T) {
	c := colors.Color{0.2, 0.4, 0.6, 1}
	tr := Tint(colors.Color{0.5, 0.5, 0.5, 1}).Then(Brightness(25.5))
	got := ApplyColor(tr.Uniform(), c)
	want := colors.Color{0.2, 0.3, 0.4, 1}
	if !approxColor(got, want) {
		t.Errorf("tint then brighten = %v, want %v", got, want)
	}
}
