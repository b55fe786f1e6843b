package transform

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/hubastard/spot/engine/colors"
	"github.com/hubastard/spot/engine/gfx"
)

// Rec. 709 luma weights.
const (
	lumaR = 0.2126
	lumaG = 0.7152
	lumaB = 0.0722
)

// ColorTransform is a 4x4 color matrix plus an additive vector expressed in
// 8-bit units (0..255). The zero value is not the identity; use
// IdentityColor.
type ColorTransform struct {
	Matrix mgl32.Mat4
	Vector mgl32.Vec4
}

// IdentityColor leaves colors unchanged.
func IdentityColor() ColorTransform {
	return ColorTransform{Matrix: mgl32.Ident4()}
}

// Grayscale blends toward luminance; amount 0 is unchanged, 1 is fully gray.
func Grayscale(amount float32) ColorTransform {
	amount = mgl32.Clamp(amount, 0, 1)
	gray := mgl32.Mat4{
		lumaR, lumaR, lumaR, 0,
		lumaG, lumaG, lumaG, 0,
		lumaB, lumaB, lumaB, 0,
		0, 0, 0, 1,
	}
	m := mgl32.Ident4().Mul(1 - amount).Add(gray.Mul(amount))
	return ColorTransform{Matrix: m}
}

// Brightness adds delta (8-bit units, may be negative) to each color channel.
func Brightness(delta float32) ColorTransform {
	return ColorTransform{
		Matrix: mgl32.Ident4(),
		Vector: mgl32.Vec4{delta, delta, delta, 0},
	}
}

// Contrast scales channels around mid-gray by factor.
func Contrast(factor float32) ColorTransform {
	offset := 255 * 0.5 * (1 - factor)
	return ColorTransform{
		Matrix: mgl32.Diag4(mgl32.Vec4{factor, factor, factor, 1}),
		Vector: mgl32.Vec4{offset, offset, offset, 0},
	}
}

// Tint multiplies channels by c.
func Tint(c colors.Color) ColorTransform {
	return ColorTransform{Matrix: mgl32.Diag4(mgl32.Vec4(c))}
}

// Then returns the transform applying t first and next second.
func (t ColorTransform) Then(next ColorTransform) ColorTransform {
	return ColorTransform{
		Matrix: next.Matrix.Mul4(t.Matrix),
		Vector: next.Matrix.Mul4x1(t.Vector).Add(next.Vector),
	}
}

// Uniform converts t to the GPU block with the vector normalized to 0..1.
func (t ColorTransform) Uniform() gfx.ColorUniform {
	v := t.Vector
	return gfx.ColorUniform{
		Matrix:     [16]float32(t.Matrix),
		Vector:     [4]float32{v[0] / 255, v[1] / 255, v[2] / 255, v[3] / 255},
		UseUniform: 1,
	}
}

// ApplyColor runs the fragment-stage color transform on c. With UseUniform
// zero, c is returned unchanged.
func ApplyColor(u gfx.ColorUniform, c colors.Color) colors.Color {
	if u.UseUniform == 0 {
		return c
	}
	out := mgl32.Mat4(u.Matrix).Mul4x1(mgl32.Vec4(c)).Add(mgl32.Vec4(u.Vector))
	return colors.Color(out)
}
