// Package transform turns draw parameters into instance records and uniform
// blocks: pixel space to NDC, local model matrices and color transforms.
package transform

import (
	"image"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hubastard/spot/engine/gfx"
)

// ToNDC maps a pixel position on a w×h screen (Y down) to normalized device
// coordinates (Y up): (0,0) is (-1,1) and (w,h) is (1,-1).
func ToNDC(x, y, w, h float32) (float32, float32) {
	return 2*x/w - 1, 1 - 2*y/h
}

// Globals builds the per-frame engine block for a w×h screen.
func Globals(w, h int, opacity float32) gfx.EngineGlobals {
	fw, fh := float32(w), float32(h)
	return gfx.EngineGlobals{
		Screen:  [4]float32{2 / fw, 2 / fh, 1 / fw, 1 / fh},
		Opacity: opacity,
	}
}

// Placement positions one quad on screen.
type Placement struct {
	Position [2]float32 // top-left in pixels
	Rotation float32    // radians, about the top-left corner
	Scale    [2]float32
}

// Instance builds the record for a region of size (w, h) pixels with the
// given normalized uv rect.
func Instance(p Placement, w, h float32, uv [4]float32) gfx.Instance {
	return gfx.Instance{
		Position: p.Position,
		Rotation: p.Rotation,
		Size:     [2]float32{w * p.Scale[0], h * p.Scale[1]},
		UV:       uv,
	}
}

// Model returns the matrix mapping the unit quad to pixel space for in:
// scale to size, then rotate, then translate.
func Model(in gfx.Instance) mgl32.Mat3 {
	return mgl32.Translate2D(in.Position[0], in.Position[1]).
		Mul3(mgl32.HomogRotate2D(in.Rotation)).
		Mul3(mgl32.Scale2D(in.Size[0], in.Size[1]))
}

// unitCorners are the quad corners in strip order: TL, TR, BL, BR.
var unitCorners = [4]mgl32.Vec2{{0, 0}, {1, 0}, {0, 1}, {1, 1}}

// PixelCorners returns the four corners of in in pixel space, TL, TR, BL, BR.
func PixelCorners(in gfx.Instance) [4]mgl32.Vec2 {
	m := Model(in)
	var out [4]mgl32.Vec2
	for i, c := range unitCorners {
		out[i] = m.Mul3x1(c.Vec3(1)).Vec2()
	}
	return out
}

// Corners returns the four NDC corners of in on a w×h screen.
func Corners(in gfx.Instance, w, h int) [4]mgl32.Vec2 {
	px := PixelCorners(in)
	var out [4]mgl32.Vec2
	for i, p := range px {
		x, y := ToNDC(p[0], p[1], float32(w), float32(h))
		out[i] = mgl32.Vec2{x, y}
	}
	return out
}

// Bounds returns the integer pixel bounding box of in.
func Bounds(in gfx.Instance) image.Rectangle {
	px := PixelCorners(in)
	minX, minY := px[0][0], px[0][1]
	maxX, maxY := minX, minY
	for _, p := range px[1:] {
		minX = min(minX, p[0])
		minY = min(minY, p[1])
		maxX = max(maxX, p[0])
		maxY = max(maxY, p[1])
	}
	return image.Rect(floorPx(minX), floorPx(minY), ceilPx(maxX), ceilPx(maxY))
}

// snap absorbs float error from rotations so exact edges stay exact.
const snap = 1e-3

func floorPx(v float32) int { return int(math.Floor(float64(v) + snap)) }
func ceilPx(v float32) int  { return int(math.Ceil(float64(v) - snap)) }

// Visible reports whether in overlaps a w×h viewport.
func Visible(in gfx.Instance, w, h int) bool {
	return Bounds(in).Overlaps(image.Rect(0, 0, w, h))
}

// UVRect maps pixel bounds inside a storage of size (sw, sh) to a
// normalized (u0, v0, w, h) rect.
func UVRect(bounds image.Rectangle, sw, sh int) [4]float32 {
	fw, fh := float32(sw), float32(sh)
	return [4]float32{
		float32(bounds.Min.X) / fw,
		float32(bounds.Min.Y) / fh,
		float32(bounds.Dx()) / fw,
		float32(bounds.Dy()) / fh,
	}
}

// SubUV narrows parent by a pixel rect given relative to a parent region of
// size (pw, ph) pixels.
func SubUV(parent [4]float32, r image.Rectangle, pw, ph int) [4]float32 {
	fw, fh := float32(pw), float32(ph)
	return [4]float32{
		parent[0] + float32(r.Min.X)/fw*parent[2],
		parent[1] + float32(r.Min.Y)/fh*parent[3],
		float32(r.Dx()) / fw * parent[2],
		float32(r.Dy()) / fh * parent[3],
	}
}
