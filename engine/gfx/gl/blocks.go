package glbackend

import (
	"image"
	"math"

	"github.com/hubastard/spot/engine/gfx"
)

// std140 sizes in floats.
const (
	batchFloats = 16*4 + 16 + 4 + 4 // user, matrix, vector, flag + padding
	frameFloats = 8
)

// batchBlock packs the per-batch uniforms in std140 order.
func batchBlock(dst *[batchFloats]float32, user *gfx.UserGlobals, color *gfx.ColorUniform) {
	for i, v := range user {
		copy(dst[i*4:], v[:])
	}
	copy(dst[64:], color.Matrix[:])
	copy(dst[80:], color.Vector[:])
	dst[84] = math.Float32frombits(color.UseUniform)
}

// frameBlock packs the per-pass uniforms. Texture rows are stored top
// first, so offscreen passes flip Y to keep row 0 at the top.
func frameBlock(dst *[frameFloats]float32, g gfx.EngineGlobals, offscreen bool) {
	copy(dst[:], g.Screen[:])
	dst[4] = g.Opacity
	dst[5] = 1
	if offscreen {
		dst[5] = -1
	}
}

// scissor converts a top-left pixel rectangle into GL's bottom-left one.
func scissor(r image.Rectangle, height int) (x, y, w, h int32) {
	return int32(r.Min.X), int32(height - r.Max.Y), int32(r.Dx()), int32(r.Dy())
}

// targetScissor places a viewport-relative clip inside an offscreen
// viewport. Texture rows need no flip. The zero clip covers the viewport.
func targetScissor(clip, viewport image.Rectangle) (x, y, w, h int32) {
	r := viewport
	if !clip.Empty() {
		r = clip.Add(viewport.Min).Intersect(viewport)
	}
	return int32(r.Min.X), int32(r.Min.Y), int32(r.Dx()), int32(r.Dy())
}

// flipRows reverses the row order of img in place.
func flipRows(img *image.NRGBA) {
	h := img.Bounds().Dy()
	row := make([]byte, img.Stride)
	for y := 0; y < h/2; y++ {
		a := img.Pix[y*img.Stride : (y+1)*img.Stride]
		b := img.Pix[(h-1-y)*img.Stride : (h-y)*img.Stride]
		copy(row, a)
		copy(a, b)
		copy(b, row)
	}
}
