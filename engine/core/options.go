package core

import (
	"image"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hubastard/spot/engine/gfx"
	"github.com/hubastard/spot/engine/gfx/transform"
)

// DrawOptions describes how to draw one image or string. Build it with At;
// every method returns a modified copy. The zero value draws at the origin
// with scale 1 and full opacity.
type DrawOptions struct {
	x, y     float32
	rotation float32
	scale    [2]float32
	scaled   bool
	opacity  float32
	faded    bool
	region   image.Rectangle
	size     [2]float32
	color    *transform.ColorTransform
	shader   gfx.PipelineID
	user     *gfx.UserGlobals
	clip     image.Rectangle
	maxWidth float32
}

// At starts options for a draw with its top-left at (x, y) pixels.
func At(x, y float32) DrawOptions { return DrawOptions{x: x, y: y} }

// Place starts options from a full placement, e.g. one a camera produced.
func Place(p transform.Placement) DrawOptions {
	return At(p.Position[0], p.Position[1]).Rotate(p.Rotation).Scale(p.Scale[0], p.Scale[1])
}

// Rotate sets the rotation in radians about the top-left corner.
func (o DrawOptions) Rotate(rad float32) DrawOptions { o.rotation = rad; return o }

func (o DrawOptions) Scale(sx, sy float32) DrawOptions {
	o.scale, o.scaled = [2]float32{sx, sy}, true
	return o
}

// Opacity is clamped to 0..1.
func (o DrawOptions) Opacity(a float32) DrawOptions {
	o.opacity, o.faded = mgl32.Clamp(a, 0, 1), true
	return o
}

// Region draws only r, in pixels relative to the image's top-left.
func (o DrawOptions) Region(r image.Rectangle) DrawOptions { o.region = r; return o }

// Size stretches the image to w×h pixels before scaling.
func (o DrawOptions) Size(w, h float32) DrawOptions { o.size = [2]float32{w, h}; return o }

// Color applies a color transform.
func (o DrawOptions) Color(ct transform.ColorTransform) DrawOptions { o.color = &ct; return o }

// Shader draws with a program returned by Context.RegisterShader.
func (o DrawOptions) Shader(id gfx.PipelineID) DrawOptions { o.shader = id; return o }

// Uniforms sets the user uniform block. Its opacity slot is overwritten.
func (o DrawOptions) Uniforms(u gfx.UserGlobals) DrawOptions { o.user = &u; return o }

// Clip restricts drawing to r in screen pixels.
func (o DrawOptions) Clip(r image.Rectangle) DrawOptions { o.clip = r; return o }

// Wrap sets the line width text wraps at.
func (o DrawOptions) Wrap(maxWidth float32) DrawOptions { o.maxWidth = maxWidth; return o }

func (o DrawOptions) placement() transform.Placement {
	p := transform.Placement{Position: [2]float32{o.x, o.y}, Rotation: o.rotation, Scale: [2]float32{1, 1}}
	if o.scaled {
		p.Scale = o.scale
	}
	return p
}

func (o DrawOptions) alpha() float32 {
	if o.faded {
		return o.opacity
	}
	return 1
}

func (o DrawOptions) uniforms() (gfx.UserGlobals, gfx.ColorUniform) {
	user := gfx.NewUserGlobals()
	if o.user != nil {
		user = *o.user
	}
	color := gfx.IdentityColor
	if o.color != nil {
		color = o.color.Uniform()
	}
	return user, color
}
