// Package camera maps world coordinates to screen pixels for 2D scenes.
package camera

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/hubastard/spot/engine/gfx/transform"
)

// Camera2D looks at (X, Y) in world space with the given rotation and
// zoom. The look-at point lands in the center of the viewport.
type Camera2D struct {
	X, Y        float32
	RotationRad float32
	Zoom        float32 // 1 = no zoom

	w, h  float32
	view  mgl32.Mat3
	dirty bool
}

func New(width, height int) *Camera2D {
	c := &Camera2D{Zoom: 1}
	c.SetViewportPixels(width, height)
	return c
}

func (c *Camera2D) SetViewportPixels(w, h int) {
	c.w, c.h = float32(w), float32(h)
	c.dirty = true
}

func (c *Camera2D) Move(dx, dy float32) { c.X += dx; c.Y += dy; c.dirty = true }
func (c *Camera2D) Rotate(dRad float32) { c.RotationRad += dRad; c.dirty = true }

func (c *Camera2D) SetZoom(z float32) {
	c.Zoom = max(z, 0.05)
	c.dirty = true
}

// View returns the world-to-screen matrix.
func (c *Camera2D) View() mgl32.Mat3 {
	if c.dirty {
		c.Recalculate()
	}
	return c.view
}

func (c *Camera2D) Recalculate() {
	c.view = mgl32.Translate2D(c.w*0.5, c.h*0.5).
		Mul3(mgl32.Scale2D(c.Zoom, c.Zoom)).
		Mul3(mgl32.HomogRotate2D(-c.RotationRad)).
		Mul3(mgl32.Translate2D(-c.X, -c.Y))
	c.dirty = false
}

// WorldToScreen maps a world point to screen pixels.
func (c *Camera2D) WorldToScreen(x, y float32) (float32, float32) {
	p := c.View().Mul3x1(mgl32.Vec3{x, y, 1})
	return p[0], p[1]
}

// ScreenToWorld maps screen pixels back to the world.
func (c *Camera2D) ScreenToWorld(x, y float32) (float32, float32) {
	p := c.View().Inv().Mul3x1(mgl32.Vec3{x, y, 1})
	return p[0], p[1]
}

// Apply turns a world placement into a screen placement.
func (c *Camera2D) Apply(p transform.Placement) transform.Placement {
	x, y := c.WorldToScreen(p.Position[0], p.Position[1])
	return transform.Placement{
		Position: [2]float32{x, y},
		Rotation: p.Rotation - c.RotationRad,
		Scale:    [2]float32{p.Scale[0] * c.Zoom, p.Scale[1] * c.Zoom},
	}
}
