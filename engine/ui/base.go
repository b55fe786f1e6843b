// Package ui lays out panels of text on top of a scene. Elements are built
// fresh each frame with chained setters, measured bottom-up, arranged
// top-down, then drawn through the engine context.
package ui

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hubastard/spot/engine/colors"
	"github.com/hubastard/spot/engine/core"
	"github.com/hubastard/spot/engine/text"
)

type SizeMode int

const (
	SizeModeFit SizeMode = iota
	SizeModeFixed
	SizeModeExpand
)

// Constraints bound a size per axis. A zero Max is unbounded.
type Constraints struct {
	Min [2]float32
	Max [2]float32
}

// Context is what elements draw with.
type Context struct {
	Viewport [4]float32 // x, y, w, h
	Font     text.FontID
	FontSize float32
	Target   *core.Context

	err error
}

func (c *Context) fail(err error) {
	if c.err == nil && err != nil {
		c.err = err
	}
}

type Element interface {
	Node() *Base
	Measure(ctx *Context, c Constraints) [2]float32
	Arrange(pos, size [2]float32)
	Draw(ctx *Context)
}

// Draw measures root against the viewport, places it at the viewport's
// top-left and draws it. It returns the first error any element hit.
func Draw(ctx *Context, root Element) error {
	ctx.err = nil
	size := root.Measure(ctx, Constraints{Max: [2]float32{ctx.Viewport[2], ctx.Viewport[3]}})
	root.Arrange([2]float32{ctx.Viewport[0], ctx.Viewport[1]}, size)
	root.Draw(ctx)
	return ctx.err
}

type Base struct {
	children []Element
	pos      [2]float32
	size     [2]float32
	color    colors.Color
	mode     [2]SizeMode
	fixed    [2]float32
	padding  [4]float32 // left, top, right, bottom
}

func (b *Base) Children() []Element { return b.children }
func (b *Base) Pos() [2]float32     { return b.pos }
func (b *Base) Size() [2]float32    { return b.size }

func limit(v float32) float32 {
	if v == 0 {
		return math.MaxFloat32
	}
	return v
}

// pad returns the padding along axis (0 = x, 1 = y).
func (b *Base) pad(axis int) float32 { return b.padding[axis] + b.padding[axis+2] }

// resolve sizes one axis from content (padding excluded).
func (b *Base) resolve(axis int, content float32, c Constraints) float32 {
	v := content + b.pad(axis)
	switch b.mode[axis] {
	case SizeModeFixed:
		v = b.fixed[axis]
	case SizeModeExpand:
		if c.Max[axis] > 0 {
			v = c.Max[axis]
		}
	}
	return mgl32.Clamp(v, c.Min[axis], limit(c.Max[axis]))
}

func (b *Base) inner() (pos, size [2]float32) {
	pos = [2]float32{b.pos[0] + b.padding[0], b.pos[1] + b.padding[1]}
	size = [2]float32{max(0, b.size[0]-b.pad(0)), max(0, b.size[1]-b.pad(1))}
	return pos, size
}

// Common carries the setters every element shares.
type Common[T any] struct {
	owner T
	base  Base
}

func NewCommon[T any](owner T) Common[T] { return Common[T]{owner: owner} }

func (c *Common[T]) Node() *Base              { return &c.base }
func (c *Common[T]) Color(col colors.Color) T { c.base.color = col; return c.owner }

func (c *Common[T]) Size(w, h float32) T {
	c.base.mode = [2]SizeMode{SizeModeFixed, SizeModeFixed}
	c.base.fixed = [2]float32{w, h}
	return c.owner
}

func (c *Common[T]) WidthFixed(w float32) T {
	c.base.mode[0], c.base.fixed[0] = SizeModeFixed, w
	return c.owner
}

func (c *Common[T]) WidthExpand() T  { c.base.mode[0] = SizeModeExpand; return c.owner }
func (c *Common[T]) HeightExpand() T { c.base.mode[1] = SizeModeExpand; return c.owner }

func (c *Common[T]) Padding(all float32) T {
	c.base.padding = [4]float32{all, all, all, all}
	return c.owner
}

func (c *Common[T]) Padding2(horizontal, vertical float32) T {
	c.base.padding = [4]float32{horizontal, vertical, horizontal, vertical}
	return c.owner
}

func (c *Common[T]) Padding4(left, top, right, bottom float32) T {
	c.base.padding = [4]float32{left, top, right, bottom}
	return c.owner
}

func (c *Common[T]) Arrange(pos, size [2]float32) { c.base.pos, c.base.size = pos, size }
