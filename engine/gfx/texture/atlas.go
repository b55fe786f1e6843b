package texture

import (
	"errors"
	"fmt"
	"image"

	"github.com/hubastard/spot/engine/colors"
)

// ErrAtlasFull is returned when a sprite no longer fits into an atlas.
var ErrAtlasFull = errors.New("texture: atlas full")

// node is a binary space-partition cell of the packer.
type node struct {
	rect        image.Rectangle
	left, right *node
	filled      bool
}

func (n *node) insert(w, h int) (image.Point, bool) {
	if n.left != nil {
		if p, ok := n.left.insert(w, h); ok {
			return p, true
		}
		return n.right.insert(w, h)
	}
	if n.filled || w > n.rect.Dx() || h > n.rect.Dy() {
		return image.Point{}, false
	}
	if w == n.rect.Dx() && h == n.rect.Dy() {
		n.filled = true
		return n.rect.Min, true
	}

	r := n.rect
	if dw, dh := r.Dx()-w, r.Dy()-h; dw > dh {
		n.left = &node{rect: image.Rect(r.Min.X, r.Min.Y, r.Min.X+w, r.Max.Y)}
		n.right = &node{rect: image.Rect(r.Min.X+w, r.Min.Y, r.Max.X, r.Max.Y)}
	} else {
		n.left = &node{rect: image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+h)}
		n.right = &node{rect: image.Rect(r.Min.X, r.Min.Y+h, r.Max.X, r.Max.Y)}
	}
	return n.left.insert(w, h)
}

// Packer places rectangles into a fixed area, reserving Padding pixels on
// every side of each rectangle.
type Packer struct {
	Width, Height int
	Padding       int
	root          *node
}

func NewPacker(w, h, padding int) *Packer {
	return &Packer{Width: w, Height: h, Padding: padding, root: &node{rect: image.Rect(0, 0, w, h)}}
}

// Insert reserves space for a w×h sprite. It returns the padded cell and the
// content rectangle inside it.
func (p *Packer) Insert(w, h int) (cell, content image.Rectangle, ok bool) {
	pw, ph := w+2*p.Padding, h+2*p.Padding
	at, ok := p.root.insert(pw, ph)
	if !ok {
		return image.Rectangle{}, image.Rectangle{}, false
	}
	cell = image.Rect(at.X, at.Y, at.X+pw, at.Y+ph)
	return cell, cell.Inset(p.Padding), true
}

// Reset forgets every placement.
func (p *Packer) Reset() {
	p.root = &node{rect: image.Rect(0, 0, p.Width, p.Height)}
}

// Extrude surrounds a w×h RGBA8 sprite with padding pixels copied from its
// nearest edge, so linear filtering never blends in a neighbor.
func Extrude(pixels []byte, w, h, padding int) []byte {
	nw, nh := w+2*padding, h+2*padding
	out := make([]byte, nw*nh*4)
	for y := 0; y < nh; y++ {
		sy := min(max(y-padding, 0), h-1)
		for x := 0; x < nw; x++ {
			sx := min(max(x-padding, 0), w-1)
			copy(out[(y*nw+x)*4:(y*nw+x)*4+4], pixels[(sy*w+sx)*4:(sy*w+sx)*4+4])
		}
	}
	return out
}

// Atlas is a single storage texture that sprites are packed into.
type Atlas struct {
	m      *Manager
	tex    Texture
	packer *Packer
	count  int
}

// NewAtlas allocates a size×size atlas with the given sprite padding.
func NewAtlas(m *Manager, label string, size, padding int) (*Atlas, error) {
	tex, err := m.Allocate(label, size, size)
	if err != nil {
		return nil, err
	}
	if err := m.Clear(tex, colors.Transparent); err != nil {
		m.Destroy(tex)
		return nil, err
	}
	return &Atlas{m: m, tex: tex, packer: NewPacker(size, size, padding)}, nil
}

// Texture returns the whole atlas.
func (a *Atlas) Texture() Texture { return a.tex }

// Len is the number of sprites added.
func (a *Atlas) Len() int { return a.count }

// Add packs a w×h RGBA8 sprite and returns its region as a sub-image.
// Zero-sized sprites yield an empty view without consuming space.
func (a *Atlas) Add(w, h int, pixels []byte) (Texture, error) {
	if w == 0 || h == 0 {
		v := a.tex
		v.bounds = image.Rectangle{Min: a.tex.bounds.Min, Max: a.tex.bounds.Min}
		v.view = true
		return v, nil
	}
	cell, content, ok := a.packer.Insert(w, h)
	if !ok {
		return Texture{}, fmt.Errorf("%w: no room for %dx%d", ErrAtlasFull, w, h)
	}
	if err := a.m.Write(a.tex, cell, Extrude(pixels, w, h, a.packer.Padding)); err != nil {
		return Texture{}, err
	}
	a.count++
	return a.m.SubImage(a.tex, content)
}

// Destroy frees the atlas storage. Views taken from it become unusable.
func (a *Atlas) Destroy() {
	a.m.Destroy(a.tex)
	a.packer.Reset()
	a.count = 0
}
