// Package texture manages device textures: uploads with mip chains, atlas
// sub-images that share their parent's storage, and rectangle packing.
package texture

import (
	"errors"
	"fmt"
	"image"
	"math/bits"

	"github.com/hubastard/spot/engine/colors"
	"github.com/hubastard/spot/engine/gfx"
	"github.com/hubastard/spot/engine/gfx/transform"
	"github.com/hubastard/spot/engine/logging"
)

// ErrOutOfBounds is returned when a sub-image rectangle leaves its parent.
var ErrOutOfBounds = errors.New("texture: rectangle out of bounds")

// Texture is a rectangular region of device storage. Uploaded textures cover
// the whole storage; sub-images cover part of it and never own it.
type Texture struct {
	storage   gfx.TextureID
	storageW  int
	storageH  int
	bounds    image.Rectangle
	mipLevels uint32
	view      bool
}

// Storage identifies the backing device texture.
func (t Texture) Storage() gfx.TextureID { return t.storage }

// Bounds is the region within the storage, in pixels.
func (t Texture) Bounds() image.Rectangle { return t.bounds }

func (t Texture) Width() int  { return t.bounds.Dx() }
func (t Texture) Height() int { return t.bounds.Dy() }

// StorageSize is the size of the backing storage in pixels.
func (t Texture) StorageSize() (int, int) { return t.storageW, t.storageH }

// MipLevels is the level count of the backing storage.
func (t Texture) MipLevels() uint32 { return t.mipLevels }

// IsView reports whether t is a sub-image of another texture.
func (t Texture) IsView() bool { return t.view }

// UV is the normalized (u0, v0, w, h) rect of t within its storage.
func (t Texture) UV() [4]float32 {
	return transform.UVRect(t.bounds, t.storageW, t.storageH)
}

// MipLevelCount is floor(log2(max(w, h))) + 1.
func MipLevelCount(w, h int) uint32 {
	n := max(w, h)
	if n < 1 {
		return 1
	}
	return uint32(bits.Len(uint(n)))
}

// Manager creates and destroys device textures.
type Manager struct {
	dev     gfx.Device
	uploads int
}

func NewManager(dev gfx.Device) *Manager { return &Manager{dev: dev} }

// Uploads counts storage allocations made through m.
func (m *Manager) Uploads() int { return m.uploads }

// Upload creates storage for a w×h RGBA8 image, writes pixels and builds the
// full mip chain.
func (m *Manager) Upload(w, h int, pixels []byte) (Texture, error) {
	if w <= 0 || h <= 0 {
		return Texture{}, fmt.Errorf("texture: invalid size %dx%d", w, h)
	}
	if len(pixels) != w*h*4 {
		return Texture{}, fmt.Errorf("texture: got %d bytes of pixels, want %d", len(pixels), w*h*4)
	}
	tex, err := m.allocate("image", w, h, MipLevelCount(w, h))
	if err != nil {
		return Texture{}, err
	}
	if err := m.dev.WriteTexture(tex.storage, tex.bounds, pixels); err != nil {
		m.dev.DestroyTexture(tex.storage)
		return Texture{}, fmt.Errorf("texture: write: %w", err)
	}
	if err := m.GenerateMipmaps(tex); err != nil {
		m.dev.DestroyTexture(tex.storage)
		return Texture{}, err
	}
	return tex, nil
}

// UploadImage uploads img.
func (m *Manager) UploadImage(img *image.NRGBA) (Texture, error) {
	b := img.Bounds()
	return m.Upload(b.Dx(), b.Dy(), Pixels(img))
}

// Pixels returns img's pixels as tightly packed rows, copying only when
// the stride has padding.
func Pixels(img *image.NRGBA) []byte {
	b := img.Bounds()
	if img.Stride == b.Dx()*4 && len(img.Pix) == b.Dx()*b.Dy()*4 {
		return img.Pix
	}
	pix := make([]byte, 0, b.Dx()*b.Dy()*4)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		pix = append(pix, img.Pix[off:off+b.Dx()*4]...)
	}
	return pix
}

// Allocate creates uninitialized single-level storage, used for atlases
// that are filled incrementally.
func (m *Manager) Allocate(label string, w, h int) (Texture, error) {
	return m.allocate(label, w, h, 1)
}

func (m *Manager) allocate(label string, w, h int, mips uint32) (Texture, error) {
	id, err := m.dev.CreateTexture(gfx.TextureDescriptor(label, w, h, mips), gfx.SamplerDescriptor(mips))
	if err != nil {
		return Texture{}, fmt.Errorf("texture: create %dx%d: %w", w, h, err)
	}
	m.uploads++
	logging.Logger().Debug("texture allocated", "id", id, "w", w, "h", h, "mips", mips)
	return Texture{
		storage:   id,
		storageW:  w,
		storageH:  h,
		bounds:    image.Rect(0, 0, w, h),
		mipLevels: mips,
	}, nil
}

// Write replaces the pixels of r, given relative to tex.
func (m *Manager) Write(tex Texture, r image.Rectangle, pixels []byte) error {
	abs := r.Add(tex.bounds.Min)
	if !abs.In(tex.bounds) {
		return fmt.Errorf("%w: %v not in %v", ErrOutOfBounds, r, image.Rect(0, 0, tex.Width(), tex.Height()))
	}
	if len(pixels) != r.Dx()*r.Dy()*4 {
		return fmt.Errorf("texture: got %d bytes of pixels, want %d", len(pixels), r.Dx()*r.Dy()*4)
	}
	return m.dev.WriteTexture(tex.storage, abs, pixels)
}

// SubImage returns the region r of parent, relative to parent's top-left,
// as a texture sharing parent's storage and mip chain.
func (m *Manager) SubImage(parent Texture, r image.Rectangle) (Texture, error) {
	if r.Empty() {
		return Texture{}, fmt.Errorf("%w: empty rectangle %v", ErrOutOfBounds, r)
	}
	abs := r.Add(parent.bounds.Min)
	if !abs.In(parent.bounds) {
		return Texture{}, fmt.Errorf("%w: %v exceeds %dx%d", ErrOutOfBounds, r, parent.Width(), parent.Height())
	}
	sub := parent
	sub.bounds = abs
	sub.view = true
	return sub, nil
}

// GenerateMipmaps builds the storage's mip chain. Views inherit their
// parent's chain, so the call is a no-op for them.
func (m *Manager) GenerateMipmaps(tex Texture) error {
	if tex.view || tex.mipLevels <= 1 {
		return nil
	}
	if err := m.dev.GenerateMipmaps(tex.storage); err != nil {
		return fmt.Errorf("texture: mipmaps: %w", err)
	}
	return nil
}

// Refresh rebuilds the mip chain of tex's storage after its level 0 was
// changed on the device. Unlike GenerateMipmaps it also runs for views.
func (m *Manager) Refresh(tex Texture) error {
	if tex.mipLevels <= 1 {
		return nil
	}
	if err := m.dev.GenerateMipmaps(tex.storage); err != nil {
		return fmt.Errorf("texture: mipmaps: %w", err)
	}
	return nil
}

// Copy copies r of src, relative to src, into dst with its top-left at at,
// relative to dst, then refreshes dst's mip chain. Copies between
// overlapping regions of one storage are rejected.
func (m *Manager) Copy(dst Texture, at image.Point, src Texture, r image.Rectangle) error {
	if r.Empty() {
		return fmt.Errorf("%w: empty rectangle %v", ErrOutOfBounds, r)
	}
	from := r.Add(src.bounds.Min)
	if !from.In(src.bounds) {
		return fmt.Errorf("%w: %v exceeds %dx%d source", ErrOutOfBounds, r, src.Width(), src.Height())
	}
	to := r.Sub(r.Min).Add(at).Add(dst.bounds.Min)
	if !to.In(dst.bounds) {
		return fmt.Errorf("%w: %v at %v exceeds %dx%d destination", ErrOutOfBounds, r, at, dst.Width(), dst.Height())
	}
	if src.storage == dst.storage && from.Overlaps(to) {
		return fmt.Errorf("texture: copy %v onto overlapping %v", from, to)
	}
	if err := m.dev.CopyTexture(dst.storage, to.Min, src.storage, from); err != nil {
		return fmt.Errorf("texture: copy: %w", err)
	}
	return m.Refresh(dst)
}

// Clear fills tex with c and refreshes the mip chain of owned storage.
func (m *Manager) Clear(tex Texture, c colors.Color) error {
	px := c.RGBA8()
	pixels := make([]byte, tex.Width()*tex.Height()*4)
	for i := 0; i < len(pixels); i += 4 {
		pixels[i], pixels[i+1], pixels[i+2], pixels[i+3] = px.R, px.G, px.B, px.A
	}
	if err := m.dev.WriteTexture(tex.storage, tex.bounds, pixels); err != nil {
		return fmt.Errorf("texture: clear: %w", err)
	}
	return m.GenerateMipmaps(tex)
}

// Destroy frees owned storage. Destroying a view does nothing.
func (m *Manager) Destroy(tex Texture) {
	if tex.view || tex.storage == 0 {
		return
	}
	m.dev.DestroyTexture(tex.storage)
	logging.Logger().Debug("texture destroyed", "id", tex.storage)
}
