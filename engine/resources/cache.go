// Package resources is the engine's texture and font cache. Entries are
// deduplicated by source fingerprint, shared through reference counting and
// destroyed only once no frame in flight can still use them.
package resources

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"

	"github.com/hubastard/spot/engine/assets"
	"github.com/hubastard/spot/engine/gfx/texture"
	"github.com/hubastard/spot/engine/logging"
	"golang.org/x/image/font/opentype"
)

// Kind is the type of a cached resource.
type Kind int

const (
	KindTexture Kind = iota + 1
	KindFont
)

// Handle names a cache entry. The zero Handle is never valid.
type Handle struct {
	index uint32
	gen   uint32
}

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool { return h.gen == 0 }

func (h Handle) String() string { return fmt.Sprintf("%d#%d", h.index, h.gen) }

// Ref is the resource behind a handle.
type Ref struct {
	Kind    Kind
	Texture texture.Texture
	Font    *opentype.Font
}

type entryState uint8

const (
	stateFree entryState = iota
	stateLive
	stateReleased
)

type entry struct {
	gen    uint32
	state  entryState
	key    string
	refs   int
	ref    Ref
	parent Handle
	owned  bool
}

// Stats is a snapshot of cache activity.
type Stats struct {
	Live    int
	Pending int
	Decodes int
	Uploads int
	// Packed counts images placed into shared atlases.
	Packed  int
	Atlases int
}

// Packing configures shared atlases for small images. Images with both
// sides at most MaxSide are packed into Size×Size atlases with Padding
// pixels of extruded border. Packed images have no mip chain, and their
// atlas space is reclaimed only when the cache closes.
type Packing struct {
	Size    int
	MaxSide int
	Padding int
}

// Cache is not safe for concurrent use; it lives on the frame thread.
type Cache struct {
	textures *texture.Manager

	entries []entry
	free    []uint32
	byKey   map[string]uint32
	pending []uint32

	packing Packing
	atlases []*texture.Atlas
	packed  int

	inFlight bool
	decodes  int
	uploads  int
}

func New(textures *texture.Manager) *Cache {
	return &Cache{
		textures: textures,
		byKey:    make(map[string]uint32),
	}
}

// Load returns the texture entry for src, decoding and uploading it on the
// first request. Later loads of the same fingerprint add a reference.
func (c *Cache) Load(src Source) (Handle, error) {
	key := "tex:" + src.Fingerprint()
	if h, ok := c.lookup(key); ok {
		return h, nil
	}

	w, h, pixels := src.w, src.h, src.data
	if src.kind != sourcePixels {
		data, err := c.read(src)
		if err != nil {
			return Handle{}, err
		}
		c.decodes++
		img, _, err := assets.DecodeImageBytes(data)
		if err != nil {
			kind := DecodeFailure
			if errors.Is(err, assets.ErrUnsupportedFormat) {
				kind = UnsupportedFormat
			}
			return Handle{}, &LoadError{Kind: kind, Source: src.String(), Err: err}
		}
		w, h, pixels = img.Bounds().Dx(), img.Bounds().Dy(), texture.Pixels(img)
	}

	if c.packs(w, h) {
		tex, err := c.pack(w, h, pixels)
		if err != nil {
			return Handle{}, fmt.Errorf("resources: pack %s: %w", src, err)
		}
		c.packed++
		hd := c.insert(key, Ref{Kind: KindTexture, Texture: tex}, Handle{}, false)
		logging.Logger().Debug("texture packed", "source", src.String(), "handle", hd, "bounds", tex.Bounds())
		return hd, nil
	}
	tex, err := c.textures.Upload(w, h, pixels)
	if err != nil {
		return Handle{}, fmt.Errorf("resources: upload %s: %w", src, err)
	}
	c.uploads++
	hd := c.insert(key, Ref{Kind: KindTexture, Texture: tex}, Handle{}, true)
	logging.Logger().Debug("texture loaded", "source", src.String(), "handle", hd, "w", w, "h", h)
	return hd, nil
}

// SetPacking enables atlas packing for images loaded from now on. A zero
// MaxSide disables it.
func (c *Cache) SetPacking(p Packing) { c.packing = p }

func (c *Cache) packs(w, h int) bool {
	p := c.packing
	return p.MaxSide > 0 && w > 0 && h > 0 && w <= p.MaxSide && h <= p.MaxSide &&
		w+2*p.Padding <= p.Size && h+2*p.Padding <= p.Size
}

// pack places the image in the first atlas with room, opening a new atlas
// when every one is full.
func (c *Cache) pack(w, h int, pixels []byte) (texture.Texture, error) {
	if len(pixels) != w*h*4 {
		return texture.Texture{}, fmt.Errorf("got %d bytes of pixels, want %d", len(pixels), w*h*4)
	}
	for _, a := range c.atlases {
		tex, err := a.Add(w, h, pixels)
		if !errors.Is(err, texture.ErrAtlasFull) {
			return tex, err
		}
	}
	a, err := texture.NewAtlas(c.textures, fmt.Sprintf("images/%d", len(c.atlases)), c.packing.Size, c.packing.Padding)
	if err != nil {
		return texture.Texture{}, err
	}
	c.atlases = append(c.atlases, a)
	logging.Logger().Debug("image atlas opened", "index", len(c.atlases)-1, "size", c.packing.Size)
	return a.Add(w, h, pixels)
}

// LoadFont returns the font entry for src, parsing it on the first request.
func (c *Cache) LoadFont(src Source) (Handle, error) {
	key := "font:" + src.Fingerprint()
	if h, ok := c.lookup(key); ok {
		return h, nil
	}
	if src.kind == sourcePixels {
		return Handle{}, &LoadError{Kind: UnsupportedFormat, Source: src.String()}
	}
	data, err := c.read(src)
	if err != nil {
		return Handle{}, err
	}
	c.decodes++
	f, err := opentype.Parse(data)
	if err != nil {
		return Handle{}, &LoadError{Kind: DecodeFailure, Source: src.String(), Err: err}
	}
	h := c.insert(key, Ref{Kind: KindFont, Font: f}, Handle{}, false)
	logging.Logger().Debug("font loaded", "source", src.String(), "handle", h, "glyphs", f.NumGlyphs())
	return h, nil
}

func (c *Cache) read(src Source) ([]byte, error) {
	if src.kind != sourceFile {
		return src.data, nil
	}
	data, err := os.ReadFile(src.name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &LoadError{Kind: NotFound, Source: src.String(), Err: err}
		}
		return nil, &LoadError{Kind: DecodeFailure, Source: src.String(), Err: err}
	}
	return data, nil
}

// SubImage registers the region r of the texture entry parent, relative to
// its top-left, as an entry of its own. The sub-image keeps parent alive.
func (c *Cache) SubImage(parent Handle, r image.Rectangle) (Handle, error) {
	pe, err := c.live(parent)
	if err != nil {
		return Handle{}, err
	}
	if pe.ref.Kind != KindTexture {
		return Handle{}, fmt.Errorf("resources: sub-image of a non-texture entry %v", parent)
	}
	key := fmt.Sprintf("sub:%v:%v", parent, r)
	if h, ok := c.lookup(key); ok {
		return h, nil
	}
	tex, err := c.textures.SubImage(pe.ref.Texture, r)
	if err != nil {
		return Handle{}, err
	}
	pe.refs++
	return c.insert(key, Ref{Kind: KindTexture, Texture: tex}, parent, false), nil
}

// Adopt registers a texture created elsewhere under key. The cache takes
// ownership and destroys the storage when the last reference goes away.
// Adopting an existing key adds a reference to the existing entry and
// destroys tex, unless tex is that entry's texture.
func (c *Cache) Adopt(key string, tex texture.Texture) Handle {
	key = "adopt:" + key
	if h, ok := c.lookup(key); ok {
		if cur := c.entries[h.index].ref.Texture; cur.Storage() != tex.Storage() {
			c.textures.Destroy(tex)
		}
		return h
	}
	return c.insert(key, Ref{Kind: KindTexture, Texture: tex}, Handle{}, !tex.IsView())
}

func (c *Cache) lookup(key string) (Handle, bool) {
	idx, ok := c.byKey[key]
	if !ok {
		return Handle{}, false
	}
	e := &c.entries[idx]
	e.refs++
	return Handle{index: idx, gen: e.gen}, true
}

func (c *Cache) insert(key string, ref Ref, parent Handle, owned bool) Handle {
	var idx uint32
	if n := len(c.free); n > 0 {
		idx = c.free[n-1]
		c.free = c.free[:n-1]
	} else {
		c.entries = append(c.entries, entry{})
		idx = uint32(len(c.entries) - 1)
	}
	e := &c.entries[idx]
	e.gen++
	e.state = stateLive
	e.key = key
	e.refs = 1
	e.ref = ref
	e.parent = parent
	e.owned = owned
	c.byKey[key] = idx
	return Handle{index: idx, gen: e.gen}
}

func (c *Cache) live(h Handle) (*entry, error) {
	if h.gen == 0 || int(h.index) >= len(c.entries) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHandle, h)
	}
	e := &c.entries[h.index]
	if e.gen != h.gen || e.state != stateLive {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHandle, h)
	}
	return e, nil
}

// Get resolves h.
func (c *Cache) Get(h Handle) (Ref, error) {
	e, err := c.live(h)
	if err != nil {
		return Ref{}, err
	}
	return e.ref, nil
}

// Texture resolves h to its texture.
func (c *Cache) Texture(h Handle) (texture.Texture, error) {
	e, err := c.live(h)
	if err != nil {
		return texture.Texture{}, err
	}
	if e.ref.Kind != KindTexture {
		return texture.Texture{}, fmt.Errorf("%w: %v is not a texture", ErrInvalidHandle, h)
	}
	return e.ref.Texture, nil
}

// Font resolves h to its parsed font.
func (c *Cache) Font(h Handle) (*opentype.Font, error) {
	e, err := c.live(h)
	if err != nil {
		return nil, err
	}
	if e.ref.Kind != KindFont {
		return nil, fmt.Errorf("%w: %v is not a font", ErrInvalidHandle, h)
	}
	return e.ref.Font, nil
}

// Acquire adds a reference to a live entry.
func (c *Cache) Acquire(h Handle) error {
	e, err := c.live(h)
	if err != nil {
		return err
	}
	e.refs++
	return nil
}

// Release drops a reference. When the last one goes the handle stops
// resolving at once and the fingerprint can be loaded afresh, but the GPU
// resource survives until Collect runs outside a frame.
func (c *Cache) Release(h Handle) error {
	e, err := c.live(h)
	if err != nil {
		return err
	}
	e.refs--
	if e.refs > 0 {
		return nil
	}
	e.state = stateReleased
	delete(c.byKey, e.key)
	c.pending = append(c.pending, h.index)
	return nil
}

// BeginFrame marks a frame in flight. Collect does nothing until EndFrame.
func (c *Cache) BeginFrame() { c.inFlight = true }

// EndFrame ends the in-flight frame and collects released entries.
func (c *Cache) EndFrame() {
	c.inFlight = false
	c.Collect()
}

// Collect destroys released entries. It is a no-op while a frame is in
// flight.
func (c *Cache) Collect() {
	if c.inFlight {
		return
	}
	// Dropping a parent reference may release more entries.
	for len(c.pending) > 0 {
		idx := c.pending[0]
		c.pending = c.pending[1:]
		c.destroy(idx)
	}
	c.pending = c.pending[:0]
}

func (c *Cache) destroy(idx uint32) {
	e := &c.entries[idx]
	if e.owned {
		c.textures.Destroy(e.ref.Texture)
	}
	parent := e.parent
	logging.Logger().Debug("resource destroyed", "handle", Handle{index: idx, gen: e.gen}, "key", e.key)
	*e = entry{gen: e.gen}
	c.free = append(c.free, idx)
	if !parent.IsZero() {
		if err := c.Release(parent); err != nil {
			logging.Logger().Warn("release parent", "handle", parent, "err", err)
		}
	}
}

// Stats reports the current counters.
func (c *Cache) Stats() Stats {
	live := 0
	for i := range c.entries {
		if c.entries[i].state == stateLive {
			live++
		}
	}
	return Stats{
		Live:    live,
		Pending: len(c.pending),
		Decodes: c.decodes,
		Uploads: c.uploads,
		Packed:  c.packed,
		Atlases: len(c.atlases),
	}
}

// Close destroys every entry regardless of references.
func (c *Cache) Close() {
	for i := range c.entries {
		e := &c.entries[i]
		if e.state != stateFree && e.owned {
			c.textures.Destroy(e.ref.Texture)
		}
	}
	for _, a := range c.atlases {
		a.Destroy()
	}
	c.atlases = nil
	c.entries = nil
	c.free = nil
	c.pending = nil
	c.byKey = make(map[string]uint32)
}
