// Package text registers fonts, caches their glyph bitmaps in atlas pages
// and lays out strings as glyph draw intents.
package text

import (
	"errors"
	"fmt"
	"math"

	"github.com/hubastard/spot/engine/gfx/texture"
	"github.com/hubastard/spot/engine/logging"
	"github.com/hubastard/spot/engine/resources"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// ErrUnknownFont is returned for ids that were never registered or were
// unregistered.
var ErrUnknownFont = errors.New("text: unknown font")

// FontID names a registered font. Zero is never valid.
type FontID uint32

// Metrics are the vertical metrics of a font at one size, in pixels.
type Metrics struct {
	Ascent     float32
	Descent    float32
	LineHeight float32
}

type fontEntry struct {
	handle resources.Handle
	font   *opentype.Font
	buf    sfnt.Buffer
	faces  map[uint32]font.Face
}

// Registry owns the registered fonts and their glyph cache.
type Registry struct {
	cache  *resources.Cache
	glyphs *GlyphCache
	fonts  map[FontID]*fontEntry
	next   FontID
}

func NewRegistry(cache *resources.Cache, textures *texture.Manager) *Registry {
	return &Registry{
		cache:  cache,
		glyphs: NewGlyphCache(cache, textures, 512),
		fonts:  make(map[FontID]*fontEntry),
	}
}

// Glyphs exposes the glyph cache.
func (r *Registry) Glyphs() *GlyphCache { return r.glyphs }

// Register parses TrueType or OpenType data. Identical data shares one
// parsed font in the resource cache.
func (r *Registry) Register(name string, data []byte) (FontID, error) {
	return r.register(resources.Bytes(name, data))
}

// RegisterFile registers the font file at path.
func (r *Registry) RegisterFile(path string) (FontID, error) {
	return r.register(resources.File(path))
}

func (r *Registry) register(src resources.Source) (FontID, error) {
	h, err := r.cache.LoadFont(src)
	if err != nil {
		return 0, err
	}
	f, err := r.cache.Font(h)
	if err != nil {
		return 0, err
	}
	r.next++
	r.fonts[r.next] = &fontEntry{handle: h, font: f, faces: make(map[uint32]font.Face)}
	logging.Logger().Info("font registered", "id", r.next, "source", src.String())
	return r.next, nil
}

// Unregister drops the font, its faces and cached glyphs.
func (r *Registry) Unregister(id FontID) error {
	fe, ok := r.fonts[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownFont, id)
	}
	for _, f := range fe.faces {
		_ = f.Close()
	}
	delete(r.fonts, id)
	r.glyphs.forget(id)
	return r.cache.Release(fe.handle)
}

func (r *Registry) face(id FontID, size float32) (*fontEntry, font.Face, error) {
	fe, ok := r.fonts[id]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnknownFont, id)
	}
	if size <= 0 {
		return nil, nil, fmt.Errorf("text: invalid size %v", size)
	}
	bits := math.Float32bits(size)
	if f, ok := fe.faces[bits]; ok {
		return fe, f, nil
	}
	f, err := opentype.NewFace(fe.font, &opentype.FaceOptions{
		Size: float64(size), DPI: 72, Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("text: face %d@%v: %w", id, size, err)
	}
	fe.faces[bits] = f
	return fe, f, nil
}

// Metrics returns the vertical metrics of id at size.
func (r *Registry) Metrics(id FontID, size float32) (Metrics, error) {
	_, f, err := r.face(id, size)
	if err != nil {
		return Metrics{}, err
	}
	m := f.Metrics()
	return Metrics{
		Ascent:     float32(m.Ascent.Round()),
		Descent:    float32(m.Descent.Round()),
		LineHeight: float32(m.Height.Round()),
	}, nil
}

// Close unregisters every font and releases the glyph pages.
func (r *Registry) Close() {
	for id := range r.fonts {
		if err := r.Unregister(id); err != nil {
			logging.Logger().Warn("unregister font", "id", id, "err", err)
		}
	}
	r.glyphs.Close()
}
