package text

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/hubastard/spot/engine/gfx/texture"
	"github.com/hubastard/spot/engine/logging"
	"github.com/hubastard/spot/engine/resources"
	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// Glyph is a rasterized glyph bitmap stored in an atlas page.
type Glyph struct {
	Page   resources.Handle
	Region image.Rectangle // within the page
	// Offset is from the pen on the baseline to the bitmap's top-left.
	Offset  [2]float32
	Advance float32
}

// Empty reports whether the glyph has no bitmap, as for a space.
func (g Glyph) Empty() bool { return g.Region.Empty() }

type glyphKey struct {
	font  FontID
	size  uint32
	index sfnt.GlyphIndex
}

type page struct {
	atlas  *texture.Atlas
	handle resources.Handle
}

// GlyphCache rasterizes each (font, size, glyph) once into shared atlas
// pages. Pages are registered with the resource cache, which owns them.
type GlyphCache struct {
	cache    *resources.Cache
	textures *texture.Manager
	pageSize int
	padding  int

	pages      []page
	glyphs     map[glyphKey]Glyph
	rasterized int
}

func NewGlyphCache(cache *resources.Cache, textures *texture.Manager, pageSize int) *GlyphCache {
	if pageSize <= 0 {
		pageSize = 512
	}
	return &GlyphCache{
		cache:    cache,
		textures: textures,
		pageSize: pageSize,
		padding:  1,
		glyphs:   make(map[glyphKey]Glyph),
	}
}

// Len is the number of cached glyphs.
func (g *GlyphCache) Len() int { return len(g.glyphs) }

// Pages is the number of atlas pages.
func (g *GlyphCache) Pages() int { return len(g.pages) }

// Rasterized counts glyphs drawn by the rasterizer since creation.
func (g *GlyphCache) Rasterized() int { return g.rasterized }

// Glyph returns the cached glyph, rasterizing r with face on a miss.
func (g *GlyphCache) Glyph(id FontID, size float32, index sfnt.GlyphIndex, face font.Face, r rune) (Glyph, error) {
	k := glyphKey{font: id, size: math.Float32bits(size), index: index}
	if gl, ok := g.glyphs[k]; ok {
		return gl, nil
	}
	dr, mask, maskp, adv, ok := face.Glyph(fixed.Point26_6{}, r)
	if !ok {
		return Glyph{}, fmt.Errorf("text: no glyph for %q", r)
	}
	g.rasterized++
	gl := Glyph{
		Offset:  [2]float32{float32(dr.Min.X), float32(dr.Min.Y)},
		Advance: float32(adv.Round()),
	}
	if w, h := dr.Dx(), dr.Dy(); w > 0 && h > 0 {
		// White with coverage in alpha; the tint program colors it.
		pix := make([]byte, w*h*4)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				_, _, _, a := mask.At(maskp.X+x, maskp.Y+y).RGBA()
				i := (y*w + x) * 4
				pix[i], pix[i+1], pix[i+2], pix[i+3] = 255, 255, 255, byte(a>>8)
			}
		}
		p, region, err := g.add(w, h, pix)
		if err != nil {
			return Glyph{}, err
		}
		gl.Page, gl.Region = p, region
	}
	g.glyphs[k] = gl
	return gl, nil
}

func (g *GlyphCache) add(w, h int, pix []byte) (resources.Handle, image.Rectangle, error) {
	if n := len(g.pages); n > 0 {
		sub, err := g.pages[n-1].atlas.Add(w, h, pix)
		if err == nil {
			return g.pages[n-1].handle, sub.Bounds(), nil
		}
		if !errors.Is(err, texture.ErrAtlasFull) {
			return resources.Handle{}, image.Rectangle{}, err
		}
	}
	a, err := texture.NewAtlas(g.textures, "glyphs", g.pageSize, g.padding)
	if err != nil {
		return resources.Handle{}, image.Rectangle{}, fmt.Errorf("text: glyph page: %w", err)
	}
	p := page{atlas: a, handle: g.cache.Adopt(fmt.Sprintf("glyphs/%p", a), a.Texture())}
	g.pages = append(g.pages, p)
	logging.Logger().Debug("glyph page added", "pages", len(g.pages), "size", g.pageSize)

	sub, err := a.Add(w, h, pix)
	if err != nil {
		return resources.Handle{}, image.Rectangle{}, fmt.Errorf("text: glyph %dx%d: %w", w, h, err)
	}
	return p.handle, sub.Bounds(), nil
}

// forget drops every glyph of id. Their atlas cells stay allocated.
func (g *GlyphCache) forget(id FontID) {
	for k := range g.glyphs {
		if k.font == id {
			delete(g.glyphs, k)
		}
	}
}

// Close releases the pages to the resource cache.
func (g *GlyphCache) Close() {
	for _, p := range g.pages {
		if err := g.cache.Release(p.handle); err != nil {
			logging.Logger().Warn("release glyph page", "handle", p.handle, "err", err)
		}
	}
	g.pages = nil
	clear(g.glyphs)
}
