package text

import (
	"image"
	"strings"

	"github.com/hubastard/spot/engine/colors"
	"github.com/hubastard/spot/engine/gfx"
	"github.com/hubastard/spot/engine/gfx/batch"
	"github.com/hubastard/spot/engine/gfx/transform"
	"golang.org/x/image/font"
)

// Style selects how a string is set.
type Style struct {
	Font  FontID
	Size  float32 // pixels
	Color colors.Color
	// MaxWidth wraps lines at spaces, or inside words that alone are too
	// wide. Zero disables wrapping.
	MaxWidth float32
	// LineSpacing multiplies the font's line height. Zero means 1.
	LineSpacing float32
}

// Placed is a glyph positioned relative to the layout's top-left.
type Placed struct {
	Glyph Glyph
	Rune  rune
	X, Y  float32
}

// Layout is a string set in one style.
type Layout struct {
	Glyphs []Placed
	Width  float32
	Height float32
	Lines  int
}

type setter struct {
	r     *Registry
	st    Style
	fe    *fontEntry
	face  font.Face
	out   Layout
	pen   float32
	base  float32
	lineH float32
	prev  rune
}

// Layout sets s. Newlines always break; kerning applies within a line.
func (r *Registry) Layout(s string, st Style) (Layout, error) {
	fe, face, err := r.face(st.Font, st.Size)
	if err != nil {
		return Layout{}, err
	}
	m := face.Metrics()
	spacing := st.LineSpacing
	if spacing == 0 {
		spacing = 1
	}
	ts := &setter{
		r: r, st: st, fe: fe, face: face,
		base:  float32(m.Ascent.Round()),
		lineH: float32(m.Height.Round()) * spacing,
		prev:  -1,
	}
	ts.out.Lines = 1
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			ts.newline()
		}
		if err := ts.line(line); err != nil {
			return Layout{}, err
		}
	}
	ts.endLine()
	ts.out.Height = float32(ts.out.Lines) * ts.lineH
	return ts.out, nil
}

func (ts *setter) line(line string) error {
	for i, word := range strings.Split(line, " ") {
		if i > 0 {
			space := ts.kern(' ') + ts.advance(' ')
			if ts.st.MaxWidth > 0 && ts.pen > 0 && ts.pen+space+ts.width(word, ' ') > ts.st.MaxWidth {
				ts.newline()
			} else {
				ts.pen += space
				ts.prev = ' '
			}
		}
		if err := ts.word(word); err != nil {
			return err
		}
	}
	return nil
}

func (ts *setter) word(word string) error {
	for _, r := range word {
		idx, err := ts.fe.font.GlyphIndex(&ts.fe.buf, r)
		if err != nil || idx == 0 {
			// Missing glyphs advance like a space.
			ts.pen += ts.advance(' ')
			ts.prev = -1
			continue
		}
		g, err := ts.r.glyphs.Glyph(ts.st.Font, ts.st.Size, idx, ts.face, r)
		if err != nil {
			return err
		}
		k := ts.kern(r)
		if ts.st.MaxWidth > 0 && ts.pen > 0 && ts.pen+k+g.Advance > ts.st.MaxWidth {
			ts.newline()
			k = 0
		}
		ts.pen += k
		if !g.Empty() {
			ts.out.Glyphs = append(ts.out.Glyphs, Placed{
				Glyph: g,
				Rune:  r,
				X:     ts.pen + g.Offset[0],
				Y:     ts.base + g.Offset[1],
			})
		}
		ts.pen += g.Advance
		ts.prev = r
	}
	return nil
}

func (ts *setter) kern(r rune) float32 {
	if ts.prev < 0 {
		return 0
	}
	return float32(ts.face.Kern(ts.prev, r).Round())
}

func (ts *setter) advance(r rune) float32 {
	a, ok := ts.face.GlyphAdvance(r)
	if !ok {
		return 0
	}
	return float32(a.Round())
}

// width measures word as if it followed prev.
func (ts *setter) width(word string, prev rune) float32 {
	var w float32
	for _, r := range word {
		if prev >= 0 {
			w += float32(ts.face.Kern(prev, r).Round())
		}
		w += ts.advance(r)
		prev = r
	}
	return w
}

func (ts *setter) endLine() {
	ts.out.Width = max(ts.out.Width, ts.pen)
}

func (ts *setter) newline() {
	ts.endLine()
	ts.pen = 0
	ts.prev = -1
	ts.base += ts.lineH
	ts.out.Lines++
}

// Measure returns the size of s set in st.
func (r *Registry) Measure(s string, st Style) (float32, float32, error) {
	l, err := r.Layout(s, st)
	if err != nil {
		return 0, 0, err
	}
	return l.Width, l.Height, nil
}

// Submitter receives draw intents; *batch.Batcher satisfies it.
type Submitter interface {
	Submit(batch.Intent)
}

// DrawParams places a string on screen.
type DrawParams struct {
	X, Y    float32 // top-left of the first line
	Opacity float32
	Clip    image.Rectangle
	// Viewport culls glyphs entirely outside it. The zero rectangle
	// disables culling.
	Viewport image.Rectangle
}

// Draw sets s and submits one glyph intent per visible glyph, tinted with
// st.Color. It returns the number of glyphs submitted.
func (r *Registry) Draw(dst Submitter, s string, st Style, p DrawParams) (int, error) {
	if s == "" {
		return 0, nil
	}
	l, err := r.Layout(s, st)
	if err != nil {
		return 0, err
	}
	user := gfx.NewUserGlobals()
	user.SetVec4(0, st.Color)
	n := 0
	for _, pg := range l.Glyphs {
		pl := transform.Placement{
			Position: [2]float32{p.X + pg.X, p.Y + pg.Y},
			Scale:    [2]float32{1, 1},
		}
		if !p.Viewport.Empty() {
			in := transform.Instance(pl, float32(pg.Glyph.Region.Dx()), float32(pg.Glyph.Region.Dy()), [4]float32{})
			if !transform.Bounds(in).Overlaps(p.Viewport) {
				continue
			}
		}
		dst.Submit(batch.Intent{
			Kind:      batch.KindGlyph,
			Resource:  pg.Glyph.Page,
			Region:    pg.Glyph.Region,
			Placement: pl,
			Opacity:   p.Opacity,
			User:      user,
			Color:     gfx.IdentityColor,
			Clip:      p.Clip,
		})
		n++
	}
	return n, nil
}
