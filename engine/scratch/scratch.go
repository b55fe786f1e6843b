// Package scratch holds frame-scoped buffers that are reset, not freed, at
// the start of every frame. They are single-threaded.
package scratch

import "strconv"

// Floats is a growable float32 buffer. Slices returned by From stay valid
// until the next Reset.
type Floats struct {
	buf []float32
}

// NewFloats preallocates capacity floats.
func NewFloats(capacity int) *Floats {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Floats{buf: make([]float32, 0, capacity)}
}

// Reset clears the buffer length without freeing memory.
func (f *Floats) Reset() { f.buf = f.buf[:0] }

func (f *Floats) Len() int { return len(f.buf) }
func (f *Floats) Cap() int { return cap(f.buf) }

// Mark returns a bookmark to later slice the output.
func (f *Floats) Mark() int { return len(f.buf) }

// From returns the floats appended since mark.
func (f *Floats) From(mark int) []float32 { return f.buf[mark:len(f.buf):len(f.buf)] }

// Append adds v. Growing moves the storage, so earlier From slices keep the
// old contents but no longer alias the buffer.
func (f *Floats) Append(v ...float32) { f.buf = append(f.buf, v...) }

// AppendFunc lets fn append directly, as gfx.Instance.AppendTo does.
func (f *Floats) AppendFunc(fn func([]float32) []float32) { f.buf = fn(f.buf) }

// Text builds short strings for overlays without fmt.
type Text struct {
	buf []byte
}

// Reset empties t and returns it for chaining.
func (t *Text) Reset() *Text {
	t.buf = t.buf[:0]
	return t
}

// S appends a string.
func (t *Text) S(s string) *Text {
	t.buf = append(t.buf, s...)
	return t
}

// I appends a base-10 integer.
func (t *Text) I(v int) *Text {
	t.buf = strconv.AppendInt(t.buf, int64(v), 10)
	return t
}

// F appends v with prec digits after the decimal point.
func (t *Text) F(v float64, prec int) *Text {
	t.buf = strconv.AppendFloat(t.buf, v, 'f', prec, 64)
	return t
}

// Pad appends n copies of c.
func (t *Text) Pad(n int, c byte) *Text {
	for ; n > 0; n-- {
		t.buf = append(t.buf, c)
	}
	return t
}

func (t *Text) Len() int { return len(t.buf) }

// String copies the contents.
func (t *Text) String() string { return string(t.buf) }
