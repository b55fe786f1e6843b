package scratch

import "testing"

func TestFloatsMarkSurvivesGrowth(t *testing.T) {
	f := NewFloats(2)
	f.Append(1, 2)
	first := f.From(0)
	m := f.Mark()
	f.Append(3, 4, 5)
	if got := f.From(m); len(got) != 3 || got[0] != 3 {
		t.Errorf("From(mark) = %v, want [3 4 5]", got)
	}
	if first[0] != 1 || first[1] != 2 {
		t.Errorf("earlier slice = %v, want [1 2]", first)
	}

	c := f.Cap()
	f.Reset()
	if f.Len() != 0 || f.Cap() != c {
		t.Errorf("Reset() len %d cap %d, want 0 and %d", f.Len(), f.Cap(), c)
	}
}

func TestFromIsCapped(t *testing.T) {
	f := NewFloats(8)
	f.Append(1)
	s := f.From(0)
	s = append(s, 9)
	f.Append(2)
	if f.From(0)[1] != 2 {
		t.Error("append to a From slice overwrote the buffer")
	}
	_ = s
}

func TestText(t *testing.T) {
	var tx Text
	got := tx.S("fps ").I(60).S(" dt ").F(16.6667, 2).Pad(2, '.').String()
	if got != "fps 60 dt 16.67.." {
		t.Errorf("Text = %q", got)
	}
	if tx.Reset().Len() != 0 {
		t.Error("Reset() did not empty the buffer")
	}
}
