package batch

import (
	"errors"
	"image"
	"testing"

	"github.com/hubastard/spot/engine/gfx"
	"github.com/hubastard/spot/engine/gfx/soft"
	"github.com/hubastard/spot/engine/gfx/texture"
	"github.com/hubastard/spot/engine/gfx/transform"
	"github.com/hubastard/spot/engine/resources"
)

type fixture struct {
	cache *resources.Cache
	a, b  resources.Handle
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c := resources.New(texture.NewManager(soft.New(8, 8)))
	t.Cleanup(c.Close)
	load := func(v byte) resources.Handle {
		px := make([]byte, 4*4*4)
		for i := range px {
			px[i] = v
		}
		h, err := c.Load(resources.Pixels(4, 4, px))
		if err != nil {
			t.Fatal(err)
		}
		return h
	}
	return &fixture{cache: c, a: load(10), b: load(20)}
}

func at(h resources.Handle, x float32) Intent {
	return Intent{
		Resource:  h,
		Placement: transform.Placement{Position: [2]float32{x, 0}, Scale: [2]float32{1, 1}},
		Opacity:   1,
		User:      gfx.NewUserGlobals(),
	}
}

func TestOrderPreservation(t *testing.T) {
	f := newFixture(t)
	b := New(16)
	b.BeginFrame()
	// A, A, B, A -> three batches: [A A] [B] [A].
	for i, h := range []resources.Handle{f.a, f.a, f.b, f.a} {
		b.Submit(at(h, float32(i)))
	}
	batches, err := b.FinishFrame(f.cache)
	if err != nil {
		t.Fatalf("FinishFrame() error = %v", err)
	}
	ta, _ := f.cache.Texture(f.a)
	tb, _ := f.cache.Texture(f.b)
	want := []struct {
		tex   gfx.TextureID
		count int
		first int
	}{{ta.Storage(), 2, 0}, {tb.Storage(), 1, 2}, {ta.Storage(), 1, 3}}
	if len(batches) != len(want) {
		t.Fatalf("got %d batches, want %d", len(batches), len(want))
	}
	z := float32(0)
	for i, w := range want {
		bt := batches[i]
		if bt.Texture != w.tex || bt.Count != w.count || bt.First != w.first {
			t.Errorf("batch %d = tex %d count %d first %d, want %+v", i, bt.Texture, bt.Count, bt.First, w)
		}
		// Instances keep submission order: x equals the z index.
		for j := 0; j < bt.Count; j++ {
			if x := gfx.UnpackInstance(bt.Instances, j).Position[0]; x != z {
				t.Errorf("batch %d instance %d x = %v, want %v", i, j, x, z)
			}
			z++
		}
	}
	b.EndFrame()
}

func TestSplitOnUniformsAndClip(t *testing.T) {
	f := newFixture(t)
	b := New(8)
	b.BeginFrame()
	plain := at(f.a, 0)
	faded := at(f.a, 1)
	faded.Opacity = 0.5
	clipped := at(f.a, 2)
	clipped.Clip = image.Rect(0, 0, 4, 4)
	tinted := at(f.a, 3)
	tinted.Color = transform.Grayscale(1).Uniform()
	disabled := at(f.a, 4)
	disabled.Color = gfx.ColorUniform{} // same as no transform
	disabled.Color.UseUniform = 0

	for _, it := range []Intent{plain, faded, clipped, tinted, disabled} {
		b.Submit(it)
	}
	batches, err := b.FinishFrame(f.cache)
	if err != nil {
		t.Fatal(err)
	}
	if len(batches) != 5 {
		t.Fatalf("got %d batches, want 5", len(batches))
	}
	if batches[1].User.Opacity() != 0.5 {
		t.Errorf("batch opacity = %v, want 0.5", batches[1].User.Opacity())
	}
	if batches[4].Color != gfx.IdentityColor {
		t.Errorf("disabled color transform not normalized: %+v", batches[4].Color)
	}
	b.EndFrame()
}

func TestDanglingResourceYieldsNoBatches(t *testing.T) {
	f := newFixture(t)
	b := New(8)
	b.BeginFrame()
	b.Submit(at(f.a, 0))
	b.Submit(at(f.b, 1))
	if err := f.cache.Release(f.b); err != nil {
		t.Fatal(err)
	}

	batches, err := b.FinishFrame(f.cache)
	if !errors.Is(err, ErrDanglingResource) {
		t.Fatalf("FinishFrame() error = %v, want ErrDanglingResource", err)
	}
	if batches != nil {
		t.Errorf("FinishFrame() returned %d batches with an error", len(batches))
	}
	if !b.Draining() {
		t.Error("batcher not draining after a failed FinishFrame")
	}
	b.EndFrame()
	b.BeginFrame()
	if b.Len() != 0 {
		t.Errorf("Len() = %d after BeginFrame, want 0", b.Len())
	}
}

func TestSkipsInvisibleAfterValidation(t *testing.T) {
	f := newFixture(t)
	b := New(8)
	b.BeginFrame()
	hidden := at(f.a, 0)
	hidden.Opacity = 0
	flat := at(f.a, 1)
	flat.Placement.Scale = [2]float32{0, 1}
	b.Submit(hidden)
	b.Submit(flat)
	b.Submit(at(f.a, 2))
	batches, err := b.FinishFrame(f.cache)
	if err != nil {
		t.Fatal(err)
	}
	if len(batches) != 1 || batches[0].Count != 1 || batches[0].First != 2 {
		t.Errorf("batches = %+v, want one batch holding only the visible intent", batches)
	}
	b.EndFrame()
}

func TestRegionAndSize(t *testing.T) {
	f := newFixture(t)
	b := New(4)
	b.BeginFrame()
	it := at(f.a, 0)
	it.Region = image.Rect(2, 0, 4, 2)
	b.Submit(it)
	sized := at(f.a, 0)
	sized.Size = [2]float32{10, 5}
	sized.Placement.Scale = [2]float32{2, 2}
	b.Submit(sized)
	batches, _ := b.FinishFrame(f.cache)

	in := gfx.UnpackInstance(batches[0].Instances, 0)
	if in.Size != [2]float32{2, 2} || in.UV != [4]float32{0.5, 0, 0.5, 0.5} {
		t.Errorf("region instance = %+v", in)
	}
	in = gfx.UnpackInstance(batches[0].Instances, 1)
	if in.Size != [2]float32{20, 10} {
		t.Errorf("sized instance size = %v, want [20 10]", in.Size)
	}
	b.EndFrame()
}

func TestRegionOutsideSubImageFailsFrame(t *testing.T) {
	f := newFixture(t)
	sub, err := f.cache.SubImage(f.a, image.Rect(2, 0, 4, 2))
	if err != nil {
		t.Fatal(err)
	}
	b := New(4)
	b.BeginFrame()
	b.Submit(at(f.a, 0))
	inside := at(sub, 0)
	inside.Region = image.Rect(0, 0, 2, 2)
	b.Submit(inside)
	if _, err := b.FinishFrame(f.cache); err != nil {
		t.Fatalf("FinishFrame() with a region inside the sub-image error = %v", err)
	}
	b.EndFrame()

	b.BeginFrame()
	b.Submit(at(f.a, 0))
	outside := at(sub, 0)
	outside.Region = image.Rect(0, 0, 4, 4)
	b.Submit(outside)
	batches, err := b.FinishFrame(f.cache)
	if !errors.Is(err, texture.ErrOutOfBounds) {
		t.Fatalf("FinishFrame() error = %v, want ErrOutOfBounds", err)
	}
	if batches != nil {
		t.Errorf("FinishFrame() returned %d batches with an error", len(batches))
	}
	b.EndFrame()
}

func TestBeginFrameWhileDrainingPanics(t *testing.T) {
	f := newFixture(t)
	b := New(4)
	b.BeginFrame()
	b.Submit(at(f.a, 0))
	if _, err := b.FinishFrame(f.cache); err != nil {
		t.Fatal(err)
	}
	defer func() {
		if recover() == nil {
			t.Error("BeginFrame() while draining did not panic")
		}
	}()
	b.BeginFrame()
}
