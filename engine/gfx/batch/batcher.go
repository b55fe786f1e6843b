// Package batch turns a frame's draw intents into ordered instanced draws.
package batch

import (
	"errors"
	"fmt"
	"image"

	"github.com/hubastard/spot/engine/gfx"
	"github.com/hubastard/spot/engine/gfx/texture"
	"github.com/hubastard/spot/engine/gfx/transform"
	"github.com/hubastard/spot/engine/logging"
	"github.com/hubastard/spot/engine/resources"
	"github.com/hubastard/spot/engine/scratch"
)

// ErrDanglingResource is returned by FinishFrame when an intent names a
// handle that no longer resolves.
var ErrDanglingResource = errors.New("batch: dangling resource")

// Kind selects the default program of an intent.
type Kind int

const (
	KindImage Kind = iota
	KindGlyph
)

// Intent is one image or glyph to draw this frame.
type Intent struct {
	Kind     Kind
	Resource resources.Handle
	// Region is the pixel rectangle within the resource. The zero
	// rectangle means the whole resource.
	Region    image.Rectangle
	Placement transform.Placement
	// Size overrides the drawn size before scaling. Zero uses the region.
	Size    [2]float32
	Opacity float32
	// Pipeline is a registered program; zero picks the Kind's default.
	Pipeline gfx.PipelineID
	User     gfx.UserGlobals
	Color    gfx.ColorUniform
	Clip     image.Rectangle

	z int
}

// Z is the submission index assigned by Submit.
func (it *Intent) Z() int { return it.z }

// Resolver maps handles to textures. *resources.Cache satisfies it.
type Resolver interface {
	Texture(h resources.Handle) (texture.Texture, error)
}

// Key is what consecutive intents must share to land in one draw.
type Key struct {
	Kind     Kind
	Pipeline gfx.PipelineID
	Texture  gfx.TextureID
	User     gfx.UserGlobals
	Color    gfx.ColorUniform
	Clip     image.Rectangle
}

// Batch is one instanced draw. Instances holds gfx.InstanceFloats floats
// per instance and is valid until the next BeginFrame.
type Batch struct {
	Key
	Instances []float32
	Count     int
	// First is the z of the first intent in the batch.
	First int
}

// Batcher collects intents for one frame at a time.
type Batcher struct {
	intents  []Intent
	textures []texture.Texture
	batches  []Batch
	floats   *scratch.Floats
	draining bool
}

func New(capacity int) *Batcher {
	return &Batcher{
		intents: make([]Intent, 0, capacity),
		floats:  scratch.NewFloats(capacity * gfx.InstanceFloats),
	}
}

// BeginFrame discards the previous frame. Calling it before EndFrame is a
// frame lifecycle bug and panics.
func (b *Batcher) BeginFrame() {
	if b.draining {
		panic("batch: BeginFrame while the previous frame is draining")
	}
	b.intents = b.intents[:0]
	b.batches = b.batches[:0]
	b.floats.Reset()
}

// Submit queues it behind every intent submitted earlier this frame.
func (b *Batcher) Submit(it Intent) {
	if b.draining {
		panic("batch: Submit while draining")
	}
	it.z = len(b.intents)
	b.intents = append(b.intents, it)
}

// Len is the number of intents submitted this frame.
func (b *Batcher) Len() int { return len(b.intents) }

// Draining reports whether FinishFrame ran without a matching EndFrame.
func (b *Batcher) Draining() bool { return b.draining }

// EndFrame ends draining once the frame's batches were rendered.
func (b *Batcher) EndFrame() { b.draining = false }

// FinishFrame resolves every intent and groups them in submission order,
// starting a new batch only where the key changes. If any handle fails to
// resolve, or any region leaves its image, no batches are produced.
func (b *Batcher) FinishFrame(res Resolver) ([]Batch, error) {
	b.draining = true
	b.textures = b.textures[:0]
	for i := range b.intents {
		tex, err := res.Texture(b.intents[i].Resource)
		if err != nil {
			return nil, fmt.Errorf("%w: intent %d handle %v: %v", ErrDanglingResource, i, b.intents[i].Resource, err)
		}
		if r := b.intents[i].Region; !r.Empty() && !r.In(image.Rect(0, 0, tex.Width(), tex.Height())) {
			return nil, fmt.Errorf("%w: intent %d region %v exceeds %dx%d", texture.ErrOutOfBounds, i, r, tex.Width(), tex.Height())
		}
		b.textures = append(b.textures, tex)
	}

	var (
		cur   Key
		open  bool
		mark  int
		count int
		first int
	)
	flush := func() {
		if open && count > 0 {
			b.batches = append(b.batches, Batch{Key: cur, Instances: b.floats.From(mark), Count: count, First: first})
		}
		open = false
	}
	for i := range b.intents {
		it := &b.intents[i]
		in, ok := instance(it, b.textures[i])
		if !ok {
			continue
		}
		k := key(it, b.textures[i])
		if !open || k != cur {
			flush()
			cur, open, mark, count, first = k, true, b.floats.Mark(), 0, it.z
		}
		b.floats.AppendFunc(in.AppendTo)
		count++
	}
	flush()
	logging.Logger().Debug("frame batched", "intents", len(b.intents), "batches", len(b.batches))
	return b.batches, nil
}

func key(it *Intent, tex texture.Texture) Key {
	k := Key{
		Kind:     it.Kind,
		Pipeline: it.Pipeline,
		Texture:  tex.Storage(),
		User:     it.User,
		Color:    it.Color,
		Clip:     it.Clip,
	}
	k.User.SetOpacity(it.Opacity)
	if k.Color.UseUniform == 0 {
		k.Color = gfx.IdentityColor
	}
	return k
}

// instance packs it, reporting false for intents that draw nothing.
func instance(it *Intent, tex texture.Texture) (gfx.Instance, bool) {
	if it.Opacity <= 0 {
		return gfx.Instance{}, false
	}
	uv := tex.UV()
	w, h := float32(tex.Width()), float32(tex.Height())
	if !it.Region.Empty() {
		uv = transform.SubUV(uv, it.Region, tex.Width(), tex.Height())
		w, h = float32(it.Region.Dx()), float32(it.Region.Dy())
	}
	if it.Size != [2]float32{} {
		w, h = it.Size[0], it.Size[1]
	}
	in := transform.Instance(it.Placement, w, h, uv)
	if in.Size[0] == 0 || in.Size[1] == 0 {
		return gfx.Instance{}, false
	}
	return in, true
}
