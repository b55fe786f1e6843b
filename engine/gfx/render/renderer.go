// Package render submits a frame's batches to the device in one pass.
package render

import (
	"errors"
	"fmt"
	"io"

	"github.com/HugoSmits86/nativewebp"
	"github.com/hubastard/spot/engine/colors"
	"github.com/hubastard/spot/engine/gfx"
	"github.com/hubastard/spot/engine/gfx/batch"
	"github.com/hubastard/spot/engine/gfx/texture"
	"github.com/hubastard/spot/engine/gfx/transform"
	"github.com/hubastard/spot/engine/logging"
	"github.com/hubastard/spot/engine/profiler"
)

// ErrRenderFailure reports a dropped frame. The engine keeps running.
var ErrRenderFailure = errors.New("render: frame dropped")

// Statistics captures the counts generated during one frame.
type Statistics struct {
	DrawCalls     int
	InstanceCount int
	TextureCount  int
}

// Options configures a Renderer.
type Options struct {
	Width, Height int
	Clear         colors.Color
	// MaxInstances caps the instances of one device draw; larger batches
	// are split. Zero means no cap.
	MaxInstances int
	// ProfileEvery logs averaged stage timings every n frames.
	ProfileEvery int
}

type Renderer struct {
	dev     gfx.Device
	image   gfx.PipelineID
	tint    gfx.PipelineID
	shaders map[gfx.PipelineID]string

	w, h     int
	clear    colors.Color
	maxInst  int
	stats    Statistics
	textures []gfx.TextureID
	dropped  int
	prof     *profiler.Frames
}

// New creates the built-in image and tint programs on dev.
func New(dev gfx.Device, opts Options) (*Renderer, error) {
	image, err := dev.CreatePipeline(gfx.PipelineDesc{Label: "image", Kind: gfx.PipelineImage})
	if err != nil {
		return nil, fmt.Errorf("render: image pipeline: %w", err)
	}
	tint, err := dev.CreatePipeline(gfx.PipelineDesc{Label: "tint", Kind: gfx.PipelineTint})
	if err != nil {
		dev.DestroyPipeline(image)
		return nil, fmt.Errorf("render: tint pipeline: %w", err)
	}
	return &Renderer{
		dev:     dev,
		image:   image,
		tint:    tint,
		shaders: make(map[gfx.PipelineID]string),
		w:       opts.Width,
		h:       opts.Height,
		clear:   opts.Clear,
		maxInst: opts.MaxInstances,
		prof:    profiler.NewFrames(opts.ProfileEvery),
	}, nil
}

// RegisterShader compiles a custom program from the body of
// `vec4 shade(vec2 uv)`. It shares the instance layout and uniform groups of
// the built-in programs.
func (r *Renderer) RegisterShader(label, shade string) (gfx.PipelineID, error) {
	id, err := r.dev.CreatePipeline(gfx.PipelineDesc{Label: label, Kind: gfx.PipelineCustom, Shade: shade})
	if err != nil {
		return 0, fmt.Errorf("render: shader %q: %w", label, err)
	}
	r.shaders[id] = label
	logging.Logger().Info("shader registered", "label", label, "id", id)
	return id, nil
}

// UnregisterShader destroys a program made by RegisterShader.
func (r *Renderer) UnregisterShader(id gfx.PipelineID) bool {
	if _, ok := r.shaders[id]; !ok {
		return false
	}
	delete(r.shaders, id)
	r.dev.DestroyPipeline(id)
	return true
}

// Resize sets the target size used by the next frame.
func (r *Renderer) Resize(w, h int) {
	r.w, r.h = w, h
	r.dev.Resize(w, h)
}

// Size is the current target size.
func (r *Renderer) Size() (int, int) { return r.w, r.h }

// SetClearColor changes the color the pass starts from.
func (r *Renderer) SetClearColor(c colors.Color) { r.clear = c }

// Stats returns the statistics of the last rendered frame.
func (r *Renderer) Stats() Statistics { return r.stats }

// Dropped counts frames lost to ErrRenderFailure.
func (r *Renderer) Dropped() int { return r.dropped }

// Profile is the stage timer, enabled when Options.ProfileEvery > 0.
func (r *Renderer) Profile() *profiler.Frames { return r.prof }

func (r *Renderer) pipeline(b *batch.Batch) gfx.PipelineID {
	switch {
	case b.Pipeline != 0:
		return b.Pipeline
	case b.Kind == batch.KindGlyph:
		return r.tint
	}
	return r.image
}

// Render draws batches in order within one pass and presents. A device
// out-of-memory drops the frame with ErrRenderFailure; a lost device is
// returned unchanged.
func (r *Renderer) Render(batches []batch.Batch, globals gfx.EngineGlobals) error {
	defer r.prof.Measure("render")()
	r.stats = Statistics{}
	r.textures = r.textures[:0]

	if err := r.dev.BeginPass(gfx.PassDesc{Width: r.w, Height: r.h, Clear: r.clear, Globals: globals}); err != nil {
		return r.fail("begin pass", err, false)
	}
	for i := range batches {
		if err := r.draw(&batches[i]); err != nil {
			return r.fail("draw", err, true)
		}
	}
	if err := r.dev.EndPass(); err != nil {
		return r.fail("end pass", err, false)
	}
	end := r.prof.Measure("present")
	err := r.dev.Present()
	end()
	if err != nil {
		return r.fail("present", err, false)
	}
	return nil
}

// RenderTo draws batches into target within one offscreen pass. The
// target keeps its pixels unless clear is set, and nothing is presented.
// Frame statistics are left alone. Batches sampling the target's storage
// fail with gfx.ErrFeedback.
func (r *Renderer) RenderTo(target texture.Texture, batches []batch.Batch, clear *colors.Color) error {
	defer r.prof.Measure("offscreen")()
	pass := gfx.PassDesc{
		Target:   target.Storage(),
		Viewport: target.Bounds(),
		Load:     clear == nil,
		Globals:  transform.Globals(target.Width(), target.Height(), 1),
	}
	if clear != nil {
		pass.Clear = *clear
	}
	stats := r.stats
	defer func() { r.stats = stats }()

	if err := r.dev.BeginPass(pass); err != nil {
		return r.fail("begin offscreen pass", err, false)
	}
	for i := range batches {
		if err := r.draw(&batches[i]); err != nil {
			return r.fail("offscreen draw", err, true)
		}
	}
	if err := r.dev.EndPass(); err != nil {
		return r.fail("end offscreen pass", err, false)
	}
	return nil
}

func (r *Renderer) draw(b *batch.Batch) error {
	cmd := gfx.DrawCmd{
		Pipeline: r.pipeline(b),
		Texture:  b.Texture,
		User:     b.User,
		Color:    b.Color,
		Clip:     b.Clip,
	}
	step := b.Count
	if r.maxInst > 0 && step > r.maxInst {
		step = r.maxInst
	}
	for first := 0; first < b.Count; first += step {
		n := min(step, b.Count-first)
		cmd.Instances = b.Instances[first*gfx.InstanceFloats : (first+n)*gfx.InstanceFloats]
		cmd.Count = n
		if err := r.dev.Draw(cmd); err != nil {
			return err
		}
		r.stats.DrawCalls++
		r.stats.InstanceCount += n
	}
	r.countTexture(b.Texture)
	return nil
}

func (r *Renderer) countTexture(id gfx.TextureID) {
	for _, t := range r.textures {
		if t == id {
			return
		}
	}
	r.textures = append(r.textures, id)
	r.stats.TextureCount = len(r.textures)
}

func (r *Renderer) fail(stage string, err error, inPass bool) error {
	if errors.Is(err, gfx.ErrDeviceLost) {
		return err
	}
	if inPass {
		// Close the pass so the next frame can open one.
		_ = r.dev.EndPass()
	}
	if errors.Is(err, gfx.ErrOutOfMemory) {
		r.dropped++
		logging.Logger().Warn("frame dropped", "stage", stage, "err", err)
		return fmt.Errorf("%w: %s: %v", ErrRenderFailure, stage, err)
	}
	return fmt.Errorf("render: %s: %w", stage, err)
}

// EndFrame closes the profiling window of the frame.
func (r *Renderer) EndFrame() { r.prof.EndFrame() }

// Capture encodes the last presented frame as lossless WebP.
func (r *Renderer) Capture(w io.Writer) error {
	img, err := r.dev.ReadPixels()
	if err != nil {
		return fmt.Errorf("render: capture: %w", err)
	}
	if err := nativewebp.Encode(w, img, nil); err != nil {
		return fmt.Errorf("render: encode capture: %w", err)
	}
	return nil
}

// Close destroys every program the renderer created.
func (r *Renderer) Close() {
	for id := range r.shaders {
		r.dev.DestroyPipeline(id)
	}
	clear(r.shaders)
	r.dev.DestroyPipeline(r.image)
	r.dev.DestroyPipeline(r.tint)
}
