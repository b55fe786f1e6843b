// Package glbackend implements gfx.Device on OpenGL 3.3 core. Every call
// must happen on the thread that owns the GL context.
package glbackend

import (
	"errors"
	"fmt"
	"image"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/gogpu/gputypes"
	"github.com/hubastard/spot/engine/gfx"
	"github.com/hubastard/spot/engine/logging"
)

// glContextLost is GL_CONTEXT_LOST, which 3.3 headers do not define.
const glContextLost = 0x0507

var errNoPass = errors.New("gl: no render pass open")

type glTexture struct {
	id     uint32
	w, h   int
	levels int32
}

// Device draws with OpenGL. It is not safe for concurrent use.
type Device struct {
	swap func()
	w, h int

	textures  map[gfx.TextureID]*glTexture
	programs  map[gfx.PipelineID]uint32
	nextTex   gfx.TextureID
	nextPipe  gfx.PipelineID
	vao       uint32
	instances uint32
	batchUBO  uint32
	frameUBO  uint32
	readFBO   uint32
	drawFBO   uint32
	inPass    bool
	pass      gfx.PassDesc

	batch [batchFloats]float32
	frame [frameFloats]float32
}

// New sets up shared GL state for a w×h framebuffer. swap presents the
// back buffer; it is usually the window's SwapBuffers.
func New(w, h int, swap func()) (*Device, error) {
	d := &Device{
		swap:     swap,
		w:        w,
		h:        h,
		textures: make(map[gfx.TextureID]*glTexture),
		programs: make(map[gfx.PipelineID]uint32),
	}

	gl.GenVertexArrays(1, &d.vao)
	gl.BindVertexArray(d.vao)
	gl.GenBuffers(1, &d.instances)
	gl.BindBuffer(gl.ARRAY_BUFFER, d.instances)
	stride := int32(gfx.InstanceLayout.ArrayStride)
	for _, a := range gfx.InstanceLayout.Attributes {
		loc := a.ShaderLocation
		gl.EnableVertexAttribArray(loc)
		gl.VertexAttribPointer(loc, gfx.ComponentCount(a.Format), gl.FLOAT, false, stride, gl.PtrOffset(int(a.Offset)))
		gl.VertexAttribDivisor(loc, 1)
	}
	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	d.batchUBO = newUBO(len(d.batch)*4, gfx.BindingBatch)
	d.frameUBO = newUBO(len(d.frame)*4, gfx.BindingFrame)
	gl.GenFramebuffers(1, &d.readFBO)
	gl.GenFramebuffers(1, &d.drawFBO)

	gl.Disable(gl.DEPTH_TEST)
	gl.Enable(gl.BLEND)
	gl.BlendFuncSeparate(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA, gl.ONE, gl.ONE_MINUS_SRC_ALPHA)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)

	logging.Logger().Info("gl device ready",
		"version", gl.GoStr(gl.GetString(gl.VERSION)),
		"renderer", gl.GoStr(gl.GetString(gl.RENDERER)))
	return d, checkErr("init")
}

func newUBO(size int, binding uint32) uint32 {
	var ubo uint32
	gl.GenBuffers(1, &ubo)
	gl.BindBuffer(gl.UNIFORM_BUFFER, ubo)
	gl.BufferData(gl.UNIFORM_BUFFER, size, nil, gl.DYNAMIC_DRAW)
	gl.BindBufferBase(gl.UNIFORM_BUFFER, binding, ubo)
	gl.BindBuffer(gl.UNIFORM_BUFFER, 0)
	return ubo
}

// checkErr drains the GL error queue and maps the first error.
func checkErr(op string) error {
	var first uint32
	for code := gl.GetError(); code != gl.NO_ERROR; code = gl.GetError() {
		if first == 0 {
			first = code
		}
		if code == glContextLost {
			first = code
			break
		}
	}
	switch first {
	case 0:
		return nil
	case gl.OUT_OF_MEMORY:
		return fmt.Errorf("gl: %s: %w", op, gfx.ErrOutOfMemory)
	case glContextLost:
		return fmt.Errorf("gl: %s: %w", op, gfx.ErrDeviceLost)
	}
	return fmt.Errorf("gl: %s: error 0x%04x", op, first)
}

func (d *Device) CreateTexture(desc *gputypes.TextureDescriptor, sampler *gputypes.SamplerDescriptor) (gfx.TextureID, error) {
	if desc.Format != gputypes.TextureFormatRGBA8Unorm {
		return 0, fmt.Errorf("gl: unsupported format %v", desc.Format)
	}
	w, h := int(desc.Size.Width), int(desc.Size.Height)
	if w <= 0 || h <= 0 {
		return 0, fmt.Errorf("gl: invalid size %dx%d", w, h)
	}
	t := &glTexture{w: w, h: h, levels: int32(max(desc.MipLevelCount, 1))}
	gl.GenTextures(1, &t.id)
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	for i := int32(0); i < t.levels; i++ {
		gl.TexImage2D(gl.TEXTURE_2D, i, gl.RGBA8, int32(max(w>>i, 1)), int32(max(h>>i, 1)), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAX_LEVEL, t.levels-1)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, minFilter(sampler, t.levels))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filter(sampler.MagFilter))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrap(sampler.AddressModeU))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrap(sampler.AddressModeV))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	if err := checkErr("create texture"); err != nil {
		gl.DeleteTextures(1, &t.id)
		return 0, err
	}
	d.nextTex++
	d.textures[d.nextTex] = t
	return d.nextTex, nil
}

func filter(m gputypes.FilterMode) int32 {
	if m == gputypes.FilterModeLinear {
		return gl.LINEAR
	}
	return gl.NEAREST
}

func minFilter(s *gputypes.SamplerDescriptor, levels int32) int32 {
	if levels <= 1 {
		return filter(s.MinFilter)
	}
	if s.MipmapFilter == gputypes.MipmapFilterModeLinear {
		return gl.LINEAR_MIPMAP_LINEAR
	}
	return gl.LINEAR_MIPMAP_NEAREST
}

func wrap(m gputypes.AddressMode) int32 {
	if m == gputypes.AddressModeClampToEdge {
		return gl.CLAMP_TO_EDGE
	}
	return gl.REPEAT
}

// WriteTexture uploads rows top first; v=0 samples the first row.
func (d *Device) WriteTexture(id gfx.TextureID, region image.Rectangle, pixels []byte) error {
	t, ok := d.textures[id]
	if !ok {
		return fmt.Errorf("gl: unknown texture %d", id)
	}
	if !region.In(image.Rect(0, 0, t.w, t.h)) {
		return fmt.Errorf("gl: region %v outside %dx%d", region, t.w, t.h)
	}
	if len(pixels) < region.Dx()*region.Dy()*4 {
		return errors.New("gl: short pixel data")
	}
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, int32(region.Min.X), int32(region.Min.Y),
		int32(region.Dx()), int32(region.Dy()), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return checkErr("write texture")
}

// GenerateMipmaps blits each level into the next with linear filtering.
func (d *Device) GenerateMipmaps(id gfx.TextureID) error {
	t, ok := d.textures[id]
	if !ok {
		return fmt.Errorf("gl: unknown texture %d", id)
	}
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, d.readFBO)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, d.drawFBO)
	for i := int32(1); i < t.levels; i++ {
		gl.FramebufferTexture2D(gl.READ_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.id, i-1)
		gl.FramebufferTexture2D(gl.DRAW_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.id, i)
		sw, sh := int32(max(t.w>>(i-1), 1)), int32(max(t.h>>(i-1), 1))
		dw, dh := int32(max(t.w>>i, 1)), int32(max(t.h>>i, 1))
		gl.BlitFramebuffer(0, 0, sw, sh, 0, 0, dw, dh, gl.COLOR_BUFFER_BIT, gl.LINEAR)
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return checkErr("generate mipmaps")
}

// CopyTexture blits between level 0 of two textures. Texture rows are
// stored top first on both sides, so no flip is needed.
func (d *Device) CopyTexture(dst gfx.TextureID, at image.Point, src gfx.TextureID, r image.Rectangle) error {
	st, ok := d.textures[src]
	if !ok {
		return fmt.Errorf("gl: unknown texture %d", src)
	}
	dt, ok := d.textures[dst]
	if !ok {
		return fmt.Errorf("gl: unknown texture %d", dst)
	}
	to := r.Sub(r.Min).Add(at)
	if !r.In(image.Rect(0, 0, st.w, st.h)) || !to.In(image.Rect(0, 0, dt.w, dt.h)) {
		return fmt.Errorf("gl: copy %v to %v out of bounds", r, to)
	}
	if src == dst && r.Overlaps(to) {
		return fmt.Errorf("gl: overlapping copy %v to %v", r, to)
	}
	gl.Disable(gl.SCISSOR_TEST)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, d.readFBO)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, d.drawFBO)
	gl.FramebufferTexture2D(gl.READ_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, st.id, 0)
	gl.FramebufferTexture2D(gl.DRAW_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, dt.id, 0)
	gl.BlitFramebuffer(int32(r.Min.X), int32(r.Min.Y), int32(r.Max.X), int32(r.Max.Y),
		int32(to.Min.X), int32(to.Min.Y), int32(to.Max.X), int32(to.Max.Y),
		gl.COLOR_BUFFER_BIT, gl.NEAREST)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return checkErr("copy texture")
}

func (d *Device) DestroyTexture(id gfx.TextureID) {
	if t, ok := d.textures[id]; ok {
		gl.DeleteTextures(1, &t.id)
		delete(d.textures, id)
	}
}

func (d *Device) CreatePipeline(desc gfx.PipelineDesc) (gfx.PipelineID, error) {
	prog, err := makeProgram(vertexSource, fragmentSource(desc))
	if err != nil {
		return 0, fmt.Errorf("gl: pipeline %q: %w", desc.Label, err)
	}
	d.nextPipe++
	d.programs[d.nextPipe] = prog
	return d.nextPipe, nil
}

func (d *Device) DestroyPipeline(id gfx.PipelineID) {
	if prog, ok := d.programs[id]; ok {
		gl.DeleteProgram(prog)
		delete(d.programs, id)
	}
}

func (d *Device) BeginPass(pass gfx.PassDesc) error {
	if pass.Offscreen() {
		t, ok := d.textures[pass.Target]
		if !ok {
			return fmt.Errorf("gl: unknown target %d", pass.Target)
		}
		bounds := image.Rect(0, 0, t.w, t.h)
		if pass.Viewport.Empty() {
			pass.Viewport = bounds
		}
		if !pass.Viewport.In(bounds) {
			return fmt.Errorf("gl: viewport %v outside %v", pass.Viewport, bounds)
		}
		vp := pass.Viewport
		gl.BindFramebuffer(gl.FRAMEBUFFER, d.drawFBO)
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.id, 0)
		if st := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); st != gl.FRAMEBUFFER_COMPLETE {
			gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
			return fmt.Errorf("gl: target %d incomplete: 0x%04x", pass.Target, st)
		}
		gl.Viewport(int32(vp.Min.X), int32(vp.Min.Y), int32(vp.Dx()), int32(vp.Dy()))
		// The scissor keeps the clear inside a sub-image viewport.
		gl.Enable(gl.SCISSOR_TEST)
		gl.Scissor(targetScissor(image.Rectangle{}, vp))
	} else {
		if pass.Width > 0 && pass.Height > 0 {
			d.w, d.h = pass.Width, pass.Height
		}
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		gl.Viewport(0, 0, int32(d.w), int32(d.h))
		gl.Disable(gl.SCISSOR_TEST)
	}
	if !pass.Load {
		c := pass.Clear
		gl.ClearColor(c[0], c[1], c[2], c[3])
		gl.Clear(gl.COLOR_BUFFER_BIT)
	}

	frameBlock(&d.frame, pass.Globals, pass.Offscreen())
	gl.BindBuffer(gl.UNIFORM_BUFFER, d.frameUBO)
	gl.BufferSubData(gl.UNIFORM_BUFFER, 0, len(d.frame)*4, gl.Ptr(&d.frame[0]))
	gl.BindBuffer(gl.UNIFORM_BUFFER, 0)

	gl.BindVertexArray(d.vao)
	gl.ActiveTexture(gl.TEXTURE0)
	if err := checkErr("begin pass"); err != nil {
		return err
	}
	d.pass = pass
	d.inPass = true
	return nil
}

func (d *Device) Draw(cmd gfx.DrawCmd) error {
	if !d.inPass {
		return errNoPass
	}
	if d.pass.Offscreen() && cmd.Texture == d.pass.Target {
		return fmt.Errorf("gl: draw texture %d: %w", cmd.Texture, gfx.ErrFeedback)
	}
	t, ok := d.textures[cmd.Texture]
	if !ok {
		return fmt.Errorf("gl: unknown texture %d", cmd.Texture)
	}
	prog, ok := d.programs[cmd.Pipeline]
	if !ok {
		return fmt.Errorf("gl: unknown pipeline %d", cmd.Pipeline)
	}
	if cmd.Count == 0 {
		return nil
	}

	gl.UseProgram(prog)
	gl.BindTexture(gl.TEXTURE_2D, t.id)

	batchBlock(&d.batch, &cmd.User, &cmd.Color)
	gl.BindBuffer(gl.UNIFORM_BUFFER, d.batchUBO)
	gl.BufferSubData(gl.UNIFORM_BUFFER, 0, len(d.batch)*4, gl.Ptr(&d.batch[0]))

	switch {
	case d.pass.Offscreen():
		gl.Scissor(targetScissor(cmd.Clip, d.pass.Viewport))
	case cmd.Clip.Empty():
		gl.Disable(gl.SCISSOR_TEST)
	default:
		gl.Enable(gl.SCISSOR_TEST)
		gl.Scissor(scissor(cmd.Clip, d.h))
	}

	// Orphan the buffer so the driver does not stall on the previous draw.
	data := cmd.Instances[:cmd.Count*gfx.InstanceFloats]
	gl.BindBuffer(gl.ARRAY_BUFFER, d.instances)
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, nil, gl.STREAM_DRAW)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(data)*4, gl.Ptr(data))
	gl.DrawArraysInstanced(gl.TRIANGLE_STRIP, 0, 4, int32(cmd.Count))
	return checkErr("draw")
}

func (d *Device) EndPass() error {
	if !d.inPass {
		return errNoPass
	}
	d.inPass = false
	gl.Disable(gl.SCISSOR_TEST)
	gl.BindVertexArray(0)
	gl.UseProgram(0)
	if d.pass.Offscreen() {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		gl.Viewport(0, 0, int32(d.w), int32(d.h))
	}
	return checkErr("end pass")
}

func (d *Device) Present() error {
	if d.swap != nil {
		d.swap()
	}
	return checkErr("present")
}

// ReadPixels reads the front buffer, which holds the last presented frame.
func (d *Device) ReadPixels() (*image.NRGBA, error) {
	img := image.NewNRGBA(image.Rect(0, 0, d.w, d.h))
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
	gl.ReadBuffer(gl.FRONT)
	gl.ReadPixels(0, 0, int32(d.w), int32(d.h), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	gl.ReadBuffer(gl.BACK)
	if err := checkErr("read pixels"); err != nil {
		return nil, err
	}
	flipRows(img)
	return img, nil
}

func (d *Device) Resize(w, h int) { d.w, d.h = w, h }

// Close frees every GL object the device created.
func (d *Device) Close() {
	for id := range d.textures {
		d.DestroyTexture(id)
	}
	for id := range d.programs {
		d.DestroyPipeline(id)
	}
	gl.DeleteBuffers(1, &d.instances)
	gl.DeleteBuffers(1, &d.batchUBO)
	gl.DeleteBuffers(1, &d.frameUBO)
	gl.DeleteFramebuffers(1, &d.readFBO)
	gl.DeleteFramebuffers(1, &d.drawFBO)
	gl.DeleteVertexArrays(1, &d.vao)
}

var _ gfx.Device = (*Device)(nil)
