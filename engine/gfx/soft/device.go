// Package soft is a CPU implementation of gfx.Device. It renders into an
// in-memory image, which makes it usable headless and as the recording
// device in tests.
package soft

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
	"github.com/hubastard/spot/engine/colors"
	"github.com/hubastard/spot/engine/gfx"
	"github.com/hubastard/spot/engine/gfx/transform"
	"github.com/hubastard/spot/engine/logging"
	xdraw "golang.org/x/image/draw"
)

var errNoPass = errors.New("soft: no render pass open")

// Stats counts device calls.
type Stats struct {
	TexturesCreated   int
	TexturesDestroyed int
	Writes            int
	MipChains         int
	Copies            int
	Passes            int
	OffscreenPasses   int
	Draws             int
	Instances         int
	Presents          int
}

type texture struct {
	levels  []*image.NRGBA
	sampler gputypes.SamplerDescriptor
}

// Device renders on the CPU. It is not safe for concurrent use.
type Device struct {
	w, h      int
	target    *image.NRGBA
	screen    *image.NRGBA
	presented *image.NRGBA
	inPass    bool
	passTex   gfx.TextureID
	globals   gfx.EngineGlobals

	textures  map[gfx.TextureID]*texture
	pipelines map[gfx.PipelineID]gfx.PipelineDesc
	nextTex   gfx.TextureID
	nextPipe  gfx.PipelineID

	stats    Stats
	drawErr  error
	lost     bool
	Recorded []gfx.DrawCmd // every draw of the current pass, in order
}

// New returns a device with a w×h framebuffer.
func New(w, h int) *Device {
	return &Device{
		w: w, h: h,
		textures:  make(map[gfx.TextureID]*texture),
		pipelines: make(map[gfx.PipelineID]gfx.PipelineDesc),
	}
}

// Stats returns the call counters.
func (d *Device) Stats() Stats { return d.stats }

// FailDraws makes every following Draw return err until called with nil.
func (d *Device) FailDraws(err error) { d.drawErr = err }

// Lose simulates losing the device: every later call fails with
// gfx.ErrDeviceLost.
func (d *Device) Lose() { d.lost = true }

// Level returns mip level of a texture for inspection.
func (d *Device) Level(id gfx.TextureID, level int) (*image.NRGBA, bool) {
	t, ok := d.textures[id]
	if !ok || level >= len(t.levels) {
		return nil, false
	}
	return t.levels[level], true
}

// Live reports the number of textures currently allocated.
func (d *Device) Live() int { return len(d.textures) }

func (d *Device) CreateTexture(desc *gputypes.TextureDescriptor, sampler *gputypes.SamplerDescriptor) (gfx.TextureID, error) {
	if d.lost {
		return 0, gfx.ErrDeviceLost
	}
	if desc.Format != gputypes.TextureFormatRGBA8Unorm {
		return 0, fmt.Errorf("soft: unsupported format %v", desc.Format)
	}
	w, h := int(desc.Size.Width), int(desc.Size.Height)
	if w <= 0 || h <= 0 {
		return 0, fmt.Errorf("soft: invalid size %dx%d", w, h)
	}
	n := max(int(desc.MipLevelCount), 1)
	t := &texture{levels: make([]*image.NRGBA, n), sampler: *sampler}
	for i := range t.levels {
		t.levels[i] = image.NewNRGBA(image.Rect(0, 0, max(w>>i, 1), max(h>>i, 1)))
	}
	d.nextTex++
	d.textures[d.nextTex] = t
	d.stats.TexturesCreated++
	return d.nextTex, nil
}

func (d *Device) WriteTexture(id gfx.TextureID, region image.Rectangle, pixels []byte) error {
	if d.lost {
		return gfx.ErrDeviceLost
	}
	t, ok := d.textures[id]
	if !ok {
		return fmt.Errorf("soft: unknown texture %d", id)
	}
	dst := t.levels[0]
	if !region.In(dst.Bounds()) {
		return fmt.Errorf("soft: region %v outside %v", region, dst.Bounds())
	}
	if len(pixels) < region.Dx()*region.Dy()*4 {
		return fmt.Errorf("soft: short pixel data")
	}
	row := region.Dx() * 4
	for y := 0; y < region.Dy(); y++ {
		off := dst.PixOffset(region.Min.X, region.Min.Y+y)
		copy(dst.Pix[off:off+row], pixels[y*row:(y+1)*row])
	}
	d.stats.Writes++
	return nil
}

// GenerateMipmaps downsamples each level from the previous one.
func (d *Device) GenerateMipmaps(id gfx.TextureID) error {
	if d.lost {
		return gfx.ErrDeviceLost
	}
	t, ok := d.textures[id]
	if !ok {
		return fmt.Errorf("soft: unknown texture %d", id)
	}
	for i := 1; i < len(t.levels); i++ {
		src, dst := t.levels[i-1], t.levels[i]
		xdraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	}
	d.stats.MipChains++
	return nil
}

func (d *Device) CopyTexture(dst gfx.TextureID, at image.Point, src gfx.TextureID, r image.Rectangle) error {
	if d.lost {
		return gfx.ErrDeviceLost
	}
	st, ok := d.textures[src]
	if !ok {
		return fmt.Errorf("soft: unknown texture %d", src)
	}
	dt, ok := d.textures[dst]
	if !ok {
		return fmt.Errorf("soft: unknown texture %d", dst)
	}
	to := r.Sub(r.Min).Add(at)
	if !r.In(st.levels[0].Bounds()) || !to.In(dt.levels[0].Bounds()) {
		return fmt.Errorf("soft: copy %v to %v out of bounds", r, to)
	}
	if src == dst && r.Overlaps(to) {
		return fmt.Errorf("soft: overlapping copy %v to %v", r, to)
	}
	draw.Draw(dt.levels[0], to, st.levels[0], r.Min, draw.Src)
	d.stats.Copies++
	return nil
}

func (d *Device) DestroyTexture(id gfx.TextureID) {
	if _, ok := d.textures[id]; ok {
		delete(d.textures, id)
		d.stats.TexturesDestroyed++
	}
}

func (d *Device) CreatePipeline(desc gfx.PipelineDesc) (gfx.PipelineID, error) {
	if d.lost {
		return 0, gfx.ErrDeviceLost
	}
	if desc.Kind == gfx.PipelineCustom {
		logging.Logger().Debug("soft: custom shading runs as image", "label", desc.Label)
	}
	d.nextPipe++
	d.pipelines[d.nextPipe] = desc
	return d.nextPipe, nil
}

func (d *Device) DestroyPipeline(id gfx.PipelineID) { delete(d.pipelines, id) }

func (d *Device) BeginPass(pass gfx.PassDesc) error {
	if d.lost {
		return gfx.ErrDeviceLost
	}
	if pass.Offscreen() {
		t, ok := d.textures[pass.Target]
		if !ok {
			return fmt.Errorf("soft: unknown target %d", pass.Target)
		}
		lvl := t.levels[0]
		vp := pass.Viewport
		if vp.Empty() {
			vp = lvl.Bounds()
		}
		if !vp.In(lvl.Bounds()) {
			return fmt.Errorf("soft: viewport %v outside %v", vp, lvl.Bounds())
		}
		// Rebase the viewport so pass coordinates start at zero while
		// writes still land in the texture.
		sub := lvl.SubImage(vp).(*image.NRGBA)
		d.target = &image.NRGBA{Pix: sub.Pix, Stride: sub.Stride, Rect: image.Rect(0, 0, vp.Dx(), vp.Dy())}
		d.stats.OffscreenPasses++
	} else {
		if pass.Width > 0 && pass.Height > 0 {
			d.w, d.h = pass.Width, pass.Height
		}
		d.target = image.NewNRGBA(image.Rect(0, 0, d.w, d.h))
		d.screen = d.target
		d.stats.Passes++
	}
	if !pass.Load {
		draw.Draw(d.target, d.target.Bounds(), image.NewUniform(pass.Clear.RGBA8()), image.Point{}, draw.Src)
	}
	d.passTex = pass.Target
	d.globals = pass.Globals
	d.inPass = true
	d.Recorded = d.Recorded[:0]
	return nil
}

func (d *Device) Draw(cmd gfx.DrawCmd) error {
	if d.lost {
		return gfx.ErrDeviceLost
	}
	if !d.inPass {
		return errNoPass
	}
	if d.drawErr != nil {
		return d.drawErr
	}
	if d.passTex != 0 && cmd.Texture == d.passTex {
		return fmt.Errorf("soft: draw texture %d: %w", cmd.Texture, gfx.ErrFeedback)
	}
	t, ok := d.textures[cmd.Texture]
	if !ok {
		return fmt.Errorf("soft: unknown texture %d", cmd.Texture)
	}
	desc, ok := d.pipelines[cmd.Pipeline]
	if !ok {
		return fmt.Errorf("soft: unknown pipeline %d", cmd.Pipeline)
	}

	area := d.target.Bounds()
	if !cmd.Clip.Empty() {
		area = area.Intersect(cmd.Clip)
	}
	for i := 0; i < cmd.Count; i++ {
		d.drawInstance(gfx.UnpackInstance(cmd.Instances, i), t.levels[0], desc.Kind, &cmd, area)
	}
	rec := cmd
	rec.Instances = append([]float32(nil), cmd.Instances[:cmd.Count*gfx.InstanceFloats]...)
	d.Recorded = append(d.Recorded, rec)
	d.stats.Draws++
	d.stats.Instances += cmd.Count
	return nil
}

func (d *Device) drawInstance(in gfx.Instance, src *image.NRGBA, kind gfx.PipelineKind, cmd *gfx.DrawCmd, area image.Rectangle) {
	m := transform.Model(in)
	if m.Det() == 0 {
		return
	}
	inv := m.Inv()
	box := transform.Bounds(in).Intersect(area)
	sw, sh := src.Bounds().Dx(), src.Bounds().Dy()
	alpha := cmd.User.Opacity() * d.globals.Opacity

	for y := box.Min.Y; y < box.Max.Y; y++ {
		for x := box.Min.X; x < box.Max.X; x++ {
			local := inv.Mul3x1(mgl32.Vec3{float32(x) + 0.5, float32(y) + 0.5, 1})
			lu, lv := local[0], local[1]
			if lu < 0 || lu >= 1 || lv < 0 || lv >= 1 {
				continue
			}
			u := in.UV[0] + lu*in.UV[2]
			v := in.UV[1] + lv*in.UV[3]
			tx := min(max(int(u*float32(sw)), 0), sw-1)
			ty := min(max(int(v*float32(sh)), 0), sh-1)
			c := src.NRGBAAt(tx, ty)
			s := colors.FromRGBA8(c.R, c.G, c.B, c.A)
			if kind == gfx.PipelineTint {
				tint := cmd.User[0]
				s = colors.Color{tint[0], tint[1], tint[2], tint[3] * s[3]}
			}
			s = transform.ApplyColor(cmd.Color, s)
			s[3] *= alpha
			blend(d.target, x, y, s)
		}
	}
}

// blend composites s over the target pixel (source-over, straight alpha).
func blend(dst *image.NRGBA, x, y int, s colors.Color) {
	sa := mgl32.Clamp(s[3], 0, 1)
	if sa == 0 {
		return
	}
	dc := dst.NRGBAAt(x, y)
	dcol := colors.FromRGBA8(dc.R, dc.G, dc.B, dc.A)
	da := dcol[3]
	oa := sa + da*(1-sa)
	var out colors.Color
	for i := 0; i < 3; i++ {
		out[i] = (s[i]*sa + dcol[i]*da*(1-sa)) / oa
	}
	out[3] = oa
	dst.SetNRGBA(x, y, out.RGBA8())
}

func (d *Device) EndPass() error {
	if d.lost {
		return gfx.ErrDeviceLost
	}
	if !d.inPass {
		return errNoPass
	}
	d.inPass = false
	return nil
}

func (d *Device) Present() error {
	if d.lost {
		return gfx.ErrDeviceLost
	}
	d.presented = d.screen
	d.stats.Presents++
	return nil
}

// ReadPixels returns a copy of the last presented frame.
func (d *Device) ReadPixels() (*image.NRGBA, error) {
	if d.lost {
		return nil, gfx.ErrDeviceLost
	}
	if d.presented == nil {
		return nil, errors.New("soft: nothing presented yet")
	}
	out := image.NewNRGBA(d.presented.Bounds())
	copy(out.Pix, d.presented.Pix)
	return out, nil
}

func (d *Device) Resize(w, h int) { d.w, d.h = w, h }

// Close releases every texture and pipeline.
func (d *Device) Close() {
	clear(d.textures)
	clear(d.pipelines)
}
