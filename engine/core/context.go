package core

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/hubastard/spot/engine/assets"
	"github.com/hubastard/spot/engine/colors"
	"github.com/hubastard/spot/engine/gfx"
	"github.com/hubastard/spot/engine/gfx/batch"
	"github.com/hubastard/spot/engine/gfx/render"
	"github.com/hubastard/spot/engine/gfx/texture"
	"github.com/hubastard/spot/engine/gfx/transform"
	"github.com/hubastard/spot/engine/logging"
	"github.com/hubastard/spot/engine/profiler"
	"github.com/hubastard/spot/engine/resources"
	"github.com/hubastard/spot/engine/text"
)

// Context is what scenes see of the engine. It outlives every scene, so
// fonts, shaders and cached textures survive scene switches.
type Context struct {
	cfg      Config
	dev      gfx.Device
	window   Window
	textures *texture.Manager
	cache    *resources.Cache
	batcher  *batch.Batcher
	renderer *render.Renderer
	fonts    *text.Registry
	shaders  map[string]gfx.PipelineID
	input    *Input
	machine  Machine
	layers   LayerStack

	white     resources.Handle
	target    *batch.Batcher
	offscreen bool
	canvases  int
	w, h      int
	opacity   float32
	quit      bool
	frames    uint64
}

// NewContext wires the engine services on dev. Window may be nil for
// headless use.
func NewContext(dev gfx.Device, win Window, cfg Config) (*Context, error) {
	w, h := cfg.Width, cfg.Height
	if win != nil {
		w, h = win.FramebufferSize()
	}
	rend, err := render.New(dev, render.Options{
		Width:        w,
		Height:       h,
		Clear:        cfg.ClearColor,
		MaxInstances: cfg.MaxInstances,
		ProfileEvery: cfg.ProfileEvery,
	})
	if err != nil {
		return nil, err
	}
	textures := texture.NewManager(dev)
	cache := resources.New(textures)
	cache.SetPacking(resources.Packing{Size: cfg.atlasSize(), MaxSide: cfg.PackMaxSide, Padding: 1})
	return &Context{
		cfg:      cfg,
		dev:      dev,
		window:   win,
		textures: textures,
		cache:    cache,
		batcher:  batch.New(max(cfg.MaxInstances, 256)),
		renderer: rend,
		fonts:    text.NewRegistry(cache, textures),
		shaders:  make(map[string]gfx.PipelineID),
		input:    NewInput(),
		w:        w,
		h:        h,
		opacity:  1,
	}, nil
}

func (c *Context) Config() Config                    { return c.cfg }
func (c *Context) Cache() *resources.Cache           { return c.cache }
func (c *Context) Textures() *texture.Manager        { return c.textures }
func (c *Context) Batcher() *batch.Batcher           { return c.batcher }
func (c *Context) Renderer() *render.Renderer        { return c.renderer }
func (c *Context) Fonts() *text.Registry             { return c.fonts }
func (c *Context) Input() *Input                     { return c.input }
func (c *Context) Machine() *Machine                 { return &c.machine }
func (c *Context) Layers() *LayerStack               { return &c.layers }
func (c *Context) ScreenSize() (int, int)            { return c.w, c.h }
func (c *Context) Frames() uint64                    { return c.frames }
func (c *Context) SetGlobalOpacity(a float32)        { c.opacity = a }
func (c *Context) Stats() render.Statistics          { return c.renderer.Stats() }
func (c *Context) CacheStats() resources.Stats       { return c.cache.Stats() }
func (c *Context) Device() gfx.Device                { return c.dev }
func (c *Context) ActiveScene() Scene                { return c.machine.Active() }
func (c *Context) PendingScene() bool                { return c.machine.Pending() }
func (c *Context) Window() Window                    { return c.window }
func (c *Context) Shader(name string) gfx.PipelineID { return c.shaders[name] }

func (c *Context) assetPath(path string) string {
	if filepath.IsAbs(path) || c.cfg.AssetRoot == "" {
		return path
	}
	return filepath.Join(c.cfg.AssetRoot, path)
}

// LoadImage loads an image file, relative to Config.AssetRoot.
func (c *Context) LoadImage(path string) (resources.Handle, error) {
	return c.cache.Load(resources.File(c.assetPath(path)))
}

// LoadImageBytes loads an encoded image held in memory.
func (c *Context) LoadImageBytes(name string, data []byte) (resources.Handle, error) {
	return c.cache.Load(resources.Bytes(name, data))
}

// SubImage registers a region of a loaded image as its own handle.
func (c *Context) SubImage(h resources.Handle, r image.Rectangle) (resources.Handle, error) {
	return c.cache.SubImage(h, r)
}

// Release gives up a handle returned by a load.
func (c *Context) Release(h resources.Handle) error { return c.cache.Release(h) }

// LoadFont registers a font file, relative to Config.AssetRoot.
func (c *Context) LoadFont(path string) (text.FontID, error) {
	return c.fonts.RegisterFile(c.assetPath(path))
}

// RegisterFont registers TrueType or OpenType data.
func (c *Context) RegisterFont(name string, data []byte) (text.FontID, error) {
	return c.fonts.Register(name, data)
}

func (c *Context) UnregisterFont(id text.FontID) error { return c.fonts.Unregister(id) }

// RegisterShader compiles a program from the body of `vec4 shade(vec2 uv)`
// and names it. Registering a name again replaces the program.
func (c *Context) RegisterShader(name, shade string) (gfx.PipelineID, error) {
	id, err := c.renderer.RegisterShader(name, shade)
	if err != nil {
		return 0, err
	}
	if old, ok := c.shaders[name]; ok {
		c.renderer.UnregisterShader(old)
	}
	c.shaders[name] = id
	return id, nil
}

// LoadShader registers the shading body stored in a file under
// Config.AssetRoot.
func (c *Context) LoadShader(name, path string) (gfx.PipelineID, error) {
	root := c.cfg.AssetRoot
	if root == "" {
		root = "."
	}
	src, err := assets.LoadShader(os.DirFS(root), filepath.ToSlash(path))
	if err != nil {
		return 0, err
	}
	return c.RegisterShader(name, src)
}

// DrawImage queues the image h for this frame.
func (c *Context) DrawImage(h resources.Handle, o DrawOptions) {
	user, color := o.uniforms()
	c.batcher.Submit(batch.Intent{
		Kind:      batch.KindImage,
		Resource:  h,
		Region:    o.region,
		Placement: o.placement(),
		Size:      o.size,
		Opacity:   o.alpha(),
		Pipeline:  o.shader,
		User:      user,
		Color:     color,
		Clip:      o.clip,
	})
}

// NewImage creates a blank w×h image filled with col, for use as a DrawTo
// target. Every call makes a distinct image.
func (c *Context) NewImage(w, h int, col colors.Color) (resources.Handle, error) {
	px := col.RGBA8()
	pixels := make([]byte, w*h*4)
	for i := 0; i < len(pixels); i += 4 {
		pixels[i], pixels[i+1], pixels[i+2], pixels[i+3] = px.R, px.G, px.B, px.A
	}
	tex, err := c.textures.Upload(w, h, pixels)
	if err != nil {
		return resources.Handle{}, err
	}
	c.canvases++
	return c.cache.Adopt(fmt.Sprintf("canvas:%d", c.canvases), tex), nil
}

// DrawTo runs fn with every draw redirected into the image dst, then renders
// those draws into it at once. dst keeps its pixels and its mip chain is
// rebuilt afterwards. Inside fn ScreenSize reports dst's size, and fn must
// not draw dst itself.
func (c *Context) DrawTo(dst resources.Handle, fn func()) error {
	if c.offscreen {
		return errors.New("core: DrawTo inside DrawTo")
	}
	tex, err := c.cache.Texture(dst)
	if err != nil {
		return err
	}
	if c.target == nil {
		c.target = batch.New(64)
	}
	frame, w, h := c.batcher, c.w, c.h
	c.batcher, c.w, c.h, c.offscreen = c.target, tex.Width(), tex.Height(), true
	defer func() {
		c.batcher, c.w, c.h, c.offscreen = frame, w, h, false
	}()

	c.target.BeginFrame()
	fn()
	batches, err := c.target.FinishFrame(c.cache)
	if err == nil {
		err = c.renderer.RenderTo(tex, batches, nil)
	}
	c.target.EndFrame()
	if err != nil {
		return err
	}
	return c.textures.Refresh(tex)
}

// CopyImage copies r of src, relative to src's top-left, into dst at at.
func (c *Context) CopyImage(dst resources.Handle, at image.Point, src resources.Handle, r image.Rectangle) error {
	dt, err := c.cache.Texture(dst)
	if err != nil {
		return err
	}
	st, err := c.cache.Texture(src)
	if err != nil {
		return err
	}
	return c.textures.Copy(dt, at, st, r)
}

// FillRect queues a solid w×h rectangle at the options' position. It
// replaces any color transform set on o.
func (c *Context) FillRect(w, h float32, col colors.Color, o DrawOptions) error {
	if c.white.IsZero() {
		white, err := c.cache.Load(resources.Pixels(1, 1, []byte{255, 255, 255, 255}))
		if err != nil {
			return err
		}
		c.white = white
	}
	c.DrawImage(c.white, o.Size(w, h).Color(transform.Tint(col)))
	return nil
}

// DrawText queues s set in st with its top-left at the options' position.
// Glyphs outside the screen are culled.
func (c *Context) DrawText(s string, st text.Style, o DrawOptions) error {
	if st.MaxWidth == 0 {
		st.MaxWidth = o.maxWidth
	}
	_, err := c.fonts.Draw(c.batcher, s, st, text.DrawParams{
		X:        o.x,
		Y:        o.y,
		Opacity:  o.alpha(),
		Clip:     o.clip,
		Viewport: image.Rect(0, 0, c.w, c.h),
	})
	return err
}

// SwitchScene queues a switch to a new scene built by f. It happens after
// this frame renders; a later call in the same frame wins.
func (c *Context) SwitchScene(f Factory, payload any) { c.machine.Request(f, payload) }

// Quit asks the run loop to stop after the current frame.
func (c *Context) Quit() {
	c.quit = true
	if c.window != nil {
		c.window.RequestClose()
	}
}

func (c *Context) quitting() bool { return c.quit }

// HandleEvent routes ev to the input snapshot, then to layers top-down,
// then to the scene if it handles events.
func (c *Context) HandleEvent(ev Event) {
	c.input.Handle(ev)
	if r, ok := ev.(EventResize); ok {
		c.resize(r.W, r.H)
	}
	if c.layers.ForEachReverse(func(l Layer) bool { return l.Event(c, ev) }) {
		return
	}
	if eh, ok := c.machine.Active().(EventHandler); ok {
		eh.Event(c, ev)
	}
}

func (c *Context) resize(w, h int) {
	if w < 1 || h < 1 {
		return
	}
	c.w, c.h = w, h
	c.renderer.Resize(w, h)
}

// Frame runs one frame: steps fixed updates of dt seconds, the draw pass,
// rendering, then any queued scene switch. A dropped frame is logged and
// not returned; a lost device, a dangling handle or a failed scene
// initialization is.
func (c *Context) Frame(dt float64, steps int) error {
	if c.machine.Active() == nil {
		return ErrNoScene
	}
	defer profiler.Start("Context.Frame")()
	prof := c.renderer.Profile()

	stop := prof.Measure("update")
	for i := 0; i < steps; i++ {
		c.machine.Active().Update(c, dt)
		c.layers.ForEach(func(l Layer) { l.Update(c, dt) })
	}
	if steps > 0 {
		c.input.endFrame()
	}
	stop()

	stop = prof.Measure("draw")
	c.cache.BeginFrame()
	c.batcher.BeginFrame()
	c.machine.Active().Draw(c)
	c.layers.ForEach(func(l Layer) { l.Draw(c) })
	stop()

	err := c.render()
	c.batcher.EndFrame()
	c.cache.EndFrame()
	c.renderer.EndFrame()
	c.frames++
	switch {
	case errors.Is(err, render.ErrRenderFailure):
		// Dropped; the renderer already logged it.
	case err != nil:
		return err
	}

	if err := c.machine.Apply(c); err != nil {
		return err
	}
	// Entries released by a removed scene go now rather than next frame.
	c.cache.Collect()
	return nil
}

func (c *Context) render() error {
	batches, err := c.batcher.FinishFrame(c.cache)
	if err != nil {
		logging.Logger().Error("frame batching failed", "err", err)
		return err
	}
	return c.renderer.Render(batches, transform.Globals(c.w, c.h, c.opacity))
}

// Close removes the active scene and frees every engine resource.
func (c *Context) Close() {
	c.machine.Close()
	c.fonts.Close()
	c.renderer.Close()
	c.cache.Close()
	logging.Logger().Debug("context closed", "frames", c.frames)
}
