package main

import (
	"image"
	"math"
	"math/rand/v2"

	"github.com/hubastard/spot/engine/camera"
	"github.com/hubastard/spot/engine/colors"
	"github.com/hubastard/spot/engine/core"
	"github.com/hubastard/spot/engine/gfx"
	"github.com/hubastard/spot/engine/gfx/transform"
	"github.com/hubastard/spot/engine/resources"
	"github.com/hubastard/spot/engine/text"
	"golang.org/x/image/font/gofont/goregular"
)

type playPayload struct {
	Sprites int
	Seed    uint64
}

const (
	frameSize  = 16
	frameCount = 4
	mapSize    = 128
	worldSize  = 2000
)

// Wobbles the sampled row with time held in uUser[0].x.
const waveShade = `
vec2 p = uv + vec2(sin(uv.y * 40.0 + uUser[0].x * 6.0) * 0.03, 0.0);
return texture(uTex, p);
`

type sprite struct {
	x, y, rot, spin float32
	frame           int
	wave            bool
}

// playScene draws an animated sprite field under a movable camera.
type playScene struct {
	ctx     *core.Context
	cam     *camera.Camera2D
	ctrl    *camera.Controller2D
	font    text.FontID
	sheet   resources.Handle
	frames  [frameCount]resources.Handle
	wave    gfx.PipelineID
	minimap resources.Handle
	icon    resources.Handle
	sprites []sprite
	t       float32
}

func newPlayScene() core.Scene { return &playScene{} }

func (s *playScene) Initialize(ctx *core.Context, payload any) error {
	s.ctx = ctx
	p, _ := payload.(playPayload)
	if p.Sprites == 0 {
		p.Sprites = 100
	}
	w, h := ctx.ScreenSize()
	s.cam = camera.New(w, h)
	s.ctrl = camera.NewController2D(s.cam)

	var err error
	if s.font, err = ctx.RegisterFont("goregular", goregular.TTF); err != nil {
		return err
	}
	if s.sheet, err = ctx.Cache().Load(resources.Pixels(frameSize*frameCount, frameSize, spriteSheet())); err != nil {
		return err
	}
	for i := range s.frames {
		r := image.Rect(i*frameSize, 0, (i+1)*frameSize, frameSize)
		if s.frames[i], err = ctx.SubImage(s.sheet, r); err != nil {
			return err
		}
	}
	if s.wave, err = ctx.RegisterShader("wave", waveShade); err != nil {
		return err
	}
	if s.minimap, err = ctx.NewImage(mapSize, mapSize, colors.Black); err != nil {
		return err
	}
	if s.icon, err = ctx.NewImage(frameSize, frameSize, colors.Transparent); err != nil {
		return err
	}
	if err = ctx.CopyImage(s.icon, image.Point{}, s.sheet, image.Rect(0, 0, frameSize, frameSize)); err != nil {
		return err
	}

	rng := rand.New(rand.NewPCG(p.Seed, 0x5eed))
	s.sprites = make([]sprite, p.Sprites)
	for i := range s.sprites {
		s.sprites[i] = sprite{
			x:     (rng.Float32() - 0.5) * worldSize,
			y:     (rng.Float32() - 0.5) * worldSize,
			rot:   rng.Float32() * 2 * math.Pi,
			spin:  (rng.Float32() - 0.5) * 4,
			frame: rng.IntN(frameCount),
			wave:  rng.IntN(5) == 0,
		}
	}
	return nil
}

func (s *playScene) Update(ctx *core.Context, dt float64) {
	s.t += float32(dt)
	s.ctrl.Update(ctx.Input(), float32(dt))
	for i := range s.sprites {
		s.sprites[i].rot += s.sprites[i].spin * float32(dt)
	}
	if ctx.Input().Pressed(core.KeyEscape) {
		ctx.SwitchScene(newTitleScene, titlePayload{Message: "Back again. Enter to replay"})
	}
}

func (s *playScene) Draw(ctx *core.Context) {
	anim := int(s.t * 8)
	var user gfx.UserGlobals
	user.SetVec4(0, [4]float32{s.t, 0, 0, 0})
	for _, sp := range s.sprites {
		pl := s.cam.Apply(transform.Placement{
			Position: [2]float32{sp.x, sp.y},
			Rotation: sp.rot,
			Scale:    [2]float32{2, 2},
		})
		o := core.Place(pl)
		if sp.wave {
			o = o.Shader(s.wave).Uniforms(user)
		}
		ctx.DrawImage(s.frames[(sp.frame+anim)%frameCount], o)
	}

	w, h := ctx.ScreenSize()
	if err := ctx.DrawTo(s.minimap, s.drawMinimap); err == nil {
		ctx.DrawImage(s.minimap, core.At(float32(w-mapSize-8), 8).Opacity(0.85))
	}
	clip := image.Rect(0, h-40, w, h)
	_ = ctx.FillRect(float32(w), 40, colors.Black.WithAlpha(0.6), core.At(0, float32(h-40)))
	ctx.DrawImage(s.icon, core.At(12, float32(h-28)))
	_ = ctx.DrawText("WASD move, Q/E rotate, Z/X zoom, Esc back to title",
		text.Style{Font: s.font, Size: 18, Color: colors.Gray},
		core.At(36, float32(h-30)).Clip(clip))
}

// drawMinimap plots every sprite and the camera into the minimap image.
func (s *playScene) drawMinimap() {
	const k = float32(mapSize) / worldSize
	toMap := func(x, y float32) core.DrawOptions {
		return core.At((x+worldSize/2)*k, (y+worldSize/2)*k)
	}
	_ = s.ctx.FillRect(mapSize, mapSize, colors.Black, core.At(0, 0))
	for _, sp := range s.sprites {
		_ = s.ctx.FillRect(2, 2, colors.White, toMap(sp.x, sp.y))
	}
	_ = s.ctx.FillRect(4, 4, colors.Red, toMap(s.cam.X-2/k, s.cam.Y-2/k))
}

func (s *playScene) Event(_ *core.Context, ev core.Event) bool {
	switch v := ev.(type) {
	case core.EventResize:
		s.cam.SetViewportPixels(v.W, v.H)
	case core.EventScroll:
		s.cam.SetZoom(s.cam.Zoom * float32(math.Pow(1.1, v.Yoff)))
		return true
	}
	return false
}

func (s *playScene) Remove() error {
	for _, h := range s.frames {
		if err := s.ctx.Release(h); err != nil {
			return err
		}
	}
	for _, h := range []resources.Handle{s.sheet, s.minimap, s.icon} {
		if err := s.ctx.Release(h); err != nil {
			return err
		}
	}
	return s.ctx.UnregisterFont(s.font)
}

// spriteSheet draws frameCount frames of a square growing a colored core.
func spriteSheet() []byte {
	w := frameSize * frameCount
	pix := make([]byte, w*frameSize*4)
	palette := [frameCount]colors.Color{colors.Red, colors.Yellow, colors.Green, colors.Blue}
	for f := 0; f < frameCount; f++ {
		inset := frameSize/2 - 2 - f*2
		for y := 0; y < frameSize; y++ {
			for x := 0; x < frameSize; x++ {
				c := colors.White.RGBA8()
				if x >= inset && x < frameSize-inset && y >= inset && y < frameSize-inset {
					c = palette[f].RGBA8()
				}
				o := (y*w + f*frameSize + x) * 4
				pix[o], pix[o+1], pix[o+2], pix[o+3] = c.R, c.G, c.B, c.A
			}
		}
	}
	return pix
}
