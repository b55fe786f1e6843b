package main

import (
	"math"

	"github.com/hubastard/spot/engine/colors"
	"github.com/hubastard/spot/engine/core"
	"github.com/hubastard/spot/engine/gfx/transform"
	"github.com/hubastard/spot/engine/resources"
	"github.com/hubastard/spot/engine/text"
	"golang.org/x/image/font/gofont/goregular"
)

type titlePayload struct {
	Message string
}

// titleScene shows a pulsing logo until Enter starts the play scene.
type titleScene struct {
	ctx  *core.Context
	msg  string
	font text.FontID
	logo resources.Handle
	t    float64
}

func newTitleScene() core.Scene { return &titleScene{} }

func (s *titleScene) Initialize(ctx *core.Context, payload any) error {
	s.ctx = ctx
	if p, ok := payload.(titlePayload); ok {
		s.msg = p.Message
	}
	var err error
	if s.font, err = ctx.RegisterFont("goregular", goregular.TTF); err != nil {
		return err
	}
	s.logo, err = ctx.Cache().Load(resources.Pixels(checkerSize, checkerSize, checker(colors.Cyan, colors.Magenta)))
	if err != nil {
		return err
	}
	if ctx.Layers().Len() == 0 {
		ctx.Layers().Push(newDebugLayer())
	}
	return nil
}

func (s *titleScene) Update(ctx *core.Context, dt float64) {
	s.t += dt
	in := ctx.Input()
	switch {
	case in.Pressed(core.KeyEnter):
		ctx.SwitchScene(newPlayScene, playPayload{Sprites: 400, Seed: uint64(ctx.Frames())})
	case in.Pressed(core.KeyEscape):
		ctx.Quit()
	}
}

func (s *titleScene) Draw(ctx *core.Context) {
	w, h := ctx.ScreenSize()
	pulse := float32(1 + 0.1*math.Sin(s.t*3))
	size := float32(checkerSize) * 4 * pulse
	ctx.DrawImage(s.logo, core.At(float32(w)/2-size/2, float32(h)/3-size/2).
		Scale(4*pulse, 4*pulse).
		Color(transform.Grayscale(float32(0.5+0.5*math.Sin(s.t)))))

	st := text.Style{Font: s.font, Size: 28, Color: colors.White}
	tw, _, _ := ctx.Fonts().Measure(s.msg, st)
	_ = ctx.DrawText(s.msg, st, core.At(float32(w)/2-tw/2, float32(h)*2/3))
}

func (s *titleScene) Remove() error {
	if err := s.ctx.Release(s.logo); err != nil {
		return err
	}
	return s.ctx.UnregisterFont(s.font)
}

const checkerSize = 16

// checker returns RGBA8 pixels of a two-color checkerboard.
func checker(a, b colors.Color) []byte {
	pix := make([]byte, 0, checkerSize*checkerSize*4)
	ca, cb := a.RGBA8(), b.RGBA8()
	for y := 0; y < checkerSize; y++ {
		for x := 0; x < checkerSize; x++ {
			c := ca
			if (x/4+y/4)%2 == 1 {
				c = cb
			}
			pix = append(pix, c.R, c.G, c.B, c.A)
		}
	}
	return pix
}
