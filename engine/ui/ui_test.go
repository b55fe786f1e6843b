package ui

import (
	"math"
	"testing"

	"github.com/hubastard/spot/engine/colors"
	"github.com/hubastard/spot/engine/core"
	"github.com/hubastard/spot/engine/gfx/soft"
	"golang.org/x/image/font/gofont/goregular"
)

func near(a, b float32) bool { return math.Abs(float64(a-b)) < 1e-3 }

func newContext(t *testing.T) (*Context, *soft.Device) {
	t.Helper()
	dev := soft.New(200, 200)
	cfg := core.DefaultConfig()
	cfg.Width, cfg.Height = 200, 200
	target, err := core.NewContext(dev, nil, cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(target.Close)
	font, err := target.RegisterFont("goregular", goregular.TTF)
	if err != nil {
		t.Fatal(err)
	}
	return &Context{Viewport: [4]float32{0, 0, 200, 200}, Font: font, FontSize: 14, Target: target}, dev
}

func TestVerticalStack(t *testing.T) {
	ctx, _ := newContext(t)
	a, b := Label("Frame"), Label("Draw calls: 12")
	root := View(a, b).FlowDirection(LayoutVertical).Padding(4).Gap(2)

	if err := Draw(ctx, root); err != nil {
		t.Fatal(err)
	}
	ap, as := a.Node().Pos(), a.Node().Size()
	bp, bs := b.Node().Pos(), b.Node().Size()
	if ap != [2]float32{4, 4} {
		t.Errorf("first label at %v, want 4,4", ap)
	}
	if !near(bp[1], ap[1]+as[1]+2) {
		t.Errorf("second label y = %v, want %v", bp[1], ap[1]+as[1]+2)
	}
	rs := root.Node().Size()
	if !near(rs[0], max(as[0], bs[0])+8) || !near(rs[1], as[1]+bs[1]+2+8) {
		t.Errorf("view size = %v", rs)
	}
}

func TestStretchAndExpand(t *testing.T) {
	ctx, _ := newContext(t)
	short, long := Label("a"), Label("a much longer line")
	spacer := View().HeightExpand()
	root := View(short, spacer, long).
		FlowDirection(LayoutVertical).
		AlignCross(AlignStretch).
		Size(150, 120).
		Gap(0)
	if err := Draw(ctx, root); err != nil {
		t.Fatal(err)
	}
	if short.Node().Size()[0] != 150 {
		t.Errorf("stretched width = %v, want 150", short.Node().Size()[0])
	}
	if end := long.Node().Pos()[1] + long.Node().Size()[1]; !near(end, 120) {
		t.Errorf("last label ends at %v, want the spacer to push it to 120", end)
	}
}

func TestBackgroundAndText(t *testing.T) {
	ctx, dev := newContext(t)
	root := View(Label("Hi").Color(colors.Yellow)).Padding(6).BgColor(colors.Black.WithAlpha(0.5))
	sc := &panel{ctx: ctx, root: root}
	if err := ctx.Target.Machine().Start(ctx.Target, func() core.Scene { return sc }, nil); err != nil {
		t.Fatal(err)
	}
	if err := ctx.Target.Frame(0, 0); err != nil {
		t.Fatal(err)
	}
	if sc.err != nil {
		t.Fatal(sc.err)
	}
	if len(dev.Recorded) != 2 {
		t.Fatalf("recorded %d batches, want background then glyphs", len(dev.Recorded))
	}
	if dev.Recorded[1].User.Vec4(0) != [4]float32(colors.Yellow) {
		t.Error("label color not carried to the glyph batch")
	}
}

func TestWrapUsesParentWidth(t *testing.T) {
	ctx, _ := newContext(t)
	l := Label("one two three four five six").Wrap(true)
	if err := Draw(ctx, View(l).WidthFixed(60).FlowDirection(LayoutVertical)); err != nil {
		t.Fatal(err)
	}
	_, single, _ := ctx.Target.Fonts().Measure("one", l.style(ctx))
	if h := l.Node().Size()[1]; h <= single {
		t.Errorf("wrapped height %v not taller than one line", h)
	}
}

type panel struct {
	ctx  *Context
	root Element
	err  error
}

func (p *panel) Initialize(*core.Context, any) error { return nil }
func (p *panel) Update(*core.Context, float64)       {}
func (p *panel) Draw(*core.Context)                  { p.err = Draw(p.ctx, p.root) }
func (p *panel) Remove() error                       { return nil }
