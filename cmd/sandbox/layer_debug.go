package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/hubastard/spot/engine/colors"
	"github.com/hubastard/spot/engine/core"
	"github.com/hubastard/spot/engine/logging"
	"github.com/hubastard/spot/engine/profiler"
	"github.com/hubastard/spot/engine/scratch"
	"github.com/hubastard/spot/engine/text"
	"github.com/hubastard/spot/engine/ui"
	"golang.org/x/image/font/gofont/goregular"
)

// LayerDebug draws frame statistics over every scene.
// F1 toggles it, F2 dumps a trace, F12 saves a screenshot.
type LayerDebug struct {
	font     text.FontID
	visible  bool
	last     time.Time
	frameMS  float64
	captures int
	buf      scratch.Text
	mem      runtime.MemStats
}

func newDebugLayer() *LayerDebug { return &LayerDebug{visible: true} }

func (l *LayerDebug) Update(ctx *core.Context, dt float64) {
	in := ctx.Input()
	if in.Pressed(core.KeyF1) {
		l.visible = !l.visible
	}
	if in.Pressed(core.KeyF2) {
		path := fmt.Sprintf("spot-%d.speedscope.json", time.Now().Unix())
		if err := profiler.Dump(path); err != nil {
			logging.Logger().Warn("profiler dump failed", "err", err)
		} else {
			logging.Logger().Info("profiler dump written", "path", path)
		}
	}
	if in.Pressed(core.KeyF12) {
		l.capture(ctx)
	}
}

func (l *LayerDebug) capture(ctx *core.Context) {
	l.captures++
	path := fmt.Sprintf("capture-%03d.webp", l.captures)
	f, err := os.Create(path)
	if err != nil {
		logging.Logger().Warn("capture failed", "err", err)
		return
	}
	defer f.Close()
	if err := ctx.Renderer().Capture(f); err != nil {
		logging.Logger().Warn("capture failed", "err", err)
		return
	}
	logging.Logger().Info("capture written", "path", path)
}

func (l *LayerDebug) line(format func(t *scratch.Text)) *ui.UILabel {
	l.buf.Reset()
	format(&l.buf)
	return ui.Label(l.buf.String()).Padding4(16, 0, 0, 0)
}

func heading(s string) *ui.UILabel {
	return ui.Label(s).Color(colors.Yellow).Padding4(0, 8, 0, 0)
}

func (l *LayerDebug) Draw(ctx *core.Context) {
	now := time.Now()
	if !l.last.IsZero() {
		l.frameMS = float64(now.Sub(l.last).Microseconds()) / 1000
	}
	l.last = now
	if !l.visible {
		return
	}
	if l.font == 0 {
		id, err := ctx.RegisterFont("goregular", goregular.TTF)
		if err != nil {
			logging.Logger().Warn("debug font", "err", err)
			l.visible = false
			return
		}
		l.font = id
	}

	// Statistics are those of the previous frame.
	st := ctx.Stats()
	cs := ctx.CacheStats()
	runtime.ReadMemStats(&l.mem)

	rows := []ui.Element{
		heading("Frame"),
		l.line(func(t *scratch.Text) { t.S("#").I(int(ctx.Frames())).S("  ").F(l.frameMS, 2).S(" ms") }),
		heading("Renderer"),
		l.line(func(t *scratch.Text) { t.S("Draw calls: ").I(st.DrawCalls) }),
		l.line(func(t *scratch.Text) { t.S("Instances: ").I(st.InstanceCount) }),
		l.line(func(t *scratch.Text) { t.S("Textures: ").I(st.TextureCount) }),
		l.line(func(t *scratch.Text) { t.S("Dropped frames: ").I(ctx.Renderer().Dropped()) }),
		heading("Resources"),
		l.line(func(t *scratch.Text) { t.S("Live: ").I(cs.Live).S("  pending: ").I(cs.Pending) }),
		l.line(func(t *scratch.Text) { t.S("Decodes: ").I(cs.Decodes).S("  uploads: ").I(cs.Uploads) }),
		l.line(func(t *scratch.Text) { t.S("Glyph pages: ").I(ctx.Fonts().Glyphs().Pages()) }),
		heading("Memory"),
		l.line(func(t *scratch.Text) { t.S("Heap: ").F(float64(l.mem.HeapAlloc)/(1<<20), 2).S(" MB") }),
		l.line(func(t *scratch.Text) { t.S("GC cycles: ").I(int(l.mem.NumGC)) }),
	}
	if stages := ctx.Renderer().Profile().Last(); len(stages) > 0 {
		rows = append(rows, heading("Stages"))
		for _, sg := range stages {
			rows = append(rows, l.line(func(t *scratch.Text) {
				t.S(sg.Name).S(": ").F(float64(sg.Average.Microseconds())/1000, 3).S(" ms")
			}))
		}
	}

	w, h := ctx.ScreenSize()
	panel := ui.View(rows...).
		FlowDirection(ui.LayoutVertical).
		Gap(2).
		Padding(16).
		BgColor(colors.Black.WithAlpha(0.5))
	err := ui.Draw(&ui.Context{
		Viewport: [4]float32{16, 16, float32(w), float32(h)},
		Font:     l.font,
		FontSize: 16,
		Target:   ctx,
	}, panel)
	if err != nil {
		logging.Logger().Warn("debug panel", "err", err)
	}
}

func (l *LayerDebug) Event(_ *core.Context, _ core.Event) bool { return false }
