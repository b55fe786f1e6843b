package core

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/hubastard/spot/engine/gfx/soft"
	"github.com/hubastard/spot/engine/logging"
)

// script records every lifecycle call in order.
type script struct{ log []string }

func (s *script) add(format string, args ...any) { s.log = append(s.log, fmt.Sprintf(format, args...)) }

type scripted struct {
	name    string
	s       *script
	onInit  func(ctx *Context, payload any) error
	onUp    func(ctx *Context)
	onDraw  func(ctx *Context)
	failRem error
}

func (sc *scripted) Initialize(ctx *Context, payload any) error {
	sc.s.add("%s.init(%v)", sc.name, payload)
	if sc.onInit != nil {
		return sc.onInit(ctx, payload)
	}
	return nil
}

func (sc *scripted) Update(ctx *Context, dt float64) {
	sc.s.add("%s.update", sc.name)
	if sc.onUp != nil {
		sc.onUp(ctx)
	}
}

func (sc *scripted) Draw(ctx *Context) {
	sc.s.add("%s.draw", sc.name)
	if sc.onDraw != nil {
		sc.onDraw(ctx)
	}
}

func (sc *scripted) Remove() error {
	sc.s.add("%s.remove", sc.name)
	return sc.failRem
}

func factory(sc *scripted) Factory { return func() Scene { return sc } }

func newTestContext(t *testing.T) (*Context, *soft.Device) {
	t.Helper()
	dev := soft.New(32, 32)
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 32, 32
	ctx, err := NewContext(dev, nil, cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(ctx.Close)
	return ctx, dev
}

func TestSceneTransitionOrdering(t *testing.T) {
	ctx, dev := newTestContext(t)
	s := &script{}
	b := &scripted{name: "B", s: s}
	a := &scripted{name: "A", s: s}
	a.onUp = func(ctx *Context) { ctx.SwitchScene(factory(b), "P") }
	a.onDraw = func(*Context) { s.add("presents=%d", dev.Stats().Presents) }

	if err := ctx.Machine().Start(ctx, factory(a), nil); err != nil {
		t.Fatal(err)
	}
	if err := ctx.Frame(1.0/60, 1); err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	if dev.Stats().Presents != 1 {
		t.Errorf("frame was not rendered before the switch")
	}
	if err := ctx.Frame(1.0/60, 1); err != nil {
		t.Fatal(err)
	}

	want := "A.init(<nil>) A.update A.draw presents=0 A.remove B.init(P) B.update B.draw"
	if got := strings.Join(s.log, " "); got != want {
		t.Errorf("lifecycle =\n%s\nwant\n%s", got, want)
	}
}

func TestSwitchRequestedDuringDraw(t *testing.T) {
	ctx, dev := newTestContext(t)
	s := &script{}
	b := &scripted{name: "B", s: s}
	a := &scripted{name: "A", s: s}
	a.onDraw = func(ctx *Context) {
		ctx.SwitchScene(factory(b), "P")
		s.add("active=%s pending=%v", ctx.ActiveScene().(*scripted).name, ctx.PendingScene())
	}

	if err := ctx.Machine().Start(ctx, factory(a), nil); err != nil {
		t.Fatal(err)
	}
	if err := ctx.Frame(1.0/60, 1); err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	if dev.Stats().Presents != 1 {
		t.Errorf("frame with the request was not rendered")
	}
	if ctx.ActiveScene() != b || ctx.PendingScene() {
		t.Fatalf("active scene after the frame is not B")
	}
	if err := ctx.Frame(1.0/60, 1); err != nil {
		t.Fatal(err)
	}

	want := "A.init(<nil>) A.update A.draw active=A pending=true A.remove B.init(P) B.update B.draw"
	if got := strings.Join(s.log, " "); got != want {
		t.Errorf("lifecycle =\n%s\nwant\n%s", got, want)
	}
}

func TestDoubleTransitionLastWins(t *testing.T) {
	ctx, _ := newTestContext(t)
	s := &script{}
	b := &scripted{name: "B", s: s}
	c := &scripted{name: "C", s: s}
	a := &scripted{name: "A", s: s}
	a.onUp = func(ctx *Context) {
		ctx.SwitchScene(factory(b), 1)
		ctx.SwitchScene(factory(c), 2)
	}
	_ = ctx.Machine().Start(ctx, factory(a), nil)
	if err := ctx.Frame(0.016, 1); err != nil {
		t.Fatal(err)
	}
	if ctx.ActiveScene() != c {
		t.Errorf("active scene = %T %v, want C", ctx.ActiveScene(), ctx.ActiveScene())
	}
	for _, e := range s.log {
		if strings.HasPrefix(e, "B.") {
			t.Errorf("superseded scene B saw %q", e)
		}
	}
	if ctx.PendingScene() {
		t.Error("switch still pending after the frame")
	}
}

func TestRemoveErrorIsLoggedAndSwallowed(t *testing.T) {
	var buf bytes.Buffer
	logging.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { logging.SetLogger(nil) })

	ctx, _ := newTestContext(t)
	s := &script{}
	b := &scripted{name: "B", s: s}
	a := &scripted{name: "A", s: s, failRem: errors.New("boom")}
	_ = ctx.Machine().Start(ctx, factory(a), nil)
	ctx.SwitchScene(factory(b), nil)
	if err := ctx.Frame(0.016, 0); err != nil {
		t.Fatalf("Frame() error = %v, want remove failure swallowed", err)
	}
	if ctx.ActiveScene() != b {
		t.Error("incoming scene not active after a failed remove")
	}
	if !strings.Contains(buf.String(), "level=WARN") || !strings.Contains(buf.String(), "boom") {
		t.Errorf("log = %q, want a warning carrying the remove error", buf.String())
	}
}

func TestInitializeErrorIsFatal(t *testing.T) {
	ctx, _ := newTestContext(t)
	s := &script{}
	bad := &scripted{name: "B", s: s, onInit: func(*Context, any) error { return errors.New("no assets") }}
	a := &scripted{name: "A", s: s}
	_ = ctx.Machine().Start(ctx, factory(a), nil)
	ctx.SwitchScene(factory(bad), nil)

	if err := ctx.Frame(0.016, 0); err == nil || !strings.Contains(err.Error(), "no assets") {
		t.Fatalf("Frame() error = %v, want the initialize error", err)
	}
	if err := ctx.Frame(0.016, 0); !errors.Is(err, ErrNoScene) {
		t.Errorf("Frame() without a scene error = %v, want ErrNoScene", err)
	}
}

func TestMachineClose(t *testing.T) {
	ctx, _ := newTestContext(t)
	s := &script{}
	a := &scripted{name: "A", s: s}
	_ = ctx.Machine().Start(ctx, factory(a), nil)
	ctx.SwitchScene(factory(&scripted{name: "B", s: s}), nil)
	ctx.Machine().Close()
	if got := strings.Join(s.log, " "); got != "A.init(<nil>) A.remove" {
		t.Errorf("lifecycle = %q", got)
	}
	if ctx.Machine().Pending() || ctx.ActiveScene() != nil {
		t.Error("Close() left state behind")
	}
}
