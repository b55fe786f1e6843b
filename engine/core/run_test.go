package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/hubastard/spot/engine/gfx"
	"github.com/hubastard/spot/engine/gfx/soft"
)

// fakeWindow closes after a fixed number of polls.
type fakeWindow struct {
	polls, limit int
	closed       bool
	title        string
	cb           func(Event)
	queued       []Event
}

func (w *fakeWindow) PollEvents() {
	w.polls++
	for _, ev := range w.queued {
		w.cb(ev)
	}
	w.queued = nil
}
func (w *fakeWindow) SwapBuffers()                    {}
func (w *fakeWindow) ShouldClose() bool               { return w.closed || w.polls >= w.limit }
func (w *fakeWindow) FramebufferSize() (int, int)     { return 16, 16 }
func (w *fakeWindow) SetTitle(t string)               { w.title = t }
func (w *fakeWindow) SetEventCallback(cb func(Event)) { w.cb = cb }
func (w *fakeWindow) RequestClose()                   { w.closed = true }

func TestRunUntilWindowCloses(t *testing.T) {
	s := &script{}
	a := &scripted{name: "A", s: s}
	win := &fakeWindow{limit: 3, queued: []Event{EventKey{Key: KeyEscape, Down: true}}}
	cfg := DefaultConfig()
	cfg.Title = "test"

	if err := Run(cfg, win, soft.New(16, 16), factory(a), "start"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if win.title != "test" {
		t.Errorf("title = %q", win.title)
	}
	log := strings.Join(s.log, " ")
	if !strings.HasPrefix(log, "A.init(start)") || !strings.HasSuffix(log, "A.remove") {
		t.Errorf("lifecycle = %q, want init first and remove last", log)
	}
	if n := strings.Count(log, "A.draw"); n != 3 {
		t.Errorf("drew %d frames, want 3", n)
	}
}

func TestRunQuit(t *testing.T) {
	s := &script{}
	a := &scripted{name: "A", s: s}
	a.onDraw = func(ctx *Context) { ctx.Quit() }
	win := &fakeWindow{limit: 100}
	if err := Run(DefaultConfig(), win, soft.New(16, 16), factory(a), nil); err != nil {
		t.Fatal(err)
	}
	if win.polls != 1 || !win.closed {
		t.Errorf("polls = %d closed = %v, want the loop to stop after one frame", win.polls, win.closed)
	}
}

func TestRunDeviceLost(t *testing.T) {
	dev := soft.New(16, 16)
	s := &script{}
	a := &scripted{name: "A", s: s}
	a.onDraw = func(*Context) { dev.Lose() }
	err := Run(DefaultConfig(), &fakeWindow{limit: 10}, dev, factory(a), nil)
	if !errors.Is(err, gfx.ErrDeviceLost) {
		t.Errorf("Run() error = %v, want ErrDeviceLost", err)
	}
}

func TestRunInitializeFailure(t *testing.T) {
	s := &script{}
	a := &scripted{name: "A", s: s, onInit: func(*Context, any) error { return errors.New("nope") }}
	if err := Run(DefaultConfig(), &fakeWindow{limit: 10}, soft.New(16, 16), factory(a), nil); err == nil {
		t.Error("Run() error = nil, want the start scene's initialize error")
	}
}
