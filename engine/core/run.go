package core

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/hubastard/spot/engine/gfx"
	"github.com/hubastard/spot/engine/logging"
)

// Run drives start and its successors on win until the window closes, a
// scene calls Quit, or a fatal error occurs. The device must render to win.
func Run(cfg Config, win Window, dev gfx.Device, start Factory, payload any) (err error) {
	// Graphics contexts require the main OS thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	ctx, err := NewContext(dev, win, cfg)
	if err != nil {
		return err
	}
	defer ctx.Close()
	win.SetEventCallback(ctx.HandleEvent)
	win.SetTitle(cfg.Title)

	if err := ctx.machine.Start(ctx, start, payload); err != nil {
		return err
	}

	// Fixed timestep with a cap on catch-up steps.
	tick := time.Second / time.Duration(cfg.tickRate())
	dt := tick.Seconds()
	const maxSteps = 10
	var (
		accum time.Duration
		prev  = time.Now()
	)
	for !win.ShouldClose() && !ctx.quitting() {
		now := time.Now()
		accum += now.Sub(prev)
		prev = now

		win.PollEvents()

		steps := 0
		for accum >= tick && steps < maxSteps {
			accum -= tick
			steps++
		}
		if steps == maxSteps {
			accum = 0
		}
		if err := ctx.Frame(dt, steps); err != nil {
			if errors.Is(err, gfx.ErrDeviceLost) {
				logging.Logger().Error("device lost", "err", err)
			}
			return fmt.Errorf("core: frame %d: %w", ctx.frames, err)
		}
	}
	logging.Logger().Info("engine exit", "frames", ctx.frames)
	return nil
}
