package main

import (
	"log/slog"
	"os"

	"github.com/hubastard/spot/engine/core"
	glbackend "github.com/hubastard/spot/engine/gfx/gl"
	"github.com/hubastard/spot/engine/logging"
	"github.com/hubastard/spot/engine/platform"
	"github.com/hubastard/spot/engine/profiler"
)

func main() {
	level := slog.LevelInfo
	if os.Getenv("SPOT_DEBUG") != "" {
		level = slog.LevelDebug
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := core.DefaultConfig().FromEnv()
	cfg.Title = "Spot (2D)"

	if err := run(cfg); err != nil {
		logging.Logger().Error("sandbox stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg core.Config) error {
	profiler.Init(1 << 12)

	win, err := platform.NewGLFWWindow(cfg)
	if err != nil {
		return err
	}
	defer win.Destroy()

	w, h := win.FramebufferSize()
	dev, err := glbackend.New(w, h, win.SwapBuffers)
	if err != nil {
		return err
	}
	defer dev.Close()

	return core.Run(cfg, win, dev, newTitleScene, titlePayload{Message: "Press Enter to play"})
}
