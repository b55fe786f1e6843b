package core

import (
	"os"
	"strconv"

	"github.com/hubastard/spot/engine/colors"
)

// Config for the engine run.
type Config struct {
	Title      string
	Width      int
	Height     int
	VSync      bool
	ClearColor colors.Color
	// TickRate is the fixed update rate in Hz.
	TickRate int
	// MaxInstances caps the instances of a single device draw.
	MaxInstances int
	// ProfileEvery logs averaged render timings every n frames; 0 disables.
	ProfileEvery int
	// AssetRoot prefixes relative paths given to Context.LoadImage and
	// Context.LoadFont.
	AssetRoot string
	// PackMaxSide packs loaded images no larger than this on either side
	// into shared AtlasSize×AtlasSize atlases; 0 disables packing.
	PackMaxSide int
	AtlasSize   int
}

// DefaultConfig returns a 1280x720 vsynced window updating at 60 Hz.
func DefaultConfig() Config {
	return Config{
		Title:        "spot",
		Width:        1280,
		Height:       720,
		VSync:        true,
		ClearColor:   colors.DarkGray,
		TickRate:     60,
		MaxInstances: 10000,
		AssetRoot:    "assets",
	}
}

// FromEnv applies overrides from the environment:
// SPOT_PROFILE (a frame count, or any true value for 30), SPOT_VSYNC and
// SPOT_PACK (the largest side of packed images).
func (c Config) FromEnv() Config {
	if v, ok := os.LookupEnv("SPOT_PROFILE"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.ProfileEvery = max(n, 0)
		} else if b, err := strconv.ParseBool(v); err == nil && b {
			c.ProfileEvery = 30
		}
	}
	if v, ok := os.LookupEnv("SPOT_VSYNC"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.VSync = b
		}
	}
	if v, ok := os.LookupEnv("SPOT_PACK"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.PackMaxSide = max(n, 0)
		}
	}
	return c
}

func (c Config) atlasSize() int {
	if c.AtlasSize <= 0 {
		return 1024
	}
	return c.AtlasSize
}

func (c Config) tickRate() int {
	if c.TickRate <= 0 {
		return 60
	}
	return c.TickRate
}
