// Package profiler times engine stages. Frame averages are always
// available; scope tracing to a speedscope file needs the "profile" tag.
package profiler

import (
	"log/slog"
	"time"

	"github.com/hubastard/spot/engine/logging"
)

// Stage is the averaged time of one named step over a report window.
type Stage struct {
	Name    string
	Average time.Duration
}

// Frames averages per-stage timings and logs them every N frames.
// The zero value and a nil *Frames are disabled.
type Frames struct {
	every  int
	frames int
	order  []string
	totals map[string]time.Duration
	last   []Stage
}

// NewFrames reports every n frames. n <= 0 disables reporting.
func NewFrames(n int) *Frames {
	return &Frames{every: n, totals: make(map[string]time.Duration)}
}

// Enabled reports whether timings are collected.
func (f *Frames) Enabled() bool { return f != nil && f.every > 0 }

// Add accumulates d for stage in the current frame.
func (f *Frames) Add(stage string, d time.Duration) {
	if !f.Enabled() {
		return
	}
	if _, ok := f.totals[stage]; !ok {
		f.order = append(f.order, stage)
	}
	f.totals[stage] += d
}

// Measure starts timing stage and returns the func that stops it.
func (f *Frames) Measure(stage string) func() {
	if !f.Enabled() {
		return func() {}
	}
	start := time.Now()
	return func() { f.Add(stage, time.Since(start)) }
}

// EndFrame closes a frame and, on every n-th frame, logs the averages
// and starts a new window. It reports whether a report was produced.
func (f *Frames) EndFrame() bool {
	if !f.Enabled() {
		return false
	}
	f.frames++
	if f.frames < f.every {
		return false
	}
	f.last = f.last[:0]
	attrs := make([]any, 0, len(f.order)+1)
	attrs = append(attrs, slog.Int("frames", f.frames))
	for _, name := range f.order {
		avg := f.totals[name] / time.Duration(f.frames)
		f.last = append(f.last, Stage{Name: name, Average: avg})
		attrs = append(attrs, slog.Duration(name, avg))
		delete(f.totals, name)
	}
	f.order = f.order[:0]
	f.frames = 0
	logging.Logger().Info("render profile", attrs...)
	return true
}

// Last returns the stages of the most recent report, in first-seen order.
func (f *Frames) Last() []Stage {
	if f == nil {
		return nil
	}
	return f.last
}
