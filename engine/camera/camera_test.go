package camera

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hubastard/spot/engine/core"
	"github.com/hubastard/spot/engine/gfx/transform"
)

func near(a, b float32) bool { return mgl32.FloatEqualThreshold(a, b, 1e-3) }

func TestLookAtLandsInCenter(t *testing.T) {
	c := New(200, 100)
	c.Move(50, 20)
	if x, y := c.WorldToScreen(50, 20); !near(x, 100) || !near(y, 50) {
		t.Errorf("WorldToScreen(look-at) = %v,%v, want 100,50", x, y)
	}
	c.SetZoom(2)
	if x, _ := c.WorldToScreen(60, 20); !near(x, 120) {
		t.Errorf("zoomed x = %v, want 120", x)
	}
}

func TestScreenToWorldInverts(t *testing.T) {
	c := New(320, 240)
	c.Move(-7, 13)
	c.Rotate(math.Pi / 5)
	c.SetZoom(1.5)
	x, y := c.ScreenToWorld(c.WorldToScreen(42, -9))
	if !near(x, 42) || !near(y, -9) {
		t.Errorf("round trip = %v,%v, want 42,-9", x, y)
	}
}

func TestApply(t *testing.T) {
	c := New(100, 100)
	c.SetZoom(2)
	c.Rotate(0.5)
	p := c.Apply(transform.Placement{Rotation: 1, Scale: [2]float32{1, 3}})
	if !near(p.Rotation, 0.5) || p.Scale != [2]float32{2, 6} {
		t.Errorf("Apply() = %+v", p)
	}
	if c.SetZoom(0); c.Zoom != 0.05 {
		t.Errorf("zoom floor = %v", c.Zoom)
	}
}

type keys map[core.Key]bool

func (k keys) IsKeyDown(key core.Key) bool { return k[key] }

func TestController(t *testing.T) {
	c := New(100, 100)
	cc := NewController2D(c)
	cc.Update(keys{core.KeyD: true, core.KeyS: true, core.KeyZ: true}, 0.5)
	if c.X != 150 || c.Y != 150 {
		t.Errorf("camera at %v,%v, want 150,150", c.X, c.Y)
	}
	if c.Zoom <= 1 {
		t.Errorf("zoom = %v, want > 1", c.Zoom)
	}
}
