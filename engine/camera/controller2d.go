package camera

import "github.com/hubastard/spot/engine/core"

// Keys is the part of core.Input the controller reads.
type Keys interface {
	IsKeyDown(k core.Key) bool
}

// Controller2D: WASD move, Q/E rotate, Z/X zoom in/out.
type Controller2D struct {
	MoveSpeed float32 // world units per second at zoom 1
	RotSpeed  float32 // radians per second
	ZoomSpeed float32 // factor per second
	Camera    *Camera2D
}

func NewController2D(cam *Camera2D) *Controller2D {
	return &Controller2D{
		MoveSpeed: 300,
		RotSpeed:  2,
		ZoomSpeed: 2,
		Camera:    cam,
	}
}

func (cc *Controller2D) Update(in Keys, dt float32) {
	speed := cc.MoveSpeed * dt / cc.Camera.Zoom
	if in.IsKeyDown(core.KeyW) {
		cc.Camera.Move(0, -speed)
	}
	if in.IsKeyDown(core.KeyS) {
		cc.Camera.Move(0, speed)
	}
	if in.IsKeyDown(core.KeyA) {
		cc.Camera.Move(-speed, 0)
	}
	if in.IsKeyDown(core.KeyD) {
		cc.Camera.Move(speed, 0)
	}
	if in.IsKeyDown(core.KeyQ) {
		cc.Camera.Rotate(cc.RotSpeed * dt)
	}
	if in.IsKeyDown(core.KeyE) {
		cc.Camera.Rotate(-cc.RotSpeed * dt)
	}
	step := 1 + (cc.ZoomSpeed-1)*dt
	if in.IsKeyDown(core.KeyZ) {
		cc.Camera.SetZoom(cc.Camera.Zoom * step)
	}
	if in.IsKeyDown(core.KeyX) {
		cc.Camera.SetZoom(cc.Camera.Zoom / step)
	}
}
