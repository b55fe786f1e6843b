package core

import (
	"errors"
	"fmt"

	"github.com/hubastard/spot/engine/logging"
)

// Scene is one screen of the application. Exactly one scene is active.
type Scene interface {
	// Initialize runs when the scene becomes active. Payload is whatever
	// the requester passed to SwitchScene.
	Initialize(ctx *Context, payload any) error
	Update(ctx *Context, dt float64)
	Draw(ctx *Context)
	// Remove runs when the scene is replaced or the engine stops. Errors
	// are logged and otherwise ignored.
	Remove() error
}

// EventHandler is implemented by scenes that want raw events. Returning
// true marks the event handled.
type EventHandler interface {
	Event(ctx *Context, ev Event) bool
}

// Factory builds a scene. A fresh scene is built for every switch.
type Factory func() Scene

type transition struct {
	factory Factory
	payload any
}

// Machine holds the active scene and at most one pending switch.
type Machine struct {
	active  Scene
	pending *transition
}

// ErrNoScene is returned when a frame runs without an active scene.
var ErrNoScene = errors.New("core: no active scene")

// Start initializes the first scene.
func (m *Machine) Start(ctx *Context, f Factory, payload any) error {
	m.pending = &transition{factory: f, payload: payload}
	return m.Apply(ctx)
}

// Request queues a switch applied after the current frame has rendered.
// A later request in the same frame replaces an earlier one.
func (m *Machine) Request(f Factory, payload any) {
	if m.pending != nil {
		logging.Logger().Debug("scene switch replaced")
	}
	m.pending = &transition{factory: f, payload: payload}
}

// Pending reports whether a switch is queued.
func (m *Machine) Pending() bool { return m.pending != nil }

// Active returns the active scene, or nil.
func (m *Machine) Active() Scene { return m.active }

// Apply performs the queued switch: the outgoing scene is removed, then
// the incoming one initialized. An Initialize failure leaves no active
// scene and is returned.
func (m *Machine) Apply(ctx *Context) error {
	t := m.pending
	if t == nil {
		return nil
	}
	m.pending = nil
	m.remove()

	next := t.factory()
	if err := next.Initialize(ctx, t.payload); err != nil {
		return fmt.Errorf("core: initialize %T: %w", next, err)
	}
	m.active = next
	logging.Logger().Info("scene switched", "scene", fmt.Sprintf("%T", next))
	return nil
}

func (m *Machine) remove() {
	if m.active == nil {
		return
	}
	if err := m.active.Remove(); err != nil {
		logging.Logger().Warn("scene remove failed", "scene", fmt.Sprintf("%T", m.active), "err", err)
	}
	m.active = nil
}

// Close removes the active scene and drops any pending switch.
func (m *Machine) Close() {
	m.pending = nil
	m.remove()
}
