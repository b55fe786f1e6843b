package core

// Input is the input state as of the start of the current frame. Scenes
// read it; only the run loop feeds it.
type Input struct {
	keys, prev     map[Key]bool
	buttons        map[MouseButton]bool
	mouseX, mouseY float64
	scrollX        float64
	scrollY        float64
}

func NewInput() *Input {
	return &Input{
		keys:    map[Key]bool{},
		prev:    map[Key]bool{},
		buttons: map[MouseButton]bool{},
	}
}

// Handle folds ev into the state.
func (in *Input) Handle(ev Event) {
	switch e := ev.(type) {
	case EventKey:
		in.keys[e.Key] = e.Down
	case EventMouseButton:
		in.buttons[e.Button] = e.Down
	case EventMouseMove:
		in.mouseX, in.mouseY = e.X, e.Y
	case EventScroll:
		in.scrollX += e.Xoff
		in.scrollY += e.Yoff
	}
}

// endFrame makes the current keys the baseline for Pressed and clears the
// accumulated scroll.
func (in *Input) endFrame() {
	clear(in.prev)
	for k, down := range in.keys {
		in.prev[k] = down
	}
	in.scrollX, in.scrollY = 0, 0
}

func (in *Input) IsKeyDown(k Key) bool { return in.keys[k] }

// Pressed reports a key that went down since the previous frame.
func (in *Input) Pressed(k Key) bool { return in.keys[k] && !in.prev[k] }

func (in *Input) IsButtonDown(b MouseButton) bool { return in.buttons[b] }
func (in *Input) Mouse() (float64, float64)       { return in.mouseX, in.mouseY }

// Scroll is the scroll offset accumulated since the previous frame.
func (in *Input) Scroll() (float64, float64) { return in.scrollX, in.scrollY }
