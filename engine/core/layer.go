package core

// Layer is an engine-wide overlay that outlives scene switches, such as a
// debug HUD. Layers update after the scene and draw on top of it.
type Layer interface {
	Update(ctx *Context, dt float64)
	Draw(ctx *Context)
	// Event returns true if handled; propagation stops.
	Event(ctx *Context, ev Event) bool
}

type LayerStack struct{ list []Layer }

func (ls *LayerStack) Push(l Layer) { ls.list = append(ls.list, l) }

func (ls *LayerStack) Pop() (Layer, bool) {
	if len(ls.list) == 0 {
		return nil, false
	}
	i := len(ls.list) - 1
	l := ls.list[i]
	ls.list = ls.list[:i]
	return l, true
}

func (ls *LayerStack) Len() int { return len(ls.list) }

func (ls *LayerStack) ForEach(f func(Layer)) {
	for _, l := range ls.list {
		f(l)
	}
}

// ForEachReverse visits top-down until f returns true, and reports
// whether it did.
func (ls *LayerStack) ForEachReverse(f func(Layer) bool) bool {
	for i := len(ls.list) - 1; i >= 0; i-- {
		if f(ls.list[i]) {
			return true
		}
	}
	return false
}
