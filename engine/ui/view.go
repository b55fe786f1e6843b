package ui

import (
	"github.com/hubastard/spot/engine/colors"
	"github.com/hubastard/spot/engine/core"
)

type Align int

const (
	AlignStart Align = iota
	AlignCenter
	AlignEnd
	AlignStretch
)

type LayoutDirection int

const (
	LayoutHorizontal LayoutDirection = iota
	LayoutVertical
)

// UIView stacks its children along one axis with an optional background.
type UIView struct {
	Common[*UIView]
	gap        float32
	mainAlign  Align
	crossAlign Align
	flow       LayoutDirection
}

func View(children ...Element) *UIView {
	v := &UIView{gap: 10}
	v.Common = NewCommon(v)
	v.base.children = children
	return v
}

func (v *UIView) BgColor(c colors.Color) *UIView                  { v.base.color = c; return v }
func (v *UIView) FlowDirection(direction LayoutDirection) *UIView { v.flow = direction; return v }
func (v *UIView) Gap(g float32) *UIView                           { v.gap = g; return v }
func (v *UIView) AlignMain(a Align) *UIView                       { v.mainAlign = a; return v }
func (v *UIView) AlignCross(a Align) *UIView                      { v.crossAlign = a; return v }

func (v *UIView) axes() (main, cross int) {
	if v.flow == LayoutVertical {
		return 1, 0
	}
	return 0, 1
}

// Measure sizes the children with the main axis unbounded; Arrange hands
// leftover space to expanding children.
func (v *UIView) Measure(ctx *Context, c Constraints) [2]float32 {
	b := &v.base
	main, cross := v.axes()
	room := c.Max[cross]
	if b.mode[cross] == SizeModeFixed {
		room = b.fixed[cross]
	}
	var inner Constraints
	if room > 0 {
		inner.Max[cross] = max(0, room-b.pad(cross))
	}
	var content [2]float32
	for _, k := range b.children {
		s := k.Measure(ctx, inner)
		k.Node().size = s
		content[main] += s[main]
		content[cross] = max(content[cross], s[cross])
	}
	if n := len(b.children); n > 1 {
		content[main] += v.gap * float32(n-1)
	}
	return [2]float32{b.resolve(0, content[0], c), b.resolve(1, content[1], c)}
}

func (v *UIView) Arrange(pos, size [2]float32) {
	b := &v.base
	b.pos, b.size = pos, size
	main, cross := v.axes()
	origin, room := b.inner()

	var used float32
	expand := 0
	for _, k := range b.children {
		used += k.Node().size[main]
		if k.Node().mode[main] == SizeModeExpand {
			expand++
		}
	}
	if n := len(b.children); n > 1 {
		used += v.gap * float32(n-1)
	}
	free := max(0, room[main]-used)
	share := float32(0)
	if expand > 0 {
		share, free = free/float32(expand), 0
	}

	cursor := offset(v.mainAlign, free)
	for _, k := range b.children {
		kb := k.Node()
		s := kb.size
		if kb.mode[main] == SizeModeExpand {
			s[main] += share
		}
		if v.crossAlign == AlignStretch || kb.mode[cross] == SizeModeExpand {
			s[cross] = room[cross]
		}
		s[cross] = min(s[cross], room[cross])
		var p [2]float32
		p[main] = origin[main] + cursor
		p[cross] = origin[cross] + offset(v.crossAlign, room[cross]-s[cross])
		k.Arrange(p, s)
		cursor += s[main] + v.gap
	}
}

func offset(a Align, free float32) float32 {
	switch a {
	case AlignCenter:
		return free * 0.5
	case AlignEnd:
		return free
	}
	return 0
}

func (v *UIView) Draw(ctx *Context) {
	b := &v.base
	if b.color[3] > 0 {
		ctx.fail(ctx.Target.FillRect(b.size[0], b.size[1], b.color, core.At(b.pos[0], b.pos[1])))
	}
	for _, k := range b.children {
		k.Draw(ctx)
	}
}
