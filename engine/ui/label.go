package ui

import (
	"github.com/hubastard/spot/engine/colors"
	"github.com/hubastard/spot/engine/core"
	"github.com/hubastard/spot/engine/text"
)

type UILabel struct {
	Common[*UILabel]
	text     string
	fontSize float32
	font     text.FontID
	wrap     bool
	maxWidth float32
}

func Label(str string) *UILabel {
	l := &UILabel{text: str}
	l.Common = NewCommon(l)
	l.base.color = colors.White
	return l
}

func (l *UILabel) FontSize(size float32) *UILabel { l.fontSize = size; return l }
func (l *UILabel) Font(id text.FontID) *UILabel   { l.font = id; return l }
func (l *UILabel) Color(c colors.Color) *UILabel  { l.base.color = c; return l }

// Wrap breaks lines at the width the parent allows.
func (l *UILabel) Wrap(enabled bool) *UILabel { l.wrap = enabled; return l }

func (l *UILabel) style(ctx *Context) text.Style {
	st := text.Style{Font: l.font, Size: l.fontSize, Color: l.base.color, MaxWidth: l.maxWidth}
	if st.Font == 0 {
		st.Font = ctx.Font
	}
	if st.Size == 0 {
		st.Size = ctx.FontSize
	}
	return st
}

func (l *UILabel) Measure(ctx *Context, c Constraints) [2]float32 {
	l.maxWidth = 0
	if l.wrap && c.Max[0] > 0 {
		l.maxWidth = max(1, c.Max[0]-l.base.pad(0))
	}
	var w, h float32
	if l.text != "" {
		var err error
		w, h, err = ctx.Target.Fonts().Measure(l.text, l.style(ctx))
		ctx.fail(err)
	}
	return [2]float32{l.base.resolve(0, w, c), l.base.resolve(1, h, c)}
}

func (l *UILabel) Draw(ctx *Context) {
	if l.text == "" || l.base.color[3] <= 0 {
		return
	}
	pos, _ := l.base.inner()
	ctx.fail(ctx.Target.DrawText(l.text, l.style(ctx), core.At(pos[0], pos[1])))
}
