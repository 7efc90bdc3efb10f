// Package view draws a running simulation onto a terminal screen.
package view

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/l1jgo/simcore/internal/component"
	"github.com/l1jgo/simcore/internal/core/ecs"
	"github.com/l1jgo/simcore/internal/sim"
	"github.com/l1jgo/simcore/internal/spatial"
)

const (
	glyphBody    = '●'
	glyphContact = '◉'
)

// tagColors picks a body color by entity tag.
var tagColors = [...]tcell.Color{
	tcell.ColorGreen,
	tcell.ColorAqua,
	tcell.ColorYellow,
	tcell.ColorFuchsia,
	tcell.ColorSilver,
	tcell.ColorOrange,
	tcell.ColorBlue,
	tcell.ColorWhite,
}

// Renderer projects bodies on the XY plane of the scene into the screen,
// leaving the bottom row for the status line.
type Renderer struct {
	screen  tcell.Screen
	bounds  spatial.AABB
	contact []bool // by entity index
}

func NewRenderer(screen tcell.Screen, bounds spatial.AABB) *Renderer {
	return &Renderer{screen: screen, bounds: bounds}
}

// Project maps a scene position to a screen cell. ok is false when p lies
// outside the scene or the screen has no room for the map.
func (r *Renderer) Project(p spatial.Vec3) (x, y int, ok bool) {
	w, h := r.screen.Size()
	h-- // status line
	if w <= 0 || h <= 0 {
		return 0, 0, false
	}
	size := r.bounds.Size()
	if size.X <= 0 || size.Y <= 0 {
		return 0, 0, false
	}
	fx := (p.X - r.bounds.Min.X) / size.X
	fy := (r.bounds.Max.Y - p.Y) / size.Y
	if fx < 0 || fx > 1 || fy < 0 || fy > 1 {
		return 0, 0, false
	}
	return min(int(fx*float32(w)), w-1), min(int(fy*float32(h)), h-1), true
}

// Draw renders one full frame of s.
func (r *Renderer) Draw(s *sim.Sim) {
	r.screen.Clear()
	r.DrawBodies(s.World(), s.Components(), s.Pairs())
	r.DrawStatus(s.Stats())
	r.screen.Show()
}

// DrawBodies plots every live body, marking those in pairs as in contact.
func (r *Renderer) DrawBodies(w *ecs.World, set *component.Set, pairs []spatial.Pair) {
	clear(r.contact)
	for _, p := range pairs {
		r.mark(p.A)
		r.mark(p.B)
	}

	alloc := w.Allocator()
	tr := set.Transform
	for row := uint32(1); int(row) <= tr.Count(); row++ {
		e := tr.Entity(row)
		if !alloc.Check(e) {
			continue
		}
		x, y, ok := r.Project(tr.Get(row).Position)
		if !ok {
			continue
		}
		style := tcell.StyleDefault.Foreground(tagColors[int(e.Tag())%len(tagColors)])
		glyph := glyphBody
		if idx := int(e.Index()); idx < len(r.contact) && r.contact[idx] {
			style = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
			glyph = glyphContact
		}
		r.screen.SetContent(x, y, glyph, nil, style)
	}
}

func (r *Renderer) mark(idx uint32) {
	if int(idx) >= len(r.contact) {
		r.contact = append(r.contact, make([]bool, int(idx)+1-len(r.contact))...)
	}
	r.contact[idx] = true
}

// DrawStatus writes st on the bottom row.
func (r *Renderer) DrawStatus(st sim.Stats) {
	w, h := r.screen.Size()
	line := fmt.Sprintf("tick %d  bodies %d  pairs %d  +%d -%d  depth %d  nodes %d",
		st.Tick, st.Bodies, st.Pairs, st.Started, st.Ended, st.LeafDepth, st.Nodes)
	style := tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorNavy)
	for x := 0; x < w; x++ {
		r.screen.SetContent(x, h-1, ' ', nil, style)
	}
	r.drawText(0, h-1, line, style)
}

func (r *Renderer) drawText(x, y int, text string, style tcell.Style) {
	col := x
	for _, ch := range text {
		r.screen.SetContent(col, y, ch, nil, style)
		col++
	}
}
