package main

import (
	"fmt"
	"slices"

	"github.com/aukilabs/quadspace/models"
	"github.com/aukilabs/quadspace/modules/spawner"
	"github.com/aukilabs/quadspace/quadtree"
	"github.com/gdamore/tcell/v2"
)

var (
	styleNode    = tcell.StyleDefault.Foreground(tcell.ColorDarkGray)
	styleRing    = tcell.StyleDefault.Foreground(tcell.ColorBlue)
	styleCamera  = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleStatus  = tcell.StyleDefault.Foreground(tcell.ColorWhite).Reverse(true)
	styleLastLog = tcell.StyleDefault.Foreground(tcell.ColorRed)

	entityRunes = map[string]rune{
		models.KindWanderer: 'o',
		models.KindSpawner:  '+',
		models.KindMob:      'M',
	}

	entityStyles = map[string]tcell.Style{
		models.KindWanderer: tcell.StyleDefault.Foreground(tcell.ColorGreen),
		models.KindSpawner:  tcell.StyleDefault.Foreground(tcell.ColorGray),
		models.KindMob:      tcell.StyleDefault.Foreground(tcell.ColorPurple).Bold(true),
	}

	styleActiveSpawner = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
)

// canvas is the part of a tcell screen a view draws on.
type canvas interface {
	SetContent(x, y int, mainc rune, combc []rune, style tcell.Style)
	Size() (int, int)
	Clear()
}

// view draws a world on a canvas. The last row shows a status line.
type view struct {
	world   *models.World
	spawner *spawner.State

	frame   uint64
	lastLog string
}

func (v *view) draw(c canvas) {
	c.Clear()

	width, height := c.Size()
	if width <= 0 || height <= 1 {
		return
	}
	p := projection{
		bounds: v.world.Bounds(),
		width:  width,
		height: height - 1,
	}

	for _, n := range v.world.Nodes() {
		if n.Leaf {
			p.drawRect(c, n.Bounds, '·', styleNode)
		}
	}

	if v.spawner != nil {
		for _, r := range v.spawner.Ring() {
			if !r.Empty() {
				p.drawRect(c, r, '.', styleRing)
			}
		}
		p.drawRect(c, v.spawner.Camera(), '#', styleCamera)
	}

	var active []uint32
	if v.spawner != nil {
		active = v.spawner.Active()
	}

	for _, e := range v.world.Entities() {
		style := entityStyles[e.Kind]
		if e.Kind == models.KindSpawner {
			if _, ok := slices.BinarySearch(active, e.ID); ok {
				style = styleActiveSpawner
			}
		}

		r, ok := entityRunes[e.Kind]
		if !ok {
			r = '?'
		}

		x, y := p.point(e.Position())
		c.SetContent(x, y, r, nil, style)
	}

	v.drawStatus(c, width, height-1)
}

func (v *view) drawStatus(c canvas, width, row int) {
	info := v.world.DebugInfo()
	status := fmt.Sprintf(" frame %d | entities %d | nodes %d | leaves %d | depth %d | subdivisions %d | joins %d | q: quit ",
		v.frame,
		info.ItemCount,
		info.NodeCount,
		info.LeafCount,
		info.DeepestLevel,
		info.Subdivisions,
		info.Joins,
	)

	x := drawText(c, 0, row, width, status, styleStatus)
	if v.lastLog != "" {
		drawText(c, x+1, row, width, v.lastLog, styleLastLog)
	}
}

func drawText(c canvas, x, y, width int, s string, style tcell.Style) int {
	for _, r := range s {
		if x >= width {
			break
		}
		c.SetContent(x, y, r, nil, style)
		x++
	}
	return x
}

// projection maps world coordinates to canvas cells. The world y axis points
// up while canvas rows grow downward.
type projection struct {
	bounds quadtree.Rect
	width  int
	height int
}

func (p projection) point(v quadtree.Vector2f) (int, int) {
	fx := (v.X - p.bounds.Min.X) / p.bounds.Width()
	fy := (v.Y - p.bounds.Min.Y) / p.bounds.Height()

	x := clampCell(int(fx*float64(p.width)), p.width)
	y := p.height - 1 - clampCell(int(fy*float64(p.height)), p.height)
	return x, y
}

func (p projection) drawRect(c canvas, r quadtree.Rect, ch rune, style tcell.Style) {
	x0, y1 := p.point(r.Min)
	x1, y0 := p.point(r.Max)

	for x := x0; x <= x1; x++ {
		c.SetContent(x, y0, ch, nil, style)
		c.SetContent(x, y1, ch, nil, style)
	}
	for y := y0; y <= y1; y++ {
		c.SetContent(x0, y, ch, nil, style)
		c.SetContent(x1, y, ch, nil, style)
	}
}

func clampCell(v, size int) int {
	return max(0, min(v, size-1))
}
