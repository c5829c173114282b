package tui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-chainviz/pkg/render"
)

// Node glyphs, highest priority first
const (
	glyphSelected   = '◉'
	glyphPinned     = '◼'
	glyphExpandable = '◆'
	glyphNode       = '●'
	glyphLink       = '·'
)

type cell struct {
	r     rune
	color lipgloss.Color
}

// canvas is a character grid the frame is scaled onto. Layout space is
// fitted to the grid on each axis independently.
type canvas struct {
	w, h  int
	cells [][]cell

	minX, minY   float64
	spanX, spanY float64
}

func newCanvas(f render.Frame, w, h int) *canvas {
	c := &canvas{w: w, h: h, cells: make([][]cell, h)}
	for y := range c.cells {
		row := make([]cell, w)
		for x := range row {
			row[x] = cell{r: ' '}
		}
		c.cells[y] = row
	}

	if len(f.Nodes) == 0 {
		return c
	}
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, n := range f.Nodes {
		minX, maxX = math.Min(minX, n.X), math.Max(maxX, n.X)
		minY, maxY = math.Min(minY, n.Y), math.Max(maxY, n.Y)
	}
	c.minX, c.spanX = minX, maxX-minX
	c.minY, c.spanY = minY, maxY-minY
	return c
}

// project maps a layout coordinate to a grid cell
func (c *canvas) project(x, y float64) (int, int) {
	return scale(x, c.minX, c.spanX, c.w), scale(y, c.minY, c.spanY, c.h)
}

func scale(v, lo, span float64, cells int) int {
	if span < 1e-9 {
		return (cells - 1) / 2
	}
	i := int(math.Round((v - lo) / span * float64(cells-1)))
	return min(max(i, 0), cells-1)
}

func (c *canvas) set(x, y int, r rune, color lipgloss.Color) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return
	}
	c.cells[y][x] = cell{r: r, color: color}
}

// line draws with Bresenham's algorithm
func (c *canvas) line(x0, y0, x1, y1 int) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		c.set(x0, y0, glyphLink, linkColor)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func (c *canvas) String() string {
	var b strings.Builder
	for y, row := range c.cells {
		if y > 0 {
			b.WriteByte('\n')
		}
		// group runs of one colour so each gets a single escape sequence
		start := 0
		for x := 1; x <= len(row); x++ {
			if x < len(row) && row[x].color == row[start].color {
				continue
			}
			run := make([]rune, 0, x-start)
			for _, cl := range row[start:x] {
				run = append(run, cl.r)
			}
			if row[start].color == "" {
				b.WriteString(string(run))
			} else {
				b.WriteString(lipgloss.NewStyle().Foreground(row[start].color).Render(string(run)))
			}
			start = x
		}
	}
	return b.String()
}

// Plot draws f onto a w×h character grid. Links go down first so nodes
// are never hidden by them.
func Plot(f render.Frame, w, h int, selected string) string {
	if w < 1 || h < 1 {
		return ""
	}
	c := newCanvas(f, w, h)
	for _, l := range f.Links {
		x0, y0 := c.project(l.X1, l.Y1)
		x1, y1 := c.project(l.X2, l.Y2)
		c.line(x0, y0, x1, y1)
	}
	for _, n := range f.Nodes {
		x, y := c.project(n.X, n.Y)
		c.set(x, y, glyphFor(n, selected), colorFor(n.Color))
	}
	return c.String()
}

func glyphFor(n render.NodeView, selected string) rune {
	switch {
	case n.Address == selected:
		return glyphSelected
	case n.Pinned:
		return glyphPinned
	case n.Expandable:
		return glyphExpandable
	default:
		return glyphNode
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
