package circle

import (
	"math"
	"strings"
)

const (
	NodeRune   = 'o'
	ActiveRune = '@'
	TrailRune  = '.'
	emptyRune  = ' '
)

// Grid is a character canvas for drawing the circle in a terminal.
// Terminal cells are about twice as tall as wide, so x is stretched by two.
type Grid struct {
	W, H  int
	cells [][]rune
}

func NewGrid(w, h int) *Grid {
	g := &Grid{W: w, H: h, cells: make([][]rune, h)}
	for y := range g.cells {
		g.cells[y] = []rune(strings.Repeat(string(emptyRune), w))
	}
	return g
}

// layout returns the center and radius of the circle in unstretched units.
func (g *Grid) layout() (Point, float64) {
	ry := float64(g.H-1) / 2
	rx := float64(g.W-1) / 2
	return Point{X: rx, Y: ry}, math.Min(ry, rx/2)
}

// cell maps a point around the origin to grid coordinates.
func (g *Grid) cell(p Point) (int, int) {
	center, _ := g.layout()
	return round(center.X + 2*p.X), round(center.Y + p.Y)
}

func (g *Grid) set(x, y int, r rune) {
	if x < 0 || y < 0 || x >= g.W || y >= g.H {
		return
	}
	g.cells[y][x] = r
}

func (g *Grid) get(x, y int) rune {
	if x < 0 || y < 0 || x >= g.W || y >= g.H {
		return emptyRune
	}
	return g.cells[y][x]
}

// Draw plots the trail through the given nodes, all node markers and the active node (-1 for none).
func (g *Grid) Draw(trail []int, active int) {
	_, r := g.layout()
	line := Trail(trail, Point{}, r)
	for i := 1; i < len(line); i++ {
		x0, y0 := g.cell(line[i-1])
		x1, y1 := g.cell(line[i])
		g.line(x0, y0, x1, y1)
	}
	for i, p := range Points(Point{}, r) {
		ch := NodeRune
		if i == active {
			ch = ActiveRune
		}
		x, y := g.cell(p)
		g.set(x, y, ch)
	}
}

// line draws with Bresenham's algorithm, leaving node markers intact.
func (g *Grid) line(x0, y0, x1, y1 int) {
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
		if c := g.get(x0, y0); c != NodeRune && c != ActiveRune {
			g.set(x0, y0, TrailRune)
		}
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

func (g *Grid) String() string {
	lines := make([]string, len(g.cells))
	for i, row := range g.cells {
		lines[i] = strings.TrimRight(string(row), string(emptyRune))
	}
	return strings.Join(lines, "\n")
}

// Cell returns the rune at x, y.
func (g *Grid) Cell(x, y int) rune {
	return g.get(x, y)
}

// NodeCell returns the grid position of a node.
func (g *Grid) NodeCell(node int) (int, int) {
	_, r := g.layout()
	return g.cell(Points(Point{}, r)[wrap(node)])
}

func wrap(n int) int {
	return ((n % Nodes) + Nodes) % Nodes
}

func round(f float64) int {
	return int(math.Round(f))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
