package plot

import (
	"math"
	"strings"
	"time"

	"tsevolve/internal/series"
)

// Bounds is the shared axis range of every line drawn on a canvas.
type Bounds struct {
	MinTime  time.Time
	MaxTime  time.Time
	MinValue float64
	MaxValue float64
}

// BoundsOf covers every point of every line.
func BoundsOf(lines ...[]series.Point) Bounds {
	var b Bounds
	first := true
	for _, line := range lines {
		for _, p := range line {
			if first {
				b = Bounds{MinTime: p.Time, MaxTime: p.Time, MinValue: p.Value, MaxValue: p.Value}
				first = false
				continue
			}
			if p.Time.Before(b.MinTime) {
				b.MinTime = p.Time
			}
			if p.Time.After(b.MaxTime) {
				b.MaxTime = p.Time
			}
			b.MinValue = math.Min(b.MinValue, p.Value)
			b.MaxValue = math.Max(b.MaxValue, p.Value)
		}
	}
	return b
}

// Canvas is a character grid with row 0 at the top.
type Canvas struct {
	width  int
	height int
	cells  [][]rune
}

func NewCanvas(width, height int) *Canvas {
	width = max(width, 1)
	height = max(height, 1)
	cells := make([][]rune, height)
	for y := range cells {
		cells[y] = []rune(strings.Repeat(" ", width))
	}
	return &Canvas{width: width, height: height, cells: cells}
}

func (c *Canvas) Size() (int, int) {
	return c.width, c.height
}

func (c *Canvas) Cell(x, y int) rune {
	if x < 0 || y < 0 || x >= c.width || y >= c.height {
		return ' '
	}
	return c.cells[y][x]
}

// Plot draws line as connected segments using mark.
func (c *Canvas) Plot(line []series.Point, b Bounds, mark rune) {
	if len(line) == 0 {
		return
	}
	prevX, prevY := c.project(line[0], b)
	c.set(prevX, prevY, mark)
	for _, p := range line[1:] {
		x, y := c.project(p, b)
		c.segment(prevX, prevY, x, y, mark)
		prevX, prevY = x, y
	}
}

func (c *Canvas) Lines() []string {
	out := make([]string, c.height)
	for y, row := range c.cells {
		out[y] = strings.TrimRight(string(row), " ")
	}
	return out
}

func (c *Canvas) String() string {
	return strings.Join(c.Lines(), "\n")
}

func (c *Canvas) project(p series.Point, b Bounds) (int, int) {
	fx := 0.0
	if span := b.MaxTime.Sub(b.MinTime); span > 0 {
		fx = float64(p.Time.Sub(b.MinTime)) / float64(span)
	}
	fy := 0.0
	if span := b.MaxValue - b.MinValue; span > 0 {
		fy = (p.Value - b.MinValue) / span
	}
	x := int(math.Round(clamp01(fx) * float64(c.width-1)))
	y := c.height - 1 - int(math.Round(clamp01(fy)*float64(c.height-1)))
	return x, y
}

func (c *Canvas) segment(x0, y0, x1, y1 int, mark rune) {
	steps := max(abs(x1-x0), abs(y1-y0))
	if steps == 0 {
		c.set(x0, y0, mark)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := int(math.Round(float64(x0) + t*float64(x1-x0)))
		y := int(math.Round(float64(y0) + t*float64(y1-y0)))
		c.set(x, y, mark)
	}
}

func (c *Canvas) set(x, y int, mark rune) {
	if x < 0 || y < 0 || x >= c.width || y >= c.height {
		return
	}
	c.cells[y][x] = mark
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
