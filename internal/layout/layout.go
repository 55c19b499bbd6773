// Package layout places new nodes on the canvas without covering existing
// ones. Node sizes are estimates; the canvas measures real sizes.
package layout

import (
	"github.com/gyaneshwarpardhi/caseflow/internal/flow"
)

// Point is a canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned box with its origin at the top-left corner.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Inflate grows r by m on every side.
func (r Rect) Inflate(m float64) Rect {
	return Rect{X: r.X - m, Y: r.Y - m, W: r.W + 2*m, H: r.H + 2*m}
}

// Overlaps reports whether r and o share any area. Touching edges do not
// count.
func (r Rect) Overlaps(o Rect) bool {
	return !(r.X+r.W <= o.X || o.X+o.W <= r.X || r.Y+r.H <= o.Y || o.Y+o.H <= r.Y)
}

// Config holds the size estimates and search parameters.
type Config struct {
	CaseWidth    float64 `yaml:"case_width"`
	CaseHeight   float64 `yaml:"case_height"`
	AnswerWidth  float64 `yaml:"answer_width"`
	AnswerHeight float64 `yaml:"answer_height"`
	// Gap is the horizontal distance between a case and its first answer.
	Gap       float64 `yaml:"gap"`
	StepX     float64 `yaml:"step_x"`
	StepY     float64 `yaml:"step_y"`
	Margin    float64 `yaml:"margin"`
	MaxTries  int     `yaml:"max_tries"`
	MinCoord  float64 `yaml:"min_coord"`
	CanvasW   float64 `yaml:"canvas_width"`
	RowStride float64 `yaml:"row_stride"`
}

// DefaultConfig returns the estimates the canvas was tuned with.
func DefaultConfig() Config {
	return Config{
		CaseWidth:    380,
		CaseHeight:   180,
		AnswerWidth:  260,
		AnswerHeight: 160,
		Gap:          240,
		StepX:        40,
		StepY:        220,
		Margin:       24,
		MaxTries:     2000,
		MinCoord:     20,
		CanvasW:      2400,
		RowStride:    120,
	}
}

// Bounds returns the estimated box of n.
func (c Config) Bounds(n flow.Node) Rect {
	p := n.Position()
	if n.Type() == flow.NodeTypeCase {
		return Rect{X: p.X, Y: p.Y, W: c.CaseWidth, H: c.CaseHeight}
	}
	return Rect{X: p.X, Y: p.Y, W: c.AnswerWidth, H: c.AnswerHeight}
}

// Occupied returns the inflated boxes of every node.
func (c Config) Occupied(nodes []flow.Node) []Rect {
	out := make([]Rect, len(nodes))
	for i, n := range nodes {
		out[i] = c.Bounds(n).Inflate(c.Margin)
	}
	return out
}

// AnswerSlot is where the answer for row index of a case at casePos goes.
func (c Config) AnswerSlot(casePos flow.Position, index int) flow.Position {
	return flow.Position{
		X: casePos.X + c.CaseWidth + c.Gap,
		Y: casePos.Y + 40 + float64(index)*c.RowStride,
	}
}

// FindFreeSpot scans from preferred, left to right then row by row, for a
// place where a case and its first answer fit without touching any box in
// occupied. It returns preferred unchanged when MaxTries candidates all
// collide.
func FindFreeSpot(occupied []Rect, preferred Point, c Config) Point {
	maxX := c.CanvasW - (c.CaseWidth + c.Gap + c.AnswerWidth + 40)
	if maxX < c.MinCoord {
		maxX = c.MinCoord
	}
	x := max(c.MinCoord, preferred.X)
	y := max(c.MinCoord, preferred.Y)

	for tries := 0; tries < c.MaxTries; tries++ {
		caseBox := Rect{X: x, Y: y, W: c.CaseWidth, H: c.CaseHeight}.Inflate(c.Margin)
		ansBox := Rect{X: x + c.CaseWidth + c.Gap, Y: y + 40, W: c.AnswerWidth, H: c.AnswerHeight}.Inflate(c.Margin)
		if !collides(occupied, caseBox, ansBox) {
			return Point{X: x, Y: y}
		}
		x += c.StepX
		if x > maxX {
			x = c.MinCoord
			y += c.StepY
		}
	}
	return preferred
}

func collides(occupied []Rect, boxes ...Rect) bool {
	for _, r := range occupied {
		for _, b := range boxes {
			if r.Overlaps(b) {
				return true
			}
		}
	}
	return false
}
