// Package circle lays the twelve pitch classes out on a circle and draws
// the trail that connects played notes.
package circle

import (
	"math"

	"github.com/rapidmidiex/rmxtoys/theory"
)

const Nodes = 12

type Layout int

const (
	// Chromatic puts pitch class k on node k.
	Chromatic Layout = iota
	// Fifths walks the circle of fifths: node k holds pitch class 7k mod 12.
	Fifths
)

func (l Layout) String() string {
	if l == Fifths {
		return "fifths"
	}
	return "chromatic"
}

// ParseLayout accepts "chromatic" or "fifths".
func ParseLayout(s string) (Layout, bool) {
	switch s {
	case "chromatic", "":
		return Chromatic, true
	case "fifths":
		return Fifths, true
	}
	return Chromatic, false
}

// NodeOf returns the node showing the pitch class.
func (l Layout) NodeOf(pc theory.PitchClass) int {
	p := int(pc.Transpose(0))
	if l == Fifths {
		// 7 is its own inverse mod 12.
		return (p * 7) % Nodes
	}
	return p
}

// PitchClassOf returns the pitch class shown on node.
func (l Layout) PitchClassOf(node int) theory.PitchClass {
	n := ((node % Nodes) + Nodes) % Nodes
	if l == Fifths {
		return theory.PitchClass((n * 7) % Nodes)
	}
	return theory.PitchClass(n)
}

type Point struct {
	X, Y float64
}

// Points returns the node positions, node 0 at twelve o'clock, going clockwise.
// Y grows downwards as on a screen.
func Points(center Point, radius float64) [Nodes]Point {
	var pts [Nodes]Point
	for i := 0; i < Nodes; i++ {
		a := 2 * math.Pi * float64(i) / Nodes
		pts[i] = Point{
			X: center.X + radius*math.Sin(a),
			Y: center.Y - radius*math.Cos(a),
		}
	}
	return pts
}

// Trail maps the visited nodes onto a polyline.
func Trail(nodes []int, center Point, radius float64) []Point {
	pts := Points(center, radius)
	line := make([]Point, 0, len(nodes))
	for _, n := range nodes {
		line = append(line, pts[((n%Nodes)+Nodes)%Nodes])
	}
	return line
}

// Length is the total length of a polyline.
func Length(line []Point) float64 {
	total := 0.0
	for i := 1; i < len(line); i++ {
		total += math.Hypot(line[i].X-line[i-1].X, line[i].Y-line[i-1].Y)
	}
	return total
}
