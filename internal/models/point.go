package models

import "math"

// Point is a position on the simulated city plane, in pixels.
type Point struct {
	X float64 `json:"x" parquet:"name=x,type=DOUBLE"`
	Y float64 `json:"y" parquet:"name=y,type=DOUBLE"`
}

// Dist returns the euclidean distance to q in pixels.
func (p Point) Dist(q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Clamp confines the point to the rectangle [0,w]x[0,h].
func (p Point) Clamp(w, h float64) Point {
	if p.X < 0 {
		p.X = 0
	} else if p.X > w {
		p.X = w
	}
	if p.Y < 0 {
		p.Y = 0
	} else if p.Y > h {
		p.Y = h
	}
	return p
}
