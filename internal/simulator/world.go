package simulator

import (
	"math"

	"github.com/chrisdamba/ridehailsim/internal/models"
)

// zoneGrid partitions the city rectangle into rows x cols zones. Zones are
// derived from the grid on demand and never stored per instance; a zone id is
// row*cols+col.
type zoneGrid struct {
	w, h float64
	rows int
	cols int
}

func (g zoneGrid) count() int {
	return g.rows * g.cols
}

func (g zoneGrid) cellW() float64 { return g.w / float64(g.cols) }
func (g zoneGrid) cellH() float64 { return g.h / float64(g.rows) }

// zoneAt maps a point to its owning zone, clamping points on the far edge
// into the last row/col.
func (g zoneGrid) zoneAt(p models.Point) int {
	col := int(p.X / g.cellW())
	row := int(p.Y / g.cellH())
	if col < 0 {
		col = 0
	} else if col >= g.cols {
		col = g.cols - 1
	}
	if row < 0 {
		row = 0
	} else if row >= g.rows {
		row = g.rows - 1
	}
	return row*g.cols + col
}

// rect returns the zone's bounding rectangle.
func (g zoneGrid) rect(z int) (x0, y0, x1, y1 float64) {
	row := z / g.cols
	col := z % g.cols
	x0 = float64(col) * g.cellW()
	y0 = float64(row) * g.cellH()
	return x0, y0, x0 + g.cellW(), y0 + g.cellH()
}

func (g zoneGrid) center(z int) models.Point {
	x0, y0, x1, y1 := g.rect(z)
	return models.Point{X: (x0 + x1) / 2, Y: (y0 + y1) / 2}
}

// buildDemandWeights computes the per-zone demand weight array for the given
// pattern. Called only when the pattern, zone grid or world size changes.
func buildDemandWeights(g zoneGrid, pattern models.DemandPattern) []float64 {
	weights := make([]float64, g.count())
	switch pattern {
	case models.PatternCenter:
		center := models.Point{X: g.w / 2, Y: g.h / 2}
		sigma := 0.25 * math.Min(g.w, g.h)
		for z := range weights {
			d := g.center(z).Dist(center)
			weights[z] = 0.05 + math.Exp(-d*d/(2*sigma*sigma))
		}
	case models.PatternHotspots:
		a := models.Point{X: 0.25 * g.w, Y: 0.30 * g.h}
		b := models.Point{X: 0.75 * g.w, Y: 0.65 * g.h}
		sigma := 0.15 * math.Min(g.w, g.h)
		for z := range weights {
			c := g.center(z)
			da := c.Dist(a)
			db := c.Dist(b)
			weights[z] = 0.02 +
				math.Exp(-da*da/(2*sigma*sigma)) +
				0.8*math.Exp(-db*db/(2*sigma*sigma))
		}
	default:
		for z := range weights {
			weights[z] = 1
		}
	}
	return weights
}

// cumulate turns a weight array into cumulative sums for roulette sampling.
func cumulate(weights []float64) []float64 {
	cum := make([]float64, len(weights))
	total := 0.0
	for i, w := range weights {
		total += w
		cum[i] = total
	}
	return cum
}
