package simulator

import (
	"math"

	"github.com/chrisdamba/ridehailsim/internal/models"
)

// Bucket grid over idle drivers only. Rebuilt from scratch before every
// matching batch and ETA refresh; buckets hold raw indices into the agent
// table and own nothing. Cell size is a fixed constant tuned so a bucket
// holds a handful of drivers at typical fleet densities.
const (
	spatialCellPx = 64.0
	maxRingRadius = 6
)

type spatialIndex struct {
	cols    int
	rows    int
	buckets [][]int
}

func newSpatialIndex(w, h float64) *spatialIndex {
	ix := &spatialIndex{}
	ix.resize(w, h)
	return ix
}

// resize reallocates the bucket array for a new world size.
func (ix *spatialIndex) resize(w, h float64) {
	ix.cols = int(math.Ceil(w / spatialCellPx))
	ix.rows = int(math.Ceil(h / spatialCellPx))
	if ix.cols < 1 {
		ix.cols = 1
	}
	if ix.rows < 1 {
		ix.rows = 1
	}
	ix.buckets = make([][]int, ix.cols*ix.rows)
}

func (ix *spatialIndex) cellAt(p models.Point) (cx, cy int) {
	cx = int(p.X / spatialCellPx)
	cy = int(p.Y / spatialCellPx)
	if cx < 0 {
		cx = 0
	} else if cx >= ix.cols {
		cx = ix.cols - 1
	}
	if cy < 0 {
		cy = 0
	} else if cy >= ix.rows {
		cy = ix.rows - 1
	}
	return cx, cy
}

// rebuild clears every bucket and refills them with the indices of idle
// agents. O(N) in fleet size; bucket slices are reused between rebuilds.
func (ix *spatialIndex) rebuild(agents []models.Agent) {
	for i := range ix.buckets {
		ix.buckets[i] = ix.buckets[i][:0]
	}
	for i := range agents {
		if agents[i].State != models.AgentIdle {
			continue
		}
		cx, cy := ix.cellAt(agents[i].Pos)
		b := cy*ix.cols + cx
		ix.buckets[b] = append(ix.buckets[b], i)
	}
}

// collect appends up to k idle-agent indices near p into out, expanding a
// square ring of cells outward until k are found or the ring cap is hit.
// Entries are re-checked against the live agent table because assignments
// made earlier in the same batch flip agents away from idle.
func (ix *spatialIndex) collect(p models.Point, k, maxRing int, agents []models.Agent, out []int) []int {
	cx, cy := ix.cellAt(p)
	for r := 0; r <= maxRing; r++ {
		x0, x1 := cx-r, cx+r
		y0, y1 := cy-r, cy+r
		for y := y0; y <= y1; y++ {
			if y < 0 || y >= ix.rows {
				continue
			}
			for x := x0; x <= x1; x++ {
				if x < 0 || x >= ix.cols {
					continue
				}
				// only the perimeter of the ring is new
				if r > 0 && x != x0 && x != x1 && y != y0 && y != y1 {
					continue
				}
				for _, ai := range ix.buckets[y*ix.cols+x] {
					if agents[ai].State != models.AgentIdle {
						continue
					}
					out = append(out, ai)
					if len(out) >= k {
						return out
					}
				}
			}
		}
		if len(out) >= k {
			break
		}
	}
	return out
}
