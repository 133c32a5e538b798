package simulator

import (
	"math"
	"sort"

	"github.com/chrisdamba/ridehailsim/internal/models"
)

// poisson draws k ~ Poisson(mean) with Knuth's multiplication method. Means
// here are sub-1 per tick, so the loop is short.
func (s *Simulator) poisson(mean float64) int {
	if mean <= 0 {
		return 0
	}
	l := math.Exp(-mean)
	k := 0
	p := 1.0
	for {
		p *= s.rng.Float64()
		if p <= l {
			return k
		}
		k++
	}
}

// spawnOrders draws this tick's arrivals and places each one by sampling a
// zone (weighted roulette), then a uniform point inside it. Spawning stops
// for the tick once the active-order cap is hit and raises the capacity
// warning; the warning clears on its own once the backlog drains.
func (s *Simulator) spawnOrders(dt float64) {
	lambda := s.cfg.DemandRatePerMin / 60.0
	n := s.poisson(lambda * dt)

	if s.activeCount <= s.cfg.OrderCap*9/10 {
		s.capacityWarning = false
	}
	for i := 0; i < n; i++ {
		if s.activeCount >= s.cfg.OrderCap {
			s.capacityWarning = true
			return
		}
		s.createOrder()
	}
}

func (s *Simulator) createOrder() {
	zone := s.sampleZone()
	pickup := s.randomPointInZone(zone)
	dest := s.randomDestination(pickup)

	o := models.Order{
		ID:         s.nextOrderID,
		Pickup:     pickup,
		Dest:       dest,
		Zone:       zone,
		State:      models.OrderWaiting,
		AgentID:    -1,
		CreatedAt:  s.now,
		AssignedAt: -1,
		PickedAt:   -1,
		DoneAt:     -1,
		CanceledAt: -1,
		EtaEst:     s.cfg.Eta0,
		EtaEstAt:   s.now,
	}
	s.nextOrderID++

	s.orderIdx[o.ID] = len(s.orders)
	s.orders = append(s.orders, o)
	s.activeCount++
	s.createdTotal++
	s.acc.created++
}

// sampleZone picks a zone by cumulative-weight roulette.
func (s *Simulator) sampleZone() int {
	total := s.cumWeights[len(s.cumWeights)-1]
	r := s.rng.Float64() * total
	z := sort.SearchFloat64s(s.cumWeights, r)
	if z >= len(s.cumWeights) {
		z = len(s.cumWeights) - 1
	}
	return z
}

func (s *Simulator) randomPointInZone(z int) models.Point {
	x0, y0, x1, y1 := s.grid.rect(z)
	return models.Point{
		X: x0 + s.rng.Float64()*(x1-x0),
		Y: y0 + s.rng.Float64()*(y1-y0),
	}
}

// randomDestination samples a heading and a trip length scaled to city size,
// then clamps the endpoint inside the world.
func (s *Simulator) randomDestination(from models.Point) models.Point {
	theta := s.rng.Float64() * 2 * math.Pi
	dist := (0.15 + 0.5*s.rng.Float64()) * math.Min(s.cfg.WorldWidth, s.cfg.WorldHeight)
	dest := models.Point{
		X: from.X + dist*math.Cos(theta),
		Y: from.Y + dist*math.Sin(theta),
	}
	return dest.Clamp(s.cfg.WorldWidth, s.cfg.WorldHeight)
}

// rebuildDemandWeights is triggered on pattern, grid or world-size changes,
// not every tick.
func (s *Simulator) rebuildDemandWeights() {
	s.weights = buildDemandWeights(s.grid, s.pattern)
	s.cumWeights = cumulate(s.weights)
}
