package simulator

import (
	"math"

	"github.com/chrisdamba/ridehailsim/internal/models"
)

const (
	hazardCeil   = 0.5
	etaSentinelS = 600.0
)

// applyCancellations runs every tick over all waiting and assigned orders,
// converting the expected wait into a per-tick cancellation probability via
// a proper continuous-time hazard, 1-exp(-h*dt), so behaviour is stable
// across varying tick sizes.
//
// Waiting orders price their wait from the budgeted ETA cache; assigned
// orders have exactly one live counterpart driver, so they use the fresh
// distance instead.
func (s *Simulator) applyCancellations(dt float64) {
	for i := range s.orders {
		o := &s.orders[i]
		var eta float64
		switch o.State {
		case models.OrderWaiting:
			eta = o.EtaEst
		case models.OrderAssigned:
			a := &s.agents[o.AgentID]
			if a.State == models.AgentToPickup {
				eta = safeDiv(a.Pos.Dist(o.Pickup), a.Speed)
			}
		default:
			continue
		}

		hazard := clamp(s.cfg.CancelSensitivity*safeDiv(eta, s.cfg.Eta0), 0, hazardCeil)
		if hazard <= 0 {
			continue
		}
		p := 1 - math.Exp(-hazard*dt)
		if s.rng.Float64() < p {
			s.cancelOrder(i)
		}
	}
}

// cancelOrder moves the order to its terminal state and, if a driver was
// already bound, releases them to idle immediately rather than letting them
// finish a void trip.
func (s *Simulator) cancelOrder(orderIdx int) {
	o := &s.orders[orderIdx]
	if o.AgentID >= 0 {
		s.releaseAgent(o.AgentID)
	}
	o.State = models.OrderCanceled
	o.CanceledAt = s.now
	o.AgentID = -1
	s.activeCount--
	s.canceledTotal++
	s.acc.canceled++
}

// releaseAgent returns a driver to idle, targetless.
func (s *Simulator) releaseAgent(agentIdx int) {
	a := &s.agents[agentIdx]
	a.State = models.AgentIdle
	a.OrderID = -1
	a.Target = models.Point{}
	a.StateSince = s.now
	a.HeadingTimer = 0
}

// refreshEtaCache re-estimates pickup ETAs for at most the budgeted number
// of waiting orders per interval, in round-robin order. The cursor persists
// across calls so heavy backlogs still get full coverage eventually. The
// matching engine never reads these estimates; they exist only to keep the
// cancellation hazard cheap.
func (s *Simulator) refreshEtaCache() {
	n := len(s.orders)
	if n == 0 {
		return
	}
	budget := int(float64(s.cfg.MaxEtaEstPerSecond) * s.cfg.EtaCacheInterval)
	if budget < 1 {
		budget = 1
	}

	s.index.rebuild(s.agents)

	cand := s.candScratch[:0]
	refreshed := 0
	for scanned := 0; scanned < n && refreshed < budget; scanned++ {
		i := s.etaCursor % n
		s.etaCursor = (s.etaCursor + 1) % n
		o := &s.orders[i]
		if o.State != models.OrderWaiting {
			continue
		}

		cand = s.index.collect(o.Pickup, s.cfg.KCandidates, maxRingRadius, s.agents, cand[:0])
		if len(cand) == 0 {
			// no reachable idle driver: decay toward the sentinel, which
			// reads as "currently unmatched, rising cancel risk"
			o.EtaEst = ema(o.EtaEst, etaSentinelS, 0.5)
		} else {
			best := math.Inf(1)
			for _, ai := range cand {
				a := &s.agents[ai]
				if eta := safeDiv(a.Pos.Dist(o.Pickup), a.Speed); eta < best {
					best = eta
				}
			}
			o.EtaEst = best
		}
		o.EtaEstAt = s.now
		refreshed++
	}
	s.candScratch = cand
}
