package simulator

import (
	"github.com/chrisdamba/ridehailsim/internal/models"
)

const flashQueueCap = 256

// matchBatch runs once per match interval. It rebuilds the idle-driver index,
// shuffles the pending orders so early or co-located orders are not
// systematically favoured, and greedily assigns each one to the best
// candidate under the active policy. Orders that find no candidate stay
// waiting for the next batch.
func (s *Simulator) matchBatch() {
	s.index.rebuild(s.agents)

	pending := s.pendingScratch[:0]
	for i := range s.orders {
		if s.orders[i].State == models.OrderWaiting {
			pending = append(pending, i)
		}
	}
	// Fisher-Yates on the engine RNG keeps batches fair and runs reproducible
	for i := len(pending) - 1; i > 0; i-- {
		j := s.rng.Intn(i + 1)
		pending[i], pending[j] = pending[j], pending[i]
	}
	s.pendingScratch = pending

	cand := s.candScratch[:0]
	for _, oi := range pending {
		o := &s.orders[oi]
		// positions may have drifted since creation; re-derive the zone
		o.Zone = s.grid.zoneAt(o.Pickup)

		cand = s.index.collect(o.Pickup, s.cfg.KCandidates, maxRingRadius, s.agents, cand[:0])
		if len(cand) == 0 {
			continue
		}
		best := s.pickCandidate(o, cand)
		if best < 0 {
			continue
		}
		s.assign(oi, best)
	}
	s.candScratch = cand
}

// pickCandidate scores candidates under the policy resolved at batch start.
// Candidates assigned earlier in the same batch are no longer idle and are
// skipped, so no driver is ever handed two orders in one batch.
func (s *Simulator) pickCandidate(o *models.Order, cand []int) int {
	best := -1
	var bestScore float64
	for _, ai := range cand {
		a := &s.agents[ai]
		if a.State != models.AgentIdle {
			continue
		}
		eta := safeDiv(a.Pos.Dist(o.Pickup), a.Speed)
		var score float64
		switch s.policy {
		case models.PolicyScore:
			price := s.tripFare(o) * s.surgeMultiplier(o.Zone)
			score = safeDiv(1, eta) + s.cfg.PriceWeight*price
		default: // PolicyETA: nearest driver wins
			score = -eta
		}
		if best < 0 || score > bestScore {
			best = ai
			bestScore = score
		}
	}
	return best
}

// assign locks the fare at the zone's current surge and flips both state
// machines in the same step, so later iterations of the batch see the driver
// as busy.
func (s *Simulator) assign(orderIdx, agentIdx int) {
	o := &s.orders[orderIdx]
	a := &s.agents[agentIdx]

	surgeMul := s.surgeMultiplier(o.Zone)
	o.State = models.OrderAssigned
	o.AgentID = agentIdx
	o.AssignedAt = s.now
	o.SurgeAtAssign = surgeMul - 1
	o.Fare = s.tripFare(o) * surgeMul

	a.State = models.AgentToPickup
	a.Target = o.Pickup
	a.OrderID = o.ID
	a.StateSince = s.now

	if len(s.flashes) < flashQueueCap {
		s.flashes = append(s.flashes, models.Flash{
			At:      o.Pickup,
			Time:    s.now,
			OrderID: o.ID,
			AgentID: agentIdx,
		})
	}
}

// tripFare is the un-surged fare for the order's trip distance.
func (s *Simulator) tripFare(o *models.Order) float64 {
	km := o.Pickup.Dist(o.Dest) / atLeast(s.cfg.PxPerKm, 1)
	return s.cfg.BaseFare + s.cfg.PerKm*km
}
