package simulator

import "github.com/chrisdamba/ridehailsim/internal/models"

// Surge smoothing factor. A single surge interval of imbalance moves the
// zone 30% of the way to its target, which tracks sustained pressure without
// oscillating on one-tick noise.
const surgeAlpha = 0.3

// updateSurge recomputes each zone's smoothed surge component from the
// pending-demand / idle-supply ratio. Runs once per surge interval.
func (s *Simulator) updateSurge() {
	zones := s.grid.count()
	demand := s.demandScratch
	supply := s.supplyScratch
	for z := 0; z < zones; z++ {
		demand[z] = 0
		supply[z] = 0
	}

	for i := range s.orders {
		st := s.orders[i].State
		if st == models.OrderWaiting || st == models.OrderAssigned {
			demand[s.grid.zoneAt(s.orders[i].Pickup)]++
		}
	}
	for i := range s.agents {
		if s.agents[i].State == models.AgentIdle {
			supply[s.grid.zoneAt(s.agents[i].Pos)]++
		}
	}

	for z := 0; z < zones; z++ {
		ratio := float64(demand[z]) / atLeast(float64(supply[z]), 1)
		target := clamp(s.cfg.SurgeStrength*(ratio-1), 0, s.cfg.SurgeCap)
		s.surge[z] = clamp(ema(s.surge[z], target, surgeAlpha), 0, s.cfg.SurgeCap)
	}
}

// surgeMultiplier is the effective price multiplier for a zone.
func (s *Simulator) surgeMultiplier(zone int) float64 {
	if zone < 0 || zone >= len(s.surge) {
		return 1
	}
	return 1 + s.surge[zone]
}

// meanSurge averages the surge component across all zones.
func (s *Simulator) meanSurge() float64 {
	if len(s.surge) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range s.surge {
		total += v
	}
	return total / float64(len(s.surge))
}
