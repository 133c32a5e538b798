package simulator

import (
	"math"
	"testing"

	"github.com/chrisdamba/ridehailsim/internal/models"
)

func TestSurgeStaysWithinBounds(t *testing.T) {
	s := newTestSim(t, func(cfg *models.Config) {
		cfg.SurgeStrength = 5 // clamp ceiling, maximal reactivity
		cfg.SurgeCap = 1.0
		cfg.DemandPattern = "hotspots"
	})
	for i := 0; i < 1500; i++ {
		s.Tick(0.25)
		for z, v := range s.surge {
			if v < 0 || v > s.cfg.SurgeCap {
				t.Fatalf("zone %d surge %.4f outside [0,%.2f] at tick %d", z, v, s.cfg.SurgeCap, i)
			}
		}
	}
}

func TestSurgeConvergesToSteadyState(t *testing.T) {
	s := newTestSim(t, func(cfg *models.Config) {
		cfg.SurgeStrength = 0.8
		cfg.SurgeCap = 3.0
	})
	// hold a fixed imbalance in zone 0: 5 pending orders, 1 idle driver
	s.resizeFleet(0)
	s.orders = s.orders[:0]
	s.orderIdx = map[int64]int{}
	s.activeCount = 0
	s.agents = append(s.agents, idleAgentAt(0, 10, 10))
	for i := 0; i < 5; i++ {
		s.addWaitingOrder(models.Point{X: 20 + float64(i), Y: 20}, models.Point{X: 900, Y: 700})
	}

	ratio := 5.0
	target := clamp(s.cfg.SurgeStrength*(ratio-1), 0, s.cfg.SurgeCap)
	for i := 0; i < 60; i++ {
		s.updateSurge()
	}
	if math.Abs(s.surge[0]-target) > 0.01*target {
		t.Fatalf("surge %.4f did not converge to target %.4f", s.surge[0], target)
	}
}

func TestSurgeZeroWhenSupplyDominates(t *testing.T) {
	s := newTestSim(t, nil)
	// default fresh sim: no orders at all, plenty of idle drivers
	for i := 0; i < 10; i++ {
		s.updateSurge()
	}
	for z, v := range s.surge {
		if v != 0 {
			t.Fatalf("zone %d surge %.4f, want 0 with zero demand", z, v)
		}
	}
}

func TestSurgeMultiplierGuardsUnknownZone(t *testing.T) {
	s := newTestSim(t, nil)
	if got := s.surgeMultiplier(-1); got != 1 {
		t.Fatalf("multiplier for invalid zone = %.2f, want 1", got)
	}
	if got := s.surgeMultiplier(len(s.surge)); got != 1 {
		t.Fatalf("multiplier for out-of-range zone = %.2f, want 1", got)
	}
}
