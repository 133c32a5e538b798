package simulator

import (
	"testing"

	"github.com/chrisdamba/ridehailsim/internal/models"
)

// addWaitingOrder injects an order directly, bypassing the demand generator.
func (s *Simulator) addWaitingOrder(pickup, dest models.Point) int {
	o := models.Order{
		ID:         s.nextOrderID,
		Pickup:     pickup,
		Dest:       dest,
		Zone:       s.grid.zoneAt(pickup),
		State:      models.OrderWaiting,
		AgentID:    -1,
		CreatedAt:  s.now,
		AssignedAt: -1,
		PickedAt:   -1,
		DoneAt:     -1,
		CanceledAt: -1,
		EtaEst:     s.cfg.Eta0,
	}
	s.nextOrderID++
	s.orderIdx[o.ID] = len(s.orders)
	s.orders = append(s.orders, o)
	s.activeCount++
	s.createdTotal++
	return len(s.orders) - 1
}

func TestMatchBatchNoDoubleAssignment(t *testing.T) {
	s := newTestSim(t, nil)
	s.resizeFleet(1)
	s.agents[0].Pos = models.Point{X: 100, Y: 100}

	s.addWaitingOrder(models.Point{X: 105, Y: 100}, models.Point{X: 500, Y: 500})
	s.addWaitingOrder(models.Point{X: 95, Y: 100}, models.Point{X: 600, Y: 300})

	s.matchBatch()

	assigned := 0
	for i := range s.orders {
		if s.orders[i].State == models.OrderAssigned {
			assigned++
			if s.orders[i].AgentID != 0 {
				t.Fatalf("assigned to unknown agent %d", s.orders[i].AgentID)
			}
		}
	}
	if assigned != 1 {
		t.Fatalf("one driver must serve exactly one order per batch, got %d assignments", assigned)
	}
	if s.agents[0].State != models.AgentToPickup {
		t.Fatalf("winning driver should be en route to pickup, got %s", s.agents[0].State)
	}
}

func TestMatchBatchZeroIdleSupply(t *testing.T) {
	s := newTestSim(t, nil)
	s.resizeFleet(0)
	for i := 0; i < 5; i++ {
		s.createOrder()
	}

	s.matchBatch()

	for i := range s.orders {
		if s.orders[i].State != models.OrderWaiting {
			t.Fatalf("order %d should remain waiting with no idle supply", s.orders[i].ID)
		}
	}
}

func TestEtaPolicyPicksNearestDriver(t *testing.T) {
	s := newTestSim(t, func(cfg *models.Config) { cfg.MatchingPolicy = "eta" })
	s.resizeFleet(2)
	s.agents[0].Pos = models.Point{X: 300, Y: 100}
	s.agents[1].Pos = models.Point{X: 110, Y: 100}

	oi := s.addWaitingOrder(models.Point{X: 100, Y: 100}, models.Point{X: 700, Y: 600})
	s.matchBatch()

	if s.orders[oi].AgentID != 1 {
		t.Fatalf("eta policy picked agent %d, want the nearer agent 1", s.orders[oi].AgentID)
	}
}

func TestScorePolicyPrefersValuableOrderForScarceDriver(t *testing.T) {
	s := newTestSim(t, func(cfg *models.Config) {
		cfg.MatchingPolicy = "score"
		cfg.PriceWeight = 1 // exaggerate the price term
	})
	s.resizeFleet(2)
	// same distance to the order, so the price term decides nothing here;
	// this exercises that score policy still assigns cleanly
	s.agents[0].Pos = models.Point{X: 90, Y: 100}
	s.agents[1].Pos = models.Point{X: 110, Y: 100}

	oi := s.addWaitingOrder(models.Point{X: 100, Y: 100}, models.Point{X: 900, Y: 700})
	s.matchBatch()
	if s.orders[oi].State != models.OrderAssigned {
		t.Fatalf("score policy failed to assign")
	}
}

func TestFareLockedAtAssignment(t *testing.T) {
	s := newTestSim(t, nil)
	s.resizeFleet(1)
	s.agents[0].Pos = models.Point{X: 100, Y: 100}
	oi := s.addWaitingOrder(models.Point{X: 100, Y: 100}, models.Point{X: 400, Y: 100}) // zone 0

	s.surge[s.orders[oi].Zone] = 0.5
	s.matchBatch()

	o := &s.orders[oi]
	if o.State != models.OrderAssigned {
		t.Fatalf("expected assignment")
	}
	wantKm := o.Pickup.Dist(o.Dest) / s.cfg.PxPerKm
	want := (s.cfg.BaseFare + s.cfg.PerKm*wantKm) * 1.5
	if diff := o.Fare - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("fare %.6f, want %.6f", o.Fare, want)
	}

	// surge moves afterwards; the locked fare must not
	locked := o.Fare
	s.surge[o.Zone] = 1.2
	s.Tick(0.2)
	if s.orders[s.orderIdx[o.ID]].Fare != locked {
		t.Fatalf("fare changed after assignment")
	}
}

func TestAssignmentEmitsFlash(t *testing.T) {
	s := newTestSim(t, nil)
	s.resizeFleet(1)
	s.agents[0].Pos = models.Point{X: 100, Y: 100}
	s.addWaitingOrder(models.Point{X: 102, Y: 100}, models.Point{X: 400, Y: 100})

	s.matchBatch()
	flashes := s.Flashes()
	if len(flashes) != 1 {
		t.Fatalf("expected one flash, got %d", len(flashes))
	}
	if got := s.Flashes(); len(got) != 0 {
		t.Fatalf("flashes should drain on read")
	}
}
