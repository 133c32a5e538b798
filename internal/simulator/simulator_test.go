package simulator

import (
	"reflect"
	"testing"

	"github.com/chrisdamba/ridehailsim/internal/models"
)

func TestIdenticalRunsProduceIdenticalState(t *testing.T) {
	a := newTestSim(t, nil)
	b := newTestSim(t, nil)

	for i := 0; i < 600; i++ {
		a.Tick(0.2)
		b.Tick(0.2)
	}

	snapA, okA := a.Latest()
	snapB, okB := b.Latest()
	if !okA || !okB {
		t.Fatal("expected snapshots from both runs")
	}
	if !reflect.DeepEqual(snapA, snapB) {
		t.Fatalf("snapshots diverged:\n%+v\n%+v", snapA.Derived, snapB.Derived)
	}
	if !reflect.DeepEqual(a.Agents(), b.Agents()) {
		t.Fatal("fleet state diverged between identical runs")
	}
}

func TestResetReplaysTheSameRun(t *testing.T) {
	s := newTestSim(t, nil)
	var seconds []models.Derived
	s.Subscribe(func(snap models.Snapshot) {
		seconds = append(seconds, snap.Derived)
	})

	for i := 0; i < 100; i++ {
		s.Tick(0.2)
	}
	first := seconds
	seconds = nil

	s.Reset()
	if s.Now() != 0 {
		t.Fatalf("clock not reset, now=%g", s.Now())
	}
	for i := 0; i < 100; i++ {
		s.Tick(0.2)
	}

	if len(first) == 0 || len(first) != len(seconds) {
		t.Fatalf("snapshot counts differ: %d vs %d", len(first), len(seconds))
	}
	for i := range first {
		if !reflect.DeepEqual(first[i], seconds[i]) {
			t.Fatalf("second %d differs after reset:\n%+v\n%+v", i, first[i], seconds[i])
		}
	}
}

func TestBasicThroughputScenario(t *testing.T) {
	s := newTestSim(t, nil) // seed 42, 250 drivers, 90 orders/min

	for i := 0; i < 600; i++ {
		s.Tick(0.2)
	}

	snap, ok := s.Latest()
	if !ok {
		t.Fatal("no snapshot after 120 simulated seconds")
	}
	if snap.Derived.TripsTotal == 0 {
		t.Fatal("expected completed trips after two simulated minutes")
	}
	if snap.Derived.ActiveOrders > s.cfg.OrderCap {
		t.Fatalf("active orders %d exceed cap %d", snap.Derived.ActiveOrders, s.cfg.OrderCap)
	}
	if snap.Derived.GMVPerMin <= 0 {
		t.Fatal("expected positive GMV with completed trips")
	}
}

func TestOrderConservation(t *testing.T) {
	s := newTestSim(t, nil)

	for i := 0; i < 600; i++ {
		s.Tick(0.2)
		got := int64(s.activeCount) + s.completedTotal + s.canceledTotal
		if got != s.createdTotal {
			t.Fatalf("tick %d: created=%d but active+done+canceled=%d",
				i, s.createdTotal, got)
		}
	}
}

func TestTickIgnoresNonPositiveDt(t *testing.T) {
	s := newTestSim(t, nil)
	s.Tick(0)
	s.Tick(-1)
	if s.Now() != 0 || s.createdTotal != 0 {
		t.Fatalf("non-positive dt mutated state: now=%g created=%d", s.Now(), s.createdTotal)
	}
}

func TestSetWorldSizeKeepsRunAlive(t *testing.T) {
	s := newTestSim(t, nil)
	for i := 0; i < 200; i++ {
		s.Tick(0.2)
	}

	if err := s.SetWorldSize(300, 200); err != nil {
		t.Fatalf("SetWorldSize: %v", err)
	}
	for i := range s.agents {
		p := s.agents[i].Pos
		if p.X < 0 || p.X > 300 || p.Y < 0 || p.Y > 200 {
			t.Fatalf("agent %d outside shrunk world: %+v", i, p)
		}
	}
	for i := range s.orders {
		o := &s.orders[i]
		if o.State.Terminal() {
			continue
		}
		if want := s.grid.zoneAt(o.Pickup); o.Zone != want {
			t.Fatalf("order %d zone stale: got %d want %d", o.ID, o.Zone, want)
		}
	}

	// must still tick without panicking and keep conservation
	for i := 0; i < 100; i++ {
		s.Tick(0.2)
	}
	if got := int64(s.activeCount) + s.completedTotal + s.canceledTotal; got != s.createdTotal {
		t.Fatalf("conservation broken after resize: created=%d accounted=%d", s.createdTotal, got)
	}
}

func TestSetWorldSizeRejectsNonPositive(t *testing.T) {
	s := newTestSim(t, nil)
	if err := s.SetWorldSize(0, 100); err == nil {
		t.Fatal("expected error for zero width")
	}
	if err := s.SetWorldSize(100, -5); err == nil {
		t.Fatal("expected error for negative height")
	}
}

func TestSetConfigShrinksFleetWithoutLosingOrders(t *testing.T) {
	s := newTestSim(t, nil)
	for i := 0; i < 300; i++ {
		s.Tick(0.2)
	}

	cfg := s.Config()
	cfg.DriversCount = 50
	if err := s.SetConfig(cfg); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	if len(s.agents) != 50 {
		t.Fatalf("fleet size %d after shrink to 50", len(s.agents))
	}
	for i := range s.orders {
		o := &s.orders[i]
		if o.State.Terminal() {
			continue
		}
		if o.AgentID >= len(s.agents) {
			t.Fatalf("order %d still held by removed driver %d", o.ID, o.AgentID)
		}
		if o.AgentID >= 0 && s.agents[o.AgentID].OrderID != o.ID {
			t.Fatalf("order %d and driver %d disagree", o.ID, o.AgentID)
		}
	}
	if got := int64(s.activeCount) + s.completedTotal + s.canceledTotal; got != s.createdTotal {
		t.Fatalf("conservation broken after shrink: created=%d accounted=%d", s.createdTotal, got)
	}
}

func TestSetConfigSeedChangeResetsRun(t *testing.T) {
	s := newTestSim(t, nil)
	for i := 0; i < 100; i++ {
		s.Tick(0.2)
	}
	cfg := s.Config()
	cfg.Seed = 7
	if err := s.SetConfig(cfg); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	if s.Now() != 0 || s.createdTotal != 0 {
		t.Fatalf("seed change did not reset: now=%g created=%d", s.Now(), s.createdTotal)
	}
}

func TestSetConfigUpdatesDriverSpeed(t *testing.T) {
	s := newTestSim(t, nil)
	cfg := s.Config()
	cfg.DriverSpeed = 150
	if err := s.SetConfig(cfg); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	for i := range s.agents {
		if s.agents[i].Speed != 150 {
			t.Fatalf("agent %d speed %g, want 150", i, s.agents[i].Speed)
		}
	}
}

func TestGarbageCollectionDropsTerminalOrders(t *testing.T) {
	s := newTestSim(t, func(cfg *models.Config) {
		cfg.DemandRatePerMin = 10 // Clamp floor; keep background spawns low
		cfg.CancelSensitivity = 0
	})
	idx := s.addWaitingOrder(models.Point{X: 50, Y: 50}, models.Point{X: 700, Y: 400})
	id := s.orders[idx].ID
	s.cancelOrder(idx)

	s.now += gcGraceS + 1
	s.collectGarbage()

	if _, ok := s.orderIdx[id]; ok {
		t.Fatalf("terminal order %d survived garbage collection", id)
	}
	for i := range s.orders {
		if s.orders[i].ID == id {
			t.Fatalf("terminal order %d still in arena", id)
		}
	}
}

func TestGarbageCollectionHonorsGrace(t *testing.T) {
	s := newTestSim(t, nil)
	idx := s.addWaitingOrder(models.Point{X: 50, Y: 50}, models.Point{X: 700, Y: 400})
	id := s.orders[idx].ID
	s.cancelOrder(idx)

	s.now += gcGraceS / 2
	s.collectGarbage()

	if _, ok := s.orderIdx[id]; !ok {
		t.Fatalf("order %d collected before its grace period elapsed", id)
	}
}

func TestSampleActiveOrdersSkipsTerminal(t *testing.T) {
	s := newTestSim(t, nil)
	s.addWaitingOrder(models.Point{X: 50, Y: 50}, models.Point{X: 700, Y: 400})
	doneIdx := s.addWaitingOrder(models.Point{X: 60, Y: 60}, models.Point{X: 500, Y: 300})
	s.cancelOrder(doneIdx)

	views := s.SampleActiveOrders(10)
	if len(views) != 1 {
		t.Fatalf("got %d views, want 1", len(views))
	}
	if views[0].State != models.OrderWaiting.String() {
		t.Fatalf("unexpected state %q", views[0].State)
	}
}
