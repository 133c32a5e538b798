package simulator

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/chrisdamba/ridehailsim/internal/models"
)

const (
	gcGraceS         = 3.0
	idleWanderFactor = 0.3
)

// Simulator owns the whole market: the agent and order tables, zone grid,
// surge state, spatial index and rolling metrics. One instance, one run; all
// stochastic decisions come from the single seeded RNG in a fixed draw
// order, so a (seed, config, dt-sequence) triple reproduces a run exactly.
//
// The engine is single-threaded and step-driven. Tick is the only mutating
// entry point and nothing inside it blocks or yields; hosts control pacing
// entirely by how often and with what dt they call it.
type Simulator struct {
	cfg models.Config
	rng *rand.Rand
	now float64

	agents   []models.Agent
	orders   []models.Order
	orderIdx map[int64]int

	nextOrderID int64
	activeCount int

	grid       zoneGrid
	pattern    models.DemandPattern
	policy     models.MatchingPolicy
	weights    []float64
	cumWeights []float64
	surge      []float64
	index      *spatialIndex

	// periodic-task accumulators
	sinceMatch   float64
	sinceSurge   float64
	sinceEta     float64
	sinceMetrics float64
	sinceGC      float64

	etaCursor       int
	capacityWarning bool

	// lifetime counters, never decremented
	createdTotal   int64
	completedTotal int64
	canceledTotal  int64

	second      int
	acc         secondAccum
	metrics     *aggregator
	flashes     []models.Flash
	subscribers []func(models.Snapshot)
	latest      models.Snapshot
	hasLatest   bool

	// scratch buffers reused across ticks
	pendingScratch []int
	candScratch    []int
	demandScratch  []int
	supplyScratch  []int
}

// New validates the structural parts of the config, clamps the numeric
// tunables and returns a fully reset simulator.
func New(cfg models.Config) (*Simulator, error) {
	cfg.Clamp()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulation config: %w", err)
	}
	s := &Simulator{cfg: cfg}
	s.Reset()
	return s, nil
}

// Reset reinitialises the RNG and every table from the current config. A
// reset run is bit-for-bit identical to a fresh construction with the same
// config.
func (s *Simulator) Reset() {
	s.rng = rand.New(rand.NewSource(s.cfg.Seed))
	s.now = 0
	s.second = 0
	s.nextOrderID = 0
	s.activeCount = 0
	s.createdTotal = 0
	s.completedTotal = 0
	s.canceledTotal = 0
	s.capacityWarning = false
	s.etaCursor = 0
	s.sinceMatch, s.sinceSurge, s.sinceEta, s.sinceMetrics, s.sinceGC = 0, 0, 0, 0, 0

	s.orders = s.orders[:0]
	s.orderIdx = make(map[int64]int)
	s.flashes = nil
	s.acc.reset()
	s.metrics = newAggregator()
	s.latest = models.Snapshot{}
	s.hasLatest = false

	s.rebuildWorld()

	s.agents = s.agents[:0]
	s.resizeFleet(s.cfg.DriversCount)
}

// rebuildWorld rederives everything that hangs off world size and zone grid.
func (s *Simulator) rebuildWorld() {
	rows, cols := s.cfg.ZoneGrid()
	s.grid = zoneGrid{w: s.cfg.WorldWidth, h: s.cfg.WorldHeight, rows: rows, cols: cols}
	s.pattern = s.cfg.Pattern()
	s.policy = s.cfg.Policy()
	s.rebuildDemandWeights()
	s.surge = make([]float64, s.grid.count())
	s.demandScratch = make([]int, s.grid.count())
	s.supplyScratch = make([]int, s.grid.count())
	if s.index == nil {
		s.index = newSpatialIndex(s.cfg.WorldWidth, s.cfg.WorldHeight)
	} else {
		s.index.resize(s.cfg.WorldWidth, s.cfg.WorldHeight)
	}
}

// resizeFleet grows the agent table with fresh idle drivers or truncates it.
// Orders held by removed drivers are requeued (assigned) or canceled
// (already picked); everything else in flight is preserved.
func (s *Simulator) resizeFleet(n int) {
	for len(s.agents) > n {
		last := len(s.agents) - 1
		a := s.agents[last]
		if a.OrderID >= 0 {
			if oi, ok := s.orderIdx[a.OrderID]; ok {
				o := &s.orders[oi]
				switch o.State {
				case models.OrderAssigned:
					o.State = models.OrderWaiting
					o.AgentID = -1
					o.AssignedAt = -1
					o.Fare = 0
					o.SurgeAtAssign = 0
				case models.OrderPicked:
					o.AgentID = -1
					s.cancelTerminal(oi)
				}
			}
		}
		s.agents = s.agents[:last]
	}
	for len(s.agents) < n {
		s.agents = append(s.agents, models.Agent{
			ID:    len(s.agents),
			Pos:   models.Point{X: s.rng.Float64() * s.cfg.WorldWidth, Y: s.rng.Float64() * s.cfg.WorldHeight},
			Speed: s.cfg.DriverSpeed,
			State: models.AgentIdle,

			OrderID: -1,
		})
	}
}

// cancelTerminal marks an order canceled without touching any agent.
func (s *Simulator) cancelTerminal(orderIdx int) {
	o := &s.orders[orderIdx]
	o.State = models.OrderCanceled
	o.CanceledAt = s.now
	s.activeCount--
	s.canceledTotal++
	s.acc.canceled++
}

// Tick advances the market by dt simulated seconds. The intra-tick order is
// fixed: spawn, move/advance, cancel, then the periodic batches.
func (s *Simulator) Tick(dt float64) {
	if dt <= 0 {
		return
	}
	s.now += dt

	s.spawnOrders(dt)
	s.moveAgents(dt)
	s.applyCancellations(dt)

	s.sinceMatch += dt
	if s.sinceMatch >= s.cfg.MatchInterval {
		s.sinceMatch = 0
		s.matchBatch()
	}
	s.sinceSurge += dt
	if s.sinceSurge >= s.cfg.SurgeUpdateInterval {
		s.sinceSurge = 0
		s.updateSurge()
	}
	s.sinceEta += dt
	if s.sinceEta >= s.cfg.EtaCacheInterval {
		s.sinceEta = 0
		s.refreshEtaCache()
	}
	s.sinceMetrics += dt
	if s.sinceMetrics >= s.cfg.MetricsInterval {
		s.sinceMetrics = 0
		s.flushMetrics()
	}
	s.sinceGC += dt
	if s.sinceGC >= s.cfg.GCInterval {
		s.sinceGC = 0
		s.collectGarbage()
	}
}

// moveAgents advances every driver and the service state machine riding on
// top of arrivals. Idle drivers wander slowly so supply does not freeze in
// place.
func (s *Simulator) moveAgents(dt float64) {
	busy := 0
	for i := range s.agents {
		a := &s.agents[i]
		switch a.State {
		case models.AgentIdle:
			s.wander(a, dt)
		case models.AgentToPickup:
			if s.stepTowards(a, dt) {
				s.arriveAtPickup(i)
			}
			busy++
		case models.AgentToDropoff:
			if s.stepTowards(a, dt) {
				s.arriveAtDropoff(i)
			}
			busy++
		}
	}
	s.acc.busySeconds += dt * float64(busy)
	s.acc.fleetSeconds += dt * float64(len(s.agents))
}

// wander drifts an idle driver along a heading that re-aims every few
// seconds, reflecting off the world edge.
func (s *Simulator) wander(a *models.Agent, dt float64) {
	a.HeadingTimer -= dt
	if a.HeadingTimer <= 0 {
		a.Heading = s.rng.Float64() * 2 * math.Pi
		a.HeadingTimer = 2 + s.rng.Float64()*4
	}
	step := a.Speed * idleWanderFactor * dt
	a.Pos.X += step * math.Cos(a.Heading)
	a.Pos.Y += step * math.Sin(a.Heading)
	if a.Pos.X < 0 || a.Pos.X > s.cfg.WorldWidth {
		a.Heading = math.Pi - a.Heading
	}
	if a.Pos.Y < 0 || a.Pos.Y > s.cfg.WorldHeight {
		a.Heading = -a.Heading
	}
	a.Pos = a.Pos.Clamp(s.cfg.WorldWidth, s.cfg.WorldHeight)
}

// stepTowards moves the driver toward its target, reporting arrival.
func (s *Simulator) stepTowards(a *models.Agent, dt float64) bool {
	dist := a.Pos.Dist(a.Target)
	step := a.Speed * dt
	if dist <= step || dist < epsilon {
		a.Pos = a.Target
		return true
	}
	ratio := step / dist
	a.Pos.X += (a.Target.X - a.Pos.X) * ratio
	a.Pos.Y += (a.Target.Y - a.Pos.Y) * ratio
	return false
}

// arriveAtPickup flips the order to picked, or releases the driver if the
// order vanished underneath them (canceled between batches).
func (s *Simulator) arriveAtPickup(agentIdx int) {
	a := &s.agents[agentIdx]
	oi, ok := s.orderIdx[a.OrderID]
	if !ok || s.orders[oi].State != models.OrderAssigned {
		s.releaseAgent(agentIdx)
		return
	}
	o := &s.orders[oi]
	o.State = models.OrderPicked
	o.PickedAt = s.now
	s.metrics.recordPickupWait(s.now - o.CreatedAt)

	a.State = models.AgentToDropoff
	a.Target = o.Dest
	a.StateSince = s.now
}

// arriveAtDropoff completes the trip and settles the locked fare between
// platform and driver.
func (s *Simulator) arriveAtDropoff(agentIdx int) {
	a := &s.agents[agentIdx]
	oi, ok := s.orderIdx[a.OrderID]
	if !ok || s.orders[oi].State != models.OrderPicked {
		s.releaseAgent(agentIdx)
		return
	}
	o := &s.orders[oi]
	o.State = models.OrderDone
	o.DoneAt = s.now
	o.AgentID = -1

	take := o.Fare * s.cfg.TakeRate
	a.Earnings += o.Fare - take
	s.acc.gmv += o.Fare
	s.acc.platform += take
	s.acc.driver += o.Fare - take
	s.acc.completed++
	s.completedTotal++
	s.activeCount--

	s.releaseAgent(agentIdx)
}

// collectGarbage compacts the order arena, dropping terminal orders once
// their grace period has passed. The grace keeps late external reads of a
// just-finished order consistent.
func (s *Simulator) collectGarbage() {
	kept := s.orders[:0]
	for i := range s.orders {
		o := s.orders[i]
		if t := o.TerminalAt(); t >= 0 && s.now-t > gcGraceS {
			continue
		}
		kept = append(kept, o)
	}
	s.orders = kept
	for k := range s.orderIdx {
		delete(s.orderIdx, k)
	}
	for i := range s.orders {
		s.orderIdx[s.orders[i].ID] = i
	}
	if len(s.orders) == 0 {
		s.etaCursor = 0
	} else {
		s.etaCursor %= len(s.orders)
	}
}

// --- reconfiguration ---------------------------------------------------

// SetSeed installs a new seed and fully reinitialises the run.
func (s *Simulator) SetSeed(seed int64) {
	s.cfg.Seed = seed
	s.Reset()
}

// SetWorldSize changes the city rectangle, keeping the run alive: agents and
// order endpoints are clamped into the new bounds, zones and the bucket grid
// are reallocated, surge restarts from flat.
func (s *Simulator) SetWorldSize(w, h float64) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("invalid world size %gx%g", w, h)
	}
	s.cfg.WorldWidth = w
	s.cfg.WorldHeight = h
	s.rebuildWorld()
	for i := range s.agents {
		s.agents[i].Pos = s.agents[i].Pos.Clamp(w, h)
		s.agents[i].Target = s.agents[i].Target.Clamp(w, h)
	}
	for i := range s.orders {
		o := &s.orders[i]
		o.Pickup = o.Pickup.Clamp(w, h)
		o.Dest = o.Dest.Clamp(w, h)
		o.Zone = s.grid.zoneAt(o.Pickup)
	}
	return nil
}

// SetConfig merges a full config in, clamping numeric ranges, and applies
// the structural deltas (fleet size, zone grid, demand pattern, world size)
// without dropping in-flight orders. Takes effect from the next tick.
func (s *Simulator) SetConfig(cfg models.Config) error {
	cfg.Clamp()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid simulation config: %w", err)
	}
	old := s.cfg
	s.cfg = cfg

	if cfg.WorldWidth != old.WorldWidth || cfg.WorldHeight != old.WorldHeight {
		if err := s.SetWorldSize(cfg.WorldWidth, cfg.WorldHeight); err != nil {
			return err
		}
	} else if cfg.ZonesPreset != old.ZonesPreset || cfg.DemandPattern != old.DemandPattern {
		s.rebuildWorld()
	} else {
		// cheap re-resolution of the enum dispatch
		s.pattern = cfg.Pattern()
		s.policy = cfg.Policy()
	}

	if cfg.DriversCount != old.DriversCount {
		s.resizeFleet(cfg.DriversCount)
	}
	if cfg.DriverSpeed != old.DriverSpeed {
		for i := range s.agents {
			s.agents[i].Speed = cfg.DriverSpeed
		}
	}
	if cfg.Seed != old.Seed {
		s.Reset()
	}
	return nil
}

// Config returns a copy of the active configuration, for read-modify-write
// partial updates.
func (s *Simulator) Config() models.Config {
	return s.cfg
}

// --- read models --------------------------------------------------------

// Now returns the simulated clock in seconds since reset.
func (s *Simulator) Now() float64 { return s.now }

// CapacityWarning reports whether spawning is currently suppressed by the
// order cap.
func (s *Simulator) CapacityWarning() bool { return s.capacityWarning }

// Subscribe registers a per-second snapshot callback. Callbacks run
// synchronously inside Tick, on the flush boundary.
func (s *Simulator) Subscribe(fn func(models.Snapshot)) {
	s.subscribers = append(s.subscribers, fn)
}

// Latest returns the most recently flushed snapshot, if any.
func (s *Simulator) Latest() (models.Snapshot, bool) {
	return s.latest, s.hasLatest
}

// Flashes drains the assignment flash queue.
func (s *Simulator) Flashes() []models.Flash {
	out := s.flashes
	s.flashes = nil
	return out
}

// SampleActiveOrders returns up to max active orders for external rendering.
func (s *Simulator) SampleActiveOrders(max int) []models.OrderView {
	out := make([]models.OrderView, 0, max)
	for i := range s.orders {
		if len(out) >= max {
			break
		}
		o := &s.orders[i]
		if o.State.Terminal() {
			continue
		}
		mul := s.surgeMultiplier(o.Zone)
		if o.State != models.OrderWaiting {
			mul = 1 + o.SurgeAtAssign
		}
		out = append(out, models.OrderView{
			ID:       o.ID,
			State:    o.State.String(),
			Pickup:   o.Pickup,
			Dest:     o.Dest,
			Zone:     o.Zone,
			AgentID:  o.AgentID,
			Fare:     o.Fare,
			WaitedS:  s.now - o.CreatedAt,
			EtaEstS:  o.EtaEst,
			SurgeMul: mul,
		})
	}
	return out
}

// Agents returns a view of the whole fleet.
func (s *Simulator) Agents() []models.AgentView {
	out := make([]models.AgentView, len(s.agents))
	for i := range s.agents {
		a := &s.agents[i]
		out[i] = models.AgentView{
			ID:      a.ID,
			Pos:     a.Pos,
			State:   a.State.String(),
			OrderID: a.OrderID,
			Speed:   a.Speed,
		}
	}
	return out
}
