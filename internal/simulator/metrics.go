package simulator

import (
	"sort"

	"github.com/chrisdamba/ridehailsim/internal/models"
)

const (
	seriesCap        = 300
	waitReservoirCap = 256
)

// series is a fixed-capacity rolling ring of float samples, oldest dropped
// first.
type series struct {
	vals  []float64
	head  int // index of oldest sample
	count int
}

func newSeries(capacity int) *series {
	return &series{vals: make([]float64, capacity)}
}

func (r *series) push(v float64) {
	if r.count < len(r.vals) {
		r.vals[(r.head+r.count)%len(r.vals)] = v
		r.count++
		return
	}
	r.vals[r.head] = v
	r.head = (r.head + 1) % len(r.vals)
}

func (r *series) len() int { return r.count }

// values copies the ring oldest-first.
func (r *series) values() []float64 {
	out := make([]float64, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.vals[(r.head+i)%len(r.vals)]
	}
	return out
}

// sumLast sums the most recent n samples (fewer if the ring is shorter).
func (r *series) sumLast(n int) float64 {
	if n > r.count {
		n = r.count
	}
	total := 0.0
	for i := r.count - n; i < r.count; i++ {
		total += r.vals[(r.head+i)%len(r.vals)]
	}
	return total
}

func (r *series) meanLast(n int) float64 {
	if n > r.count {
		n = r.count
	}
	if n == 0 {
		return 0
	}
	return r.sumLast(n) / float64(n)
}

// secondAccum gathers everything that happened since the last metrics flush.
type secondAccum struct {
	created   int
	completed int
	canceled  int
	gmv       float64
	platform  float64
	driver    float64

	busySeconds  float64
	fleetSeconds float64
}

func (a *secondAccum) reset() {
	*a = secondAccum{}
}

// aggregator owns the rolling series and the realized pickup-wait reservoir.
type aggregator struct {
	created      *series
	completed    *series
	canceled     *series
	gmv          *series
	platform     *series
	driver       *series
	avgSurge     *series
	utilization  *series
	avgPickupEta *series
	activeOrders *series

	// realized waits from actual pickups, not the ETA cache
	pickupWaits []float64
}

func newAggregator() *aggregator {
	return &aggregator{
		created:      newSeries(seriesCap),
		completed:    newSeries(seriesCap),
		canceled:     newSeries(seriesCap),
		gmv:          newSeries(seriesCap),
		platform:     newSeries(seriesCap),
		driver:       newSeries(seriesCap),
		avgSurge:     newSeries(seriesCap),
		utilization:  newSeries(seriesCap),
		avgPickupEta: newSeries(seriesCap),
		activeOrders: newSeries(seriesCap),
	}
}

func (m *aggregator) recordPickupWait(w float64) {
	if len(m.pickupWaits) >= waitReservoirCap {
		copy(m.pickupWaits, m.pickupWaits[1:])
		m.pickupWaits = m.pickupWaits[:waitReservoirCap-1]
	}
	m.pickupWaits = append(m.pickupWaits, w)
}

func (m *aggregator) waitStats() (mean, p90 float64) {
	n := len(m.pickupWaits)
	if n == 0 {
		return 0, 0
	}
	total := 0.0
	sorted := make([]float64, n)
	copy(sorted, m.pickupWaits)
	sort.Float64s(sorted)
	for _, v := range sorted {
		total += v
	}
	idx := int(float64(n) * 0.9)
	if idx >= n {
		idx = n - 1
	}
	return total / float64(n), sorted[idx]
}

// flushMetrics pushes one sample per series and republishes the derived
// one-minute KPIs. Runs once per metrics interval (one simulated second by
// default).
func (s *Simulator) flushMetrics() {
	m := s.metrics
	util := safeDiv(s.acc.busySeconds, s.acc.fleetSeconds)

	mean, p90 := m.waitStats()
	m.created.push(float64(s.acc.created))
	m.completed.push(float64(s.acc.completed))
	m.canceled.push(float64(s.acc.canceled))
	m.gmv.push(s.acc.gmv)
	m.platform.push(s.acc.platform)
	m.driver.push(s.acc.driver)
	m.avgSurge.push(s.meanSurge())
	m.utilization.push(util)
	m.avgPickupEta.push(mean)
	m.activeOrders.push(float64(s.activeCount))

	s.second++
	s.acc.reset()

	// one-minute rollups from the rolling window
	window := int(60.0 / s.cfg.MetricsInterval)
	if window < 1 {
		window = 1
	}
	span := float64(window) * s.cfg.MetricsInterval // seconds actually covered
	perMin := func(sum float64) float64 { return safeDiv(sum*60, span) }

	completed60 := m.completed.sumLast(window)
	canceled60 := m.canceled.sumLast(window)

	idle := 0
	for i := range s.agents {
		if s.agents[i].State == models.AgentIdle {
			idle++
		}
	}

	derived := models.Derived{
		Second:          s.second,
		TripsPerMin:     perMin(completed60),
		OrdersPerMin:    perMin(m.created.sumLast(window)),
		CancelRate:      safeDiv(canceled60, completed60+canceled60),
		GMVPerMin:       perMin(m.gmv.sumLast(window)),
		PlatformPerMin:  perMin(m.platform.sumLast(window)),
		DriverPerMin:    perMin(m.driver.sumLast(window)),
		AvgPickupEta:    mean,
		P90PickupEta:    p90,
		Utilization:     m.utilization.meanLast(window),
		AvgSurge:        s.meanSurge(),
		ActiveOrders:    s.activeCount,
		IdleDrivers:     idle,
		TripsTotal:      s.completedTotal,
		OrdersTotal:     s.createdTotal,
		CancelsTotal:    s.canceledTotal,
		CapacityWarning: s.capacityWarning,
	}

	snap := models.Snapshot{
		SimTime: s.now,
		Derived: derived,
		Series: models.Timeseries{
			Created:      m.created.values(),
			Completed:    m.completed.values(),
			Canceled:     m.canceled.values(),
			GMV:          m.gmv.values(),
			AvgSurge:     m.avgSurge.values(),
			Utilization:  m.utilization.values(),
			AvgPickupEta: m.avgPickupEta.values(),
			ActiveOrders: m.activeOrders.values(),
		},
	}

	s.latest = snap
	s.hasLatest = true
	for _, fn := range s.subscribers {
		fn(snap)
	}
}
