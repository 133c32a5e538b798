package models

// Derived is the KPI object recomputed on each metrics flush from the
// rolling one-minute window.
type Derived struct {
	Second          int     `json:"second"`
	TripsPerMin     float64 `json:"trips_per_min"`
	OrdersPerMin    float64 `json:"orders_per_min"`
	CancelRate      float64 `json:"cancel_rate"`
	GMVPerMin       float64 `json:"gmv_per_min"`
	PlatformPerMin  float64 `json:"platform_per_min"`
	DriverPerMin    float64 `json:"driver_per_min"`
	AvgPickupEta    float64 `json:"avg_pickup_eta_s"`
	P90PickupEta    float64 `json:"p90_pickup_eta_s"`
	Utilization     float64 `json:"utilization"`
	AvgSurge        float64 `json:"avg_surge"`
	ActiveOrders    int     `json:"active_orders"`
	IdleDrivers     int     `json:"idle_drivers"`
	TripsTotal      int64   `json:"trips_total"`
	OrdersTotal     int64   `json:"orders_total"`
	CancelsTotal    int64   `json:"cancels_total"`
	CapacityWarning bool    `json:"capacity_warning"`
}

// Timeseries carries copies of the fixed-capacity rolling series, oldest
// sample first. Consumers may hold onto these; the engine never mutates a
// published snapshot.
type Timeseries struct {
	Created      []float64 `json:"created"`
	Completed    []float64 `json:"completed"`
	Canceled     []float64 `json:"canceled"`
	GMV          []float64 `json:"gmv"`
	AvgSurge     []float64 `json:"avg_surge"`
	Utilization  []float64 `json:"utilization"`
	AvgPickupEta []float64 `json:"avg_pickup_eta"`
	ActiveOrders []float64 `json:"active_orders"`
}

// Snapshot is what the per-second subscriber receives.
type Snapshot struct {
	SimTime float64    `json:"sim_time"`
	Derived Derived    `json:"derived"`
	Series  Timeseries `json:"timeseries"`
}
