package models

// Order is one work item. Orders live in an arena slice owned by the
// simulator and are addressed by their monotonically increasing id through a
// lookup map, never by pointer, so garbage collection can compact the arena.
// All timestamps are simulated seconds since reset; -1 means "not yet".
type Order struct {
	ID      int64
	Pickup  Point
	Dest    Point
	Zone    int
	State   OrderState
	AgentID int // -1 when unassigned

	CreatedAt  float64
	AssignedAt float64
	PickedAt   float64
	DoneAt     float64
	CanceledAt float64

	// Fare is locked in at assignment time and never changes after.
	Fare          float64
	SurgeAtAssign float64

	// cached pickup-ETA estimate, fed only to the cancellation hazard
	EtaEst   float64
	EtaEstAt float64
}

// TerminalAt returns when the order reached a terminal state, or -1.
func (o *Order) TerminalAt() float64 {
	switch o.State {
	case OrderDone:
		return o.DoneAt
	case OrderCanceled:
		return o.CanceledAt
	default:
		return -1
	}
}

// OrderView is the bounded read model handed to external renderers.
type OrderView struct {
	ID       int64   `json:"id"`
	State    string  `json:"state"`
	Pickup   Point   `json:"pickup"`
	Dest     Point   `json:"dest"`
	Zone     int     `json:"zone"`
	AgentID  int     `json:"agent_id"`
	Fare     float64 `json:"fare"`
	WaitedS  float64 `json:"waited_s"`
	EtaEstS  float64 `json:"eta_est_s"`
	SurgeMul float64 `json:"surge_mul"`
}

// Flash is a transient visual event emitted when an assignment happens.
// Purely for external consumers; dropping flashes never affects the run.
type Flash struct {
	At      Point
	Time    float64
	OrderID int64
	AgentID int
}
