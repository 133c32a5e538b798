package models

// Agent is one driver. Agents live in an index-addressed table owned by the
// simulator; the slice index is the agent id, and other records refer to
// agents by that integer rather than by pointer.
type Agent struct {
	ID         int
	Pos        Point
	Speed      float64 // px per simulated second
	State      AgentState
	Target     Point
	OrderID    int64 // -1 when not serving
	StateSince float64
	Earnings   float64

	// idle-wander state
	Heading      float64
	HeadingTimer float64
}

// Serving reports whether the agent is bound to an order.
func (a *Agent) Serving() bool {
	return a.OrderID >= 0 && a.State != AgentIdle
}

// AgentView is the bounded read model handed to external renderers.
type AgentView struct {
	ID      int     `json:"id"`
	Pos     Point   `json:"pos"`
	State   string  `json:"state"`
	OrderID int64   `json:"order_id"`
	Speed   float64 `json:"speed"`
}
