package models

// AgentState is the drive cycle of a single driver.
type AgentState uint8

const (
	AgentIdle AgentState = iota
	AgentToPickup
	AgentToDropoff
)

func (s AgentState) String() string {
	switch s {
	case AgentIdle:
		return "idle"
	case AgentToPickup:
		return "to_pickup"
	case AgentToDropoff:
		return "to_dropoff"
	default:
		return "unknown"
	}
}

// OrderState is the lifecycle of an order from creation to a terminal state.
type OrderState uint8

const (
	OrderWaiting OrderState = iota
	OrderAssigned
	OrderPicked
	OrderDone
	OrderCanceled
)

// Terminal reports whether the order has left the market.
func (s OrderState) Terminal() bool {
	return s == OrderDone || s == OrderCanceled
}

func (s OrderState) String() string {
	switch s {
	case OrderWaiting:
		return "waiting"
	case OrderAssigned:
		return "assigned"
	case OrderPicked:
		return "picked"
	case OrderDone:
		return "done"
	case OrderCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// DemandPattern selects how new orders are distributed over zones.
type DemandPattern uint8

const (
	PatternUniform DemandPattern = iota
	PatternCenter
	PatternHotspots
)

// ParseDemandPattern falls back to uniform for unrecognised values.
func ParseDemandPattern(s string) DemandPattern {
	switch s {
	case "center":
		return PatternCenter
	case "hotspots":
		return PatternHotspots
	default:
		return PatternUniform
	}
}

func (p DemandPattern) String() string {
	switch p {
	case PatternCenter:
		return "center"
	case PatternHotspots:
		return "hotspots"
	default:
		return "uniform"
	}
}

// MatchingPolicy selects how the matcher scores candidate drivers.
// Resolved once per batch so the hot loop never compares strings.
type MatchingPolicy uint8

const (
	PolicyETA MatchingPolicy = iota
	PolicyScore
)

// ParseMatchingPolicy falls back to the nearest-driver policy.
func ParseMatchingPolicy(s string) MatchingPolicy {
	if s == "score" {
		return PolicyScore
	}
	return PolicyETA
}

func (p MatchingPolicy) String() string {
	if p == PolicyScore {
		return "score"
	}
	return "eta"
}
