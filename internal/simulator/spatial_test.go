package simulator

import (
	"testing"

	"github.com/chrisdamba/ridehailsim/internal/models"
)

func idleAgentAt(id int, x, y float64) models.Agent {
	return models.Agent{ID: id, Pos: models.Point{X: x, Y: y}, Speed: 90, State: models.AgentIdle, OrderID: -1}
}

func TestSpatialIndexOnlyIndexesIdle(t *testing.T) {
	agents := []models.Agent{
		idleAgentAt(0, 10, 10),
		{ID: 1, Pos: models.Point{X: 12, Y: 12}, State: models.AgentToPickup, OrderID: 7},
	}
	ix := newSpatialIndex(640, 640)
	ix.rebuild(agents)

	got := ix.collect(models.Point{X: 11, Y: 11}, 5, maxRingRadius, agents, nil)
	if len(got) != 1 || got[0] != 0 {
		t.Fatalf("expected only the idle agent, got %v", got)
	}
}

func TestSpatialIndexRingExpansion(t *testing.T) {
	// one driver in the query cell, one a few cells away
	agents := []models.Agent{
		idleAgentAt(0, 30, 30),
		idleAgentAt(1, 30+3*spatialCellPx, 30),
	}
	ix := newSpatialIndex(1200, 800)
	ix.rebuild(agents)

	// k=1 stops in the first ring that satisfies it
	got := ix.collect(models.Point{X: 32, Y: 32}, 1, maxRingRadius, agents, nil)
	if len(got) != 1 || got[0] != 0 {
		t.Fatalf("expected nearest-cell agent only, got %v", got)
	}

	// k=2 keeps expanding until the far agent is reached
	got = ix.collect(models.Point{X: 32, Y: 32}, 2, maxRingRadius, agents, nil)
	if len(got) != 2 {
		t.Fatalf("expected both agents, got %v", got)
	}
}

func TestSpatialIndexRadiusCap(t *testing.T) {
	agents := []models.Agent{
		idleAgentAt(0, 30, 30),
		idleAgentAt(1, 30+float64(maxRingRadius+2)*spatialCellPx, 30),
	}
	ix := newSpatialIndex(2000, 800)
	ix.rebuild(agents)

	got := ix.collect(models.Point{X: 32, Y: 32}, 5, 1, agents, nil)
	if len(got) != 1 {
		t.Fatalf("agent beyond the ring cap should not be returned, got %v", got)
	}
}

func TestSpatialIndexEmptyResult(t *testing.T) {
	ix := newSpatialIndex(640, 640)
	ix.rebuild(nil)
	got := ix.collect(models.Point{X: 100, Y: 100}, 4, maxRingRadius, nil, nil)
	if len(got) != 0 {
		t.Fatalf("expected empty candidate set, got %v", got)
	}
}

func TestSpatialIndexResize(t *testing.T) {
	ix := newSpatialIndex(640, 640)
	before := len(ix.buckets)
	ix.resize(1280, 1280)
	if len(ix.buckets) <= before {
		t.Fatalf("expected more buckets after growing the world")
	}

	agents := []models.Agent{idleAgentAt(0, 1200, 1200)}
	ix.rebuild(agents)
	got := ix.collect(models.Point{X: 1190, Y: 1190}, 1, maxRingRadius, agents, nil)
	if len(got) != 1 {
		t.Fatalf("expected to find agent after resize, got %v", got)
	}
}
