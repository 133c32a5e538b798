package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampForcesDocumentedRanges(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DemandRatePerMin = 100000
	cfg.DriversCount = 3
	cfg.DriverSpeed = -10
	cfg.SurgeCap = 99
	cfg.TakeRate = 0.9
	cfg.CancelSensitivity = -1
	cfg.KCandidates = 500
	cfg.OrderCap = 1
	cfg.MaxEtaEstPerSecond = 0
	cfg.Clamp()

	assert.Equal(t, 240.0, cfg.DemandRatePerMin)
	assert.Equal(t, 50, cfg.DriversCount)
	assert.Equal(t, 20.0, cfg.DriverSpeed)
	assert.Equal(t, 3.0, cfg.SurgeCap)
	assert.Equal(t, 0.5, cfg.TakeRate)
	assert.Equal(t, 0.0, cfg.CancelSensitivity)
	assert.Equal(t, 32, cfg.KCandidates)
	assert.Equal(t, 100, cfg.OrderCap)
	assert.Equal(t, 10, cfg.MaxEtaEstPerSecond)
}

func TestClampLeavesInRangeValuesAlone(t *testing.T) {
	cfg := DefaultConfig()
	before := cfg
	cfg.Clamp()
	assert.Equal(t, before, cfg)
}

func TestZoneGridParsing(t *testing.T) {
	cases := []struct {
		preset string
		rows   int
		cols   int
	}{
		{"4x4", 4, 4},
		{"2x8", 2, 8},
		{" 6X3 ", 6, 3},
		{"", 4, 4},
		{"0x4", 0, 0},
		{"40x4", 0, 0},
		{"hex", 0, 0},
		{"4x", 0, 0},
	}
	for _, tc := range cases {
		cfg := Config{ZonesPreset: tc.preset}
		rows, cols := cfg.ZoneGrid()
		assert.Equalf(t, tc.rows, rows, "preset %q rows", tc.preset)
		assert.Equalf(t, tc.cols, cols, "preset %q cols", tc.preset)
	}
}

func TestValidateRejectsStructuralErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WorldWidth = 0
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.ZonesPreset = "bogus"
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.RunSeconds = -1
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestParseDemandPatternFallsBackToUniform(t *testing.T) {
	assert.Equal(t, PatternUniform, ParseDemandPattern("uniform"))
	assert.Equal(t, PatternCenter, ParseDemandPattern("center"))
	assert.Equal(t, PatternHotspots, ParseDemandPattern("hotspots"))
	assert.Equal(t, PatternUniform, ParseDemandPattern("mystery"))
	assert.Equal(t, PatternUniform, ParseDemandPattern(""))
}

func TestParseMatchingPolicyFallsBackToEta(t *testing.T) {
	assert.Equal(t, PolicyETA, ParseMatchingPolicy("eta"))
	assert.Equal(t, PolicyScore, ParseMatchingPolicy("score"))
	assert.Equal(t, PolicyETA, ParseMatchingPolicy("random"))
}

func TestOrderTerminalAt(t *testing.T) {
	o := Order{State: OrderWaiting, DoneAt: -1, CanceledAt: -1}
	assert.Equal(t, -1.0, o.TerminalAt())
	o.State = OrderDone
	o.DoneAt = 12.5
	assert.Equal(t, 12.5, o.TerminalAt())
	o = Order{State: OrderCanceled, DoneAt: -1, CanceledAt: 8.0}
	assert.Equal(t, 8.0, o.TerminalAt())
}
