package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/chrisdamba/ridehailsim/internal/models"
)

// SnapshotSink receives every per-second metrics snapshot of a run.
type SnapshotSink interface {
	WriteSnapshot(snap models.Snapshot) error
	Close() error
}

// MultiSink fans one snapshot out to several sinks; the first error wins but
// every sink still gets the write.
type MultiSink struct {
	sinks []SnapshotSink
}

func NewMultiSink(sinks ...SnapshotSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) WriteSnapshot(snap models.Snapshot) error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.WriteSnapshot(snap); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *MultiSink) Close() error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ConsoleSink prints a compact one-line KPI digest per simulated second.
type ConsoleSink struct{}

func (c *ConsoleSink) WriteSnapshot(snap models.Snapshot) error {
	d := snap.Derived
	_, err := fmt.Fprintf(os.Stdout,
		"[%4ds] trips/min=%.1f cancel=%.1f%% gmv/min=%.2f util=%.0f%% surge=%.2f active=%d\n",
		d.Second, d.TripsPerMin, d.CancelRate*100, d.GMVPerMin, d.Utilization*100, d.AvgSurge, d.ActiveOrders)
	return err
}

func (c *ConsoleSink) Close() error { return nil }

// JSONLSink appends one JSON document per snapshot to a single file.
type JSONLSink struct {
	file *os.File
	enc  *json.Encoder
}

func NewJSONLSink(basePath, runID string) (*JSONLSink, error) {
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		return nil, err
	}
	f, err := os.Create(filepath.Join(basePath, fmt.Sprintf("metrics_%s.jsonl", runID)))
	if err != nil {
		return nil, fmt.Errorf("failed to create jsonl output: %w", err)
	}
	return &JSONLSink{file: f, enc: json.NewEncoder(f)}, nil
}

func (j *JSONLSink) WriteSnapshot(snap models.Snapshot) error {
	return j.enc.Encode(snap)
}

func (j *JSONLSink) Close() error { return j.file.Close() }

// CSVSink writes the derived KPIs as one row per second.
type CSVSink struct {
	file   *os.File
	writer *csv.Writer
}

var csvHeader = []string{
	"second", "sim_time", "trips_per_min", "orders_per_min", "cancel_rate",
	"gmv_per_min", "platform_per_min", "driver_per_min", "avg_pickup_eta_s",
	"p90_pickup_eta_s", "utilization", "avg_surge", "active_orders", "idle_drivers",
}

func NewCSVSink(basePath, runID string) (*CSVSink, error) {
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		return nil, err
	}
	f, err := os.Create(filepath.Join(basePath, fmt.Sprintf("metrics_%s.csv", runID)))
	if err != nil {
		return nil, fmt.Errorf("failed to create csv output: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return nil, err
	}
	return &CSVSink{file: f, writer: w}, nil
}

func (c *CSVSink) WriteSnapshot(snap models.Snapshot) error {
	d := snap.Derived
	ff := func(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }
	return c.writer.Write([]string{
		strconv.Itoa(d.Second),
		ff(snap.SimTime),
		ff(d.TripsPerMin),
		ff(d.OrdersPerMin),
		ff(d.CancelRate),
		ff(d.GMVPerMin),
		ff(d.PlatformPerMin),
		ff(d.DriverPerMin),
		ff(d.AvgPickupEta),
		ff(d.P90PickupEta),
		ff(d.Utilization),
		ff(d.AvgSurge),
		strconv.Itoa(d.ActiveOrders),
		strconv.Itoa(d.IdleDrivers),
	})
}

func (c *CSVSink) Close() error {
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		c.file.Close()
		return err
	}
	return c.file.Close()
}
