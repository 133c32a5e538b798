package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/chrisdamba/ridehailsim/internal/cloudwriter"
	"github.com/chrisdamba/ridehailsim/internal/models"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"
)

// snapshotRow is the flattened derived-KPI record archived per second.
type snapshotRow struct {
	Second         int32   `parquet:"name=second,type=INT32"`
	SimTime        float64 `parquet:"name=sim_time,type=DOUBLE"`
	TripsPerMin    float64 `parquet:"name=trips_per_min,type=DOUBLE"`
	OrdersPerMin   float64 `parquet:"name=orders_per_min,type=DOUBLE"`
	CancelRate     float64 `parquet:"name=cancel_rate,type=DOUBLE"`
	GMVPerMin      float64 `parquet:"name=gmv_per_min,type=DOUBLE"`
	PlatformPerMin float64 `parquet:"name=platform_per_min,type=DOUBLE"`
	DriverPerMin   float64 `parquet:"name=driver_per_min,type=DOUBLE"`
	AvgPickupEta   float64 `parquet:"name=avg_pickup_eta_s,type=DOUBLE"`
	P90PickupEta   float64 `parquet:"name=p90_pickup_eta_s,type=DOUBLE"`
	Utilization    float64 `parquet:"name=utilization,type=DOUBLE"`
	AvgSurge       float64 `parquet:"name=avg_surge,type=DOUBLE"`
	ActiveOrders   int32   `parquet:"name=active_orders,type=INT32"`
	IdleDrivers    int32   `parquet:"name=idle_drivers,type=INT32"`
}

// ParquetSink archives the per-second KPI stream as a columnar file and, if
// a cloud factory is configured, uploads it on Close.
type ParquetSink struct {
	path    string
	file    source.ParquetFile
	writer  *writer.ParquetWriter
	factory cloudwriter.CloudWriterFactory
	bucket  string
	object  string
}

func NewParquetSink(basePath, runID string, cloud models.CloudStorageConfig) (*ParquetSink, error) {
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		return nil, err
	}
	path := filepath.Join(basePath, fmt.Sprintf("metrics_%s.parquet", runID))
	f, err := local.NewLocalFileWriter(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet file: %w", err)
	}
	w, err := writer.NewParquetWriter(f, new(snapshotRow), 1)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}

	sink := &ParquetSink{path: path, file: f, writer: w}
	if cloud.Provider == "s3" && cloud.BucketName != "" {
		factory, err := cloudwriter.NewS3WriterFactory(cloud.Region)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create cloud writer factory: %w", err)
		}
		sink.factory = factory
		sink.bucket = cloud.BucketName
		sink.object = fmt.Sprintf("ridehailsim/metrics_%s.parquet", runID)
	}
	return sink, nil
}

func (p *ParquetSink) WriteSnapshot(snap models.Snapshot) error {
	d := snap.Derived
	return p.writer.Write(snapshotRow{
		Second:         int32(d.Second),
		SimTime:        snap.SimTime,
		TripsPerMin:    d.TripsPerMin,
		OrdersPerMin:   d.OrdersPerMin,
		CancelRate:     d.CancelRate,
		GMVPerMin:      d.GMVPerMin,
		PlatformPerMin: d.PlatformPerMin,
		DriverPerMin:   d.DriverPerMin,
		AvgPickupEta:   d.AvgPickupEta,
		P90PickupEta:   d.P90PickupEta,
		Utilization:    d.Utilization,
		AvgSurge:       d.AvgSurge,
		ActiveOrders:   int32(d.ActiveOrders),
		IdleDrivers:    int32(d.IdleDrivers),
	})
}

func (p *ParquetSink) Close() error {
	if err := p.writer.WriteStop(); err != nil {
		p.file.Close()
		return fmt.Errorf("failed to finalise parquet file: %w", err)
	}
	if err := p.file.Close(); err != nil {
		return err
	}
	if p.factory == nil {
		return nil
	}
	return p.upload()
}

func (p *ParquetSink) upload() error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return err
	}
	w, err := p.factory.NewWriter(p.bucket, p.object)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	return w.Close()
}
