package output

import (
	"context"
	"fmt"

	"github.com/chrisdamba/ridehailsim/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createMetricsTable = `
CREATE TABLE IF NOT EXISTS sim_metrics (
	run_id           TEXT NOT NULL,
	second           INT NOT NULL,
	sim_time         DOUBLE PRECISION NOT NULL,
	trips_per_min    DOUBLE PRECISION,
	orders_per_min   DOUBLE PRECISION,
	cancel_rate      DOUBLE PRECISION,
	gmv_per_min      DOUBLE PRECISION,
	platform_per_min DOUBLE PRECISION,
	driver_per_min   DOUBLE PRECISION,
	avg_pickup_eta_s DOUBLE PRECISION,
	p90_pickup_eta_s DOUBLE PRECISION,
	utilization      DOUBLE PRECISION,
	avg_surge        DOUBLE PRECISION,
	active_orders    INT,
	idle_drivers     INT,
	PRIMARY KEY (run_id, second)
)`

const insertMetricsRow = `
INSERT INTO sim_metrics (
	run_id, second, sim_time, trips_per_min, orders_per_min, cancel_rate,
	gmv_per_min, platform_per_min, driver_per_min, avg_pickup_eta_s,
	p90_pickup_eta_s, utilization, avg_surge, active_orders, idle_drivers
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT (run_id, second) DO NOTHING`

// PostgresSink lands one row per simulated second into sim_metrics.
type PostgresSink struct {
	pool  *pgxpool.Pool
	runID string
}

func NewPostgresSink(ctx context.Context, cfg models.DatabaseConfig, runID string) (*PostgresSink, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}
	if _, err := pool.Exec(ctx, createMetricsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error creating sim_metrics table: %w", err)
	}
	return &PostgresSink{pool: pool, runID: runID}, nil
}

func (p *PostgresSink) WriteSnapshot(snap models.Snapshot) error {
	d := snap.Derived
	_, err := p.pool.Exec(context.Background(), insertMetricsRow,
		p.runID, d.Second, snap.SimTime, d.TripsPerMin, d.OrdersPerMin,
		d.CancelRate, d.GMVPerMin, d.PlatformPerMin, d.DriverPerMin,
		d.AvgPickupEta, d.P90PickupEta, d.Utilization, d.AvgSurge,
		d.ActiveOrders, d.IdleDrivers,
	)
	if err != nil {
		return fmt.Errorf("failed to insert into sim_metrics: %w", err)
	}
	return nil
}

func (p *PostgresSink) Close() error {
	p.pool.Close()
	return nil
}
