package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/chrisdamba/ridehailsim/internal/factories"
	"github.com/chrisdamba/ridehailsim/internal/models"
	"github.com/chrisdamba/ridehailsim/internal/output"
	"github.com/chrisdamba/ridehailsim/internal/simulator"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ridehailsim",
	Short: "Simulates a ride-hailing dispatch market",
	Long: `ridehailsim runs a deterministic, tick-driven simulation of a dispatch
market: drivers roam a city grid, orders arrive with spatially-weighted
demand, a batch matcher pairs them under surge pricing, and per-second KPI
snapshots are streamed to the configured outputs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := models.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		return run(cfg)
	},
}

func run(cfg *models.Config) error {
	sim, err := simulator.New(*cfg)
	if err != nil {
		return err
	}

	roster := (&factories.RosterFactory{}).CreateRoster(cfg.DriversCount)
	log.Printf("run %s: %d drivers, %.0f orders/min, policy=%s, pattern=%s",
		roster.RunID, cfg.DriversCount, cfg.DemandRatePerMin, cfg.MatchingPolicy, cfg.DemandPattern)

	sinks, err := determineSinks(cfg, roster.RunID)
	if err != nil {
		return err
	}
	defer func() {
		if err := sinks.Close(); err != nil {
			log.Printf("error closing outputs: %v", err)
		}
	}()

	sim.Subscribe(func(snap models.Snapshot) {
		if err := sinks.WriteSnapshot(snap); err != nil {
			log.Printf("failed to write snapshot: %v", err)
		}
	})

	dt := cfg.TickSeconds
	if dt <= 0 {
		dt = 0.2
	}
	ticks := int(cfg.RunSeconds / dt)
	bar := progressbar.Default(int64(ticks), "simulating")
	for i := 0; i < ticks; i++ {
		sim.Tick(dt)
		_ = bar.Add(1)
	}

	if snap, ok := sim.Latest(); ok {
		d := snap.Derived
		log.Printf("finished at t=%.0fs: %d trips, %d orders, %d cancels, utilization %.0f%%",
			snap.SimTime, d.TripsTotal, d.OrdersTotal, d.CancelsTotal, d.Utilization*100)
	}
	return nil
}

func determineSinks(cfg *models.Config, runID string) (output.SnapshotSink, error) {
	names := cfg.Output.Sinks
	if len(names) == 0 {
		names = []string{"console"}
	}
	var sinks []output.SnapshotSink
	for _, name := range names {
		switch name {
		case "console":
			sinks = append(sinks, &output.ConsoleSink{})
		case "jsonl":
			sink, err := output.NewJSONLSink(cfg.Output.Path, runID)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, sink)
		case "csv":
			sink, err := output.NewCSVSink(cfg.Output.Path, runID)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, sink)
		case "kafka":
			sink, err := output.NewKafkaSink(cfg.Output.KafkaBrokerList, cfg.Output.KafkaTopic, runID)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, sink)
		case "parquet":
			sink, err := output.NewParquetSink(cfg.Output.Path, runID, cfg.Output.CloudStorage)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, sink)
		case "postgres":
			sink, err := output.NewPostgresSink(context.Background(), cfg.Output.Database, runID)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, sink)
		default:
			return nil, fmt.Errorf("unknown output sink: %s", name)
		}
	}
	return output.NewMultiSink(sinks...), nil
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is examples/config.json)")

	rootCmd.Flags().Int64("seed", 42, "Random seed for simulation")
	rootCmd.Flags().Float64("demand_rate_per_min", 90, "Order arrivals per minute")
	rootCmd.Flags().Int("drivers_count", 250, "Fleet size")
	rootCmd.Flags().Float64("driver_speed", 90, "Driver speed in px/sec")
	rootCmd.Flags().String("matching_policy", "eta", "Matching policy (eta|score)")
	rootCmd.Flags().String("demand_pattern", "uniform", "Demand pattern (uniform|center|hotspots)")
	rootCmd.Flags().String("zones_preset", "4x4", "Zone grid preset (RxC)")
	rootCmd.Flags().Float64("surge_strength", 0.8, "Surge reactivity")
	rootCmd.Flags().Float64("surge_cap", 1.5, "Surge ceiling")
	rootCmd.Flags().Float64("run_seconds", 120, "Simulated seconds to run")
	rootCmd.Flags().Float64("tick_seconds", 0.2, "Simulated seconds per tick")

	viper.BindPFlags(rootCmd.Flags())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
