package models

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config carries every knob the engine recognises. Out-of-range numeric
// values are clamped at the boundary rather than rejected; only structurally
// invalid configs (non-positive world, unparseable zone grid) fail Validate.
type Config struct {
	Seed int64 `mapstructure:"seed"`

	WorldWidth  float64 `mapstructure:"world_width"`
	WorldHeight float64 `mapstructure:"world_height"`

	DemandRatePerMin float64 `mapstructure:"demand_rate_per_min"`
	DriversCount     int     `mapstructure:"drivers_count"`
	DriverSpeed      float64 `mapstructure:"driver_speed"` // px/sec

	MatchInterval       float64 `mapstructure:"match_interval"`
	SurgeUpdateInterval float64 `mapstructure:"surge_update_interval"`
	EtaCacheInterval    float64 `mapstructure:"eta_cache_interval"`
	MetricsInterval     float64 `mapstructure:"metrics_interval"`
	GCInterval          float64 `mapstructure:"gc_interval"`

	SurgeStrength float64 `mapstructure:"surge_strength"`
	SurgeCap      float64 `mapstructure:"surge_cap"`

	CancelSensitivity float64 `mapstructure:"cancel_sensitivity"`
	Eta0              float64 `mapstructure:"eta0"` // seconds

	TakeRate float64 `mapstructure:"take_rate"`

	ZonesPreset    string `mapstructure:"zones_preset"`   // "RxC", e.g. "4x4"
	DemandPattern  string `mapstructure:"demand_pattern"` // uniform|center|hotspots
	MatchingPolicy string `mapstructure:"matching_policy"`
	KCandidates    int    `mapstructure:"k_candidates"`
	PriceWeight    float64 `mapstructure:"price_weight"`

	BaseFare float64 `mapstructure:"base_fare"`
	PerKm    float64 `mapstructure:"per_km"`
	PxPerKm  float64 `mapstructure:"px_per_km"`

	OrderCap           int `mapstructure:"order_cap"`
	MaxEtaEstPerSecond int `mapstructure:"max_eta_est_per_second"`

	// CLI run-loop settings, ignored by the engine itself
	RunSeconds  float64      `mapstructure:"run_seconds"`
	TickSeconds float64      `mapstructure:"tick_seconds"`
	Output      OutputConfig `mapstructure:"output"`
}

// OutputConfig selects where per-second snapshots are streamed.
type OutputConfig struct {
	Sinks           []string           `mapstructure:"sinks"` // console, jsonl, csv, kafka, parquet, postgres
	Path            string             `mapstructure:"path"`
	Folder          string             `mapstructure:"folder"`
	KafkaBrokerList string             `mapstructure:"kafka_broker_list"`
	KafkaTopic      string             `mapstructure:"kafka_topic"`
	Database        DatabaseConfig     `mapstructure:"database"`
	CloudStorage    CloudStorageConfig `mapstructure:"cloud_storage"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type CloudStorageConfig struct {
	Provider   string `mapstructure:"provider"`
	BucketName string `mapstructure:"bucket_name"`
	Region     string `mapstructure:"region"`
}

// DefaultConfig returns the tuning defaults for a mid-sized city run.
func DefaultConfig() Config {
	return Config{
		Seed:                42,
		WorldWidth:          1200,
		WorldHeight:         800,
		DemandRatePerMin:    90,
		DriversCount:        250,
		DriverSpeed:         90,
		MatchInterval:       0.5,
		SurgeUpdateInterval: 1.0,
		EtaCacheInterval:    0.5,
		MetricsInterval:     1.0,
		GCInterval:          2.0,
		SurgeStrength:       0.8,
		SurgeCap:            1.5,
		CancelSensitivity:   0.15,
		Eta0:                120,
		TakeRate:            0.25,
		ZonesPreset:         "4x4",
		DemandPattern:       "uniform",
		MatchingPolicy:      "eta",
		KCandidates:         8,
		PriceWeight:         0.02,
		BaseFare:            2.5,
		PerKm:               1.2,
		PxPerKm:             50,
		OrderCap:            2000,
		MaxEtaEstPerSecond:  200,
		RunSeconds:          120,
		TickSeconds:         0.2,
	}
}

// LoadConfig initialises and reads the configuration using Viper, layering
// an optional config file over DefaultConfig. Flags bound by the caller win.
func LoadConfig(cfgFile string) (*Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("examples")
		viper.SetConfigName("config")
		viper.SetConfigType("json")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := DefaultConfig()
	decoderConfigOption := viper.DecoderConfigOption(func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			dc.DecodeHook,
			mapstructure.StringToSliceHookFunc(","),
		)
	})
	if err := viper.Unmarshal(&config, decoderConfigOption); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}

	config.Clamp()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampI(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp forces every numeric tunable into its documented range. This is a
// sandbox, so bad values are corrected, not rejected.
func (cfg *Config) Clamp() {
	cfg.DemandRatePerMin = clampF(cfg.DemandRatePerMin, 10, 240)
	cfg.DriversCount = clampI(cfg.DriversCount, 50, 800)
	cfg.DriverSpeed = clampF(cfg.DriverSpeed, 20, 300)
	cfg.MatchInterval = clampF(cfg.MatchInterval, 0.1, 10)
	cfg.SurgeUpdateInterval = clampF(cfg.SurgeUpdateInterval, 0.1, 10)
	cfg.EtaCacheInterval = clampF(cfg.EtaCacheInterval, 0.1, 10)
	cfg.MetricsInterval = clampF(cfg.MetricsInterval, 0.25, 5)
	cfg.GCInterval = clampF(cfg.GCInterval, 0.5, 30)
	cfg.SurgeStrength = clampF(cfg.SurgeStrength, 0, 5)
	cfg.SurgeCap = clampF(cfg.SurgeCap, 0, 3)
	cfg.CancelSensitivity = clampF(cfg.CancelSensitivity, 0, 2)
	cfg.Eta0 = clampF(cfg.Eta0, 10, 600)
	cfg.TakeRate = clampF(cfg.TakeRate, 0, 0.5)
	cfg.KCandidates = clampI(cfg.KCandidates, 1, 32)
	cfg.PriceWeight = clampF(cfg.PriceWeight, 0, 1)
	cfg.BaseFare = clampF(cfg.BaseFare, 0, 20)
	cfg.PerKm = clampF(cfg.PerKm, 0, 10)
	cfg.PxPerKm = clampF(cfg.PxPerKm, 1, 1000)
	cfg.OrderCap = clampI(cfg.OrderCap, 100, 10000)
	cfg.MaxEtaEstPerSecond = clampI(cfg.MaxEtaEstPerSecond, 10, 5000)
}

// Validate catches the structural errors that must fail fast instead of
// silently corrupting a run.
func (cfg *Config) Validate() error {
	if cfg.WorldWidth <= 0 || cfg.WorldHeight <= 0 {
		return fmt.Errorf("invalid world size %gx%g", cfg.WorldWidth, cfg.WorldHeight)
	}
	if rows, cols := cfg.ZoneGrid(); rows <= 0 || cols <= 0 {
		return fmt.Errorf("invalid zones preset %q", cfg.ZonesPreset)
	}
	if cfg.TickSeconds < 0 || cfg.RunSeconds < 0 {
		return fmt.Errorf("negative run duration")
	}
	return nil
}

// ZoneGrid parses the zones preset into rows x cols. Unknown presets fall
// back to 4x4 rather than failing; a plainly malformed value yields zeros so
// Validate can reject it.
func (cfg *Config) ZoneGrid() (rows, cols int) {
	preset := strings.TrimSpace(strings.ToLower(cfg.ZonesPreset))
	if preset == "" {
		return 4, 4
	}
	var r, c int
	if n, err := fmt.Sscanf(preset, "%dx%d", &r, &c); n == 2 && err == nil {
		if r < 1 || c < 1 || r > 32 || c > 32 {
			return 0, 0
		}
		return r, c
	}
	return 0, 0
}

// Pattern resolves the configured demand pattern once, for the hot path.
func (cfg *Config) Pattern() DemandPattern {
	return ParseDemandPattern(cfg.DemandPattern)
}

// Policy resolves the configured matching policy once, for the hot path.
func (cfg *Config) Policy() MatchingPolicy {
	return ParseMatchingPolicy(cfg.MatchingPolicy)
}
