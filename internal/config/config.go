package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the activity graph service
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Detection  DetectionConfig  `mapstructure:"detection"`
	Risk       RiskConfig       `mapstructure:"risk"`
	Similarity SimilarityConfig `mapstructure:"similarity"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Security   SecurityConfig   `mapstructure:"security"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxRequestSize  int64         `mapstructure:"max_request_size"`
}

// DatabaseConfig holds the optional PostgreSQL snapshot store configuration.
// The graph itself is volatile; when enabled, the store is replayed into the
// graph once at startup.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LoadTimeout     time.Duration `mapstructure:"load_timeout"`
}

// RedisConfig holds Redis configuration for the risk-report cache
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	RiskCacheTTL time.Duration `mapstructure:"risk_cache_ttl"`
}

// KafkaConfig holds Kafka configuration for alert and event publishing
type KafkaConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Brokers     []string `mapstructure:"brokers"`
	AlertsTopic string   `mapstructure:"alerts_topic"`
	EventsTopic string   `mapstructure:"events_topic"`

	// Patterns below this confidence are not worth an alert
	AlertConfidenceFloor float64 `mapstructure:"alert_confidence_floor"`
}

// DetectionConfig holds all pattern detection tunables. The heuristic
// constants are configuration, not literals, so deployments can retune them.
type DetectionConfig struct {
	Structuring StructuringConfig `mapstructure:"structuring"`
	Circular    CircularConfig    `mapstructure:"circular"`
	Rapid       RapidConfig       `mapstructure:"rapid"`
}

// StructuringConfig tunes sub-threshold transaction detection
type StructuringConfig struct {
	WindowDays         int     `mapstructure:"window_days"`
	ReportingThreshold float64 `mapstructure:"reporting_threshold"`
	LowFraction        float64 `mapstructure:"low_fraction"`
	MinOccurrences     int     `mapstructure:"min_occurrences"`
	HighRiskTotal      float64 `mapstructure:"high_risk_total"`
	ConfidenceBase     float64 `mapstructure:"confidence_base"`
	ConfidencePerTx    float64 `mapstructure:"confidence_per_tx"`
}

// CircularConfig tunes circular-flow detection. The hop limit, lookback
// window and cycle cap bound the cost of cycle enumeration and are always
// enforced.
type CircularConfig struct {
	LookbackDays          int     `mapstructure:"lookback_days"`
	MaxHops               int     `mapstructure:"max_hops"`
	MinCycleLength        int     `mapstructure:"min_cycle_length"`
	MaxCycles             int     `mapstructure:"max_cycles"`
	ConservationTolerance float64 `mapstructure:"conservation_tolerance"`
	ConservationBonus     float64 `mapstructure:"conservation_bonus"`
	ConfidenceBase        float64 `mapstructure:"confidence_base"`
	ConfidencePerHop      float64 `mapstructure:"confidence_per_hop"`
}

// RapidConfig tunes rapid fund movement detection
type RapidConfig struct {
	WindowHours     int     `mapstructure:"window_hours"`
	MinTransactions int     `mapstructure:"min_transactions"`
	VolumeFloor     float64 `mapstructure:"volume_floor"`
	ConfidenceBase  float64 `mapstructure:"confidence_base"`
	ConfidencePerTx float64 `mapstructure:"confidence_per_tx"`
}

// RiskConfig tunes the risk scorer. Each factor saturates at its constant so
// a single extreme factor cannot exceed its weighted contribution.
type RiskConfig struct {
	SARWeight          float64 `mapstructure:"sar_weight"`
	ConnectivityWeight float64 `mapstructure:"connectivity_weight"`
	VolumeWeight       float64 `mapstructure:"volume_weight"`
	PatternWeight      float64 `mapstructure:"pattern_weight"`

	SARSaturation      float64 `mapstructure:"sar_saturation"`
	NeighborSaturation float64 `mapstructure:"neighbor_saturation"`
	VolumeSaturation   float64 `mapstructure:"volume_saturation"`
	PatternSaturation  float64 `mapstructure:"pattern_saturation"`

	PropagationDepth int     `mapstructure:"propagation_depth"`
	PropagationDecay float64 `mapstructure:"propagation_decay"`

	RelatedSARDepth int `mapstructure:"related_sar_depth"`
}

// SimilarityConfig tunes narrative similarity queries
type SimilarityConfig struct {
	DefaultThreshold float64 `mapstructure:"default_threshold"`
	NarrativePreview int     `mapstructure:"narrative_preview"`
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	ServiceName   string  `mapstructure:"service_name"`
	Environment   string  `mapstructure:"environment"`
	OTLPEndpoint  string  `mapstructure:"otlp_endpoint"`
	SamplingRatio float64 `mapstructure:"sampling_ratio"`
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	AllowedOrigins     []string `mapstructure:"allowed_origins"`
	RateLimitPerMinute int      `mapstructure:"rate_limit_per_minute"`
}

// Load loads configuration from environment and config files
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("ACTIVITY_GRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/activity-graph-service")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Config file not found, use defaults + env
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// DefaultDetection returns the detection tunables with their defaults, for
// components constructed outside the viper path (tests, tools).
func DefaultDetection() DetectionConfig {
	return DetectionConfig{
		Structuring: StructuringConfig{
			WindowDays:         7,
			ReportingThreshold: 10000.0,
			LowFraction:        0.5,
			MinOccurrences:     3,
			HighRiskTotal:      25000.0,
			ConfidenceBase:     0.5,
			ConfidencePerTx:    0.05,
		},
		Circular: CircularConfig{
			LookbackDays:          30,
			MaxHops:               4,
			MinCycleLength:        3,
			MaxCycles:             10,
			ConservationTolerance: 0.10,
			ConservationBonus:     0.15,
			ConfidenceBase:        0.4,
			ConfidencePerHop:      0.1,
		},
		Rapid: RapidConfig{
			WindowHours:     24,
			MinTransactions: 5,
			VolumeFloor:     20000.0,
			ConfidenceBase:  0.3,
			ConfidencePerTx: 0.05,
		},
	}
}

// DefaultRisk returns risk scorer tunables with their defaults
func DefaultRisk() RiskConfig {
	return RiskConfig{
		SARWeight:          0.3,
		ConnectivityWeight: 0.2,
		VolumeWeight:       0.3,
		PatternWeight:      0.2,
		SARSaturation:      5,
		NeighborSaturation: 20,
		VolumeSaturation:   500000,
		PatternSaturation:  5,
		PropagationDepth:   2,
		PropagationDecay:   0.5,
		RelatedSARDepth:    2,
	}
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8086)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.max_request_size", 1048576) // 1MB

	// Database defaults (snapshot store disabled unless configured)
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.database", "activity_graph_db")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.load_timeout", "2m")

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 50)
	v.SetDefault("redis.min_idle_conns", 10)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "1s")
	v.SetDefault("redis.write_timeout", "1s")
	v.SetDefault("redis.risk_cache_ttl", "1h")

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.alerts_topic", "banking.activity.alerts")
	v.SetDefault("kafka.events_topic", "banking.activity.events")
	v.SetDefault("kafka.alert_confidence_floor", 0.5)

	// Detection defaults
	v.SetDefault("detection.structuring.window_days", 7)
	v.SetDefault("detection.structuring.reporting_threshold", 10000.0)
	v.SetDefault("detection.structuring.low_fraction", 0.5)
	v.SetDefault("detection.structuring.min_occurrences", 3)
	v.SetDefault("detection.structuring.high_risk_total", 25000.0)
	v.SetDefault("detection.structuring.confidence_base", 0.5)
	v.SetDefault("detection.structuring.confidence_per_tx", 0.05)

	v.SetDefault("detection.circular.lookback_days", 30)
	v.SetDefault("detection.circular.max_hops", 4)
	v.SetDefault("detection.circular.min_cycle_length", 3)
	v.SetDefault("detection.circular.max_cycles", 10)
	v.SetDefault("detection.circular.conservation_tolerance", 0.10)
	v.SetDefault("detection.circular.conservation_bonus", 0.15)
	v.SetDefault("detection.circular.confidence_base", 0.4)
	v.SetDefault("detection.circular.confidence_per_hop", 0.1)

	v.SetDefault("detection.rapid.window_hours", 24)
	v.SetDefault("detection.rapid.min_transactions", 5)
	v.SetDefault("detection.rapid.volume_floor", 20000.0)
	v.SetDefault("detection.rapid.confidence_base", 0.3)
	v.SetDefault("detection.rapid.confidence_per_tx", 0.05)

	// Risk defaults
	v.SetDefault("risk.sar_weight", 0.3)
	v.SetDefault("risk.connectivity_weight", 0.2)
	v.SetDefault("risk.volume_weight", 0.3)
	v.SetDefault("risk.pattern_weight", 0.2)
	v.SetDefault("risk.sar_saturation", 5)
	v.SetDefault("risk.neighbor_saturation", 20)
	v.SetDefault("risk.volume_saturation", 500000)
	v.SetDefault("risk.pattern_saturation", 5)
	v.SetDefault("risk.propagation_depth", 2)
	v.SetDefault("risk.propagation_decay", 0.5)
	v.SetDefault("risk.related_sar_depth", 2)

	// Similarity defaults
	v.SetDefault("similarity.default_threshold", 0.5)
	v.SetDefault("similarity.narrative_preview", 200)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "activity-graph-service")
	v.SetDefault("telemetry.environment", "development")
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.sampling_ratio", 0.1)

	// Security defaults
	v.SetDefault("security.allowed_origins", []string{"*"})
	v.SetDefault("security.rate_limit_per_minute", 1000)
}
