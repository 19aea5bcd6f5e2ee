package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Data sources understood by the dataset store.
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	Data        DataConfig      `mapstructure:"data"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
	Security    SecurityConfig  `mapstructure:"security"`
	Policy      PolicyConfig    `mapstructure:"policy"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ToolTimeout    time.Duration `mapstructure:"tool_timeout"`
}

// DataConfig selects where datasets come from. Datasets maps a dataset
// identifier to its folder under Path.
type DataConfig struct {
	Source   string            `mapstructure:"source"`
	Path     string            `mapstructure:"path"`
	Datasets map[string]string `mapstructure:"datasets"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	DatabaseURL     string `mapstructure:"database_url"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime string `mapstructure:"conn_max_idle_time"`
}

type RedisConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
}

type TelemetryConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	Exporter       string  `mapstructure:"exporter"`
	OTLPEndpoint   string  `mapstructure:"otlp_endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	ServiceVersion string  `mapstructure:"service_version"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

type SecurityConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" json:"-" yaml:"-"`
}

// PolicyConfig holds the tunable business thresholds used by the decision
// and negotiation rules. All percentages are in percent, not fractions.
type PolicyConfig struct {
	BuyWaitThresholdPct    float64 `mapstructure:"buy_wait_threshold_pct"`
	HedgeLowerPct          float64 `mapstructure:"hedge_lower_pct"`
	UrgencyMagnitudePct    float64 `mapstructure:"urgency_magnitude_pct"`
	UrgencyBonus           int     `mapstructure:"urgency_bonus"`
	ModeratelyFavorablePct float64 `mapstructure:"moderately_favorable_pct"`
	TrendThresholdPct      float64 `mapstructure:"trend_threshold_pct"`
	ClaimTolerancePct      float64 `mapstructure:"claim_tolerance_pct"`
	ArgumentPool           int     `mapstructure:"argument_pool"`
}

// DefaultPolicy returns the documented policy constants.
func DefaultPolicy() PolicyConfig {
	return PolicyConfig{
		BuyWaitThresholdPct:    2,
		HedgeLowerPct:          0.5,
		UrgencyMagnitudePct:    5,
		UrgencyBonus:           1,
		ModeratelyFavorablePct: 2,
		TrendThresholdPct:      2,
		ClaimTolerancePct:      2,
		ArgumentPool:           10,
	}
}

// DefaultDatasets maps the shipped dataset identifiers to their folders.
func DefaultDatasets() map[string]string {
	return map[string]string{
		"energy_futures": "#1181-Dataset_Germany Energy Futures, Settlement Price",
		"cotton_price":   "#1597-Dataset_Pima Cotton Price",
		"cotton_export":  "#1616-Dataset_Pima Cotton Export Quantity",
	}
}

func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("security.jwt_secret", "JWT_SECRET"); err != nil {
		return nil, fmt.Errorf("failed to bind JWT_SECRET environment variable: %w", err)
	}
	if err := v.BindEnv("data.path", "DATA_PATH"); err != nil {
		return nil, fmt.Errorf("failed to bind DATA_PATH environment variable: %w", err)
	}
	if err := v.BindEnv("database.database_url", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind DATABASE_URL environment variable: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)
	config.Data.Source = strings.ToLower(config.Data.Source)
	if len(config.Data.Datasets) == 0 {
		config.Data.Datasets = DefaultDatasets()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks cross-field constraints that defaults cannot express.
func (c *Config) Validate() error {
	switch c.Data.Source {
	case SourceFile, SourcePostgres:
	default:
		return fmt.Errorf("unknown data source %q, expected %q or %q", c.Data.Source, SourceFile, SourcePostgres)
	}

	if c.Data.Source == SourceFile && c.Data.Path == "" {
		return fmt.Errorf("data.path is required for the file source")
	}

	switch c.Telemetry.Exporter {
	case "stdout", "otlp":
	default:
		return fmt.Errorf("unknown telemetry exporter %q", c.Telemetry.Exporter)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry sample ratio must be between 0 and 1, got %v", c.Telemetry.SampleRatio)
	}

	return c.Policy.Validate()
}

// Validate checks that thresholds are positive and ordered.
func (p PolicyConfig) Validate() error {
	for name, value := range map[string]float64{
		"buy_wait_threshold_pct":   p.BuyWaitThresholdPct,
		"hedge_lower_pct":          p.HedgeLowerPct,
		"urgency_magnitude_pct":    p.UrgencyMagnitudePct,
		"moderately_favorable_pct": p.ModeratelyFavorablePct,
		"trend_threshold_pct":      p.TrendThresholdPct,
		"claim_tolerance_pct":      p.ClaimTolerancePct,
	} {
		if value <= 0 {
			return fmt.Errorf("policy.%s must be positive, got %v", name, value)
		}
	}
	if p.HedgeLowerPct >= p.BuyWaitThresholdPct {
		return fmt.Errorf("policy.hedge_lower_pct (%v) must be below policy.buy_wait_threshold_pct (%v)",
			p.HedgeLowerPct, p.BuyWaitThresholdPct)
	}
	if p.UrgencyBonus < 0 {
		return fmt.Errorf("policy.urgency_bonus must not be negative, got %d", p.UrgencyBonus)
	}
	if p.ArgumentPool < 1 {
		return fmt.Errorf("policy.argument_pool must be at least 1, got %d", p.ArgumentPool)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Environment
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.tool_timeout", "10s")

	// Data
	v.SetDefault("data.source", SourceFile)
	v.SetDefault("data.path", "data")

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "procurement")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.database_url", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "300s")
	v.SetDefault("database.conn_max_idle_time", "60s")

	// Redis
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.snapshot_ttl", "1h")

	// Telemetry
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.exporter", "stdout")
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4318")
	v.SetDefault("telemetry.service_name", "procurement-advisor")
	v.SetDefault("telemetry.service_version", "1.0.0")
	v.SetDefault("telemetry.sample_ratio", 1.0)

	// Security
	v.SetDefault("security.jwt_secret", "")

	// Policy
	policy := DefaultPolicy()
	v.SetDefault("policy.buy_wait_threshold_pct", policy.BuyWaitThresholdPct)
	v.SetDefault("policy.hedge_lower_pct", policy.HedgeLowerPct)
	v.SetDefault("policy.urgency_magnitude_pct", policy.UrgencyMagnitudePct)
	v.SetDefault("policy.urgency_bonus", policy.UrgencyBonus)
	v.SetDefault("policy.moderately_favorable_pct", policy.ModeratelyFavorablePct)
	v.SetDefault("policy.trend_threshold_pct", policy.TrendThresholdPct)
	v.SetDefault("policy.claim_tolerance_pct", policy.ClaimTolerancePct)
	v.SetDefault("policy.argument_pool", policy.ArgumentPool)
}
