package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Query      QueryConfig      `mapstructure:"query"`
	Schema     SchemaConfig     `mapstructure:"schema"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Validation ValidationConfig `mapstructure:"validation"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Debug      bool             `mapstructure:"debug"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	BodyLimit    int           `mapstructure:"body_limit"`
}

// QueryConfig controls how filter, paging and sort parameters are read
type QueryConfig struct {
	FilterPrefix string `mapstructure:"filter_prefix"`
	FilterSuffix string `mapstructure:"filter_suffix"`
	DefaultRows  int    `mapstructure:"default_rows"`
	MaxRows      int    `mapstructure:"max_rows"` // 0 means no cap
	DefaultSort  string `mapstructure:"default_sort"`
	// FirstValueCoercion fills every slot of a multi-value filter from its
	// first raw value, as older releases did
	FirstValueCoercion bool   `mapstructure:"first_value_coercion"`
	TimeZone           string `mapstructure:"time_zone"`
}

// Location returns the zone used for dates without an explicit offset
func (qc *QueryConfig) Location() (*time.Location, error) {
	switch qc.TimeZone {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(qc.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time_zone %q: %w", qc.TimeZone, err)
	}
	return loc, nil
}

// Schema sources
const (
	SchemaSourceEmbedded = "embedded"
	SchemaSourceFile     = "file"
	SchemaSourcePostgres = "postgres"
)

// SchemaConfig selects where entity descriptions come from
type SchemaConfig struct {
	Source  string   `mapstructure:"source"`
	File    string   `mapstructure:"file"`
	Schemas []string `mapstructure:"schemas"` // postgres schemas to inspect
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConnections  int32         `mapstructure:"max_connections"`
	MinConnections  int32         `mapstructure:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheck     time.Duration `mapstructure:"health_check_period"`
}

// ValidationConfig controls the validation rule cache
type ValidationConfig struct {
	DevMode bool `mapstructure:"dev_mode"` // recompute rules on every lookup
}

// RateLimitConfig contains per-IP rate limiting settings
type RateLimitConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Max        int           `mapstructure:"max"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// TracingConfig contains OpenTelemetry tracing settings
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
}

// MetricsConfig contains Prometheus settings
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom loads configuration from an explicit file when path is not empty,
// otherwise from fluxfilter.yaml in the usual locations
func LoadFrom(path string) (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := loadEnvFile(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("fluxfilter")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/fluxfilter")
	}

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvPrefix("FLUXFILTER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Info().Msg("No config file found, using environment variables and defaults")
	} else {
		log.Info().Str("file", viper.ConfigFileUsed()).Msg("Config file loaded")
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads environment variables from .env file
func loadEnvFile() error {
	locations := []string{
		".env",
		".env.local",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			if err := godotenv.Load(location); err != nil {
				return fmt.Errorf("error loading .env file from %s: %w", location, err)
			}
			log.Info().Str("file", location).Msg(".env file loaded")
			return nil
		}
	}

	return fmt.Errorf("no .env file found")
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "15s")
	viper.SetDefault("server.idle_timeout", "60s")
	viper.SetDefault("server.body_limit", 1024*1024) // 1MB

	// Query defaults
	viper.SetDefault("query.filter_prefix", "search['")
	viper.SetDefault("query.filter_suffix", "']")
	viper.SetDefault("query.default_rows", 20)
	viper.SetDefault("query.max_rows", 0)
	viper.SetDefault("query.default_sort", "id")
	viper.SetDefault("query.first_value_coercion", false)
	viper.SetDefault("query.time_zone", "Local")

	// Schema defaults
	viper.SetDefault("schema.source", SchemaSourceEmbedded)
	viper.SetDefault("schema.file", "")
	viper.SetDefault("schema.schemas", []string{"public"})

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.database", "postgres")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_connections", 4)
	viper.SetDefault("database.min_connections", 0)
	viper.SetDefault("database.max_conn_lifetime", "1h")
	viper.SetDefault("database.max_conn_idle_time", "30m")
	viper.SetDefault("database.health_check_period", "1m")

	viper.SetDefault("validation.dev_mode", false)

	// Rate limiting defaults
	viper.SetDefault("rate_limit.enabled", false)
	viper.SetDefault("rate_limit.max", 100)
	viper.SetDefault("rate_limit.expiration", "1m")

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.endpoint", "localhost:4317")
	viper.SetDefault("tracing.service_name", "fluxfilter")
	viper.SetDefault("tracing.environment", "development")
	viper.SetDefault("tracing.sample_rate", 1.0)
	viper.SetDefault("tracing.insecure", true)

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("debug", false)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server configuration error: %w", err)
	}

	if err := c.Query.Validate(); err != nil {
		return fmt.Errorf("query configuration error: %w", err)
	}

	if err := c.Schema.Validate(); err != nil {
		return fmt.Errorf("schema configuration error: %w", err)
	}

	if c.Schema.Source == SchemaSourcePostgres && c.Database.MaxConnections < c.Database.MinConnections {
		return fmt.Errorf("max_connections must be greater than or equal to min_connections")
	}

	if c.RateLimit.Enabled && c.RateLimit.Max <= 0 {
		return fmt.Errorf("rate_limit.max must be positive when rate limiting is enabled")
	}

	if c.Tracing.Enabled {
		if err := c.Tracing.Validate(); err != nil {
			return fmt.Errorf("tracing configuration error: %w", err)
		}
	}

	return nil
}

// Validate validates server configuration
func (sc *ServerConfig) Validate() error {
	if sc.Address == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	if sc.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout must be positive, got: %v", sc.ReadTimeout)
	}
	if sc.WriteTimeout <= 0 {
		return fmt.Errorf("write_timeout must be positive, got: %v", sc.WriteTimeout)
	}
	if sc.IdleTimeout <= 0 {
		return fmt.Errorf("idle_timeout must be positive, got: %v", sc.IdleTimeout)
	}
	if sc.BodyLimit <= 0 {
		return fmt.Errorf("body_limit must be positive, got: %d", sc.BodyLimit)
	}
	return nil
}

// Validate validates query configuration
func (qc *QueryConfig) Validate() error {
	if qc.DefaultRows < 0 {
		return fmt.Errorf("default_rows must not be negative")
	}
	if qc.MaxRows < 0 {
		return fmt.Errorf("max_rows must not be negative")
	}
	if _, err := qc.Location(); err != nil {
		return err
	}
	return nil
}

// Validate validates schema configuration
func (sc *SchemaConfig) Validate() error {
	switch sc.Source {
	case SchemaSourceEmbedded, SchemaSourcePostgres:
	case SchemaSourceFile:
		if sc.File == "" {
			return fmt.Errorf("schema.file is required when source is 'file'")
		}
	default:
		return fmt.Errorf("schema source must be 'embedded', 'file' or 'postgres'")
	}
	if sc.Source == SchemaSourcePostgres && len(sc.Schemas) == 0 {
		return fmt.Errorf("at least one schema is required when source is 'postgres'")
	}
	return nil
}

// Validate validates tracing configuration
func (tc *TracingConfig) Validate() error {
	if tc.Endpoint == "" {
		return fmt.Errorf("endpoint is required when tracing is enabled")
	}
	if tc.SampleRate < 0 || tc.SampleRate > 1 {
		return fmt.Errorf("sample_rate must be between 0.0 and 1.0")
	}
	return nil
}

// ConnectionString returns the PostgreSQL connection string
func (dc *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		dc.User, dc.Password, dc.Host, dc.Port, dc.Database, dc.SSLMode)
}
