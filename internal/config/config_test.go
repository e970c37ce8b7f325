package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerConfig_Validate(t *testing.T) {
	valid := ServerConfig{
		Address:      ":8080",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		BodyLimit:    1024 * 1024,
	}

	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			mutate: func(*ServerConfig) {},
		},
		{
			name:    "empty address",
			mutate:  func(c *ServerConfig) { c.Address = "" },
			wantErr: true,
			errMsg:  "server address cannot be empty",
		},
		{
			name:    "zero read timeout",
			mutate:  func(c *ServerConfig) { c.ReadTimeout = 0 },
			wantErr: true,
			errMsg:  "read_timeout must be positive",
		},
		{
			name:    "negative write timeout",
			mutate:  func(c *ServerConfig) { c.WriteTimeout = -time.Second },
			wantErr: true,
			errMsg:  "write_timeout must be positive",
		},
		{
			name:    "zero body limit",
			mutate:  func(c *ServerConfig) { c.BodyLimit = 0 },
			wantErr: true,
			errMsg:  "body_limit must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQueryConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  QueryConfig
		wantErr bool
		errMsg  string
	}{
		{
			name:   "defaults",
			config: QueryConfig{DefaultRows: 20, TimeZone: "Local"},
		},
		{
			name:   "named zone",
			config: QueryConfig{DefaultRows: 20, TimeZone: "UTC"},
		},
		{
			name:    "negative default rows",
			config:  QueryConfig{DefaultRows: -1},
			wantErr: true,
			errMsg:  "default_rows must not be negative",
		},
		{
			name:    "negative max rows",
			config:  QueryConfig{MaxRows: -5},
			wantErr: true,
			errMsg:  "max_rows must not be negative",
		},
		{
			name:    "unknown zone",
			config:  QueryConfig{TimeZone: "Mars/Olympus_Mons"},
			wantErr: true,
			errMsg:  "invalid time_zone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQueryConfig_Location(t *testing.T) {
	loc, err := (&QueryConfig{}).Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	loc, err = (&QueryConfig{TimeZone: "UTC"}).Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestSchemaConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  SchemaConfig
		wantErr bool
		errMsg  string
	}{
		{
			name:   "embedded",
			config: SchemaConfig{Source: SchemaSourceEmbedded},
		},
		{
			name:   "file with path",
			config: SchemaConfig{Source: SchemaSourceFile, File: "schema.yaml"},
		},
		{
			name:    "file without path",
			config:  SchemaConfig{Source: SchemaSourceFile},
			wantErr: true,
			errMsg:  "schema.file is required",
		},
		{
			name:   "postgres",
			config: SchemaConfig{Source: SchemaSourcePostgres, Schemas: []string{"public"}},
		},
		{
			name:    "postgres without schemas",
			config:  SchemaConfig{Source: SchemaSourcePostgres},
			wantErr: true,
			errMsg:  "at least one schema",
		},
		{
			name:    "unknown source",
			config:  SchemaConfig{Source: "ldap"},
			wantErr: true,
			errMsg:  "schema source must be",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTracingConfig_Validate(t *testing.T) {
	assert.NoError(t, (&TracingConfig{Endpoint: "localhost:4317", SampleRate: 0.5}).Validate())
	assert.Error(t, (&TracingConfig{SampleRate: 1}).Validate())
	assert.Error(t, (&TracingConfig{Endpoint: "localhost:4317", SampleRate: 1.5}).Validate())
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	dc := DatabaseConfig{
		Host:     "db",
		Port:     5433,
		User:     "app",
		Password: "secret",
		Database: "catalog",
		SSLMode:  "require",
	}
	assert.Equal(t, "postgres://app:secret@db:5433/catalog?sslmode=require", dc.ConnectionString())
}

func TestLoadFrom(t *testing.T) {
	t.Cleanup(viper.Reset)

	t.Run("missing explicit file", func(t *testing.T) {
		viper.Reset()
		cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("file and environment", func(t *testing.T) {
		viper.Reset()
		path := filepath.Join(t.TempDir(), "fluxfilter.yaml")
		content := []byte("query:\n  default_rows: 50\n  default_sort: name\nschema:\n  source: embedded\n")
		require.NoError(t, os.WriteFile(path, content, 0o600))
		t.Setenv("FLUXFILTER_QUERY_MAX_ROWS", "200")

		cfg, err := LoadFrom(path)
		require.NoError(t, err)

		assert.Equal(t, 50, cfg.Query.DefaultRows)
		assert.Equal(t, "name", cfg.Query.DefaultSort)
		assert.Equal(t, 200, cfg.Query.MaxRows)
		assert.Equal(t, "search['", cfg.Query.FilterPrefix)
		assert.Equal(t, "']", cfg.Query.FilterSuffix)
		assert.Equal(t, ":8080", cfg.Server.Address)
		assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, time.Minute, cfg.RateLimit.Expiration)
		assert.Equal(t, []string{"public"}, cfg.Schema.Schemas)
		assert.True(t, cfg.Metrics.Enabled)
		assert.False(t, cfg.Query.FirstValueCoercion)
	})

	t.Run("invalid file content", func(t *testing.T) {
		viper.Reset()
		path := filepath.Join(t.TempDir(), "fluxfilter.yaml")
		require.NoError(t, os.WriteFile(path, []byte("schema:\n  source: ldap\n"), 0o600))

		_, err := LoadFrom(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}
