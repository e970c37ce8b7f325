package database

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxbase-eu/fluxfilter/internal/config"
)

// =============================================================================
// extractRelation Tests
// =============================================================================

func TestExtractRelation(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		expected string
	}{
		{
			name:     "simple select",
			sql:      "SELECT * FROM users",
			expected: "users",
		},
		{
			name:     "schema qualified catalog",
			sql:      "SELECT column_name FROM information_schema.columns WHERE table_schema = ANY($1)",
			expected: "information_schema.columns",
		},
		{
			name:     "multiline with alias",
			sql:      "\n\t\tSELECT n.nspname\n\t\tFROM pg_catalog.pg_enum e\n\t\tJOIN pg_catalog.pg_type t ON t.oid = e.enumtypid",
			expected: "pg_catalog.pg_enum",
		},
		{
			name:     "lowercase",
			sql:      "select 1 from Pg_Class",
			expected: "pg_class",
		},
		{
			name:     "no from clause",
			sql:      "SELECT 1",
			expected: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractRelation(tt.sql))
		})
	}
}

// =============================================================================
// truncateQuery Tests
// =============================================================================

func TestTruncateQuery(t *testing.T) {
	assert.Equal(t, "SELECT 1", truncateQuery("SELECT 1", 200))

	long := "SELECT " + strings.Repeat("x", 300)
	truncated := truncateQuery(long, 20)
	assert.Equal(t, long[:20]+"... (truncated)", truncated)
}

// =============================================================================
// Pool Config Tests
// =============================================================================

func TestParsePoolConfig(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:            "localhost",
		Port:            5432,
		User:            "fluxfilter",
		Password:        "secret",
		Database:        "app",
		SSLMode:         "disable",
		MaxConnections:  7,
		MinConnections:  2,
		MaxConnLifetime: 30 * time.Minute,
		MaxConnIdleTime: 5 * time.Minute,
		HealthCheck:     time.Minute,
	}

	poolConfig, err := parsePoolConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, int32(7), poolConfig.MaxConns)
	assert.Equal(t, int32(2), poolConfig.MinConns)
	assert.Equal(t, 30*time.Minute, poolConfig.MaxConnLifetime)
	assert.Equal(t, 5*time.Minute, poolConfig.MaxConnIdleTime)
	assert.Equal(t, time.Minute, poolConfig.HealthCheckPeriod)
	assert.Equal(t, "localhost", poolConfig.ConnConfig.Host)
	assert.Equal(t, uint16(5432), poolConfig.ConnConfig.Port)
	assert.Equal(t, "app", poolConfig.ConnConfig.Database)
	assert.NotNil(t, poolConfig.BeforeAcquire)
}

func TestParsePoolConfig_InvalidSSLMode(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "fluxfilter",
		Database: "app",
		SSLMode:  "sometimes",
	}

	_, err := parsePoolConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to parse connection string")
}
