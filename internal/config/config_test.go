package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/wander-backend-go/internal/dedup"
)

func TestFromViperDefaults(t *testing.T) {
	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, dedup.DefaultRadiusMeters, cfg.DedupRadiusMeters)
	assert.Equal(t, dedup.ModeRadius, cfg.DedupMode)
	assert.Equal(t, 1.0, cfg.CellRadiusKm)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, 3, cfg.AppendMaxAttempts)
	assert.Equal(t, 24*time.Hour, cfg.GeocodeCacheTTL)
	assert.Equal(t, time.Minute, cfg.RateWindow)
	assert.Equal(t, "jwt", cfg.AuthMode)
}

func TestFromViperEnvironment(t *testing.T) {
	t.Setenv("DEDUP_RADIUS_METERS", "50")
	t.Setenv("DEDUP_MODE", "EXACT")
	t.Setenv("TIME_ZONE", "America/Los_Angeles")
	t.Setenv("STORE_DRIVER", "redis")
	t.Setenv("APPEND_MAX_ATTEMPTS", "0")

	v := viper.New()
	v.AutomaticEnv()
	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, 50.0, cfg.DedupRadiusMeters)
	assert.Equal(t, dedup.ModeExact, cfg.DedupMode)
	assert.Equal(t, "America/Los_Angeles", cfg.Location.String())
	assert.Equal(t, "redis", cfg.StoreDriver)
	assert.Equal(t, 1, cfg.AppendMaxAttempts)
}

func TestFromViperConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wander.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \":9090\"\ncell_radius_km: 0.5\n"), 0o600))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, 0.5, cfg.CellRadiusKm)
}

func TestFromViperRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"dedup mode", "dedup_mode", "fuzzy"},
		{"time zone", "time_zone", "Mars/Olympus"},
		{"store driver", "store_driver", "s3"},
		{"auth mode", "auth_mode", "none"},
		{"postgres without dsn", "store_driver", "postgres"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.val)
			_, err := FromViper(v)
			assert.Error(t, err)
		})
	}
}
