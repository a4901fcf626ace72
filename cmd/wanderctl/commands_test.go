package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/wander-backend-go/internal/config"
	"github.com/jengzang/wander-backend-go/internal/middleware"
	"github.com/jengzang/wander-backend-go/internal/models"
)

func useTestConfig(t *testing.T) *config.Config {
	t.Helper()
	v := viper.New()
	v.Set("db_path", filepath.Join(t.TempDir(), "ctl.db"))
	v.Set("geocoder_url", "")
	v.Set("jwt_secret", "ctl-secret")
	cfg, err := config.FromViper(v)
	require.NoError(t, err)

	prev := loadConfig
	loadConfig = func() (*config.Config, error) { return cfg, nil }
	t.Cleanup(func() { loadConfig = prev })
	return cfg
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

const fixesJSON = `[
  {"latitude": 37.7749, "longitude": -122.4194, "timestamp": "2024-05-05T09:00:00Z"},
  {"latitude": 37.7754, "longitude": -122.4194, "timestamp": "2024-05-05T09:01:00Z"},
  {"latitude": 38.7749, "longitude": -122.4194, "timestamp": "2024-05-05T10:00:00Z"},
  {"latitude": 120, "longitude": 0}
]`

func TestIngestThenStats(t *testing.T) {
	useTestConfig(t)

	out, err := run(t, fixesJSON, "ingest", "--user", "alice")
	require.NoError(t, err)
	assert.Equal(t, "added=2 duplicate=1 dropped=0 skipped=1\n", out)

	out, err = run(t, "", "stats", "--user", "alice", "--region", "California")
	require.NoError(t, err)
	var snap models.StatsSnapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, 5, snap.Month)
	assert.Equal(t, 2, snap.UniqueCells)
	assert.Equal(t, "California", snap.Region)
}

func TestIngestFromFile(t *testing.T) {
	useTestConfig(t)
	path := filepath.Join(t.TempDir(), "fixes.json")
	require.NoError(t, os.WriteFile(path, []byte(fixesJSON), 0o600))

	out, err := run(t, "", "ingest", "--user", "bob", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "added=2")

	out, err = run(t, "", "rederive", "--user", "bob")
	require.NoError(t, err)
	assert.Equal(t, "before=2 after=2\n", out)
}

func TestRederiveMissingUser(t *testing.T) {
	useTestConfig(t)

	_, err := run(t, "", "rederive", "--user", "nobody")
	assert.Error(t, err)
}

func TestRegions(t *testing.T) {
	useTestConfig(t)

	out, err := run(t, "", "regions")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 51)
	assert.Contains(t, out, "California")
}

func TestToken(t *testing.T) {
	cfg := useTestConfig(t)

	out, err := run(t, "", "token", "--user", "alice", "--ttl", "1h")
	require.NoError(t, err)

	claims, err := middleware.ValidateToken(cfg.JWTSecret, strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UserID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)

	_, err = run(t, "", "token")
	assert.Error(t, err)
}
