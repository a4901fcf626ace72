package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/wander-backend-go/internal/config"
	"github.com/jengzang/wander-backend-go/internal/models"
)

func testConfig(t *testing.T, overrides map[string]interface{}) *config.Config {
	t.Helper()
	v := viper.New()
	v.Set("db_path", filepath.Join(t.TempDir(), "app.db"))
	v.Set("geocoder_url", "")
	for k, val := range overrides {
		v.Set(k, val)
	}
	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	return cfg
}

func TestNewSQLite(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t, nil))
	require.NoError(t, err)
	defer a.Close()

	res := a.Ingest.HandleFix(ctx, "u1", models.PositionFix{Latitude: 1, Longitude: 2, Timestamp: time.Now()})
	assert.True(t, res.Added)

	cells, err := a.CellSvc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, cells, 1)

	snap, err := a.StatsSvc.GetSnapshot(ctx, "u1", models.StatsQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, snap.UniqueCells)
}

func TestNewCustomCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regions.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"state":"Testland","sq_mi":10}]`), 0o600))

	a, err := New(context.Background(), testConfig(t, map[string]interface{}{"region_catalog_path": path}))
	require.NoError(t, err)
	defer a.Close()

	assert.Len(t, a.Catalog.All(), 1)
}

func TestNewBadCatalog(t *testing.T) {
	_, err := New(context.Background(), testConfig(t, map[string]interface{}{
		"region_catalog_path": filepath.Join(t.TempDir(), "missing.json"),
	}))
	assert.Error(t, err)
}
