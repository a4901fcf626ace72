package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/wander-backend-go/internal/config"
	"github.com/jengzang/wander-backend-go/internal/database"
	"github.com/jengzang/wander-backend-go/internal/dedup"
	"github.com/jengzang/wander-backend-go/internal/handler"
	"github.com/jengzang/wander-backend-go/internal/middleware"
	"github.com/jengzang/wander-backend-go/internal/models"
	"github.com/jengzang/wander-backend-go/internal/region"
	"github.com/jengzang/wander-backend-go/internal/repository"
	"github.com/jengzang/wander-backend-go/internal/service"
	"github.com/jengzang/wander-backend-go/internal/stats"
)

const testSecret = "router-secret"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setupTestRouter(t *testing.T, authMode string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(database.Config{
		Dialect: database.DialectSQLite,
		Path:    filepath.Join(t.TempDir(), "router.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	d := dedup.New(dedup.DefaultRadiusMeters, dedup.ModeRadius)
	store := repository.NewCellRepository(repository.NewSQLDocumentRepository(db, database.DialectSQLite), d, 3)
	catalog := region.DefaultCatalog()
	statsService, err := service.NewStatsService(store, stats.NewAggregator(d, 1, time.UTC), catalog, nil, time.UTC, 16)
	require.NoError(t, err)

	cfg := &config.Config{AuthMode: authMode, JWTSecret: testSecret}
	return SetupRouter(cfg, Handlers{
		Fix:   handler.NewFixHandler(service.NewIngestService(store)),
		Cell:  handler.NewCellHandler(service.NewCellService(store, d)),
		Stats: handler.NewStatsHandler(statsService, catalog),
	}, middleware.NewRateLimiter(1000, time.Minute))
}

func do(t *testing.T, r http.Handler, method, path, user string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") != "" && bytes.HasPrefix(w.Body.Bytes(), []byte("{")) {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func fixBody(lat, lon float64, ts time.Time) map[string]interface{} {
	return map[string]interface{}{"latitude": lat, "longitude": lon, "timestamp": ts.Format(time.RFC3339)}
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	r := setupTestRouter(t, middleware.AuthModeJWT)

	w, _ := do(t, r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, r, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")

	w, _ = do(t, r, http.MethodGet, "/api/v1/cells", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBearerToken(t *testing.T) {
	r := setupTestRouter(t, middleware.AuthModeJWT)
	token, err := middleware.IssueToken(testSecret, "alice", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cells", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFixesAndStatsFlow(t *testing.T) {
	r := setupTestRouter(t, middleware.AuthModeHeader)
	day := time.Date(2024, 5, 5, 9, 0, 0, 0, time.UTC)

	w, env := do(t, r, http.MethodPost, "/api/v1/fixes", "alice", fixBody(37.7749, -122.4194, day))
	require.Equal(t, http.StatusOK, w.Code)
	var res models.IngestResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.True(t, res.Added)
	assert.Equal(t, "tracking", res.State)

	w, env = do(t, r, http.MethodPost, "/api/v1/fixes/batch", "alice", []interface{}{
		fixBody(37.7754, -122.4194, day.Add(time.Minute)),
		fixBody(38.7749, -122.4194, day.Add(time.Hour)),
	})
	require.Equal(t, http.StatusOK, w.Code)
	var batch struct {
		Results []models.IngestResult `json:"results"`
		Count   int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &batch))
	require.Equal(t, 2, batch.Count)
	assert.False(t, batch.Results[0].Added)
	assert.True(t, batch.Results[1].Added)

	w, env = do(t, r, http.MethodGet, "/api/v1/cells", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cells struct {
		Data  models.CellSet `json:"data"`
		Count int            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &cells))
	assert.Equal(t, 2, cells.Count)

	w, env = do(t, r, http.MethodGet, "/api/v1/stats?region=California", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap models.StatsSnapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, 5, snap.Month)
	assert.Equal(t, 2024, snap.Year)
	assert.Equal(t, 2, snap.UniqueCells)
	assert.NotNil(t, snap.PercentOfRegion)
	assert.Len(t, snap.DailyDistanceSeries, 31)
	assert.InDelta(t, snap.TotalDistanceThisMonthMiles, snap.DailyDistanceSeries[4].Miles, 1e-9)

	// other users see nothing
	w, env = do(t, r, http.MethodGet, "/api/v1/cells", "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &cells))
	assert.Zero(t, cells.Count)
}

func TestFixValidation(t *testing.T) {
	r := setupTestRouter(t, middleware.AuthModeHeader)

	w, _ := do(t, r, http.MethodPost, "/api/v1/fixes", "alice", map[string]interface{}{"latitude": 10})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodPost, "/api/v1/fixes", "alice", map[string]interface{}{"latitude": 91, "longitude": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// zero is a valid coordinate; the timestamp defaults to now
	w, _ = do(t, r, http.MethodPost, "/api/v1/fixes", "alice", map[string]interface{}{"latitude": 0, "longitude": 0})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatsValidation(t *testing.T) {
	r := setupTestRouter(t, middleware.AuthModeHeader)

	w, _ := do(t, r, http.MethodGet, "/api/v1/stats?month=13&year=2024", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodGet, "/api/v1/stats?lat=10", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodGet, "/api/v1/stats?month=abc", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRederive(t *testing.T) {
	r := setupTestRouter(t, middleware.AuthModeHeader)

	w, _ := do(t, r, http.MethodPost, "/api/v1/cells/rederive", "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	do(t, r, http.MethodPost, "/api/v1/fixes", "alice", fixBody(1, 1, time.Now()))
	w, env := do(t, r, http.MethodPost, "/api/v1/cells/rederive", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res models.RederiveResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, models.RederiveResult{Before: 1, After: 1}, res)
}

func TestRegions(t *testing.T) {
	r := setupTestRouter(t, middleware.AuthModeHeader)

	w, env := do(t, r, http.MethodGet, "/api/v1/regions", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var regions struct {
		Data  []models.RegionReference `json:"data"`
		Count int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &regions))
	assert.Equal(t, 51, regions.Count)
}
