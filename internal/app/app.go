package app

import (
	"context"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"

	"github.com/jengzang/wander-backend-go/internal/config"
	"github.com/jengzang/wander-backend-go/internal/database"
	"github.com/jengzang/wander-backend-go/internal/dedup"
	"github.com/jengzang/wander-backend-go/internal/logger"
	"github.com/jengzang/wander-backend-go/internal/region"
	"github.com/jengzang/wander-backend-go/internal/repository"
	"github.com/jengzang/wander-backend-go/internal/service"
	"github.com/jengzang/wander-backend-go/internal/stats"
)

// App holds the wired services shared by the server and the CLI
type App struct {
	Config  *config.Config
	Catalog *region.Catalog
	Cells   *repository.CellRepository

	Dedup    *dedup.Deduplicator
	Ingest   *service.IngestService
	CellSvc  *service.CellService
	StatsSvc *service.StatsService

	closers []io.Closer
}

// New opens the configured store and builds the services on top of it
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	docs, err := a.openDocuments(ctx)
	if err != nil {
		return nil, err
	}

	catalog := region.DefaultCatalog()
	if cfg.RegionCatalogPath != "" {
		catalog, err = region.LoadCatalog(cfg.RegionCatalogPath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to load region catalog: %w", err)
		}
	}
	a.Catalog = catalog

	var geocoder region.Geocoder
	if cfg.GeocoderURL != "" {
		geocoder = region.NewCachedGeocoder(
			region.NewNominatimClient(cfg.GeocoderURL, cfg.GeocoderUserAgent, nil),
			cfg.GeocodeCacheSize, cfg.GeocodeCacheTTL)
	}

	a.Dedup = dedup.New(cfg.DedupRadiusMeters, cfg.DedupMode)
	a.Cells = repository.NewCellRepository(docs, a.Dedup, cfg.AppendMaxAttempts)
	a.Ingest = service.NewIngestService(a.Cells)
	a.CellSvc = service.NewCellService(a.Cells, a.Dedup)

	// area and stats always use radius semantics, whatever the ingest mode
	statsDedup := dedup.New(cfg.DedupRadiusMeters, dedup.ModeRadius)
	a.StatsSvc, err = service.NewStatsService(a.Cells,
		stats.NewAggregator(statsDedup, cfg.CellRadiusKm, cfg.Location),
		catalog, geocoder, cfg.Location, cfg.SnapshotCacheSize)
	if err != nil {
		a.Close()
		return nil, err
	}

	logger.L().Info("app_ready", "store", cfg.StoreDriver, "dedup_mode", cfg.DedupMode, "dedup_radius_m", cfg.DedupRadiusMeters)
	return a, nil
}

func (a *App) openDocuments(ctx context.Context) (repository.DocumentStore, error) {
	cfg := a.Config
	switch cfg.StoreDriver {
	case "redis":
		rc := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rc.Ping(ctx).Err(); err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.closers = append(a.closers, rc)
		return repository.NewRedisDocumentRepository(rc, "wander:"), nil
	case "postgres":
		return a.openSQL(database.Config{Dialect: database.DialectPostgres, DSN: cfg.PostgresDSN})
	default:
		return a.openSQL(database.Config{Dialect: database.DialectSQLite, Path: cfg.DBPath})
	}
}

func (a *App) openSQL(dbCfg database.Config) (repository.DocumentStore, error) {
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.closers = append(a.closers, db)
	return repository.NewSQLDocumentRepository(db, dbCfg.Dialect), nil
}

// Close releases the store connections
func (a *App) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			logger.L().Warn("close_failed", "err", err)
		}
	}
	a.closers = nil
}
