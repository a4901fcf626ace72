package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jengzang/wander-backend-go/internal/logger"
	"github.com/jengzang/wander-backend-go/internal/metrics"
	"github.com/jengzang/wander-backend-go/internal/models"
	"github.com/jengzang/wander-backend-go/internal/region"
	"github.com/jengzang/wander-backend-go/internal/repository"
	"github.com/jengzang/wander-backend-go/internal/stats"
)

// ErrInvalidQuery is returned for out-of-range month/year parameters
var ErrInvalidQuery = errors.New("invalid stats query")

// StatsService builds stats snapshots for the dashboard
type StatsService struct {
	store      CellStore
	aggregator *stats.Aggregator
	catalog    *region.Catalog
	geocoder   region.Geocoder
	loc        *time.Location
	lastGood   *lru.Cache[string, models.StatsSnapshot]
	now        func() time.Time
}

// NewStatsService creates a stats service. geocoder may be nil, in which
// case only explicitly named regions resolve.
func NewStatsService(store CellStore, aggregator *stats.Aggregator, catalog *region.Catalog, geocoder region.Geocoder, loc *time.Location, cacheSize int) (*StatsService, error) {
	if loc == nil {
		loc = time.UTC
	}
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	cache, err := lru.New[string, models.StatsSnapshot](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot cache: %w", err)
	}
	return &StatsService{
		store:      store,
		aggregator: aggregator,
		catalog:    catalog,
		geocoder:   geocoder,
		loc:        loc,
		lastGood:   cache,
		now:        time.Now,
	}, nil
}

// GetSnapshot computes the snapshot for query. A store outage yields the
// last good snapshot for the same user and month, marked stale, or an empty
// stale snapshot when there is none. Only invalid queries and corrupt
// documents return an error.
func (s *StatsService) GetSnapshot(ctx context.Context, userID string, q models.StatsQuery) (models.StatsSnapshot, error) {
	start := time.Now()
	defer func() {
		metrics.StatsDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if q.Month < 0 || q.Month > 12 {
		return models.StatsSnapshot{}, fmt.Errorf("%w: month %d", ErrInvalidQuery, q.Month)
	}
	if (q.Month == 0) != (q.Year == 0) {
		return models.StatsSnapshot{}, fmt.Errorf("%w: month and year must be given together", ErrInvalidQuery)
	}

	cells, err := s.store.ReadAll(ctx, userID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		cells = models.CellSet{}
	case errors.Is(err, repository.ErrStoreUnavailable):
		logger.L().Warn("stats_store_unavailable", "user", userID, "err", err)
		return s.stale(userID, q), nil
	case err != nil:
		return models.StatsSnapshot{}, fmt.Errorf("failed to read cells: %w", err)
	}

	month, year := s.resolvePeriod(cells, q)
	ref, name := s.resolveRegion(ctx, cells, q)

	snap := s.aggregator.Summarize(cells, ref, month, year)
	if snap.Region == "" {
		snap.Region = name
	}

	s.lastGood.Add(cacheKey(userID, month, year), snap)
	if q.Month == 0 {
		s.lastGood.Add(latestKey(userID), snap)
	}
	metrics.StatsRequestsTotal.WithLabelValues("fresh").Inc()
	return snap, nil
}

func (s *StatsService) stale(userID string, q models.StatsQuery) models.StatsSnapshot {
	metrics.StatsRequestsTotal.WithLabelValues("stale").Inc()

	key := cacheKey(userID, q.Month, q.Year)
	if q.Month == 0 {
		key = latestKey(userID)
	}
	if snap, ok := s.lastGood.Get(key); ok {
		snap.Stale = true
		return snap
	}

	month, year := q.Month, q.Year
	if month == 0 {
		now := s.now().In(s.loc)
		month, year = int(now.Month()), now.Year()
	}
	return models.StatsSnapshot{
		Region:              q.Region,
		Month:               month,
		Year:                year,
		DailyDistanceSeries: emptySeries(month, year),
		AvailableMonths:     []models.MonthYear{},
		Stale:               true,
	}
}

// resolvePeriod defaults to the latest month with data, then the current month
func (s *StatsService) resolvePeriod(cells models.CellSet, q models.StatsQuery) (int, int) {
	if q.Month != 0 {
		return q.Month, q.Year
	}
	if latest, ok := stats.LatestMonth(cells, s.loc); ok {
		return latest.Month, latest.Year
	}
	now := s.now().In(s.loc)
	return int(now.Month()), now.Year()
}

// resolveRegion returns the catalog reference (nil when unavailable) and the
// best known region name. An explicit name wins; otherwise the given
// coordinate, or the most recent cell, is reverse geocoded.
func (s *StatsService) resolveRegion(ctx context.Context, cells models.CellSet, q models.StatsQuery) (*models.RegionReference, string) {
	name := q.Region
	if name == "" {
		var lat, lon float64
		switch {
		case q.Latitude != nil && q.Longitude != nil:
			lat, lon = *q.Latitude, *q.Longitude
		default:
			latest, ok := cells.Latest()
			if !ok {
				return nil, ""
			}
			lat, lon = latest.Latitude, latest.Longitude
		}
		if s.geocoder == nil {
			return nil, ""
		}
		geocoded, err := s.geocoder.ReverseGeocode(ctx, lat, lon)
		if err != nil {
			logger.L().Warn("region_geocode_failed", "lat", lat, "lon", lon, "err", err)
			return nil, ""
		}
		name = geocoded
	}

	ref, err := s.catalog.Lookup(name)
	if err != nil {
		logger.L().Debug("region_not_in_catalog", "region", name)
		return nil, name
	}
	return &ref, ref.Name
}

func emptySeries(month, year int) []models.DailyDistance {
	days := stats.DaysIn(month, year)
	series := make([]models.DailyDistance, days)
	for i := range series {
		series[i] = models.DailyDistance{Day: i + 1}
	}
	return series
}

func cacheKey(userID string, month, year int) string {
	return fmt.Sprintf("%s|%04d-%02d", userID, year, month)
}

// latestKey holds the snapshot last served for a query without a month
func latestKey(userID string) string {
	return userID + "|latest"
}
