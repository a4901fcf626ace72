package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	FixesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wander_fixes_total",
		Help: "Position fixes processed by outcome (added, duplicate, initialized, dropped)",
	}, []string{"result"})
	StoreErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wander_store_errors_total",
		Help: "Cell store failures by operation",
	}, []string{"op"})
	VersionConflictsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wander_version_conflicts_total",
		Help: "Optimistic write conflicts on cell documents",
	})
	StatsRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wander_stats_requests_total",
		Help: "Stats snapshots served by freshness",
	}, []string{"freshness"})
	StatsDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "wander_stats_duration_ms",
		Help:    "Stats snapshot computation in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	GeocodeRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wander_geocode_requests_total",
		Help: "Reverse geocode lookups by result (hit, miss, error)",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(FixesTotal)
	prometheus.MustRegister(StoreErrorsTotal)
	prometheus.MustRegister(VersionConflictsTotal)
	prometheus.MustRegister(StatsRequestsTotal)
	prometheus.MustRegister(StatsDurationMs)
	prometheus.MustRegister(GeocodeRequestsTotal)
}
