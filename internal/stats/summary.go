package stats

import (
	"sort"
	"time"

	"github.com/jengzang/wander-backend-go/internal/dedup"
	"github.com/jengzang/wander-backend-go/internal/models"
	"github.com/jengzang/wander-backend-go/internal/spatial"
)

// Aggregator derives a StatsSnapshot from a cell set. It holds no state
// between calls and is safe for concurrent use.
type Aggregator struct {
	dedup        *dedup.Deduplicator
	cellRadiusKm float64
	loc          *time.Location
}

// NewAggregator creates an aggregator. Calendar days and months are taken in
// loc (UTC when nil); cellRadiusKm is the radius of the per-cell area unit.
func NewAggregator(d *dedup.Deduplicator, cellRadiusKm float64, loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	if cellRadiusKm <= 0 {
		cellRadiusKm = 1
	}
	return &Aggregator{dedup: d, cellRadiusKm: cellRadiusKm, loc: loc}
}

// Summarize computes the snapshot for the given month (1-12) and year.
// A nil region leaves PercentOfRegion unavailable.
func (a *Aggregator) Summarize(cells models.CellSet, region *models.RegionReference, month, year int) models.StatsSnapshot {
	unique := a.dedup.FilterToUnique(cells)
	area := float64(len(unique)) * spatial.CircularCellAreaSquareMiles(a.cellRadiusKm)

	snap := models.StatsSnapshot{
		Month:                     month,
		Year:                      year,
		TotalCells:                len(cells),
		UniqueCells:               len(unique),
		AreaDiscoveredSquareMiles: area,
		PercentOfRegion:           PercentOfRegion(area, region),
		AvailableMonths:           AvailableMonths(cells, a.loc),
	}
	if region != nil {
		snap.Region = region.Name
	}

	series, total, latestDay := a.monthlyDistance(cells, month, year)
	snap.DailyDistanceSeries = series
	snap.TotalDistanceThisMonthMiles = total
	values := seriesValues(series)
	snap.MaxDailyMiles = Max(values)
	if latestDay > 0 {
		snap.DailyAverageMiles = Sum(values) / float64(latestDay)
	}
	return snap
}

// PercentOfRegion returns 100*area/region area, or nil when the region or
// its area is unknown
func PercentOfRegion(areaSquareMiles float64, region *models.RegionReference) *float64 {
	if region == nil || region.AreaSquareMiles <= 0 {
		return nil
	}
	p := 100 * areaSquareMiles / region.AreaSquareMiles
	return &p
}

// monthlyDistance walks the month's cells in timestamp order, summing the
// distance between consecutive cells and bucketing each leg under the day of
// its later point. It returns one entry per calendar day of the month.
func (a *Aggregator) monthlyDistance(cells models.CellSet, month, year int) ([]models.DailyDistance, float64, int) {
	days := DaysIn(month, year)
	series := make([]models.DailyDistance, days)
	for i := range series {
		series[i].Day = i + 1
	}

	var inMonth models.CellSet
	for _, c := range cells {
		t := c.Timestamp.In(a.loc)
		if int(t.Month()) == month && t.Year() == year {
			inMonth = append(inMonth, c)
		}
	}
	sort.SliceStable(inMonth, func(i, j int) bool {
		return inMonth[i].Timestamp.Before(inMonth[j].Timestamp)
	})

	var total float64
	latestDay := 0
	for i, c := range inMonth {
		day := c.Timestamp.In(a.loc).Day()
		if day > latestDay {
			latestDay = day
		}
		if i == 0 {
			continue
		}
		miles := spatial.MetersToMiles(spatial.Distance(inMonth[i-1].Point(), c.Point()))
		total += miles
		series[day-1].Miles += miles
	}
	return series, total, latestDay
}

// DaysIn returns the number of days in month (1-12) of year
func DaysIn(month, year int) int {
	if month < 1 || month > 12 {
		return 0
	}
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AvailableMonths lists the distinct months present in cells, in first-seen order
func AvailableMonths(cells models.CellSet, loc *time.Location) []models.MonthYear {
	if loc == nil {
		loc = time.UTC
	}
	seen := make(map[models.MonthYear]bool)
	months := []models.MonthYear{}
	for _, c := range cells {
		t := c.Timestamp.In(loc)
		my := models.MonthYear{Month: int(t.Month()), Year: t.Year()}
		if seen[my] {
			continue
		}
		seen[my] = true
		months = append(months, my)
	}
	return months
}

// LatestMonth returns the month of the most recent cell
func LatestMonth(cells models.CellSet, loc *time.Location) (models.MonthYear, bool) {
	latest, ok := cells.Latest()
	if !ok {
		return models.MonthYear{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	t := latest.Timestamp.In(loc)
	return models.MonthYear{Month: int(t.Month()), Year: t.Year()}, true
}

func seriesValues(series []models.DailyDistance) []float64 {
	out := make([]float64, len(series))
	for i, d := range series {
		out[i] = d.Miles
	}
	return out
}
