package models

// RegionReference is a catalog entry giving the known area of a region
type RegionReference struct {
	Name            string  `json:"name"`
	AreaSquareMiles float64 `json:"areaSquareMiles"`
}

// DailyDistance is one bar of the per-day distance chart
type DailyDistance struct {
	Day   int     `json:"day"`
	Miles float64 `json:"miles"`
}

// MonthYear identifies a calendar month (Month is 1-12)
type MonthYear struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// StatsSnapshot is the derived summary shown on the stats screen.
// PercentOfRegion is nil when the region or its area is unknown.
type StatsSnapshot struct {
	Region                      string          `json:"region,omitempty"`
	Month                       int             `json:"month"`
	Year                        int             `json:"year"`
	TotalCells                  int             `json:"totalCells"`
	UniqueCells                 int             `json:"uniqueCells"`
	AreaDiscoveredSquareMiles   float64         `json:"areaDiscoveredSquareMiles"`
	PercentOfRegion             *float64        `json:"percentOfRegion"`
	TotalDistanceThisMonthMiles float64         `json:"totalDistanceThisMonthMiles"`
	DailyDistanceSeries         []DailyDistance `json:"dailyDistanceSeries"`
	DailyAverageMiles           float64         `json:"dailyAverageMiles"`
	MaxDailyMiles               float64         `json:"maxDailyMiles"`
	AvailableMonths             []MonthYear     `json:"availableMonths"`
	Stale                       bool            `json:"stale"`
}

// StatsQuery carries the optional inputs of a stats request.
// Zero Month/Year select the latest month present in the data.
type StatsQuery struct {
	Month     int      `form:"month"`
	Year      int      `form:"year"`
	Region    string   `form:"region"`
	Latitude  *float64 `form:"lat"`
	Longitude *float64 `form:"lon"`
}
