package models

import (
	"time"

	"github.com/jengzang/wander-backend-go/internal/spatial"
)

// PositionFix is a raw location reading produced by the device
type PositionFix struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// DiscoveredCell marks a location the user has visited.
// Weight is reserved for visit intensity and stays 1 for now.
type DiscoveredCell struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Weight    int       `json:"weight"`
	Timestamp time.Time `json:"timestamp"`
}

// NewCell builds the weight-1 cell that represents a fix
func NewCell(fix PositionFix) DiscoveredCell {
	return DiscoveredCell{
		Latitude:  fix.Latitude,
		Longitude: fix.Longitude,
		Weight:    1,
		Timestamp: fix.Timestamp,
	}
}

// Point returns the cell's coordinate
func (c DiscoveredCell) Point() spatial.Point {
	return spatial.Point{Lat: c.Latitude, Lon: c.Longitude}
}

// CellSet is a user's cells in insertion order
type CellSet []DiscoveredCell

// Latest returns the cell with the greatest timestamp
func (s CellSet) Latest() (DiscoveredCell, bool) {
	if len(s) == 0 {
		return DiscoveredCell{}, false
	}
	latest := s[0]
	for _, c := range s[1:] {
		if c.Timestamp.After(latest.Timestamp) {
			latest = c
		}
	}
	return latest, true
}

// FixRequest is the body of POST /api/v1/fixes
type FixRequest struct {
	Latitude  *float64   `json:"latitude" binding:"required"`
	Longitude *float64   `json:"longitude" binding:"required"`
	Timestamp *time.Time `json:"timestamp"`
}

// Fix converts the request, stamping it with now when no timestamp was sent
func (r FixRequest) Fix(now time.Time) PositionFix {
	fix := PositionFix{Timestamp: now}
	if r.Latitude != nil {
		fix.Latitude = *r.Latitude
	}
	if r.Longitude != nil {
		fix.Longitude = *r.Longitude
	}
	if r.Timestamp != nil {
		fix.Timestamp = *r.Timestamp
	}
	return fix
}

// IngestResult reports what happened to a single fix
type IngestResult struct {
	Added   bool   `json:"added"`
	State   string `json:"state"`
	Dropped bool   `json:"dropped"`
	Reason  string `json:"reason,omitempty"`
}

// RederiveResult reports the cell counts around a re-derivation pass
type RederiveResult struct {
	Before int `json:"before"`
	After  int `json:"after"`
}
