// Package dedup decides whether a discovered cell is a revisit of an existing one.
package dedup

import (
	"fmt"

	"github.com/jengzang/wander-backend-go/internal/models"
	"github.com/jengzang/wander-backend-go/internal/spatial"
)

// DefaultRadiusMeters is the distance under which two fixes are the same cell
const DefaultRadiusMeters = 500.0

// Mode selects the duplicate definition applied at ingestion
type Mode string

const (
	// ModeRadius treats any cell closer than the radius as a duplicate
	ModeRadius Mode = "radius"
	// ModeExact only treats identical coordinates as a duplicate
	ModeExact Mode = "exact"
)

// ParseMode validates a configured mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeRadius, "":
		return ModeRadius, nil
	case ModeExact:
		return ModeExact, nil
	}
	return "", fmt.Errorf("unknown dedup mode %q", s)
}

// Deduplicator holds the duplicate policy
type Deduplicator struct {
	RadiusMeters float64
	Mode         Mode
}

// New creates a deduplicator; a non-positive radius falls back to DefaultRadiusMeters
func New(radiusMeters float64, mode Mode) *Deduplicator {
	if radiusMeters <= 0 {
		radiusMeters = DefaultRadiusMeters
	}
	if mode == "" {
		mode = ModeRadius
	}
	return &Deduplicator{RadiusMeters: radiusMeters, Mode: mode}
}

// IsDuplicate reports whether any existing cell lies strictly within the radius of candidate
func (d *Deduplicator) IsDuplicate(candidate models.DiscoveredCell, existing models.CellSet) bool {
	p := candidate.Point()
	for _, c := range existing {
		if spatial.Distance(p, c.Point()) < d.RadiusMeters {
			return true
		}
	}
	return false
}

// ExactDuplicate reports whether an existing cell has identical coordinates
func (d *Deduplicator) ExactDuplicate(candidate models.DiscoveredCell, existing models.CellSet) bool {
	for _, c := range existing {
		if c.Latitude == candidate.Latitude && c.Longitude == candidate.Longitude {
			return true
		}
	}
	return false
}

// Duplicate applies the configured mode
func (d *Deduplicator) Duplicate(candidate models.DiscoveredCell, existing models.CellSet) bool {
	if d.Mode == ModeExact {
		return d.ExactDuplicate(candidate, existing)
	}
	return d.IsDuplicate(candidate, existing)
}

// FilterToUnique keeps the first-seen cell of each cluster and drops later
// cells within the radius of a kept one. The result depends on input order:
// the representative is whichever cell came first, not a cluster centroid.
// The input is not modified.
func (d *Deduplicator) FilterToUnique(cells models.CellSet) models.CellSet {
	kept := make(models.CellSet, 0, len(cells))
	for _, c := range cells {
		if d.IsDuplicate(c, kept) {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}
