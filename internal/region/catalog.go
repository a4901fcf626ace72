// Package region resolves the reference region a user is exploring and its known area.
package region

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jengzang/wander-backend-go/internal/models"
)

// ErrRegionUnknown means the region is not in the catalog
var ErrRegionUnknown = errors.New("region unknown")

//go:embed us_states.json
var usStates []byte

// catalogEntry is the on-disk record shape: {"state": "...", "sq_mi": 123}
type catalogEntry struct {
	State string  `json:"state"`
	SqMi  float64 `json:"sq_mi"`
}

// Catalog maps region names to their total area
type Catalog struct {
	byName  map[string]models.RegionReference
	regions []models.RegionReference
}

// DefaultCatalog returns the embedded US states catalog
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(usStates)
	if err != nil {
		panic(fmt.Sprintf("embedded region catalog: %v", err))
	}
	return c
}

// LoadCatalog reads a catalog file; an empty path yields the embedded one
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read region catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog builds a catalog from JSON records
func ParseCatalog(data []byte) (*Catalog, error) {
	var entries []catalogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse region catalog: %w", err)
	}

	c := &Catalog{byName: make(map[string]models.RegionReference, len(entries))}
	for _, e := range entries {
		name := strings.TrimSpace(e.State)
		if name == "" {
			continue
		}
		ref := models.RegionReference{Name: name, AreaSquareMiles: e.SqMi}
		c.byName[normalize(name)] = ref
		c.regions = append(c.regions, ref)
	}
	sort.Slice(c.regions, func(i, j int) bool { return c.regions[i].Name < c.regions[j].Name })
	return c, nil
}

// Lookup finds a region by name, ignoring case and surrounding space
func (c *Catalog) Lookup(name string) (models.RegionReference, error) {
	ref, ok := c.byName[normalize(name)]
	if !ok {
		return models.RegionReference{}, fmt.Errorf("%q: %w", name, ErrRegionUnknown)
	}
	return ref, nil
}

// All lists the catalog sorted by name
func (c *Catalog) All() []models.RegionReference {
	return append([]models.RegionReference(nil), c.regions...)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
