package region

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/jengzang/wander-backend-go/internal/logger"
	"github.com/jengzang/wander-backend-go/internal/metrics"
	"github.com/jengzang/wander-backend-go/internal/spatial"
)

// Geocoder names the region containing a coordinate
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
}

// NominatimClient queries a Nominatim-compatible /reverse endpoint and
// returns the state (or, failing that, the country) of the address.
type NominatimClient struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewNominatimClient creates a client; a nil http client gets a 5s timeout
func NewNominatimClient(baseURL, userAgent string, client *http.Client) *NominatimClient {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &NominatimClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    client,
	}
}

type nominatimResponse struct {
	Error   string `json:"error"`
	Address struct {
		State   string `json:"state"`
		Country string `json:"country"`
	} `json:"address"`
}

// ReverseGeocode resolves a coordinate to a region name
func (c *NominatimClient) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	q.Set("zoom", "5")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reverse geocode: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to reverse geocode: status %d", resp.StatusCode)
	}

	var r nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return "", fmt.Errorf("failed to decode reverse geocode response: %w", err)
	}
	if r.Error != "" {
		return "", fmt.Errorf("%s: %w", r.Error, ErrRegionUnknown)
	}
	if r.Address.State != "" {
		return r.Address.State, nil
	}
	if r.Address.Country != "" {
		return r.Address.Country, nil
	}
	return "", ErrRegionUnknown
}

// CachedGeocoder memoizes lookups per geohash cell and collapses concurrent
// lookups of the same cell into one upstream request.
type CachedGeocoder struct {
	next      Geocoder
	cache     *expirable.LRU[string, string]
	group     singleflight.Group
	precision int
}

// NewCachedGeocoder wraps next with an LRU of the given size and TTL
func NewCachedGeocoder(next Geocoder, size int, ttl time.Duration) *CachedGeocoder {
	if size < 1 {
		size = 1
	}
	return &CachedGeocoder{
		next:      next,
		cache:     expirable.NewLRU[string, string](size, nil, ttl),
		precision: 5,
	}
}

// ReverseGeocode answers from the cache or the wrapped geocoder
func (g *CachedGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	key := spatial.EncodeGeohash(spatial.Point{Lat: lat, Lon: lon}, g.precision)
	if name, ok := g.cache.Get(key); ok {
		metrics.GeocodeRequestsTotal.WithLabelValues("hit").Inc()
		return name, nil
	}

	v, err, _ := g.group.Do(key, func() (interface{}, error) {
		name, err := g.next.ReverseGeocode(ctx, lat, lon)
		if err != nil {
			return "", err
		}
		g.cache.Add(key, name)
		return name, nil
	})
	if err != nil {
		metrics.GeocodeRequestsTotal.WithLabelValues("error").Inc()
		if !errors.Is(err, ErrRegionUnknown) {
			logger.L().Warn("geocode_error", "geohash", key, "err", err)
		}
		return "", err
	}
	metrics.GeocodeRequestsTotal.WithLabelValues("miss").Inc()
	return v.(string), nil
}
