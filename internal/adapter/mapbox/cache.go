package mapbox

import (
	"context"
	"fmt"

	"github.com/couchcryptid/city-enrollment-map/internal/domain"
	"github.com/couchcryptid/city-enrollment-map/internal/observability"
	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedGeocoder wraps a Geocoder with an in-memory LRU cache.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   *lru.Cache[string, domain.GeocodingResult]
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) (*CachedGeocoder, error) {
	cache, err := lru.New[string, domain.GeocodingResult](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create geocode cache: %w", err)
	}
	return &CachedGeocoder{inner: inner, cache: cache, metrics: metrics}, nil
}

func (c *CachedGeocoder) ForwardGeocode(ctx context.Context, name, region string) (domain.GeocodingResult, error) {
	key := name + "|" + region
	if result, ok := c.cache.Get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return result, nil
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	result, err := c.inner.ForwardGeocode(ctx, name, region)
	if err != nil {
		return result, err
	}
	// Only cache hits so a transient "not found" can be retried.
	if result.Found() {
		c.cache.Add(key, result)
	}
	return result, nil
}

// Len reports the number of cached entries.
func (c *CachedGeocoder) Len() int {
	return c.cache.Len()
}
