package mapbox

import (
	"context"
	"strings"
	"time"

	"github.com/bluele/gcache"

	"github.com/couchcryptid/parking-zone-sync/internal/domain"
	"github.com/couchcryptid/parking-zone-sync/internal/observability"
)

// cacheTTL bounds how long a resolved address is trusted.
const cacheTTL = 24 * time.Hour

// CachedGeocoder wraps a Geocoder with an in-memory LRU cache. Zone addresses
// repeat on every refresh cycle, so most lookups after the first are hits.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   gcache.Cache
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner: inner,
		cache: gcache.New(maxEntries).
			LRU().
			Expiration(cacheTTL).
			Build(),
		metrics: metrics,
	}
}

// ForwardGeocode returns a cached result when one exists, otherwise asks the
// wrapped geocoder.
func (c *CachedGeocoder) ForwardGeocode(ctx context.Context, address, city string) (domain.GeocodingResult, error) {
	key := cacheKey(address, city)
	if cached, err := c.cache.Get(key); err == nil {
		if result, ok := cached.(domain.GeocodingResult); ok {
			c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
			return result, nil
		}
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	result, err := c.inner.ForwardGeocode(ctx, address, city)
	if err != nil {
		return result, err
	}
	// Only cache non-empty results so transient "not found" responses can be retried.
	if result.FormattedAddress != "" {
		_ = c.cache.Set(key, result)
	}
	return result, nil
}

// Len reports the number of live cache entries.
func (c *CachedGeocoder) Len() int {
	return c.cache.Len(true)
}

func cacheKey(address, city string) string {
	return strings.ToLower(strings.Join(strings.Fields(address), " ")) + "|" + strings.ToLower(city)
}
