package mapbox

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/parking-zone-sync/internal/domain"
	"github.com/couchcryptid/parking-zone-sync/internal/observability"
)

type countingGeocoder struct {
	calls  int
	result domain.GeocodingResult
	err    error
}

func (m *countingGeocoder) ForwardGeocode(_ context.Context, _, _ string) (domain.GeocodingResult, error) {
	m.calls++
	return m.result, m.err
}

var timisoaraHit = domain.GeocodingResult{Lat: 45.75, Lon: 21.22, FormattedAddress: "Strada Alba Iulia 5, Timișoara"}

func TestCachedGeocoder_CacheHit(t *testing.T) {
	inner := &countingGeocoder{result: timisoaraHit}
	m := observability.NewMetricsForTesting()
	cached := NewCachedGeocoder(inner, 10, m)

	r1, err := cached.ForwardGeocode(context.Background(), "Strada Alba Iulia 5", "Timișoara")
	require.NoError(t, err)
	r2, err := cached.ForwardGeocode(context.Background(), "strada  alba iulia 5", "TIMIȘOARA")
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GeocodeCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GeocodeCache.WithLabelValues("miss")))
}

func TestCachedGeocoder_DifferentKeysMiss(t *testing.T) {
	inner := &countingGeocoder{result: timisoaraHit}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	_, _ = cached.ForwardGeocode(context.Background(), "Strada Alba Iulia 5", "Timișoara")
	_, _ = cached.ForwardGeocode(context.Background(), "Piata Victoriei 1", "Timișoara")

	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 2, cached.Len())
}

func TestCachedGeocoder_EmptyResultNotCached(t *testing.T) {
	inner := &countingGeocoder{}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	_, _ = cached.ForwardGeocode(context.Background(), "Nowhere 1", "Timișoara")
	_, _ = cached.ForwardGeocode(context.Background(), "Nowhere 1", "Timișoara")

	assert.Equal(t, 2, inner.calls)
	assert.Zero(t, cached.Len())
}

func TestCachedGeocoder_ErrorNotCached(t *testing.T) {
	inner := &countingGeocoder{err: errors.New("boom")}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.ForwardGeocode(context.Background(), "Strada Alba Iulia 5", "Timișoara")
	require.Error(t, err)
	_, err = cached.ForwardGeocode(context.Background(), "Strada Alba Iulia 5", "Timișoara")
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedGeocoder_EvictsLeastRecentlyUsed(t *testing.T) {
	inner := &countingGeocoder{result: timisoaraHit}
	cached := NewCachedGeocoder(inner, 2, observability.NewMetricsForTesting())
	ctx := context.Background()

	for i := range 3 {
		_, err := cached.ForwardGeocode(ctx, fmt.Sprintf("Strada %d", i), "Timișoara")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, cached.Len())

	// "Strada 0" was evicted, so looking it up calls through again.
	_, _ = cached.ForwardGeocode(ctx, "Strada 0", "Timișoara")
	assert.Equal(t, 4, inner.calls)
}
