package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock geocoder ---

type mockGeocoder struct {
	result    GeocodingResult
	err       error
	calls     int
	lastQuery string
	lastCity  string
}

func (m *mockGeocoder) ForwardGeocode(_ context.Context, address, city string) (GeocodingResult, error) {
	m.calls++
	m.lastQuery = address
	m.lastCity = city
	return m.result, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- tests ---

func TestEnrichWithGeocoding_NilGeocoder(t *testing.T) {
	zone := ZoneRecord{ID: "zone-1", Street: "Piața Victoriei", Number: "1"}

	result := EnrichWithGeocoding(context.Background(), zone, nil, discardLogger())

	assert.Empty(t, result.GeoSource)
	assert.Nil(t, result.Geo)
}

func TestEnrichWithGeocoding_ForwardGeocode(t *testing.T) {
	geo := &mockGeocoder{
		result: GeocodingResult{Lat: 45.7494, Lon: 21.2272, FormattedAddress: "Piața Victoriei, Timișoara", Confidence: 0.9},
	}
	zone := ZoneRecord{ID: "zone-1", Street: "Piața Victoriei", Number: "1", City: "Timișoara"}

	result := EnrichWithGeocoding(context.Background(), zone, geo, discardLogger())

	require.NotNil(t, result.Geo)
	assert.Equal(t, 45.7494, result.Geo.Lat)
	assert.Equal(t, 21.2272, result.Geo.Lon)
	assert.Equal(t, "forward", result.GeoSource)
	assert.Equal(t, "Piața Victoriei 1", geo.lastQuery)
	assert.Equal(t, "Timișoara", geo.lastCity)
	assert.Equal(t, 1, geo.calls)
}

func TestEnrichWithGeocoding_FeedCoordinatesKept(t *testing.T) {
	geo := &mockGeocoder{}
	zone := ZoneRecord{ID: "zone-2", Geo: &Geo{Lat: 45.75, Lon: 21.22}}

	result := EnrichWithGeocoding(context.Background(), zone, geo, discardLogger())

	assert.Equal(t, "feed", result.GeoSource)
	assert.Equal(t, 45.75, result.Geo.Lat)
	assert.Equal(t, 0, geo.calls)
}

func TestEnrichWithGeocoding_ForwardError_GracefulDegradation(t *testing.T) {
	geo := &mockGeocoder{err: errors.New("API timeout")}
	zone := ZoneRecord{ID: "zone-3", Street: "Strada Exemplu", Number: "12"}

	result := EnrichWithGeocoding(context.Background(), zone, geo, discardLogger())

	assert.Equal(t, "failed", result.GeoSource)
	assert.Nil(t, result.Geo)
}

func TestEnrichWithGeocoding_ForwardEmptyResult(t *testing.T) {
	geo := &mockGeocoder{result: GeocodingResult{}}
	zone := ZoneRecord{ID: "zone-4", Street: "Nowhere"}

	result := EnrichWithGeocoding(context.Background(), zone, geo, discardLogger())

	assert.Equal(t, "failed", result.GeoSource)
	assert.Nil(t, result.Geo)
}
