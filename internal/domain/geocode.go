package domain

import (
	"context"
	"log/slog"
	"strings"
)

// EnrichWithGeocoding fills in coordinates for a zone the feed left without
// any. Zones that already have coordinates are marked "feed". If geocoder is
// nil the zone is returned unchanged; failures mark it "failed" and keep it.
func EnrichWithGeocoding(ctx context.Context, zone ZoneRecord, geocoder Geocoder, logger *slog.Logger) ZoneRecord {
	if geocoder == nil {
		return zone
	}
	if zone.Geo != nil {
		zone.GeoSource = "feed"
		return zone
	}

	query := strings.TrimSpace(zone.Street + " " + zone.Number)
	result, err := geocoder.ForwardGeocode(ctx, query, zone.City)
	if err != nil {
		logger.Warn("forward geocoding failed",
			"zone_id", zone.ID,
			"address", zone.Address,
			"error", err,
		)
		zone.GeoSource = "failed"
		return zone
	}
	if result.Lat == 0 && result.Lon == 0 {
		zone.GeoSource = "failed"
		return zone
	}

	zone.Geo = &Geo{Lat: result.Lat, Lon: result.Lon}
	zone.GeoSource = "forward"
	return zone
}
