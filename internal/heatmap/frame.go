package heatmap

import (
	"errors"
	"fmt"
	"sort"

	geohash "github.com/TomiHiltunen/geohash-golang"
	geojson "github.com/paulmach/go.geojson"

	"github.com/couchcryptid/parking-zone-sync/internal/domain"
)

// ErrInvalidHour is returned for an hour outside [0,23].
var ErrInvalidHour = errors.New("hour must be between 0 and 23")

// Point is one zone's heat at a given hour.
type Point struct {
	ZoneID     string  `json:"zone_id"`
	Street     string  `json:"street"`
	Number     string  `json:"number"`
	City       string  `json:"city"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	TotalSpots int     `json:"total_spots"`
	Intensity  int     `json:"intensity"`
	Level      Level   `json:"level"`
	Color      string  `json:"color"`
	Radius     float64 `json:"radius"`
}

// Frame is the heat picture of every located zone at one hour.
type Frame struct {
	Hour   int     `json:"hour"`
	Label  string  `json:"label"`
	Points []Point `json:"points"`
}

// BuildFrame evaluates each zone's profile at hour. Zones without
// coordinates cannot be placed on a map and are left out.
func BuildFrame(zones []domain.ZoneRecord, profiles *Profiles, hour int) (Frame, error) {
	if hour < 0 || hour >= domain.HoursPerDay {
		return Frame{}, fmt.Errorf("%w: got %d", ErrInvalidHour, hour)
	}
	frame := Frame{Hour: hour, Label: HourLabel(hour), Points: make([]Point, 0, len(zones))}
	for _, z := range zones {
		if z.Geo == nil {
			continue
		}
		intensity := profiles.For(z).At(hour)
		level := LevelFor(intensity)
		frame.Points = append(frame.Points, Point{
			ZoneID:     z.ID,
			Street:     z.Street,
			Number:     z.Number,
			City:       z.City,
			Lat:        z.Geo.Lat,
			Lon:        z.Geo.Lon,
			TotalSpots: z.TotalSpots,
			Intensity:  intensity,
			Level:      level,
			Color:      level.Color(),
			Radius:     Radius(intensity),
		})
	}
	return frame, nil
}

// Cell aggregates the points that share a geohash prefix.
type Cell struct {
	Geohash       string   `json:"geohash"`
	Lat           float64  `json:"lat"` // centroid of member zones
	Lon           float64  `json:"lon"`
	Zones         []string `json:"zones"`
	TotalSpots    int      `json:"total_spots"`
	MeanIntensity float64  `json:"mean_intensity"`
	MaxIntensity  int      `json:"max_intensity"`
	Level         Level    `json:"level"`
}

// Cells groups frame points by geohash at the given precision (1-12).
// Cells come back sorted by geohash.
func Cells(frame Frame, precision int) []Cell {
	precision = max(1, min(12, precision))

	byHash := make(map[string]*Cell)
	sums := make(map[string]int)
	for _, p := range frame.Points {
		h := geohash.Encode(p.Lat, p.Lon)
		if len(h) > precision {
			h = h[:precision]
		}
		c, ok := byHash[h]
		if !ok {
			c = &Cell{Geohash: h}
			byHash[h] = c
		}
		c.Zones = append(c.Zones, p.ZoneID)
		c.Lat += p.Lat
		c.Lon += p.Lon
		c.TotalSpots += p.TotalSpots
		c.MaxIntensity = max(c.MaxIntensity, p.Intensity)
		sums[h] += p.Intensity
	}

	cells := make([]Cell, 0, len(byHash))
	for h, c := range byHash {
		n := float64(len(c.Zones))
		c.Lat /= n
		c.Lon /= n
		c.MeanIntensity = float64(sums[h]) / n
		c.Level = LevelFor(c.MaxIntensity)
		cells = append(cells, *c)
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i].Geohash < cells[j].Geohash })
	return cells
}

// FeatureCollection renders the frame as GeoJSON points, one feature per zone.
func FeatureCollection(frame Frame) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range frame.Points {
		f := geojson.NewPointFeature([]float64{p.Lon, p.Lat})
		f.ID = p.ZoneID
		f.SetProperty("zone_id", p.ZoneID)
		f.SetProperty("street", p.Street)
		f.SetProperty("number", p.Number)
		f.SetProperty("city", p.City)
		f.SetProperty("total_spots", p.TotalSpots)
		f.SetProperty("intensity", p.Intensity)
		f.SetProperty("level", string(p.Level))
		f.SetProperty("color", p.Color)
		f.SetProperty("radius", p.Radius)
		f.SetProperty("hour", frame.Hour)
		fc.AddFeature(f)
	}
	return fc
}
