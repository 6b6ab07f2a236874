package domain

// FeedItem is one raw entry of the availability feed.
type FeedItem struct {
	Address         string  `json:"address"`
	NumberOfSpots   int     `json:"numberOfSpots"`
	AvailablePlaces *int    `json:"availablePlaces,omitempty"` // nil when the feed omits it
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	Type            string  `json:"type"` // server hint: "red", "yellow", "green"
}

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Locale fills the city and country fields the feed does not carry.
type Locale struct {
	City    string
	Country string
}

// ZoneRecord is the normalized form of a feed item.
type ZoneRecord struct {
	ID          string `json:"id"`
	Address     string `json:"address"`
	Street      string `json:"street"`
	Number      string `json:"number"`
	City        string `json:"city"`
	Country     string `json:"country"`
	TotalSpots  int    `json:"total_spots"`
	Available   int    `json:"available_spots"`
	Geo         *Geo   `json:"geo,omitempty"`
	Band        Band   `json:"band"`
	Hint        Band   `json:"hint,omitempty"`
	Description string `json:"description"`

	// GeoSource is "feed", "forward", "failed", or empty when no geocoder ran.
	GeoSource string `json:"geo_source,omitempty"`
}

// Ratio returns available/total, or 0 for a zone without spots.
func (z ZoneRecord) Ratio() float64 {
	if z.TotalSpots <= 0 {
		return 0
	}
	return float64(z.Available) / float64(z.TotalSpots)
}

// Equal reports whether two records are structurally identical.
func (z ZoneRecord) Equal(o ZoneRecord) bool {
	if z.ID != o.ID || z.Address != o.Address || z.Street != o.Street || z.Number != o.Number ||
		z.City != o.City || z.Country != o.Country || z.TotalSpots != o.TotalSpots ||
		z.Available != o.Available || z.Band != o.Band || z.Hint != o.Hint ||
		z.Description != o.Description || z.GeoSource != o.GeoSource {
		return false
	}
	switch {
	case z.Geo == nil && o.Geo == nil:
		return true
	case z.Geo == nil || o.Geo == nil:
		return false
	default:
		return *z.Geo == *o.Geo
	}
}

// Text is the free text keyword tagging runs against.
func (z ZoneRecord) Text() string {
	return z.Street + " " + z.Description
}
