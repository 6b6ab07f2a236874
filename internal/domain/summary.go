package domain

import (
	"math"
	"sort"
)

// Summary aggregates availability over a set of zones.
type Summary struct {
	Zones         int          `json:"zones"`
	TotalSpots    int          `json:"total_spots"`
	Available     int          `json:"available_spots"`
	OccupancyRate float64      `json:"occupancy_rate"` // percent, one decimal
	Bands         map[Band]int `json:"bands"`
}

// Summarize computes totals, the occupancy rate, and the count per band.
func Summarize(zones []ZoneRecord) Summary {
	s := Summary{Zones: len(zones), Bands: map[Band]int{}}
	for _, z := range zones {
		s.TotalSpots += z.TotalSpots
		s.Available += z.Available
		s.Bands[z.Band]++
	}
	if s.TotalSpots > 0 {
		occupied := float64(s.TotalSpots-s.Available) / float64(s.TotalSpots) * 100
		s.OccupancyRate = math.Round(occupied*10) / 10
	}
	return s
}

// BestAvailable returns zones with free spots ordered by availability ratio,
// highest first. Ties keep input order. A non-positive limit returns all.
func BestAvailable(zones []ZoneRecord, limit int) []ZoneRecord {
	out := make([]ZoneRecord, 0, len(zones))
	for _, z := range zones {
		if z.Available > 0 {
			out = append(out, z)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Ratio() > out[j].Ratio()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
