package heatmap

import "math"

// Level buckets a traffic intensity for display.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelVeryHigh Level = "very_high"
)

const (
	minRadius = 30.0
	maxRadius = 80.0
)

// LevelFor maps an intensity in [0,100] to its display level. Boundaries are
// inclusive on the upper side: 30 is low, 31 is medium.
func LevelFor(intensity int) Level {
	switch {
	case intensity <= 30:
		return LevelLow
	case intensity <= 60:
		return LevelMedium
	case intensity <= 80:
		return LevelHigh
	default:
		return LevelVeryHigh
	}
}

// Color returns the marker colour for the level.
func (l Level) Color() string {
	switch l {
	case LevelLow:
		return "#22c55e"
	case LevelMedium:
		return "#f59e0b"
	case LevelHigh:
		return "#f97316"
	default:
		return "#ef4444"
	}
}

// Label returns the human-readable level name.
func (l Level) Label() string {
	switch l {
	case LevelLow:
		return "Low"
	case LevelMedium:
		return "Medium"
	case LevelHigh:
		return "High"
	default:
		return "Very High"
	}
}

// Radius is the marker radius in pixels for an intensity.
func Radius(intensity int) float64 {
	return math.Max(minRadius, math.Min(maxRadius, minRadius+float64(intensity)*0.5))
}

// HourLabel describes the traffic period an hour falls into. Ranges overlap
// at their edges and the first match wins.
func HourLabel(hour int) string {
	switch {
	case hour >= 6 && hour <= 9:
		return "Morning Rush"
	case hour >= 9 && hour <= 17:
		return "Business Hours"
	case hour >= 17 && hour <= 20:
		return "Evening Peak"
	case hour >= 20 && hour <= 23:
		return "Evening Activity"
	default:
		return "Quiet Hours"
	}
}
