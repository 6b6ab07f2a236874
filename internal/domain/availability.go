package domain

import (
	"fmt"
	"strings"
)

// Band is the semantic availability classification shown to users.
type Band string

const (
	BandNone    Band = ""
	BandFull    Band = "full"
	BandLimited Band = "limited"
	BandGood    Band = "good"
)

const (
	limitedBelow = 0.30
	goodFrom     = 0.50
)

// Color returns the display color of the band.
func (b Band) Color() string {
	switch b {
	case BandFull:
		return "#ef4444"
	case BandLimited:
		return "#f59e0b"
	case BandGood:
		return "#22c55e"
	default:
		return ""
	}
}

// Label returns the human-readable name of the band.
func (b Band) Label() string {
	switch b {
	case BandFull:
		return "Full"
	case BandLimited:
		return "Limited"
	case BandGood:
		return "Good"
	default:
		return ""
	}
}

// ParseHint maps the server-supplied "type" field to a band. Unknown values
// carry no hint.
func ParseHint(s string) Band {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "red", "full":
		return BandFull
	case "yellow", "limited":
		return BandLimited
	case "green", "good":
		return BandGood
	default:
		return BandNone
	}
}

// ParseGapBand parses the band used for the 0.30–0.50 ratio gap.
func ParseGapBand(s string) (Band, error) {
	switch b := Band(strings.ToLower(strings.TrimSpace(s))); b {
	case BandGood, BandLimited:
		return b, nil
	default:
		return BandNone, fmt.Errorf("gap band must be %q or %q, got %q", BandGood, BandLimited, s)
	}
}

// Classifier maps spot counts and an optional hint to a band.
type Classifier struct {
	// Gap is returned when the ratio falls in [0.30, 0.50) and no hint applies.
	Gap Band
}

// NewClassifier returns a Classifier with the given gap policy. An empty gap
// defaults to GOOD.
func NewClassifier(gap Band) Classifier {
	if gap == BandNone {
		gap = BandGood
	}
	return Classifier{Gap: gap}
}

// Classify evaluates the rules in precedence order: full, limited, good, gap.
func (c Classifier) Classify(total, available int, hint Band) Band {
	if available <= 0 || hint == BandFull {
		return BandFull
	}

	ratio := 0.0
	if total > 0 {
		ratio = float64(available) / float64(total)
	}

	switch {
	case hint == BandLimited || ratio < limitedBelow:
		return BandLimited
	case hint == BandGood || ratio >= goodFrom:
		return BandGood
	case c.Gap == BandNone:
		return BandGood
	default:
		return c.Gap
	}
}
