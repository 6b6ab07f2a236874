package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Normalizer turns raw feed items into zone records.
type Normalizer struct {
	Locale     Locale
	Classifier Classifier
}

// NewNormalizer creates a Normalizer for the given locale and gap policy.
func NewNormalizer(locale Locale, gap Band) *Normalizer {
	return &Normalizer{Locale: locale, Classifier: NewClassifier(gap)}
}

// Normalize parses, classifies, and describes a single feed item. It returns
// an error wrapping ErrMalformedItem when the item cannot be represented.
func (n *Normalizer) Normalize(item FeedItem) (ZoneRecord, error) {
	raw := strings.TrimSpace(item.Address)
	if raw == "" {
		return ZoneRecord{}, fmt.Errorf("%w: empty address", ErrMalformedItem)
	}
	if item.NumberOfSpots < 0 {
		return ZoneRecord{}, fmt.Errorf("%w: %q has negative numberOfSpots %d", ErrMalformedItem, raw, item.NumberOfSpots)
	}

	available := item.NumberOfSpots
	if item.AvailablePlaces != nil {
		available = *item.AvailablePlaces
	}
	if available < 0 {
		return ZoneRecord{}, fmt.Errorf("%w: %q has negative availablePlaces %d", ErrMalformedItem, raw, available)
	}
	// A feed reporting more free spots than exist is clamped rather than rejected.
	if available > item.NumberOfSpots {
		available = item.NumberOfSpots
	}

	addr := NormalizeAddress(raw)
	hint := ParseHint(item.Type)

	rec := ZoneRecord{
		ID:          ZoneID(raw),
		Address:     raw,
		Street:      addr.Street,
		Number:      addr.Number,
		City:        n.Locale.City,
		Country:     n.Locale.Country,
		TotalSpots:  item.NumberOfSpots,
		Available:   available,
		Band:        n.Classifier.Classify(item.NumberOfSpots, available, hint),
		Hint:        hint,
		Description: describe(addr.Street, available, item.NumberOfSpots),
	}
	// Only the 0,0 pair means "no coordinate"; a single zero axis is a real position.
	if item.Latitude != 0 || item.Longitude != 0 {
		rec.Geo = &Geo{Lat: item.Latitude, Lon: item.Longitude}
	}
	return rec, nil
}

// BatchResult is the outcome of normalizing a whole feed response.
type BatchResult struct {
	Records []ZoneRecord
	Skipped []error
}

// NormalizeBatch normalizes every item, skipping malformed ones. Records keep
// feed order. When two items share an address the later one gets an index
// suffix so IDs stay unique.
func (n *Normalizer) NormalizeBatch(items []FeedItem) BatchResult {
	res := BatchResult{Records: make([]ZoneRecord, 0, len(items))}
	seen := make(map[string]struct{}, len(items))

	for i, item := range items {
		rec, err := n.Normalize(item)
		if err != nil {
			res.Skipped = append(res.Skipped, fmt.Errorf("item %d: %w", i, err))
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			rec.ID = fmt.Sprintf("%s-%d", rec.ID, i)
		}
		seen[rec.ID] = struct{}{}
		res.Records = append(res.Records, rec)
	}
	return res
}

// ZoneID derives a stable identifier from an address. Case and repeated
// whitespace do not change the ID.
func ZoneID(address string) string {
	key := strings.ToLower(strings.Join(strings.Fields(address), " "))
	hash := sha256.Sum256([]byte(key))
	return "zone-" + hex.EncodeToString(hash[:8])
}

func describe(street string, available, total int) string {
	return fmt.Sprintf("%s - %d/%d spots available", street, available, total)
}
