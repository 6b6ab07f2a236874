package domain

import (
	"math"
	"math/rand"
	"strings"
	"sync"
)

// HoursPerDay is the length of every intensity profile.
const HoursPerDay = 24

const (
	minIntensity = 10
	maxIntensity = 95
	jitterSpan   = 15.0 // uniform in [-7.5, +7.5]
)

// Tag is a keyword-derived zone category.
type Tag uint8

const (
	TagMall Tag = 1 << iota
	TagCenter
	TagUniversity
	TagHospital
	TagResidential
	TagBusiness
)

// TagNone is the governing tag of a zone without any keyword match.
const TagNone Tag = 0

// Tags is a set of Tag values.
type Tags uint8

// Has reports whether t is in the set.
func (s Tags) Has(t Tag) bool { return uint8(s)&uint8(t) != 0 }

// tagPriority resolves multiple matches to one governing tag.
var tagPriority = []Tag{TagCenter, TagBusiness, TagUniversity, TagHospital, TagMall, TagResidential}

// Governing returns the highest-priority tag in the set.
func (s Tags) Governing() Tag {
	for _, t := range tagPriority {
		if s.Has(t) {
			return t
		}
	}
	return TagNone
}

func (t Tag) String() string {
	switch t {
	case TagMall:
		return "mall"
	case TagCenter:
		return "center"
	case TagUniversity:
		return "university"
	case TagHospital:
		return "hospital"
	case TagResidential:
		return "residential"
	case TagBusiness:
		return "business"
	default:
		return "none"
	}
}

// Names lists the tags in the set in priority order.
func (s Tags) Names() []string {
	var out []string
	for _, t := range tagPriority {
		if s.Has(t) {
			out = append(out, t.String())
		}
	}
	return out
}

var tagKeywords = []struct {
	tag      Tag
	keywords []string
}{
	{TagMall, []string{"mall", "shopping", "iulius"}},
	{TagCenter, []string{"center", "centre", "centru", "central", "square", "piața", "piata", "victoriei"}},
	{TagUniversity, []string{"universit", "campus"}},
	{TagHospital, []string{"hospital", "spital", "medical"}},
	{TagResidential, []string{"residential", "rezidential", "cartier"}},
	{TagBusiness, []string{"business", "office"}},
}

// DeriveTags tags a zone by case-insensitive keyword search.
func DeriveTags(text string) Tags {
	lower := strings.ToLower(text)
	var s Tags
	for _, tk := range tagKeywords {
		for _, kw := range tk.keywords {
			if strings.Contains(lower, kw) {
				s |= Tags(tk.tag)
				break
			}
		}
	}
	return s
}

// Bucket is a time-of-day segment of the base intensity table.
type Bucket int

const (
	BucketOvernight Bucket = iota
	BucketMorningRush
	BucketMidday
	BucketEveningPeak
	BucketEvening
)

// BucketForHour maps an hour to its bucket. Boundary hours belong to the
// earlier bucket: 9 is morning rush, 17 is midday, 19 is evening peak.
func BucketForHour(hour int) Bucket {
	switch {
	case hour >= 7 && hour <= 9:
		return BucketMorningRush
	case hour >= 9 && hour <= 17:
		return BucketMidday
	case hour >= 17 && hour <= 19:
		return BucketEveningPeak
	case hour >= 19 && hour <= 23:
		return BucketEvening
	default:
		return BucketOvernight
	}
}

// baseTable holds the base intensity per bucket and governing tag. Missing
// tags fall back to the bucket's TagNone entry.
var baseTable = map[Bucket]map[Tag]float64{
	BucketMorningRush: {TagCenter: 85, TagBusiness: 85, TagUniversity: 75, TagHospital: 65, TagMall: 35, TagNone: 40},
	BucketMidday:      {TagCenter: 75, TagBusiness: 75, TagHospital: 70, TagUniversity: 65, TagMall: 55, TagNone: 25},
	BucketEveningPeak: {TagMall: 90, TagCenter: 80, TagResidential: 70, TagBusiness: 60, TagNone: 45},
	BucketEvening:     {TagMall: 75, TagCenter: 65, TagResidential: 80, TagNone: 35},
	BucketOvernight:   {TagHospital: 40, TagResidential: 60, TagNone: 15},
}

// BaseIntensity returns the jitter-free intensity for a governing tag at an hour.
func BaseIntensity(tag Tag, hour int) float64 {
	row := baseTable[BucketForHour(hour)]
	if v, ok := row[tag]; ok {
		return v
	}
	return row[TagNone]
}

// Synthesizer produces hourly intensity profiles. It is safe for concurrent use.
type Synthesizer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSynthesizer creates a Synthesizer drawing jitter from src.
func NewSynthesizer(src rand.Source) *Synthesizer {
	return &Synthesizer{rng: rand.New(src)}
}

// Profile derives 24 hourly intensities for the given tags.
func (s *Synthesizer) Profile(tags Tags) []int {
	governing := tags.Governing()
	out := make([]int, HoursPerDay)

	s.mu.Lock()
	defer s.mu.Unlock()
	for hour := range out {
		v := BaseIntensity(governing, hour) + (s.rng.Float64()-0.5)*jitterSpan
		out[hour] = clampIntensity(v)
	}
	return out
}

func clampIntensity(v float64) int {
	return int(math.Round(math.Max(minIntensity, math.Min(maxIntensity, v))))
}
