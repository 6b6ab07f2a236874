package feedmock

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/jaswdr/faker"

	"github.com/couchcryptid/parking-zone-sync/internal/domain"
)

// Bounding box around Timișoara's centre.
const (
	minLat, latSpan = 45.72, 0.07
	minLon, lonSpan = 21.18, 0.10
)

// Landmarks give generated zones the keywords the traffic tagger looks for.
var landmarks = []string{
	"Piata Victoriei",
	"Iulius Mall",
	"Spitalul Judetean",
	"Universitatea de Vest",
	"Cartier Circumvalatiunii",
	"Business Center Calea Aradului",
	"Piata Unirii",
	"Shopping City",
}

var streetPrefixes = []string{"Strada", "Bulevardul", "Calea", "Aleea"}

// Generator produces plausible feed items from a seeded faker.
type Generator struct {
	mu   sync.Mutex
	fake faker.Faker
}

func NewGenerator(seed int64) *Generator {
	return &Generator{fake: faker.NewWithSeed(rand.NewSource(seed))}
}

// Zones returns n items with unique addresses. Roughly one in eight omits
// availablePlaces and one in four carries a server colour hint.
func (g *Generator) Zones(n int) []domain.FeedItem {
	g.mu.Lock()
	defer g.mu.Unlock()

	seen := make(map[string]bool, n)
	out := make([]domain.FeedItem, 0, n)
	for len(out) < n {
		it := g.item(len(out))
		if seen[it.Address] {
			continue
		}
		seen[it.Address] = true
		out = append(out, it)
	}
	return out
}

func (g *Generator) item(i int) domain.FeedItem {
	f := g.fake
	var street string
	if i < len(landmarks) {
		street = landmarks[i]
	} else {
		street = f.RandomStringElement(streetPrefixes) + " " + f.Address().StreetName()
	}

	total := f.IntBetween(5, 120)
	it := domain.FeedItem{
		Address:       fmt.Sprintf("%s nr %d", street, f.IntBetween(1, 99)),
		NumberOfSpots: total,
		Latitude:      minLat + f.Float64(6, 0, 1)*latSpan,
		Longitude:     minLon + f.Float64(6, 0, 1)*lonSpan,
	}
	if f.IntBetween(1, 8) != 1 {
		avail := f.IntBetween(0, total)
		it.AvailablePlaces = &avail
	}
	if f.IntBetween(1, 4) == 1 {
		it.Type = hintFor(it)
	}
	return it
}

// Drift nudges each zone's availability by up to step spots, keeping it
// within [0, numberOfSpots]. Zones without availability are left alone.
func (g *Generator) Drift(reg *Registry, step int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	reg.Mutate(func(it *domain.FeedItem) {
		if it.AvailablePlaces == nil {
			return
		}
		v := *it.AvailablePlaces + g.fake.IntBetween(-step, step)
		v = max(0, min(v, it.NumberOfSpots))
		it.AvailablePlaces = &v
		if it.Type != "" {
			it.Type = hintFor(*it)
		}
	})
}

func hintFor(it domain.FeedItem) string {
	if it.AvailablePlaces == nil || it.NumberOfSpots == 0 {
		return "green"
	}
	switch ratio := float64(*it.AvailablePlaces) / float64(it.NumberOfSpots); {
	case *it.AvailablePlaces == 0:
		return "red"
	case ratio < 0.3:
		return "yellow"
	default:
		return "green"
	}
}
