// Package heatmap turns zone snapshots into hourly traffic heat data.
package heatmap

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/bluele/gcache"

	"github.com/couchcryptid/parking-zone-sync/internal/domain"
	"github.com/couchcryptid/parking-zone-sync/internal/observability"
	"github.com/couchcryptid/parking-zone-sync/internal/store"
)

// Profile is a zone's synthesized 24-hour traffic intensity curve.
type Profile struct {
	ZoneID    string   `json:"zone_id"`
	Tags      []string `json:"tags"`
	Governing string   `json:"governing_tag"`
	Hours     []int    `json:"hours"`

	tags domain.Tags
}

// At returns the intensity for hour, which must be in [0,24).
func (p Profile) At(hour int) int {
	return p.Hours[hour]
}

// Profiles caches one profile per zone so repeated reads of a zone see the
// same curve. A profile is regenerated only when the zone's tags change.
//
// The cache never evicts a live zone: when it fills up it is rebuilt with
// twice the capacity. Retain is what bounds it, by dropping zones that left
// the feed.
type Profiles struct {
	synth   *domain.Synthesizer
	cache   atomic.Pointer[gcache.Cache]
	metrics *observability.Metrics

	mu       sync.Mutex // serializes misses so a zone is synthesized once
	capacity int
}

// NewProfiles creates a profile cache with an initial capacity of size.
func NewProfiles(synth *domain.Synthesizer, size int, metrics *observability.Metrics) *Profiles {
	p := &Profiles{synth: synth, metrics: metrics, capacity: max(size, 1)}
	c := gcache.New(p.capacity).LRU().Build()
	p.cache.Store(&c)
	return p
}

func (p *Profiles) lru() gcache.Cache {
	return *p.cache.Load()
}

// grow doubles the capacity, carrying every entry over. Callers hold p.mu.
func (p *Profiles) grow() {
	old := p.lru()
	p.capacity *= 2
	next := gcache.New(p.capacity).LRU().Build()
	for k, v := range old.GetALL(false) {
		_ = next.Set(k, v)
	}
	p.cache.Store(&next)
}

// For returns the profile for zone, synthesizing it on first use.
func (p *Profiles) For(zone domain.ZoneRecord) Profile {
	tags := domain.DeriveTags(zone.Text())
	if prof, ok := p.lookup(zone.ID, tags); ok {
		p.metrics.ProfileCache.WithLabelValues("hit").Inc()
		return copyHours(prof)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if prof, ok := p.lookup(zone.ID, tags); ok {
		p.metrics.ProfileCache.WithLabelValues("hit").Inc()
		return copyHours(prof)
	}
	p.metrics.ProfileCache.WithLabelValues("miss").Inc()

	names := tags.Names()
	if names == nil {
		names = []string{}
	}
	prof := Profile{
		ZoneID:    zone.ID,
		Tags:      names,
		Governing: tags.Governing().String(),
		Hours:     p.synth.Profile(tags),
		tags:      tags,
	}
	if p.lru().Len(false) >= p.capacity {
		p.grow()
	}
	_ = p.lru().Set(zone.ID, prof)
	return copyHours(prof)
}

func (p *Profiles) lookup(id string, tags domain.Tags) (Profile, bool) {
	v, err := p.lru().Get(id)
	if err != nil {
		return Profile{}, false
	}
	prof, ok := v.(Profile)
	if !ok || prof.tags != tags {
		return Profile{}, false
	}
	return prof, true
}

// Retain drops cached profiles of zones missing from snap.
func (p *Profiles) Retain(snap *store.Snapshot) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	cache := p.lru()
	removed := 0
	for _, key := range cache.Keys(false) {
		id, ok := key.(string)
		if !ok {
			continue
		}
		if _, live := snap.Get(id); !live && cache.Remove(id) {
			removed++
		}
	}
	return removed
}

// Len is the number of cached profiles.
func (p *Profiles) Len() int {
	return p.lru().Len(false)
}

// copyHours guards cached curves against callers that modify the slice.
func copyHours(p Profile) Profile {
	p.Hours = slices.Clone(p.Hours)
	p.Tags = slices.Clone(p.Tags)
	return p
}
