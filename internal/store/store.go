// Package store holds the in-memory zone cache shared by every consumer.
//
// The store never mutates a published snapshot. Each successful refresh that
// changes the data swaps in a new *Snapshot atomically, so readers see either
// the previous complete snapshot or the next one.
package store

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/parking-zone-sync/internal/domain"
)

var (
	// ErrClosed is returned by Publish after the store has been torn down.
	ErrClosed = errors.New("zone store closed")

	// ErrStaleGeneration is returned when a refresh older than the accepted
	// one tries to publish.
	ErrStaleGeneration = errors.New("stale refresh generation")
)

// Snapshot is an immutable, complete view of all zones.
type Snapshot struct {
	zones       map[string]domain.ZoneRecord
	order       []string
	refreshedAt time.Time
	generation  uint64
}

func newSnapshot(records []domain.ZoneRecord, at time.Time, generation uint64) *Snapshot {
	s := &Snapshot{
		zones:       make(map[string]domain.ZoneRecord, len(records)),
		order:       make([]string, 0, len(records)),
		refreshedAt: at,
		generation:  generation,
	}
	for _, r := range records {
		if _, dup := s.zones[r.ID]; !dup {
			s.order = append(s.order, r.ID)
		}
		s.zones[r.ID] = r
	}
	return s
}

// Get returns the zone with the given ID.
func (s *Snapshot) Get(id string) (domain.ZoneRecord, bool) {
	z, ok := s.zones[id]
	return z, ok
}

// List returns all zones in feed order. The slice is a copy.
func (s *Snapshot) List() []domain.ZoneRecord {
	out := make([]domain.ZoneRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.zones[id])
	}
	return out
}

// Len returns the number of zones.
func (s *Snapshot) Len() int { return len(s.order) }

// RefreshedAt is the time of the refresh that produced this snapshot. It is
// zero for the initial empty snapshot.
func (s *Snapshot) RefreshedAt() time.Time { return s.refreshedAt }

// Generation is the refresh generation that produced this snapshot.
func (s *Snapshot) Generation() uint64 { return s.generation }

// Equal reports whether two snapshots hold the same set of structurally
// identical zones. Feed order, timestamps, and generations are ignored.
func (s *Snapshot) Equal(o *Snapshot) bool {
	if len(s.zones) != len(o.zones) {
		return false
	}
	for id, z := range s.zones {
		other, ok := o.zones[id]
		if !ok || !z.Equal(other) {
			return false
		}
	}
	return true
}

// Store is the last-write-wins zone cache.
type Store struct {
	current  atomic.Pointer[Snapshot]
	accepted atomic.Uint64
	updates  atomic.Uint64
	closed   atomic.Bool

	mu   sync.Mutex // guards subs and serializes Publish
	subs map[int]chan *Snapshot
	next int
}

// New creates an empty store.
func New() *Store {
	s := &Store{subs: make(map[int]chan *Snapshot)}
	s.current.Store(newSnapshot(nil, time.Time{}, 0))
	return s
}

// Current returns the latest complete snapshot. It never returns nil.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Updates counts how many snapshots have replaced the previous one.
func (s *Store) Updates() uint64 {
	return s.updates.Load()
}

// Publish offers the records of refresh generation gen. It returns true when
// the snapshot was replaced. Records equal to the current snapshot are
// discarded and leave the refresh timestamp unchanged.
func (s *Store) Publish(gen uint64, records []domain.ZoneRecord, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return false, ErrClosed
	}
	if gen <= s.accepted.Load() {
		return false, ErrStaleGeneration
	}
	s.accepted.Store(gen)

	next := newSnapshot(records, at, gen)
	if next.Equal(s.current.Load()) {
		return false, nil
	}

	s.current.Store(next)
	s.updates.Add(1)
	for _, ch := range s.subs {
		offer(ch, next)
	}
	return true, nil
}

// Subscribe returns a channel receiving each newly published snapshot. Slow
// subscribers only see the latest one. Call cancel to unsubscribe.
func (s *Store) Subscribe() (<-chan *Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan *Snapshot, 1)
	if s.closed.Load() {
		close(ch)
		return ch, func() {}
	}
	id := s.next
	s.next++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// Close tears the store down. Later publishes fail with ErrClosed, the last
// snapshot stays readable, and all subscriber channels are closed.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Swap(true) {
		return
	}
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

// offer delivers snap, replacing an undelivered older snapshot.
func offer(ch chan *Snapshot, snap *Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}
