// Package feedmock is an in-memory stand-in for the city parking feed. It
// serves the same read and admin contracts as the real feed so the sync
// service can run locally without it.
package feedmock

import (
	"errors"
	"sync"

	"github.com/couchcryptid/parking-zone-sync/internal/domain"
)

var (
	ErrNotFound = errors.New("zone not found")
	ErrExists   = errors.New("zone already exists")
)

// Registry holds feed items keyed by address in insertion order.
type Registry struct {
	mu    sync.RWMutex
	items map[string]domain.FeedItem
	order []string
}

// NewRegistry returns a registry seeded with items. Later duplicates of an
// address replace earlier ones.
func NewRegistry(items []domain.FeedItem) *Registry {
	r := &Registry{items: make(map[string]domain.FeedItem, len(items))}
	for _, it := range items {
		if _, ok := r.items[it.Address]; !ok {
			r.order = append(r.order, it.Address)
		}
		r.items[it.Address] = it
	}
	return r
}

// List returns a copy of every item.
func (r *Registry) List() []domain.FeedItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.FeedItem, 0, len(r.order))
	for _, addr := range r.order {
		out = append(out, cloneItem(r.items[addr]))
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func (r *Registry) Create(item domain.FeedItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[item.Address]; ok {
		return ErrExists
	}
	r.items[item.Address] = cloneItem(item)
	r.order = append(r.order, item.Address)
	return nil
}

// Update replaces the item stored under address. When item carries a new
// address the entry is renamed in place.
func (r *Registry) Update(address string, item domain.FeedItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[address]; !ok {
		return ErrNotFound
	}
	if item.Address == "" {
		item.Address = address
	}
	if item.Address != address {
		if _, taken := r.items[item.Address]; taken {
			return ErrExists
		}
		delete(r.items, address)
		for i, a := range r.order {
			if a == address {
				r.order[i] = item.Address
				break
			}
		}
	}
	r.items[item.Address] = cloneItem(item)
	return nil
}

func (r *Registry) Delete(address string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[address]; !ok {
		return ErrNotFound
	}
	delete(r.items, address)
	for i, a := range r.order {
		if a == address {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Mutate applies fn to every item under the write lock.
func (r *Registry) Mutate(fn func(*domain.FeedItem)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, addr := range r.order {
		it := r.items[addr]
		fn(&it)
		it.Address = addr
		r.items[addr] = it
	}
}

func cloneItem(it domain.FeedItem) domain.FeedItem {
	if it.AvailablePlaces != nil {
		v := *it.AvailablePlaces
		it.AvailablePlaces = &v
	}
	return it
}
