package store

import (
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/parking-zone-sync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC)

func zones(available ...int) []domain.ZoneRecord {
	out := make([]domain.ZoneRecord, len(available))
	for i, a := range available {
		out[i] = domain.ZoneRecord{
			ID:         domain.ZoneID(string(rune('A'+i)) + " street"),
			Street:     string(rune('A'+i)) + " street",
			TotalSpots: 100,
			Available:  a,
		}
	}
	return out
}

func TestNew_Empty(t *testing.T) {
	s := New()

	snap := s.Current()
	require.NotNil(t, snap)
	assert.Zero(t, snap.Len())
	assert.True(t, snap.RefreshedAt().IsZero())
	assert.Zero(t, s.Updates())
}

func TestPublish_ReplacesOnChange(t *testing.T) {
	s := New()

	changed, err := s.Publish(1, zones(10, 20, 30), t0)
	require.NoError(t, err)
	assert.True(t, changed)

	snap := s.Current()
	assert.Equal(t, 3, snap.Len())
	assert.Equal(t, t0, snap.RefreshedAt())
	assert.Equal(t, uint64(1), snap.Generation())

	z, ok := snap.Get(zones(10)[0].ID)
	require.True(t, ok)
	assert.Equal(t, 10, z.Available)
}

func TestPublish_IdenticalDataKeepsSnapshot(t *testing.T) {
	s := New()

	_, err := s.Publish(1, zones(1, 2, 3, 4, 5), t0)
	require.NoError(t, err)
	first := s.Current()

	changed, err := s.Publish(2, zones(1, 2, 3, 4, 5), t0.Add(30*time.Second))
	require.NoError(t, err)
	assert.False(t, changed)

	assert.Same(t, first, s.Current())
	assert.Equal(t, t0, s.Current().RefreshedAt())
	assert.Equal(t, uint64(1), s.Updates())
}

func TestPublish_ReorderedFeedIsUnchanged(t *testing.T) {
	s := New()
	recs := zones(1, 2, 3)
	_, err := s.Publish(1, recs, t0)
	require.NoError(t, err)

	reordered := []domain.ZoneRecord{recs[2], recs[0], recs[1]}
	changed, err := s.Publish(2, reordered, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestPublish_StaleGenerationRejected(t *testing.T) {
	s := New()

	_, err := s.Publish(5, zones(1), t0)
	require.NoError(t, err)

	changed, err := s.Publish(4, zones(99), t0.Add(time.Second))
	require.ErrorIs(t, err, ErrStaleGeneration)
	assert.False(t, changed)
	assert.Equal(t, 1, s.Current().List()[0].Available)
}

func TestPublish_AfterClose(t *testing.T) {
	s := New()
	_, err := s.Publish(1, zones(1), t0)
	require.NoError(t, err)

	s.Close()

	_, err = s.Publish(2, zones(2), t0)
	require.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, 1, s.Current().List()[0].Available)
}

func TestSnapshot_ListPreservesFeedOrderAndIsCopy(t *testing.T) {
	s := New()
	recs := zones(3, 1, 2)
	_, err := s.Publish(1, recs, t0)
	require.NoError(t, err)

	list := s.Current().List()
	require.Len(t, list, 3)
	assert.Equal(t, recs[0].ID, list[0].ID)
	assert.Equal(t, recs[2].ID, list[2].ID)

	list[0].Available = 1000
	z, _ := s.Current().Get(recs[0].ID)
	assert.Equal(t, 3, z.Available)
}

func TestSubscribe_ReceivesLatest(t *testing.T) {
	s := New()
	ch, cancel := s.Subscribe()
	defer cancel()

	_, err := s.Publish(1, zones(1), t0)
	require.NoError(t, err)
	_, err = s.Publish(2, zones(2), t0)
	require.NoError(t, err)

	snap := <-ch
	assert.Equal(t, uint64(2), snap.Generation())

	select {
	case <-ch:
		t.Fatal("expected only the latest snapshot")
	default:
	}
}

func TestSubscribe_CancelAndClose(t *testing.T) {
	s := New()
	ch1, cancel1 := s.Subscribe()
	ch2, _ := s.Subscribe()

	cancel1()
	cancel1()
	_, open := <-ch1
	assert.False(t, open)

	s.Close()
	_, open = <-ch2
	assert.False(t, open)

	ch3, _ := s.Subscribe()
	_, open = <-ch3
	assert.False(t, open)
}

func TestStore_ConcurrentReadersSeeCompleteSnapshots(t *testing.T) {
	s := New()
	const size = 50

	full := func(v int) []domain.ZoneRecord {
		vals := make([]int, size)
		for i := range vals {
			vals[i] = v
		}
		return zones(vals...)
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				list := s.Current().List()
				if len(list) == 0 {
					continue
				}
				first := list[0].Available
				for _, z := range list {
					if z.Available != first {
						t.Errorf("mixed snapshot: %d vs %d", z.Available, first)
						return
					}
				}
			}
		}()
	}

	for gen := uint64(1); gen <= 200; gen++ {
		_, err := s.Publish(gen, full(int(gen%7)), t0)
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()
}
