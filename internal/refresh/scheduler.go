// Package refresh keeps the zone store in step with the parking feed.
//
// A Scheduler runs at most one fetch-normalize-publish cycle at a time. Timer
// ticks and manual requests that arrive while a cycle is in flight join it
// instead of starting another fetch. Every cycle carries a generation number
// and the store refuses generations it has already moved past.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/couchcryptid/parking-zone-sync/internal/domain"
	"github.com/couchcryptid/parking-zone-sync/internal/observability"
	"github.com/couchcryptid/parking-zone-sync/internal/store"
)

const tracerName = "github.com/couchcryptid/parking-zone-sync/internal/refresh"

// Fetcher retrieves the raw feed.
type Fetcher interface {
	Fetch(ctx context.Context) ([]domain.FeedItem, error)
}

// SnapshotPublisher forwards accepted snapshots downstream.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, snap *store.Snapshot) error
}

// State is the scheduler's lifecycle state.
type State string

const (
	StateIdle     State = "IDLE"
	StateFetching State = "FETCHING"
)

// Trigger records what started a cycle.
type Trigger string

const (
	TriggerStart  Trigger = "start"
	TriggerTimer  Trigger = "timer"
	TriggerManual Trigger = "manual"
)

// Outcome of a completed cycle.
type Outcome string

const (
	OutcomeChanged   Outcome = "changed"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeFailed    Outcome = "failed"
	OutcomeDiscarded Outcome = "discarded"
)

// Status is a point-in-time view of the scheduler.
type Status struct {
	State       State     `json:"state"`
	Generation  uint64    `json:"generation"`
	LastCycleID string    `json:"last_cycle_id,omitempty"`
	LastOutcome Outcome   `json:"last_outcome,omitempty"`
	LastAttempt time.Time `json:"last_attempt"`
	LastSuccess time.Time `json:"last_success"`
	LastRefresh time.Time `json:"last_refresh"` // when the snapshot last changed
	NextRefresh time.Time `json:"next_refresh"` // zero while Run is not looping
	LastError   string    `json:"last_error,omitempty"`
	Skipped     int       `json:"skipped"` // malformed items dropped by the last successful cycle
	Zones       int       `json:"zones"`
}

// Option configures optional scheduler collaborators.
type Option func(*Scheduler)

// WithGeocoder enables forward geocoding for zones the feed left without
// coordinates.
func WithGeocoder(g domain.Geocoder) Option {
	return func(s *Scheduler) { s.geocoder = g }
}

// WithPublisher forwards every changed snapshot to p.
func WithPublisher(p SnapshotPublisher) Option {
	return func(s *Scheduler) { s.publisher = p }
}

// cycle is a single in-flight refresh that any number of callers can wait on.
type cycle struct {
	id         string
	generation uint64
	trigger    Trigger
	done       chan struct{}
	err        error
}

// Scheduler drives periodic and manual refreshes of the zone store.
type Scheduler struct {
	fetcher    Fetcher
	normalizer *domain.Normalizer
	zones      *store.Store
	cadence    Cadence
	clock      clockwork.Clock
	geocoder   domain.Geocoder
	publisher  SnapshotPublisher
	metrics    *observability.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer

	mu         sync.Mutex
	inflight   *cycle
	generation uint64
	status     Status

	reset chan struct{}
	ready atomic.Bool
}

// New creates a Scheduler. Pass clockwork.NewRealClock() outside tests.
func New(fetcher Fetcher, normalizer *domain.Normalizer, zones *store.Store, cadence Cadence, clock clockwork.Clock,
	metrics *observability.Metrics, logger *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		fetcher:    fetcher,
		normalizer: normalizer,
		zones:      zones,
		cadence:    cadence,
		clock:      clock,
		metrics:    metrics,
		logger:     logger,
		tracer:     otel.Tracer(tracerName),
		status:     Status{State: StateIdle},
		reset:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run starts an immediate refresh and then refreshes on the cadence until ctx
// is cancelled. Cycle failures are logged and recorded in Status; they never
// stop the loop. A cycle still in flight when Run returns is left to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("refresh scheduler started")
	s.start(ctx, TriggerStart)

	wait := s.untilNext()
	timer := s.clock.NewTimer(wait)
	s.markNext(wait)
	defer func() {
		timer.Stop()
		s.mu.Lock()
		s.status.NextRefresh = time.Time{}
		s.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("refresh scheduler stopping", "reason", ctx.Err())
			return nil
		case <-timer.Chan():
			s.start(ctx, TriggerTimer)
			wait = s.untilNext()
			timer.Reset(wait)
			s.markNext(wait)
		case <-s.reset:
			if !timer.Stop() {
				select {
				case <-timer.Chan():
				default:
				}
			}
			wait = s.untilNext()
			timer.Reset(wait)
			s.markNext(wait)
		}
	}
}

// markNext records when the timer armed with wait will fire.
func (s *Scheduler) markNext(wait time.Duration) {
	next := s.clock.Now().Add(wait)
	s.mu.Lock()
	s.status.NextRefresh = next
	s.mu.Unlock()
}

// Refresh runs a cycle now, or joins the one already in flight, and waits for
// its result. A new manual cycle pushes the next scheduled tick back by a
// full cadence step. Returning early on ctx does not cancel the cycle.
func (s *Scheduler) Refresh(ctx context.Context) error {
	c, started := s.start(ctx, TriggerManual)
	if started {
		select {
		case s.reset <- struct{}{}:
		default:
		}
	}
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns the current scheduler status.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	st := s.status
	s.mu.Unlock()

	snap := s.zones.Current()
	st.LastRefresh = snap.RefreshedAt()
	st.Zones = snap.Len()
	return st
}

// CheckReadiness returns nil once a refresh has succeeded.
func (s *Scheduler) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("no successful refresh yet")
	}
	return nil
}

// start launches a cycle unless one is in flight, in which case the caller
// joins it. It reports whether a new cycle was started.
func (s *Scheduler) start(ctx context.Context, trigger Trigger) (*cycle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inflight != nil {
		s.metrics.CoalescedRefreshes.Inc()
		s.logger.Debug("refresh joined in-flight cycle",
			"trigger", trigger,
			"cycle_id", s.inflight.id,
		)
		return s.inflight, false
	}

	s.generation++
	c := &cycle{
		id:         uuid.NewString(),
		generation: s.generation,
		trigger:    trigger,
		done:       make(chan struct{}),
	}
	s.inflight = c
	s.status.State = StateFetching
	s.status.Generation = c.generation
	s.status.LastCycleID = c.id
	s.status.LastAttempt = s.clock.Now()
	s.metrics.Fetching.Set(1)

	// The cycle outlives whichever caller started it; other callers may be
	// waiting on the same result.
	go s.execute(context.WithoutCancel(ctx), c)
	return c, true
}

func (s *Scheduler) execute(ctx context.Context, c *cycle) {
	ctx, span := s.tracer.Start(ctx, "refresh.cycle", trace.WithAttributes(
		attribute.String("refresh.trigger", string(c.trigger)),
		attribute.Int64("refresh.generation", int64(c.generation)),
		attribute.String("refresh.cycle_id", c.id),
	))
	defer span.End()

	start := s.clock.Now()
	logger := s.logger.With("cycle_id", c.id, "generation", c.generation, "trigger", c.trigger)

	var (
		outcome Outcome
		skipped int
		err     error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				outcome, err = OutcomeFailed, fmt.Errorf("refresh cycle panicked: %v", r)
			}
		}()
		outcome, skipped, err = s.runCycle(ctx, c, logger)
	}()

	s.metrics.RefreshCycles.WithLabelValues(string(c.trigger), string(outcome)).Inc()
	s.metrics.RefreshDuration.Observe(s.clock.Since(start).Seconds())
	span.SetAttributes(attribute.String("refresh.outcome", string(outcome)))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("refresh cycle failed", "error", err)
	} else {
		logger.Info("refresh cycle complete",
			"outcome", outcome,
			"skipped", skipped,
			"duration", s.clock.Since(start),
		)
	}

	s.mu.Lock()
	s.inflight = nil
	s.status.State = StateIdle
	s.status.LastOutcome = outcome
	if err != nil {
		s.status.LastError = err.Error()
	} else if outcome != OutcomeDiscarded {
		s.status.LastError = ""
		s.status.LastSuccess = s.clock.Now()
		s.status.Skipped = skipped
		s.ready.Store(true)
	}
	s.metrics.Fetching.Set(0)
	s.mu.Unlock()

	c.err = err
	close(c.done)
}

// runCycle fetches, normalizes, optionally geocodes, and publishes one
// snapshot. Only a feed failure is returned as an error; the store is left
// untouched in that case.
func (s *Scheduler) runCycle(ctx context.Context, c *cycle, logger *slog.Logger) (Outcome, int, error) {
	items, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return OutcomeFailed, 0, err
	}
	s.metrics.FeedItems.Add(float64(len(items)))

	batch := s.normalizer.NormalizeBatch(items)
	for _, skipErr := range batch.Skipped {
		logger.Warn("skipping malformed feed item", "error", skipErr)
	}
	s.metrics.MalformedItems.Add(float64(len(batch.Skipped)))

	if s.geocoder != nil {
		for i := range batch.Records {
			batch.Records[i] = domain.EnrichWithGeocoding(ctx, batch.Records[i], s.geocoder, logger)
		}
	}

	changed, err := s.zones.Publish(c.generation, batch.Records, s.clock.Now())
	if err != nil {
		if errors.Is(err, store.ErrClosed) || errors.Is(err, store.ErrStaleGeneration) {
			logger.Debug("refresh result discarded", "reason", err)
			return OutcomeDiscarded, len(batch.Skipped), nil
		}
		return OutcomeFailed, len(batch.Skipped), err
	}
	if !changed {
		return OutcomeUnchanged, len(batch.Skipped), nil
	}

	snap := s.zones.Current()
	s.metrics.StoreUpdates.Inc()
	s.metrics.Zones.Set(float64(snap.Len()))

	if s.publisher != nil {
		// The store already holds the new snapshot; a downstream failure
		// does not fail the refresh.
		if err := s.publisher.PublishSnapshot(ctx, snap); err != nil {
			logger.Warn("snapshot publish failed", "error", err)
		}
	}
	return OutcomeChanged, len(batch.Skipped), nil
}

func (s *Scheduler) untilNext() time.Duration {
	now := s.clock.Now()
	d := s.cadence.Next(now).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
