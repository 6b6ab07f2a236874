package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/parking-zone-sync/internal/config"
	"github.com/couchcryptid/parking-zone-sync/internal/domain"
	"github.com/couchcryptid/parking-zone-sync/internal/observability"
	"github.com/couchcryptid/parking-zone-sync/internal/store"
)

const (
	maxAttempts    = 3
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 2 * time.Second
)

// messageWriter is the subset of *kafkago.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// SnapshotPublisher produces one message per zone to the snapshot topic
// whenever the store accepts a changed snapshot.
type SnapshotPublisher struct {
	writer  messageWriter
	metrics *observability.Metrics
	logger  *slog.Logger
	backoff time.Duration

	mu        sync.Mutex
	published map[string]struct{} // zone IDs live on the topic, as far as this process knows
}

// NewSnapshotPublisher creates a Kafka producer for the configured snapshot topic.
func NewSnapshotPublisher(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *SnapshotPublisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSnapshotTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &SnapshotPublisher{writer: w, metrics: metrics, logger: logger, backoff: initialBackoff}
}

// PublishSnapshot serializes every zone in the snapshot and writes them in a
// single WriteMessages call. Messages are keyed by zone ID so a compacted
// topic keeps the latest state per zone. Zones published earlier by this
// process but missing from snap get a tombstone (nil value) so compaction
// drops them. Failed writes are retried with exponential backoff up to
// maxAttempts times.
func (p *SnapshotPublisher) PublishSnapshot(ctx context.Context, snap *store.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	zones := snap.List()
	live := make(map[string]struct{}, len(zones))
	msgs := make([]kafkago.Message, 0, len(zones))
	for i := range zones {
		msg, err := serializeToMessage(zones[i], snap.RefreshedAt(), snap.Generation())
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
		live[zones[i].ID] = struct{}{}
	}
	var gone []string
	for id := range p.published {
		if _, ok := live[id]; !ok {
			gone = append(gone, id)
		}
	}
	slices.Sort(gone)
	for _, id := range gone {
		msgs = append(msgs, tombstone(id, snap.RefreshedAt(), snap.Generation()))
	}
	if len(msgs) == 0 {
		return nil
	}

	if err := p.write(ctx, msgs); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	p.published = live
	p.metrics.SnapshotMessages.Add(float64(len(msgs)))
	p.logger.Debug("snapshot published",
		"zones", len(zones),
		"tombstones", len(gone),
		"generation", snap.Generation(),
	)
	return nil
}

func (p *SnapshotPublisher) write(ctx context.Context, msgs []kafkago.Message) error {
	backoff := p.backoff
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = p.writer.WriteMessages(ctx, msgs...); err == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}
		p.logger.Warn("snapshot write failed, retrying",
			"error", err,
			"attempt", attempt,
			"backoff", backoff,
		)
		if !retry.SleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
	return err
}

// Close flushes pending writes and closes the producer.
func (p *SnapshotPublisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a ZoneRecord into a Kafka message.
func serializeToMessage(zone domain.ZoneRecord, refreshedAt time.Time, generation uint64) (kafkago.Message, error) {
	data, err := json.Marshal(zone)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize zone record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(zone.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "band", Value: []byte(zone.Band)},
			{Key: "refreshed_at", Value: []byte(refreshedAt.UTC().Format(time.RFC3339))},
			{Key: "generation", Value: []byte(strconv.FormatUint(generation, 10))},
		},
	}, nil
}

// tombstone marks a zone as removed from the feed.
func tombstone(id string, refreshedAt time.Time, generation uint64) kafkago.Message {
	return kafkago.Message{
		Key: []byte(id),
		Headers: []kafkago.Header{
			{Key: "refreshed_at", Value: []byte(refreshedAt.UTC().Format(time.RFC3339))},
			{Key: "generation", Value: []byte(strconv.FormatUint(generation, 10))},
		},
	}
}
