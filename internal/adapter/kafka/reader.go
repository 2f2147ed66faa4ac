package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/city-enrollment-map/internal/config"
	"github.com/couchcryptid/city-enrollment-map/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// EnrollmentReader implements domain.EnrollmentSource by reading the
// enrollment topic from the first offset up to the high watermark of each
// partition. Later messages replace earlier ones with the same key and
// empty values delete the key, so a compacted topic reads as a table.
// Only rows of the newest generation written by Writer.Publish are kept;
// messages without a generation header belong to generation zero.
type EnrollmentReader struct {
	brokers []string
	topic   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewEnrollmentReader creates a reader for the configured enrollment topic.
func NewEnrollmentReader(cfg *config.Config, logger *slog.Logger) *EnrollmentReader {
	return &EnrollmentReader{
		brokers: cfg.KafkaBrokers,
		topic:   cfg.KafkaEnrollmentTopic,
		timeout: cfg.KafkaLoadTimeout,
		logger:  logger,
	}
}

// LoadEnrollment snapshots the topic. It fails if the snapshot cannot be
// completed within the configured load timeout.
func (r *EnrollmentReader) LoadEnrollment(ctx context.Context) ([]domain.EnrollmentRecord, error) {
	if len(r.brokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	partitions, err := r.partitions(ctx)
	if err != nil {
		return nil, err
	}

	t := newTable()
	for _, p := range partitions {
		if err := r.readPartition(ctx, p, t); err != nil {
			return nil, err
		}
	}
	records := t.records()
	r.logger.Info("enrollment snapshot loaded",
		"topic", r.topic,
		"partitions", len(partitions),
		"records", len(records),
	)
	return records, nil
}

func (r *EnrollmentReader) partitions(ctx context.Context) ([]int, error) {
	conn, err := kafkago.DialContext(ctx, "tcp", r.brokers[0])
	if err != nil {
		return nil, fmt.Errorf("dial kafka: %w", err)
	}
	defer conn.Close()

	parts, err := conn.ReadPartitions(r.topic)
	if err != nil {
		return nil, fmt.Errorf("read partitions of %s: %w", r.topic, err)
	}
	ids := make([]int, len(parts))
	for i, p := range parts {
		ids[i] = p.ID
	}
	return ids, nil
}

func (r *EnrollmentReader) readPartition(ctx context.Context, partition int, t *table) error {
	leader, err := kafkago.DialLeader(ctx, "tcp", r.brokers[0], r.topic, partition)
	if err != nil {
		return fmt.Errorf("dial leader for partition %d: %w", partition, err)
	}
	first, last, err := leader.ReadOffsets()
	leader.Close()
	if err != nil {
		return fmt.Errorf("read offsets of partition %d: %w", partition, err)
	}
	if last <= first {
		return nil
	}

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   r.brokers,
		Topic:     r.topic,
		Partition: partition,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer reader.Close()

	if err := reader.SetOffset(first); err != nil {
		return fmt.Errorf("seek partition %d: %w", partition, err)
	}

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			return fmt.Errorf("read partition %d: %w", partition, err)
		}
		if err := t.apply(msg); err != nil {
			r.logger.Warn("skipping malformed enrollment message",
				"error", err,
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
		}
		if msg.Offset >= last-1 {
			return nil
		}
	}
}

// table folds keyed messages into an ordered set of records.
type table struct {
	order  []string
	known  map[string]bool
	rows   map[string]row
	latest int64
}

type row struct {
	record     domain.EnrollmentRecord
	generation int64
}

func newTable() *table {
	return &table{
		known: make(map[string]bool),
		rows:  make(map[string]row),
	}
}

func (t *table) apply(msg kafkago.Message) error {
	gen, err := messageGeneration(msg)
	if err != nil {
		return err
	}
	key := string(msg.Key)
	if len(msg.Value) == 0 {
		delete(t.rows, key)
		t.latest = max(t.latest, gen)
		return nil
	}
	rec, err := decodeRecord(msg)
	if err != nil {
		return err
	}
	if !t.known[key] {
		t.known[key] = true
		t.order = append(t.order, key)
	}
	t.rows[key] = row{record: rec, generation: gen}
	t.latest = max(t.latest, gen)
	return nil
}

func (t *table) records() []domain.EnrollmentRecord {
	out := make([]domain.EnrollmentRecord, 0, len(t.rows))
	for _, key := range t.order {
		if r, ok := t.rows[key]; ok && r.generation == t.latest {
			out = append(out, r.record)
		}
	}
	return out
}

func messageGeneration(msg kafkago.Message) (int64, error) {
	for _, h := range msg.Headers {
		if h.Key != headerGeneration {
			continue
		}
		gen, err := strconv.ParseInt(string(h.Value), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse generation header %q: %w", h.Value, err)
		}
		return gen, nil
	}
	return 0, nil
}

func decodeRecord(msg kafkago.Message) (domain.EnrollmentRecord, error) {
	var rec domain.EnrollmentRecord
	if err := json.Unmarshal(msg.Value, &rec); err != nil {
		return domain.EnrollmentRecord{}, fmt.Errorf("decode enrollment message: %w", err)
	}
	return rec, nil
}
