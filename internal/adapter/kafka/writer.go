package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/city-enrollment-map/internal/config"
	"github.com/couchcryptid/city-enrollment-map/internal/domain"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	headerCity        = "city"
	headerPublishedAt = "published_at"
	headerGeneration  = "generation"

	// generationMarkerKey carries the generation of an empty table.
	generationMarkerKey = "__generation__"
)

// Writer publishes enrollment records to the enrollment topic.
type Writer struct {
	writer *kafkago.Writer
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured enrollment topic.
func NewWriter(cfg *config.Config, clock clockwork.Clock, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaEnrollmentTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, clock: clock, logger: logger}
}

// Publish writes records as one table generation in a single WriteMessages
// call. Readers keep only the newest generation, so the published table
// replaces the previous one, including rows whose keys it no longer has.
// Publishing an empty table clears the topic's table.
func (w *Writer) Publish(ctx context.Context, records []domain.EnrollmentRecord) error {
	msgs, err := tableMessages(records, w.clock.Now())
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish enrollment: %w", err)
	}
	w.logger.Info("published enrollment records", "topic", w.writer.Topic, "count", len(records))
	return nil
}

// tableMessages serializes one table generation. An empty table becomes a
// single tombstone that only advances the generation.
func tableMessages(records []domain.EnrollmentRecord, publishedAt time.Time) ([]kafkago.Message, error) {
	if len(records) == 0 {
		return []kafkago.Message{{
			Key:     []byte(generationMarkerKey),
			Headers: []kafkago.Header{generationHeader(publishedAt)},
		}}, nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(i, records[i], publishedAt)
		if err != nil {
			return nil, err
		}
		msgs[i] = msg
	}
	return msgs, nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an EnrollmentRecord into a Kafka message.
func serializeToMessage(index int, rec domain.EnrollmentRecord, publishedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize enrollment record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(recordKey(index, rec)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: headerCity, Value: []byte(rec.City)},
			{Key: headerPublishedAt, Value: []byte(publishedAt.UTC().Format(time.RFC3339))},
			generationHeader(publishedAt),
		},
	}, nil
}

func generationHeader(publishedAt time.Time) kafkago.Header {
	return kafkago.Header{Key: headerGeneration, Value: []byte(strconv.FormatInt(publishedAt.UnixNano(), 10))}
}

func recordKey(index int, rec domain.EnrollmentRecord) string {
	return fmt.Sprintf("%s|%s|%d", rec.City, rec.Program, index)
}
