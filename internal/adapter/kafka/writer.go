package kafka

import (
	"context"
	"log/slog"
	"sort"

	"github.com/couchcryptid/radar-ppi-etl/internal/config"
	"github.com/couchcryptid/radar-ppi-etl/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces PPI product messages to the sink topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
		// Product payloads carry full raster layers.
		BatchBytes: 64 << 20,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch publishes multiple product events in a single WriteMessages
// call for efficiency.
func (w *Writer) LoadBatch(ctx context.Context, events []pipeline.OutputEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		msgs[i] = serializeToMessage(events[i])
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage maps an output event onto a Kafka message. Headers
// are emitted in sorted key order so identical events serialize
// identically.
func serializeToMessage(event pipeline.OutputEvent) kafkago.Message {
	keys := make([]string, 0, len(event.Headers))
	for k := range event.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	headers := make([]kafkago.Header, len(keys))
	for i, k := range keys {
		headers[i] = kafkago.Header{Key: k, Value: []byte(event.Headers[k])}
	}

	return kafkago.Message{
		Key:     event.Key,
		Value:   event.Value,
		Headers: headers,
	}
}
