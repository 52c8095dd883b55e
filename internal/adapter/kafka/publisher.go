package kafka

import (
	"context"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/hazard-alert-enrichment/internal/config"
)

// Publisher writes raw alert JSON to the feed topic. Production feeds come
// from the collector service; this exists for fixtures and local runs
// (cmd/genmock).
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a producer for the configured alert topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaAlertTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishRaw writes pre-serialized alert documents keyed by alert id in a
// single WriteMessages call.
func (p *Publisher) PublishRaw(ctx context.Context, docs map[string][]byte) error {
	if len(docs) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, 0, len(docs))
	for id, value := range docs {
		msgs = append(msgs, kafkago.Message{Key: []byte(id), Value: value})
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

// Close flushes and closes the producer.
func (p *Publisher) Close() error { return p.writer.Close() }
