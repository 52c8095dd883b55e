// Package kafka adapts the alert feed topic to the ingest layer. The external
// collector owns fetching and publishing; this adapter only drains one bounded
// snapshot per scheduled run.
package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/hazard-alert-enrichment/internal/config"
	"github.com/couchcryptid/hazard-alert-enrichment/internal/domain"
	"github.com/couchcryptid/hazard-alert-enrichment/internal/observability"
)

// Reader consumes alert JSON from the feed topic and parses it into
// AlertRecords. It implements the orchestrator's batch source.
type Reader struct {
	reader  *kafkago.Reader
	logger  *slog.Logger
	metrics *observability.Metrics
	wait    time.Duration
}

// NewReader creates a consumer-group reader for the configured alert topic.
func NewReader(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaAlertTopic,
		GroupID:     cfg.KafkaGroupID,
		StartOffset: kafkago.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return &Reader{reader: r, logger: logger, metrics: metrics, wait: cfg.FetchWait}
}

// ExtractBatch drains up to max alerts from the topic. The drain ends when max
// is reached or no further message arrives within the configured wait; a
// quiet topic yields an empty batch, not an error. Unparseable messages are
// logged, counted, and skipped; malformed geometry downgrades to "no geometry"
// and keeps the record. All fetched offsets are committed: a failed batch is
// re-fetched wholesale on the next scheduled run, which the downstream
// idempotence properties make safe.
func (r *Reader) ExtractBatch(ctx context.Context, max int) ([]domain.AlertRecord, error) {
	batch := make([]domain.AlertRecord, 0, max)
	var fetched []kafkago.Message

	for len(batch) < max {
		fetchCtx, cancel := context.WithTimeout(ctx, r.wait)
		msg, err := r.reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				break // snapshot drained
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		fetched = append(fetched, msg)

		rec, err := domain.ParseFeedAlert(mapMessage(msg))
		switch {
		case errors.Is(err, domain.ErrMalformedGeometry):
			r.logger.Warn("malformed geometry, treating as absent",
				"alert_id", rec.ID, "offset", msg.Offset, "error", err)
			r.metrics.EnrichSkips.WithLabelValues("malformed_geometry").Inc()
		case err != nil:
			r.logger.Warn("unparseable feed message, skipping",
				"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
			r.metrics.FeedParseErrors.Inc()
			continue
		}
		batch = append(batch, rec)
	}

	if len(fetched) > 0 {
		if err := r.reader.CommitMessages(ctx, fetched...); err != nil {
			r.logger.Warn("commit offsets failed", "error", err, "messages", len(fetched))
		}
	}
	return batch, nil
}

// Close shuts down the underlying consumer group member.
func (r *Reader) Close() error { return r.reader.Close() }

// mapMessage converts a Kafka message into the transport-neutral raw form the
// domain parser accepts.
func mapMessage(msg kafkago.Message) domain.RawMessage {
	return domain.RawMessage{
		Key:       msg.Key,
		Value:     msg.Value,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
	}
}
