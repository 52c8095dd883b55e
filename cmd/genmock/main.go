// Command genmock generates a synthetic alert-feed fixture through the real
// domain parser, so fixture content always matches actual ingest behavior.
// It writes the raw feed JSON documents to a file and can publish them to the
// configured Kafka topic for local end-to-end runs.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock/alert_feed.json [-publish]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	kafkaadapter "github.com/couchcryptid/hazard-alert-enrichment/internal/adapter/kafka"
	"github.com/couchcryptid/hazard-alert-enrichment/internal/config"
	"github.com/couchcryptid/hazard-alert-enrichment/internal/domain"
)

var baseTime = time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the raw feed JSON fixture")
	publish := flag.Bool("publish", false, "also publish the fixture to the configured Kafka topic")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	// Fix the clock for reproducible IngestedAt in the parse check below.
	domain.SetClock(clockwork.NewFakeClockAt(baseTime.Add(6 * time.Hour)))
	defer domain.SetClock(nil)

	docs := buildFixture()

	// Every fixture document must round-trip through the real parser.
	ids := make([]string, 0, len(docs))
	for id, doc := range docs {
		rec, err := domain.ParseFeedAlert(domain.RawMessage{Value: doc, Timestamp: baseTime})
		if err != nil {
			return fmt.Errorf("fixture %s does not parse: %w", id, err)
		}
		ids = append(ids, rec.ID)
	}
	log.Printf("generated %d alert documents: %v", len(docs), ids)

	if err := writeFixture(*out, docs); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote fixture: %s", *out)

	if *publish {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		pub := kafkaadapter.NewPublisher(cfg, slog.Default())
		defer pub.Close()
		if err := pub.PublishRaw(context.Background(), docs); err != nil {
			return fmt.Errorf("publishing fixture: %w", err)
		}
		log.Printf("published %d documents to %s", len(docs), cfg.KafkaAlertTopic)
	}
	return nil
}

// buildFixture produces a feed snapshot that exercises every strategy and the
// supersession chain: a polygon-carrying warning, an update superseding it,
// a geometry-free watch, and a cancellation referencing the update.
func buildFixture() map[string][]byte {
	mk := func(v map[string]any) []byte {
		b, err := json.Marshal(v)
		if err != nil {
			panic(err)
		}
		return b
	}

	polygon := map[string]any{
		"type": "Polygon",
		"coordinates": [][][]float64{{
			{-118.60, 33.90}, {-117.90, 33.90}, {-117.90, 34.35}, {-118.60, 34.35}, {-118.60, 33.90},
		}},
	}

	return map[string][]byte{
		"mock-ffw-1": mk(map[string]any{
			"id":          "mock-ffw-1",
			"event":       "Flash Flood Warning",
			"status":      "Actual",
			"severity":    "Severe",
			"certainty":   "Likely",
			"urgency":     "Immediate",
			"headline":    "Flash Flood Warning for Los Angeles and Pasadena",
			"description": "Heavy rain moving into Los Angeles. Flooding expected in Pasadena.",
			"sent":        baseTime.Format(time.RFC3339),
			"expires":     baseTime.Add(4 * time.Hour).Format(time.RFC3339),
			"messageType": "Alert",
			"geocode":     map[string]any{"SAME": []string{"006037"}},
			"geometry":    polygon,
		}),
		"mock-ffw-2": mk(map[string]any{
			"id":          "mock-ffw-2",
			"event":       "Flash Flood Warning",
			"status":      "Actual",
			"severity":    "Severe",
			"certainty":   "Observed",
			"urgency":     "Immediate",
			"headline":    "Flash Flood Warning continued for Los Angeles",
			"description": "Flooding ongoing in Los Angeles.",
			"sent":        baseTime.Add(time.Hour).Format(time.RFC3339),
			"expires":     baseTime.Add(5 * time.Hour).Format(time.RFC3339),
			"messageType": "Update",
			"geocode":     map[string]any{"SAME": []string{"006037"}},
			"references":  []any{map[string]any{"identifier": "mock-ffw-1"}},
			"geometry":    polygon,
		}),
		"mock-svw-1": mk(map[string]any{
			"id":          "mock-svw-1",
			"event":       "Severe Thunderstorm Watch",
			"status":      "Actual",
			"severity":    "Moderate",
			"certainty":   "Possible",
			"urgency":     "Expected",
			"headline":    "Severe Thunderstorm Watch for Kern County",
			"description": "Conditions favorable for severe thunderstorms.",
			"sent":        baseTime.Format(time.RFC3339),
			"messageType": "Alert",
			"geocode":     map[string]any{"SAME": []string{"006029"}},
		}),
		"mock-ffw-3": mk(map[string]any{
			"id":          "mock-ffw-3",
			"event":       "Flash Flood Warning",
			"status":      "Actual",
			"severity":    "Minor",
			"certainty":   "Observed",
			"urgency":     "Past",
			"headline":    "Flash Flood Warning cancelled",
			"sent":        baseTime.Add(2 * time.Hour).Format(time.RFC3339),
			"messageType": "Cancel",
			"geocode":     map[string]any{"SAME": []string{"006037"}},
			"references":  []any{"sender@example.gov,mock-ffw-2," + baseTime.Add(time.Hour).Format(time.RFC3339)},
		}),
	}
}

func writeFixture(path string, docs map[string][]byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	raw := make(map[string]json.RawMessage, len(docs))
	for id, doc := range docs {
		raw[id] = doc
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}
