//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkaadapter "github.com/couchcryptid/hazard-alert-enrichment/internal/adapter/kafka"
	"github.com/couchcryptid/hazard-alert-enrichment/internal/classify"
	"github.com/couchcryptid/hazard-alert-enrichment/internal/config"
	"github.com/couchcryptid/hazard-alert-enrichment/internal/domain"
	"github.com/couchcryptid/hazard-alert-enrichment/internal/ingest"
	"github.com/couchcryptid/hazard-alert-enrichment/internal/observability"
	"github.com/couchcryptid/hazard-alert-enrichment/internal/refdata"
	"github.com/couchcryptid/hazard-alert-enrichment/internal/store"
	"github.com/couchcryptid/hazard-alert-enrichment/internal/strategy"
)

const testAlertTopic = "test-hazard-alerts"

var feedDocs = map[string][]byte{
	"int-ffw-1": []byte(`{
		"id": "int-ffw-1",
		"event": "Flash Flood Warning",
		"headline": "Flash Flood Warning for Los Angeles",
		"sent": "2024-04-26T15:10:00Z",
		"messageType": "Alert",
		"geocode": {"SAME": ["006037"]},
		"geometry": {"type": "Polygon", "coordinates": [[[-119.0,33.5],[-117.5,33.5],[-117.5,34.5],[-119.0,34.5],[-119.0,33.5]]]}
	}`),
	"int-ffw-2": []byte(`{
		"id": "int-ffw-2",
		"event": "Flash Flood Warning",
		"headline": "Flash Flood Warning continued for Los Angeles",
		"sent": "2024-04-26T16:10:00Z",
		"messageType": "Update",
		"geocode": {"SAME": ["006037"]},
		"references": [{"identifier": "int-ffw-1"}]
	}`),
	// Present-but-unusable geometry downgrades to absent and keeps the record.
	"int-bad-geo": []byte(`{
		"id": "int-bad-geo",
		"event": "Tornado Warning",
		"sent": "2024-04-26T15:30:00Z",
		"messageType": "Alert",
		"geocode": {"SAME": ["006037"]},
		"geometry": {"type": "Point", "coordinates": [1, 2]}
	}`),
}

func testConfig(broker string) *config.Config {
	return &config.Config{
		KafkaBrokers:    []string{broker},
		KafkaAlertTopic: testAlertTopic,
		KafkaGroupID:    fmt.Sprintf("test-enrich-%d", time.Now().UnixNano()),
		BatchSize:       10,
		FetchWait:       3 * time.Second,
	}
}

// drainFeed retries ExtractBatch until want records arrive; the consumer group
// may need time to rebalance before partitions are assigned.
func drainFeed(ctx context.Context, t *testing.T, reader *kafkaadapter.Reader, want int) []domain.AlertRecord {
	t.Helper()
	var records []domain.AlertRecord
	for len(records) < want {
		batch, err := reader.ExtractBatch(ctx, want)
		require.NoError(t, err)
		records = append(records, batch...)
		if ctx.Err() != nil {
			t.Fatalf("timed out with %d of %d records", len(records), want)
		}
	}
	return records
}

// TestFeedToStore drains a published feed snapshot through the Kafka reader and
// the full enrichment batch, then verifies the persisted state.
func TestFeedToStore(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, 4, 26, 18, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	broker := startKafka(ctx, t)
	createTopic(t, broker, testAlertTopic)
	cfg := testConfig(broker)

	// Publish the snapshot plus a poison pill that must be skipped.
	publisher := kafkaadapter.NewPublisher(cfg, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })
	docs := map[string][]byte{"poison": []byte("not-json{{{")}
	for id, doc := range feedDocs {
		docs[id] = doc
	}
	require.NoError(t, publisher.PublishRaw(ctx, docs))

	// Drain via the reader: three parseable records out of four messages.
	metrics := observability.NewMetricsForTesting()
	reader := kafkaadapter.NewReader(cfg, discardLogger(), metrics)
	t.Cleanup(func() { _ = reader.Close() })

	records := drainFeed(ctx, t, reader, len(feedDocs))
	require.Len(t, records, len(feedDocs))

	byID := make(map[string]domain.AlertRecord, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}
	require.Contains(t, byID, "int-ffw-1")
	require.NotNil(t, byID["int-ffw-1"].Geometry)
	require.Contains(t, byID, "int-bad-geo")
	assert.Nil(t, byID["int-bad-geo"].Geometry, "malformed geometry must downgrade to absent")
	assert.Equal(t, []string{"int-ffw-1"}, byID["int-ffw-2"].References)

	// Run the records through a real enrichment batch.
	regions, err := refdata.ReadRegionIndex(strings.NewReader(
		"region_code,zip,res_ratio,bus_ratio,oth_ratio\n06037,90001,0.90,0.05,0.05\n06037,90002,0.60,0.30,0.10\n"))
	require.NoError(t, err)
	centroids, err := refdata.ReadCentroidIndex(strings.NewReader(
		"zip,lat,lon\n90001,33.97,-118.25\n90002,36.50,-118.25\n"))
	require.NoError(t, err)
	places, err := refdata.ReadPlaceNameIndex(strings.NewReader(
		"zip,place_name,state,region_code\n90001,Los Angeles,CA,06037\n90002,Compton,CA,06037\n"))
	require.NoError(t, err)

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	orch := ingest.New(st, classify.NewKeyword(nil),
		strategy.NewCounty(regions, 0.5), strategy.NewPolygon(centroids), strategy.NewPlaceName(places),
		discardLogger(), metrics, false)

	summary, err := orch.RunBatch(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Alerts)
	assert.Equal(t, 3, summary.Enriched)
	assert.Equal(t, 1, summary.Superseded)

	// The warning was superseded by its update.
	got, ok, err := st.GetAlert(ctx, "int-ffw-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, got.IsCurrent)
	assert.Equal(t, "int-ffw-2", got.SuccessorID)

	// Geometry-carrying warning: 90001 inside the box and named in the
	// headline, 90002 baseline only.
	rows, err := st.ProvenanceFor(ctx, "int-ffw-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, domain.ProvenanceFlags{Region: true, Geometry: true, PlaceName: true}, rows[0].Flags)
	assert.Equal(t, domain.ProvenanceFlags{Region: true}, rows[1].Flags)

	// Downgraded geometry enriches as if absent: pass-through keeps both.
	rows, err = st.ProvenanceFor(ctx, "int-bad-geo")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.True(t, row.Flags.Region)
		assert.True(t, row.Flags.Geometry)
	}
}

// TestExtractBatchQuietTopic verifies that an empty topic yields an empty
// batch, not an error.
func TestExtractBatchQuietTopic(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testAlertTopic)
	cfg := testConfig(broker)
	cfg.FetchWait = 2 * time.Second

	reader := kafkaadapter.NewReader(cfg, discardLogger(), observability.NewMetricsForTesting())
	t.Cleanup(func() { _ = reader.Close() })

	// Allow one rebalance cycle before trusting the empty result.
	time.Sleep(5 * time.Second)
	batch, err := reader.ExtractBatch(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, batch)
}
